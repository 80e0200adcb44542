package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Category groups products for expiration thresholds and alert weighting
type Category string

const (
	CategoryDairy      Category = "dairy"
	CategoryMeat       Category = "meat"
	CategoryVegetables Category = "vegetables"
	CategoryFruits     Category = "fruits"
	CategoryBeverages  Category = "beverages"
	CategoryPackaged   Category = "packaged"
	CategoryOther      Category = "other"
)

// Location is where a product is stored in the household
type Location string

const (
	LocationFridge  Location = "fridge"
	LocationFreezer Location = "freezer"
	LocationPantry  Location = "pantry"
	LocationCounter Location = "counter"
)

// Product represents a tracked inventory item
type Product struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	UserID         uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;index"`
	Name           string         `json:"name" gorm:"size:255;not null"`
	Category       Category       `json:"category" gorm:"size:50;not null;index"`
	Location       Location       `json:"location" gorm:"size:50;not null;index"`
	Brand          string         `json:"brand" gorm:"size:255"`
	Quantity       float64        `json:"quantity" gorm:"not null;default:1"`
	Unit           string         `json:"unit" gorm:"size:50"`
	ExpirationDate *time.Time     `json:"expiration_date" gorm:"index"`
	PurchaseDate   *time.Time     `json:"purchase_date"`
	Tags           pq.StringArray `json:"tags" gorm:"type:text[]"`
	Notes          string         `json:"notes" gorm:"type:text"`
	CreatedAt      time.Time      `json:"created_at" gorm:"not null;default:current_timestamp"`
	UpdatedAt      time.Time      `json:"updated_at" gorm:"not null;default:current_timestamp;autoUpdateTime"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// BeforeCreate is called before creating a new product record
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	return nil
}

// BeforeUpdate is called before updating a product record
func (p *Product) BeforeUpdate(tx *gorm.DB) error {
	p.UpdatedAt = time.Now()
	return nil
}

// CreateProductInput represents the input for creating a new product
type CreateProductInput struct {
	UserID         uuid.UUID  `json:"user_id"`
	Name           string     `json:"name"`
	Category       Category   `json:"category"`
	Location       Location   `json:"location"`
	Brand          string     `json:"brand"`
	Quantity       float64    `json:"quantity"`
	Unit           string     `json:"unit"`
	ExpirationDate *time.Time `json:"expiration_date"`
	PurchaseDate   *time.Time `json:"purchase_date"`
	Tags           []string   `json:"tags"`
	Notes          string     `json:"notes"`
}

// UpdateProductInput represents the input for updating a product
type UpdateProductInput struct {
	Name           *string    `json:"name,omitempty"`
	Category       *Category  `json:"category,omitempty"`
	Location       *Location  `json:"location,omitempty"`
	Brand          *string    `json:"brand,omitempty"`
	Quantity       *float64   `json:"quantity,omitempty"`
	Unit           *string    `json:"unit,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}

// ValidCategories lists the categories known to the expiration engine
func ValidCategories() []Category {
	return []Category{
		CategoryDairy,
		CategoryMeat,
		CategoryVegetables,
		CategoryFruits,
		CategoryBeverages,
		CategoryPackaged,
		CategoryOther,
	}
}
