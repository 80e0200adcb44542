package product

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tomoki33/ordo-backend/internal/infrastructure/persistence/postgres/connection"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidInput    = errors.New("invalid input")
)

// ProductFilter defines the filtering options for products
type ProductFilter struct {
	UserID   *uuid.UUID
	Category *Category
	Location *Location
	Name     *string
	Page     int
	PageSize int
}

// Repository defines the interface for product persistence operations
type Repository interface {
	Create(ctx context.Context, product *Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindAll(ctx context.Context, filter ProductFilter) ([]Product, int64, error)
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindExpiringBefore(ctx context.Context, userID uuid.UUID, cutoff time.Time) ([]Product, error)
	DistinctUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

type repository struct {
	db *connection.Database
}

func NewRepository(db *connection.Database) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, product *Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	var product Product
	result := r.db.WithContext(ctx).First(&product, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, result.Error
	}
	return &product, nil
}

func (r *repository) FindAll(ctx context.Context, filter ProductFilter) ([]Product, int64, error) {
	var products []Product
	var total int64
	query := r.db.WithContext(ctx).Model(&Product{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.Location != nil {
		query = query.Where("location = ?", *filter.Location)
	}
	if filter.Name != nil {
		query = query.Where("name ILIKE ?", "%"+*filter.Name+"%")
	}

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	// Set default PageSize if not set
	if filter.PageSize == 0 {
		filter.PageSize = 10000
	}

	err = query.Order("created_at DESC").
		Offset(filter.Page * filter.PageSize).
		Limit(filter.PageSize).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *repository) Update(ctx context.Context, product *Product) error {
	result := r.db.WithContext(ctx).Save(product)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&Product{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *repository) FindExpiringBefore(ctx context.Context, userID uuid.UUID, cutoff time.Time) ([]Product, error) {
	var products []Product
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND expiration_date IS NOT NULL AND expiration_date <= ?", userID, cutoff).
		Order("expiration_date ASC").
		Find(&products).Error
	return products, err
}

// DistinctUserIDs lists every user that currently has inventory; the
// scheduler iterates these for background alert refreshes.
func (r *repository) DistinctUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&Product{}).
		Distinct("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}
