package dto

import (
	"time"

	"github.com/google/uuid"
)

// CreateProductRequest represents the request to create a new product
type CreateProductRequest struct {
	Name           string     `json:"name" validate:"required,not_empty" binding:"required"`
	Category       string     `json:"category" validate:"omitempty,oneof=dairy meat vegetables fruits beverages packaged other"`
	Location       string     `json:"location" validate:"omitempty,oneof=fridge freezer pantry counter"`
	Brand          string     `json:"brand"`
	Quantity       float64    `json:"quantity" validate:"omitempty,gt=0"`
	Unit           string     `json:"unit"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	PurchaseDate   *time.Time `json:"purchase_date,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	Notes          string     `json:"notes"`
}

// UpdateProductRequest represents the request to update an existing product
type UpdateProductRequest struct {
	Name           *string    `json:"name,omitempty"`
	Category       *string    `json:"category,omitempty" validate:"omitempty,oneof=dairy meat vegetables fruits beverages packaged other"`
	Location       *string    `json:"location,omitempty" validate:"omitempty,oneof=fridge freezer pantry counter"`
	Brand          *string    `json:"brand,omitempty"`
	Quantity       *float64   `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	Unit           *string    `json:"unit,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}

// ConsumeProductRequest represents the request to consume some quantity
type ConsumeProductRequest struct {
	Quantity float64 `json:"quantity" validate:"required,gt=0" binding:"required"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	Name           string     `json:"name"`
	Category       string     `json:"category"`
	Location       string     `json:"location"`
	Brand          string     `json:"brand,omitempty"`
	Quantity       float64    `json:"quantity"`
	Unit           string     `json:"unit,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	PurchaseDate   *time.Time `json:"purchase_date,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ProductListResponse represents the response for listing products
type ProductListResponse struct {
	Products   []ProductResponse `json:"products"`
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
}
