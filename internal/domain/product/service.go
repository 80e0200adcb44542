package product

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tomoki33/ordo-backend/internal/domain/events"
	"github.com/tomoki33/ordo-backend/internal/infrastructure/cache"
	"go.uber.org/zap"
)

// UsageRecorder receives an analytics event for every inventory mutation.
// Implemented by the analytics engine; declared here to keep the dependency
// pointing outward.
type UsageRecorder interface {
	RecordProductUsage(ctx context.Context, userID, productID uuid.UUID, name string, category string, action string, quantity float64, unit string) error
}

type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int64, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ConsumeProduct(ctx context.Context, id uuid.UUID, userID uuid.UUID, quantity float64) (*Product, error)
	FindExpiringBefore(ctx context.Context, userID uuid.UUID, cutoff time.Time) ([]Product, error)
}

type service struct {
	repo     Repository
	recorder UsageRecorder
	redis    *cache.RedisClient
	logger   *zap.Logger
}

func NewService(repo Repository, recorder UsageRecorder, redis *cache.RedisClient, logger *zap.Logger) Service {
	return &service{
		repo:     repo,
		recorder: recorder,
		redis:    redis,
		logger:   logger,
	}
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*Product, error) {
	if input.Name == "" {
		return nil, ErrInvalidInput
	}
	if input.Category == "" {
		input.Category = CategoryOther
	}
	if input.Quantity <= 0 {
		input.Quantity = 1
	}

	product := &Product{
		ID:             uuid.New(),
		UserID:         input.UserID,
		Name:           input.Name,
		Category:       input.Category,
		Location:       input.Location,
		Brand:          input.Brand,
		Quantity:       input.Quantity,
		Unit:           input.Unit,
		ExpirationDate: input.ExpirationDate,
		PurchaseDate:   input.PurchaseDate,
		Tags:           input.Tags,
		Notes:          input.Notes,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.recordUsage(ctx, product, events.ActionAdd, product.Quantity)
	s.publishInventoryEvent(ctx, product, "product_created")

	return product, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.recordUsage(ctx, product, events.ActionView, 0)
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int64, error) {
	return s.repo.FindAll(ctx, filter)
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := false
	if input.Name != nil && product.Name != *input.Name {
		product.Name = *input.Name
		changed = true
	}
	if input.Category != nil && product.Category != *input.Category {
		product.Category = *input.Category
		changed = true
	}
	if input.Location != nil && product.Location != *input.Location {
		product.Location = *input.Location
		changed = true
	}
	if input.Brand != nil && product.Brand != *input.Brand {
		product.Brand = *input.Brand
		changed = true
	}
	if input.Quantity != nil && product.Quantity != *input.Quantity {
		product.Quantity = *input.Quantity
		changed = true
	}
	if input.Unit != nil && product.Unit != *input.Unit {
		product.Unit = *input.Unit
		changed = true
	}
	if input.ExpirationDate != nil {
		if product.ExpirationDate == nil || !product.ExpirationDate.Equal(*input.ExpirationDate) {
			product.ExpirationDate = input.ExpirationDate
			changed = true
		}
	}
	if input.Notes != nil && product.Notes != *input.Notes {
		product.Notes = *input.Notes
		changed = true
	}

	if !changed {
		return product, nil
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}

	s.publishInventoryEvent(ctx, product, "product_updated")

	return product, nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.recordUsage(ctx, product, events.ActionRemove, product.Quantity)
	s.publishInventoryEvent(ctx, product, "product_deleted")

	return nil
}

// ConsumeProduct decrements the remaining quantity and records a consume event.
// The product is deleted once the quantity reaches zero.
func (s *service) ConsumeProduct(ctx context.Context, id uuid.UUID, userID uuid.UUID, quantity float64) (*Product, error) {
	if quantity <= 0 {
		return nil, ErrInvalidInput
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	consumed := quantity
	if consumed > product.Quantity {
		consumed = product.Quantity
	}
	product.Quantity -= consumed

	if product.Quantity <= 0 {
		if err := s.repo.Delete(ctx, id); err != nil {
			return nil, err
		}
		product.Quantity = 0
	} else {
		if err := s.repo.Update(ctx, product); err != nil {
			return nil, err
		}
	}

	s.recordUsage(ctx, product, events.ActionConsume, consumed)
	s.publishInventoryEvent(ctx, product, "product_consumed")

	return product, nil
}

func (s *service) FindExpiringBefore(ctx context.Context, userID uuid.UUID, cutoff time.Time) ([]Product, error) {
	return s.repo.FindExpiringBefore(ctx, userID, cutoff)
}

func (s *service) recordUsage(ctx context.Context, product *Product, action string, quantity float64) {
	if s.recorder == nil {
		return
	}
	err := s.recorder.RecordProductUsage(ctx, product.UserID, product.ID, product.Name, string(product.Category), action, quantity, product.Unit)
	if err != nil {
		s.logger.Error("Failed to record usage event",
			zap.String("product_id", product.ID.String()),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func (s *service) publishInventoryEvent(ctx context.Context, product *Product, action string) {
	if s.redis == nil {
		return
	}
	event := &events.InventoryEvent{
		EventType: events.InventoryEventCacheInvalidate,
		UserID:    product.UserID,
		EntityID:  product.ID,
		Timestamp: time.Now().UTC(),
		Details: map[string]interface{}{
			"action":   action,
			"name":     product.Name,
			"category": product.Category,
		},
	}
	if err := s.redis.PublishInventoryEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish inventory event", zap.Error(err))
	}
}
