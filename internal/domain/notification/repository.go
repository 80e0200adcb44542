package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tomoki33/ordo-backend/internal/infrastructure/persistence/postgres/connection"
	"gorm.io/gorm"
)

var ErrNotificationNotFound = errors.New("notification not found")

// Repository defines the persistence operations for notifications
type Repository interface {
	Create(ctx context.Context, notification *Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, error)
	FindUnreadByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, error)
	FindByReference(ctx context.Context, userID uuid.UUID, reference string) (*Notification, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *connection.Database
}

func NewRepository(db *connection.Database) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, notification *Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	var n Notification
	result := r.db.WithContext(ctx).First(&n, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, result.Error
	}
	return &n, nil
}

func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var notifications []Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	return notifications, err
}

func (r *repository) FindUnreadByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var notifications []Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, Unread).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	return notifications, err
}

func (r *repository) FindByReference(ctx context.Context, userID uuid.UUID, reference string) (*Notification, error) {
	var n Notification
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND reference = ?", userID, reference).
		Order("created_at DESC").
		First(&n)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, result.Error
	}
	return &n, nil
}

func (r *repository) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": Read, "read_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *repository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND status = ?", userID, Unread).
		Updates(map[string]interface{}{"status": Read, "read_at": now})
	return result.RowsAffected, result.Error
}

func (r *repository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND status = ?", userID, Unread).
		Count(&count).Error
	return count, err
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&Notification{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
