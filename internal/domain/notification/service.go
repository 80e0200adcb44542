package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tomoki33/ordo-backend/internal/domain/expiration"
)

// Service defines the notification service interface
type Service interface {
	Create(ctx context.Context, notification *Notification) error

	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)

	GetByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]Notification, error)

	MarkAsRead(ctx context.Context, id uuid.UUID) error

	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)

	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)

	Delete(ctx context.Context, id uuid.UUID) error

	SubscribeToNotifications(userID uuid.UUID) (<-chan *Notification, func(), error)

	// NotifyAlerts turns expiration alerts into persisted notifications,
	// deduplicated by the alert's deterministic id.
	NotifyAlerts(ctx context.Context, userID uuid.UUID, alerts []expiration.Alert, minSeverity expiration.Severity) (int, error)
}

type serviceImpl struct {
	repo       Repository
	signalRepo SignalRepository
	logger     *logrus.Logger
}

// NewService creates a new notification service
func NewService(repo Repository, signalRepo SignalRepository, logger *logrus.Logger) Service {
	return &serviceImpl{
		repo:       repo,
		signalRepo: signalRepo,
		logger:     logger,
	}
}

func (s *serviceImpl) Create(ctx context.Context, notification *Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}

	// In-app delivery via the signal hub; failures here must not fail the write
	if err := s.signalRepo.Publish(notification.UserID.String(), notification); err != nil {
		s.logger.WithError(err).WithField("notification_id", notification.ID).
			Warn("Failed to publish notification signal")
	}
	return nil
}

func (s *serviceImpl) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *serviceImpl) GetByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]Notification, error) {
	if unreadOnly {
		return s.repo.FindUnreadByUser(ctx, userID, limit, offset)
	}
	return s.repo.FindByUser(ctx, userID, limit, offset)
}

func (s *serviceImpl) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id)
}

func (s *serviceImpl) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *serviceImpl) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *serviceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *serviceImpl) SubscribeToNotifications(userID uuid.UUID) (<-chan *Notification, func(), error) {
	return s.signalRepo.Subscribe(userID.String())
}

// typeForAlert maps an expiration alert to a notification type
func typeForAlert(alert expiration.Alert) Type {
	switch alert.AlertType {
	case expiration.AlertExpired:
		return ProductExpired
	case expiration.AlertCriticalExpiring:
		return ExpirationCritical
	case expiration.AlertBatchExpiring:
		return BatchExpiring
	default:
		return ExpirationWarning
	}
}

func contentForAlert(alert expiration.Alert) string {
	switch {
	case alert.DaysUntilExpiration < 0:
		return fmt.Sprintf("%s expired %d day(s) ago", alert.ProductName, -alert.DaysUntilExpiration)
	case alert.DaysUntilExpiration == 0:
		return fmt.Sprintf("%s expires today", alert.ProductName)
	default:
		return fmt.Sprintf("%s expires in %d day(s)", alert.ProductName, alert.DaysUntilExpiration)
	}
}

func (s *serviceImpl) NotifyAlerts(ctx context.Context, userID uuid.UUID, alerts []expiration.Alert, minSeverity expiration.Severity) (int, error) {
	created := 0
	for _, alert := range alerts {
		if alert.Acknowledged {
			continue
		}
		if expiration.SeverityRank(alert.Severity) < expiration.SeverityRank(minSeverity) {
			continue
		}

		// One notification per alert id; recomputed alerts keep the same id
		_, err := s.repo.FindByReference(ctx, userID, alert.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotificationNotFound) {
			return created, err
		}

		n := &Notification{
			ID:      uuid.New(),
			UserID:  userID,
			Type:    typeForAlert(alert),
			Title:   fmt.Sprintf("Expiration alert: %s", alert.ProductName),
			Content: contentForAlert(alert),
			Data: StringMap{
				"alert_id":   alert.ID,
				"alert_type": string(alert.AlertType),
				"severity":   string(alert.Severity),
				"category":   string(alert.Category),
				"location":   string(alert.Location),
			},
			Reference: alert.ID,
		}
		if err := s.Create(ctx, n); err != nil {
			s.logger.WithError(err).WithField("alert_id", alert.ID).
				Error("Failed to create notification for alert")
			continue
		}
		created++
	}
	return created, nil
}
