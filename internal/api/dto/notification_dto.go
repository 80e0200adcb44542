package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/tomoki33/ordo-backend/internal/domain/notification"
)

// NotificationResponse represents a notification in API responses
type NotificationResponse struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"user_id"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	Status    string            `json:"status"`
	Data      map[string]string `json:"data,omitempty"`
	Reference string            `json:"reference,omitempty"`
	ReadAt    *time.Time        `json:"read_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NotificationListResponse represents the response for listing notifications
type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	UnreadCount   int64                  `json:"unread_count"`
}

// ToDTO converts a notification entity into its API representation
func ToDTO(n *notification.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      string(n.Type),
		Title:     n.Title,
		Content:   n.Content,
		Status:    string(n.Status),
		Data:      n.Data,
		Reference: n.Reference,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
