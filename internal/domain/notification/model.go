package notification

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Type represents the type of notification
type Type string

const (
	// Expiration notification types
	ExpirationWarning  Type = "expiration_warning"
	ExpirationCritical Type = "expiration_critical"
	ProductExpired     Type = "product_expired"
	BatchExpiring      Type = "batch_expiring"

	// Analytics notification types
	AnalysisSummary  Type = "analysis_summary"
	SeasonalInsight  Type = "seasonal_insight"
	PurchaseReminder Type = "purchase_reminder"

	// General
	System Type = "system"
)

// Status represents the status of a notification
type Status string

const (
	Unread   Status = "UNREAD"
	Read     Status = "READ"
	Archived Status = "ARCHIVED"
)

// StringMap is a type for storing string-to-string mappings in JSONB fields
type StringMap map[string]string

func (m *StringMap) Scan(value interface{}) error {
	if value == nil {
		*m = make(map[string]string)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to unmarshal JSONB value: %v", value)
	}

	result := make(map[string]string)
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*m = result
	return nil
}

func (m StringMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Notification represents a notification entity
type Notification struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Type      Type       `json:"type" gorm:"not null"`
	Title     string     `json:"title" gorm:"not null"`
	Content   string     `json:"content" gorm:"not null"`
	Status    Status     `json:"status" gorm:"not null;default:'UNREAD'"`
	Data      StringMap  `json:"data" gorm:"type:jsonb"`
	Reference string     `json:"reference" gorm:"index"` // deterministic alert id for dedup
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at" gorm:"not null;default:current_timestamp"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"not null;default:current_timestamp;autoUpdateTime"`
}

// TableName specifies the table name for the Notification model
func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate is called before creating a new notification record
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Status == "" {
		n.Status = Unread
	}
	return nil
}
