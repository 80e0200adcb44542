package events

import (
	"time"

	"github.com/google/uuid"
)

// Usage event actions recorded against inventory products
const (
	ActionAdd     = "add"
	ActionConsume = "consume"
	ActionRemove  = "remove"
	ActionExpire  = "expire"
	ActionView    = "view"
	ActionSearch  = "search"
)

// Inventory event types published over the cache bus
const (
	InventoryEventCacheInvalidate = "cache_invalidate"
	InventoryEventAnalysisDone    = "analysis_done"
)

// InventoryEvent represents an inventory-related event
type InventoryEvent struct {
	EventType string      `json:"event_type"`
	UserID    uuid.UUID   `json:"user_id"`
	EntityID  uuid.UUID   `json:"entity_id"`
	Timestamp time.Time   `json:"timestamp"`
	Details   interface{} `json:"details,omitempty"`
}
