package dto

import (
	"time"

	"github.com/google/uuid"
)

// SuggestedActionResponse represents a suggested action attached to an alert
type SuggestedActionResponse struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
	Icon        string `json:"icon"`
}

// AlertResponse represents an expiration alert in API responses
type AlertResponse struct {
	ID                  string                    `json:"id"`
	ProductID           uuid.UUID                 `json:"product_id,omitempty"`
	ProductIDs          []uuid.UUID               `json:"product_ids,omitempty"`
	ProductName         string                    `json:"product_name"`
	Category            string                    `json:"category"`
	Location            string                    `json:"location"`
	AlertType           string                    `json:"alert_type"`
	Severity            string                    `json:"severity"`
	DaysUntilExpiration int                       `json:"days_until_expiration"`
	Quantity            float64                   `json:"quantity"`
	Priority            float64                   `json:"priority"`
	SuggestedActions    []SuggestedActionResponse `json:"suggested_actions"`
	Acknowledged        bool                      `json:"acknowledged"`
	CreatedAt           time.Time                 `json:"created_at"`
}

// AlertListResponse represents the response for listing alerts
type AlertListResponse struct {
	Alerts []AlertResponse `json:"alerts"`
	Count  int             `json:"count"`
}

// RuleConditionRequest represents one condition of an expiration rule
type RuleConditionRequest struct {
	Kind        string  `json:"kind" validate:"required,oneof=category location brand max_quantity max_days_until_expiration" binding:"required"`
	Category    string  `json:"category,omitempty"`
	Location    string  `json:"location,omitempty"`
	Brand       string  `json:"brand,omitempty"`
	MaxQuantity float64 `json:"max_quantity,omitempty"`
	MaxDays     int     `json:"max_days,omitempty"`
}

// RuleActionRequest represents the alert a matching rule produces
type RuleActionRequest struct {
	AlertType        string   `json:"alert_type"`
	Severity         string   `json:"severity" validate:"omitempty,oneof=low medium high critical"`
	SuggestedActions []string `json:"suggested_actions,omitempty"`
}

// CreateRuleRequest represents the request to create an expiration rule
type CreateRuleRequest struct {
	Name       string                 `json:"name" validate:"required,not_empty" binding:"required"`
	Priority   int                    `json:"priority"`
	Active     *bool                  `json:"active,omitempty"`
	Conditions []RuleConditionRequest `json:"conditions" validate:"required,min=1,dive" binding:"required"`
	Action     RuleActionRequest      `json:"action"`
}

// UpdateRuleRequest represents the request to update an expiration rule
type UpdateRuleRequest struct {
	Name       *string                `json:"name,omitempty"`
	Priority   *int                   `json:"priority,omitempty"`
	Active     *bool                  `json:"active,omitempty"`
	Conditions []RuleConditionRequest `json:"conditions,omitempty" validate:"omitempty,dive"`
	Action     *RuleActionRequest     `json:"action,omitempty"`
}

// RuleResponse represents an expiration rule in API responses
type RuleResponse struct {
	ID         uuid.UUID              `json:"id"`
	UserID     uuid.UUID              `json:"user_id"`
	Name       string                 `json:"name"`
	Priority   int                    `json:"priority"`
	Active     bool                   `json:"active"`
	Conditions []RuleConditionRequest `json:"conditions"`
	Action     RuleActionRequest      `json:"action"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// ExpirationSettingsRequest represents the request to update expiration settings
type ExpirationSettingsRequest struct {
	ConsiderConsumptionPattern bool   `json:"consider_consumption_pattern"`
	BatchAlertThreshold        int    `json:"batch_alert_threshold" validate:"gt=0"`
	NotifyMinSeverity          string `json:"notify_min_severity" validate:"omitempty,oneof=low medium high critical"`
}
