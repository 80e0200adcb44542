package expiration

import (
	"time"

	"github.com/google/uuid"
	"github.com/tomoki33/ordo-backend/internal/domain/product"
)

// AlertType classifies an expiration alert
type AlertType string

const (
	AlertExpiringSoon     AlertType = "expiring_soon"
	AlertExpired          AlertType = "expired"
	AlertCriticalExpiring AlertType = "critical_expiring"
	AlertConsumePriority  AlertType = "consume_priority"
	AlertWasteWarning     AlertType = "waste_warning"
	AlertBatchExpiring    AlertType = "batch_expiring"
)

// Severity ranks how urgent an alert is
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityBaseScore feeds the alert priority formula
func severityBaseScore(s Severity) float64 {
	switch s {
	case SeverityCritical:
		return 100
	case SeverityHigh:
		return 75
	case SeverityMedium:
		return 50
	case SeverityLow:
		return 25
	}
	return 0
}

// SeverityRank orders severities for comparisons; higher is more urgent
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// ActionType identifies a suggested user action
type ActionType string

const (
	ActionDispose        ActionType = "dispose"
	ActionMarkUsed       ActionType = "mark_used"
	ActionConsumeNow     ActionType = "consume_now"
	ActionCook           ActionType = "cook"
	ActionFreeze         ActionType = "freeze"
	ActionShare          ActionType = "share"
	ActionMoveLocation   ActionType = "move_location"
	ActionUpdateQuantity ActionType = "update_quantity"
)

// SuggestedAction is a ranked action attached to an alert
type SuggestedAction struct {
	Type        ActionType `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    int        `json:"priority"`
	Icon        string     `json:"icon"`
}

// actionCatalog is the fixed lookup table from action type to presentation
var actionCatalog = map[ActionType]SuggestedAction{
	ActionDispose:        {Type: ActionDispose, Title: "Dispose", Description: "Throw away the expired product", Priority: 1, Icon: "trash"},
	ActionMarkUsed:       {Type: ActionMarkUsed, Title: "Mark as used", Description: "Remove the product from inventory", Priority: 2, Icon: "check"},
	ActionConsumeNow:     {Type: ActionConsumeNow, Title: "Consume now", Description: "Use the product before it expires", Priority: 1, Icon: "utensils"},
	ActionCook:           {Type: ActionCook, Title: "Cook today", Description: "Prepare a meal with this product", Priority: 2, Icon: "chef-hat"},
	ActionFreeze:         {Type: ActionFreeze, Title: "Freeze", Description: "Move the product to the freezer to extend its life", Priority: 3, Icon: "snowflake"},
	ActionShare:          {Type: ActionShare, Title: "Share", Description: "Offer the product to family or neighbors", Priority: 2, Icon: "gift"},
	ActionMoveLocation:   {Type: ActionMoveLocation, Title: "Move storage", Description: "Store the product somewhere it keeps longer", Priority: 3, Icon: "archive"},
	ActionUpdateQuantity: {Type: ActionUpdateQuantity, Title: "Update quantity", Description: "Adjust the remaining quantity if some was used", Priority: 4, Icon: "edit"},
}

// suggestedActionsFor picks the action set for an urgency bucket
func suggestedActionsFor(daysUntilExpiration int) []SuggestedAction {
	var types []ActionType
	switch {
	case daysUntilExpiration < 0:
		types = []ActionType{ActionDispose, ActionMarkUsed}
	case daysUntilExpiration <= 1:
		types = []ActionType{ActionConsumeNow, ActionCook, ActionFreeze}
	case daysUntilExpiration <= 3:
		types = []ActionType{ActionConsumeNow, ActionShare, ActionMoveLocation}
	default:
		types = []ActionType{ActionUpdateQuantity}
	}
	return actionsFromTypes(types)
}

func actionsFromTypes(types []ActionType) []SuggestedAction {
	actions := make([]SuggestedAction, 0, len(types))
	for _, t := range types {
		if a, ok := actionCatalog[t]; ok {
			actions = append(actions, a)
		}
	}
	return actions
}

// CategoryThreshold holds the default alerting windows for a category, in
// days before expiration.
type CategoryThreshold struct {
	Warning  int `json:"warning"`
	Critical int `json:"critical"`
}

// defaultThresholds per category; CategoryOther is the fallback
var defaultThresholds = map[product.Category]CategoryThreshold{
	product.CategoryDairy:      {Warning: 3, Critical: 1},
	product.CategoryMeat:       {Warning: 2, Critical: 1},
	product.CategoryVegetables: {Warning: 4, Critical: 2},
	product.CategoryFruits:     {Warning: 4, Critical: 2},
	product.CategoryBeverages:  {Warning: 7, Critical: 3},
	product.CategoryPackaged:   {Warning: 14, Critical: 7},
	product.CategoryOther:      {Warning: 5, Critical: 2},
}

func thresholdFor(category product.Category) CategoryThreshold {
	if t, ok := defaultThresholds[category]; ok {
		return t
	}
	return defaultThresholds[product.CategoryOther]
}

// categoryMultipliers weight alert priority by how perishable and wasteful a
// category tends to be.
var categoryMultipliers = map[product.Category]float64{
	product.CategoryDairy:      1.2,
	product.CategoryMeat:       1.3,
	product.CategoryVegetables: 1.1,
	product.CategoryFruits:     1.1,
	product.CategoryBeverages:  0.9,
	product.CategoryPackaged:   0.7,
	product.CategoryOther:      1.0,
}

func multiplierFor(category product.Category) float64 {
	if m, ok := categoryMultipliers[category]; ok {
		return m
	}
	return 1.0
}

// Alert is an ephemeral expiration alert, recomputed on demand and never
// mutated after creation. Acknowledgment lives in a separate flag store keyed
// by the alert's deterministic id.
type Alert struct {
	ID                  string            `json:"id"`
	ProductID           uuid.UUID         `json:"product_id,omitempty"`
	ProductIDs          []uuid.UUID       `json:"product_ids,omitempty"` // batch alerts only
	ProductName         string            `json:"product_name"`
	Category            product.Category  `json:"category"`
	Location            product.Location  `json:"location"`
	AlertType           AlertType         `json:"alert_type"`
	Severity            Severity          `json:"severity"`
	DaysUntilExpiration int               `json:"days_until_expiration"`
	Quantity            float64           `json:"quantity"`
	Priority            float64           `json:"priority"`
	SuggestedActions    []SuggestedAction `json:"suggested_actions"`
	Acknowledged        bool              `json:"acknowledged"`
	CreatedAt           time.Time         `json:"created_at"`
}

// Settings controls the expiration rule engine
type Settings struct {
	ConsiderConsumptionPattern bool     `json:"consider_consumption_pattern"`
	BatchAlertThreshold        int      `json:"batch_alert_threshold"`
	NotifyMinSeverity          Severity `json:"notify_min_severity"`
}

// DefaultSettings returns the engine defaults
func DefaultSettings() Settings {
	return Settings{
		ConsiderConsumptionPattern: true,
		BatchAlertThreshold:        3,
		NotifyMinSeverity:          SeverityMedium,
	}
}

// Persisted payload keys
const (
	keyAcknowledgments    = "alert_acknowledgments"
	keyExpirationSettings = "expiration_settings"
)
