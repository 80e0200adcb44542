package expiration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tomoki33/ordo-backend/internal/domain/product"
	"github.com/tomoki33/ordo-backend/internal/infrastructure/persistence/postgres/connection"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrRuleNotFound     = errors.New("expiration rule not found")
	ErrInvalidCondition = errors.New("invalid rule condition")
)

// ConditionKind enumerates the closed set of rule condition kinds
type ConditionKind string

const (
	ConditionCategory    ConditionKind = "category"
	ConditionLocation    ConditionKind = "location"
	ConditionBrand       ConditionKind = "brand"
	ConditionMaxQuantity ConditionKind = "max_quantity"
	ConditionMaxDays     ConditionKind = "max_days_until_expiration"
)

// Condition is one predicate of a rule, a tagged union over ConditionKind.
// Only the field matching the kind is meaningful.
type Condition struct {
	Kind        ConditionKind    `json:"kind"`
	Category    product.Category `json:"category,omitempty"`
	Location    product.Location `json:"location,omitempty"`
	Brand       string           `json:"brand,omitempty"`
	MaxQuantity float64          `json:"max_quantity,omitempty"`
	MaxDays     int              `json:"max_days,omitempty"`
}

// Validate rejects conditions outside the closed kind set or with a missing
// operand.
func (c Condition) Validate() error {
	switch c.Kind {
	case ConditionCategory:
		if c.Category == "" {
			return fmt.Errorf("%w: category condition requires a category", ErrInvalidCondition)
		}
	case ConditionLocation:
		if c.Location == "" {
			return fmt.Errorf("%w: location condition requires a location", ErrInvalidCondition)
		}
	case ConditionBrand:
		if c.Brand == "" {
			return fmt.Errorf("%w: brand condition requires a brand", ErrInvalidCondition)
		}
	case ConditionMaxQuantity:
		if c.MaxQuantity <= 0 {
			return fmt.Errorf("%w: max_quantity condition requires a positive quantity", ErrInvalidCondition)
		}
	case ConditionMaxDays:
		// zero is a valid ceiling (alert only on the expiration day itself)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidCondition, c.Kind)
	}
	return nil
}

// Matches evaluates the condition against a product and its computed
// days-until-expiration.
func (c Condition) Matches(p *product.Product, daysUntilExpiration int) bool {
	switch c.Kind {
	case ConditionCategory:
		return p.Category == c.Category
	case ConditionLocation:
		return p.Location == c.Location
	case ConditionBrand:
		return p.Brand == c.Brand
	case ConditionMaxQuantity:
		return p.Quantity <= c.MaxQuantity
	case ConditionMaxDays:
		return daysUntilExpiration <= c.MaxDays
	}
	return false
}

// RuleAction describes the alert a matching rule produces. An empty action
// list falls back to the urgency-bucket defaults.
type RuleAction struct {
	AlertType        AlertType    `json:"alert_type"`
	Severity         Severity     `json:"severity"`
	SuggestedActions []ActionType `json:"suggested_actions,omitempty"`
}

// Rule is a user-defined condition/action pair. All conditions must match
// (conjunction). Rules are evaluated in descending priority order; every
// matching active rule yields an alert.
type Rule struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	UserID     uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;index"`
	Name       string         `json:"name" gorm:"size:255;not null"`
	Priority   int            `json:"priority" gorm:"not null;default:0"`
	Active     bool           `json:"active" gorm:"not null;default:true"`
	Conditions datatypes.JSON `json:"conditions" gorm:"type:jsonb;not null"`
	Action     datatypes.JSON `json:"action" gorm:"type:jsonb;not null"`
	CreatedAt  time.Time      `json:"created_at" gorm:"not null;default:current_timestamp"`
	UpdatedAt  time.Time      `json:"updated_at" gorm:"not null;default:current_timestamp;autoUpdateTime"`
}

// TableName specifies the table name for the Rule model
func (Rule) TableName() string {
	return "expiration_rules"
}

// BeforeCreate is called before creating a new rule record
func (r *Rule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// DecodeConditions unmarshals and validates the stored condition list.
func (r *Rule) DecodeConditions() ([]Condition, error) {
	var conditions []Condition
	if err := json.Unmarshal(r.Conditions, &conditions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCondition, err)
	}
	for _, c := range conditions {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	return conditions, nil
}

// DecodeAction unmarshals the stored action.
func (r *Rule) DecodeAction() (*RuleAction, error) {
	var action RuleAction
	if err := json.Unmarshal(r.Action, &action); err != nil {
		return nil, fmt.Errorf("invalid rule action: %w", err)
	}
	if action.AlertType == "" {
		action.AlertType = AlertConsumePriority
	}
	if action.Severity == "" {
		action.Severity = SeverityMedium
	}
	return &action, nil
}

// EncodeRule builds a Rule row from decoded parts.
func EncodeRule(userID uuid.UUID, name string, priority int, active bool, conditions []Condition, action RuleAction) (*Rule, error) {
	for _, c := range conditions {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	condJSON, err := json.Marshal(conditions)
	if err != nil {
		return nil, err
	}
	actionJSON, err := json.Marshal(action)
	if err != nil {
		return nil, err
	}
	return &Rule{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       name,
		Priority:   priority,
		Active:     active,
		Conditions: condJSON,
		Action:     actionJSON,
	}, nil
}

// RuleRepository defines the persistence operations for expiration rules
type RuleRepository interface {
	Create(ctx context.Context, rule *Rule) error
	FindByID(ctx context.Context, id uuid.UUID) (*Rule, error)
	FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]Rule, error)
	FindAllByUser(ctx context.Context, userID uuid.UUID) ([]Rule, error)
	Update(ctx context.Context, rule *Rule) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ruleRepository struct {
	db *connection.Database
}

func NewRuleRepository(db *connection.Database) RuleRepository {
	return &ruleRepository{db: db}
}

func (r *ruleRepository) Create(ctx context.Context, rule *Rule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *ruleRepository) FindByID(ctx context.Context, id uuid.UUID) (*Rule, error) {
	var rule Rule
	result := r.db.WithContext(ctx).First(&rule, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, result.Error
	}
	return &rule, nil
}

func (r *ruleRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]Rule, error) {
	var rules []Rule
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("priority DESC").
		Find(&rules).Error
	return rules, err
}

func (r *ruleRepository) FindAllByUser(ctx context.Context, userID uuid.UUID) ([]Rule, error) {
	var rules []Rule
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("priority DESC").
		Find(&rules).Error
	return rules, err
}

func (r *ruleRepository) Update(ctx context.Context, rule *Rule) error {
	result := r.db.WithContext(ctx).Save(rule)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (r *ruleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&Rule{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}
