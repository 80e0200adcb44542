package expiration

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/tomoki33/ordo-backend/internal/domain/product"
)

func TestConditionValidate(t *testing.T) {
	tests := []struct {
		name      string
		condition Condition
		wantErr   bool
	}{
		{
			name:      "Valid category condition",
			condition: Condition{Kind: ConditionCategory, Category: product.CategoryDairy},
			wantErr:   false,
		},
		{
			name:      "Category condition without a category",
			condition: Condition{Kind: ConditionCategory},
			wantErr:   true,
		},
		{
			name:      "Valid location condition",
			condition: Condition{Kind: ConditionLocation, Location: product.LocationFridge},
			wantErr:   false,
		},
		{
			name:      "Location condition without a location",
			condition: Condition{Kind: ConditionLocation},
			wantErr:   true,
		},
		{
			name:      "Brand condition without a brand",
			condition: Condition{Kind: ConditionBrand},
			wantErr:   true,
		},
		{
			name:      "Max quantity must be positive",
			condition: Condition{Kind: ConditionMaxQuantity, MaxQuantity: 0},
			wantErr:   true,
		},
		{
			name:      "Max days of zero is a valid ceiling",
			condition: Condition{Kind: ConditionMaxDays, MaxDays: 0},
			wantErr:   false,
		},
		{
			name:      "Unknown kind",
			condition: Condition{Kind: "min_quantity"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.condition.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCondition)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConditionMatches(t *testing.T) {
	p := &product.Product{
		ID:       uuid.New(),
		Name:     "Cheddar",
		Category: product.CategoryDairy,
		Location: product.LocationFridge,
		Brand:    "Hillside",
		Quantity: 2,
	}

	tests := []struct {
		name      string
		condition Condition
		days      int
		expected  bool
	}{
		{
			name:      "Matching category",
			condition: Condition{Kind: ConditionCategory, Category: product.CategoryDairy},
			days:      5,
			expected:  true,
		},
		{
			name:      "Non-matching category",
			condition: Condition{Kind: ConditionCategory, Category: product.CategoryMeat},
			days:      5,
			expected:  false,
		},
		{
			name:      "Matching location",
			condition: Condition{Kind: ConditionLocation, Location: product.LocationFridge},
			days:      5,
			expected:  true,
		},
		{
			name:      "Matching brand",
			condition: Condition{Kind: ConditionBrand, Brand: "Hillside"},
			days:      5,
			expected:  true,
		},
		{
			name:      "Quantity at the ceiling",
			condition: Condition{Kind: ConditionMaxQuantity, MaxQuantity: 2},
			days:      5,
			expected:  true,
		},
		{
			name:      "Quantity above the ceiling",
			condition: Condition{Kind: ConditionMaxQuantity, MaxQuantity: 1},
			days:      5,
			expected:  false,
		},
		{
			name:      "Days at the ceiling",
			condition: Condition{Kind: ConditionMaxDays, MaxDays: 5},
			days:      5,
			expected:  true,
		},
		{
			name:      "Days above the ceiling",
			condition: Condition{Kind: ConditionMaxDays, MaxDays: 4},
			days:      5,
			expected:  false,
		},
		{
			name:      "Expired product matches a zero ceiling",
			condition: Condition{Kind: ConditionMaxDays, MaxDays: 0},
			days:      -1,
			expected:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.condition.Matches(p, tt.days))
		})
	}
}

func TestEncodeRuleRoundTrip(t *testing.T) {
	userID := uuid.New()
	conditions := []Condition{
		{Kind: ConditionCategory, Category: product.CategoryDairy},
		{Kind: ConditionMaxDays, MaxDays: 3},
	}
	action := RuleAction{
		AlertType:        AlertWasteWarning,
		Severity:         SeverityHigh,
		SuggestedActions: []ActionType{ActionFreeze, ActionCook},
	}

	rule, err := EncodeRule(userID, "dairy watch", 10, true, conditions, action)
	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, rule.ID)
	assert.Equal(t, userID, rule.UserID)
	assert.Equal(t, "dairy watch", rule.Name)
	assert.Equal(t, 10, rule.Priority)
	assert.True(t, rule.Active)

	decoded, err := rule.DecodeConditions()
	assert.NoError(t, err)
	assert.Equal(t, conditions, decoded)

	decodedAction, err := rule.DecodeAction()
	assert.NoError(t, err)
	assert.Equal(t, action, *decodedAction)
}

func TestEncodeRuleRejectsInvalidConditions(t *testing.T) {
	_, err := EncodeRule(uuid.New(), "broken", 0, true,
		[]Condition{{Kind: "unknown"}},
		RuleAction{AlertType: AlertExpiringSoon, Severity: SeverityLow},
	)
	assert.ErrorIs(t, err, ErrInvalidCondition)
}

func TestDecodeConditionsRejectsStoredGarbage(t *testing.T) {
	rule := Rule{
		ID:         uuid.New(),
		Conditions: []byte(`not json`),
		CreatedAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	_, err := rule.DecodeConditions()
	assert.ErrorIs(t, err, ErrInvalidCondition)

	rule.Conditions = []byte(`[{"kind":"category"}]`)
	_, err = rule.DecodeConditions()
	assert.ErrorIs(t, err, ErrInvalidCondition)
}

func TestDecodeActionDefaults(t *testing.T) {
	rule := Rule{Action: []byte(`{}`)}
	action, err := rule.DecodeAction()
	assert.NoError(t, err)
	assert.Equal(t, AlertConsumePriority, action.AlertType)
	assert.Equal(t, SeverityMedium, action.Severity)
	assert.Empty(t, action.SuggestedActions)
}
