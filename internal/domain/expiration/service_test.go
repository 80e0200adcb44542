package expiration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/tomoki33/ordo-backend/internal/domain/product"
	"github.com/tomoki33/ordo-backend/internal/infrastructure/persistence/kv"
	"go.uber.org/zap"
)

type stubProductRepo struct {
	products []product.Product
}

func (r *stubProductRepo) Create(ctx context.Context, p *product.Product) error { return nil }

func (r *stubProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	for i := range r.products {
		if r.products[i].ID == id {
			return &r.products[i], nil
		}
	}
	return nil, product.ErrProductNotFound
}

func (r *stubProductRepo) FindAll(ctx context.Context, filter product.ProductFilter) ([]product.Product, int64, error) {
	var result []product.Product
	for _, p := range r.products {
		if filter.UserID != nil && p.UserID != *filter.UserID {
			continue
		}
		result = append(result, p)
	}
	return result, int64(len(result)), nil
}

func (r *stubProductRepo) Update(ctx context.Context, p *product.Product) error { return nil }
func (r *stubProductRepo) Delete(ctx context.Context, id uuid.UUID) error       { return nil }

func (r *stubProductRepo) FindExpiringBefore(ctx context.Context, userID uuid.UUID, cutoff time.Time) ([]product.Product, error) {
	return nil, nil
}

func (r *stubProductRepo) DistinctUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, p := range r.products {
		if _, ok := seen[p.UserID]; !ok {
			seen[p.UserID] = struct{}{}
			ids = append(ids, p.UserID)
		}
	}
	return ids, nil
}

type stubRuleRepo struct {
	rules []Rule
}

func (r *stubRuleRepo) Create(ctx context.Context, rule *Rule) error { return nil }

func (r *stubRuleRepo) FindByID(ctx context.Context, id uuid.UUID) (*Rule, error) {
	for i := range r.rules {
		if r.rules[i].ID == id {
			return &r.rules[i], nil
		}
	}
	return nil, ErrRuleNotFound
}

func (r *stubRuleRepo) FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]Rule, error) {
	var result []Rule
	for _, rule := range r.rules {
		if rule.UserID == userID && rule.Active {
			result = append(result, rule)
		}
	}
	return result, nil
}

func (r *stubRuleRepo) FindAllByUser(ctx context.Context, userID uuid.UUID) ([]Rule, error) {
	var result []Rule
	for _, rule := range r.rules {
		if rule.UserID == userID {
			result = append(result, rule)
		}
	}
	return result, nil
}

func (r *stubRuleRepo) Update(ctx context.Context, rule *Rule) error { return nil }
func (r *stubRuleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

type stubRates struct {
	rates map[uuid.UUID]float64
}

func (s *stubRates) RateFor(productID uuid.UUID) (float64, bool) {
	rate, ok := s.rates[productID]
	return rate, ok
}

var frozenNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, products []product.Product, rules []Rule, rates map[uuid.UUID]float64) *Service {
	t.Helper()
	codec := kv.NewCodec(kv.NewMemoryStore(), 1)
	s := NewService(
		&stubProductRepo{products: products},
		&stubRuleRepo{rules: rules},
		&stubRates{rates: rates},
		codec,
		zap.NewNop(),
	)
	s.now = func() time.Time { return frozenNow }
	assert.NoError(t, s.Load(context.Background()))
	return s
}

func expiringIn(days int) *time.Time {
	ts := frozenNow.Add(time.Duration(days) * 24 * time.Hour)
	return &ts
}

func TestCalculateAlertsDefaultThresholds(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	milk := product.Product{
		ID: uuid.New(), UserID: userID, Name: "Milk",
		Category: product.CategoryDairy, Location: product.LocationFridge,
		Quantity: 1, ExpirationDate: expiringIn(1),
	}
	yogurt := product.Product{
		ID: uuid.New(), UserID: userID, Name: "Yogurt",
		Category: product.CategoryDairy, Location: product.LocationFridge,
		Quantity: 1, ExpirationDate: expiringIn(-1),
	}
	crackers := product.Product{
		ID: uuid.New(), UserID: userID, Name: "Crackers",
		Category: product.CategoryPackaged, Location: product.LocationPantry,
		Quantity: 1, ExpirationDate: expiringIn(20),
	}
	noDate := product.Product{
		ID: uuid.New(), UserID: userID, Name: "Salt",
		Category: product.CategoryOther, Location: product.LocationPantry,
		Quantity: 1,
	}

	s := newTestService(t, []product.Product{milk, yogurt, crackers, noDate}, nil, nil)

	alerts, err := s.CalculateAlerts(ctx, userID)
	assert.NoError(t, err)
	assert.Len(t, alerts, 2)

	// Expired yogurt outranks the still-edible milk
	expired := alerts[0]
	assert.Equal(t, yogurt.ID, expired.ProductID)
	assert.Equal(t, AlertExpired, expired.AlertType)
	assert.Equal(t, SeverityCritical, expired.Severity)
	assert.Equal(t, -1, expired.DaysUntilExpiration)
	assert.InDelta(t, 100*1.2+2, expired.Priority, 1e-9)
	if assert.Len(t, expired.SuggestedActions, 2) {
		assert.Equal(t, ActionDispose, expired.SuggestedActions[0].Type)
		assert.Equal(t, ActionMarkUsed, expired.SuggestedActions[1].Type)
	}

	critical := alerts[1]
	assert.Equal(t, milk.ID, critical.ProductID)
	assert.Equal(t, "critical_expiring:"+milk.ID.String(), critical.ID)
	assert.Equal(t, AlertCriticalExpiring, critical.AlertType)
	assert.Equal(t, SeverityHigh, critical.Severity)
	assert.Equal(t, 1, critical.DaysUntilExpiration)
	assert.InDelta(t, (75-2)*1.2+2, critical.Priority, 1e-9)
	if assert.Len(t, critical.SuggestedActions, 3) {
		assert.Equal(t, ActionConsumeNow, critical.SuggestedActions[0].Type)
	}
}

func TestCalculateAlertsWarningWindow(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	juice := product.Product{
		ID: uuid.New(), UserID: userID, Name: "Orange Juice",
		Category: product.CategoryBeverages, Location: product.LocationFridge,
		Quantity: 1, ExpirationDate: expiringIn(5),
	}

	s := newTestService(t, []product.Product{juice}, nil, nil)

	alerts, err := s.CalculateAlerts(ctx, userID)
	assert.NoError(t, err)
	if assert.Len(t, alerts, 1) {
		assert.Equal(t, AlertExpiringSoon, alerts[0].AlertType)
		assert.Equal(t, SeverityMedium, alerts[0].Severity)
		// 5 days out falls in the update-quantity bucket
		if assert.Len(t, alerts[0].SuggestedActions, 1) {
			assert.Equal(t, ActionUpdateQuantity, alerts[0].SuggestedActions[0].Type)
		}
	}
}

func TestCalculateAlertsConsumptionTightening(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	carrotsID := uuid.New()

	carrots := product.Product{
		ID: carrotsID, UserID: userID, Name: "Carrots",
		Category: product.CategoryVegetables, Location: product.LocationFridge,
		Quantity: 10, ExpirationDate: expiringIn(3),
	}

	// One unit a day will not finish 10 units in 3 days
	s := newTestService(t, []product.Product{carrots}, nil, map[uuid.UUID]float64{carrotsID: 1})

	alerts, err := s.CalculateAlerts(ctx, userID)
	assert.NoError(t, err)
	if assert.Len(t, alerts, 1) {
		assert.Equal(t, 2, alerts[0].DaysUntilExpiration)
		assert.Equal(t, AlertCriticalExpiring, alerts[0].AlertType)
	}

	// With the pattern disabled the window stays at 3 days
	settings := s.Settings()
	settings.ConsiderConsumptionPattern = false
	assert.NoError(t, s.UpdateSettings(ctx, settings))

	alerts, err = s.CalculateAlerts(ctx, userID)
	assert.NoError(t, err)
	if assert.Len(t, alerts, 1) {
		assert.Equal(t, 3, alerts[0].DaysUntilExpiration)
		assert.Equal(t, AlertExpiringSoon, alerts[0].AlertType)
	}
}

func TestCalculateAlertsCustomRules(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	cheese := product.Product{
		ID: uuid.New(), UserID: userID, Name: "Brie",
		Category: product.CategoryDairy, Location: product.LocationFridge,
		Quantity: 1, ExpirationDate: expiringIn(5),
	}

	watchRule, err := EncodeRule(userID, "dairy watch", 10, true,
		[]Condition{
			{Kind: ConditionCategory, Category: product.CategoryDairy},
			{Kind: ConditionMaxDays, MaxDays: 6},
		},
		RuleAction{AlertType: AlertWasteWarning, Severity: SeverityHigh, SuggestedActions: []ActionType{ActionFreeze}},
	)
	assert.NoError(t, err)

	fridgeRule, err := EncodeRule(userID, "fridge sweep", 5, true,
		[]Condition{{Kind: ConditionLocation, Location: product.LocationFridge}},
		RuleAction{AlertType: AlertConsumePriority, Severity: SeverityLow},
	)
	assert.NoError(t, err)

	dormantRule, err := EncodeRule(userID, "disabled", 99, false,
		[]Condition{{Kind: ConditionCategory, Category: product.CategoryDairy}},
		RuleAction{AlertType: AlertExpired, Severity: SeverityCritical},
	)
	assert.NoError(t, err)

	s := newTestService(t, []product.Product{cheese}, []Rule{*watchRule, *fridgeRule, *dormantRule}, nil)

	// Both active rules match and each yields its own alert; the inactive
	// rule and the category defaults contribute nothing
	alerts, err := s.CalculateAlerts(ctx, userID)
	assert.NoError(t, err)
	assert.Len(t, alerts, 2)

	byType := make(map[AlertType]Alert, len(alerts))
	for _, a := range alerts {
		byType[a.AlertType] = a
	}

	waste, ok := byType[AlertWasteWarning]
	assert.True(t, ok)
	assert.Equal(t, SeverityHigh, waste.Severity)
	if assert.Len(t, waste.SuggestedActions, 1) {
		assert.Equal(t, ActionFreeze, waste.SuggestedActions[0].Type)
	}

	consume, ok := byType[AlertConsumePriority]
	assert.True(t, ok)
	assert.Equal(t, SeverityLow, consume.Severity)
	// No explicit actions on the rule, so the urgency bucket applies
	if assert.Len(t, consume.SuggestedActions, 1) {
		assert.Equal(t, ActionUpdateQuantity, consume.SuggestedActions[0].Type)
	}
}

func TestBatchAlerts(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	var products []product.Product
	names := []string{"Carrots", "Spinach", "Peppers"}
	for i, name := range names {
		products = append(products, product.Product{
			ID: uuid.New(), UserID: userID, Name: name,
			Category: product.CategoryVegetables, Location: product.LocationFridge,
			Quantity: 1, ExpirationDate: expiringIn(i + 1),
		})
	}
	// A lone dairy product never reaches the batch threshold
	products = append(products, product.Product{
		ID: uuid.New(), UserID: userID, Name: "Milk",
		Category: product.CategoryDairy, Location: product.LocationFridge,
		Quantity: 1, ExpirationDate: expiringIn(1),
	})

	s := newTestService(t, products, nil, nil)

	batches, err := s.BatchAlerts(ctx, userID)
	assert.NoError(t, err)
	if assert.Len(t, batches, 1) {
		batch := batches[0]
		assert.Equal(t, "batch_expiring:vegetables:fridge", batch.ID)
		assert.Equal(t, AlertBatchExpiring, batch.AlertType)
		assert.Equal(t, product.CategoryVegetables, batch.Category)
		assert.Equal(t, product.LocationFridge, batch.Location)
		assert.Len(t, batch.ProductIDs, 3)
		assert.Equal(t, 2, batch.DaysUntilExpiration)
		assert.InDelta(t, 3.0, batch.Quantity, 1e-9)
		// The 1-day member is high severity; the batch inherits the maximum
		assert.Equal(t, SeverityHigh, batch.Severity)
	}
}

func TestAcknowledgeAlertSurvivesRecomputation(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	milk := product.Product{
		ID: uuid.New(), UserID: userID, Name: "Milk",
		Category: product.CategoryDairy, Location: product.LocationFridge,
		Quantity: 1, ExpirationDate: expiringIn(1),
	}
	eggs := product.Product{
		ID: uuid.New(), UserID: userID, Name: "Eggs",
		Category: product.CategoryDairy, Location: product.LocationFridge,
		Quantity: 12, ExpirationDate: expiringIn(1),
	}

	s := newTestService(t, []product.Product{milk, eggs}, nil, nil)

	alerts, err := s.CalculateAlerts(ctx, userID)
	assert.NoError(t, err)
	assert.Len(t, alerts, 2)
	for _, a := range alerts {
		assert.False(t, a.Acknowledged)
	}

	assert.NoError(t, s.AcknowledgeAlert(ctx, alerts[0].ID))

	recomputed, err := s.CalculateAlerts(ctx, userID)
	assert.NoError(t, err)
	assert.Len(t, recomputed, 2)
	assert.Equal(t, alerts[0].ID, recomputed[0].ID)
	assert.True(t, recomputed[0].Acknowledged)
	assert.False(t, recomputed[1].Acknowledged)
}

func TestAlertsSortedByPriorityThenDays(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	var products []product.Product
	for i := 0; i < 4; i++ {
		products = append(products, product.Product{
			ID: uuid.New(), UserID: userID, Name: "Item",
			Category: product.CategoryOther, Location: product.LocationPantry,
			Quantity: 1, ExpirationDate: expiringIn(i - 1),
		})
	}

	s := newTestService(t, products, nil, nil)

	alerts, err := s.CalculateAlerts(ctx, userID)
	assert.NoError(t, err)
	for i := 1; i < len(alerts); i++ {
		prev, curr := alerts[i-1], alerts[i]
		if prev.Priority == curr.Priority {
			assert.LessOrEqual(t, prev.DaysUntilExpiration, curr.DaysUntilExpiration)
		} else {
			assert.Greater(t, prev.Priority, curr.Priority)
		}
	}
}

func TestCalculateAlertsIsDeterministic(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	products := []product.Product{
		{
			ID: uuid.New(), UserID: userID, Name: "Milk",
			Category: product.CategoryDairy, Location: product.LocationFridge,
			Quantity: 1, ExpirationDate: expiringIn(1),
		},
		{
			ID: uuid.New(), UserID: userID, Name: "Yogurt",
			Category: product.CategoryDairy, Location: product.LocationFridge,
			Quantity: 2, ExpirationDate: expiringIn(-1),
		},
		{
			ID: uuid.New(), UserID: userID, Name: "Bread",
			Category: product.CategoryPackaged, Location: product.LocationPantry,
			Quantity: 1, ExpirationDate: expiringIn(5),
		},
	}

	s := newTestService(t, products, nil, nil)

	// With a fixed clock and unchanged inputs, recomputation yields the
	// exact same alerts, IDs included
	first, err := s.CalculateAlerts(ctx, userID)
	assert.NoError(t, err)
	second, err := s.CalculateAlerts(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestUpdateSettingsNormalization(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, nil, nil, nil)

	assert.NoError(t, s.UpdateSettings(ctx, Settings{
		ConsiderConsumptionPattern: false,
		BatchAlertThreshold:        0,
		NotifyMinSeverity:          "urgent",
	}))

	got := s.Settings()
	assert.False(t, got.ConsiderConsumptionPattern)
	assert.Equal(t, DefaultSettings().BatchAlertThreshold, got.BatchAlertThreshold)
	assert.Equal(t, DefaultSettings().NotifyMinSeverity, got.NotifyMinSeverity)
}

func TestDaysUntilExpiration(t *testing.T) {
	tests := []struct {
		name     string
		offset   time.Duration
		expected int
	}{
		{name: "A full day out", offset: 24 * time.Hour, expected: 1},
		{name: "A few hours round up", offset: 6 * time.Hour, expected: 1},
		{name: "Exactly now", offset: 0, expected: 0},
		{name: "Expired yesterday", offset: -24 * time.Hour, expected: -1},
		{name: "Expired a few hours ago", offset: -6 * time.Hour, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, daysUntilExpiration(frozenNow.Add(tt.offset), frozenNow))
		})
	}
}
