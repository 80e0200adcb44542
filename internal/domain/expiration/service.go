package expiration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tomoki33/ordo-backend/internal/domain/product"
	"github.com/tomoki33/ordo-backend/internal/infrastructure/persistence/kv"
	"go.uber.org/zap"
)

// ConsumptionRates exposes the measured per-day consumption rate of a
// product; implemented by the analytics engine.
type ConsumptionRates interface {
	RateFor(productID uuid.UUID) (float64, bool)
}

// Service evaluates expiration rules over the current product snapshot.
// Alert computation itself is a pure function of (products, rules, settings,
// now); the service adds persistence of settings and acknowledgment flags.
type Service struct {
	products product.Repository
	rules    RuleRepository
	rates    ConsumptionRates
	codec    *kv.Codec
	logger   *zap.Logger

	mu       sync.RWMutex
	settings Settings

	// now is swappable for deterministic evaluation in tests
	now func() time.Time
}

func NewService(products product.Repository, rules RuleRepository, rates ConsumptionRates, codec *kv.Codec, logger *zap.Logger) *Service {
	return &Service{
		products: products,
		rules:    rules,
		rates:    rates,
		codec:    codec,
		logger:   logger,
		settings: DefaultSettings(),
		now:      time.Now,
	}
}

// Load hydrates the expiration settings from the key-value store.
func (s *Service) Load(ctx context.Context) error {
	settings := DefaultSettings()
	if err := s.codec.Load(ctx, keyExpirationSettings, &settings); err != nil && !errors.Is(err, kv.ErrNotFound) {
		return err
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	return nil
}

// Settings returns the current expiration settings.
func (s *Service) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings replaces the settings and persists them.
func (s *Service) UpdateSettings(ctx context.Context, settings Settings) error {
	if settings.BatchAlertThreshold <= 0 {
		settings.BatchAlertThreshold = DefaultSettings().BatchAlertThreshold
	}
	if SeverityRank(settings.NotifyMinSeverity) == 0 {
		settings.NotifyMinSeverity = DefaultSettings().NotifyMinSeverity
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	return s.codec.Save(ctx, keyExpirationSettings, settings)
}

// CalculateAlerts computes the prioritized alert list for a user's products.
func (s *Service) CalculateAlerts(ctx context.Context, userID uuid.UUID) ([]Alert, error) {
	products, _, err := s.products.FindAll(ctx, product.ProductFilter{UserID: &userID})
	if err != nil {
		return nil, err
	}

	rules, err := s.rules.FindActiveByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load expiration rules, using defaults only", zap.Error(err))
		rules = nil
	}

	settings := s.Settings()
	rateFor := func(id uuid.UUID) (float64, bool) {
		if s.rates == nil {
			return 0, false
		}
		return s.rates.RateFor(id)
	}

	alerts := calculateAlerts(products, rules, rateFor, settings, s.now())

	acks := s.loadAcknowledgments(ctx)
	for i := range alerts {
		alerts[i].Acknowledged = acks[alerts[i].ID]
	}
	return alerts, nil
}

// BatchAlerts collapses same-category, same-location alert groups at or above
// the batch threshold into single batch alerts.
func (s *Service) BatchAlerts(ctx context.Context, userID uuid.UUID) ([]Alert, error) {
	alerts, err := s.CalculateAlerts(ctx, userID)
	if err != nil {
		return nil, err
	}

	settings := s.Settings()
	batches := findBatchAlerts(alerts, settings.BatchAlertThreshold, s.now())

	acks := s.loadAcknowledgments(ctx)
	for i := range batches {
		batches[i].Acknowledged = acks[batches[i].ID]
	}
	return batches, nil
}

// AcknowledgeAlert records the acknowledgment flag for an alert id. Alert ids
// are deterministic, so the flag survives recomputation.
func (s *Service) AcknowledgeAlert(ctx context.Context, alertID string) error {
	acks := s.loadAcknowledgments(ctx)
	acks[alertID] = true
	return s.codec.Save(ctx, keyAcknowledgments, acks)
}

func (s *Service) loadAcknowledgments(ctx context.Context) map[string]bool {
	acks := make(map[string]bool)
	if err := s.codec.Load(ctx, keyAcknowledgments, &acks); err != nil && !errors.Is(err, kv.ErrNotFound) {
		s.logger.Error("Failed to load alert acknowledgments", zap.Error(err))
	}
	return acks
}

// daysUntilExpiration is the whole number of days until the expiration date,
// rounded up; negative once expired.
func daysUntilExpiration(expiration, now time.Time) int {
	return int(math.Ceil(expiration.Sub(now).Hours() / 24))
}

func alertID(alertType AlertType, productID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", alertType, productID)
}

// alertPriority implements the ranking formula: severity base score minus
// 2 per remaining day, weighted by category, plus a small quantity bonus.
func alertPriority(severity Severity, days int, category product.Category, quantity float64) float64 {
	base := severityBaseScore(severity) - 2*math.Max(0, float64(days))
	bonus := math.Min(10, 2*quantity)
	return base*multiplierFor(category) + bonus
}

// calculateAlerts is the pure evaluation core: deterministic for identical
// (products, rules, settings, now) inputs.
func calculateAlerts(products []product.Product, rules []Rule, rateFor func(uuid.UUID) (float64, bool), settings Settings, now time.Time) []Alert {
	sortedRules := make([]Rule, len(rules))
	copy(sortedRules, rules)
	sort.SliceStable(sortedRules, func(i, j int) bool {
		return sortedRules[i].Priority > sortedRules[j].Priority
	})

	var alerts []Alert
	for i := range products {
		p := &products[i]
		if p.ExpirationDate == nil {
			continue
		}

		days := daysUntilExpiration(*p.ExpirationDate, now)

		// A slow consumer will not finish the product in time; tighten the
		// window by one day so the alert fires earlier.
		if settings.ConsiderConsumptionPattern {
			if rate, ok := rateFor(p.ID); ok && rate > 0 {
				daysToFinish := p.Quantity / rate
				if daysToFinish > float64(days) {
					days--
				}
			}
		}

		matched := false
		for _, rule := range sortedRules {
			if !rule.Active {
				continue
			}
			conditions, err := rule.DecodeConditions()
			if err != nil {
				continue
			}
			allMatch := len(conditions) > 0
			for _, c := range conditions {
				if !c.Matches(p, days) {
					allMatch = false
					break
				}
			}
			if !allMatch {
				continue
			}
			action, err := rule.DecodeAction()
			if err != nil {
				continue
			}
			matched = true

			actions := suggestedActionsFor(days)
			if len(action.SuggestedActions) > 0 {
				actions = actionsFromTypes(action.SuggestedActions)
			}
			alerts = append(alerts, Alert{
				ID:                  alertID(action.AlertType, p.ID),
				ProductID:           p.ID,
				ProductName:         p.Name,
				Category:            p.Category,
				Location:            p.Location,
				AlertType:           action.AlertType,
				Severity:            action.Severity,
				DaysUntilExpiration: days,
				Quantity:            p.Quantity,
				Priority:            alertPriority(action.Severity, days, p.Category, p.Quantity),
				SuggestedActions:    actions,
				CreatedAt:           now,
			})
		}

		if !matched {
			if alert, ok := defaultAlert(p, days, now); ok {
				alerts = append(alerts, alert)
			}
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Priority != alerts[j].Priority {
			return alerts[i].Priority > alerts[j].Priority
		}
		return alerts[i].DaysUntilExpiration < alerts[j].DaysUntilExpiration
	})
	return alerts
}

// defaultAlert applies the built-in category thresholds when no custom rule
// matched.
func defaultAlert(p *product.Product, days int, now time.Time) (Alert, bool) {
	threshold := thresholdFor(p.Category)

	var alertType AlertType
	var severity Severity
	switch {
	case days < 0:
		alertType = AlertExpired
		severity = SeverityCritical
	case days <= threshold.Critical:
		alertType = AlertCriticalExpiring
		severity = SeverityHigh
	case days <= threshold.Warning:
		alertType = AlertExpiringSoon
		severity = SeverityMedium
	default:
		return Alert{}, false
	}

	return Alert{
		ID:                  alertID(alertType, p.ID),
		ProductID:           p.ID,
		ProductName:         p.Name,
		Category:            p.Category,
		Location:            p.Location,
		AlertType:           alertType,
		Severity:            severity,
		DaysUntilExpiration: days,
		Quantity:            p.Quantity,
		Priority:            alertPriority(severity, days, p.Category, p.Quantity),
		SuggestedActions:    suggestedActionsFor(days),
		CreatedAt:           now,
	}, true
}

// findBatchAlerts groups per-product alerts by (category, location); any
// group reaching the threshold collapses into one batch alert carrying the
// rounded average days-until-expiration of its members.
func findBatchAlerts(alerts []Alert, threshold int, now time.Time) []Alert {
	type groupKey struct {
		category product.Category
		location product.Location
	}
	groups := make(map[groupKey][]Alert)
	var order []groupKey
	for _, a := range alerts {
		if a.AlertType == AlertBatchExpiring {
			continue
		}
		key := groupKey{category: a.Category, location: a.Location}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], a)
	}

	var batches []Alert
	for _, key := range order {
		members := groups[key]
		if len(members) < threshold {
			continue
		}

		var daysSum float64
		var quantity float64
		severity := SeverityLow
		ids := make([]uuid.UUID, 0, len(members))
		for _, m := range members {
			daysSum += float64(m.DaysUntilExpiration)
			quantity += m.Quantity
			if SeverityRank(m.Severity) > SeverityRank(severity) {
				severity = m.Severity
			}
			ids = append(ids, m.ProductID)
		}
		avgDays := int(math.Round(daysSum / float64(len(members))))

		batches = append(batches, Alert{
			ID:                  fmt.Sprintf("%s:%s:%s", AlertBatchExpiring, key.category, key.location),
			ProductIDs:          ids,
			ProductName:         fmt.Sprintf("%d %s products in %s", len(members), key.category, key.location),
			Category:            key.category,
			Location:            key.location,
			AlertType:           AlertBatchExpiring,
			Severity:            severity,
			DaysUntilExpiration: avgDays,
			Quantity:            quantity,
			Priority:            alertPriority(severity, avgDays, key.category, quantity),
			SuggestedActions:    suggestedActionsFor(avgDays),
			CreatedAt:           now,
		})
	}

	sort.SliceStable(batches, func(i, j int) bool {
		if batches[i].Priority != batches[j].Priority {
			return batches[i].Priority > batches[j].Priority
		}
		return batches[i].DaysUntilExpiration < batches[j].DaysUntilExpiration
	})
	return batches
}
