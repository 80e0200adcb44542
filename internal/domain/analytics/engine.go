package analytics

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tomoki33/ordo-backend/internal/infrastructure/persistence/kv"
	"go.uber.org/zap"
)

// ErrAnalysisInProgress is returned when a full analysis pass is requested
// while another one is still running. The running pass is not disturbed; the
// caller is expected to retry later.
var ErrAnalysisInProgress = errors.New("analytics: analysis already in progress")

// Engine owns the usage-event log and the derived consumption and seasonal
// patterns. It is constructed once at process start and shared by reference;
// all internal state is guarded explicitly.
type Engine struct {
	store  *EventStore
	codec  *kv.Codec
	logger *zap.Logger

	mu       sync.RWMutex
	settings Settings
	patterns map[uuid.UUID]*ConsumptionPattern
	seasonal []SeasonalPattern

	analyzing int32
}

func NewEngine(store *EventStore, codec *kv.Codec, logger *zap.Logger) *Engine {
	return &Engine{
		store:    store,
		codec:    codec,
		logger:   logger,
		settings: DefaultSettings(),
		patterns: make(map[uuid.UUID]*ConsumptionPattern),
	}
}

// Load hydrates the event log, patterns and settings from the key-value
// store. Missing or corrupt payloads fall back to empty defaults.
func (e *Engine) Load(ctx context.Context) error {
	if err := e.store.Load(ctx); err != nil {
		return err
	}

	var patterns []ConsumptionPattern
	if err := e.codec.Load(ctx, keyConsumptionPatterns, &patterns); err != nil && !errors.Is(err, kv.ErrNotFound) {
		return err
	}

	var seasonal []SeasonalPattern
	if err := e.codec.Load(ctx, keySeasonalPatterns, &seasonal); err != nil && !errors.Is(err, kv.ErrNotFound) {
		return err
	}

	settings := DefaultSettings()
	if err := e.codec.Load(ctx, keyAnalyticsSettings, &settings); err != nil && !errors.Is(err, kv.ErrNotFound) {
		return err
	}

	e.mu.Lock()
	e.patterns = make(map[uuid.UUID]*ConsumptionPattern, len(patterns))
	for i := range patterns {
		p := patterns[i]
		e.patterns[p.ProductID] = &p
	}
	e.seasonal = seasonal
	e.settings = settings
	e.mu.Unlock()

	e.logger.Info("Analytics engine loaded",
		zap.Int("events", e.store.Count()),
		zap.Int("patterns", len(patterns)),
	)
	return nil
}

// RecordUsageEvent appends a usage event and, when real-time analysis is
// enabled, recomputes the affected product's pattern.
func (e *Engine) RecordUsageEvent(ctx context.Context, input RecordUsageEventInput) (*UsageEvent, error) {
	event, err := e.store.Record(ctx, input)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	realtime := e.settings.EnableRealTimeAnalysis
	e.mu.RUnlock()

	if realtime && input.ProductID != uuid.Nil {
		e.reanalyzeProduct(ctx, input.ProductID)
	}

	return event, nil
}

// RecordProductUsage implements the inventory-side usage recorder.
func (e *Engine) RecordProductUsage(ctx context.Context, userID, productID uuid.UUID, name string, category string, action string, quantity float64, unit string) error {
	_, err := e.RecordUsageEvent(ctx, RecordUsageEventInput{
		UserID:      userID,
		ProductID:   productID,
		ProductName: name,
		Category:    category,
		Action:      action,
		Quantity:    quantity,
		Unit:        unit,
	})
	return err
}

// reanalyzeProduct recomputes a single product's pattern in place. A product
// that has fallen below the data-point floor keeps its previous (now stale)
// pattern; LastCalculated exposes the staleness.
func (e *Engine) reanalyzeProduct(ctx context.Context, productID uuid.UUID) {
	e.mu.RLock()
	minPoints := e.settings.MinDataPoints
	e.mu.RUnlock()

	pattern, ok := CalculateConsumptionPattern(e.store.EventsForProduct(productID), minPoints, time.Now())
	if !ok {
		return
	}

	e.mu.Lock()
	e.patterns[productID] = pattern
	e.mu.Unlock()

	e.persistPatterns(ctx)
}

// AnalyzeConsumptionPatterns runs a full batch pass: every product's pattern
// is recomputed from scratch and the seasonal patterns are rebuilt. Products
// below the data-point floor drop out of the result entirely. A concurrent
// call returns ErrAnalysisInProgress without touching the running pass.
func (e *Engine) AnalyzeConsumptionPatterns(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&e.analyzing, 0, 1) {
		e.logger.Warn("Analysis pass requested while another is running, skipping")
		return ErrAnalysisInProgress
	}
	defer atomic.StoreInt32(&e.analyzing, 0)

	start := time.Now()
	e.logger.Info("Starting full consumption analysis pass")

	e.mu.RLock()
	settings := e.settings
	e.mu.RUnlock()

	allEvents := e.store.Snapshot()
	byProduct := make(map[uuid.UUID][]UsageEvent)
	for _, ev := range allEvents {
		if ev.ProductID == uuid.Nil {
			continue
		}
		byProduct[ev.ProductID] = append(byProduct[ev.ProductID], ev)
	}

	now := time.Now()
	patterns := make(map[uuid.UUID]*ConsumptionPattern, len(byProduct))
	for productID, productEvents := range byProduct {
		pattern, ok := CalculateConsumptionPattern(productEvents, settings.MinDataPoints, now)
		if !ok {
			continue
		}
		patterns[productID] = pattern
	}

	seasonal := AnalyzeSeasonalPatterns(allEvents, settings.SeasonalityDetectionThreshold, now)

	e.mu.Lock()
	e.patterns = patterns
	e.seasonal = seasonal
	e.mu.Unlock()

	e.persistPatterns(ctx)
	e.persistSeasonal(ctx)

	e.logger.Info("Completed full consumption analysis pass",
		zap.Int("events", len(allEvents)),
		zap.Int("products", len(byProduct)),
		zap.Int("patterns", len(patterns)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// AnalysisInProgress reports whether a full pass is currently running.
func (e *Engine) AnalysisInProgress() bool {
	return atomic.LoadInt32(&e.analyzing) == 1
}

// UsageHistory returns events newest-first, optionally filtered by product
// and capped at limit.
func (e *Engine) UsageHistory(productID uuid.UUID, limit int) []UsageEvent {
	return e.store.History(productID, limit)
}

// Patterns returns all computed patterns sorted by product name.
func (e *Engine) Patterns() []ConsumptionPattern {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]ConsumptionPattern, 0, len(e.patterns))
	for _, p := range e.patterns {
		result = append(result, *p)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].ProductName != result[j].ProductName {
			return result[i].ProductName < result[j].ProductName
		}
		return result[i].ProductID.String() < result[j].ProductID.String()
	})
	return result
}

// PatternFor returns the computed pattern for one product.
func (e *Engine) PatternFor(productID uuid.UUID) (*ConsumptionPattern, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p, ok := e.patterns[productID]
	if !ok {
		return nil, false
	}
	copied := *p
	return &copied, true
}

// RateFor exposes a product's measured consumption rate to the expiration
// engine.
func (e *Engine) RateFor(productID uuid.UUID) (float64, bool) {
	p, ok := e.PatternFor(productID)
	if !ok {
		return 0, false
	}
	return p.ConsumptionRate, true
}

// SeasonalPatterns returns the last computed seasonal comparison.
func (e *Engine) SeasonalPatterns() []SeasonalPattern {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]SeasonalPattern, len(e.seasonal))
	copy(result, e.seasonal)
	return result
}

// Settings returns the current analytics settings.
func (e *Engine) Settings() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// UpdateSettings replaces the analytics settings and persists them.
func (e *Engine) UpdateSettings(ctx context.Context, settings Settings) error {
	if settings.DataRetentionDays <= 0 {
		settings.DataRetentionDays = DefaultSettings().DataRetentionDays
	}
	if settings.MinDataPoints <= 0 {
		settings.MinDataPoints = DefaultSettings().MinDataPoints
	}
	if settings.SeasonalityDetectionThreshold <= 0 {
		settings.SeasonalityDetectionThreshold = DefaultSettings().SeasonalityDetectionThreshold
	}

	e.mu.Lock()
	e.settings = settings
	e.mu.Unlock()

	return e.codec.Save(ctx, keyAnalyticsSettings, settings)
}

// CleanupOldData prunes events past the retention horizon.
func (e *Engine) CleanupOldData(ctx context.Context) (int, error) {
	e.mu.RLock()
	retention := e.settings.DataRetentionDays
	e.mu.RUnlock()

	return e.store.CleanupOldData(ctx, retention)
}

func (e *Engine) persistPatterns(ctx context.Context) {
	e.mu.RLock()
	patterns := make([]ConsumptionPattern, 0, len(e.patterns))
	for _, p := range e.patterns {
		patterns = append(patterns, *p)
	}
	e.mu.RUnlock()

	if err := e.codec.Save(ctx, keyConsumptionPatterns, patterns); err != nil {
		e.logger.Error("Failed to persist consumption patterns", zap.Error(err))
	}
}

func (e *Engine) persistSeasonal(ctx context.Context) {
	e.mu.RLock()
	seasonal := make([]SeasonalPattern, len(e.seasonal))
	copy(seasonal, e.seasonal)
	e.mu.RUnlock()

	if err := e.codec.Save(ctx, keySeasonalPatterns, seasonal); err != nil {
		e.logger.Error("Failed to persist seasonal patterns", zap.Error(err))
	}
}
