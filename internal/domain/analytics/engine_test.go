package analytics

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/tomoki33/ordo-backend/internal/domain/events"
	"github.com/tomoki33/ordo-backend/internal/infrastructure/persistence/kv"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T) (*Engine, *kv.Codec) {
	t.Helper()
	codec := kv.NewCodec(kv.NewMemoryStore(), schemaVersion)
	store := NewEventStore(codec, zap.NewNop())
	return NewEngine(store, codec, zap.NewNop()), codec
}

func seedEvents(t *testing.T, codec *kv.Codec, evts []UsageEvent) {
	t.Helper()
	assert.NoError(t, codec.Save(context.Background(), keyUsageEvents, evts))
}

func TestEngineAnalyzeConsumptionPatterns(t *testing.T) {
	ctx := context.Background()
	engine, codec := newTestEngine(t)

	denseID := uuid.New()
	sparseID := uuid.New()
	now := time.Now()

	var evts []UsageEvent
	for i := 6; i >= 1; i-- {
		evts = append(evts, consumeEvent(denseID, now.AddDate(0, 0, -i), 2))
	}
	for i := 3; i >= 1; i-- {
		evts = append(evts, consumeEvent(sparseID, now.AddDate(0, 0, -i), 1))
	}
	seedEvents(t, codec, evts)

	assert.NoError(t, engine.Load(ctx))
	assert.NoError(t, engine.AnalyzeConsumptionPatterns(ctx))

	// Dense product gets a pattern, the sparse one drops out
	pattern, ok := engine.PatternFor(denseID)
	assert.True(t, ok)
	assert.Equal(t, 6, pattern.EventCount)
	assert.InDelta(t, 12.0, pattern.TotalConsumed, 1e-9)

	_, ok = engine.PatternFor(sparseID)
	assert.False(t, ok)

	patterns := engine.Patterns()
	assert.Len(t, patterns, 1)

	seasonal := engine.SeasonalPatterns()
	assert.Len(t, seasonal, 4)
}

func TestEngineAnalysisConflict(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	assert.NoError(t, engine.Load(ctx))

	// Simulate a pass that is still running
	atomic.StoreInt32(&engine.analyzing, 1)
	assert.True(t, engine.AnalysisInProgress())

	err := engine.AnalyzeConsumptionPatterns(ctx)
	assert.ErrorIs(t, err, ErrAnalysisInProgress)

	atomic.StoreInt32(&engine.analyzing, 0)
	assert.False(t, engine.AnalysisInProgress())
	assert.NoError(t, engine.AnalyzeConsumptionPatterns(ctx))
}

func TestEngineSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	codec := kv.NewCodec(kv.NewMemoryStore(), schemaVersion)
	store := NewEventStore(codec, zap.NewNop())
	engine := NewEngine(store, codec, zap.NewNop())
	assert.NoError(t, engine.Load(ctx))

	assert.Equal(t, DefaultSettings(), engine.Settings())

	updated := Settings{
		DataRetentionDays:             90,
		MinDataPoints:                 3,
		SeasonalityDetectionThreshold: 0.5,
		EnableRealTimeAnalysis:        false,
	}
	assert.NoError(t, engine.UpdateSettings(ctx, updated))
	assert.Equal(t, updated, engine.Settings())

	// A second engine sharing the store picks the settings back up
	other := NewEngine(NewEventStore(codec, zap.NewNop()), codec, zap.NewNop())
	assert.NoError(t, other.Load(ctx))
	assert.Equal(t, updated, other.Settings())
}

func TestEngineUpdateSettingsNormalizesZeroValues(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	assert.NoError(t, engine.UpdateSettings(ctx, Settings{}))

	got := engine.Settings()
	defaults := DefaultSettings()
	assert.Equal(t, defaults.DataRetentionDays, got.DataRetentionDays)
	assert.Equal(t, defaults.MinDataPoints, got.MinDataPoints)
	assert.Equal(t, defaults.SeasonalityDetectionThreshold, got.SeasonalityDetectionThreshold)
	assert.False(t, got.EnableRealTimeAnalysis)
}

func TestEngineRecordUsageEvent(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	assert.NoError(t, engine.Load(ctx))

	userID := uuid.New()
	productID := uuid.New()

	for i := 0; i < 5; i++ {
		event, err := engine.RecordUsageEvent(ctx, RecordUsageEventInput{
			UserID:      userID,
			ProductID:   productID,
			ProductName: "Yogurt",
			Category:    "dairy",
			Action:      events.ActionConsume,
			Quantity:    1,
			Unit:        "piece",
		})
		assert.NoError(t, err)
		assert.NotEmpty(t, event.ID)
		assert.Equal(t, userID, event.UserID)
		assert.False(t, event.Timestamp.IsZero())
		assert.Equal(t, int(event.Timestamp.Weekday()), event.DayOfWeek)
		assert.Equal(t, event.Timestamp.Hour(), event.HourOfDay)
		assert.Equal(t, SeasonForMonth(event.Timestamp.Month()), event.SeasonID)
	}

	// Real-time analysis kicks in once the product crosses the floor
	pattern, ok := engine.PatternFor(productID)
	assert.True(t, ok)
	assert.Equal(t, 5, pattern.EventCount)

	rate, ok := engine.RateFor(productID)
	assert.True(t, ok)
	assert.Greater(t, rate, 0.0)
}

func TestEngineUsageHistory(t *testing.T) {
	ctx := context.Background()
	engine, codec := newTestEngine(t)

	firstID := uuid.New()
	secondID := uuid.New()
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	seedEvents(t, codec, []UsageEvent{
		consumeEvent(firstID, base, 1),
		consumeEvent(secondID, base.AddDate(0, 0, 1), 1),
		consumeEvent(firstID, base.AddDate(0, 0, 2), 1),
	})
	assert.NoError(t, engine.Load(ctx))

	// Newest first
	history := engine.UsageHistory(uuid.Nil, 0)
	assert.Len(t, history, 3)
	assert.Equal(t, base.AddDate(0, 0, 2), history[0].Timestamp)
	assert.Equal(t, base, history[2].Timestamp)

	// Product filter and cap
	history = engine.UsageHistory(firstID, 0)
	assert.Len(t, history, 2)
	for _, e := range history {
		assert.Equal(t, firstID, e.ProductID)
	}

	history = engine.UsageHistory(uuid.Nil, 1)
	assert.Len(t, history, 1)
}

func TestEngineCleanupOldData(t *testing.T) {
	ctx := context.Background()
	engine, codec := newTestEngine(t)

	productID := uuid.New()
	now := time.Now()

	seedEvents(t, codec, []UsageEvent{
		consumeEvent(productID, now.AddDate(0, 0, -400), 1),
		consumeEvent(productID, now.AddDate(0, 0, -366), 1),
		consumeEvent(productID, now.AddDate(0, 0, -10), 1),
		consumeEvent(productID, now.AddDate(0, 0, -1), 1),
	})
	assert.NoError(t, engine.Load(ctx))

	removed, err := engine.CleanupOldData(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, removed)

	history := engine.UsageHistory(uuid.Nil, 0)
	assert.Len(t, history, 2)
	for _, e := range history {
		assert.True(t, e.Timestamp.After(now.AddDate(0, 0, -365)))
	}
}
