package analytics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/tomoki33/ordo-backend/internal/domain/events"
)

func consumeEvent(productID uuid.UUID, ts time.Time, quantity float64) UsageEvent {
	return UsageEvent{
		ID:          ts.Format(time.RFC3339Nano),
		ProductID:   productID,
		ProductName: "Milk",
		Category:    "dairy",
		Action:      events.ActionConsume,
		Quantity:    quantity,
		Timestamp:   ts,
		DayOfWeek:   int(ts.Weekday()),
		HourOfDay:   ts.Hour(),
		SeasonID:    SeasonForMonth(ts.Month()),
	}
}

func TestCalculateConsumptionPattern(t *testing.T) {
	productID := uuid.New()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	t.Run("Sparse products drop out", func(t *testing.T) {
		evts := []UsageEvent{
			consumeEvent(productID, now.AddDate(0, 0, -3), 1),
			consumeEvent(productID, now.AddDate(0, 0, -2), 1),
			consumeEvent(productID, now.AddDate(0, 0, -1), 1),
		}
		pattern, ok := CalculateConsumptionPattern(evts, 5, now)
		assert.False(t, ok)
		assert.Nil(t, pattern)
	})

	t.Run("Rate over elapsed days", func(t *testing.T) {
		// 6 events, one per day over 5 elapsed days, 2 units each
		var evts []UsageEvent
		for i := 5; i >= 0; i-- {
			evts = append(evts, consumeEvent(productID, now.AddDate(0, 0, -i), 2))
		}
		pattern, ok := CalculateConsumptionPattern(evts, 5, now)
		assert.True(t, ok)
		assert.InDelta(t, 12.0/5.0, pattern.ConsumptionRate, 1e-9)
		assert.Equal(t, 12.0, pattern.TotalConsumed)
		assert.Equal(t, 6, pattern.EventCount)
		assert.Equal(t, TrendStable, pattern.ConsumptionTrend)
		assert.Equal(t, now, pattern.LastCalculated)
	})

	t.Run("Same day events count one elapsed day", func(t *testing.T) {
		var evts []UsageEvent
		for i := 0; i < 5; i++ {
			evts = append(evts, consumeEvent(productID, now.Add(time.Duration(i)*time.Hour), 1))
		}
		pattern, ok := CalculateConsumptionPattern(evts, 5, now)
		assert.True(t, ok)
		assert.InDelta(t, 5.0, pattern.ConsumptionRate, 1e-9)
	})

	t.Run("Distributions are normalized", func(t *testing.T) {
		var evts []UsageEvent
		for i := 6; i >= 0; i-- {
			evts = append(evts, consumeEvent(productID, now.AddDate(0, 0, -i), float64(i+1)))
		}
		pattern, ok := CalculateConsumptionPattern(evts, 5, now)
		assert.True(t, ok)

		assert.Len(t, pattern.HourlyDistribution, 24)
		assert.Len(t, pattern.DailyDistribution, 7)
		assert.Len(t, pattern.SeasonalDistribution, 4)

		for _, dist := range [][]float64{
			pattern.HourlyDistribution,
			pattern.DailyDistribution,
			pattern.SeasonalDistribution,
		} {
			var sum float64
			for _, v := range dist {
				sum += v
			}
			assert.InDelta(t, 1.0, sum, 1e-9)
		}
	})

	t.Run("Scores stay in unit range", func(t *testing.T) {
		var evts []UsageEvent
		for i := 30; i >= 0; i-- {
			evts = append(evts, consumeEvent(productID, now.AddDate(0, 0, -i), float64(i%7)+1))
		}
		pattern, ok := CalculateConsumptionPattern(evts, 5, now)
		assert.True(t, ok)
		assert.GreaterOrEqual(t, pattern.ConfidenceScore, 0.0)
		assert.LessOrEqual(t, pattern.ConfidenceScore, 1.0)
		assert.GreaterOrEqual(t, pattern.DataQualityScore, 0.0)
		assert.LessOrEqual(t, pattern.DataQualityScore, 1.0)
		assert.GreaterOrEqual(t, pattern.SeasonalityStrength, 0.0)
		assert.LessOrEqual(t, pattern.SeasonalityStrength, 1.0)
	})

	t.Run("Recent events score higher confidence than stale ones", func(t *testing.T) {
		var fresh, stale []UsageEvent
		for i := 5; i >= 1; i-- {
			fresh = append(fresh, consumeEvent(productID, now.AddDate(0, 0, -i), 2))
			stale = append(stale, consumeEvent(productID, now.AddDate(0, 0, -i-60), 2))
		}
		freshPattern, ok := CalculateConsumptionPattern(fresh, 5, now)
		assert.True(t, ok)
		stalePattern, ok := CalculateConsumptionPattern(stale, 5, now)
		assert.True(t, ok)
		assert.Greater(t, freshPattern.ConfidenceScore, stalePattern.ConfidenceScore)
	})
}

func TestDetectConsumptionTrend(t *testing.T) {
	productID := uuid.New()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	makeEvents := func(quantities ...float64) []UsageEvent {
		evts := make([]UsageEvent, len(quantities))
		for i, q := range quantities {
			evts[i] = consumeEvent(productID, base.AddDate(0, 0, i), q)
		}
		return evts
	}

	tests := []struct {
		name       string
		quantities []float64
		expected   string
	}{
		{
			name:       "Fewer than four events is stable",
			quantities: []float64{1, 10, 100},
			expected:   TrendStable,
		},
		{
			name:       "Second half more than 20 percent up",
			quantities: []float64{1, 1, 1, 2, 2, 2},
			expected:   TrendIncreasing,
		},
		{
			name:       "Second half more than 20 percent down",
			quantities: []float64{2, 2, 2, 1, 1, 1},
			expected:   TrendDecreasing,
		},
		{
			name:       "Change within the band is stable",
			quantities: []float64{2, 2, 2, 2.2, 2.2, 2.2},
			expected:   TrendStable,
		},
		{
			name:       "Zero first half with consumption later is increasing",
			quantities: []float64{0, 0, 1, 1},
			expected:   TrendIncreasing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectConsumptionTrend(makeEvents(tt.quantities...)))
		})
	}
}

func TestQuantityDistributionZeroTotal(t *testing.T) {
	productID := uuid.New()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	evts := []UsageEvent{
		consumeEvent(productID, base, 0),
		consumeEvent(productID, base.AddDate(0, 0, 1), 0),
		consumeEvent(productID, base.AddDate(0, 0, 2), 0),
	}

	dist := quantityDistribution(evts, 24, func(e UsageEvent) int { return e.HourOfDay })
	assert.Len(t, dist, 24)
	for i, v := range dist {
		assert.Zero(t, v, "bucket %d", i)
	}
}

func TestQuantityDistributionSkipsOutOfRangeBuckets(t *testing.T) {
	productID := uuid.New()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	evts := []UsageEvent{
		consumeEvent(productID, base, 2),
		consumeEvent(productID, base.AddDate(0, 0, 1), 2),
	}

	// Bucket every other event outside the valid range; only the in-range
	// quantity participates in the normalization
	calls := 0
	dist := quantityDistribution(evts, 4, func(e UsageEvent) int {
		calls++
		if calls%2 == 0 {
			return -1
		}
		return 0
	})
	assert.InDelta(t, 1.0, dist[0], 1e-9)
}

func TestDetectConsumptionTrendIsRepeatable(t *testing.T) {
	productID := uuid.New()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	evts := make([]UsageEvent, 6)
	for i, q := range []float64{1, 1, 1, 2, 2, 2} {
		evts[i] = consumeEvent(productID, base.AddDate(0, 0, i), q)
	}
	snapshot := make([]UsageEvent, len(evts))
	copy(snapshot, evts)

	first := DetectConsumptionTrend(evts)
	second := DetectConsumptionTrend(evts)

	assert.Equal(t, TrendIncreasing, first)
	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, evts)
}

func TestDataQualityScore(t *testing.T) {
	productID := uuid.New()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Clean events score 1", func(t *testing.T) {
		evts := []UsageEvent{
			consumeEvent(productID, base, 1),
			consumeEvent(productID, base.AddDate(0, 0, 1), 1),
		}
		assert.InDelta(t, 1.0, dataQualityScore(evts), 1e-9)
	})

	t.Run("Duplicates are penalized", func(t *testing.T) {
		e := consumeEvent(productID, base, 1)
		evts := []UsageEvent{e, e}
		// One of two events is a duplicate: 1 - 0.3*0.5
		assert.InDelta(t, 0.85, dataQualityScore(evts), 1e-9)
	})

	t.Run("Incomplete events are penalized", func(t *testing.T) {
		incomplete := consumeEvent(productID, base, 0)
		evts := []UsageEvent{
			incomplete,
			consumeEvent(productID, base.AddDate(0, 0, 1), 1),
		}
		assert.InDelta(t, 0.85, dataQualityScore(evts), 1e-9)
	})
}

func TestPredictNextPurchase(t *testing.T) {
	productID := uuid.New()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	addEvent := func(ts time.Time) UsageEvent {
		e := consumeEvent(productID, ts, 1)
		e.Action = events.ActionAdd
		return e
	}

	t.Run("Defaults to a week out with sparse purchase history", func(t *testing.T) {
		interval, predicted := predictNextPurchase([]UsageEvent{addEvent(now)}, now)
		assert.Equal(t, 0.0, interval)
		assert.Equal(t, now.AddDate(0, 0, 7), predicted)
	})

	t.Run("Projects the average interval from the last purchase", func(t *testing.T) {
		purchases := []UsageEvent{
			addEvent(now.AddDate(0, 0, -8)),
			addEvent(now.AddDate(0, 0, -4)),
			addEvent(now),
		}
		interval, predicted := predictNextPurchase(purchases, now)
		assert.InDelta(t, 4.0, interval, 1e-9)
		assert.Equal(t, now.AddDate(0, 0, 4), predicted)
	})
}

func TestSeasonForMonth(t *testing.T) {
	assert.Equal(t, SeasonSpring, SeasonForMonth(time.March))
	assert.Equal(t, SeasonSpring, SeasonForMonth(time.May))
	assert.Equal(t, SeasonSummer, SeasonForMonth(time.June))
	assert.Equal(t, SeasonFall, SeasonForMonth(time.September))
	assert.Equal(t, SeasonWinter, SeasonForMonth(time.December))
	assert.Equal(t, SeasonWinter, SeasonForMonth(time.February))
}
