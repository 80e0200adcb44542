package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/tomoki33/ordo-backend/internal/domain/events"
)

// CalculateConsumptionPattern recomputes the pattern for one product from its
// raw events. Returns false when the product has fewer than minDataPoints
// events; sparse products drop out of analytics rather than keeping a partial
// pattern.
func CalculateConsumptionPattern(productEvents []UsageEvent, minDataPoints int, now time.Time) (*ConsumptionPattern, bool) {
	if len(productEvents) < minDataPoints {
		return nil, false
	}

	sorted := make([]UsageEvent, len(productEvents))
	copy(sorted, productEvents)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var consume, purchases []UsageEvent
	for _, e := range sorted {
		switch e.Action {
		case events.ActionConsume:
			consume = append(consume, e)
		case events.ActionAdd:
			purchases = append(purchases, e)
		}
	}

	latest := sorted[len(sorted)-1]
	pattern := &ConsumptionPattern{
		ProductID:     latest.ProductID,
		ProductName:   latest.ProductName,
		Category:      latest.Category,
		EventCount:    len(sorted),
		PurchaseCount: len(purchases),
	}

	var totalConsumed float64
	quantities := make([]float64, len(consume))
	for i, e := range consume {
		totalConsumed += e.Quantity
		quantities[i] = e.Quantity
	}
	pattern.TotalConsumed = totalConsumed

	pattern.ConsumptionRate = consumptionRate(consume, totalConsumed)
	pattern.QuantityVariance = populationVariance(quantities)

	pattern.HourlyDistribution = quantityDistribution(consume, 24, func(e UsageEvent) int { return e.HourOfDay })
	pattern.DailyDistribution = quantityDistribution(consume, 7, func(e UsageEvent) int { return e.DayOfWeek })
	pattern.SeasonalDistribution = quantityDistribution(consume, seasonCount, func(e UsageEvent) int { return int(e.SeasonID) })

	pattern.ConsumptionTrend = DetectConsumptionTrend(consume)
	pattern.SeasonalityStrength = seasonalityStrength(pattern.SeasonalDistribution)
	pattern.ConfidenceScore = confidenceScore(sorted, quantities, now)
	pattern.DataQualityScore = dataQualityScore(sorted)

	interval, predicted := predictNextPurchase(purchases, now)
	pattern.AveragePurchaseIntervalDays = interval
	pattern.PredictedNextPurchase = predicted

	pattern.LastCalculated = now
	return pattern, true
}

// consumptionRate is total consumed quantity over the elapsed days between the
// first and last consumption event; 0 with fewer than 2 events. Events on the
// same day count as one day of elapsed time.
func consumptionRate(consume []UsageEvent, totalConsumed float64) float64 {
	if len(consume) < 2 {
		return 0
	}
	days := consume[len(consume)-1].Timestamp.Sub(consume[0].Timestamp).Hours() / 24
	if days < 1 {
		days = 1
	}
	return totalConsumed / days
}

func populationVariance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return sq / float64(len(values))
}

// quantityDistribution builds a quantity-weighted histogram normalized to sum
// to 1; all-zero when the total weight is 0.
func quantityDistribution(evts []UsageEvent, buckets int, bucketOf func(UsageEvent) int) []float64 {
	dist := make([]float64, buckets)
	var total float64
	for _, e := range evts {
		b := bucketOf(e)
		if b < 0 || b >= buckets {
			continue
		}
		dist[b] += e.Quantity
		total += e.Quantity
	}
	if total == 0 {
		return dist
	}
	for i := range dist {
		dist[i] /= total
	}
	return dist
}

// DetectConsumptionTrend splits the time-sorted consumption events into two
// halves by index and compares average quantities. More than +20% is
// increasing, less than -20% decreasing, otherwise stable. Fewer than 4
// events is always stable.
func DetectConsumptionTrend(consume []UsageEvent) string {
	if len(consume) < 4 {
		return TrendStable
	}

	mid := len(consume) / 2
	firstAvg := averageQuantity(consume[:mid])
	secondAvg := averageQuantity(consume[mid:])

	if firstAvg == 0 {
		if secondAvg > 0 {
			return TrendIncreasing
		}
		return TrendStable
	}

	change := (secondAvg - firstAvg) / firstAvg
	switch {
	case change > 0.2:
		return TrendIncreasing
	case change < -0.2:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func averageQuantity(evts []UsageEvent) float64 {
	if len(evts) == 0 {
		return 0
	}
	var sum float64
	for _, e := range evts {
		sum += e.Quantity
	}
	return sum / float64(len(evts))
}

// seasonalityStrength is a chi-square-like statistic of the seasonal
// distribution against the uniform 0.25 baseline, divided by 4 and clamped to
// [0,1].
func seasonalityStrength(seasonal []float64) float64 {
	const uniform = 1.0 / seasonCount
	var chi float64
	for _, p := range seasonal {
		d := p - uniform
		chi += d * d / uniform
	}
	return clamp01(chi / seasonCount)
}

// confidenceScore weighs data volume (up to 0.4, capped at 20 events),
// recency (up to 0.3, decaying linearly over 30 days) and consistency of the
// consumed quantities (up to 0.3, inverse of the coefficient of variation).
func confidenceScore(sorted []UsageEvent, quantities []float64, now time.Time) float64 {
	if len(sorted) == 0 {
		return 0
	}

	volume := 0.4 * math.Min(1, float64(len(sorted))/20)

	latest := sorted[len(sorted)-1].Timestamp
	daysSince := now.Sub(latest).Hours() / 24
	recency := 0.3 * math.Max(0, 1-daysSince/30)

	consistency := 0.0
	if len(quantities) > 0 {
		var sum float64
		for _, q := range quantities {
			sum += q
		}
		mean := sum / float64(len(quantities))
		if mean > 0 {
			cv := math.Sqrt(populationVariance(quantities)) / mean
			consistency = 0.3 * clamp01(1-cv)
		}
	}

	return clamp01(volume + recency + consistency)
}

// dataQualityScore starts at 1.0 and is penalized by the fraction of events
// with missing fields or non-positive quantity (x0.3), exact duplicates by
// (timestamp, action, product) key (x0.3), and quantity outliers beyond 3
// standard deviations (x0.4). Floored at 0.
func dataQualityScore(evts []UsageEvent) float64 {
	if len(evts) == 0 {
		return 0
	}
	n := float64(len(evts))

	var incomplete int
	for _, e := range evts {
		if e.ProductName == "" || e.Category == "" || e.Quantity <= 0 {
			incomplete++
		}
	}

	seen := make(map[string]struct{}, len(evts))
	var duplicates int
	for _, e := range evts {
		key := e.Timestamp.Format(time.RFC3339Nano) + "|" + e.Action + "|" + e.ProductID.String()
		if _, ok := seen[key]; ok {
			duplicates++
		} else {
			seen[key] = struct{}{}
		}
	}

	quantities := make([]float64, len(evts))
	var sum float64
	for i, e := range evts {
		quantities[i] = e.Quantity
		sum += e.Quantity
	}
	mean := sum / n
	stddev := math.Sqrt(populationVariance(quantities))

	var outliers int
	if stddev > 0 {
		for _, q := range quantities {
			if math.Abs(q-mean) > 3*stddev {
				outliers++
			}
		}
	}

	score := 1.0
	score -= 0.3 * float64(incomplete) / n
	score -= 0.3 * float64(duplicates) / n
	score -= 0.4 * float64(outliers) / n
	return math.Max(0, score)
}

// predictNextPurchase projects the average interval between consecutive add
// events forward from the last add; with fewer than 2 purchase events the
// prediction defaults to 7 days from now.
func predictNextPurchase(purchases []UsageEvent, now time.Time) (float64, time.Time) {
	if len(purchases) < 2 {
		return 0, now.AddDate(0, 0, 7)
	}

	var totalDays float64
	for i := 1; i < len(purchases); i++ {
		totalDays += purchases[i].Timestamp.Sub(purchases[i-1].Timestamp).Hours() / 24
	}
	avgDays := totalDays / float64(len(purchases)-1)

	last := purchases[len(purchases)-1].Timestamp
	predicted := last.Add(time.Duration(avgDays * 24 * float64(time.Hour)))
	return avgDays, predicted
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
