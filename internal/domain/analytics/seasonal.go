package analytics

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tomoki33/ordo-backend/internal/domain/events"
)

const seasonalTopProducts = 10

// AnalyzeSeasonalPatterns compares per-product consumption inside each season
// against the all-time average and reports the products whose seasonal
// per-event average exceeds the overall one by more than threshold. Prior
// seasonal state is fully replaced by the result.
func AnalyzeSeasonalPatterns(allEvents []UsageEvent, threshold float64, now time.Time) []SeasonalPattern {
	type productStats struct {
		name        string
		totalQty    float64
		totalCount  int
		seasonQty   [seasonCount]float64
		seasonCount [seasonCount]int
	}
	type categoryStats struct {
		totalQty    float64
		totalCount  int
		seasonQty   [seasonCount]float64
		seasonCount [seasonCount]int
	}

	products := make(map[uuid.UUID]*productStats)
	categories := make(map[string]*categoryStats)

	for _, e := range allEvents {
		if e.Action != events.ActionConsume {
			continue
		}

		p, ok := products[e.ProductID]
		if !ok {
			p = &productStats{name: e.ProductName}
			products[e.ProductID] = p
		}
		p.totalQty += e.Quantity
		p.totalCount++
		p.seasonQty[e.SeasonID] += e.Quantity
		p.seasonCount[e.SeasonID]++

		c, ok := categories[e.Category]
		if !ok {
			c = &categoryStats{}
			categories[e.Category] = c
		}
		c.totalQty += e.Quantity
		c.totalCount++
		c.seasonQty[e.SeasonID] += e.Quantity
		c.seasonCount[e.SeasonID]++
	}

	patterns := make([]SeasonalPattern, 0, seasonCount)
	for s := Season(0); s < seasonCount; s++ {
		pattern := SeasonalPattern{
			Season:         s,
			SeasonName:     s.String(),
			CategoryDeltas: make(map[string]float64),
			CalculatedAt:   now,
		}

		for id, p := range products {
			if p.seasonCount[s] == 0 || p.totalCount == 0 {
				continue
			}
			seasonalAvg := p.seasonQty[s] / float64(p.seasonCount[s])
			overallAvg := p.totalQty / float64(p.totalCount)
			if overallAvg == 0 {
				continue
			}
			increase := (seasonalAvg - overallAvg) / overallAvg
			if increase <= threshold {
				continue
			}

			confidence := clamp01(float64(p.seasonCount[s]) / float64(p.totalCount) * seasonCount)
			pattern.TopProducts = append(pattern.TopProducts, SeasonalProduct{
				ProductID:        id,
				ProductName:      p.name,
				SeasonalAverage:  seasonalAvg,
				OverallAverage:   overallAvg,
				RelativeIncrease: increase,
				Confidence:       confidence,
			})
		}

		sort.SliceStable(pattern.TopProducts, func(i, j int) bool {
			a, b := pattern.TopProducts[i], pattern.TopProducts[j]
			if a.RelativeIncrease != b.RelativeIncrease {
				return a.RelativeIncrease > b.RelativeIncrease
			}
			return a.ProductID.String() < b.ProductID.String()
		})
		if len(pattern.TopProducts) > seasonalTopProducts {
			pattern.TopProducts = pattern.TopProducts[:seasonalTopProducts]
		}

		for name, c := range categories {
			if c.seasonCount[s] == 0 || c.totalCount == 0 {
				continue
			}
			seasonalAvg := c.seasonQty[s] / float64(c.seasonCount[s])
			overallAvg := c.totalQty / float64(c.totalCount)
			pattern.CategoryDeltas[name] = seasonalAvg - overallAvg
		}

		patterns = append(patterns, pattern)
	}

	return patterns
}
