package analytics

import (
	"time"

	"github.com/google/uuid"
)

// Season buckets the calendar year into four quarters for seasonal analysis
type Season int

const (
	SeasonSpring Season = iota // Mar-May
	SeasonSummer               // Jun-Aug
	SeasonFall                 // Sep-Nov
	SeasonWinter               // Dec-Feb
)

const seasonCount = 4

func (s Season) String() string {
	switch s {
	case SeasonSpring:
		return "spring"
	case SeasonSummer:
		return "summer"
	case SeasonFall:
		return "fall"
	case SeasonWinter:
		return "winter"
	}
	return "unknown"
}

// SeasonForMonth maps a calendar month to its season
func SeasonForMonth(m time.Month) Season {
	switch m {
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	case time.September, time.October, time.November:
		return SeasonFall
	default:
		return SeasonWinter
	}
}

// UsageEvent is an immutable record of a single inventory action. Events are
// appended to the usage log and never mutated.
type UsageEvent struct {
	ID          string                 `json:"id"`
	UserID      uuid.UUID              `json:"user_id"`
	ProductID   uuid.UUID              `json:"product_id"`
	ProductName string                 `json:"product_name"`
	Category    string                 `json:"category"`
	Action      string                 `json:"action"`
	Quantity    float64                `json:"quantity"`
	Unit        string                 `json:"unit"`
	Timestamp   time.Time              `json:"timestamp"`
	DayOfWeek   int                    `json:"day_of_week"`
	HourOfDay   int                    `json:"hour_of_day"`
	SeasonID    Season                 `json:"season_id"`
	Tags        []string               `json:"tags,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// RecordUsageEventInput carries the caller-supplied fields of a usage event;
// id, timestamp and the derived calendar fields are filled in on record.
type RecordUsageEventInput struct {
	UserID      uuid.UUID              `json:"user_id"`
	ProductID   uuid.UUID              `json:"product_id"`
	ProductName string                 `json:"product_name"`
	Category    string                 `json:"category"`
	Action      string                 `json:"action"`
	Quantity    float64                `json:"quantity"`
	Unit        string                 `json:"unit"`
	Tags        []string               `json:"tags,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Consumption trend classifications
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// ConsumptionPattern is the derived per-product statistical summary. It is
// recomputed wholesale from the product's events; there is no incremental
// merge. LastCalculated makes staleness observable.
type ConsumptionPattern struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Category    string    `json:"category"`

	ConsumptionRate  float64 `json:"consumption_rate"` // quantity per day
	QuantityVariance float64 `json:"quantity_variance"`
	TotalConsumed    float64 `json:"total_consumed"`
	EventCount       int     `json:"event_count"`
	PurchaseCount    int     `json:"purchase_count"`

	HourlyDistribution   []float64 `json:"hourly_distribution"`   // 24 buckets
	DailyDistribution    []float64 `json:"daily_distribution"`    // 7 buckets, Sunday first
	SeasonalDistribution []float64 `json:"seasonal_distribution"` // 4 buckets

	AveragePurchaseIntervalDays float64   `json:"average_purchase_interval_days"`
	PredictedNextPurchase       time.Time `json:"predicted_next_purchase"`

	ConsumptionTrend    string  `json:"consumption_trend"`
	SeasonalityStrength float64 `json:"seasonality_strength"`
	ConfidenceScore     float64 `json:"confidence_score"`
	DataQualityScore    float64 `json:"data_quality_score"`

	LastCalculated time.Time `json:"last_calculated"`
}

// SeasonalProduct is a product whose consumption in a season exceeds its
// overall average by more than the detection threshold.
type SeasonalProduct struct {
	ProductID        uuid.UUID `json:"product_id"`
	ProductName      string    `json:"product_name"`
	SeasonalAverage  float64   `json:"seasonal_average"`
	OverallAverage   float64   `json:"overall_average"`
	RelativeIncrease float64   `json:"relative_increase"`
	Confidence       float64   `json:"confidence"`
}

// SeasonalPattern holds the cross-product comparison for one season. It fully
// replaces the prior record on each analysis pass.
type SeasonalPattern struct {
	Season         Season             `json:"season"`
	SeasonName     string             `json:"season_name"`
	TopProducts    []SeasonalProduct  `json:"top_products"`
	CategoryDeltas map[string]float64 `json:"category_deltas"`
	CalculatedAt   time.Time          `json:"calculated_at"`
}

// Settings controls the analytics engine behavior
type Settings struct {
	DataRetentionDays             int     `json:"data_retention_days"`
	MinDataPoints                 int     `json:"min_data_points"`
	SeasonalityDetectionThreshold float64 `json:"seasonality_detection_threshold"`
	EnableRealTimeAnalysis        bool    `json:"enable_real_time_analysis"`
}

// DefaultSettings returns the engine defaults
func DefaultSettings() Settings {
	return Settings{
		DataRetentionDays:             365,
		MinDataPoints:                 5,
		SeasonalityDetectionThreshold: 0.3,
		EnableRealTimeAnalysis:        true,
	}
}

// Persisted payload keys
const (
	keyUsageEvents         = "usage_events"
	keyConsumptionPatterns = "consumption_patterns"
	keySeasonalPatterns    = "seasonal_patterns"
	keyAnalyticsSettings   = "analytics_settings"
)

// schemaVersion is the current envelope version for analytics payloads
const schemaVersion = 1
