package dto

import (
	"time"

	"github.com/google/uuid"
)

// RecordUsageEventRequest represents the request to record a usage event
type RecordUsageEventRequest struct {
	ProductID   uuid.UUID              `json:"product_id"`
	ProductName string                 `json:"product_name" validate:"required,not_empty" binding:"required"`
	Category    string                 `json:"category"`
	Action      string                 `json:"action" validate:"required,oneof=add consume remove expire view search" binding:"required"`
	Quantity    float64                `json:"quantity" validate:"gte=0"`
	Unit        string                 `json:"unit"`
	Tags        []string               `json:"tags,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// UsageEventResponse represents a usage event in API responses
type UsageEventResponse struct {
	ID          string                 `json:"id"`
	UserID      uuid.UUID              `json:"user_id"`
	ProductID   uuid.UUID              `json:"product_id"`
	ProductName string                 `json:"product_name"`
	Category    string                 `json:"category"`
	Action      string                 `json:"action"`
	Quantity    float64                `json:"quantity"`
	Unit        string                 `json:"unit,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
	DayOfWeek   int                    `json:"day_of_week"`
	HourOfDay   int                    `json:"hour_of_day"`
	Season      string                 `json:"season"`
	Tags        []string               `json:"tags,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// UsageHistoryResponse represents the response for the usage history listing
type UsageHistoryResponse struct {
	Events []UsageEventResponse `json:"events"`
	Count  int                  `json:"count"`
}

// ConsumptionPatternResponse represents a computed consumption pattern
type ConsumptionPatternResponse struct {
	ProductID                   uuid.UUID `json:"product_id"`
	ProductName                 string    `json:"product_name"`
	Category                    string    `json:"category"`
	ConsumptionRate             float64   `json:"consumption_rate"`
	QuantityVariance            float64   `json:"quantity_variance"`
	TotalConsumed               float64   `json:"total_consumed"`
	EventCount                  int       `json:"event_count"`
	PurchaseCount               int       `json:"purchase_count"`
	HourlyDistribution          []float64 `json:"hourly_distribution"`
	DailyDistribution           []float64 `json:"daily_distribution"`
	SeasonalDistribution        []float64 `json:"seasonal_distribution"`
	AveragePurchaseIntervalDays float64   `json:"average_purchase_interval_days"`
	PredictedNextPurchase       time.Time `json:"predicted_next_purchase"`
	ConsumptionTrend            string    `json:"consumption_trend"`
	SeasonalityStrength         float64   `json:"seasonality_strength"`
	ConfidenceScore             float64   `json:"confidence_score"`
	DataQualityScore            float64   `json:"data_quality_score"`
	LastCalculated              time.Time `json:"last_calculated"`
}

// SeasonalProductResponse represents one seasonal standout product
type SeasonalProductResponse struct {
	ProductID        uuid.UUID `json:"product_id"`
	ProductName      string    `json:"product_name"`
	SeasonalAverage  float64   `json:"seasonal_average"`
	OverallAverage   float64   `json:"overall_average"`
	RelativeIncrease float64   `json:"relative_increase"`
	Confidence       float64   `json:"confidence"`
}

// SeasonalPatternResponse represents the seasonal comparison for one season
type SeasonalPatternResponse struct {
	Season         string                    `json:"season"`
	TopProducts    []SeasonalProductResponse `json:"top_products"`
	CategoryDeltas map[string]float64        `json:"category_deltas"`
	CalculatedAt   time.Time                 `json:"calculated_at"`
}

// AnalyticsSettingsRequest represents the request to update analytics settings
type AnalyticsSettingsRequest struct {
	DataRetentionDays             int     `json:"data_retention_days" validate:"gt=0"`
	MinDataPoints                 int     `json:"min_data_points" validate:"gt=0"`
	SeasonalityDetectionThreshold float64 `json:"seasonality_detection_threshold" validate:"gt=0"`
	EnableRealTimeAnalysis        bool    `json:"enable_real_time_analysis"`
}

// AnalysisStatusResponse reports the state of the background analysis
type AnalysisStatusResponse struct {
	Running bool `json:"running"`
}
