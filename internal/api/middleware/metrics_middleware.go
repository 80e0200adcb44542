package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks request duration in seconds
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal tracks total number of requests
	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ResponseSize tracks response size in bytes
	responseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Size of HTTP responses in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// AnalysisRuns counts full analysis passes by outcome
	analysisRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_analysis_runs_total",
			Help: "Total number of full consumption analysis passes",
		},
		[]string{"outcome"},
	)

	// AlertsComputed tracks the size of the computed alert list
	alertsComputed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "expiration_alerts_computed",
			Help:    "Number of alerts produced per computation",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		},
	)
)

// ObserveAnalysisRun records the outcome of a full analysis pass
func ObserveAnalysisRun(outcome string) {
	analysisRuns.WithLabelValues(outcome).Inc()
}

// ObserveAlertCount records how many alerts a computation produced
func ObserveAlertCount(n int) {
	alertsComputed.Observe(float64(n))
}

// MetricsMiddleware collects metrics for HTTP requests
type MetricsMiddleware struct{}

// NewMetricsMiddleware creates a new metrics middleware
func NewMetricsMiddleware() *MetricsMiddleware {
	return &MetricsMiddleware{}
}

// CollectMetrics collects metrics for HTTP requests
func (m *MetricsMiddleware) CollectMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		requestDuration.WithLabelValues(method, path, status).Observe(duration)
		requestTotal.WithLabelValues(method, path, status).Inc()

		if c.Writer.Size() > 0 {
			responseSize.WithLabelValues(method, path).Observe(float64(c.Writer.Size()))
		}
	}
}
