package routes

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/tomoki33/ordo-backend/internal/api/dto"
	"github.com/tomoki33/ordo-backend/internal/api/handlers"
	"github.com/tomoki33/ordo-backend/internal/api/middleware"
)

type AnalyticsRoutes struct {
	handler   *handlers.AnalyticsHandler
	jwtSecret string
}

func NewAnalyticsRoutes(handler *handlers.AnalyticsHandler, jwtSecret string) *AnalyticsRoutes {
	return &AnalyticsRoutes{
		handler:   handler,
		jwtSecret: jwtSecret,
	}
}

// RegisterRoutes registers all analytics-related routes
func (a *AnalyticsRoutes) RegisterRoutes(router *gin.Engine, cache *middleware.CacheMiddleware) {
	validation := middleware.NewValidationMiddleware()

	analytics := router.Group("/api/analytics")
	analytics.Use(middleware.NewAuthMiddleware(a.jwtSecret))

	// Event log; histories can be large, compress them
	analytics.POST("/events", validation.ValidateRequest(&dto.RecordUsageEventRequest{}), a.handler.RecordEvent)
	analytics.GET("/events", gzip.Gzip(gzip.DefaultCompression), a.handler.GetHistory)

	// Full analysis pass and its state
	analytics.POST("/analyze", cache.CacheInvalidate("analytics:*"), a.handler.RunAnalysis)
	analytics.GET("/analyze/status", a.handler.GetAnalysisStatus)

	// Derived patterns
	analytics.GET("/patterns", cache.CacheResponse(), gzip.Gzip(gzip.DefaultCompression), a.handler.GetPatterns)
	analytics.GET("/patterns/:product_id", cache.CacheResponse(), a.handler.GetPattern)
	analytics.GET("/seasonal", cache.CacheResponse(), gzip.Gzip(gzip.DefaultCompression), a.handler.GetSeasonalPatterns)

	// Settings and retention
	analytics.GET("/settings", a.handler.GetSettings)
	analytics.PUT("/settings", a.handler.UpdateSettings)
	analytics.POST("/cleanup", a.handler.Cleanup)
}
