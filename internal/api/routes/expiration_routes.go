package routes

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/tomoki33/ordo-backend/internal/api/dto"
	"github.com/tomoki33/ordo-backend/internal/api/handlers"
	"github.com/tomoki33/ordo-backend/internal/api/middleware"
)

type ExpirationRoutes struct {
	handler   *handlers.ExpirationHandler
	jwtSecret string
}

func NewExpirationRoutes(handler *handlers.ExpirationHandler, jwtSecret string) *ExpirationRoutes {
	return &ExpirationRoutes{
		handler:   handler,
		jwtSecret: jwtSecret,
	}
}

// RegisterRoutes registers all expiration-related routes
func (e *ExpirationRoutes) RegisterRoutes(router *gin.Engine, cache *middleware.CacheMiddleware) {
	validation := middleware.NewValidationMiddleware()

	expiration := router.Group("/api/expiration")
	expiration.Use(middleware.NewAuthMiddleware(e.jwtSecret))

	// Alerts are recomputed on demand; no caching so acknowledgments and
	// inventory changes show up immediately
	expiration.GET("/alerts", gzip.Gzip(gzip.DefaultCompression), e.handler.GetAlerts)
	expiration.GET("/alerts/batch", e.handler.GetBatchAlerts)
	expiration.POST("/alerts/:id/acknowledge", e.handler.AcknowledgeAlert)

	expiration.GET("/settings", e.handler.GetSettings)
	expiration.PUT("/settings", e.handler.UpdateSettings)

	rules := expiration.Group("/rules")
	rules.GET("", e.handler.ListRules)
	rules.POST("", validation.ValidateRequest(&dto.CreateRuleRequest{}), e.handler.CreateRule)
	rules.PUT("/:id", e.handler.UpdateRule)
	rules.DELETE("/:id", e.handler.DeleteRule)
}
