package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/tomoki33/ordo-backend/internal/api/handlers"
	"github.com/tomoki33/ordo-backend/internal/api/middleware"
)

type NotificationRoutes struct {
	handler   *handlers.NotificationHandler
	jwtSecret string
}

func NewNotificationRoutes(handler *handlers.NotificationHandler, jwtSecret string) *NotificationRoutes {
	return &NotificationRoutes{
		handler:   handler,
		jwtSecret: jwtSecret,
	}
}

// RegisterRoutes registers all notification-related routes
func (n *NotificationRoutes) RegisterRoutes(router *gin.Engine) {
	notifications := router.Group("/api/notifications")
	notifications.Use(middleware.NewAuthMiddleware(n.jwtSecret))

	notifications.GET("", n.handler.ListNotifications)
	notifications.POST("/read-all", n.handler.MarkAllAsRead)
	notifications.POST("/:id/read", n.handler.MarkAsRead)
	notifications.DELETE("/:id", n.handler.DeleteNotification)

	// WebSocket endpoint authenticates via token query parameter, so no auth
	// middleware on the group
	router.GET("/ws/notifications", n.handler.StreamNotifications)
}
