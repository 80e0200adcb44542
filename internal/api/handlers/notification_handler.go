package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tomoki33/ordo-backend/internal/api/dto"
	"github.com/tomoki33/ordo-backend/internal/api/middleware"
	"github.com/tomoki33/ordo-backend/internal/domain/notification"
	"github.com/tomoki33/ordo-backend/pkg/logger"
	"github.com/tomoki33/ordo-backend/pkg/security/auth"
	"go.uber.org/zap"
)

// NotificationHandler handles HTTP and WebSocket requests for notifications
type NotificationHandler struct {
	service   notification.Service
	jwtSecret string
	logger    *logger.Logger
	upgrader  websocket.Upgrader
}

// NewNotificationHandler creates a new NotificationHandler instance
func NewNotificationHandler(service notification.Service, jwtSecret string, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		service:   service,
		jwtSecret: jwtSecret,
		logger:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ListNotifications handles GET /api/notifications
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	unreadOnly := c.DefaultQuery("unread_only", "false") == "true"
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}

	notifications, err := h.service.GetByUser(c.Request.Context(), userID, unreadOnly, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	unreadCount, err := h.service.CountUnread(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to count unread notifications", zap.Error(err))
	}

	responses := make([]dto.NotificationResponse, len(notifications))
	for i := range notifications {
		responses[i] = dto.ToDTO(&notifications[i])
	}

	c.JSON(http.StatusOK, gin.H{"data": dto.NotificationListResponse{
		Notifications: responses,
		UnreadCount:   unreadCount,
	}})
}

// MarkAsRead handles POST /api/notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification ID"})
		return
	}

	if err := h.service.MarkAsRead(c.Request.Context(), id); err != nil {
		statusCode := http.StatusInternalServerError
		if err == notification.ErrNotificationNotFound {
			statusCode = http.StatusNotFound
		}
		c.JSON(statusCode, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "notification marked as read"})
}

// MarkAllAsRead handles POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	updated, err := h.service.MarkAllAsRead(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// DeleteNotification handles DELETE /api/notifications/:id
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification ID"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		statusCode := http.StatusInternalServerError
		if err == notification.ErrNotificationNotFound {
			statusCode = http.StatusNotFound
		}
		c.JSON(statusCode, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "notification deleted"})
}

// StreamNotifications handles GET /ws/notifications, upgrading the connection
// and bridging the in-process signal hub to the client.
func (h *NotificationHandler) StreamNotifications(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)

	// Browsers cannot set headers on WebSocket handshakes; fall back to a
	// token query parameter.
	if !exists {
		tokenParam := c.Query("token")
		if tokenParam == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		claims, err := auth.ValidateToken(tokenParam, h.jwtSecret)
		if err != nil {
			h.logger.Error("WebSocket token validation failed", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		userID = claims.UserID
	}

	h.logger.Info("WebSocket connection attempt",
		zap.String("user_id", userID.String()),
		zap.String("remote_addr", c.Request.RemoteAddr))

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade to WebSocket",
			zap.Error(err),
			zap.String("user_id", userID.String()))
		return
	}
	defer func() {
		ws.Close()
		h.logger.Info("WebSocket connection closed", zap.String("user_id", userID.String()))
	}()

	ws.SetReadLimit(1024 * 10)
	ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	notifChan, cancel, err := h.service.SubscribeToNotifications(userID)
	if err != nil {
		h.logger.Error("Failed to subscribe to notifications",
			zap.Error(err),
			zap.String("user_id", userID.String()))
		ws.WriteJSON(map[string]interface{}{
			"error": "failed to subscribe to notifications",
		})
		return
	}
	defer cancel()

	// Send the initial unread count so clients can render a badge immediately
	unreadCount, err := h.service.CountUnread(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to count unread notifications",
			zap.Error(err),
			zap.String("user_id", userID.String()))
	} else {
		countMsg := map[string]interface{}{
			"type":  "count",
			"count": unreadCount,
		}
		if writeErr := ws.WriteJSON(countMsg); writeErr != nil {
			h.logger.Error("Failed to send initial count", zap.Error(writeErr))
			return
		}
	}

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	done := make(chan struct{})

	// Handle incoming messages (read receipts)
	go func() {
		defer close(done)
		for {
			messageType, message, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure) {
					h.logger.Error("WebSocket read error",
						zap.Error(err),
						zap.String("user_id", userID.String()))
				}
				return
			}

			if messageType == websocket.PingMessage {
				if err := ws.WriteMessage(websocket.PongMessage, nil); err != nil {
					h.logger.Error("WebSocket pong write error", zap.Error(err))
					return
				}
				continue
			}

			if messageType == websocket.TextMessage && len(message) > 0 {
				var msgData map[string]interface{}
				if jsonErr := json.Unmarshal(message, &msgData); jsonErr == nil {
					if cmd, ok := msgData["command"].(string); ok {
						switch cmd {
						case "mark_read":
							if id, ok := msgData["id"].(string); ok {
								notifID, parseErr := uuid.Parse(id)
								if parseErr == nil {
									h.service.MarkAsRead(c.Request.Context(), notifID)
								}
							}
						case "mark_all_read":
							h.service.MarkAllAsRead(c.Request.Context(), userID)
						}
					}
				}
			}
		}
	}()

	for {
		select {
		case n, ok := <-notifChan:
			if !ok {
				return
			}

			if err := ws.WriteJSON(dto.ToDTO(n)); err != nil {
				h.logger.Error("WebSocket write error",
					zap.Error(err),
					zap.String("user_id", userID.String()))
				return
			}

		case <-pingTicker.C:
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.logger.Error("WebSocket ping error",
					zap.Error(err),
					zap.String("user_id", userID.String()))
				return
			}

		case <-done:
			return
		}
	}
}
