package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tomoki33/ordo-backend/internal/domain/events"
	"github.com/tomoki33/ordo-backend/internal/infrastructure/cache"
	"go.uber.org/zap"
)

type CacheMiddleware struct {
	cache  *cache.RedisClient
	prefix string
	ttl    time.Duration
}

func NewCacheMiddleware(cache *cache.RedisClient, prefix string, ttl time.Duration) *CacheMiddleware {
	return &CacheMiddleware{
		cache:  cache,
		prefix: prefix,
		ttl:    ttl,
	}
}

// responseBuffer is a custom ResponseWriter that stores the response
type responseBuffer struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func newResponseBuffer(original gin.ResponseWriter) *responseBuffer {
	return &responseBuffer{
		ResponseWriter: original,
		body:           bytes.NewBufferString(""),
	}
}

func (r *responseBuffer) Write(b []byte) (int, error) {
	r.ResponseWriter.Write(b)
	return r.body.Write(b)
}

func (r *responseBuffer) WriteString(s string) (int, error) {
	r.ResponseWriter.WriteString(s)
	return r.body.WriteString(s)
}

// CacheResponse caches the response of an endpoint
func (m *CacheMiddleware) CacheResponse() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != "GET" {
			c.Next()
			return
		}

		key := m.generateCacheKey(c)

		if cached, err := m.cache.Get(c, key); err == nil {
			var response map[string]interface{}
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				c.JSON(http.StatusOK, response)
				c.Abort()
				return
			}
		}

		writer := c.Writer
		buff := newResponseBuffer(writer)
		c.Writer = buff

		c.Next()

		if c.Writer.Status() == http.StatusOK {
			responseData := buff.body.String()
			if err := m.cache.Set(c, key, responseData, m.ttl); err != nil {
				log.Error("Failed to cache response", zap.Error(err))
			}
		}

		c.Writer = writer
	}
}

// CacheInvalidate invalidates cache entries based on patterns
func (m *CacheMiddleware) CacheInvalidate(patterns ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() >= 200 && c.Writer.Status() < 300 {
			for _, pattern := range patterns {
				key := fmt.Sprintf("%s:%s", m.prefix, pattern)
				if err := m.cache.ClearByPattern(c, key); err != nil {
					log.Error("Failed to invalidate cache", zap.Error(err), zap.String("pattern", pattern))
				}
			}
		}
	}
}

// invalidationPatternsFor maps an inventory bus event to the response-cache
// patterns it makes stale. Product mutations also recompute consumption
// patterns in real time, so they invalidate the analytics cache too.
func invalidationPatternsFor(eventType string) []string {
	switch eventType {
	case events.InventoryEventCacheInvalidate:
		return []string{"products:*", "analytics:*"}
	case events.InventoryEventAnalysisDone:
		return []string{"analytics:*"}
	default:
		return nil
	}
}

// StartInvalidationListener consumes the Redis inventory-event bus and clears
// the affected cache entries, so mutations published by other instances
// invalidate this instance's response cache as well.
func (m *CacheMiddleware) StartInvalidationListener(ctx context.Context) {
	pubsub := m.cache.SubscribeInventoryEvents(ctx)

	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				var event events.InventoryEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Error("Failed to decode inventory event", zap.Error(err))
					continue
				}
				m.handleInventoryEvent(ctx, &event)
			}
		}
	}()
}

func (m *CacheMiddleware) handleInventoryEvent(ctx context.Context, event *events.InventoryEvent) {
	for _, pattern := range invalidationPatternsFor(event.EventType) {
		key := fmt.Sprintf("%s:%s", m.prefix, pattern)
		if err := m.cache.ClearByPattern(ctx, key); err != nil {
			log.Error("Failed to invalidate cache from inventory event",
				zap.String("event_type", event.EventType),
				zap.String("pattern", pattern),
				zap.Error(err),
			)
		}
	}
}

func (m *CacheMiddleware) generateCacheKey(c *gin.Context) string {
	// User-specific caching keyed on method, path, query and user id
	userID, _ := GetUserID(c)

	parts := []string{m.prefix}

	pathParts := strings.Split(strings.Trim(c.Request.URL.Path, "/"), "/")
	if len(pathParts) >= 2 {
		resourceType := pathParts[1] // e.g. "products"
		parts = append(parts, resourceType)

		if len(pathParts) >= 3 {
			resourceID := pathParts[2]
			if _, err := uuid.Parse(resourceID); err == nil {
				parts = append(parts, "id", resourceID)
			} else {
				parts = append(parts, resourceID)
			}
		} else {
			parts = append(parts, "list")
		}
	}

	if len(c.Request.URL.RawQuery) > 0 {
		parts = append(parts, c.Request.URL.RawQuery)
	}

	if userID != uuid.Nil {
		parts = append(parts, userID.String())
	}

	return strings.Join(parts, ":")
}
