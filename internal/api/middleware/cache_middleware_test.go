package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/tomoki33/ordo-backend/internal/domain/events"
)

func TestInvalidationPatternsFor(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		expected  []string
	}{
		{
			name:      "product mutation clears product and analytics caches",
			eventType: events.InventoryEventCacheInvalidate,
			expected:  []string{"products:*", "analytics:*"},
		},
		{
			name:      "completed analysis pass clears analytics caches",
			eventType: events.InventoryEventAnalysisDone,
			expected:  []string{"analytics:*"},
		},
		{
			name:      "unknown event types clear nothing",
			eventType: "unrelated",
			expected:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, invalidationPatternsFor(tt.eventType))
		})
	}
}

func TestGenerateCacheKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := NewCacheMiddleware(nil, "ordo", 5*time.Minute)
	userID := uuid.New()
	productID := uuid.New()

	tests := []struct {
		name     string
		path     string
		query    string
		expected string
	}{
		{
			name:     "collection request keys on list",
			path:     "/api/products",
			expected: "ordo:products:list:" + userID.String(),
		},
		{
			name:     "resource request keys on id",
			path:     "/api/products/" + productID.String(),
			expected: "ordo:products:id:" + productID.String() + ":" + userID.String(),
		},
		{
			name:     "query string is part of the key",
			path:     "/api/products",
			query:    "category=dairy",
			expected: "ordo:products:list:category=dairy:" + userID.String(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			url := tt.path
			if tt.query != "" {
				url += "?" + tt.query
			}
			c.Request = httptest.NewRequest(http.MethodGet, url, nil)
			c.Set("user_id", userID)

			assert.Equal(t, tt.expected, m.generateCacheKey(c))
		})
	}
}
