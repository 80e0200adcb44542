package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tomoki33/ordo-backend/internal/api/dto"
	"github.com/tomoki33/ordo-backend/internal/api/middleware"
	"github.com/tomoki33/ordo-backend/internal/domain/analytics"
)

// AnalyticsHandler handles HTTP requests for consumption analytics
type AnalyticsHandler struct {
	engine *analytics.Engine
}

// NewAnalyticsHandler creates a new AnalyticsHandler instance
func NewAnalyticsHandler(engine *analytics.Engine) *AnalyticsHandler {
	return &AnalyticsHandler{engine: engine}
}

// RecordEvent handles POST /api/analytics/events
func (h *AnalyticsHandler) RecordEvent(c *gin.Context) {
	var req dto.RecordUsageEventRequest
	if validatedModel, exists := c.Get("validated_model"); exists {
		if validatedPtr, ok := validatedModel.(*dto.RecordUsageEventRequest); ok {
			req = *validatedPtr
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid model type from validation"})
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	event, err := h.engine.RecordUsageEvent(c.Request.Context(), analytics.RecordUsageEventInput{
		UserID:      userID,
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		Category:    req.Category,
		Action:      req.Action,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		Tags:        req.Tags,
		Metadata:    req.Metadata,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": UsageEventToResponse(event)})
}

// GetHistory handles GET /api/analytics/events
func (h *AnalyticsHandler) GetHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	productID := uuid.Nil
	if idStr := c.Query("product_id"); idStr != "" {
		productID, err = uuid.Parse(idStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
			return
		}
	}

	events := h.engine.UsageHistory(productID, limit)
	responses := make([]dto.UsageEventResponse, len(events))
	for i := range events {
		responses[i] = UsageEventToResponse(&events[i])
	}

	c.JSON(http.StatusOK, gin.H{"data": dto.UsageHistoryResponse{
		Events: responses,
		Count:  len(responses),
	}})
}

// RunAnalysis handles POST /api/analytics/analyze
func (h *AnalyticsHandler) RunAnalysis(c *gin.Context) {
	if err := h.engine.AnalyzeConsumptionPatterns(c.Request.Context()); err != nil {
		if errors.Is(err, analytics.ErrAnalysisInProgress) {
			middleware.ObserveAnalysisRun("conflict")
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		middleware.ObserveAnalysisRun("error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	middleware.ObserveAnalysisRun("success")
	c.JSON(http.StatusOK, gin.H{"message": "analysis completed"})
}

// GetAnalysisStatus handles GET /api/analytics/analyze/status
func (h *AnalyticsHandler) GetAnalysisStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": dto.AnalysisStatusResponse{
		Running: h.engine.AnalysisInProgress(),
	}})
}

// GetPatterns handles GET /api/analytics/patterns
func (h *AnalyticsHandler) GetPatterns(c *gin.Context) {
	patterns := h.engine.Patterns()
	responses := make([]dto.ConsumptionPatternResponse, len(patterns))
	for i := range patterns {
		responses[i] = PatternToResponse(&patterns[i])
	}
	c.JSON(http.StatusOK, gin.H{"data": responses})
}

// GetPattern handles GET /api/analytics/patterns/:product_id
func (h *AnalyticsHandler) GetPattern(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return
	}

	pattern, ok := h.engine.PatternFor(productID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pattern computed for product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": PatternToResponse(pattern)})
}

// GetSeasonalPatterns handles GET /api/analytics/seasonal
func (h *AnalyticsHandler) GetSeasonalPatterns(c *gin.Context) {
	patterns := h.engine.SeasonalPatterns()
	responses := make([]dto.SeasonalPatternResponse, len(patterns))
	for i := range patterns {
		responses[i] = SeasonalPatternToResponse(&patterns[i])
	}
	c.JSON(http.StatusOK, gin.H{"data": responses})
}

// GetSettings handles GET /api/analytics/settings
func (h *AnalyticsHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.engine.Settings()})
}

// UpdateSettings handles PUT /api/analytics/settings
func (h *AnalyticsHandler) UpdateSettings(c *gin.Context) {
	var req dto.AnalyticsSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings := analytics.Settings{
		DataRetentionDays:             req.DataRetentionDays,
		MinDataPoints:                 req.MinDataPoints,
		SeasonalityDetectionThreshold: req.SeasonalityDetectionThreshold,
		EnableRealTimeAnalysis:        req.EnableRealTimeAnalysis,
	}
	if err := h.engine.UpdateSettings(c.Request.Context(), settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": h.engine.Settings()})
}

// Cleanup handles POST /api/analytics/cleanup
func (h *AnalyticsHandler) Cleanup(c *gin.Context) {
	removed, err := h.engine.CleanupOldData(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
