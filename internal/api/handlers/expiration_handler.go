package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tomoki33/ordo-backend/internal/api/dto"
	"github.com/tomoki33/ordo-backend/internal/api/middleware"
	"github.com/tomoki33/ordo-backend/internal/domain/expiration"
	"github.com/tomoki33/ordo-backend/internal/domain/product"
)

// ExpirationHandler handles HTTP requests for expiration alerts and rules
type ExpirationHandler struct {
	service *expiration.Service
	rules   expiration.RuleRepository
}

// NewExpirationHandler creates a new ExpirationHandler instance
func NewExpirationHandler(service *expiration.Service, rules expiration.RuleRepository) *ExpirationHandler {
	return &ExpirationHandler{service: service, rules: rules}
}

// GetAlerts handles GET /api/expiration/alerts
func (h *ExpirationHandler) GetAlerts(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	alerts, err := h.service.CalculateAlerts(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	middleware.ObserveAlertCount(len(alerts))

	responses := make([]dto.AlertResponse, len(alerts))
	for i := range alerts {
		responses[i] = AlertToResponse(&alerts[i])
	}

	c.JSON(http.StatusOK, gin.H{"data": dto.AlertListResponse{
		Alerts: responses,
		Count:  len(responses),
	}})
}

// GetBatchAlerts handles GET /api/expiration/alerts/batch
func (h *ExpirationHandler) GetBatchAlerts(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	batches, err := h.service.BatchAlerts(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	responses := make([]dto.AlertResponse, len(batches))
	for i := range batches {
		responses[i] = AlertToResponse(&batches[i])
	}

	c.JSON(http.StatusOK, gin.H{"data": dto.AlertListResponse{
		Alerts: responses,
		Count:  len(responses),
	}})
}

// AcknowledgeAlert handles POST /api/expiration/alerts/:id/acknowledge
func (h *ExpirationHandler) AcknowledgeAlert(c *gin.Context) {
	alertID := c.Param("id")
	if alertID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "alert ID is required"})
		return
	}

	if err := h.service.AcknowledgeAlert(c.Request.Context(), alertID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "alert acknowledged"})
}

// GetSettings handles GET /api/expiration/settings
func (h *ExpirationHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.service.Settings()})
}

// UpdateSettings handles PUT /api/expiration/settings
func (h *ExpirationHandler) UpdateSettings(c *gin.Context) {
	var req dto.ExpirationSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings := expiration.Settings{
		ConsiderConsumptionPattern: req.ConsiderConsumptionPattern,
		BatchAlertThreshold:        req.BatchAlertThreshold,
		NotifyMinSeverity:          expiration.Severity(req.NotifyMinSeverity),
	}
	if err := h.service.UpdateSettings(c.Request.Context(), settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": h.service.Settings()})
}

func conditionsFromRequest(reqs []dto.RuleConditionRequest) []expiration.Condition {
	conditions := make([]expiration.Condition, len(reqs))
	for i, rc := range reqs {
		conditions[i] = expiration.Condition{
			Kind:        expiration.ConditionKind(rc.Kind),
			Category:    product.Category(rc.Category),
			Location:    product.Location(rc.Location),
			Brand:       rc.Brand,
			MaxQuantity: rc.MaxQuantity,
			MaxDays:     rc.MaxDays,
		}
	}
	return conditions
}

func actionFromRequest(req dto.RuleActionRequest) expiration.RuleAction {
	suggested := make([]expiration.ActionType, len(req.SuggestedActions))
	for i, a := range req.SuggestedActions {
		suggested[i] = expiration.ActionType(a)
	}
	return expiration.RuleAction{
		AlertType:        expiration.AlertType(req.AlertType),
		Severity:         expiration.Severity(req.Severity),
		SuggestedActions: suggested,
	}
}

// CreateRule handles POST /api/expiration/rules
func (h *ExpirationHandler) CreateRule(c *gin.Context) {
	var req dto.CreateRuleRequest
	if validatedModel, exists := c.Get("validated_model"); exists {
		if validatedPtr, ok := validatedModel.(*dto.CreateRuleRequest); ok {
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

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rule, err := expiration.EncodeRule(userID, req.Name, req.Priority, active,
		conditionsFromRequest(req.Conditions), actionFromRequest(req.Action))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.rules.Create(c.Request.Context(), rule); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response, err := RuleToResponse(rule)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": response})
}

// ListRules handles GET /api/expiration/rules
func (h *ExpirationHandler) ListRules(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	rules, err := h.rules.FindAllByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	responses := make([]dto.RuleResponse, 0, len(rules))
	for i := range rules {
		response, err := RuleToResponse(&rules[i])
		if err != nil {
			continue
		}
		responses = append(responses, *response)
	}

	c.JSON(http.StatusOK, gin.H{"data": responses})
}

// UpdateRule handles PUT /api/expiration/rules/:id
func (h *ExpirationHandler) UpdateRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule ID"})
		return
	}

	var req dto.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule, err := h.rules.FindByID(c.Request.Context(), id)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if err == expiration.ErrRuleNotFound {
			statusCode = http.StatusNotFound
		}
		c.JSON(statusCode, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
	if len(req.Conditions) > 0 {
		updated, err := expiration.EncodeRule(rule.UserID, rule.Name, rule.Priority, rule.Active,
			conditionsFromRequest(req.Conditions), expiration.RuleAction{})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rule.Conditions = updated.Conditions
	}
	if req.Action != nil {
		updated, err := expiration.EncodeRule(rule.UserID, rule.Name, rule.Priority, rule.Active,
			nil, actionFromRequest(*req.Action))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rule.Action = updated.Action
	}

	if err := h.rules.Update(c.Request.Context(), rule); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response, err := RuleToResponse(rule)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": response})
}

// DeleteRule handles DELETE /api/expiration/rules/:id
func (h *ExpirationHandler) DeleteRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule ID"})
		return
	}

	if err := h.rules.Delete(c.Request.Context(), id); err != nil {
		statusCode := http.StatusInternalServerError
		if err == expiration.ErrRuleNotFound {
			statusCode = http.StatusNotFound
		}
		c.JSON(statusCode, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "rule deleted successfully"})
}
