package handlers

import (
	"github.com/tomoki33/ordo-backend/internal/api/dto"
	"github.com/tomoki33/ordo-backend/internal/domain/analytics"
	"github.com/tomoki33/ordo-backend/internal/domain/expiration"
	"github.com/tomoki33/ordo-backend/internal/domain/product"
)

// ProductToResponse converts a product entity into its API representation
func ProductToResponse(p *product.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:             p.ID,
		UserID:         p.UserID,
		Name:           p.Name,
		Category:       string(p.Category),
		Location:       string(p.Location),
		Brand:          p.Brand,
		Quantity:       p.Quantity,
		Unit:           p.Unit,
		ExpirationDate: p.ExpirationDate,
		PurchaseDate:   p.PurchaseDate,
		Tags:           p.Tags,
		Notes:          p.Notes,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// UsageEventToResponse converts a usage event into its API representation
func UsageEventToResponse(e *analytics.UsageEvent) dto.UsageEventResponse {
	return dto.UsageEventResponse{
		ID:          e.ID,
		UserID:      e.UserID,
		ProductID:   e.ProductID,
		ProductName: e.ProductName,
		Category:    e.Category,
		Action:      e.Action,
		Quantity:    e.Quantity,
		Unit:        e.Unit,
		Timestamp:   e.Timestamp,
		DayOfWeek:   e.DayOfWeek,
		HourOfDay:   e.HourOfDay,
		Season:      e.SeasonID.String(),
		Tags:        e.Tags,
		Metadata:    e.Metadata,
	}
}

// PatternToResponse converts a consumption pattern into its API representation
func PatternToResponse(p *analytics.ConsumptionPattern) dto.ConsumptionPatternResponse {
	return dto.ConsumptionPatternResponse{
		ProductID:                   p.ProductID,
		ProductName:                 p.ProductName,
		Category:                    p.Category,
		ConsumptionRate:             p.ConsumptionRate,
		QuantityVariance:            p.QuantityVariance,
		TotalConsumed:               p.TotalConsumed,
		EventCount:                  p.EventCount,
		PurchaseCount:               p.PurchaseCount,
		HourlyDistribution:          p.HourlyDistribution,
		DailyDistribution:           p.DailyDistribution,
		SeasonalDistribution:        p.SeasonalDistribution,
		AveragePurchaseIntervalDays: p.AveragePurchaseIntervalDays,
		PredictedNextPurchase:       p.PredictedNextPurchase,
		ConsumptionTrend:            p.ConsumptionTrend,
		SeasonalityStrength:         p.SeasonalityStrength,
		ConfidenceScore:             p.ConfidenceScore,
		DataQualityScore:            p.DataQualityScore,
		LastCalculated:              p.LastCalculated,
	}
}

// SeasonalPatternToResponse converts a seasonal pattern into its API representation
func SeasonalPatternToResponse(p *analytics.SeasonalPattern) dto.SeasonalPatternResponse {
	top := make([]dto.SeasonalProductResponse, len(p.TopProducts))
	for i, sp := range p.TopProducts {
		top[i] = dto.SeasonalProductResponse{
			ProductID:        sp.ProductID,
			ProductName:      sp.ProductName,
			SeasonalAverage:  sp.SeasonalAverage,
			OverallAverage:   sp.OverallAverage,
			RelativeIncrease: sp.RelativeIncrease,
			Confidence:       sp.Confidence,
		}
	}
	return dto.SeasonalPatternResponse{
		Season:         p.SeasonName,
		TopProducts:    top,
		CategoryDeltas: p.CategoryDeltas,
		CalculatedAt:   p.CalculatedAt,
	}
}

// AlertToResponse converts an expiration alert into its API representation
func AlertToResponse(a *expiration.Alert) dto.AlertResponse {
	actions := make([]dto.SuggestedActionResponse, len(a.SuggestedActions))
	for i, sa := range a.SuggestedActions {
		actions[i] = dto.SuggestedActionResponse{
			Type:        string(sa.Type),
			Title:       sa.Title,
			Description: sa.Description,
			Priority:    sa.Priority,
			Icon:        sa.Icon,
		}
	}
	return dto.AlertResponse{
		ID:                  a.ID,
		ProductID:           a.ProductID,
		ProductIDs:          a.ProductIDs,
		ProductName:         a.ProductName,
		Category:            string(a.Category),
		Location:            string(a.Location),
		AlertType:           string(a.AlertType),
		Severity:            string(a.Severity),
		DaysUntilExpiration: a.DaysUntilExpiration,
		Quantity:            a.Quantity,
		Priority:            a.Priority,
		SuggestedActions:    actions,
		Acknowledged:        a.Acknowledged,
		CreatedAt:           a.CreatedAt,
	}
}

// RuleToResponse converts an expiration rule into its API representation
func RuleToResponse(r *expiration.Rule) (*dto.RuleResponse, error) {
	conditions, err := r.DecodeConditions()
	if err != nil {
		return nil, err
	}
	action, err := r.DecodeAction()
	if err != nil {
		return nil, err
	}

	conditionDTOs := make([]dto.RuleConditionRequest, len(conditions))
	for i, c := range conditions {
		conditionDTOs[i] = dto.RuleConditionRequest{
			Kind:        string(c.Kind),
			Category:    string(c.Category),
			Location:    string(c.Location),
			Brand:       c.Brand,
			MaxQuantity: c.MaxQuantity,
			MaxDays:     c.MaxDays,
		}
	}
	suggested := make([]string, len(action.SuggestedActions))
	for i, a := range action.SuggestedActions {
		suggested[i] = string(a)
	}

	return &dto.RuleResponse{
		ID:         r.ID,
		UserID:     r.UserID,
		Name:       r.Name,
		Priority:   r.Priority,
		Active:     r.Active,
		Conditions: conditionDTOs,
		Action: dto.RuleActionRequest{
			AlertType:        string(action.AlertType),
			Severity:         string(action.Severity),
			SuggestedActions: suggested,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}
