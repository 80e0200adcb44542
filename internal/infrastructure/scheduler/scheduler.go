package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/tomoki33/ordo-backend/internal/domain/analytics"
	"github.com/tomoki33/ordo-backend/internal/domain/events"
	"github.com/tomoki33/ordo-backend/internal/domain/expiration"
	"github.com/tomoki33/ordo-backend/internal/domain/notification"
	"github.com/tomoki33/ordo-backend/internal/domain/product"
	"github.com/tomoki33/ordo-backend/internal/infrastructure/cache"
	"github.com/tomoki33/ordo-backend/pkg/logger"
	"go.uber.org/zap"
)

// Scheduler drives the background maintenance loops: nightly event-log
// cleanup, periodic full analysis passes and alert-to-notification refreshes.
type Scheduler struct {
	engine           *analytics.Engine
	expirations      *expiration.Service
	notifications    notification.Service
	products         product.Repository
	bus              *cache.RedisClient
	analysisInterval time.Duration
	logger           *logger.Logger
}

func NewScheduler(
	engine *analytics.Engine,
	expirations *expiration.Service,
	notifications notification.Service,
	products product.Repository,
	bus *cache.RedisClient,
	analysisInterval time.Duration,
	log *logger.Logger,
) *Scheduler {
	if analysisInterval <= 0 {
		analysisInterval = 6 * time.Hour
	}
	return &Scheduler{
		engine:           engine,
		expirations:      expirations,
		notifications:    notifications,
		products:         products,
		bus:              bus,
		analysisInterval: analysisInterval,
		logger:           log,
	}
}

func (s *Scheduler) Start() {
	// Run immediately at startup
	s.runAnalysisPass()
	s.refreshAlerts()

	go s.scheduleAnalysis()
	go s.scheduleAlertRefresh()

	// Calculate time until next midnight
	now := time.Now()
	nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	timeUntilMidnight := nextMidnight.Sub(now)

	s.logger.Info("Scheduler initialized",
		zap.Time("current_time", now),
		zap.Time("next_cleanup", nextMidnight),
		zap.Duration("analysis_interval", s.analysisInterval),
	)

	go func() {
		// Wait until first midnight
		time.Sleep(timeUntilMidnight)

		// Then run every 24 hours
		ticker := time.NewTicker(24 * time.Hour)
		for range ticker.C {
			s.runCleanup()
		}
	}()
}

func (s *Scheduler) scheduleAnalysis() {
	ticker := time.NewTicker(s.analysisInterval)
	for range ticker.C {
		s.runAnalysisPass()
	}
}

// scheduleAlertRefresh pushes alert notifications at fixed hours of the day
func (s *Scheduler) scheduleAlertRefresh() {
	refreshHours := []int{8, 12, 18}

	ticker := time.NewTicker(1 * time.Hour)
	for range ticker.C {
		currentHour := time.Now().Hour()
		for _, refreshHour := range refreshHours {
			if currentHour == refreshHour {
				s.refreshAlerts()
				break
			}
		}
	}
}

func (s *Scheduler) runCleanup() {
	ctx := context.Background()
	startTime := time.Now()

	s.logger.Info("Starting nightly event-log cleanup", zap.Time("start_time", startTime))

	removed, err := s.engine.CleanupOldData(ctx)
	if err != nil {
		s.logger.Error("Failed to clean up old usage events", zap.Error(err))
	} else {
		s.logger.Info("Successfully cleaned up old usage events",
			zap.Int("removed", removed),
		)
	}

	// Re-derive patterns after pruning so none reference dropped events
	s.runAnalysisPass()

	s.logger.Info("Completed nightly cleanup",
		zap.Duration("duration", time.Since(startTime)),
	)
}

func (s *Scheduler) runAnalysisPass() {
	ctx := context.Background()
	startTime := time.Now()

	err := s.engine.AnalyzeConsumptionPatterns(ctx)
	if err != nil {
		if errors.Is(err, analytics.ErrAnalysisInProgress) {
			s.logger.Warn("Skipping scheduled analysis, a pass is already running")
			return
		}
		s.logger.Error("Scheduled analysis pass failed", zap.Error(err))
		return
	}

	// Announce the pass on the inventory bus so every instance drops its
	// cached analytics responses.
	if s.bus != nil {
		event := &events.InventoryEvent{
			EventType: events.InventoryEventAnalysisDone,
			Timestamp: time.Now().UTC(),
		}
		if err := s.bus.PublishInventoryEvent(ctx, event); err != nil {
			s.logger.Error("Failed to publish analysis event", zap.Error(err))
		}
	}

	s.logger.Info("Completed scheduled analysis pass",
		zap.Duration("duration", time.Since(startTime)),
	)
}

// refreshAlerts recomputes expiration alerts per user and fans them out as
// notifications. Failures for one user do not stop the others.
func (s *Scheduler) refreshAlerts() {
	ctx := context.Background()
	startTime := time.Now()

	userIDs, err := s.products.DistinctUserIDs(ctx)
	if err != nil {
		s.logger.Error("Failed to list users for alert refresh", zap.Error(err))
		return
	}

	minSeverity := s.expirations.Settings().NotifyMinSeverity
	totalCreated := 0
	for _, userID := range userIDs {
		alerts, err := s.expirations.CalculateAlerts(ctx, userID)
		if err != nil {
			s.logger.Error("Failed to calculate alerts",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			continue
		}

		batches, err := s.expirations.BatchAlerts(ctx, userID)
		if err != nil {
			s.logger.Error("Failed to calculate batch alerts",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		} else {
			alerts = append(alerts, batches...)
		}

		created, err := s.notifications.NotifyAlerts(ctx, userID, alerts, minSeverity)
		if err != nil {
			s.logger.Error("Failed to create alert notifications",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			continue
		}
		totalCreated += created
	}

	s.logger.Info("Completed alert refresh",
		zap.Int("users", len(userIDs)),
		zap.Int("notifications_created", totalCreated),
		zap.Duration("duration", time.Since(startTime)),
	)
}
