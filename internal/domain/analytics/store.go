package analytics

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tomoki33/ordo-backend/internal/infrastructure/persistence/kv"
	"go.uber.org/zap"
)

// EventStore keeps the usage-event log in memory and mirrors it to the
// key-value store. The whole log is rewritten on every append; there is no
// append-only file format behind it.
type EventStore struct {
	mu     sync.RWMutex
	events []UsageEvent
	codec  *kv.Codec
	logger *zap.Logger
}

func NewEventStore(codec *kv.Codec, logger *zap.Logger) *EventStore {
	return &EventStore{
		codec:  codec,
		logger: logger,
	}
}

// Load hydrates the in-memory log from the key-value store. Missing or
// corrupt payloads load as an empty log.
func (s *EventStore) Load(ctx context.Context) error {
	var events []UsageEvent
	err := s.codec.Load(ctx, keyUsageEvents, &events)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			return err
		}
		events = nil
	}

	s.mu.Lock()
	s.events = events
	s.mu.Unlock()

	s.logger.Info("Usage event log loaded", zap.Int("events", len(events)))
	return nil
}

// newEventID builds a timestamp-plus-random-suffix identifier. Collisions are
// possible in principle but need two events in the same nanosecond with the
// same suffix.
func newEventID(now time.Time) string {
	return fmt.Sprintf("%d_%06d", now.UnixNano(), rand.Intn(1000000))
}

// Record fills in the derived fields of the event and appends it to the log.
// The full log is persisted before the call returns; a persistence failure is
// logged but the in-memory append is not rolled back.
func (s *EventStore) Record(ctx context.Context, input RecordUsageEventInput) (*UsageEvent, error) {
	now := time.Now()

	event := UsageEvent{
		ID:          newEventID(now),
		UserID:      input.UserID,
		ProductID:   input.ProductID,
		ProductName: input.ProductName,
		Category:    input.Category,
		Action:      input.Action,
		Quantity:    input.Quantity,
		Unit:        input.Unit,
		Timestamp:   now,
		DayOfWeek:   int(now.Weekday()),
		HourOfDay:   now.Hour(),
		SeasonID:    SeasonForMonth(now.Month()),
		Tags:        input.Tags,
		Metadata:    input.Metadata,
	}

	s.mu.Lock()
	s.events = append(s.events, event)
	snapshot := make([]UsageEvent, len(s.events))
	copy(snapshot, s.events)
	s.mu.Unlock()

	if err := s.codec.Save(ctx, keyUsageEvents, snapshot); err != nil {
		s.logger.Error("Failed to persist usage event log",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
	}

	return &event, nil
}

// History returns events sorted by timestamp descending, optionally filtered
// by product and capped at limit (0 means no cap).
func (s *EventStore) History(productID uuid.UUID, limit int) []UsageEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]UsageEvent, 0, len(s.events))
	for _, e := range s.events {
		if productID != uuid.Nil && e.ProductID != productID {
			continue
		}
		result = append(result, e)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// Snapshot returns a copy of all events in insertion order.
func (s *EventStore) Snapshot() []UsageEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]UsageEvent, len(s.events))
	copy(snapshot, s.events)
	return snapshot
}

// EventsForProduct returns the product's events in insertion order.
func (s *EventStore) EventsForProduct(productID uuid.UUID) []UsageEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []UsageEvent
	for _, e := range s.events {
		if e.ProductID == productID {
			result = append(result, e)
		}
	}
	return result
}

// Count returns the number of events in the log.
func (s *EventStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// CleanupOldData removes events older than the retention horizon and persists
// the pruned log. One-shot; the scheduler invokes it periodically.
func (s *EventStore) CleanupOldData(ctx context.Context, retentionDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	s.mu.Lock()
	kept := s.events[:0]
	for _, e := range s.events {
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		}
	}
	removed := len(s.events) - len(kept)
	s.events = kept
	snapshot := make([]UsageEvent, len(s.events))
	copy(snapshot, s.events)
	s.mu.Unlock()

	if removed > 0 {
		if err := s.codec.Save(ctx, keyUsageEvents, snapshot); err != nil {
			return removed, err
		}
	}
	return removed, nil
}
