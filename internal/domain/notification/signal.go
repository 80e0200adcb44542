package notification

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SignalRepository fans notifications out to in-process subscribers, one
// topic per user. The websocket handler bridges these channels to clients.
type SignalRepository interface {
	// Subscribe subscribes to a topic and returns a channel for notifications
	Subscribe(topic string) (<-chan *Notification, func(), error)

	// Publish publishes a notification to a topic
	Publish(topic string, notification *Notification) error
}

type signalRepository struct {
	mutex     sync.Mutex
	topics    map[string]map[string]chan *Notification
	topicSize int
	logger    *logrus.Logger
}

// NewSignalRepository creates a new signal repository
func NewSignalRepository(topicSize int, logger *logrus.Logger) SignalRepository {
	return &signalRepository{
		topics:    make(map[string]map[string]chan *Notification),
		topicSize: topicSize,
		logger:    logger,
	}
}

// Subscribe subscribes to a topic
func (r *signalRepository) Subscribe(topic string) (<-chan *Notification, func(), error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.topics[topic]; !exists {
		r.topics[topic] = make(map[string]chan *Notification)
	}

	ch := make(chan *Notification, r.topicSize)
	subscriberID := uuid.New().String()
	r.topics[topic][subscriberID] = ch

	cancel := func() {
		r.mutex.Lock()
		defer r.mutex.Unlock()

		if topicMap, exists := r.topics[topic]; exists {
			delete(topicMap, subscriberID)
			if len(topicMap) == 0 {
				delete(r.topics, topic)
			}
		}
		close(ch)
	}

	return ch, cancel, nil
}

// Publish publishes a notification to a topic
func (r *signalRepository) Publish(topic string, notification *Notification) error {
	r.mutex.Lock()

	if _, exists := r.topics[topic]; !exists {
		r.mutex.Unlock()
		return nil // No subscribers yet, so nothing to do
	}

	// Copy the subscriber channels so we can send without holding the lock
	subscribers := make([]chan *Notification, 0, len(r.topics[topic]))
	for _, ch := range r.topics[topic] {
		subscribers = append(subscribers, ch)
	}
	r.mutex.Unlock()

	if len(subscribers) > 0 {
		r.logger.WithFields(logrus.Fields{
			"notification_id": notification.ID,
			"topic":           topic,
			"subscribers":     len(subscribers),
		}).Debug("Publishing notification to subscribers")
	}

	for _, ch := range subscribers {
		go func(channel chan *Notification) {
			select {
			case channel <- notification:
			case <-time.After(100 * time.Millisecond):
				r.logger.WithFields(logrus.Fields{
					"notification_id": notification.ID,
					"topic":           topic,
				}).Warn("Failed to deliver notification to subscriber (channel full or blocked)")
			}
		}(ch)
	}

	return nil
}
