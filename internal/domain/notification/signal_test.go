package notification

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSignalPublishWithoutSubscribers(t *testing.T) {
	signals := NewSignalRepository(10, quietLogger())

	n := &Notification{ID: uuid.New(), Title: "nobody listening"}
	assert.NoError(t, signals.Publish("some-user", n))
}

func TestSignalFanOut(t *testing.T) {
	signals := NewSignalRepository(10, quietLogger())
	topic := uuid.New().String()

	first, cancelFirst, err := signals.Subscribe(topic)
	assert.NoError(t, err)
	defer cancelFirst()

	second, cancelSecond, err := signals.Subscribe(topic)
	assert.NoError(t, err)
	defer cancelSecond()

	n := &Notification{ID: uuid.New(), Title: "fan out"}
	assert.NoError(t, signals.Publish(topic, n))

	for _, ch := range []<-chan *Notification{first, second} {
		select {
		case received := <-ch:
			assert.Equal(t, n.ID, received.ID)
		case <-time.After(time.Second):
			t.Fatal("expected every subscriber to receive the notification")
		}
	}
}

func TestSignalTopicsAreIsolated(t *testing.T) {
	signals := NewSignalRepository(10, quietLogger())

	mine, cancelMine, err := signals.Subscribe("user-a")
	assert.NoError(t, err)
	defer cancelMine()

	theirs, cancelTheirs, err := signals.Subscribe("user-b")
	assert.NoError(t, err)
	defer cancelTheirs()

	assert.NoError(t, signals.Publish("user-a", &Notification{ID: uuid.New()}))

	select {
	case <-mine:
	case <-time.After(time.Second):
		t.Fatal("expected the topic subscriber to receive the notification")
	}

	select {
	case n := <-theirs:
		t.Fatalf("unexpected notification on another topic: %v", n.ID)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSignalCancelClosesChannel(t *testing.T) {
	signals := NewSignalRepository(10, quietLogger())

	ch, cancel, err := signals.Subscribe("user-a")
	assert.NoError(t, err)

	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Publishing after the last cancel is a no-op
	assert.NoError(t, signals.Publish("user-a", &Notification{ID: uuid.New()}))
}
