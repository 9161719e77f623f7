package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerDeliversToSubscribers(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	require.Equal(t, 1, b.SubscriberCount())

	b.Publish(&Event{
		Type:    EventTaskDispatched,
		TaskID:  "t1",
		Worker:  "w:9",
		Message: "scheduled",
	})

	select {
	case event := <-sub:
		assert.Equal(t, EventTaskDispatched, event.Type)
		assert.Equal(t, "t1", event.TaskID)
		assert.Equal(t, "w:9", event.Worker)
		assert.False(t, event.Timestamp.IsZero(), "timestamp is stamped on publish")
		assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", event.ID.String())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount())

	_, open := <-sub
	assert.False(t, open)
}

func TestBrokerSkipsFullSubscribers(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()

	// Overflow the subscriber buffer; the broker must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			b.Publish(&Event{Type: EventTaskSubmitted})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broker blocked on a full subscriber")
	}

	// The subscriber still drains what fit in its buffer.
	select {
	case <-sub:
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}
