package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemBusDeliversToMatchingTopic(t *testing.T) {
	b := NewMemBus(4)
	defer b.Close()

	ch, unsub := b.Subscribe(TopicEpisodeCreated)
	defer unsub()

	b.Publish(TopicEpisodeCreated, map[string]any{"id": "ep-1"})
	b.Publish(TopicConceptDelta, map[string]any{"job_id": "job-1"})

	select {
	case ev := <-ch:
		assert.Equal(t, TopicEpisodeCreated, ev.Topic)
		assert.Equal(t, "ep-1", ev.Data["id"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	select {
	case ev := <-ch:
		t.Fatalf("unexpected second event delivered: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemBusWildcardSubscriber(t *testing.T) {
	b := NewMemBus(4)
	defer b.Close()

	ch, unsub := b.Subscribe()
	defer unsub()

	b.Publish(TopicGraphPruned, map[string]any{"prune_id": "p-1"})

	select {
	case ev := <-ch:
		assert.Equal(t, TopicGraphPruned, ev.Topic)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestMemBusDropsOldestOnOverflow(t *testing.T) {
	b := NewMemBus(2)
	defer b.Close()

	ch, unsub := b.Subscribe(TopicActivationTrace)
	defer unsub()

	for i := 0; i < 5; i++ {
		b.Publish(TopicActivationTrace, map[string]any{"n": i})
	}

	require.Equal(t, uint64(3), b.DroppedCount())

	var received []int
	for len(received) < 2 {
		select {
		case ev := <-ch:
			received = append(received, ev.Data["n"].(int))
		case <-time.After(time.Second):
			t.Fatal("timed out draining events")
		}
	}
	assert.Equal(t, []int{3, 4}, received)
}

func TestMemBusUnsubscribeClosesChannel(t *testing.T) {
	b := NewMemBus(4)
	defer b.Close()

	ch, unsub := b.Subscribe(TopicCouplingUpdate)
	unsub()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestNewBusDefaultsToMem(t *testing.T) {
	bus, err := NewBus(Config{QueueCapacity: 8})
	require.NoError(t, err)
	defer bus.Close()
	_, ok := bus.(*MemBus)
	assert.True(t, ok)
}

func TestNewBusRejectsUnknownBackend(t *testing.T) {
	_, err := NewBus(Config{Backend: "carrier-pigeon"})
	require.Error(t, err)
}
