package oscillator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tori/consolidation/internal/circuitbreaker"
	"github.com/tori/consolidation/internal/eventbus"
)

type recordingDispatcher struct {
	mu      sync.Mutex
	updates []*CouplingUpdate
	fail    bool
}

func (d *recordingDispatcher) Emit(update *CouplingUpdate) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return assert.AnError
	}
	d.updates = append(d.updates, update)
	return nil
}

func (d *recordingDispatcher) Shutdown() {}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.updates)
}

func TestRelayForwardsCouplingUpdates(t *testing.T) {
	bus := eventbus.NewMemBus(8)
	rec := &recordingDispatcher{}
	cb := circuitbreaker.New(circuitbreaker.DefaultConfig("test-oscillator"))
	r := &Relay{bus: bus, dispatcher: rec, cb: cb}

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	defer cancel()

	bus.Publish(eventbus.TopicCouplingUpdate, map[string]any{
		"mode_id":       "mode-1",
		"eigenvalue_re": 0.9,
		"stability":     0.8,
	})

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRelayCountsDroppedOnDispatchError(t *testing.T) {
	bus := eventbus.NewMemBus(8)
	rec := &recordingDispatcher{fail: true}
	cb := circuitbreaker.New(circuitbreaker.DefaultConfig("test-oscillator-2"))
	r := &Relay{bus: bus, dispatcher: rec, cb: cb}

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	defer cancel()

	bus.Publish(eventbus.TopicCouplingUpdate, map[string]any{"mode_id": "mode-2"})

	require.Eventually(t, func() bool { return r.DroppedCount() > 0 }, time.Second, 5*time.Millisecond)
}
