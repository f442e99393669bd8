package oscillator

import (
	"context"
	"fmt"
	"time"

	"github.com/tori/consolidation/internal/circuitbreaker"
	"github.com/tori/consolidation/internal/config"
	"github.com/tori/consolidation/internal/eventbus"
)

// Relay subscribes to coupling.update on the bus and forwards every
// message to a Dispatcher, guarded by circuitbreaker.OscillatorDelivery so
// a wedged oscillator substrate can't back up KoopmanLearner's publishes.
type Relay struct {
	bus        eventbus.Bus
	dispatcher Dispatcher
	cb         *circuitbreaker.CircuitBreaker
	dropped    uint64
}

// New builds a Relay from cfg, selecting CloudDispatcher or MemDispatcher
// per cfg.Backend. cb is shared with the rest of the pipeline's breakers
// (PipelineCircuitBreakers.OscillatorDelivery).
func New(bus eventbus.Bus, cfg config.OscillatorConfig, cb *circuitbreaker.CircuitBreaker) (*Relay, error) {
	var d Dispatcher
	switch cfg.Backend {
	case "cloud-tasks":
		cd, err := NewCloudDispatcher(cfg.GCPProjectID, cfg.GCPLocationID, cfg.GCPQueueID, cfg.WebhookURL, cfg.WebhookSecret, cfg.FallbackWorkers, cfg.QueueCapacity)
		if err != nil {
			return nil, err
		}
		d = cd
	case "memory", "":
		d = NewMemDispatcher(cfg.WebhookURL, cfg.WebhookSecret, cfg.FallbackWorkers, cfg.QueueCapacity)
	default:
		return nil, fmt.Errorf("oscillator: unknown backend %q", cfg.Backend)
	}
	return &Relay{bus: bus, dispatcher: d, cb: cb}, nil
}

// Run consumes coupling.update until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ch, unsub := r.bus.Subscribe(eventbus.TopicCouplingUpdate)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			r.dispatcher.Shutdown()
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			r.relay(ev)
		}
	}
}

func (r *Relay) relay(ev *eventbus.Event) {
	update := fromEvent(ev)
	_, err := circuitbreaker.ExecuteWithFallback(r.cb,
		func() (struct{}, error) { return struct{}{}, r.dispatcher.Emit(update) },
		func(err error) (struct{}, error) { return struct{}{}, err },
	)
	if err != nil {
		r.dropped++
	}
}

// DroppedCount returns the number of coupling updates that failed delivery
// (circuit open or dispatcher error), for telemetry.
func (r *Relay) DroppedCount() uint64 {
	return r.dropped
}

func fromEvent(ev *eventbus.Event) *CouplingUpdate {
	update := &CouplingUpdate{ID: ev.ID, Timestamp: ev.Time}
	if v, ok := ev.Data["mode_id"].(string); ok {
		update.ModeID = v
	}
	if v, ok := ev.Data["eigenvalue_re"].(float64); ok {
		update.EigenvalueRe = v
	}
	if v, ok := ev.Data["eigenvalue_im"].(float64); ok {
		update.EigenvalueIm = v
	}
	if v, ok := ev.Data["stability"].(float64); ok {
		update.Stability = v
	}
	if v, ok := ev.Data["coefficients_diff"].(map[uint64]float64); ok {
		update.Coefficients = v
	}
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now()
	}
	return update
}
