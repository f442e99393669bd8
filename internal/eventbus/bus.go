// Package eventbus implements the broadcast publish/subscribe fabric that
// connects the four pipeline services on the five topics of the wire
// interface: episode.created, concept.delta, activation.trace, graph.pruned,
// and coupling.update. There is no durable log: late subscribers miss prior
// messages, and delivery is at-least-once, best-effort ordered per publisher.
package eventbus

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Topic names of the wire interface.
const (
	TopicEpisodeCreated   = "episode.created"
	TopicConceptDelta     = "concept.delta"
	TopicActivationTrace  = "activation.trace"
	TopicGraphPruned      = "graph.pruned"
	TopicCouplingUpdate   = "coupling.update"
)

// Event is the envelope delivered to every subscriber. Data carries the
// topic-specific payload as already-marshalable fields; consumers type-assert
// or re-marshal as needed, matching the bus's role as an opaque notification
// channel rather than a typed RPC.
type Event struct {
	Topic string         `json:"topic"`
	ID    string         `json:"id"`
	Time  time.Time      `json:"time"`
	Data  map[string]any `json:"data"`
}

// JSON serializes the event.
func (e *Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}

func newEvent(topic string, seq uint64, data map[string]any) *Event {
	return &Event{
		Topic: topic,
		ID:    fmt.Sprintf("evt-%s-%d", topic, seq),
		Time:  time.Now(),
		Data:  data,
	}
}

// Bus is the publish/subscribe contract shared by every backend (in-memory,
// Redis, GCP Pub/Sub). Publish never blocks the caller on a slow subscriber.
type Bus interface {
	Publish(topic string, data map[string]any)
	Subscribe(topics ...string) (<-chan *Event, func())
	SubscriberCount() int
	DroppedCount() uint64
	Close() error
}

// MemBus is an in-process pub/sub bus with a bounded delivery queue per
// subscriber. On overflow the oldest queued event for that subscriber is
// dropped to make room for the new one, and the drop is counted so it is
// observable in metrics — queues never grow unbounded and a slow subscriber
// never blocks a fast publisher.
type MemBus struct {
	mu          sync.Mutex
	subscribers map[string][]*subscription // topic -> subs
	allSubs     []*subscription
	bufferSize  int
	seq         uint64
	dropped     uint64
}

type subscription struct {
	ch     chan *Event
	mu     sync.Mutex
	closed bool
}

// NewMemBus creates an in-memory bus with the given per-subscriber queue
// capacity.
func NewMemBus(bufferSize int) *MemBus {
	if bufferSize <= 0 {
		bufferSize = 128
	}
	return &MemBus{
		subscribers: make(map[string][]*subscription),
		bufferSize:  bufferSize,
	}
}

// Subscribe returns a channel receiving events on the given topics (all
// topics if none given) and an unsubscribe function. The returned channel is
// closed once unsubscribe runs.
func (b *MemBus) Subscribe(topics ...string) (<-chan *Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{ch: make(chan *Event, b.bufferSize)}

	if len(topics) == 0 {
		b.allSubs = append(b.allSubs, sub)
	} else {
		for _, t := range topics {
			b.subscribers[t] = append(b.subscribers[t], sub)
		}
	}

	unsubscribe := func() { b.unsubscribe(sub, topics) }
	return sub.ch, unsubscribe
}

func (b *MemBus) unsubscribe(sub *subscription, topics []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(topics) == 0 {
		b.allSubs = removeSub(b.allSubs, sub)
	} else {
		for _, t := range topics {
			b.subscribers[t] = removeSub(b.subscribers[t], sub)
		}
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}

func removeSub(subs []*subscription, target *subscription) []*subscription {
	filtered := make([]*subscription, 0, len(subs))
	for _, s := range subs {
		if s != target {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// deliver pushes ev to sub, dropping the oldest queued event on overflow.
func (b *MemBus) deliver(sub *subscription, ev *Event) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	for {
		select {
		case sub.ch <- ev:
			return
		default:
		}
		select {
		case <-sub.ch:
			b.mu.Lock()
			b.dropped++
			b.mu.Unlock()
		default:
			return
		}
	}
}

// Publish delivers data on topic to every matching subscriber. Never blocks.
func (b *MemBus) Publish(topic string, data map[string]any) {
	b.mu.Lock()
	b.seq++
	ev := newEvent(topic, b.seq, data)
	topicSubs := append([]*subscription(nil), b.subscribers[topic]...)
	all := append([]*subscription(nil), b.allSubs...)
	b.mu.Unlock()

	for _, sub := range topicSubs {
		b.deliver(sub, ev)
	}
	for _, sub := range all {
		b.deliver(sub, ev)
	}
}

// SubscriberCount returns the number of active subscriptions across all topics.
func (b *MemBus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := len(b.allSubs)
	for _, subs := range b.subscribers {
		count += len(subs)
	}
	return count
}

// DroppedCount returns the cumulative number of events dropped due to a full
// subscriber queue.
func (b *MemBus) DroppedCount() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close unsubscribes and closes every outstanding subscription channel.
func (b *MemBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[*subscription]bool)
	for _, subs := range b.subscribers {
		for _, s := range subs {
			seen[s] = true
		}
	}
	for _, s := range b.allSubs {
		seen[s] = true
	}
	for s := range seen {
		s.mu.Lock()
		if !s.closed {
			s.closed = true
			close(s.ch)
		}
		s.mu.Unlock()
	}
	b.subscribers = make(map[string][]*subscription)
	b.allSubs = nil
	return nil
}
