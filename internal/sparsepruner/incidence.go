package sparsepruner

import (
	"sync"
	"time"
)

// IncidenceTracker maintains the required-edge set A from §4.3: any edge
// touching a concept that appeared in a concept.delta event within the
// configured retention window. It is fed by the pruner's bus subscriber,
// never by direct matrix access.
type IncidenceTracker struct {
	mu     sync.Mutex
	window time.Duration
	events []touchEvent
	now    func() time.Time
}

type touchEvent struct {
	concepts []uint64
	at       time.Time
}

// NewIncidenceTracker builds a tracker retaining touches for window.
func NewIncidenceTracker(window time.Duration) *IncidenceTracker {
	return &IncidenceTracker{window: window, now: time.Now}
}

// Record registers a concept.delta event's changed concepts as "touched"
// as of the current time.
func (t *IncidenceTracker) Record(concepts []uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, touchEvent{concepts: concepts, at: t.now()})
	t.evictLocked()
}

// Touched reports whether either endpoint of (i,j) appeared in a
// concept.delta within the retention window, i.e. whether (i,j) ∈ A.
func (t *IncidenceTracker) Touched(i, j uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.evictLocked()
	for _, ev := range t.events {
		for _, c := range ev.concepts {
			if c == i || c == j {
				return true
			}
		}
	}
	return false
}

func (t *IncidenceTracker) evictLocked() {
	if t.window <= 0 {
		return
	}
	cutoff := t.now().Add(-t.window)
	n := 0
	for _, ev := range t.events {
		if ev.at.After(cutoff) {
			t.events[n] = ev
			n++
		}
	}
	t.events = t.events[:n]
}
