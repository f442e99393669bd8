// Package sleepscheduler implements the SleepScheduler (S): it transforms
// batches of episodes fetched from the EpisodicVault into incremental
// updates to the shared concept-coupling matrix W via simulated-annealing
// wake-sleep consolidation, holding total energy non-increasing in
// expectation.
package sleepscheduler

import "sync"

// edgeKey identifies one entry of the symmetric W matrix. i < j always;
// W is stored upper-triangular and mirrored on read.
type edgeKey struct {
	I, J uint64
}

// Matrix is a symmetric sparse adjacency over concept ids, versioned so
// SparsePruner and KoopmanLearner can read a consistent snapshot while S
// holds the single in-process writer lock.
type Matrix struct {
	mu      sync.RWMutex
	edges   map[edgeKey]float64
	version uint64
}

// NewMatrix creates an empty W at version 0.
func NewMatrix() *Matrix {
	return &Matrix{edges: make(map[edgeKey]float64)}
}

func key(i, j uint64) edgeKey {
	if i > j {
		i, j = j, i
	}
	return edgeKey{I: i, J: j}
}

// Get returns W[i,j] (0 if absent). Self-edges are always 0: the diagonal
// is zeroed by every update.
func (m *Matrix) Get(i, j uint64) float64 {
	if i == j {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.edges[key(i, j)]
}

// Set assigns W[i,j] = w, removing the edge entirely when w == 0 so the
// sparse map never accumulates explicit zeros. Self-edges are ignored.
func (m *Matrix) Set(i, j uint64, w float64) {
	if i == j {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(i, j)
	if w == 0 {
		delete(m.edges, k)
	} else {
		m.edges[k] = w
	}
}

// NNZ returns the number of nonzero edges (‖W‖₀, counting each undirected
// edge once).
func (m *Matrix) NNZ() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.edges)
}

// Version returns the current snapshot version.
func (m *Matrix) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Snapshot returns a deep copy of the current edge set and its version,
// for wait-free reads by P and K and for S's own pre-cycle rollback point.
func (m *Matrix) Snapshot() (map[edgeKey]float64, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := make(map[edgeKey]float64, len(m.edges))
	for k, v := range m.edges {
		cp[k] = v
	}
	return cp, m.version
}

// Restore replaces the edge set wholesale and bumps the version; the
// scheduler's energy-drift rollback uses it. SparsePruner's Revert goes
// through ApplyEdgeDiff instead.
func (m *Matrix) Restore(edges map[edgeKey]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[edgeKey]float64, len(edges))
	for k, v := range edges {
		cp[k] = v
	}
	m.edges = cp
	m.version++
}

// Each calls fn for every nonzero edge. fn must not mutate m.
func (m *Matrix) Each(fn func(i, j uint64, w float64)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k, w := range m.edges {
		fn(k.I, k.J, w)
	}
}

// bumpVersion is called by the writer after a batch of Set calls to publish
// a new consistent snapshot in one step.
func (m *Matrix) bumpVersion() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version++
}
