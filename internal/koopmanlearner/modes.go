package koopmanlearner

import (
	"fmt"
	"math"
	"sync"

	"github.com/tori/consolidation/internal/config"
)

// Mode is a retained SpectralMode plus the bookkeeping needed for
// eigenvalue-proximity merge and eviction.
type Mode struct {
	ID           string
	Eig          complexEig
	Coefficients map[int]float64
	Stability    float64
	LastSeenAt   int64
	belowFloor   int // consecutive refreshes with stability < stability_floor
}

// ModeStore holds the current spectral mode set for one KoopmanLearner,
// merging new candidates by eigenvalue proximity and coefficient cosine
// similarity rather than accumulating duplicates per refresh.
type ModeStore struct {
	mu     sync.Mutex
	cfg    config.KoopmanConfig
	modes  map[string]*Mode
	nextID int
}

// NewModeStore creates an empty store governed by cfg's merge/eviction
// thresholds.
func NewModeStore(cfg config.KoopmanConfig) *ModeStore {
	return &ModeStore{cfg: cfg, modes: make(map[string]*Mode)}
}

// mergeResult reports what Merge did to the store, used by the caller to
// decide whether a coupling.update is worth publishing.
type mergeResult struct {
	mode    *Mode
	created bool
	delta   float64 // L2 norm of the coefficient change
}

// Merge folds one DMD candidate into the existing mode set: if an
// existing mode's eigenvalue is within eigen_merge_radius and its
// coefficients are cosine-similar above merge_cos_threshold, the
// candidate updates that mode via an EMA; otherwise it becomes a new
// mode.
func (s *ModeStore) Merge(c candidate, observedAt int64) mergeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.modes {
		if complexDistance(m.Eig, c.eig) > s.cfg.EigenMergeRadius {
			continue
		}
		if cosineSimilarity(m.Coefficients, c.coefficients) < s.cfg.MergeCosThreshold {
			continue
		}
		delta := blendCoefficients(m.Coefficients, c.coefficients, s.cfg.EMABeta)
		m.Eig = blendEig(m.Eig, c.eig, s.cfg.EMABeta)
		m.Stability = ema(m.Stability, 1.0, s.cfg.EMABeta)
		m.LastSeenAt = observedAt
		m.belowFloor = 0
		return mergeResult{mode: m, created: false, delta: delta}
	}

	s.nextID++
	m := &Mode{
		ID:           fmt.Sprintf("mode-%d", s.nextID),
		Eig:          c.eig,
		Coefficients: c.coefficients,
		Stability:    0.5,
		LastSeenAt:   observedAt,
	}
	s.modes[m.ID] = m
	return mergeResult{mode: m, created: true, delta: coefficientNorm(c.coefficients)}
}

// Decay applies stability decay to every mode not touched this refresh
// and evicts any mode that has stayed below stability_floor for more
// than eviction_window consecutive refreshes. touched names modes merged
// or created during this refresh's Merge calls.
func (s *ModeStore) Decay(touched map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, m := range s.modes {
		if _, ok := touched[id]; ok {
			continue
		}
		m.Stability = ema(m.Stability, 0.0, s.cfg.EMABeta)
		if m.Stability < s.cfg.StabilityFloor {
			m.belowFloor++
		} else {
			m.belowFloor = 0
		}
		if m.belowFloor > s.cfg.EvictionWindow {
			delete(s.modes, id)
		}
	}
}

// Snapshot returns up to maxModes modes, highest stability first.
func (s *ModeStore) Snapshot(maxModes int) []*Mode {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Mode, 0, len(s.modes))
	for _, m := range s.modes {
		out = append(out, m)
	}
	sortModesByStability(out)
	if maxModes > 0 && len(out) > maxModes {
		out = out[:maxModes]
	}
	return out
}

func (s *ModeStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.modes)
}

func sortModesByStability(modes []*Mode) {
	for i := 1; i < len(modes); i++ {
		for j := i; j > 0 && modes[j].Stability > modes[j-1].Stability; j-- {
			modes[j], modes[j-1] = modes[j-1], modes[j]
		}
	}
}

func complexDistance(a, b complexEig) float64 {
	return math.Hypot(a.re-b.re, a.im-b.im)
}

func blendEig(a, b complexEig, beta float64) complexEig {
	return complexEig{re: ema(a.re, b.re, beta), im: ema(a.im, b.im, beta)}
}

// ema computes an exponential moving average: beta weights how much of
// the prior value is retained, matching config.KoopmanConfig.EMABeta's
// documented convention.
func ema(prev, observed, beta float64) float64 {
	return beta*prev + (1-beta)*observed
}

// blendCoefficients EMA-updates m in place toward c's values and returns
// the L2 norm of the resulting change.
func blendCoefficients(m, c map[int]float64, beta float64) float64 {
	var deltaSq float64
	for k, v := range c {
		prev := m[k]
		next := ema(prev, v, beta)
		deltaSq += (next - prev) * (next - prev)
		m[k] = next
	}
	for k, prev := range m {
		if _, ok := c[k]; !ok {
			next := ema(prev, 0, beta)
			deltaSq += (next - prev) * (next - prev)
			if next < 1e-9 {
				delete(m, k)
			} else {
				m[k] = next
			}
		}
	}
	return math.Sqrt(deltaSq)
}

func coefficientNorm(c map[int]float64) float64 {
	var sq float64
	for _, v := range c {
		sq += v * v
	}
	return math.Sqrt(sq)
}

func cosineSimilarity(a, b map[int]float64) float64 {
	var dot, na, nb float64
	for k, v := range a {
		na += v * v
		if w, ok := b[k]; ok {
			dot += v * w
		}
	}
	for _, v := range b {
		nb += v * v
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
