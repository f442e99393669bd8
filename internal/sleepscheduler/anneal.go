package sleepscheduler

import (
	"math"
	"math/rand"

	"github.com/tori/consolidation/internal/config"
)

// gibbsStep runs one Gibbs-sampling sweep over x at temperature T: each
// coordinate is resampled from its conditional distribution given W and the
// current state of every other coordinate, producing the negative-phase
// reconstruction of the wake-sleep update rule.
func gibbsStep(rng *rand.Rand, m *Matrix, ids []uint64, x []int8, temperature float64) []int8 {
	next := append([]int8(nil), x...)
	for a := range ids {
		var field float64
		for b := range ids {
			if a == b {
				continue
			}
			field += m.Get(ids[a], ids[b]) * float64(next[b])
		}
		p := 1 / (1 + math.Exp(-2*field/math.Max(temperature, 1e-9)))
		if rng.Float64() < p {
			next[a] = 1
		} else {
			next[a] = -1
		}
	}
	return next
}

// cycleResult is the outcome of one annealed wake-sleep consolidation pass
// over a batch, before the caller decides whether to commit or roll back.
type cycleResult struct {
	edgeDelta        map[edgeKey]float64 // post-cycle W edges touched, absolute new value
	changedConcepts  map[uint64]struct{}
	energyBefore     float64
	energyAfter      float64
	trajectories     map[string][][]int8 // episode id -> sequence of quantized states across K_anneal steps
}

// runConsolidationCycle executes the annealing schedule of spec §4.2 against
// a read-only view of m (batch.weights), returning the proposed edge
// updates without mutating m. The caller applies or discards the result.
func runConsolidationCycle(rng *rand.Rand, m *Matrix, cfg config.SchedulerConfig, batch []episodeSample) cycleResult {
	ids := uniqueConceptIDs(batch)
	positiveStates := make([][]int8, len(batch))
	for i, ep := range batch {
		positiveStates[i] = signQuantize(projectToIDs(ep, ids))
	}

	result := cycleResult{
		edgeDelta:       make(map[edgeKey]float64),
		changedConcepts: make(map[uint64]struct{}),
		trajectories:    make(map[string][][]int8, len(batch)),
	}
	result.energyBefore = meanEnergy(m, ids, positiveStates)

	negativeStates := make([][]int8, len(batch))
	copy(negativeStates, positiveStates)

	for k := 1; k <= cfg.KAnneal; k++ {
		temperature := cfg.AnnealT0 * math.Pow(cfg.AnnealAlpha, float64(k))

		positiveAcc := make(map[edgeKey]float64)
		negativeAcc := make(map[edgeKey]float64)

		for i := range batch {
			for step := 0; step < cfg.MGibbs; step++ {
				negativeStates[i] = gibbsStep(rng, m, ids, negativeStates[i], temperature)
			}
			outerProduct(positiveAcc, ids, positiveStates[i])
			outerProduct(negativeAcc, ids, negativeStates[i])

			if batch[i].id != "" {
				result.trajectories[batch[i].id] = append(result.trajectories[batch[i].id], append([]int8(nil), negativeStates[i]...))
			}
		}

		n := float64(len(batch))
		for edge, posSum := range positiveAcc {
			negSum := negativeAcc[edge]
			delta := cfg.LearningEta * (posSum/n - negSum/n)
			current, seen := result.edgeDelta[edge]
			if !seen {
				current = m.Get(edge.I, edge.J)
			}
			updated := clip(current+delta, -cfg.WClip, cfg.WClip)
			result.edgeDelta[edge] = updated
			result.changedConcepts[edge.I] = struct{}{}
			result.changedConcepts[edge.J] = struct{}{}
		}
	}

	result.energyAfter = meanEnergyWithOverlay(m, result.edgeDelta, ids, positiveStates)
	return result
}

// meanEnergyWithOverlay computes mean energy as if overlay's edges replaced
// m's, without mutating m — used to evaluate energy_after before committing.
func meanEnergyWithOverlay(m *Matrix, overlay map[edgeKey]float64, ids []uint64, states [][]int8) float64 {
	get := func(i, j uint64) float64 {
		k := key(i, j)
		if w, ok := overlay[k]; ok {
			return w
		}
		return m.Get(i, j)
	}
	if len(states) == 0 {
		return 0
	}
	var total float64
	for _, x := range states {
		var sum float64
		for a := 0; a < len(ids); a++ {
			for b := a + 1; b < len(ids); b++ {
				w := get(ids[a], ids[b])
				if w == 0 {
					continue
				}
				sum += w * float64(x[a]) * float64(x[b])
			}
		}
		total += -sum
	}
	return total / float64(len(states))
}
