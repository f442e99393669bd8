package sleepscheduler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tori/consolidation/internal/config"
)

func TestRunConsolidationCycleReducesEnergyOnClusteredPattern(t *testing.T) {
	m := NewMatrix()
	rng := rand.New(rand.NewSource(1))

	cfg := config.SchedulerConfig{
		AnnealT0: 1.0, AnnealAlpha: 0.9, KAnneal: 5, MGibbs: 2,
		LearningEta: 0.1, WClip: 5, EnergyDriftEpsilon: 0.5, WindowSize: 50,
	}

	batch := make([]episodeSample, 0, 50)
	pattern := []float32{1, 1, -1, -1}
	ids := []uint64{1, 2, 3, 4}
	for i := 0; i < 50; i++ {
		vec := make([]float32, len(pattern))
		for j, v := range pattern {
			noise := float32(rng.NormFloat64() * 0.1)
			vec[j] = v + noise
		}
		batch = append(batch, episodeSample{id: "ep", conceptIDs: ids, activation: vec})
	}

	result := runConsolidationCycle(rng, m, cfg, batch)
	assert.Less(t, result.energyAfter, result.energyBefore)
}

func TestRunConsolidationCycleEmitsTrajectoriesPerEpisode(t *testing.T) {
	m := NewMatrix()
	rng := rand.New(rand.NewSource(2))
	cfg := config.SchedulerConfig{AnnealT0: 1.0, AnnealAlpha: 0.9, KAnneal: 3, MGibbs: 1, LearningEta: 0.1, WClip: 5}

	batch := []episodeSample{
		{id: "ep-1", conceptIDs: []uint64{1, 2}, activation: []float32{1, -1}},
	}
	result := runConsolidationCycle(rng, m, cfg, batch)
	require.Contains(t, result.trajectories, "ep-1")
	assert.Len(t, result.trajectories["ep-1"], cfg.KAnneal)
}
