package koopmanlearner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tori/consolidation/internal/config"
)

func testKoopmanConfig() config.KoopmanConfig {
	return config.KoopmanConfig{
		EigenMergeRadius: 0.05, MergeCosThreshold: 0.9, EMABeta: 0.5,
		StabilityFloor: 0.1, EvictionWindow: 2,
	}
}

func TestModeStoreMergeCreatesNewModeWhenNoMatch(t *testing.T) {
	s := NewModeStore(testKoopmanConfig())
	c := candidate{eig: complexEig{re: 0.9}, coefficients: map[int]float64{1: 1.0}}
	res := s.Merge(c, 0)
	assert.True(t, res.created)
	assert.Equal(t, 1, s.Count())
}

func TestModeStoreMergeUpdatesExistingModeWithinRadius(t *testing.T) {
	s := NewModeStore(testKoopmanConfig())
	c1 := candidate{eig: complexEig{re: 0.9}, coefficients: map[int]float64{1: 1.0, 2: 1.0}}
	res1 := s.Merge(c1, 0)
	require.True(t, res1.created)

	c2 := candidate{eig: complexEig{re: 0.91}, coefficients: map[int]float64{1: 1.1, 2: 0.9}}
	res2 := s.Merge(c2, 1)
	assert.False(t, res2.created)
	assert.Equal(t, 1, s.Count())
}

func TestModeStoreDecayEvictsAfterEvictionWindow(t *testing.T) {
	cfg := testKoopmanConfig()
	s := NewModeStore(cfg)
	c := candidate{eig: complexEig{re: 0.9}, coefficients: map[int]float64{1: 1.0}}
	s.Merge(c, 0)

	for i := 0; i < 20; i++ {
		s.Decay(map[string]struct{}{})
	}
	assert.Equal(t, 0, s.Count())
}

func TestCosineSimilarityIdenticalVectors(t *testing.T) {
	a := map[int]float64{1: 1, 2: 2}
	assert.InDelta(t, 1.0, cosineSimilarity(a, a), 1e-9)
}
