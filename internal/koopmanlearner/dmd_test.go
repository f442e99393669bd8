package koopmanlearner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitOperatorRecoversScalarDecay(t *testing.T) {
	// x_{t+1} = 0.5 x_t, single coordinate.
	pairs := []pair{
		{x: []float64{1}, xp: []float64{0.5}},
		{x: []float64{0.5}, xp: []float64{0.25}},
		{x: []float64{0.25}, xp: []float64{0.125}},
	}
	a, err := fitOperator(pairs, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, a[0][0], 1e-3)
}

func TestExtractCandidatesOneComponentPerDiagonalEigenvalue(t *testing.T) {
	a := mat{{0.9, 0}, {0, 0.0001}}
	candidates := extractCandidates(a, 1e-3, 0)
	require.Len(t, candidates, 2)
	assert.Len(t, candidates[0].coefficients, 1)
	assert.Len(t, candidates[1].coefficients, 1)
}

func TestSparsifyCapsToTopEntries(t *testing.T) {
	support := map[int]float64{0: 0.9, 1: 0.5, 2: 0.1}
	got := sparsify(support, 0, 2)
	assert.Len(t, got, 2)
	assert.Contains(t, got, 0)
	assert.Contains(t, got, 1)
}
