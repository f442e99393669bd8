package sparsepruner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tori/consolidation/pb"
)

func neverTouched(i, j uint64) bool { return false }

func TestSolvePrunesLowMagnitudeEdgesOutsideIncidence(t *testing.T) {
	edges := []*pb.MatrixEdge{
		{I: 1, J: 2, W: 0.0001},
		{I: 1, J: 3, W: 0.0002},
		{I: 2, J: 3, W: 0.9},
		{I: 3, J: 4, W: 0.5},
	}
	result := solve(edges, neverTouched, 1e-3, 0)
	assert.Equal(t, 4, result.totalEdges)
	assert.Len(t, result.prunable, 2)
}

func TestSolveSkipsTouchedEdgesRegardlessOfMagnitude(t *testing.T) {
	edges := []*pb.MatrixEdge{
		{I: 1, J: 2, W: 0.0001},
	}
	touched := func(i, j uint64) bool { return true }
	result := solve(edges, touched, 1e-3, 0)
	assert.Empty(t, result.prunable)
}

func TestSolveRespectsTargetSparsityCap(t *testing.T) {
	edges := []*pb.MatrixEdge{
		{I: 1, J: 2, W: 0.0001},
		{I: 1, J: 3, W: 0.0002},
		{I: 1, J: 4, W: 0.0003},
		{I: 1, J: 5, W: 0.0004},
	}
	// All four edges fall under the threshold, but target_sparsity=0.25
	// caps removal at int(4*0.25) = 1 edge.
	result := solve(edges, neverTouched, 1e-3, 0.25)
	assert.LessOrEqual(t, len(result.prunable), 1)
}

func TestSolveQualityImpactIsFractionOfL2Norm(t *testing.T) {
	edges := []*pb.MatrixEdge{
		{I: 1, J: 2, W: 0.0001},
		{I: 2, J: 3, W: 1.0},
	}
	result := solve(edges, neverTouched, 1e-3, 0)
	assert.Greater(t, result.qualityImpact, 0.0)
	assert.Less(t, result.qualityImpact, 0.01)
}
