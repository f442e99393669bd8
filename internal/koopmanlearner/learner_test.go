package koopmanlearner

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tori/consolidation/internal/config"
	"github.com/tori/consolidation/internal/eventbus"
	"github.com/tori/consolidation/pb"
)

func TestProcessActivationBatchExtractsRotatingMode(t *testing.T) {
	cfg := config.KoopmanConfig{
		Rank: 5, ModeMagFloor: 1e-4, StabilityFloor: 0.1,
		EigenMergeRadius: 0.15, MergeCosThreshold: 0.5, RefreshStride: 40,
		SparsityCap: 5, CouplingEpsilon: 0, BufferCapacity: 200, EMABeta: 0.5,
	}
	l := NewLearner(eventbus.NewMemBus(32), cfg)

	r, theta := 0.95, math.Pi/8
	traces := make([]*pb.ActivationTrace, 0, 80)
	for step := 0; step < 80; step++ {
		scale := math.Pow(r, float64(step))
		vec := []float32{
			float32(scale * math.Cos(float64(step)*theta)),
			float32(scale * math.Sin(float64(step)*theta)),
			0, 0, 0,
		}
		traces = append(traces, &pb.ActivationTrace{EpisodeID: "ep-1", Step: step, Activation: vec})
	}

	resp, err := l.ProcessActivationBatch(context.Background(), &pb.ProcessActivationBatchRequest{BatchID: "b1", Traces: traces})
	require.NoError(t, err)
	assert.Greater(t, resp.TotalModes, 0)

	modesResp, err := l.GetSpectralModes(context.Background(), &pb.GetSpectralModesRequest{MaxModes: 10})
	require.NoError(t, err)
	require.NotEmpty(t, modesResp.Modes)

	var foundNearLambda bool
	for _, m := range modesResp.Modes {
		mag := math.Hypot(m.EigenvalueRe, m.EigenvalueIm)
		if math.Abs(mag-r) < 0.2 {
			foundNearLambda = true
		}
	}
	assert.True(t, foundNearLambda)
}

func TestProcessActivationBatchRejectsOversizedBatch(t *testing.T) {
	cfg := config.KoopmanConfig{BatchSizeLimit: 1}
	l := NewLearner(eventbus.NewMemBus(8), cfg)
	_, err := l.ProcessActivationBatch(context.Background(), &pb.ProcessActivationBatchRequest{
		Traces: []*pb.ActivationTrace{{EpisodeID: "a", Step: 0}, {EpisodeID: "a", Step: 1}},
	})
	require.Error(t, err)
}

func TestUpdateOscillatorCouplingsEmitsPerMode(t *testing.T) {
	cfg := testKoopmanConfig()
	l := NewLearner(eventbus.NewMemBus(8), cfg)
	l.modes.Merge(candidate{eig: complexEig{re: 0.9}, coefficients: map[int]float64{1: 1.0}}, 0)

	resp, err := l.UpdateOscillatorCouplings(context.Background(), &pb.UpdateOscillatorCouplingsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.UpdatesEmitted)
}
