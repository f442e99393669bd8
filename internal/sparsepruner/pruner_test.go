package sparsepruner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/tori/consolidation/internal/circuitbreaker"
	"github.com/tori/consolidation/internal/config"
	"github.com/tori/consolidation/internal/eventbus"
	"github.com/tori/consolidation/pb"
)

// fakeScheduler is an in-memory pb.SchedulerClient standing in for
// SleepScheduler in tests: SparsePruner only ever talks to W through this
// interface, never a shared pointer.
type fakeScheduler struct {
	mu      sync.Mutex
	edges   map[edgeKey]float64
	version uint64
}

func newFakeScheduler(edges map[edgeKey]float64) *fakeScheduler {
	return &fakeScheduler{edges: edges, version: 1}
}

func (f *fakeScheduler) StartConsolidation(ctx context.Context, in *pb.StartConsolidationRequest, opts ...grpc.CallOption) (*pb.StartConsolidationResponse, error) {
	return nil, nil
}
func (f *fakeScheduler) GetConsolidationStatus(ctx context.Context, in *pb.GetConsolidationStatusRequest, opts ...grpc.CallOption) (*pb.GetConsolidationStatusResponse, error) {
	return nil, nil
}
func (f *fakeScheduler) UpdateConfig(ctx context.Context, in *pb.UpdateConfigRequest, opts ...grpc.CallOption) (*pb.UpdateConfigResponse, error) {
	return nil, nil
}

func (f *fakeScheduler) GetMatrixSnapshot(ctx context.Context, in *pb.GetMatrixSnapshotRequest, opts ...grpc.CallOption) (*pb.GetMatrixSnapshotResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*pb.MatrixEdge, 0, len(f.edges))
	for k, w := range f.edges {
		out = append(out, &pb.MatrixEdge{I: k.I, J: k.J, W: w})
	}
	return &pb.GetMatrixSnapshotResponse{Edges: out, Version: f.version}, nil
}

func (f *fakeScheduler) ApplyEdgeDiff(ctx context.Context, in *pb.ApplyEdgeDiffRequest, opts ...grpc.CallOption) (*pb.ApplyEdgeDiffResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in.ExpectedBase != f.version {
		return &pb.ApplyEdgeDiffResponse{Applied: false, NewVersion: f.version, Message: "stale base"}, nil
	}
	for _, e := range in.Edges {
		k := key(e.I, e.J)
		if e.W == 0 {
			delete(f.edges, k)
		} else {
			f.edges[k] = e.W
		}
	}
	f.version++
	return &pb.ApplyEdgeDiffResponse{Applied: true, NewVersion: f.version}, nil
}

func testPrunerConfig() config.PrunerConfig {
	return config.PrunerConfig{
		Threshold: 1e-3, TargetSparsity: 0, QualityBudget: 1.0, RollbackWindow: 0,
	}
}

func TestTriggerPruningRemovesLowMagnitudeEdges(t *testing.T) {
	sched := newFakeScheduler(map[edgeKey]float64{
		{1, 2}: 0.0001,
		{2, 3}: 0.9,
	})
	cfg := testPrunerConfig()
	cfg.RollbackWindow = time.Hour
	p := NewPruner(sched, eventbus.NewMemBus(8), cfg, circuitbreaker.New(circuitbreaker.DefaultConfig("scheduler-snapshot")))

	resp, err := p.TriggerPruning(context.Background(), &pb.TriggerPruningRequest{
		Threshold: 1e-3, CreateBackup: true,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, resp.EdgesPruned)

	sched.mu.Lock()
	_, stillThere := sched.edges[key(1, 2)]
	sched.mu.Unlock()
	assert.False(t, stillThere)
}

func TestTriggerPruningRefusesOverBudget(t *testing.T) {
	sched := newFakeScheduler(map[edgeKey]float64{
		{1, 2}: 0.0001,
		{2, 3}: 0.0002,
	})
	cfg := testPrunerConfig()
	cfg.QualityBudget = 0.0 // any removal exceeds a zero budget
	p := NewPruner(sched, eventbus.NewMemBus(8), cfg, circuitbreaker.New(circuitbreaker.DefaultConfig("scheduler-snapshot")))

	_, err := p.TriggerPruning(context.Background(), &pb.TriggerPruningRequest{Threshold: 1e-3})
	require.Error(t, err)
}

func TestTriggerPruningDryRunLeavesMatrixUntouched(t *testing.T) {
	sched := newFakeScheduler(map[edgeKey]float64{{1, 2}: 0.0001})
	cfg := testPrunerConfig()
	p := NewPruner(sched, eventbus.NewMemBus(8), cfg, circuitbreaker.New(circuitbreaker.DefaultConfig("scheduler-snapshot")))

	resp, err := p.TriggerPruning(context.Background(), &pb.TriggerPruningRequest{Threshold: 1e-3, DryRun: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, resp.EdgesPruned)

	sched.mu.Lock()
	_, stillThere := sched.edges[key(1, 2)]
	sched.mu.Unlock()
	assert.True(t, stillThere)
}

func TestRevertRestoresPrunedEdges(t *testing.T) {
	sched := newFakeScheduler(map[edgeKey]float64{
		{1, 2}: 0.0001,
		{2, 3}: 0.9,
	})
	cfg := testPrunerConfig()
	p := NewPruner(sched, eventbus.NewMemBus(8), cfg, circuitbreaker.New(circuitbreaker.DefaultConfig("scheduler-snapshot")))

	resp, err := p.TriggerPruning(context.Background(), &pb.TriggerPruningRequest{Threshold: 1e-3, CreateBackup: true})
	require.NoError(t, err)

	revertResp, err := p.Revert(context.Background(), &pb.RevertRequest{PruningID: resp.PruningID})
	require.NoError(t, err)
	assert.True(t, revertResp.OK)

	sched.mu.Lock()
	w, ok := sched.edges[key(1, 2)]
	sched.mu.Unlock()
	require.True(t, ok)
	assert.InDelta(t, 0.0001, w, 1e-9)
}

func TestPreviewPruningDoesNotMutateMatrix(t *testing.T) {
	sched := newFakeScheduler(map[edgeKey]float64{{1, 2}: 0.0001, {2, 3}: 0.9})
	cfg := testPrunerConfig()
	p := NewPruner(sched, eventbus.NewMemBus(8), cfg, circuitbreaker.New(circuitbreaker.DefaultConfig("scheduler-snapshot")))

	resp, err := p.PreviewPruning(context.Background(), &pb.PreviewPruningRequest{Threshold: 1e-3})
	require.NoError(t, err)
	assert.EqualValues(t, 2, resp.TotalEdges)
	assert.EqualValues(t, 1, resp.PrunableEdges)

	sched.mu.Lock()
	n := len(sched.edges)
	sched.mu.Unlock()
	assert.Equal(t, 2, n)
}

func TestGetPruningStatusUnknownID(t *testing.T) {
	sched := newFakeScheduler(map[edgeKey]float64{})
	p := NewPruner(sched, eventbus.NewMemBus(8), testPrunerConfig(), circuitbreaker.New(circuitbreaker.DefaultConfig("scheduler-snapshot")))
	_, err := p.GetPruningStatus(context.Background(), &pb.GetPruningStatusRequest{PruningID: "nope"})
	require.Error(t, err)
}
