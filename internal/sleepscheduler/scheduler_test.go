package sleepscheduler

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/tori/consolidation/internal/circuitbreaker"
	"github.com/tori/consolidation/internal/config"
	"github.com/tori/consolidation/internal/eventbus"
	"github.com/tori/consolidation/pb"
)

type fakeVaultClient struct {
	episodes []*pb.Episode
}

func (f *fakeVaultClient) PutEpisode(ctx context.Context, in *pb.PutEpisodeRequest, opts ...grpc.CallOption) (*pb.PutEpisodeResponse, error) {
	return nil, nil
}

func (f *fakeVaultClient) GetEpisode(ctx context.Context, in *pb.GetEpisodeRequest, opts ...grpc.CallOption) (*pb.GetEpisodeResponse, error) {
	return nil, nil
}

func (f *fakeVaultClient) ListRecent(ctx context.Context, in *pb.ListRecentRequest, opts ...grpc.CallOption) (*pb.ListRecentResponse, error) {
	limit := int(in.Limit)
	if limit == 0 || limit > len(f.episodes) {
		limit = len(f.episodes)
	}
	return &pb.ListRecentResponse{Episodes: f.episodes[:limit], Total: uint64(len(f.episodes))}, nil
}

func newFakeVault(n int) *fakeVaultClient {
	pattern := []float32{1, 1, -1, -1}
	ids := []uint64{1, 2, 3, 4}
	episodes := make([]*pb.Episode, n)
	for i := 0; i < n; i++ {
		vec := make([]float32, len(pattern))
		for j, v := range pattern {
			vec[j] = v + float32(rand.NormFloat64()*0.1)
		}
		episodes[i] = &pb.Episode{ID: "ep", ConceptIDs: ids, ActivationVector: vec}
	}
	return &fakeVaultClient{episodes: episodes}
}

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		AnnealT0: 1.0, AnnealAlpha: 0.9, KAnneal: 3, MGibbs: 2,
		LearningEta: 0.1, WClip: 5, EnergyDriftEpsilon: 10, WindowSize: 20,
		MaxFetchRetries: 1,
	}
}

func TestStartConsolidationWaitForCompletion(t *testing.T) {
	m := NewMatrix()
	vault := newFakeVault(20)
	bus := eventbus.NewMemBus(32)
	cb := circuitbreaker.New(circuitbreaker.DefaultConfig("vault-fetch"))

	s := NewScheduler(m, vault, bus, testSchedulerConfig(), cb)

	resp, err := s.StartConsolidation(context.Background(), &pb.StartConsolidationRequest{
		MaxEpisodes: 20, Once: true, WaitForCompletion: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ConsolidationID)
	assert.EqualValues(t, 20, resp.EpisodesProcessed)

	status, err := s.GetConsolidationStatus(context.Background(), &pb.GetConsolidationStatusRequest{ConsolidationID: resp.ConsolidationID})
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", status.Status)
}

func TestStartConsolidationRefusesConcurrentRun(t *testing.T) {
	m := NewMatrix()
	vault := newFakeVault(5)
	bus := eventbus.NewMemBus(32)
	cb := circuitbreaker.New(circuitbreaker.DefaultConfig("vault-fetch"))
	s := NewScheduler(m, vault, bus, testSchedulerConfig(), cb)

	s.mu.Lock()
	s.active = "already-running"
	s.mu.Unlock()

	_, err := s.StartConsolidation(context.Background(), &pb.StartConsolidationRequest{WaitForCompletion: true})
	require.Error(t, err)
}

func TestUpdateConfigRejectsUnknownKey(t *testing.T) {
	s := NewScheduler(NewMatrix(), newFakeVault(1), eventbus.NewMemBus(8), testSchedulerConfig(), circuitbreaker.New(circuitbreaker.DefaultConfig("vault-fetch")))
	resp, err := s.UpdateConfig(context.Background(), &pb.UpdateConfigRequest{Config: map[string]string{"bogus": "1"}})
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.NotEmpty(t, resp.Errors)
}
