package vault

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tori/consolidation/internal/eventbus"
	"github.com/tori/consolidation/pb"
)

func blobFor(t *testing.T, createdAt int64, vec []float32) []byte {
	t.Helper()
	buf, err := json.Marshal(blobPayload{CreatedAt: createdAt, ActivationVector: vec})
	require.NoError(t, err)
	return buf
}

func TestServerPutGetRoundTrip(t *testing.T) {
	bus := eventbus.NewMemBus(8)
	srv := NewServer(NewMemStore(0, 0, 0), bus)
	ctx := context.Background()

	putResp, err := srv.PutEpisode(ctx, &pb.PutEpisodeRequest{
		Blob: blobFor(t, 1, []float32{1, 1, -1, -1}),
		Meta: map[string]string{"src": "test"},
	})
	require.NoError(t, err)
	assert.True(t, putResp.Accepted)
	assert.NotEmpty(t, putResp.ID)

	getResp, err := srv.GetEpisode(ctx, &pb.GetEpisodeRequest{ID: putResp.ID})
	require.NoError(t, err)
	require.True(t, getResp.Found)
	assert.Equal(t, []float32{1, 1, -1, -1}, getResp.Episode.ActivationVector)
	assert.Equal(t, "test", getResp.Episode.Meta["src"])
}

func TestServerPutPublishesEpisodeCreated(t *testing.T) {
	bus := eventbus.NewMemBus(8)
	ch, unsubscribe := bus.Subscribe(eventbus.TopicEpisodeCreated)
	defer unsubscribe()

	srv := NewServer(NewMemStore(0, 0, 0), bus)
	_, err := srv.PutEpisode(context.Background(), &pb.PutEpisodeRequest{
		Blob: blobFor(t, 1, []float32{1}),
	})
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, eventbus.TopicEpisodeCreated, ev.Topic)
		assert.NotEmpty(t, ev.Data["id"])
	case <-time.After(time.Second):
		t.Fatal("expected an episode.created event")
	}
}

func TestServerPutRejectsEmptyActivationVector(t *testing.T) {
	srv := NewServer(NewMemStore(0, 0, 0), eventbus.NewMemBus(8))
	_, err := srv.PutEpisode(context.Background(), &pb.PutEpisodeRequest{Blob: blobFor(t, 1, nil)})
	require.Error(t, err)
}

func TestServerListRecent(t *testing.T) {
	srv := NewServer(NewMemStore(0, 0, 0), eventbus.NewMemBus(8))
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		_, err := srv.PutEpisode(ctx, &pb.PutEpisodeRequest{Blob: blobFor(t, i, []float32{float32(i)})})
		require.NoError(t, err)
	}

	resp, err := srv.ListRecent(ctx, &pb.ListRecentRequest{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, resp.Total)
	assert.Len(t, resp.Episodes, 2)
}
