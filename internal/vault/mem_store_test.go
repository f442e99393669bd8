package vault

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutIsIdempotent(t *testing.T) {
	s := NewMemStore(0, 0, 0)
	ctx := context.Background()

	vec := []float32{1, 1, -1, -1}
	meta := map[string]string{"src": "test"}

	id1, existing1, err := s.Put(ctx, 1000, nil, vec, meta)
	require.NoError(t, err)
	assert.False(t, existing1)

	id2, existing2, err := s.Put(ctx, 1000, nil, vec, meta)
	require.NoError(t, err)
	assert.True(t, existing2)
	assert.Equal(t, id1, id2)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Count)
}

func TestGetRoundTrip(t *testing.T) {
	s := NewMemStore(0, 0, 0)
	ctx := context.Background()

	vec := []float32{0.5, -0.25}
	id, _, err := s.Put(ctx, 42, []uint64{7, 8}, vec, map[string]string{"src": "test"})
	require.NoError(t, err)

	ep, found, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, id, ep.ID)
	assert.Equal(t, vec, ep.ActivationVector)
	assert.Equal(t, "test", ep.Meta["src"])

	_, found, err = s.Get(ctx, "nonexistent")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEvictsOldestOnMaxEpisodesExceeded(t *testing.T) {
	s := NewMemStore(2, 0, 0)
	ctx := context.Background()

	id1, _, err := s.Put(ctx, 1, nil, []float32{1}, nil)
	require.NoError(t, err)
	_, _, err = s.Put(ctx, 2, nil, []float32{2}, nil)
	require.NoError(t, err)
	_, _, err = s.Put(ctx, 3, nil, []float32{3}, nil)
	require.NoError(t, err)

	_, found, err := s.Get(ctx, id1)
	require.NoError(t, err)
	assert.False(t, found, "oldest episode should have been evicted")

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Count)
}

func TestSizeLimitRejectsOversizedEpisode(t *testing.T) {
	s := NewMemStore(0, 0, 8) // 8 bytes max
	ctx := context.Background()

	_, _, err := s.Put(ctx, 1, nil, []float32{1, 2, 3, 4}, nil) // 16 bytes
	require.Error(t, err)
}

func TestListRecentReverseChronological(t *testing.T) {
	s := NewMemStore(0, 0, 0)
	ctx := context.Background()

	var ids []string
	for i := int64(1); i <= 5; i++ {
		id, _, err := s.Put(ctx, i, nil, []float32{float32(i)}, nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	episodes, nextCursor, total, err := s.ListRecent(ctx, 2, "")
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, episodes, 2)
	assert.Equal(t, ids[4], episodes[0].ID)
	assert.Equal(t, ids[3], episodes[1].ID)
	assert.NotEmpty(t, nextCursor)

	rest, _, _, err := s.ListRecent(ctx, 10, nextCursor)
	require.NoError(t, err)
	require.Len(t, rest, 3)
	assert.Equal(t, ids[2], rest[0].ID)
}

func TestDegradedModeRejectsPut(t *testing.T) {
	s := NewMemStore(0, 0, 0)
	s.SetDegraded(true)
	_, _, err := s.Put(context.Background(), 1, nil, []float32{1}, nil)
	require.Error(t, err)
}
