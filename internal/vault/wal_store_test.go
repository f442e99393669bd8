package vault

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWALStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.wal")
	ctx := context.Background()

	s1, err := OpenWALStore(path, 0, 0, 0)
	require.NoError(t, err)

	id, wasExisting, err := s1.Put(ctx, 1, []uint64{1, 2}, []float32{1, -1}, map[string]string{"src": "test"})
	require.NoError(t, err)
	assert.False(t, wasExisting)
	require.NoError(t, s1.Close())

	s2, err := OpenWALStore(path, 0, 0, 0)
	require.NoError(t, err)
	defer s2.Close()

	ep, found, err := s2.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []float32{1, -1}, ep.ActivationVector)
	assert.NotEmpty(t, s2.LedgerRoot())
}

func TestWALStoreDuplicatePutWritesNoNewRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.wal")
	ctx := context.Background()

	s, err := OpenWALStore(path, 0, 0, 0)
	require.NoError(t, err)
	defer s.Close()

	vec := []float32{1, 2, 3}
	id1, _, err := s.Put(ctx, 5, nil, vec, nil)
	require.NoError(t, err)

	rootAfterFirst := s.LedgerRoot()

	id2, wasExisting, err := s.Put(ctx, 5, nil, vec, nil)
	require.NoError(t, err)
	assert.True(t, wasExisting)
	assert.Equal(t, id1, id2)
	assert.Equal(t, rootAfterFirst, s.LedgerRoot())
}
