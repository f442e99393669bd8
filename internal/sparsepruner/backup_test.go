package sparsepruner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tori/consolidation/internal/integrity"
	"github.com/tori/consolidation/pb"
)

func TestBackupStorePutAndGet(t *testing.T) {
	s := NewBackupStore(time.Hour, integrity.NewLedger())
	edges := []*pb.MatrixEdge{{I: 1, J: 2, W: 0.5}}
	b := s.Put("prune-1", edges, 0.01, 3)
	assert.NotEmpty(t, b.LeafHash)

	got := s.Get("prune-1")
	require.NotNil(t, got)
	assert.Equal(t, edges, got.Edges)
}

func TestBackupStoreGCEvictsPastWindow(t *testing.T) {
	s := NewBackupStore(time.Minute, integrity.NewLedger())
	base := time.Now()
	s.now = func() time.Time { return base }
	s.Put("prune-1", nil, 0, 1)

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	assert.Nil(t, s.Get("prune-1"))
}

func TestBackupStoreDeleteRemovesEntry(t *testing.T) {
	s := NewBackupStore(time.Hour, integrity.NewLedger())
	s.Put("prune-1", nil, 0, 1)
	s.Delete("prune-1")
	assert.Nil(t, s.Get("prune-1"))
}
