package sleepscheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatrixSetGetSymmetric(t *testing.T) {
	m := NewMatrix()
	m.Set(1, 2, 0.5)
	assert.Equal(t, 0.5, m.Get(1, 2))
	assert.Equal(t, 0.5, m.Get(2, 1))
}

func TestMatrixSelfEdgeAlwaysZero(t *testing.T) {
	m := NewMatrix()
	m.Set(1, 1, 0.9)
	assert.Equal(t, 0.0, m.Get(1, 1))
	assert.Equal(t, 0, m.NNZ())
}

func TestMatrixSetZeroRemovesEdge(t *testing.T) {
	m := NewMatrix()
	m.Set(1, 2, 0.5)
	assert.Equal(t, 1, m.NNZ())
	m.Set(1, 2, 0)
	assert.Equal(t, 0, m.NNZ())
}

func TestMatrixSnapshotRestore(t *testing.T) {
	m := NewMatrix()
	m.Set(1, 2, 0.5)
	snap, v0 := m.Snapshot()

	m.Set(1, 2, 0.9)
	m.Set(3, 4, 0.1)
	assert.Equal(t, 2, m.NNZ())

	m.Restore(snap)
	assert.Equal(t, 1, m.NNZ())
	assert.Equal(t, 0.5, m.Get(1, 2))
	assert.Greater(t, m.Version(), v0)
}
