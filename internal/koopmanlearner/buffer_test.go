package koopmanlearner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingBufferEvictsOldestPastCapacity(t *testing.T) {
	b := NewRingBuffer(2)
	b.Push(pair{x: []float64{1}})
	b.Push(pair{x: []float64{2}})
	b.Push(pair{x: []float64{3}})

	items := b.Snapshot()
	assert.Len(t, items, 2)
	assert.Equal(t, []float64{2}, items[0].x)
	assert.Equal(t, []float64{3}, items[1].x)
	assert.Equal(t, 3, b.Total())
}
