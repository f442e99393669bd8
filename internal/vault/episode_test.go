package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeIDDeterministic(t *testing.T) {
	vec := []float32{1, 2, 3}
	meta := map[string]string{"a": "1", "b": "2"}

	id1 := computeID(100, vec, meta)
	id2 := computeID(100, vec, meta)
	assert.Equal(t, id1, id2)
}

func TestComputeIDMetaOrderIndependent(t *testing.T) {
	vec := []float32{1, 2, 3}

	id1 := computeID(100, vec, map[string]string{"a": "1", "b": "2"})
	id2 := computeID(100, vec, map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, id1, id2)
}

func TestComputeIDSensitiveToInputs(t *testing.T) {
	base := computeID(100, []float32{1, 2, 3}, map[string]string{"a": "1"})

	assert.NotEqual(t, base, computeID(200, []float32{1, 2, 3}, map[string]string{"a": "1"}))
	assert.NotEqual(t, base, computeID(100, []float32{1, 2, 4}, map[string]string{"a": "1"}))
	assert.NotEqual(t, base, computeID(100, []float32{1, 2, 3}, map[string]string{"a": "2"}))
}
