package integrity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndVerifyInclusion(t *testing.T) {
	l := NewLedger()
	h1 := l.Append("vault.put", "ep-1", "offset=0")
	h2 := l.Append("vault.put", "ep-2", "offset=128")
	h3 := l.Append("pruner.commit", "prune-1", "edges_removed=42")

	assert.True(t, l.VerifyInclusion(h1))
	assert.True(t, l.VerifyInclusion(h2))
	assert.True(t, l.VerifyInclusion(h3))
	assert.False(t, l.VerifyInclusion("deadbeef"))
}

func TestProofVerifiesAgainstStandaloneRoot(t *testing.T) {
	l := NewLedger()
	for i := 0; i < 7; i++ {
		l.Append("vault.put", fmt.Sprintf("ep-%d", i), "")
	}
	root := l.RootHash()

	proof := l.GenerateProof(l.Leaves[3].Hash)
	require.NotNil(t, proof)
	assert.True(t, VerifyProof(proof, root))
	assert.False(t, VerifyProof(proof, "wrong-root"))
}

func TestRootChangesOnAppend(t *testing.T) {
	l := NewLedger()
	l.Append("vault.put", "ep-1", "")
	r1 := l.RootHash()
	l.Append("vault.put", "ep-2", "")
	r2 := l.RootHash()
	assert.NotEqual(t, r1, r2)
}
