package koopmanlearner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSolveLinearSolvesIdentity(t *testing.T) {
	a := identity(3)
	b := []float64{1, 2, 3}
	x := solveLinear(a, b)
	assert.Equal(t, []float64{1, 2, 3}, x)
}

func TestSolveLinearReturnsNilOnSingular(t *testing.T) {
	a := mat{{0, 0}, {0, 0}}
	assert.Nil(t, solveLinear(a, []float64{1, 1}))
}

func TestMatMulIdentity(t *testing.T) {
	a := mat{{1, 2}, {3, 4}}
	out := matMul(a, identity(2))
	assert.Equal(t, a, out)
}

func TestTransposeRoundTrip(t *testing.T) {
	a := mat{{1, 2, 3}, {4, 5, 6}}
	assert.Equal(t, a, transpose(transpose(a)))
}
