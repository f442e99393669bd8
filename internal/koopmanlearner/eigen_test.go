package koopmanlearner

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEigendecomposeDiagonalMatrix(t *testing.T) {
	a := mat{{2, 0}, {0, 3}}
	res := eigendecompose(a)
	want := []float64{2, 3}
	got := make([]float64, 0, len(res.values))
	for _, v := range res.values {
		got = append(got, v.re)
	}
	sort.Float64s(got)
	assert.InDeltaSlice(t, want, got, 1e-6)
}

func TestEigendecomposeRotationMatrixYieldsComplexConjugatePair(t *testing.T) {
	theta := math.Pi / 8
	r := 0.95
	a := mat{
		{r * math.Cos(theta), -r * math.Sin(theta)},
		{r * math.Sin(theta), r * math.Cos(theta)},
	}
	res := eigendecompose(a)
	var foundComplex bool
	for _, v := range res.values {
		if v.im != 0 {
			foundComplex = true
			assert.InDelta(t, r, v.magnitude(), 0.05)
		}
	}
	assert.True(t, foundComplex)
}
