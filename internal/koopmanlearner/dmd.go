package koopmanlearner

import (
	"errors"
	"math"
	"sort"
)

var errSolveFailed = errors.New("koopmanlearner: operator fit singular")

// candidate is one raw spectral component extracted from a DMD refresh,
// before merge against the existing mode set.
type candidate struct {
	eig          complexEig
	coefficients map[int]float64 // dictionary index -> magnitude
}

// fitOperator regresses the n x n linear operator A minimizing
// ||Xp - A X||_F over the buffered transitions via the normal equations
// A (X X^T) = Xp X^T, ridge-regularized against a near-singular fit.
func fitOperator(pairs []pair, dim int) (mat, error) {
	if len(pairs) == 0 || dim == 0 {
		return nil, errSolveFailed
	}
	x := newMat(dim, len(pairs))
	xp := newMat(dim, len(pairs))
	for c, p := range pairs {
		for r := 0; r < dim; r++ {
			if r < len(p.x) {
				x[r][c] = p.x[r]
			}
			if r < len(p.xp) {
				xp[r][c] = p.xp[r]
			}
		}
	}

	g := ridge(matMul(x, transpose(x)), 1e-6)
	bt := matMul(x, transpose(xp)) // = (Xp X^T)^T

	at := solveMatrix(g, bt)
	return transpose(at), nil
}

// extractCandidates eigendecomposes the fitted operator and turns each
// real eigenvalue or conjugate pair into a sparse coefficient vector,
// floored at modeMagFloor and capped at sparsityCap entries by magnitude.
func extractCandidates(a mat, modeMagFloor float64, sparsityCap int) []candidate {
	eig := eigendecompose(a)
	n := a.rows()
	out := make([]candidate, 0, len(eig.values))

	idx := 0
	for idx < len(eig.values) {
		val := eig.values[idx]
		var support map[int]float64
		if val.im == 0 || idx == len(eig.values)-1 || eig.values[idx+1].im == 0 {
			support = columnMagnitudes(eig.vectors, idx, -1, n)
			idx++
		} else {
			support = columnMagnitudes(eig.vectors, idx, idx+1, n)
			idx += 2
		}
		support = sparsify(support, modeMagFloor, sparsityCap)
		if len(support) == 0 {
			continue
		}
		out = append(out, candidate{eig: val, coefficients: support})
	}
	return out
}

func columnMagnitudes(v mat, colA, colB, n int) map[int]float64 {
	out := make(map[int]float64, n)
	for r := 0; r < n; r++ {
		re := v[r][colA]
		if colB < 0 {
			out[r] = math.Abs(re)
			continue
		}
		im := v[r][colB]
		out[r] = math.Hypot(re, im)
	}
	return out
}

// sparsify drops entries below floor and, if more than cap remain, keeps
// only the cap largest-magnitude entries.
func sparsify(support map[int]float64, floor float64, sparsityCap int) map[int]float64 {
	type kv struct {
		k int
		v float64
	}
	kept := make([]kv, 0, len(support))
	for k, v := range support {
		if v >= floor {
			kept = append(kept, kv{k, v})
		}
	}
	if sparsityCap > 0 && len(kept) > sparsityCap {
		sort.Slice(kept, func(i, j int) bool { return kept[i].v > kept[j].v })
		kept = kept[:sparsityCap]
	}
	out := make(map[int]float64, len(kept))
	for _, e := range kept {
		out[e.k] = e.v
	}
	return out
}
