package sparsepruner

import (
	"math"
	"sort"

	"github.com/tori/consolidation/pb"
)

// edgeKey identifies a symmetric pair regardless of argument order.
type edgeKey struct{ I, J uint64 }

func key(i, j uint64) edgeKey {
	if i > j {
		i, j = j, i
	}
	return edgeKey{i, j}
}

// candidate is one edge considered for removal by the solver.
type candidate struct {
	key edgeKey
	w   float64
}

// solveResult is the outcome of one L1-constrained pass: which edges to
// drop to zero and the solver's estimate of the reconstruction error that
// drop introduces.
type solveResult struct {
	totalEdges    int
	prunable      []candidate
	qualityImpact float64
}

// solve implements the relaxation of §4.3's optimization: minimize ‖W'‖₁
// subject to ‖A⊙(W'-R)‖₂ ≤ ε by zeroing edges outside the required
// incidence set A whose magnitude falls under threshold, smallest first,
// until target_sparsity is met or no more candidates qualify. Edges inside
// A (touched by a recent concept.delta) are never zeroed: their retained
// magnitude R must be approximately preserved.
func solve(edges []*pb.MatrixEdge, touched func(i, j uint64) bool, threshold, targetSparsity float64) solveResult {
	total := len(edges)
	candidates := make([]candidate, 0, total)
	var sumSq float64

	for _, e := range edges {
		sumSq += e.W * e.W
		if touched(e.I, e.J) || abs(e.W) >= threshold {
			continue
		}
		candidates = append(candidates, candidate{key: key(e.I, e.J), w: e.W})
	}

	sort.Slice(candidates, func(i, j int) bool { return abs(candidates[i].w) < abs(candidates[j].w) })

	// targetSparsity is the desired fraction of all edges driven to zero;
	// cap the candidate list (already filtered to threshold-qualifying,
	// untouched edges, smallest magnitude first) at that count so a high
	// threshold can't over-prune past what target_sparsity asks for.
	chosen := candidates
	if targetSparsity > 0 {
		wantRemoved := int(float64(total) * targetSparsity)
		if wantRemoved < len(candidates) {
			chosen = candidates[:wantRemoved]
		}
	}

	var removedSq float64
	for _, c := range chosen {
		removedSq += c.w * c.w
	}

	quality := 0.0
	if sumSq > 0 {
		quality = math.Sqrt(removedSq) / math.Sqrt(sumSq)
	}

	return solveResult{totalEdges: total, prunable: chosen, qualityImpact: quality}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
