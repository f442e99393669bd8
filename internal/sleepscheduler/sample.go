package sleepscheduler

import "sort"

// episodeSample is S's working view of one fetched episode: just enough to
// run a consolidation cycle without depending on the vault package's types.
type episodeSample struct {
	id         string
	conceptIDs []uint64
	activation []float32
}

// uniqueConceptIDs collects the sorted union of concept ids touched by a
// batch, giving every cycle run over the batch a stable, comparable
// ordering.
func uniqueConceptIDs(batch []episodeSample) []uint64 {
	seen := make(map[uint64]struct{})
	for _, ep := range batch {
		for _, id := range ep.conceptIDs {
			seen[id] = struct{}{}
		}
	}
	ids := make([]uint64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// projectToIDs maps ep's activation vector onto the batch-wide id ordering,
// filling in 0 for concepts the episode doesn't mention. Ids and values are
// paired by position: activation values past the end of concept_ids are
// dropped, and concept ids past the end of activation_vector project as 0.
func projectToIDs(ep episodeSample, ids []uint64) []float32 {
	byID := make(map[uint64]float32, len(ep.conceptIDs))
	for i, id := range ep.conceptIDs {
		if i < len(ep.activation) {
			byID[id] = ep.activation[i]
		}
	}
	out := make([]float32, len(ids))
	for i, id := range ids {
		out[i] = byID[id]
	}
	return out
}
