package vault

import (
	"context"
	"strconv"
	"sync"

	"github.com/tori/consolidation/internal/apierr"
)

// estimateSize approximates an episode's serialized footprint for quota
// accounting: 8 bytes/concept id, 4 bytes/activation value, plus meta text.
func estimateSize(conceptIDs []uint64, activationVector []float32, meta map[string]string) int {
	size := 8*len(conceptIDs) + 4*len(activationVector)
	for k, v := range meta {
		size += len(k) + len(v)
	}
	return size
}

// MemStore is an in-memory Store. It is the backend for "memory" deployments
// and the in-memory index WALStore wraps; PostgresStore, SpannerStore and
// SupabaseStore do not use it.
type MemStore struct {
	mu          sync.Mutex
	maxEpisodes int
	maxBytes    int64
	sizeLimit   int

	order      []string // insertion order, oldest first
	byID       map[string]*Episode
	totalBytes int64

	degraded bool
}

// NewMemStore creates an in-memory store bounded by maxEpisodes and
// maxBytes; sizeLimit rejects any single episode larger than that many
// bytes (the `episode_size_limit` configuration option).
func NewMemStore(maxEpisodes int, maxBytes int64, sizeLimit int) *MemStore {
	return &MemStore{
		maxEpisodes: maxEpisodes,
		maxBytes:    maxBytes,
		sizeLimit:   sizeLimit,
		byID:        make(map[string]*Episode),
	}
}

// SetDegraded toggles read-only degraded mode; WALStore flips this on when a
// write to its log fails.
func (s *MemStore) SetDegraded(degraded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.degraded = degraded
}

// Degraded reports whether Put is currently refusing writes.
func (s *MemStore) Degraded() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.degraded {
		return true, "read-only: underlying storage is unavailable"
	}
	return false, ""
}

func (s *MemStore) Put(ctx context.Context, createdAt int64, conceptIDs []uint64, activationVector []float32, meta map[string]string) (string, bool, error) {
	size := estimateSize(conceptIDs, activationVector, meta)
	if s.sizeLimit > 0 && size > s.sizeLimit {
		return "", false, apierr.InvalidArgument("vault: episode of %d bytes exceeds size limit %d", size, s.sizeLimit)
	}

	id := computeID(createdAt, activationVector, meta)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.degraded {
		return "", false, apierr.Unavailable("vault: store is in read-only degraded mode")
	}

	if existing, ok := s.byID[id]; ok {
		return existing.ID, true, nil
	}

	ep := &Episode{
		ID:               id,
		CreatedAt:        createdAt,
		ConceptIDs:       conceptIDs,
		ActivationVector: activationVector,
		Meta:             meta,
		Size:             size,
	}
	s.byID[id] = ep
	s.order = append(s.order, id)
	s.totalBytes += int64(size)

	s.evictLocked()

	return id, false, nil
}

// evictLocked removes the oldest episodes in insertion order until both
// bounds hold. Caller must hold s.mu.
func (s *MemStore) evictLocked() {
	for (s.maxEpisodes > 0 && len(s.order) > s.maxEpisodes) ||
		(s.maxBytes > 0 && s.totalBytes > s.maxBytes) {
		if len(s.order) == 0 {
			return
		}
		oldestID := s.order[0]
		s.order = s.order[1:]
		if ep, ok := s.byID[oldestID]; ok {
			s.totalBytes -= int64(ep.Size)
			delete(s.byID, oldestID)
		}
	}
}

func (s *MemStore) Get(ctx context.Context, id string) (*Episode, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ep, ok := s.byID[id]
	if !ok {
		return nil, false, nil
	}
	return ep, true, nil
}

func (s *MemStore) ListRecent(ctx context.Context, limit uint32, cursor string) ([]*Episode, string, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	offset := 0
	if cursor != "" {
		v, err := strconv.Atoi(cursor)
		if err != nil || v < 0 {
			return nil, "", 0, apierr.InvalidArgument("vault: malformed cursor %q", cursor)
		}
		offset = v
	}

	total := uint64(len(s.order))
	if limit == 0 {
		limit = 100
	}

	// order is oldest-first; walk from the newest backwards.
	result := make([]*Episode, 0, limit)
	idx := len(s.order) - 1 - offset
	consumed := 0
	for idx >= 0 && consumed < int(limit) {
		result = append(result, s.byID[s.order[idx]])
		idx--
		consumed++
	}

	nextCursor := ""
	if idx >= 0 {
		nextCursor = strconv.Itoa(offset + consumed)
	}

	return result, nextCursor, total, nil
}

func (s *MemStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Count: len(s.order), Bytes: s.totalBytes}
	if len(s.order) > 0 {
		st.OldestAt = s.byID[s.order[0]].CreatedAt
		st.NewestAt = s.byID[s.order[len(s.order)-1]].CreatedAt
	}
	return st, nil
}

func (s *MemStore) Close() error { return nil }

var _ Store = (*MemStore)(nil)
