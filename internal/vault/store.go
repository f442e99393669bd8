package vault

import "context"

// Stats summarizes the vault's current footprint for the RPC Stats() call.
type Stats struct {
	Count    int
	Bytes    int64
	OldestAt int64
	NewestAt int64
}

// Store is the durable backend contract. Put returns only after the episode
// is committed such that it survives a process crash; Get is constant-time;
// ListRecent iterates in reverse chronological order with an opaque, stable
// cursor.
// degradedReporter is implemented by backends that can enter a sticky
// read-only mode (WALStore and the bare MemStore). Backends that report
// failures per-call instead (PostgresStore, SpannerStore, SupabaseStore)
// don't implement it, and StoreDegraded treats that as never-degraded.
type degradedReporter interface {
	Degraded() (bool, string)
}

// StoreDegraded reports s's degraded state for the HealthCheck RPC, or
// (false, "") for backends with no sticky degraded concept of their own.
func StoreDegraded(s Store) (bool, string) {
	if d, ok := s.(degradedReporter); ok {
		return d.Degraded()
	}
	return false, ""
}

type Store interface {
	// Put computes the episode's content-addressed id from (createdAt,
	// activationVector, meta) and persists it. createdAt is supplied by the
	// caller as part of the episode content (not server wall-clock time) so
	// that Put is fully deterministic: the same call made twice always
	// produces the same id and the second call writes no new storage bytes.
	Put(ctx context.Context, createdAt int64, conceptIDs []uint64, activationVector []float32, meta map[string]string) (id string, wasExisting bool, err error)
	Get(ctx context.Context, id string) (*Episode, bool, error)
	ListRecent(ctx context.Context, limit uint32, cursor string) (episodes []*Episode, nextCursor string, total uint64, err error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
