package vault

import (
	"context"
	"fmt"

	supabase "github.com/supabase-community/supabase-go"

	"github.com/tori/consolidation/internal/apierr"
)

// SupabaseStore implements Store against a hosted Postgres instance through
// the Supabase REST API, an alternate backend for small deployments that
// don't want to run their own Postgres.
type SupabaseStore struct {
	client *supabase.Client
}

// episodeRow mirrors the "episodes" table's column names.
type episodeRow struct {
	ID               string   `json:"id"`
	CreatedAt        int64    `json:"created_at"`
	ConceptIDs       []uint64 `json:"concept_ids"`
	ActivationVector []float32 `json:"activation_vector"`
	Meta             map[string]string `json:"meta"`
	SizeBytes        int      `json:"size_bytes"`
}

// NewSupabaseStore creates a client against url, authenticated with the
// project's service-role key.
func NewSupabaseStore(url, serviceKey string) (*SupabaseStore, error) {
	if url == "" || serviceKey == "" {
		return nil, apierr.InvalidArgument("vault: supabase_url and supabase_service_key must both be set")
	}
	client, err := supabase.NewClient(url, serviceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, apierr.Unavailable("vault: creating supabase client: %v", err)
	}
	return &SupabaseStore{client: client}, nil
}

func (s *SupabaseStore) Put(ctx context.Context, createdAt int64, conceptIDs []uint64, activationVector []float32, meta map[string]string) (string, bool, error) {
	id := computeID(createdAt, activationVector, meta)

	var existing []episodeRow
	_, err := s.client.From("episodes").Select("id", "", false).Eq("id", id).ExecuteTo(&existing)
	if err != nil {
		return "", false, apierr.Unavailable("vault: checking existing episode %s: %v", id, err)
	}
	if len(existing) > 0 {
		return id, true, nil
	}

	row := episodeRow{
		ID: id, CreatedAt: createdAt, ConceptIDs: conceptIDs, ActivationVector: activationVector,
		Meta: meta, SizeBytes: estimateSize(conceptIDs, activationVector, meta),
	}
	var result []episodeRow
	if _, err := s.client.From("episodes").Insert(row, false, "", "", "").ExecuteTo(&result); err != nil {
		return "", false, apierr.Unavailable("vault: inserting episode %s: %v", id, err)
	}
	return id, false, nil
}

func (s *SupabaseStore) Get(ctx context.Context, id string) (*Episode, bool, error) {
	var rows []episodeRow
	_, err := s.client.From("episodes").Select("*", "", false).Eq("id", id).ExecuteTo(&rows)
	if err != nil {
		return nil, false, apierr.Internal(err, "vault: fetching episode %s", id)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	r := rows[0]
	return &Episode{ID: r.ID, CreatedAt: r.CreatedAt, ConceptIDs: r.ConceptIDs, ActivationVector: r.ActivationVector, Meta: r.Meta, Size: r.SizeBytes}, true, nil
}

func (s *SupabaseStore) ListRecent(ctx context.Context, limit uint32, cursor string) ([]*Episode, string, uint64, error) {
	if limit == 0 {
		limit = 100
	}
	offset := 0
	if cursor != "" {
		if _, err := fmt.Sscanf(cursor, "%d", &offset); err != nil {
			return nil, "", 0, apierr.InvalidArgument("vault: malformed cursor %q", cursor)
		}
	}

	var rows []episodeRow
	_, err := s.client.From("episodes").Select("*", "", false).
		Order("created_at", nil).
		Limit(int(limit)+offset, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, "", 0, apierr.Internal(err, "vault: listing episodes")
	}
	if offset < len(rows) {
		rows = rows[offset:]
	} else {
		rows = nil
	}

	episodes := make([]*Episode, 0, len(rows))
	for _, r := range rows {
		episodes = append(episodes, &Episode{ID: r.ID, CreatedAt: r.CreatedAt, ConceptIDs: r.ConceptIDs, ActivationVector: r.ActivationVector, Meta: r.Meta, Size: r.SizeBytes})
	}

	nextCursor := ""
	if len(rows) == int(limit) {
		nextCursor = fmt.Sprintf("%d", offset+len(rows))
	}
	return episodes, nextCursor, uint64(len(rows)), nil
}

func (s *SupabaseStore) Stats(ctx context.Context) (Stats, error) {
	var rows []episodeRow
	_, err := s.client.From("episodes").Select("created_at,size_bytes", "", false).ExecuteTo(&rows)
	if err != nil {
		return Stats{}, apierr.Internal(err, "vault: computing stats")
	}
	st := Stats{Count: len(rows)}
	for i, r := range rows {
		st.Bytes += int64(r.SizeBytes)
		if i == 0 || r.CreatedAt < st.OldestAt {
			st.OldestAt = r.CreatedAt
		}
		if r.CreatedAt > st.NewestAt {
			st.NewestAt = r.CreatedAt
		}
	}
	return st, nil
}

func (s *SupabaseStore) Close() error { return nil }

var _ Store = (*SupabaseStore)(nil)
