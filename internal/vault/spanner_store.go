package vault

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"

	"github.com/tori/consolidation/internal/apierr"
)

// SpannerStore implements Store on Cloud Spanner, an alternate
// cross-region-replicated backend selected the same way
// internal/reputation/factory.go selects Spanner vs. SQLite for the
// reputation wallet.
type SpannerStore struct {
	client *spanner.Client
}

// NewSpannerStore dials the given project/instance/database.
func NewSpannerStore(project, instance, database string) (*SpannerStore, error) {
	ctx := context.Background()
	dbPath := fmt.Sprintf("projects/%s/instances/%s/databases/%s", project, instance, database)

	client, err := spanner.NewClient(ctx, dbPath)
	if err != nil {
		return nil, apierr.Unavailable("vault: creating spanner client: %v", err)
	}
	return &SpannerStore{client: client}, nil
}

func (s *SpannerStore) Put(ctx context.Context, createdAt int64, conceptIDs []uint64, activationVector []float32, meta map[string]string) (string, bool, error) {
	id := computeID(createdAt, activationVector, meta)

	// existed is reset on every attempt because Spanner may re-run the
	// transaction function.
	var existed bool
	_, err := s.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		existed = false
		_, err := txn.ReadRow(ctx, "Episodes", spanner.Key{id}, []string{"Id"})
		if err == nil {
			existed = true
			return nil // already present
		}
		if spanner.ErrCode(err) != codes.NotFound {
			return err
		}

		conceptsJSON, _ := json.Marshal(conceptIDs)
		vecJSON, _ := json.Marshal(activationVector)
		metaJSON, _ := json.Marshal(meta)
		size := estimateSize(conceptIDs, activationVector, meta)

		mutation := spanner.InsertOrUpdate("Episodes",
			[]string{"Id", "CreatedAt", "ConceptIds", "ActivationVector", "Meta", "SizeBytes"},
			[]interface{}{id, createdAt, string(conceptsJSON), string(vecJSON), string(metaJSON), int64(size)})
		return txn.BufferWrite([]*spanner.Mutation{mutation})
	})
	if err != nil {
		return "", false, apierr.Unavailable("vault: writing episode %s: %v", id, err)
	}

	return id, existed, nil
}

func (s *SpannerStore) Get(ctx context.Context, id string) (*Episode, bool, error) {
	row, err := s.client.Single().ReadRow(ctx, "Episodes",
		spanner.Key{id}, []string{"Id", "CreatedAt", "ConceptIds", "ActivationVector", "Meta", "SizeBytes"})
	if err != nil {
		if spanner.ErrCode(err) == codes.NotFound {
			return nil, false, nil
		}
		return nil, false, apierr.Internal(err, "vault: reading episode %s", id)
	}

	var ep Episode
	var conceptsJSON, vecJSON, metaJSON string
	if err := row.Columns(&ep.ID, &ep.CreatedAt, &conceptsJSON, &vecJSON, &metaJSON, &ep.Size); err != nil {
		return nil, false, apierr.Internal(err, "vault: decoding episode %s", id)
	}
	json.Unmarshal([]byte(conceptsJSON), &ep.ConceptIDs)
	json.Unmarshal([]byte(vecJSON), &ep.ActivationVector)
	json.Unmarshal([]byte(metaJSON), &ep.Meta)
	return &ep, true, nil
}

func (s *SpannerStore) ListRecent(ctx context.Context, limit uint32, cursor string) ([]*Episode, string, uint64, error) {
	if limit == 0 {
		limit = 100
	}
	offset := int64(0)
	if cursor != "" {
		if _, err := fmt.Sscanf(cursor, "%d", &offset); err != nil {
			return nil, "", 0, apierr.InvalidArgument("vault: malformed cursor %q", cursor)
		}
	}

	stmt := spanner.Statement{
		SQL: `SELECT Id, CreatedAt, ConceptIds, ActivationVector, Meta, SizeBytes
		      FROM Episodes ORDER BY CreatedAt DESC LIMIT @limit OFFSET @offset`,
		Params: map[string]interface{}{"limit": int64(limit), "offset": offset},
	}
	iter := s.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	var episodes []*Episode
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, "", 0, apierr.Internal(err, "vault: listing episodes")
		}
		var ep Episode
		var conceptsJSON, vecJSON, metaJSON string
		row.Columns(&ep.ID, &ep.CreatedAt, &conceptsJSON, &vecJSON, &metaJSON, &ep.Size)
		json.Unmarshal([]byte(conceptsJSON), &ep.ConceptIDs)
		json.Unmarshal([]byte(vecJSON), &ep.ActivationVector)
		json.Unmarshal([]byte(metaJSON), &ep.Meta)
		episodes = append(episodes, &ep)
	}

	var total int64
	countIter := s.client.Single().Query(ctx, spanner.Statement{SQL: `SELECT COUNT(*) FROM Episodes`})
	defer countIter.Stop()
	if row, err := countIter.Next(); err == nil {
		row.Columns(&total)
	}

	nextCursor := ""
	if offset+int64(len(episodes)) < total {
		nextCursor = fmt.Sprintf("%d", offset+int64(len(episodes)))
	}
	return episodes, nextCursor, uint64(total), nil
}

func (s *SpannerStore) Stats(ctx context.Context) (Stats, error) {
	iter := s.client.Single().Query(ctx, spanner.Statement{
		SQL: `SELECT COUNT(*), COALESCE(SUM(SizeBytes),0), MIN(CreatedAt), MAX(CreatedAt) FROM Episodes`,
	})
	defer iter.Stop()

	row, err := iter.Next()
	if err != nil {
		return Stats{}, apierr.Internal(err, "vault: computing stats")
	}
	var st Stats
	var count int64
	row.Columns(&count, &st.Bytes, &st.OldestAt, &st.NewestAt)
	st.Count = int(count)
	return st, nil
}

func (s *SpannerStore) Close() error {
	s.client.Close()
	return nil
}

var _ Store = (*SpannerStore)(nil)
