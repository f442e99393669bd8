package vault

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/tori/consolidation/internal/apierr"
)

// PostgresStore implements Store on top of a Postgres episodes table. It is
// the default production backend (spec's vault.backend = "postgres").
type PostgresStore struct {
	db *sql.DB
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS episodes (
	id                 TEXT PRIMARY KEY,
	created_at         BIGINT NOT NULL,
	concept_ids        JSONB NOT NULL,
	activation_vector  JSONB NOT NULL,
	meta               JSONB NOT NULL,
	size_bytes         INTEGER NOT NULL,
	inserted_seq       BIGSERIAL
);
CREATE INDEX IF NOT EXISTS episodes_inserted_seq_idx ON episodes (inserted_seq DESC);
`

// NewPostgresStore opens dsn and ensures the episodes table exists.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, apierr.Internal(err, "vault: opening postgres connection")
	}
	if err := db.Ping(); err != nil {
		return nil, apierr.Unavailable("vault: postgres unreachable: %v", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		return nil, apierr.Internal(err, "vault: ensuring episodes schema")
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Put(ctx context.Context, createdAt int64, conceptIDs []uint64, activationVector []float32, meta map[string]string) (string, bool, error) {
	id := computeID(createdAt, activationVector, meta)

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM episodes WHERE id = $1)`, id).Scan(&exists); err != nil {
		return "", false, apierr.Internal(err, "vault: checking existing episode %s", id)
	}
	if exists {
		return id, true, nil
	}

	conceptsJSON, _ := json.Marshal(conceptIDs)
	vecJSON, _ := json.Marshal(activationVector)
	metaJSON, _ := json.Marshal(meta)
	size := estimateSize(conceptIDs, activationVector, meta)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO episodes (id, created_at, concept_ids, activation_vector, meta, size_bytes)
		 VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
		id, createdAt, conceptsJSON, vecJSON, metaJSON, size)
	if err != nil {
		return "", false, apierr.Unavailable("vault: inserting episode %s: %v", id, err)
	}
	return id, false, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Episode, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, concept_ids, activation_vector, meta, size_bytes FROM episodes WHERE id = $1`, id)

	var ep Episode
	var conceptsJSON, vecJSON, metaJSON []byte
	if err := row.Scan(&ep.ID, &ep.CreatedAt, &conceptsJSON, &vecJSON, &metaJSON, &ep.Size); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, apierr.Internal(err, "vault: scanning episode %s", id)
	}
	if err := json.Unmarshal(conceptsJSON, &ep.ConceptIDs); err != nil {
		return nil, false, apierr.Internal(err, "vault: decoding concept_ids for %s", id)
	}
	if err := json.Unmarshal(vecJSON, &ep.ActivationVector); err != nil {
		return nil, false, apierr.Internal(err, "vault: decoding activation_vector for %s", id)
	}
	if err := json.Unmarshal(metaJSON, &ep.Meta); err != nil {
		return nil, false, apierr.Internal(err, "vault: decoding meta for %s", id)
	}
	return &ep, true, nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit uint32, cursor string) ([]*Episode, string, uint64, error) {
	if limit == 0 {
		limit = 100
	}
	offset := 0
	if cursor != "" {
		if _, err := fmt.Sscanf(cursor, "%d", &offset); err != nil {
			return nil, "", 0, apierr.InvalidArgument("vault: malformed cursor %q", cursor)
		}
	}

	var total uint64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM episodes`).Scan(&total); err != nil {
		return nil, "", 0, apierr.Internal(err, "vault: counting episodes")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, concept_ids, activation_vector, meta, size_bytes
		 FROM episodes ORDER BY inserted_seq DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, "", 0, apierr.Internal(err, "vault: listing episodes")
	}
	defer rows.Close()

	var episodes []*Episode
	for rows.Next() {
		var ep Episode
		var conceptsJSON, vecJSON, metaJSON []byte
		if err := rows.Scan(&ep.ID, &ep.CreatedAt, &conceptsJSON, &vecJSON, &metaJSON, &ep.Size); err != nil {
			return nil, "", 0, apierr.Internal(err, "vault: scanning episode row")
		}
		json.Unmarshal(conceptsJSON, &ep.ConceptIDs)
		json.Unmarshal(vecJSON, &ep.ActivationVector)
		json.Unmarshal(metaJSON, &ep.Meta)
		episodes = append(episodes, &ep)
	}

	nextCursor := ""
	if uint64(offset+len(episodes)) < total {
		nextCursor = fmt.Sprintf("%d", offset+len(episodes))
	}
	return episodes, nextCursor, total, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var oldest, newest sql.NullInt64
	var totalBytes sql.NullInt64
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size_bytes),0), MIN(created_at), MAX(created_at) FROM episodes`)
	if err := row.Scan(&st.Count, &totalBytes, &oldest, &newest); err != nil {
		return Stats{}, apierr.Internal(err, "vault: computing stats")
	}
	st.Bytes = totalBytes.Int64
	st.OldestAt = oldest.Int64
	st.NewestAt = newest.Int64
	return st, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

var _ Store = (*PostgresStore)(nil)
