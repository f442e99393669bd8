package vault

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/tori/consolidation/internal/apierr"
	"github.com/tori/consolidation/internal/integrity"
)

// walRecord is one line of the write-ahead log: enough to reconstruct an
// Episode on replay without re-deriving its content-addressed id.
type walRecord struct {
	ID               string            `json:"id"`
	CreatedAt        int64             `json:"created_at"`
	ConceptIDs       []uint64          `json:"concept_ids"`
	ActivationVector []float32         `json:"activation_vector"`
	Meta             map[string]string `json:"meta"`
}

// WALStore wraps a MemStore with an append-only, fsync'd write-ahead log and
// an integrity.Ledger. Every committed Put is durable across a process
// crash: the record hits disk and is fsync'd before Put returns, and its
// leaf hash is appended to the ledger. The ledger is held in memory and
// rebuilt from the log on replay, so it does not detect edits to the log;
// replay does reject a record whose id no longer matches its content.
type WALStore struct {
	mem    *MemStore
	ledger *integrity.Ledger

	mu   sync.Mutex
	file *os.File
	w    *bufio.Writer
}

// OpenWALStore opens (creating if absent) the WAL file at path and replays
// it into a fresh MemStore before accepting new writes.
func OpenWALStore(path string, maxEpisodes int, maxBytes int64, sizeLimit int) (*WALStore, error) {
	mem := NewMemStore(maxEpisodes, maxBytes, sizeLimit)
	ledger := integrity.NewLedger()

	s := &WALStore{mem: mem, ledger: ledger}

	if err := s.replay(path, ledger); err != nil {
		return nil, apierr.Internal(err, "vault: replaying WAL at %s", path)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, apierr.Internal(err, "vault: opening WAL at %s", path)
	}
	s.file = f
	s.w = bufio.NewWriter(f)

	return s, nil
}

func (s *WALStore) replay(path string, ledger *integrity.Ledger) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var rec walRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return fmt.Errorf("corrupt WAL record: %w", err)
		}
		id := computeID(rec.CreatedAt, rec.ActivationVector, rec.Meta)
		if id != rec.ID {
			return fmt.Errorf("WAL record %s fails content-address check (recomputed %s)", rec.ID, id)
		}
		if _, _, err := s.mem.Put(context.Background(), rec.CreatedAt, rec.ConceptIDs, rec.ActivationVector, rec.Meta); err != nil {
			return fmt.Errorf("replaying record %s: %w", rec.ID, err)
		}
		ledger.Append("put", rec.ID, fmt.Sprintf("created_at=%d size=%d", rec.CreatedAt, len(rec.ActivationVector)*4))
	}
	return scanner.Err()
}

func (s *WALStore) Put(ctx context.Context, createdAt int64, conceptIDs []uint64, activationVector []float32, meta map[string]string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, wasExisting, err := s.mem.Put(ctx, createdAt, conceptIDs, activationVector, meta)
	if err != nil {
		return "", false, err
	}
	if wasExisting {
		return id, true, nil
	}

	rec := walRecord{ID: id, CreatedAt: createdAt, ConceptIDs: conceptIDs, ActivationVector: activationVector, Meta: meta}
	buf, err := json.Marshal(rec)
	if err != nil {
		return "", false, apierr.Internal(err, "vault: marshaling WAL record")
	}
	if _, err := s.w.Write(buf); err != nil {
		s.mem.SetDegraded(true)
		return "", false, apierr.Unavailable("vault: WAL write failed: %v", err)
	}
	if err := s.w.WriteByte('\n'); err != nil {
		s.mem.SetDegraded(true)
		return "", false, apierr.Unavailable("vault: WAL write failed: %v", err)
	}
	if err := s.w.Flush(); err != nil {
		s.mem.SetDegraded(true)
		return "", false, apierr.Unavailable("vault: WAL flush failed: %v", err)
	}
	if err := s.file.Sync(); err != nil {
		s.mem.SetDegraded(true)
		return "", false, apierr.Unavailable("vault: WAL fsync failed: %v", err)
	}

	s.ledger.Append("put", id, fmt.Sprintf("created_at=%d size=%d", createdAt, len(activationVector)*4))

	return id, false, nil
}

func (s *WALStore) Get(ctx context.Context, id string) (*Episode, bool, error) {
	return s.mem.Get(ctx, id)
}

func (s *WALStore) ListRecent(ctx context.Context, limit uint32, cursor string) ([]*Episode, string, uint64, error) {
	return s.mem.ListRecent(ctx, limit, cursor)
}

func (s *WALStore) Stats(ctx context.Context) (Stats, error) {
	return s.mem.Stats(ctx)
}

// Degraded reports whether the WAL has fallen into read-only mode.
func (s *WALStore) Degraded() (bool, string) {
	return s.mem.Degraded()
}

// LedgerRoot exposes the audit ledger's current root hash. No RPC returns
// it; the WAL tests compare it across Puts.
func (s *WALStore) LedgerRoot() string {
	return s.ledger.RootHash()
}

func (s *WALStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		return err
	}
	return s.file.Close()
}

var _ Store = (*WALStore)(nil)
