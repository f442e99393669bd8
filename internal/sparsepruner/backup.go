package sparsepruner

import (
	"strconv"
	"sync"
	"time"

	"github.com/tori/consolidation/internal/integrity"
	"github.com/tori/consolidation/pb"
)

// PruneBackup is the compact diff a committed PruneOp writes before it
// zeroes any edge: the prior magnitude of every edge it is about to
// remove, enough to undo the op with ApplyEdgeDiff alone.
type PruneBackup struct {
	ID           string
	Edges        []*pb.MatrixEdge // prior (i, j, w) of every removed edge
	QualityDelta float64
	Base         uint64 // W version the prune was computed against
	CreatedAt    time.Time
	LeafHash     string
}

// BackupStore holds PruneBackups for rollback_window, grounded on the
// compensation-stack idiom: a backup is an undo a future Revert replays,
// not a general-purpose archive.
type BackupStore struct {
	mu      sync.Mutex
	window  time.Duration
	ledger  *integrity.Ledger
	backups map[string]*PruneBackup
	now     func() time.Time
}

// NewBackupStore creates a store retaining entries for window, auditing
// every put through ledger.
func NewBackupStore(window time.Duration, ledger *integrity.Ledger) *BackupStore {
	return &BackupStore{window: window, ledger: ledger, backups: make(map[string]*PruneBackup), now: time.Now}
}

// Put records a backup and appends it to the audit ledger.
func (s *BackupStore) Put(id string, edges []*pb.MatrixEdge, qualityDelta float64, base uint64) *PruneBackup {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := &PruneBackup{ID: id, Edges: edges, QualityDelta: qualityDelta, Base: base, CreatedAt: s.now()}
	if s.ledger != nil {
		b.LeafHash = s.ledger.Append("pruner.commit", id, backupDetail(edges))
	}
	s.backups[id] = b
	s.gcLocked()
	return b
}

// Get returns the backup for id if it is still within its rollback
// window, or nil otherwise.
func (s *BackupStore) Get(id string) *PruneBackup {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gcLocked()
	return s.backups[id]
}

// Delete removes a backup immediately, used after a successful revert so
// the same prune cannot be reverted twice.
func (s *BackupStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.backups, id)
}

func (s *BackupStore) gcLocked() {
	if s.window <= 0 {
		return
	}
	cutoff := s.now().Add(-s.window)
	for id, b := range s.backups {
		if b.CreatedAt.Before(cutoff) {
			delete(s.backups, id)
		}
	}
}

func backupDetail(edges []*pb.MatrixEdge) string {
	return "edges=" + strconv.Itoa(len(edges))
}
