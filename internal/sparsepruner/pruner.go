package sparsepruner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tori/consolidation/internal/apierr"
	"github.com/tori/consolidation/internal/circuitbreaker"
	"github.com/tori/consolidation/internal/config"
	"github.com/tori/consolidation/internal/eventbus"
	"github.com/tori/consolidation/internal/integrity"
	"github.com/tori/consolidation/pb"
)

// Pruner implements pb.PrunerServer. It never holds a pointer to S's
// matrix: every read goes through GetMatrixSnapshot, guarded by the
// SchedulerSnapshot breaker, and every write goes through ApplyEdgeDiff,
// which is called without the breaker.
type Pruner struct {
	mu       sync.Mutex
	scheduler pb.SchedulerClient
	bus      eventbus.Bus
	cfg      config.PrunerConfig
	cb       *circuitbreaker.CircuitBreaker
	backups  *BackupStore
	tracker  *IncidenceTracker
	ledger   *integrity.Ledger
	jobs     map[string]*pruneJob
	activeID string
}

// NewPruner wires a Pruner against the SleepScheduler RPC surface, the
// event bus (for concept.delta incidence tracking and graph.pruned
// publication), and the scheduler-snapshot circuit breaker.
func NewPruner(scheduler pb.SchedulerClient, bus eventbus.Bus, cfg config.PrunerConfig, cb *circuitbreaker.CircuitBreaker) *Pruner {
	ledger := integrity.NewLedger()
	return &Pruner{
		scheduler: scheduler,
		bus:       bus,
		cfg:       cfg,
		cb:        cb,
		backups:   NewBackupStore(cfg.RollbackWindow, ledger),
		tracker:   NewIncidenceTracker(cfg.RetentionWindow),
		ledger:    ledger,
		jobs:      make(map[string]*pruneJob),
	}
}

// Run drives the bus subscriber and the scheduled/event-driven trigger
// loop until ctx is cancelled. It is the "periodic scheduler + bus
// subscriber" half of the {RPC server, worker pool, periodic scheduler,
// bus subscriber} composition from §9.
func (p *Pruner) Run(ctx context.Context) {
	ch, unsub := p.bus.Subscribe(eventbus.TopicConceptDelta)
	defer unsub()

	interval := p.cfg.PruneInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			p.handleConceptDelta(ev)
		case <-ticker.C:
			p.maybeScheduledTrigger(ctx)
		}
	}
}

func (p *Pruner) handleConceptDelta(ev *eventbus.Event) {
	raw, ok := ev.Data["changed_concepts"]
	if !ok {
		return
	}
	concepts, ok := raw.([]uint64)
	if !ok {
		return
	}
	p.tracker.Record(concepts)
	p.maybeEventDrivenTrigger(context.Background())
}

// maybeEventDrivenTrigger fires TriggerPruning when edge_count exceeds
// max_edges * soft_cap, per §4.3's event-driven trigger mode.
func (p *Pruner) maybeEventDrivenTrigger(ctx context.Context) {
	if p.cfg.MaxEdges <= 0 || p.cfg.SoftCap <= 0 {
		return
	}
	snap, err := p.fetchSnapshot(ctx)
	if err != nil {
		return
	}
	if float64(len(snap.Edges)) <= float64(p.cfg.MaxEdges)*p.cfg.SoftCap {
		return
	}
	p.TriggerPruning(ctx, &pb.TriggerPruningRequest{
		Threshold: p.cfg.Threshold, TargetSparsity: p.cfg.TargetSparsity, CreateBackup: true,
	})
}

func (p *Pruner) maybeScheduledTrigger(ctx context.Context) {
	p.TriggerPruning(ctx, &pb.TriggerPruningRequest{
		Threshold: p.cfg.Threshold, TargetSparsity: p.cfg.TargetSparsity, CreateBackup: true,
	})
}

func (p *Pruner) fetchSnapshot(ctx context.Context) (*pb.GetMatrixSnapshotResponse, error) {
	return circuitbreaker.ExecuteWithFallback(p.cb,
		func() (*pb.GetMatrixSnapshotResponse, error) {
			return p.scheduler.GetMatrixSnapshot(ctx, &pb.GetMatrixSnapshotRequest{})
		},
		func(err error) (*pb.GetMatrixSnapshotResponse, error) {
			return nil, apierr.Unavailable("sparsepruner: scheduler snapshot unavailable: %v", err)
		},
	)
}

// PreviewPruning computes the outcome without mutating W.
func (p *Pruner) PreviewPruning(ctx context.Context, req *pb.PreviewPruningRequest) (*pb.PreviewPruningResponse, error) {
	snap, err := p.fetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	result := solve(snap.Edges, p.tracker.Touched, req.Threshold, req.TargetSparsity)

	pct := 0.0
	if result.totalEdges > 0 {
		pct = float64(len(result.prunable)) / float64(result.totalEdges)
	}
	return &pb.PreviewPruningResponse{
		TotalEdges:             uint64(result.totalEdges),
		PrunableEdges:          uint64(len(result.prunable)),
		PrunablePercentage:     pct,
		EstimatedQualityImpact: result.qualityImpact,
	}, nil
}

// TriggerPruning runs the solver and, unless dry_run or the quality
// budget is exceeded, commits the removal through ApplyEdgeDiff.
func (p *Pruner) TriggerPruning(ctx context.Context, req *pb.TriggerPruningRequest) (*pb.TriggerPruningResponse, error) {
	p.mu.Lock()
	if p.activeID != "" {
		p.mu.Unlock()
		return nil, apierr.FailedPrecondition("sparsepruner: prune %s already running", p.activeID)
	}
	id := uuid.NewString()
	p.activeID = id
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.activeID = ""
		p.mu.Unlock()
	}()

	job := newPruneJob(id)
	p.mu.Lock()
	p.jobs[id] = job
	p.mu.Unlock()

	snap, err := p.fetchSnapshot(ctx)
	if err != nil {
		job.finish("FAILED", err.Error())
		return nil, err
	}

	result := solve(snap.Edges, p.tracker.Touched, req.Threshold, req.TargetSparsity)

	if result.qualityImpact > p.cfg.QualityBudget {
		job.finish("REFUSED", "estimated quality impact exceeds quality_budget")
		return &pb.TriggerPruningResponse{
			PruningID: id, EdgesPruned: 0, QualityImpact: result.qualityImpact,
			Message: "refused: estimated quality impact exceeds quality_budget",
		}, apierr.PolicyRefusal("sparsepruner: estimated quality impact %.4f exceeds budget %.4f", result.qualityImpact, p.cfg.QualityBudget)
	}

	if req.DryRun {
		job.finish("COMPLETED", "dry run, W unchanged")
		return &pb.TriggerPruningResponse{
			PruningID: id, EdgesPruned: uint64(len(result.prunable)), QualityImpact: result.qualityImpact,
			Message: "dry run, W unchanged",
		}, nil
	}

	diff := make([]*pb.MatrixEdge, 0, len(result.prunable))
	priorEdges := make([]*pb.MatrixEdge, 0, len(result.prunable))
	for _, c := range result.prunable {
		diff = append(diff, &pb.MatrixEdge{I: c.key.I, J: c.key.J, W: 0})
		priorEdges = append(priorEdges, &pb.MatrixEdge{I: c.key.I, J: c.key.J, W: c.w})
	}

	if req.CreateBackup {
		p.backups.Put(id, priorEdges, result.qualityImpact, snap.Version)
	}

	applyResp, err := p.scheduler.ApplyEdgeDiff(ctx, &pb.ApplyEdgeDiffRequest{Edges: diff, ExpectedBase: snap.Version})
	if err != nil {
		p.backups.Delete(id)
		job.finish("FAILED", err.Error())
		return nil, apierr.Unavailable("sparsepruner: apply edge diff failed: %v", err)
	}
	if !applyResp.Applied {
		p.backups.Delete(id)
		job.finish("FAILED", applyResp.Message)
		return nil, apierr.Unavailable("sparsepruner: %s", applyResp.Message)
	}

	job.finish("COMPLETED", "")

	if p.bus != nil {
		p.bus.Publish(eventbus.TopicGraphPruned, map[string]any{
			"prune_id":      id,
			"edges_removed": uint64(len(result.prunable)),
			"quality_delta": result.qualityImpact,
		})
	}

	return &pb.TriggerPruningResponse{
		PruningID: id, EdgesPruned: uint64(len(result.prunable)), QualityImpact: result.qualityImpact, Message: "committed",
	}, nil
}

func (p *Pruner) GetPruningStatus(ctx context.Context, req *pb.GetPruningStatusRequest) (*pb.GetPruningStatusResponse, error) {
	p.mu.Lock()
	job, ok := p.jobs[req.PruningID]
	p.mu.Unlock()
	if !ok {
		return nil, apierr.NotFound("sparsepruner: no such pruning op %s", req.PruningID)
	}
	status, progress, message := job.snapshot()
	return &pb.GetPruningStatusResponse{Status: status, Progress: progress, Message: message}, nil
}

// Revert restores W to its pre-prune state via the inverse of the
// committed diff, as long as the backup has not aged out of
// rollback_window.
func (p *Pruner) Revert(ctx context.Context, req *pb.RevertRequest) (*pb.RevertResponse, error) {
	backup := p.backups.Get(req.PruningID)
	if backup == nil {
		return nil, apierr.NotFound("sparsepruner: no backup for prune %s (expired or never committed)", req.PruningID)
	}

	snap, err := p.fetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	applyResp, err := p.scheduler.ApplyEdgeDiff(ctx, &pb.ApplyEdgeDiffRequest{Edges: backup.Edges, ExpectedBase: snap.Version})
	if err != nil {
		return nil, apierr.Unavailable("sparsepruner: revert apply failed: %v", err)
	}
	if !applyResp.Applied {
		return &pb.RevertResponse{OK: false, Message: applyResp.Message}, nil
	}

	p.backups.Delete(req.PruningID)
	return &pb.RevertResponse{OK: true, Message: "reverted"}, nil
}

// Degraded reports the scheduler-snapshot circuit breaker's open state:
// a tripped breaker means P can no longer fetch or commit against W, so
// TriggerPruning is unlikely to succeed even though PreviewPruning against
// a stale snapshot and GetPruningStatus keep working.
func (p *Pruner) Degraded() (bool, string) {
	if p.cb != nil && p.cb.State() == circuitbreaker.StateOpen {
		return true, "sparsepruner: scheduler-snapshot circuit breaker open"
	}
	return false, ""
}

var _ pb.PrunerServer = (*Pruner)(nil)
