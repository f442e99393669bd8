package sleepscheduler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tori/consolidation/internal/apierr"
	"github.com/tori/consolidation/internal/circuitbreaker"
	"github.com/tori/consolidation/internal/config"
	"github.com/tori/consolidation/internal/eventbus"
	"github.com/tori/consolidation/pb"
)

// Scheduler implements pb.SchedulerServer: the single writer of the shared
// concept-coupling matrix W, running at most one consolidation cycle at a
// time.
type Scheduler struct {
	mu     sync.Mutex
	w      *Matrix
	vault  pb.VaultClient
	bus    eventbus.Bus
	cfg    config.SchedulerConfig
	cb     *circuitbreaker.CircuitBreaker
	rng    *rand.Rand
	jobs   map[string]*ConsolidationJob
	active string // id of the currently-running job, "" if idle
}

// NewScheduler wires a Scheduler against the shared matrix, a VaultClient
// for fetching episodes, the event bus, and the vault-fetch circuit
// breaker.
func NewScheduler(w *Matrix, vault pb.VaultClient, bus eventbus.Bus, cfg config.SchedulerConfig, cb *circuitbreaker.CircuitBreaker) *Scheduler {
	return &Scheduler{
		w: w, vault: vault, bus: bus, cfg: cfg, cb: cb,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
		jobs: make(map[string]*ConsolidationJob),
	}
}

func (s *Scheduler) StartConsolidation(ctx context.Context, req *pb.StartConsolidationRequest) (*pb.StartConsolidationResponse, error) {
	s.mu.Lock()
	if s.active != "" {
		s.mu.Unlock()
		return nil, apierr.FailedPrecondition("sleepscheduler: consolidation %s already running", s.active)
	}
	jobID := uuid.NewString()
	job := NewConsolidationJob(jobID)
	s.jobs[jobID] = job
	s.active = jobID
	s.mu.Unlock()

	runCycle := func() {
		defer func() {
			s.mu.Lock()
			s.active = ""
			s.mu.Unlock()
		}()
		s.runOneCycle(context.Background(), job, int(req.MaxEpisodes))
	}

	if req.WaitForCompletion {
		runCycle()
	} else {
		go runCycle()
	}

	snap := job.Snapshot()
	status := "RUNNING"
	if snap.State.IsTerminal() {
		status = snap.State.String()
	}
	return &pb.StartConsolidationResponse{
		ConsolidationID:   jobID,
		EnergyDelta:       snap.EnergyAfter - snap.EnergyBefore,
		EpisodesProcessed: snap.EpisodesProcessed,
		Status:            status,
	}, nil
}

// runOneCycle drives job through Fetching -> Annealing -> Committing (or
// RollingBack) -> terminal, honoring cancellation only between states.
func (s *Scheduler) runOneCycle(ctx context.Context, job *ConsolidationJob, maxEpisodes int) {
	windowSize := s.cfg.WindowSize
	if maxEpisodes > 0 && maxEpisodes < windowSize {
		windowSize = maxEpisodes
	}

	if err := job.transition(StateFetching); err != nil {
		job.fail(ReasonNone)
		return
	}
	if job.cancelled() {
		job.fail(ReasonCancelled)
		return
	}

	batch, err := fetchBatch(ctx, s.vault, s.cb, windowSize, s.cfg.MaxFetchRetries, s.cfg.FetchBackoffBase)
	if err != nil {
		job.fail(ReasonFetchExhausted)
		return
	}
	if len(batch) == 0 {
		job.transition(StateAnnealing)
		job.transition(StateCommitting)
		job.transition(StateCompleted)
		return
	}

	if err := job.transition(StateAnnealing); err != nil {
		job.fail(ReasonNone)
		return
	}
	if job.cancelled() {
		job.fail(ReasonCancelled)
		return
	}

	preSnapshot, _ := s.w.Snapshot()
	result := runConsolidationCycle(s.rng, s.w, s.cfg, batch)

	job.mu.Lock()
	job.energyBefore = result.energyBefore
	job.energyAfter = result.energyAfter
	job.episodesProcessed = uint32(len(batch))
	job.mu.Unlock()

	if result.energyAfter > result.energyBefore+s.cfg.EnergyDriftEpsilon {
		job.transition(StateRollingBack)
		s.w.Restore(preSnapshot)
		job.fail(ReasonEnergyDrift)
		return
	}

	if err := job.transition(StateCommitting); err != nil {
		job.fail(ReasonNone)
		return
	}
	s.commit(result)

	job.transition(StateCompleted)
	s.publishDeltas(result)
}

// commit applies the cycle's proposed edge updates to W in one version bump.
func (s *Scheduler) commit(result cycleResult) {
	for edge, w := range result.edgeDelta {
		s.w.Set(edge.I, edge.J, w)
	}
	s.w.bumpVersion()
}

func (s *Scheduler) publishDeltas(result cycleResult) {
	if s.bus == nil {
		return
	}
	changed := make([]uint64, 0, len(result.changedConcepts))
	for id := range result.changedConcepts {
		changed = append(changed, id)
	}
	s.bus.Publish(eventbus.TopicConceptDelta, map[string]any{
		"changed_concepts": changed,
		"energy_delta":     result.energyAfter - result.energyBefore,
	})
	for episodeID, trajectory := range result.trajectories {
		s.bus.Publish(eventbus.TopicActivationTrace, map[string]any{
			"episode_id": episodeID,
			"trajectory": trajectory,
		})
	}
}

func (s *Scheduler) GetConsolidationStatus(ctx context.Context, req *pb.GetConsolidationStatusRequest) (*pb.GetConsolidationStatusResponse, error) {
	s.mu.Lock()
	job, ok := s.jobs[req.ConsolidationID]
	s.mu.Unlock()
	if !ok {
		return nil, apierr.NotFound("sleepscheduler: no such consolidation job %s", req.ConsolidationID)
	}

	snap := job.Snapshot()
	progress := 0.0
	if snap.State.IsTerminal() {
		progress = 1.0
	}
	message := ""
	if snap.Reason != ReasonNone {
		message = string(snap.Reason)
	}
	return &pb.GetConsolidationStatusResponse{
		Status:      snap.State.String(),
		EnergyDelta: snap.EnergyAfter - snap.EnergyBefore,
		Progress:    progress,
		Message:     message,
	}, nil
}

func (s *Scheduler) UpdateConfig(ctx context.Context, req *pb.UpdateConfigRequest) (*pb.UpdateConfigResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	full := &config.Config{Scheduler: s.cfg}
	errs := full.ApplyUpdates(req.Config)
	if len(errs) > 0 {
		return &pb.UpdateConfigResponse{OK: false, Errors: errs}, nil
	}
	s.cfg = full.Scheduler
	return &pb.UpdateConfigResponse{OK: true}, nil
}

// GetMatrixSnapshot serves SparsePruner and KoopmanLearner's only sanctioned
// path to W: a wait-free, versioned read, never a shared in-process pointer.
func (s *Scheduler) GetMatrixSnapshot(ctx context.Context, req *pb.GetMatrixSnapshotRequest) (*pb.GetMatrixSnapshotResponse, error) {
	edges, version := s.w.Snapshot()
	out := make([]*pb.MatrixEdge, 0, len(edges))
	for k, w := range edges {
		out = append(out, &pb.MatrixEdge{I: k.I, J: k.J, W: w})
	}
	return &pb.GetMatrixSnapshotResponse{Edges: out, Version: version}, nil
}

// ApplyEdgeDiff is the sole sanctioned write path for SparsePruner: it
// commits a prune or a revert against W, rejecting diffs computed against
// a stale base version so a slow pruner can never clobber a newer anneal.
func (s *Scheduler) ApplyEdgeDiff(ctx context.Context, req *pb.ApplyEdgeDiffRequest) (*pb.ApplyEdgeDiffResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current := s.w.Version(); req.ExpectedBase != current {
		return &pb.ApplyEdgeDiffResponse{
			Applied:    false,
			NewVersion: current,
			Message:    "sleepscheduler: expected_base is stale, retry against the current snapshot",
		}, nil
	}

	for _, e := range req.Edges {
		s.w.Set(e.I, e.J, e.W)
	}
	s.w.bumpVersion()

	return &pb.ApplyEdgeDiffResponse{Applied: true, NewVersion: s.w.Version()}, nil
}

// Degraded reports the vault-fetch circuit breaker's open state as the
// scheduler's health signal: a tripped breaker means consolidation cycles
// can no longer fetch fresh episodes, so new StartConsolidation calls are
// unlikely to succeed even though reads (GetConsolidationStatus,
// GetMatrixSnapshot) keep working.
func (s *Scheduler) Degraded() (bool, string) {
	if s.cb != nil && s.cb.State() == circuitbreaker.StateOpen {
		return true, "sleepscheduler: vault-fetch circuit breaker open"
	}
	return false, ""
}

var _ pb.SchedulerServer = (*Scheduler)(nil)
