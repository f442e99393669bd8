package koopmanlearner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tori/consolidation/internal/apierr"
	"github.com/tori/consolidation/internal/config"
	"github.com/tori/consolidation/internal/eventbus"
	"github.com/tori/consolidation/pb"
)

// Learner implements pb.KoopmanServer: a streaming/incremental sparse DMD
// fit over buffered activation-trace transitions, with a pluggable
// dictionary that defaults to the identity map over each trace's raw
// activation coordinates (the feature map §9 leaves unspecified).
type Learner struct {
	mu                   sync.Mutex
	cfg                  config.KoopmanConfig
	bus                  eventbus.Bus
	buffer               *RingBuffer
	modes                *ModeStore
	dim                  int
	lastRefreshTotal     int
	consecutiveFailures  int
	degraded             bool
	clock                func() int64
}

// NewLearner wires a Learner against the event bus (subscribed to
// activation.trace, publishing coupling.update) and cfg's thresholds.
func NewLearner(bus eventbus.Bus, cfg config.KoopmanConfig) *Learner {
	capacity := cfg.BufferCapacity
	if capacity <= 0 {
		capacity = 1024
	}
	return &Learner{
		cfg:    cfg,
		bus:    bus,
		buffer: NewRingBuffer(capacity),
		modes:  NewModeStore(cfg),
		clock:  func() int64 { return time.Now().UnixNano() },
	}
}

// Run subscribes to activation.trace until ctx is cancelled, the bus
// subscriber half of the {RPC server, worker pool, periodic scheduler,
// bus subscriber} composition from §9.
func (l *Learner) Run(ctx context.Context) {
	ch, unsub := l.bus.Subscribe(eventbus.TopicActivationTrace)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			l.ingestEvent(ev)
		}
	}
}

func (l *Learner) ingestEvent(ev *eventbus.Event) {
	episodeID, _ := ev.Data["episode_id"].(string)
	rawTraj, ok := trajectoryFromPayload(ev.Data["trajectory"])
	if !ok || episodeID == "" {
		return
	}
	traces := make([]*pb.ActivationTrace, 0, len(rawTraj))
	for step, vec := range rawTraj {
		traces = append(traces, &pb.ActivationTrace{EpisodeID: episodeID, Step: step, Activation: vec})
	}
	l.ingest(traces)
}

// trajectoryFromPayload extracts a trajectory from an activation.trace
// event's Data["trajectory"] field. MemBus delivers the Publish call's
// original [][]int8 value unchanged; RedisBus delivers events from other
// processes after a JSON round trip, which turns the same value into []any
// of []any of float64 (per Go's encoding/json decoding into interface{}).
// Both shapes are handled so K receives traces in the distributed
// configuration too.
func trajectoryFromPayload(v any) ([][]float32, bool) {
	switch t := v.(type) {
	case [][]int8:
		out := make([][]float32, len(t))
		for i, row := range t {
			vec := make([]float32, len(row))
			for j, x := range row {
				vec[j] = float32(x)
			}
			out[i] = vec
		}
		return out, true
	case []any:
		out := make([][]float32, len(t))
		for i, rowAny := range t {
			row, ok := rowAny.([]any)
			if !ok {
				return nil, false
			}
			vec := make([]float32, len(row))
			for j, x := range row {
				f, ok := x.(float64)
				if !ok {
					return nil, false
				}
				vec[j] = float32(f)
			}
			out[i] = vec
		}
		return out, true
	default:
		return nil, false
	}
}

// ProcessActivationBatch is the RPC entry point: same ingestion path the
// bus subscriber uses, for operator-driven or externally-produced
// batches.
func (l *Learner) ProcessActivationBatch(ctx context.Context, req *pb.ProcessActivationBatchRequest) (*pb.ProcessActivationBatchResponse, error) {
	l.mu.Lock()
	degraded := l.degraded
	l.mu.Unlock()
	if degraded {
		return nil, apierr.FailedPrecondition("koopmanlearner: service degraded, rejecting writes")
	}
	if l.cfg.BatchSizeLimit > 0 && len(req.Traces) > l.cfg.BatchSizeLimit {
		return nil, apierr.InvalidArgument("koopmanlearner: batch of %d traces exceeds batch_size_limit %d", len(req.Traces), l.cfg.BatchSizeLimit)
	}

	extracted, total := l.ingest(req.Traces)
	return &pb.ProcessActivationBatchResponse{
		ModesExtracted: extracted,
		TotalModes:     total,
		Message:        fmt.Sprintf("batch %s processed", req.BatchID),
	}, nil
}

// dedupByStep drops repeated (episode_id, step) entries, keeping the first
// occurrence. seq must already be sorted by Step. The event bus redelivers
// at least once, so the same trace can arrive twice.
func dedupByStep(seq []*pb.ActivationTrace) []*pb.ActivationTrace {
	out := seq[:0:0]
	lastStep := 0
	haveLast := false
	for _, t := range seq {
		if haveLast && t.Step == lastStep {
			continue
		}
		out = append(out, t)
		lastStep = t.Step
		haveLast = true
	}
	return out
}

// ingest groups traces into per-episode transitions, buffers them, and
// triggers a refresh once refresh_stride new pairs have accumulated.
func (l *Learner) ingest(traces []*pb.ActivationTrace) (extracted int, totalModes int) {
	byEpisode := make(map[string][]*pb.ActivationTrace)
	for _, t := range traces {
		byEpisode[t.EpisodeID] = append(byEpisode[t.EpisodeID], t)
	}

	l.mu.Lock()
	for episodeID, seq := range byEpisode {
		sort.Slice(seq, func(i, j int) bool { return seq[i].Step < seq[j].Step })
		seq = dedupByStep(seq)
		byEpisode[episodeID] = seq
		for i := 0; i+1 < len(seq); i++ {
			x := toFloat64(seq[i].Activation)
			xp := toFloat64(seq[i+1].Activation)
			if l.dim == 0 {
				l.dim = len(x)
				if l.cfg.Rank > 0 && l.dim > l.cfg.Rank {
					l.dim = l.cfg.Rank
				}
			}
			l.buffer.Push(pair{x: x, xp: xp})
		}
	}
	stride := l.cfg.RefreshStride
	due := stride > 0 && l.buffer.Total()-l.lastRefreshTotal >= stride
	dim := l.dim
	l.mu.Unlock()

	if due {
		extracted = l.refresh(dim)
	}
	return extracted, l.modes.Count()
}

// refresh fits the DMD operator over the buffered transitions and merges
// the resulting candidates into the mode set. A fit failure counts
// toward max_consecutive_refresh_failures before the service degrades.
func (l *Learner) refresh(dim int) int {
	l.mu.Lock()
	l.lastRefreshTotal = l.buffer.Total()
	pairs := l.buffer.Snapshot()
	l.mu.Unlock()

	a, err := fitOperator(pairs, dim)
	if err != nil {
		l.mu.Lock()
		l.consecutiveFailures++
		if l.cfg.MaxConsecutiveRefreshFailures > 0 && l.consecutiveFailures > l.cfg.MaxConsecutiveRefreshFailures {
			l.degraded = true
		}
		l.mu.Unlock()
		return 0
	}
	l.mu.Lock()
	l.consecutiveFailures = 0
	l.mu.Unlock()

	candidates := extractCandidates(a, l.cfg.ModeMagFloor, l.cfg.SparsityCap)
	touched := make(map[string]struct{}, len(candidates))
	now := l.clock()

	for _, c := range candidates {
		res := l.modes.Merge(c, now)
		touched[res.mode.ID] = struct{}{}
		if res.delta > l.cfg.CouplingEpsilon {
			l.publishCoupling(res.mode)
		}
	}
	l.modes.Decay(touched)
	return len(candidates)
}

func (l *Learner) publishCoupling(m *Mode) {
	if l.bus == nil {
		return
	}
	coeffs := make(map[uint64]float64, len(m.Coefficients))
	for k, v := range m.Coefficients {
		coeffs[uint64(k)] = v
	}
	l.bus.Publish(eventbus.TopicCouplingUpdate, map[string]any{
		"mode_id":          m.ID,
		"coefficients_diff": coeffs,
		"eigenvalue_re":     m.Eig.re,
		"eigenvalue_im":     m.Eig.im,
		"stability":         m.Stability,
	})
}

// GetSpectralModes returns up to max_modes current modes, most stable
// first.
func (l *Learner) GetSpectralModes(ctx context.Context, req *pb.GetSpectralModesRequest) (*pb.GetSpectralModesResponse, error) {
	modes := l.modes.Snapshot(int(req.MaxModes))
	out := make([]*pb.SpectralMode, 0, len(modes))
	for _, m := range modes {
		coeffs := make(map[uint64]float64, len(m.Coefficients))
		for k, v := range m.Coefficients {
			coeffs[uint64(k)] = v
		}
		out = append(out, &pb.SpectralMode{
			ModeID:       m.ID,
			EigenvalueRe: m.Eig.re,
			EigenvalueIm: m.Eig.im,
			Coefficients: coeffs,
			Stability:    m.Stability,
			LastSeenAt:   m.LastSeenAt,
		})
	}
	return &pb.GetSpectralModesResponse{Modes: out}, nil
}

// UpdateOscillatorCouplings republishes coupling.update for every
// currently retained mode, for operators who want to force a downstream
// resync outside the refresh cadence.
func (l *Learner) UpdateOscillatorCouplings(ctx context.Context, req *pb.UpdateOscillatorCouplingsRequest) (*pb.UpdateOscillatorCouplingsResponse, error) {
	modes := l.modes.Snapshot(0)
	for _, m := range modes {
		l.publishCoupling(m)
	}
	return &pb.UpdateOscillatorCouplingsResponse{UpdatesEmitted: len(modes)}, nil
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

// Degraded reports whether max_consecutive_refresh_failures has tripped,
// the trigger that refuses further ProcessActivationBatch writes.
func (l *Learner) Degraded() (bool, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.degraded {
		return true, "koopmanlearner: max_consecutive_refresh_failures exceeded"
	}
	return false, ""
}

var _ pb.KoopmanServer = (*Learner)(nil)
