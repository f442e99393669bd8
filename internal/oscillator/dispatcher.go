// Package oscillator relays coupling.update events to the downstream
// oscillator substrate: a single webhook endpoint that consumes spectral
// mode coefficient diffs and folds them into its own coupling matrix. The
// pipeline has no visibility into what's on the other end of that webhook;
// delivery is best-effort (Cloud Tasks retries at the queue level; the
// in-process MemDispatcher makes one attempt per update) and guarded by
// circuitbreaker.OscillatorDelivery so a wedged consumer degrades to
// dropped updates rather than backpressure on KoopmanLearner.
package oscillator

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// CouplingUpdate is the payload handed to a Dispatcher, mirroring the
// coupling.update bus event.
type CouplingUpdate struct {
	ID           string             `json:"id"`
	ModeID       string             `json:"mode_id"`
	Coefficients map[uint64]float64 `json:"coefficients_diff"`
	EigenvalueRe float64            `json:"eigenvalue_re"`
	EigenvalueIm float64            `json:"eigenvalue_im"`
	Stability    float64            `json:"stability"`
	Timestamp    time.Time          `json:"timestamp"`
}

// Dispatcher delivers coupling updates to the oscillator substrate.
type Dispatcher interface {
	Emit(update *CouplingUpdate) error
	Shutdown()
}

// MemDispatcher delivers over a plain HTTP client from a bounded worker
// pool, the in-process fallback used both standalone (local dev) and as
// CloudDispatcher's fallback path.
type MemDispatcher struct {
	url        string
	secret     string
	httpClient *http.Client
	queue      chan *CouplingUpdate
	logger     *slog.Logger
	wg         sync.WaitGroup
}

// NewMemDispatcher starts a worker pool of the given size delivering to
// url. If workers <= 0, it defaults to 4.
func NewMemDispatcher(url, secret string, workers, queueCapacity int) *MemDispatcher {
	if workers <= 0 {
		workers = 4
	}
	if queueCapacity <= 0 {
		queueCapacity = 1000
	}
	d := &MemDispatcher{
		url:    url,
		secret: secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		queue:  make(chan *CouplingUpdate, queueCapacity),
		logger: slog.Default().With("component", "oscillator-dispatcher"),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Emit enqueues update for delivery. It never blocks: a full queue drops
// the update, counted by the caller's telemetry layer.
func (d *MemDispatcher) Emit(update *CouplingUpdate) error {
	if d.url == "" {
		return fmt.Errorf("oscillator: no webhook_url configured")
	}
	select {
	case d.queue <- update:
		return nil
	default:
		return fmt.Errorf("oscillator: delivery queue full, dropping mode %s", update.ModeID)
	}
}

func (d *MemDispatcher) worker() {
	defer d.wg.Done()
	for update := range d.queue {
		d.deliver(update)
	}
}

func (d *MemDispatcher) deliver(update *CouplingUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		d.logger.Error("marshal coupling update failed", "mode_id", update.ModeID, "err", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		d.logger.Error("build request failed", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-TORI-Event-Type", "coupling.update")
	req.Header.Set("X-TORI-Mode-ID", update.ModeID)
	if d.secret != "" {
		req.Header.Set("X-TORI-Signature", "sha256="+signPayload(payload, d.secret))
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Warn("delivery failed", "mode_id", update.ModeID, "err", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		d.logger.Warn("oscillator webhook rejected update", "mode_id", update.ModeID, "status", resp.StatusCode)
	}
}

// Shutdown drains the queue and waits for in-flight deliveries.
func (d *MemDispatcher) Shutdown() {
	close(d.queue)
	d.wg.Wait()
}

func signPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

var _ Dispatcher = (*MemDispatcher)(nil)
