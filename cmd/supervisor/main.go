// Command supervisor spawns EpisodicVault, SleepScheduler, SparsePruner and
// KoopmanLearner as child processes on one host, starting them in
// dependency order and health-checking each before advancing, then drains
// them in reverse order on its own shutdown signal.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tori/consolidation/internal/bootstrap"
	"github.com/tori/consolidation/internal/config"
	"github.com/tori/consolidation/internal/identity"
	"github.com/tori/consolidation/internal/rpc"
	"github.com/tori/consolidation/pb"
)

// child describes one supervised service binary.
type child struct {
	name       string
	command    string
	env        []string
	healthAddr string

	cmd *exec.Cmd
}

func main() {
	cfg := config.Get()
	verifier, closeIdentity := bootstrap.Identity(cfg.Server)
	defer closeIdentity()

	children := []*child{
		{
			name:       "vault",
			command:    binaryPath("vault"),
			env:        []string{"TORI_VAULT_RPC_ADDR=" + cfg.Peers.VaultAddr, "TORI_VAULT_ADMIN_ADDR=:8080"},
			healthAddr: cfg.Peers.VaultAddr,
		},
		{
			name:       "sleepscheduler",
			command:    binaryPath("sleepscheduler"),
			env:        []string{"TORI_SCHEDULER_RPC_ADDR=" + cfg.Peers.SchedulerAddr, "TORI_SCHEDULER_ADMIN_ADDR=:8081"},
			healthAddr: cfg.Peers.SchedulerAddr,
		},
		{
			name:       "sparsepruner",
			command:    binaryPath("sparsepruner"),
			env:        []string{"TORI_PRUNER_RPC_ADDR=" + cfg.Peers.PrunerAddr, "TORI_PRUNER_ADMIN_ADDR=:8082"},
			healthAddr: cfg.Peers.PrunerAddr,
		},
		{
			name:       "koopmanlearner",
			command:    binaryPath("koopmanlearner"),
			env:        []string{"TORI_KOOPMAN_RPC_ADDR=" + cfg.Peers.KoopmanAddr, "TORI_KOOPMAN_ADMIN_ADDR=:8083"},
			healthAddr: cfg.Peers.KoopmanAddr,
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := make([]*child, 0, len(children))
	for _, c := range children {
		if err := startChild(ctx, c, verifier, cfg.Server.TrustDomain); err != nil {
			slog.Error("supervisor: child failed to become healthy, draining already-started children", "service", c.name, "error", err)
			drainReverse(started)
			os.Exit(1)
		}
		started = append(started, c)
	}
	slog.Info("supervisor: all four services healthy")

	<-ctx.Done()
	slog.Info("supervisor: shutdown signal received, draining children in reverse start order")
	drainReverse(started)
}

// binaryPath resolves a child binary next to the supervisor's own
// executable, falling back to PATH lookup for a go-installed layout.
func binaryPath(name string) string {
	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return name
}

// startChild launches c's process and blocks, with capped exponential
// backoff, until its HealthCheck RPC reports HEALTHY or DEGRADED (still
// serving reads) or the retry budget is exhausted. Mirrors the
// fetch-with-backoff idiom the scheduler uses to pull from V.
func startChild(ctx context.Context, c *child, verifier *identity.Verifier, trustDomain string) error {
	cmd := exec.CommandContext(ctx, c.command)
	cmd.Env = append(os.Environ(), c.env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", c.name, err)
	}
	c.cmd = cmd
	slog.Info("supervisor: child started", "service", c.name, "pid", cmd.Process.Pid, "health_addr", c.healthAddr)

	const maxRetries = 10
	backoffBase := 200 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if waitErr := pollOnce(ctx, c.healthAddr, verifier, trustDomain); waitErr == nil {
			slog.Info("supervisor: child healthy", "service", c.name)
			return nil
		} else {
			lastErr = waitErr
		}
		delay := backoffBase * time.Duration(1<<uint(attempt))
		if delay > 5*time.Second {
			delay = 5 * time.Second
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s never became healthy: %w", c.name, lastErr)
}

func pollOnce(ctx context.Context, addr string, verifier *identity.Verifier, trustDomain string) error {
	dialCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	conn, err := rpc.Dial(dialCtx, addr, verifier, trustDomain)
	if err != nil {
		return err
	}
	defer conn.Close()

	checkCtx, cancelCheck := context.WithTimeout(ctx, 2*time.Second)
	defer cancelCheck()
	status, err := pb.NewHealthClient(conn).HealthCheck(checkCtx, &pb.HealthRequest{})
	if err != nil {
		return err
	}
	if status.Status != "HEALTHY" && status.Status != "DEGRADED" {
		return fmt.Errorf("unexpected status %q: %s", status.Status, status.Message)
	}
	return nil
}

// drainReverse sends SIGTERM to each started child in reverse start order
// and waits for it to exit, giving each a few seconds before moving on.
func drainReverse(started []*child) {
	for i := len(started) - 1; i >= 0; i-- {
		c := started[i]
		if c.cmd == nil || c.cmd.Process == nil {
			continue
		}
		slog.Info("supervisor: stopping child", "service", c.name, "pid", c.cmd.Process.Pid)
		_ = c.cmd.Process.Signal(syscall.SIGTERM)

		done := make(chan struct{})
		go func() {
			c.cmd.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			slog.Warn("supervisor: child did not exit in time, killing", "service", c.name)
			_ = c.cmd.Process.Kill()
		}
	}
}
