// Package bootstrap holds the startup sequence shared by the four service
// entrypoints: SPIFFE identity (soft-disabled when no SPIRE agent is
// reachable), the admin HTTP listener, and signal-driven graceful shutdown.
package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tori/consolidation/internal/config"
	"github.com/tori/consolidation/internal/identity"
)

// Addr resolves a listen address with three levels of precedence: the
// service-specific env var envKey, then cfgVal (server.rpc_addr /
// server.admin_addr, itself overridable by the shared TORI_RPC_ADDR /
// TORI_ADMIN_ADDR env vars), then fallback. Running all four services from
// one config.yaml on a single host needs distinct ports per service; the
// supervisor sets envKey per child it spawns.
func Addr(envKey, cfgVal, fallback string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if cfgVal != "" {
		return cfgVal
	}
	return fallback
}

// Identity connects to the local SPIRE agent named by cfg.SpiffeSocketPath.
// A connection failure is logged and nil is returned rather than aborting
// startup: mTLS is defense in depth, not a prerequisite for the pipeline to
// run, matching the teacher's SPIFFE wiring in cmd/api/main.go.
func Identity(cfg config.ServerConfig) (*identity.Verifier, func()) {
	verifier, err := identity.NewVerifier(cfg.SpiffeSocketPath)
	if err != nil {
		slog.Warn("SPIFFE verifier not available, running without mTLS", "error", err)
		return nil, func() {}
	}
	slog.Info("SPIFFE verifier connected", "socket_path", cfg.SpiffeSocketPath)
	return verifier, func() { verifier.Close() }
}

// ServeAdmin starts router on addr in the background, logging errors other
// than the expected post-Shutdown ErrServerClosed.
func ServeAdmin(addr string, router http.Handler) *http.Server {
	srv := &http.Server{Addr: addr, Handler: router}
	go func() {
		slog.Info("admin listener starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("admin listener failed", "error", err)
		}
	}()
	return srv
}

// WaitForShutdown blocks until SIGINT/SIGTERM, then runs each of drain's
// functions in order before returning. Cloud Run and systemd both deliver
// SIGTERM on stop, mirroring the teacher's shutdown handling.
func WaitForShutdown(ctx context.Context, shutdownTimeout time.Duration, drain ...func(context.Context)) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, fn := range drain {
		fn(shutdownCtx)
	}
}
