package main

import (
	"context"

	"google.golang.org/grpc"

	"github.com/tori/consolidation/internal/apierr"
	"github.com/tori/consolidation/internal/rpc"
)

// serviceTarget names the four addressable services plus the "all" alias
// used by status and health-check.
type serviceTarget string

const (
	targetVault     serviceTarget = "vault"
	targetScheduler serviceTarget = "scheduler"
	targetPruner    serviceTarget = "pruner"
	targetKoopman   serviceTarget = "koopman"
	targetAll       serviceTarget = "all"
)

func (o *rootOptions) addr(t serviceTarget) (string, error) {
	switch t {
	case targetVault:
		return o.cfg.Peers.VaultAddr, nil
	case targetScheduler:
		return o.cfg.Peers.SchedulerAddr, nil
	case targetPruner:
		return o.cfg.Peers.PrunerAddr, nil
	case targetKoopman:
		return o.cfg.Peers.KoopmanAddr, nil
	default:
		return "", apierr.InvalidArgument("toriadm: unknown service %q", t)
	}
}

// dial opens a client connection to t, carrying o.timeout as the dial
// deadline; the returned conn additionally needs a per-call deadline from
// rpc.WithDeadline before each RPC.
func (o *rootOptions) dial(ctx context.Context, t serviceTarget) (*grpc.ClientConn, error) {
	addr, err := o.addr(t)
	if err != nil {
		return nil, err
	}
	dialCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	conn, err := rpc.Dial(dialCtx, addr, o.verifier, o.cfg.Server.TrustDomain)
	if err != nil {
		return nil, apierr.Unavailable("toriadm: dial %s at %s: %v", t, addr, err)
	}
	return conn, nil
}
