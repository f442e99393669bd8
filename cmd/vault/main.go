// Command vault runs the EpisodicVault service: the append-only episode
// log and its PutEpisode/GetEpisode/ListRecent RPC surface.
package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"time"

	"github.com/tori/consolidation/internal/adminsrv"
	"github.com/tori/consolidation/internal/bootstrap"
	"github.com/tori/consolidation/internal/config"
	"github.com/tori/consolidation/internal/eventbus"
	"github.com/tori/consolidation/internal/healthsrv"
	"github.com/tori/consolidation/internal/identity"
	"github.com/tori/consolidation/internal/rpc"
	"github.com/tori/consolidation/internal/vault"
	"github.com/tori/consolidation/pb"
)

func main() {
	cfg := config.Get()

	store, err := vault.NewStore(cfg.Vault)
	if err != nil {
		log.Fatalf("vault: store init failed: %v", err)
	}

	bus, err := eventbus.NewBus(eventbus.Config{
		Backend:        cfg.Bus.Backend,
		RedisAddr:      cfg.Bus.RedisAddr,
		GCPProjectID:   cfg.Bus.GCPProjectID,
		GCPTopicPrefix: cfg.Bus.GCPTopicPrefix,
		QueueCapacity:  cfg.Bus.QueueCapacity,
	})
	if err != nil {
		log.Fatalf("vault: event bus init failed: %v", err)
	}
	defer bus.Close()

	server := vault.NewServer(store, bus)

	verifier, closeIdentity := bootstrap.Identity(cfg.Server)
	defer closeIdentity()

	grpcServer, err := rpc.NewServer(verifier, cfg.Server.TrustDomain)
	if err != nil {
		log.Fatalf("vault: rpc server init failed: %v", err)
	}
	grpcServer.RegisterService(&pb.Vault_ServiceDesc, server)
	grpcServer.RegisterService(&pb.Health_ServiceDesc, healthsrv.New(string(identity.ServiceVault), func() (bool, string) {
		return vault.StoreDegraded(store)
	}))

	rpcAddr := bootstrap.Addr("TORI_VAULT_RPC_ADDR", cfg.Server.RPCAddr, ":7070")
	lis, err := net.Listen("tcp", rpcAddr)
	if err != nil {
		log.Fatalf("vault: listen on %s: %v", rpcAddr, err)
	}
	go func() {
		slog.Info("vault RPC listening", "addr", rpcAddr)
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("vault RPC server error", "error", err)
		}
	}()

	adminRouter := adminsrv.NewRouter("vault", func() (bool, string) { return vault.StoreDegraded(store) })
	adminAddr := bootstrap.Addr("TORI_VAULT_ADMIN_ADDR", cfg.Server.AdminAddr, ":8080")
	adminServer := bootstrap.ServeAdmin(adminAddr, adminRouter)

	bootstrap.WaitForShutdown(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
		func(ctx context.Context) { adminServer.Shutdown(ctx) },
		func(ctx context.Context) { grpcServer.GracefulStop() },
	)
	slog.Info("vault stopped")
}
