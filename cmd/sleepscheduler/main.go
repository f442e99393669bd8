// Command sleepscheduler runs the SleepScheduler service: the sole owner
// of the shared concept-coupling matrix W and its annealed wake-sleep
// consolidation cycle.
package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"time"

	"github.com/tori/consolidation/internal/adminsrv"
	"github.com/tori/consolidation/internal/bootstrap"
	"github.com/tori/consolidation/internal/circuitbreaker"
	"github.com/tori/consolidation/internal/config"
	"github.com/tori/consolidation/internal/eventbus"
	"github.com/tori/consolidation/internal/healthsrv"
	"github.com/tori/consolidation/internal/identity"
	"github.com/tori/consolidation/internal/rpc"
	"github.com/tori/consolidation/internal/sleepscheduler"
	"github.com/tori/consolidation/pb"
)

func main() {
	cfg := config.Get()

	bus, err := eventbus.NewBus(eventbus.Config{
		Backend:        cfg.Bus.Backend,
		RedisAddr:      cfg.Bus.RedisAddr,
		GCPProjectID:   cfg.Bus.GCPProjectID,
		GCPTopicPrefix: cfg.Bus.GCPTopicPrefix,
		QueueCapacity:  cfg.Bus.QueueCapacity,
	})
	if err != nil {
		log.Fatalf("sleepscheduler: event bus init failed: %v", err)
	}
	defer bus.Close()

	verifier, closeIdentity := bootstrap.Identity(cfg.Server)
	defer closeIdentity()

	dialCtx, cancelDial := context.WithTimeout(context.Background(), 10*time.Second)
	vaultConn, err := rpc.Dial(dialCtx, cfg.Peers.VaultAddr, verifier, cfg.Server.TrustDomain)
	cancelDial()
	if err != nil {
		log.Fatalf("sleepscheduler: dial vault at %s: %v", cfg.Peers.VaultAddr, err)
	}
	defer vaultConn.Close()
	vaultClient := pb.NewVaultClient(vaultConn)

	breakers := circuitbreaker.NewPipelineCircuitBreakers()
	matrix := sleepscheduler.NewMatrix()
	scheduler := sleepscheduler.NewScheduler(matrix, vaultClient, bus, cfg.Scheduler, breakers.VaultFetch)

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()
	go scheduler.Run(runCtx)

	grpcServer, err := rpc.NewServer(verifier, cfg.Server.TrustDomain)
	if err != nil {
		log.Fatalf("sleepscheduler: rpc server init failed: %v", err)
	}
	grpcServer.RegisterService(&pb.Scheduler_ServiceDesc, scheduler)
	grpcServer.RegisterService(&pb.Health_ServiceDesc, healthsrv.New(string(identity.ServiceScheduler), scheduler.Degraded))

	rpcAddr := bootstrap.Addr("TORI_SCHEDULER_RPC_ADDR", cfg.Server.RPCAddr, ":7071")
	lis, err := net.Listen("tcp", rpcAddr)
	if err != nil {
		log.Fatalf("sleepscheduler: listen on %s: %v", rpcAddr, err)
	}
	go func() {
		slog.Info("sleepscheduler RPC listening", "addr", rpcAddr)
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("sleepscheduler RPC server error", "error", err)
		}
	}()

	adminRouter := adminsrv.NewRouter("sleepscheduler", scheduler.Degraded)
	adminAddr := bootstrap.Addr("TORI_SCHEDULER_ADMIN_ADDR", cfg.Server.AdminAddr, ":8081")
	adminServer := bootstrap.ServeAdmin(adminAddr, adminRouter)

	bootstrap.WaitForShutdown(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
		func(ctx context.Context) { adminServer.Shutdown(ctx) },
		func(ctx context.Context) { grpcServer.GracefulStop() },
	)
	cancelRun()
	slog.Info("sleepscheduler stopped")
}
