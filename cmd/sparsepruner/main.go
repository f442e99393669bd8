// Command sparsepruner runs the SparsePruner service: L1-constrained edge
// pruning against the scheduler's shared matrix W, reached exclusively
// through GetMatrixSnapshot/ApplyEdgeDiff.
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
	"github.com/tori/consolidation/internal/sparsepruner"
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
		log.Fatalf("sparsepruner: event bus init failed: %v", err)
	}
	defer bus.Close()

	verifier, closeIdentity := bootstrap.Identity(cfg.Server)
	defer closeIdentity()

	dialCtx, cancelDial := context.WithTimeout(context.Background(), 10*time.Second)
	schedulerConn, err := rpc.Dial(dialCtx, cfg.Peers.SchedulerAddr, verifier, cfg.Server.TrustDomain)
	cancelDial()
	if err != nil {
		log.Fatalf("sparsepruner: dial scheduler at %s: %v", cfg.Peers.SchedulerAddr, err)
	}
	defer schedulerConn.Close()
	schedulerClient := pb.NewSchedulerClient(schedulerConn)

	breakers := circuitbreaker.NewPipelineCircuitBreakers()
	pruner := sparsepruner.NewPruner(schedulerClient, bus, cfg.Pruner, breakers.SchedulerSnapshot)

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()
	go pruner.Run(runCtx)

	grpcServer, err := rpc.NewServer(verifier, cfg.Server.TrustDomain)
	if err != nil {
		log.Fatalf("sparsepruner: rpc server init failed: %v", err)
	}
	grpcServer.RegisterService(&pb.Pruner_ServiceDesc, pruner)
	grpcServer.RegisterService(&pb.Health_ServiceDesc, healthsrv.New(string(identity.ServicePruner), pruner.Degraded))

	rpcAddr := bootstrap.Addr("TORI_PRUNER_RPC_ADDR", cfg.Server.RPCAddr, ":7072")
	lis, err := net.Listen("tcp", rpcAddr)
	if err != nil {
		log.Fatalf("sparsepruner: listen on %s: %v", rpcAddr, err)
	}
	go func() {
		slog.Info("sparsepruner RPC listening", "addr", rpcAddr)
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("sparsepruner RPC server error", "error", err)
		}
	}()

	adminRouter := adminsrv.NewRouter("sparsepruner", pruner.Degraded)
	adminAddr := bootstrap.Addr("TORI_PRUNER_ADMIN_ADDR", cfg.Server.AdminAddr, ":8082")
	adminServer := bootstrap.ServeAdmin(adminAddr, adminRouter)

	bootstrap.WaitForShutdown(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
		func(ctx context.Context) { adminServer.Shutdown(ctx) },
		func(ctx context.Context) { grpcServer.GracefulStop() },
	)
	cancelRun()
	slog.Info("sparsepruner stopped")
}
