// Command koopmanlearner runs the KoopmanLearner service: streaming
// sparse DMD mode extraction over activation traces, publishing
// coupling.update for the oscillator relay to deliver downstream.
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
	"github.com/tori/consolidation/internal/koopmanlearner"
	"github.com/tori/consolidation/internal/oscillator"
	"github.com/tori/consolidation/internal/rpc"
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
		log.Fatalf("koopmanlearner: event bus init failed: %v", err)
	}
	defer bus.Close()

	verifier, closeIdentity := bootstrap.Identity(cfg.Server)
	defer closeIdentity()

	learner := koopmanlearner.NewLearner(bus, cfg.Koopman)

	breakers := circuitbreaker.NewPipelineCircuitBreakers()
	relay, err := oscillator.New(bus, cfg.Oscillator, breakers.OscillatorDelivery)
	if err != nil {
		log.Fatalf("koopmanlearner: oscillator relay init failed: %v", err)
	}

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()
	go learner.Run(runCtx)
	go relay.Run(runCtx)

	grpcServer, err := rpc.NewServer(verifier, cfg.Server.TrustDomain)
	if err != nil {
		log.Fatalf("koopmanlearner: rpc server init failed: %v", err)
	}
	grpcServer.RegisterService(&pb.Koopman_ServiceDesc, learner)
	grpcServer.RegisterService(&pb.Health_ServiceDesc, healthsrv.New(string(identity.ServiceKoopman), learner.Degraded))

	rpcAddr := bootstrap.Addr("TORI_KOOPMAN_RPC_ADDR", cfg.Server.RPCAddr, ":7073")
	lis, err := net.Listen("tcp", rpcAddr)
	if err != nil {
		log.Fatalf("koopmanlearner: listen on %s: %v", rpcAddr, err)
	}
	go func() {
		slog.Info("koopmanlearner RPC listening", "addr", rpcAddr)
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("koopmanlearner RPC server error", "error", err)
		}
	}()

	adminRouter := adminsrv.NewRouter("koopmanlearner", learner.Degraded)
	adminAddr := bootstrap.Addr("TORI_KOOPMAN_ADMIN_ADDR", cfg.Server.AdminAddr, ":8083")
	adminServer := bootstrap.ServeAdmin(adminAddr, adminRouter)

	bootstrap.WaitForShutdown(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
		func(ctx context.Context) { adminServer.Shutdown(ctx) },
		func(ctx context.Context) { grpcServer.GracefulStop() },
	)
	cancelRun()
	slog.Info("koopmanlearner stopped")
}
