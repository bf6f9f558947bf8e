package grpc

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/hykura1501/e-commerce/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// ServiceName is the name probes use for the cart service as a whole.
const ServiceName = "cart.v1.CartService"

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// HealthServer exposes grpc.health.v1 for orchestrator probes. Status is
// recomputed from the registered checks on every Probe.
type HealthServer struct {
	srv    *grpc.Server
	health *health.Server
	checks map[string]Check
	log    *slog.Logger
}

func NewHealthServer(checks map[string]Check) *HealthServer {
	srv := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{MaxConnectionIdle: 5 * time.Minute}),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{srv: srv, health: hs, checks: checks, log: logging.New("grpc-health")}
}

// Probe runs every check and publishes the aggregate status.
func (h *HealthServer) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.Warn("dependency unhealthy", "dependency", name, "err", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.health.SetServingStatus(ServiceName, status)
	h.health.SetServingStatus("", status)
	return status
}

// Run probes every interval until ctx is done.
func (h *HealthServer) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	h.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			h.Probe(ctx)
		}
	}
}

func (h *HealthServer) Serve(lis net.Listener) error { return h.srv.Serve(lis) }

func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.srv.GracefulStop()
}
