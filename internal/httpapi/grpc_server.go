package httpapi

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"rollbook.org/internal/obs"
)

const serviceName = "rollbook-api"

// GRPCServer exposes the standard gRPC health service next to the HTTP
// listener, fed by the same readiness probe.
type GRPCServer struct {
	server    *grpc.Server
	health    *health.Server
	readiness readinessChecker
}

// NewGRPCServer creates the gRPC service wrapper.
func NewGRPCServer(r readinessChecker) *GRPCServer {
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return &GRPCServer{
		server:    srv,
		health:    hs,
		readiness: r,
	}
}

// Refresh evaluates the readiness probe and publishes the result to both the
// health service and the metrics gauge.
func (s *GRPCServer) Refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	ready := true
	if err := s.readiness.Check(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		ready = false
	}
	obs.SetReady(ready)
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(serviceName, status)
}

// Serve runs the gRPC listener and refreshes readiness periodically until the
// context is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	s.Refresh(ctx)

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.server.GracefulStop()
				return
			case <-ticker.C:
				s.Refresh(ctx)
			}
		}
	}()

	return s.server.Serve(lis)
}
