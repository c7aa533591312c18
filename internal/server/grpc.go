// Package server hosts the gRPC health endpoint used by load balancers and orchestrators.
package server

import (
	"context"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"afriquize-delights/backend/internal/logging"
)

// ServiceName is the name the account service reports under in grpc.health.v1.
const ServiceName = "afriquize.account"

const probeTimeout = 3 * time.Second

// Pinger checks storage reachability (e.g. repository.Store).
type Pinger interface {
	Ping(ctx context.Context) error
}

// PolicyChecker checks the access policy engine compiles and evaluates (e.g. *engine.OPAEvaluator).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthServer is a gRPC server exposing grpc.health.v1.Health. Its status is SERVING only
// while the last probe found storage and the policy engine healthy.
type HealthServer struct {
	grpc    *grpc.Server
	health  *health.Server
	pinger  Pinger
	checker PolicyChecker
	log     logging.Logger
}

// NewHealthServer returns a server with NOT_SERVING status until the first Probe.
// pinger and checker may be nil, in which case that check is skipped.
func NewHealthServer(pinger Pinger, checker PolicyChecker, log logging.Logger) *HealthServer {
	if log == nil {
		log = logging.Nop()
	}
	gs := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	return &HealthServer{grpc: gs, health: hs, pinger: pinger, checker: checker, log: log}
}

// Probe runs the readiness checks once and publishes the result.
func (s *HealthServer) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if s.pinger != nil {
		if err := s.pinger.Ping(ctx); err != nil {
			s.log.Warn(ctx, "health: storage ping failed", "error", err)
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	if s.checker != nil {
		if err := s.checker.HealthCheck(ctx); err != nil {
			s.log.Warn(ctx, "health: policy check failed", "error", err)
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
	return st
}

// Watch probes every interval until ctx is done.
func (s *HealthServer) Watch(ctx context.Context, interval time.Duration) {
	s.Probe(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Probe(ctx)
		}
	}
}

// Serve accepts connections on lis until Stop.
func (s *HealthServer) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop marks the service NOT_SERVING and drains in-flight RPCs.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
