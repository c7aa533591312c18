package server

import (
	"context"
	"errors"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type mockPinger struct{ err error }

func (m *mockPinger) Ping(context.Context) error { return m.err }

type mockPolicyChecker struct{ err error }

func (m *mockPolicyChecker) HealthCheck(context.Context) error { return m.err }

func TestProbe(t *testing.T) {
	tests := []struct {
		name    string
		pinger  Pinger
		checker PolicyChecker
		want    healthpb.HealthCheckResponse_ServingStatus
	}{
		{"no checks", nil, nil, healthpb.HealthCheckResponse_SERVING},
		{"all healthy", &mockPinger{}, &mockPolicyChecker{}, healthpb.HealthCheckResponse_SERVING},
		{"ping fails", &mockPinger{err: errors.New("connection refused")}, &mockPolicyChecker{}, healthpb.HealthCheckResponse_NOT_SERVING},
		{"policy fails", &mockPinger{}, &mockPolicyChecker{err: errors.New("rego compile failed")}, healthpb.HealthCheckResponse_NOT_SERVING},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewHealthServer(tt.pinger, tt.checker, nil)
			if got := s.Probe(context.Background()); got != tt.want {
				t.Errorf("Probe = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHealthServer_OverGRPC(t *testing.T) {
	pinger := &mockPinger{}
	s := NewHealthServer(pinger, &mockPolicyChecker{}, nil)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.Serve(lis) }()
	defer s.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)
	ctx := context.Background()

	check := func() healthpb.HealthCheckResponse_ServingStatus {
		t.Helper()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		return resp.GetStatus()
	}

	if got := check(); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("before probe = %v, want NOT_SERVING", got)
	}
	s.Probe(ctx)
	if got := check(); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("after healthy probe = %v, want SERVING", got)
	}
	pinger.err = errors.New("db down")
	s.Probe(ctx)
	if got := check(); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("after failed probe = %v, want NOT_SERVING", got)
	}
}
