// Package grpc builds the gRPC health listener used by the cafes server.
package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/louisbranch/cafes/internal/platform/timeouts"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// NewHealthServer returns a traced gRPC server exposing only the health
// service. The overall status and each named service start as SERVING.
func NewHealthServer(services ...string) (*gogrpc.Server, *health.Server) {
	server := gogrpc.NewServer(gogrpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	for _, name := range services {
		healthServer.SetServingStatus(name, grpc_health_v1.HealthCheckResponse_SERVING)
	}
	return server, healthServer
}

// WaitForServing polls the health service until service reports SERVING or
// ctx ends.
func WaitForServing(ctx context.Context, conn *gogrpc.ClientConn, service string) error {
	if conn == nil {
		return fmt.Errorf("gRPC connection is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client := grpc_health_v1.NewHealthClient(conn)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		callCtx, cancel := context.WithTimeout(ctx, timeouts.HealthProbe)
		resp, err := client.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
		cancel()
		if err == nil && resp.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING {
			return nil
		}

		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("wait for %q health: %w (last error: %v)", service, ctx.Err(), err)
			}
			return fmt.Errorf("wait for %q health: %w (last status: %s)", service, ctx.Err(), resp.GetStatus())
		case <-ticker.C:
		}
	}
}
