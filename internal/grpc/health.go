// Package grpc serves the gRPC health endpoint.
package grpc

import (
	"context"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"chat-app/internal/logger"
	"chat-app/internal/observability"
)

// ServiceName is the name reported to health checks besides the empty
// overall name.
const ServiceName = "chat-app"

// Pinger is anything that can confirm a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthServer is a gRPC server exposing grpc.health.v1.Health.
type HealthServer struct {
	server *grpc.Server
	health *health.Server
}

// NewHealthServer builds the server. It reports NOT_SERVING until
// SetServing(true) is called.
func NewHealthServer() *HealthServer {
	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(server, hs)

	h := &HealthServer{server: server, health: hs}
	h.SetServing(false)
	return h
}

// SetServing flips both the overall and the named service status.
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
}

// Watch pings db every interval and mirrors the result in the health
// status until ctx is done.
func (h *HealthServer) Watch(ctx context.Context, db Pinger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	serving := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, interval)
			err := db.PingContext(pingCtx)
			cancel()
			if (err == nil) != serving {
				serving = err == nil
				h.SetServing(serving)
				if err != nil {
					logger.Warn().Err(err).Msg("database unreachable, health set to NOT_SERVING")
				} else {
					logger.Info().Msg("database reachable again, health set to SERVING")
				}
			}
		}
	}
}

// Serve blocks serving on lis.
func (h *HealthServer) Serve(lis net.Listener) error {
	return h.server.Serve(lis)
}

// Stop marks the service as not serving and drains in-flight calls.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
