package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthServer serves the standard gRPC health service plus reflection, and
// mirrors the upload index's reachability into the serving status.
type HealthServer struct {
	grpc   *grpc.Server
	health *health.Server
	ping   func(context.Context) error
	logger *slog.Logger
}

// NewHealthServer builds the gRPC server. ping may be nil.
func NewHealthServer(ping func(context.Context) error, logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(gs)
	return &HealthServer{grpc: gs, health: hs, ping: ping, logger: logger}
}

// Serve blocks serving lis until Stop.
func (h *HealthServer) Serve(lis net.Listener) error {
	h.logger.Info("grpc.serve", "addr", lis.Addr().String())
	return h.grpc.Serve(lis)
}

// Check runs the readiness ping once and updates the serving status.
func (h *HealthServer) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if h.ping != nil {
		if err := h.ping(ctx); err != nil {
			h.logger.Warn("grpc.health.ping_failed", "error", err)
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.health.SetServingStatus("", st)
	return st
}

// Watch checks every interval until ctx is done.
func (h *HealthServer) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, interval/2)
			h.Check(pctx)
			cancel()
		}
	}
}

// Stop marks every service NOT_SERVING and drains in-flight calls.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}
