package health

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported alongside the overall status
const ServiceName = "newsflow"

// GRPCServer exposes the checker through the standard gRPC health protocol
type GRPCServer struct {
	server *grpc.Server
	health *grpchealth.Server
}

// NewGRPCServer mirrors the checker's overall status into a gRPC health server
func NewGRPCServer(checker *Checker) *GRPCServer {
	hs := grpchealth.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	g := &GRPCServer{server: srv, health: hs}
	g.setHealthy(checker.IsSystemHealthy())
	checker.OnChange(g.setHealthy)
	return g
}

func (g *GRPCServer) setHealthy(healthy bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if healthy {
		status = healthpb.HealthCheckResponse_SERVING
	}
	g.health.SetServingStatus("", status)
	g.health.SetServingStatus(ServiceName, status)
}

// Serve listens on addr until ctx is cancelled
func (g *GRPCServer) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	go func() {
		<-ctx.Done()
		g.health.Shutdown()
		g.server.GracefulStop()
	}()

	return g.server.Serve(lis)
}

// Server returns the underlying gRPC server
func (g *GRPCServer) Server() *grpc.Server {
	return g.server
}
