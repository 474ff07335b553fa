// Package admin serves the standard gRPC health-checking protocol so
// orchestrators can probe whether the flight server is accepting clients.
package admin

import (
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported for the TCP server. The
// empty name ("") reports overall process health and follows it.
const ServiceName = "flight.Server"

// Server wraps a gRPC server exposing grpc.health.v1.Health.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *slog.Logger
}

// NewServer creates the admin server. Every service starts NOT_SERVING.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
		logger: logger.With("component", "admin"),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.SetServing(false)
	return s
}

// Serve blocks serving gRPC on l until Stop is called.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("admin gRPC listening", "addr", l.Addr().String())
	return s.grpc.Serve(l)
}

// SetServing flips the reported status of the flight server.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	s.logger.Debug("health status changed", "status", status.String())
}

// Stop marks everything NOT_SERVING, ends open watch streams and stops the
// gRPC server after in-flight RPCs complete.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
