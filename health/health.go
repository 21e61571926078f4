// Package health exposes a peer's synchronization state
// through the standard gRPC health-checking service.
//
// A peer reports SERVING while it has a working handshake with its counterpart
// and NOT_SERVING while it is (re)connecting.
package health

import (
	"context"
	"net"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	ghealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the name under which the synchronization state is reported.
// The empty service name reports the same state.
const Service = "bsync"

// Server is a gRPC server carrying the health service.
type Server struct {
	gs *grpc.Server
	hs *ghealth.Server
}

// New produces a new Server in the NOT_SERVING state.
func New() *Server {
	var (
		gs = grpc.NewServer()
		hs = ghealth.NewServer()
	)
	healthpb.RegisterHealthServer(gs, hs)
	s := &Server{gs: gs, hs: hs}
	s.Set(false)
	return s
}

// Set records whether the peer is synchronizing.
// It has the signature of peer.Options.Status.
func (s *Server) Set(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.hs.SetServingStatus("", status)
	s.hs.SetServingStatus(Service, status)
}

// Serve serves health checks on lis until ctx is canceled.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		s.hs.Shutdown()
		s.gs.GracefulStop()
	}()

	err := s.gs.Serve(lis)
	if ctx.Err() != nil {
		return nil
	}
	return errors.Wrap(err, "serving health checks")
}

// ListenAndServe listens on the TCP address addr and serves health checks until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", addr)
	}
	return s.Serve(ctx, lis)
}
