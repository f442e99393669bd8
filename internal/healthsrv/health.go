// Package healthsrv implements the HealthCheck RPC shared by all four
// pipeline services, matching the status vocabulary (HEALTHY, DEGRADED)
// every service's admin surface and the supervisor agree on. A degraded
// service still serves reads; Message explains why (vault's is read-only
// because its store rejected a write).
package healthsrv

import (
	"context"

	"github.com/tori/consolidation/pb"
)

// Checker reports whether a service has set its Degraded flag, plus an
// optional explanatory message for the DEGRADED case.
type Checker func() (degraded bool, message string)

// Server implements pb.HealthServer over a single Checker.
type Server struct {
	name    string
	checker Checker
}

// New wires a Server reporting name's health via checker.
func New(name string, checker Checker) *Server {
	return &Server{name: name, checker: checker}
}

func (s *Server) HealthCheck(ctx context.Context, req *pb.HealthRequest) (*pb.HealthStatus, error) {
	degraded, message := s.checker()
	if degraded {
		if message == "" {
			message = s.name + " is degraded"
		}
		return &pb.HealthStatus{Status: "DEGRADED", Message: message}, nil
	}
	return &pb.HealthStatus{Status: "HEALTHY", Message: s.name + " ok"}, nil
}

var _ pb.HealthServer = (*Server)(nil)
