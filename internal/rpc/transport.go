package rpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/tori/consolidation/internal/identity"
)

// Dial opens a client connection to addr using the JSON codec, with mTLS via
// verifier when non-nil and plaintext otherwise — identity is defense in
// depth, not a prerequisite for the pipeline to run.
func Dial(ctx context.Context, addr string, verifier *identity.Verifier, trustDomain string) (*grpc.ClientConn, error) {
	var creds grpc.DialOption
	if verifier != nil {
		tlsConf, err := verifier.ClientTLSConfig(trustDomain)
		if err != nil {
			return nil, fmt.Errorf("rpc: client tls config: %w", err)
		}
		creds = grpc.WithTransportCredentials(credentials.NewTLS(tlsConf))
	} else {
		creds = grpc.WithTransportCredentials(insecure.NewCredentials())
	}

	return grpc.NewClient(addr, creds, grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)))
}

// NewServer constructs a grpc.Server using mTLS via verifier when non-nil and
// plaintext otherwise.
func NewServer(verifier *identity.Verifier, trustDomain string) (*grpc.Server, error) {
	if verifier == nil {
		return grpc.NewServer(), nil
	}
	tlsConf, err := verifier.ServerTLSConfig(trustDomain)
	if err != nil {
		return nil, fmt.Errorf("rpc: server tls config: %w", err)
	}
	return grpc.NewServer(grpc.Creds(credentials.NewTLS(tlsConf))), nil
}

// CallOpts returns the JSON content-subtype CallOption. It sets no
// deadline; a call's deadline comes from its context (see WithDeadline).
func CallOpts() []grpc.CallOption {
	return []grpc.CallOption{grpc.CallContentSubtype(CodecName)}
}

// WithDeadline derives a context with the given timeout, the per-call
// deadline the RPC surface requires.
func WithDeadline(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}
