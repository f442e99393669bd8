// Package identity provides optional mTLS workload identity for inter-service
// RPC (S→V, P/K→S) via SPIFFE/SPIRE. It is soft-disabled when no SPIRE agent
// is reachable: callers fall back to plaintext transport credentials rather
// than failing startup, since identity is a defense-in-depth layer and not a
// prerequisite for the consolidation pipeline's correctness.
package identity

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/spiffe/go-spiffe/v2/spiffeid"
	"github.com/spiffe/go-spiffe/v2/spiffetls/tlsconfig"
	"github.com/spiffe/go-spiffe/v2/workloadapi"
)

// ServiceID names the four pipeline services for SPIFFE ID generation.
type ServiceID string

const (
	ServiceVault     ServiceID = "vault"
	ServiceScheduler ServiceID = "scheduler"
	ServicePruner    ServiceID = "pruner"
	ServiceKoopman   ServiceID = "koopman"
)

// Verifier verifies SPIFFE SVIDs and hands out mTLS transport credentials for
// the services' RPC clients and servers.
type Verifier struct {
	source *workloadapi.X509Source
}

// NewVerifier connects to the local SPIRE agent at socketPath. It returns
// quickly with an error if no agent is reachable within 3s so callers can
// decide whether to run without mTLS.
func NewVerifier(socketPath string) (*Verifier, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	source, err := workloadapi.NewX509Source(
		ctx,
		workloadapi.WithClientOptions(workloadapi.WithAddr(socketPath)),
	)
	if err != nil {
		return nil, fmt.Errorf("identity: connect to SPIRE at %s: %w", socketPath, err)
	}

	slog.Info("connected to SPIRE agent", "socket_path", socketPath)
	return &Verifier{source: source}, nil
}

// VerifySVID confirms the workload's current SVID matches wantID and returns
// a stable 64-bit fingerprint of the leaf certificate for logging/metrics.
func (v *Verifier) VerifySVID(wantID string) (uint64, error) {
	id, err := spiffeid.FromString(wantID)
	if err != nil {
		return 0, fmt.Errorf("identity: invalid SPIFFE ID %q: %w", wantID, err)
	}

	svid, err := v.source.GetX509SVID()
	if err != nil {
		return 0, fmt.Errorf("identity: fetch SVID: %w", err)
	}

	if svid.ID.String() != id.String() {
		return 0, fmt.Errorf("identity: SPIFFE ID mismatch: want %s, have %s", id, svid.ID)
	}

	return fingerprint(svid.Certificates[0].Raw), nil
}

func fingerprint(certDER []byte) uint64 {
	hash := sha256.Sum256(certDER)
	var result uint64
	for i := 0; i < 8; i++ {
		result = (result << 8) | uint64(hash[i])
	}
	return result
}

// ServerTLSConfig returns mTLS server credentials authorizing only peers
// presenting an SVID under the given trust domain.
func (v *Verifier) ServerTLSConfig(trustDomain string) (*tls.Config, error) {
	td, err := spiffeid.TrustDomainFromString(trustDomain)
	if err != nil {
		return nil, fmt.Errorf("identity: invalid trust domain %q: %w", trustDomain, err)
	}
	return tlsconfig.MTLSServerConfig(v.source, v.source, tlsconfig.AuthorizeMemberOf(td)), nil
}

// ClientTLSConfig returns mTLS client credentials for dialing a peer service.
func (v *Verifier) ClientTLSConfig(trustDomain string) (*tls.Config, error) {
	td, err := spiffeid.TrustDomainFromString(trustDomain)
	if err != nil {
		return nil, fmt.Errorf("identity: invalid trust domain %q: %w", trustDomain, err)
	}
	return tlsconfig.MTLSClientConfig(v.source, v.source, tlsconfig.AuthorizeMemberOf(td)), nil
}

// Close releases the workload API connection.
func (v *Verifier) Close() error {
	return v.source.Close()
}

// SPIFFEID builds the canonical SPIFFE ID for one service instance, e.g.
// spiffe://tori.internal/service/scheduler.
func SPIFFEID(trustDomain string, service ServiceID) string {
	return fmt.Sprintf("spiffe://%s/service/%s", trustDomain, service)
}
