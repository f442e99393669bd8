package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSPIFFEIDFormat(t *testing.T) {
	assert.Equal(t, "spiffe://tori.internal/service/scheduler", SPIFFEID("tori.internal", ServiceScheduler))
	assert.Equal(t, "spiffe://tori.internal/service/vault", SPIFFEID("tori.internal", ServiceVault))
}

func TestFingerprintDeterministic(t *testing.T) {
	cert := []byte("fake-cert-bytes-for-test")
	assert.Equal(t, fingerprint(cert), fingerprint(cert))
	assert.NotEqual(t, fingerprint(cert), fingerprint([]byte("other")))
}
