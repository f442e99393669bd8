package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	cb := New(&Config{
		Name:        "test",
		MaxRequests: 1,
		Timeout:     10 * time.Millisecond,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 2 },
	})

	failing := func() (interface{}, error) { return nil, errors.New("boom") }

	_, err := cb.Execute(failing)
	require.Error(t, err)
	assert.Equal(t, StateClosed, cb.State())

	_, err = cb.Execute(failing)
	require.Error(t, err)
	assert.Equal(t, StateOpen, cb.State())

	_, err = cb.Execute(func() (interface{}, error) { return "ok", nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := New(&Config{
		Name:        "test-recover",
		MaxRequests: 1,
		Timeout:     5 * time.Millisecond,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})

	_, err := cb.Execute(func() (interface{}, error) { return nil, errors.New("boom") })
	require.Error(t, err)
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(10 * time.Millisecond)

	result, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, StateClosed, cb.State())
}

func TestManagerReusesBreakerByName(t *testing.T) {
	m := NewManager(nil)
	a := m.Get("vault-fetch")
	b := m.Get("vault-fetch")
	assert.Same(t, a, b)
}

func TestPipelineCircuitBreakersHealthStatus(t *testing.T) {
	p := NewPipelineCircuitBreakers()
	status, breakers := p.HealthStatus()
	assert.Equal(t, "HEALTHY", status)
	assert.Contains(t, breakers, "vault-fetch")
	assert.Contains(t, breakers, "scheduler-snapshot")
	assert.Contains(t, breakers, "oscillator-delivery")
}

func TestExecuteWithFallback(t *testing.T) {
	cb := New(&Config{
		Name:        "fallback-test",
		MaxRequests: 1,
		Timeout:     time.Second,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})

	_, _ = cb.Execute(func() (interface{}, error) { return nil, errors.New("boom") })
	require.Equal(t, StateOpen, cb.State())

	result, err := ExecuteWithFallback(cb,
		func() (string, error) { return "primary", nil },
		func(error) (string, error) { return "fallback", nil },
	)
	require.NoError(t, err)
	assert.Equal(t, "fallback", result)
}
