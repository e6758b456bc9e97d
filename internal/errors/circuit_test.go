package errors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unavailable() error {
	return New(ErrCodeBackendUnavailable, "connection refused", nil)
}

// TS07: Circuit breaker opens after max failures
func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	// Given: a circuit breaker with max 3 failures
	cb := NewCircuitBreaker("solr",
		WithMaxFailures(3),
		WithResetTimeout(time.Second),
	)

	// When: recording 3 failures
	for i := 0; i < 3; i++ {
		_ = cb.Execute(unavailable)
	}

	// Then: circuit is open
	assert.Equal(t, StateOpen, cb.State())

	// And: requests are rejected without running
	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})
	assert.True(t, errors.Is(err, ErrCircuitOpen))
	assert.False(t, called)
}

// TS08: Circuit breaker recovers after timeout
func TestCircuitBreaker_RecoversAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker("solr",
		WithMaxFailures(2),
		WithResetTimeout(20*time.Millisecond),
	)
	for i := 0; i < 2; i++ {
		_ = cb.Execute(unavailable)
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	err := cb.Execute(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("solr",
		WithMaxFailures(2),
		WithResetTimeout(20*time.Millisecond),
	)
	for i := 0; i < 2; i++ {
		_ = cb.Execute(unavailable)
	}
	time.Sleep(30 * time.Millisecond)

	_ = cb.Execute(unavailable)

	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_IgnoresNonRetryableErrors(t *testing.T) {
	cb := NewCircuitBreaker("solr", WithMaxFailures(1))

	err := cb.Execute(func() error {
		return New(ErrCodeBackendRequest, "undefined field hash_99", nil)
	})

	require.Error(t, err)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitExecute_ReturnsResult(t *testing.T) {
	cb := NewCircuitBreaker("solr")

	got, err := CircuitExecute(cb, func() (string, error) { return "ok", nil })

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}
