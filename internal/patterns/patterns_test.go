package patterns

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkheadRejectsWhenFull(t *testing.T) {
	b := NewBulkhead(1, "products", "test")
	b.wait = 20 * time.Millisecond

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = b.Execute(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := b.Execute(context.Background(), func() error { return nil })
	require.ErrorIs(t, err, ErrBulkheadFull)
	close(release)
}

func TestBulkheadPassesResult(t *testing.T) {
	b := NewBulkhead(2, "orders", "test")
	boom := errors.New("boom")
	assert.ErrorIs(t, b.Execute(context.Background(), func() error { return boom }), boom)
	assert.NoError(t, b.Execute(context.Background(), func() error { return nil }))
}

func TestCircuitBreakerPermanentErrorsDoNotTrip(t *testing.T) {
	cb := NewCircuitBreaker("Orders-permanent", "test")
	rejected := errors.New("bad request")
	for i := 0; i < 10; i++ {
		_, err := cb.Execute(func() (interface{}, error) { return nil, Permanent(rejected) })
		require.ErrorIs(t, err, rejected)
	}
	assert.Equal(t, "closed", cb.GetState())
}

func TestCircuitBreakerOpensOnFailures(t *testing.T) {
	cb := NewCircuitBreaker("Orders-failing", "test")
	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (interface{}, error) { return nil, errors.New("down") })
	}
	assert.Equal(t, 1, cb.GetStateValue())

	_, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Contains(t, FormatError("Orders", err).Error(), "is open")
}
