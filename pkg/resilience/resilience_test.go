package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

var errDependency = fmt.Errorf("%w: connection refused", apperrors.ErrStoreUnavailable)

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	var transitions []State
	cb := NewCircuitBreaker("redis", CircuitBreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     time.Hour,
		OnStateChange: func(name string, from, to State) {
			assert.Equal(t, "redis", name)
			transitions = append(transitions, to)
		},
	})

	for i := 0; i < 3; i++ {
		err := cb.Execute(func() error { return errDependency })
		assert.ErrorIs(t, err, errDependency)
	}
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, []State{StateOpen}, transitions)

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, []State{StateOpen, StateClosed}, transitions)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedBreaker(cfg CircuitBreakerConfig) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := NewCircuitBreaker("db", cfg)
	cb.now = clock.now
	return cb, clock
}

func TestCircuitBreakerHalfOpenRecovers(t *testing.T) {
	cb, clock := newClockedBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})
	_ = cb.Execute(func() error { return errDependency })
	require.Equal(t, StateOpen, cb.GetState())

	clock.advance(59 * time.Second)
	assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitOpen)

	clock.advance(time.Second)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreakerHalfOpenProbeFailureReopens(t *testing.T) {
	cb, clock := newClockedBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})
	_ = cb.Execute(func() error { return errDependency })
	clock.advance(time.Minute)
	_ = cb.Execute(func() error { return errDependency })
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreakerClassifiesErrors(t *testing.T) {
	errMiss := errors.New("key not found")
	cb := NewCircuitBreaker("cache", CircuitBreakerConfig{
		FailureThreshold: 2,
		IsFailure:        func(err error) bool { return err != nil && !errors.Is(err, errMiss) },
	})

	for range 5 {
		assert.ErrorIs(t, cb.Execute(func() error { return errMiss }), errMiss)
		assert.ErrorIs(t, cb.Execute(func() error { return context.Canceled }), context.Canceled)
	}
	assert.Equal(t, StateClosed, cb.GetState(), "misses and cancellations do not trip the breaker")

	_ = cb.Execute(func() error { return errDependency })
	_ = cb.Execute(func() error { return errDependency })
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreakerCancelledProbeFreesSlot(t *testing.T) {
	cb, clock := newClockedBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})
	_ = cb.Execute(func() error { return errDependency })
	clock.advance(time.Minute)

	_ = cb.Execute(func() error { return context.Canceled })
	assert.Equal(t, StateHalfOpen, cb.GetState())
	require.NoError(t, cb.Execute(func() error { return nil }), "the next probe is admitted")
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	var attempts atomic.Int32
	var retried []int
	err := Retry(context.Background(), "flaky", RetryConfig{
		MaxAttempts:  4,
		InitialDelay: time.Millisecond,
		OnRetry:      func(name string, attempt int, err error) { retried = append(retried, attempt) },
	}, func() error {
		if attempts.Add(1) < 3 {
			return errDependency
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetryReturnsLastError(t *testing.T) {
	err := Retry(context.Background(), "down", RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}, func() error {
		return errDependency
	})
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "giving up after 2 attempts")
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	var attempts atomic.Int32
	err := Retry(context.Background(), "bad-input", RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond}, func() error {
		attempts.Add(1)
		return apperrors.ErrTermTooLong
	})
	assert.ErrorIs(t, err, apperrors.ErrTermTooLong)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errDependency))
	assert.True(t, IsTransient(fmt.Errorf("submitting: %w", apperrors.ErrQueueFull)))
	assert.False(t, IsTransient(apperrors.ErrInvalidInput))
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(nil))
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, "cancelled", RetryConfig{MaxAttempts: 5, InitialDelay: time.Second}, func() error {
		return errDependency
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "kafka-publish", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
	assert.Contains(t, err.Error(), "kafka-publish")

	err = WithTimeout(context.Background(), time.Second, "fast", func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestWithTimeoutPassesThroughOtherErrors(t *testing.T) {
	err := WithTimeout(context.Background(), time.Second, "broker", func(ctx context.Context) error { return errDependency })
	assert.ErrorIs(t, err, errDependency)
	assert.NotErrorIs(t, err, apperrors.ErrTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = WithTimeout(ctx, time.Second, "gone", func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, apperrors.ErrTimeout)
}
