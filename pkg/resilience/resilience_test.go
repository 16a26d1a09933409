package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func TestRetrySucceedsEventually(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "flaky", RetryConfig{MaxAttempts: 4, InitialDelay: time.Millisecond}, func(context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "down", RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}, func(context.Context) error {
		calls++
		return errFlaky
	})
	require.ErrorIs(t, err, errFlaky)
	require.Equal(t, 2, calls)
}

func TestRetryStopsOnPermanent(t *testing.T) {
	calls := 0
	bad := errors.New("bad row")
	err := Retry(context.Background(), "perm", RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond}, func(context.Context) error {
		calls++
		return Permanent(bad)
	})
	require.Equal(t, bad, err)
	require.Equal(t, 1, calls)
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := Retry(ctx, "cancel", RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour}, func(context.Context) error {
		cancel()
		return errFlaky
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, WithTimeout(context.Background(), 0, "unbounded", func(context.Context) error { return nil }))
}

func TestCircuitBreaker(t *testing.T) {
	var transitions []State
	notFound := errors.New("not found")
	cb := NewCircuitBreaker("redis", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     20 * time.Millisecond,
		OnStateChange:    func(_ string, to State) { transitions = append(transitions, to) },
		IsFailure:        func(err error) bool { return err != nil && !errors.Is(err, notFound) },
	})

	require.ErrorIs(t, cb.Execute(func() error { return notFound }), notFound)
	require.Equal(t, StateClosed, cb.State())

	cb.Execute(func() error { return errFlaky })
	cb.Execute(func() error { return errFlaky })
	require.Equal(t, StateOpen, cb.State())
	require.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitOpen)

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, cb.Execute(func() error { return nil }))
	require.Equal(t, StateClosed, cb.State())
	require.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestWithTimeoutLeavesParentCancellationAlone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithTimeout(ctx, time.Hour, "cancelled", func(ctx context.Context) error {
		return ctx.Err()
	})
	require.Equal(t, context.Canceled, err)
}

func TestCircuitBreakerFailedProbeReopens(t *testing.T) {
	cb := NewCircuitBreaker("pg", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: 10 * time.Millisecond})
	cb.Execute(func() error { return errFlaky })
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)
	release := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- cb.Execute(func() error {
			<-release
			return errFlaky
		})
	}()
	require.Eventually(t, func() bool { return cb.State() == StateHalfOpen }, time.Second, time.Millisecond)
	require.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitOpen)
	close(release)
	require.ErrorIs(t, <-done, errFlaky)
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	require.Equal(t, StateClosed, cb.State())
}
