package resilience

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/logger"
)

// RetryConfig bounds a Retry loop. Zero fields take defaults: 3 attempts,
// 100ms first delay doubling up to 10s.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// JitterFraction spreads each delay by up to this share in either
	// direction.
	JitterFraction float64
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.MaxDelay < c.InitialDelay {
		c.MaxDelay = c.InitialDelay
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2
	}
	c.JitterFraction = min(max(c.JitterFraction, 0), 1)
	return c
}

// delays yields the pause before each attempt after the first.
func (c RetryConfig) delays() iter.Seq[time.Duration] {
	return func(yield func(time.Duration) bool) {
		base := float64(c.InitialDelay)
		for range c.MaxAttempts - 1 {
			d := base
			if c.JitterFraction > 0 {
				d += base * c.JitterFraction * (2*rand.Float64() - 1)
			}
			if !yield(time.Duration(min(d, float64(c.MaxDelay)))) {
				return
			}
			base = min(base*c.Multiplier, float64(c.MaxDelay))
		}
	}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Retry returns it unwrapped
// immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls fn until it succeeds, returns a Permanent error, the attempts
// run out or ctx ends.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()
	log := logger.FromContext(ctx).With("component", "retry", "operation", name)

	attempt := 1
	err := fn(ctx)
	for delay := range cfg.delays() {
		if err == nil {
			break
		}
		if perm := asPermanent(err); perm != nil {
			return perm
		}
		log.Warn("attempt failed", "attempt", attempt, "max_attempts", cfg.MaxAttempts, "next_delay", delay, "error", err)
		if !sleep(ctx, delay) {
			return fmt.Errorf("%s: retry abandoned after %d attempts: %w", name, attempt, errors.Join(ctx.Err(), err))
		}
		attempt++
		err = fn(ctx)
	}
	switch {
	case err == nil:
		if attempt > 1 {
			log.Info("succeeded after retry", "attempts", attempt)
		}
		return nil
	default:
		if perm := asPermanent(err); perm != nil {
			return perm
		}
		return fmt.Errorf("%s: giving up after %d attempts: %w", name, attempt, err)
	}
}

func asPermanent(err error) error {
	var perm *permanentError
	if errors.As(err, &perm) {
		return perm.err
	}
	return nil
}

// sleep pauses for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
