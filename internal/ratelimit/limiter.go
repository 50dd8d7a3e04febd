// Package ratelimit paces calls to downstream providers.
package ratelimit

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum spacing between provider calls during a scan.
const DefaultInterval = 200 * time.Millisecond

// ErrContextCancelled is returned when the context is cancelled while waiting.
var ErrContextCancelled = errors.New("context cancelled while waiting for rate limiter")

// Limiter enforces a minimum interval between successive calls.
// The first call passes immediately; every later call waits until at least
// interval has elapsed since the previous one was admitted.
type Limiter struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// NewLimiter creates a limiter admitting one call per interval.
// A zero or negative interval disables pacing.
func NewLimiter(interval time.Duration) *Limiter {
	if interval <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
	}
}

// Wait blocks until the next call is allowed or ctx is done
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ErrContextCancelled
		}
		return err
	}
	return nil
}

// Interval returns the configured spacing, zero when pacing is disabled
func (l *Limiter) Interval() time.Duration {
	return l.interval
}
