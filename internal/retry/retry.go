// Package retry runs an operation with exponential backoff between attempts.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/memecoin-scanner/internal/logging"
)

// Config configures retry behavior
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Retryable decides whether a failed attempt is worth repeating; nil retries every error
	Retryable func(err error) bool
}

// DefaultConfig returns the backoff used for startup connections: 250ms, 500ms, 1s
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:  4,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// Result contains information about the retry operation
type Result struct {
	Attempts      int
	TotalDuration time.Duration
	LastError     error
}

// Func is an operation that can be retried
type Func func(ctx context.Context, attempt int) error

// Do calls fn until it succeeds, returns a non-retryable error, the attempts run
// out or ctx is done. The returned error wraps the last failure.
func Do(ctx context.Context, config *Config, fn Func) (*Result, error) {
	if config == nil {
		config = DefaultConfig()
	}
	logger := logging.FromContext(ctx)
	start := time.Now()
	result := &Result{}

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		result.Attempts = attempt

		err := fn(ctx, attempt)
		if err == nil {
			result.TotalDuration = time.Since(start)
			if attempt > 1 {
				logger.WithField("attempts", attempt).Info("Operation succeeded after retry")
			}
			return result, nil
		}
		result.LastError = err

		if attempt == config.MaxAttempts || (config.Retryable != nil && !config.Retryable(err)) {
			break
		}

		delay := calculateDelay(config, attempt)
		logger.WithFields(map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": config.MaxAttempts,
			"delay":        delay.String(),
			"error":        err.Error(),
		}).Warn("Operation failed, retrying with exponential backoff")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(start)
			return result, fmt.Errorf("retry cancelled after %d attempts: %w", attempt, ctx.Err())
		}
	}

	result.TotalDuration = time.Since(start)
	return result, fmt.Errorf("operation failed after %d attempts: %w", result.Attempts, result.LastError)
}

// calculateDelay returns initialDelay * multiplier^(attempt-1), capped at MaxDelay
func calculateDelay(config *Config, attempt int) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt-1))
	if config.MaxDelay > 0 && delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}
