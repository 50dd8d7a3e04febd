// Package circuitbreaker guards calls to a remote provider so that an unreachable
// provider fails fast instead of costing a full timeout per call.
package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	scanerrors "github.com/memecoin-scanner/internal/errors"
	"github.com/memecoin-scanner/internal/logging"
)

// State represents the circuit breaker state
type State string

const (
	// StateClosed means the circuit is closed and requests are allowed
	StateClosed State = "closed"
	// StateOpen means the circuit is open and requests are blocked
	StateOpen State = "open"
	// StateHalfOpen means the circuit is testing if the service has recovered
	StateHalfOpen State = "half_open"
)

// ErrCircuitOpen is returned when the circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ErrTooManyRequests is returned when too many requests are made in half-open state
var ErrTooManyRequests = errors.New("too many requests in half-open state")

// Config configures a circuit breaker
type Config struct {
	Name string
	// MaxFailures is the number of consecutive provider failures that opens the circuit
	MaxFailures uint32
	// Timeout is how long the circuit stays open before a trial call is let through
	Timeout time.Duration
	// HalfOpenMaxCalls is the number of trial calls allowed while half-open
	HalfOpenMaxCalls uint32
	// IsFailure decides which errors count against the provider.
	// Defaults to errors.IsProviderUnavailable.
	IsFailure func(err error) bool
	// OnStateChange is called after every transition
	OnStateChange func(name string, from, to State)
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig(name string) *Config {
	return &Config{
		Name:             name,
		MaxFailures:      3,
		Timeout:          60 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// CircuitBreaker wraps a gobreaker.CircuitBreaker with the scanner's error taxonomy
type CircuitBreaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config *Config) *CircuitBreaker {
	if config == nil {
		config = DefaultConfig("default")
	}

	maxFailures := config.MaxFailures
	if maxFailures == 0 {
		maxFailures = 1
	}

	isFailure := config.IsFailure
	if isFailure == nil {
		isFailure = scanerrors.IsProviderUnavailable
	}

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.HalfOpenMaxCalls,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// Definite outcomes (query failed, not applicable, cancelled ctx) say nothing
		// about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || !isFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger := logging.WithFields(map[string]interface{}{
				"circuitBreaker": name,
				"from":           fromGobreaker(from),
				"to":             fromGobreaker(to),
			})
			if to == gobreaker.StateOpen {
				logger.Warn("Circuit breaker opened")
			} else {
				logger.Info("Circuit breaker state changed")
			}
			if config.OnStateChange != nil {
				config.OnStateChange(name, fromGobreaker(from), fromGobreaker(to))
			}
		},
	}

	return &CircuitBreaker{
		name: config.Name,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

// Execute runs fn unless the circuit is open.
// A rejected call returns ErrCircuitOpen or ErrTooManyRequests without invoking fn.
func (c *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		return ErrCircuitOpen
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return ErrTooManyRequests
	}
	return err
}

// State returns the current state
func (c *CircuitBreaker) State() State {
	return fromGobreaker(c.cb.State())
}

// Name returns the breaker name
func (c *CircuitBreaker) Name() string {
	return c.name
}

// Stats holds circuit breaker counters
type Stats struct {
	Name                 string `json:"name"`
	State                State  `json:"state"`
	Requests             uint32 `json:"requests"`
	TotalFailures        uint32 `json:"totalFailures"`
	ConsecutiveFailures  uint32 `json:"consecutiveFailures"`
	ConsecutiveSuccesses uint32 `json:"consecutiveSuccesses"`
}

// GetStats returns current counters
func (c *CircuitBreaker) GetStats() Stats {
	counts := c.cb.Counts()
	return Stats{
		Name:                 c.name,
		State:                c.State(),
		Requests:             counts.Requests,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
	}
}

// IsRejection reports whether err came from the breaker itself rather than the call
func IsRejection(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests)
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
