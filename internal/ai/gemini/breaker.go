package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerOptions configures the circuit breaker placed in front of the Gemini API.
type BreakerOptions struct {
	Enabled          bool
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	MinRequests      uint32
	FailureThreshold float64
}

// DefaultBreakerOptions trips after three calls when most of them failed.
func DefaultBreakerOptions() BreakerOptions {
	return BreakerOptions{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		MinRequests:      3,
		FailureThreshold: 0.6,
	}
}

// breaker is nil when disabled.
type breaker struct {
	cb *gobreaker.CircuitBreaker[string]
}

func newBreaker(model string, opts BreakerOptions, logger *zap.Logger) *breaker {
	if !opts.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        fmt.Sprintf("gemini-%s", model),
		MaxRequests: opts.MaxRequests,
		Interval:    opts.Interval,
		Timeout:     opts.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= opts.MinRequests && failureRatio >= opts.FailureThreshold
		},
		// Callers cancelling their own context say nothing about the API health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &breaker{cb: gobreaker.NewCircuitBreaker[string](settings)}
}

func (b *breaker) execute(fn func() (string, error)) (string, error) {
	if b == nil || b.cb == nil {
		return fn()
	}

	out, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("gemini circuit breaker: %w", err)
	}
	return out, err
}

func (b *breaker) state() string {
	if b == nil || b.cb == nil {
		return "disabled"
	}
	return b.cb.State().String()
}
