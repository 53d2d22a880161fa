// Package retry provides the backoff-retry executor shared by every
// outbound network call. Delay grows as base * 2^attempt up to a cap.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"
)

const (
	// Listing calls page through the upstream index and get the larger
	// budget; detail calls are lightweight and give up sooner.
	ListingMaxAttempts = 4
	DetailMaxAttempts  = 2

	DefaultBaseDelay = 500 * time.Millisecond
	DefaultMaxDelay  = 8 * time.Second
)

// Config controls retry behavior for one class of operation.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Retryable decides whether a failure is transient. Nil means
	// IsTransient.
	Retryable func(error) bool
}

// ListingConfig returns the budget for paginated listing calls.
func ListingConfig() Config {
	return Config{
		MaxAttempts: ListingMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// DetailConfig returns the shorter budget for single-item calls.
func DetailConfig() Config {
	return Config{
		MaxAttempts: DetailMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// Do executes fn, retrying transient failures with exponential backoff.
// Non-retryable errors and exhausted budgets propagate to the caller.
// Each retry emits a warning with the attempt number and cause.
func Do[T any](ctx context.Context, cfg Config, logger *slog.Logger, op string, fn func() (T, error)) (T, error) {
	var zero T
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !retryable(err) {
			return zero, err
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := cfg.BaseDelay << attempt
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
		if logger != nil {
			logger.Warn("retrying after transient failure",
				"op", op,
				"attempt", attempt+1,
				"delay", delay,
				"cause", err)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, fmt.Errorf("%s failed after %d attempts: %w", op, cfg.MaxAttempts, lastErr)
}

// StatusError reports a non-2xx HTTP response from an upstream service.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.Status)
	}
	return fmt.Sprintf("http status %d: %s", e.Status, e.Body)
}

// Transient reports whether the status belongs to the retryable class
// (rate limiting or server errors).
func (e *StatusError) Transient() bool {
	return e.Status == 429 || e.Status >= 500
}

// IsTransient classifies an error as a retryable upstream failure:
// too-many-requests, server errors, timeouts, and connection failures.
func IsTransient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var oe *net.OpError
	return errors.As(err, &oe)
}
