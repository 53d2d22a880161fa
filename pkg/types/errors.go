package types

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors shared across packages
var (
	ErrEmptyQuery       = errors.New("query cannot be empty")
	ErrInvalidSort      = errors.New("invalid sort mode")
	ErrInvalidTimeRange = errors.New("invalid time range")

	// ErrRateLimited marks admission denials; use errors.Is against it and
	// errors.As with *RateLimitError to read the retry-after hint.
	ErrRateLimited = errors.New("rate limited")

	// ErrAllBranchesFailed is returned when every fan-out fetch failed.
	ErrAllBranchesFailed = errors.New("all search branches failed")
)

// RateLimitError is an admission denial with a retry-after hint.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %dms", e.RetryAfter.Milliseconds())
}

// Is lets errors.Is(err, ErrRateLimited) match.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
