package core

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError indicates malformed or missing input. Not retryable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// UnsupportedSourceError indicates no provider is registered for the
// canonical source. Not retryable.
type UnsupportedSourceError struct {
	Source string
}

func (e *UnsupportedSourceError) Error() string {
	return fmt.Sprintf("unsupported source: %s", e.Source)
}

// RateLimitedError indicates the source's rate-limit window has not elapsed.
// Retryable after RetryAfter.
type RateLimitedError struct {
	Source     Source
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s is rate limited, retry in %s", e.Source, e.RetryAfter)
}

// TimeoutError indicates the provider did not resolve within the configured
// timeout. Retryable.
type TimeoutError struct {
	Source  Source
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s resolution timed out after %s", e.Source, e.Timeout)
}

// ProviderError wraps an underlying platform or network failure. Retryable.
type ProviderError struct {
	Source Source
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider: %v", e.Source, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// AutoplayError is the catch-all for failures not covered by a more
// specific type.
type AutoplayError struct {
	Message string
	Err     error
}

func (e *AutoplayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AutoplayError) Unwrap() error { return e.Err }

// Retryable reports whether the caller may retry the failed operation.
func Retryable(err error) bool {
	var rateLimited *RateLimitedError
	var timeout *TimeoutError
	var provider *ProviderError
	return errors.As(err, &rateLimited) || errors.As(err, &timeout) || errors.As(err, &provider)
}
