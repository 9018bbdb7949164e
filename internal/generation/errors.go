package generation

import (
	"context"
	"errors"
	"net"
	"net/url"
	"time"

	"doc-assistant-be/pkg/llm"
)

// TransientError covers timeouts and 5xx-class backend failures. The client
// retries these; the caller only sees one after the retry budget is spent.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "generation failed (transient): " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// FatalError covers credential, validation and backend-contract failures.
// Never retried.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "generation failed (fatal): " + e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// RateLimitedError is surfaced immediately; the backend's retry-after hint
// is carried when one was provided.
type RateLimitedError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string { return "generation rate limited: " + e.Err.Error() }
func (e *RateLimitedError) Unwrap() error { return e.Err }

// Classify maps a provider error onto the retry taxonomy. Context
// cancellation passes through untouched so callers can tell a dropped
// connection from a backend failure.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return &RateLimitedError{Err: err, RetryAfter: apiErr.RetryAfter}
		case apiErr.StatusCode >= 500:
			return &TransientError{Err: err}
		default:
			return &FatalError{Err: err}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &TransientError{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &TransientError{Err: err}
	}

	// Marshal/contract errors and anything unrecognized: retrying will not
	// help
	return &FatalError{Err: err}
}
