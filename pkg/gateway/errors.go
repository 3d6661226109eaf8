package gateway

import (
	"errors"
	"fmt"
	"time"
)

// TransportError represents a failed gateway call: connection failure,
// malformed response, or a non-2xx status from the remote API.
type TransportError struct {
	// Backend is the backend identifier the call was made for.
	Backend string

	// StatusCode is the HTTP status code (0 if the request never completed).
	StatusCode int

	// Message is the error detail.
	Message string

	// Cause is the underlying error (if any).
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("gateway call for backend %q failed (status %d): %s",
			e.Backend, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway call for backend %q failed: %s", e.Backend, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// TimeoutError represents an attempt that exceeded its deadline. The gateway
// returns no token counts for a timed-out attempt, so no cost is charged.
type TimeoutError struct {
	// Backend is the backend identifier the call was made for.
	Backend string

	// Timeout is the deadline the attempt was bounded by.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("gateway call for backend %q timed out after %s", e.Backend, e.Timeout)
}

// IsTimeout reports whether err is (or wraps) a gateway timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
