package orchestrator

import (
	"fmt"
	"strings"
	"time"
)

// Result is a successful dispatch: the completion text plus attribution and
// accounting for the attempt that produced it.
type Result struct {
	// Text is the raw completion text, not yet sanitized.
	Text string

	// Backend is the backend that produced the completion.
	Backend string

	// Cost is the dollar cost of the winning attempt.
	Cost float64

	// Latency is the wall-clock duration of the winning attempt.
	Latency time.Duration

	// InputTokens and OutputTokens are the token counts the gateway
	// reported for the winning attempt.
	InputTokens  int
	OutputTokens int

	// Failures lists the candidates that failed before the winning attempt,
	// in dispatch order.
	Failures []AttemptError
}

// AttemptError records one failed candidate attempt.
type AttemptError struct {
	// Backend is the candidate that failed.
	Backend string

	// Err is the gateway or timeout error. Nil when the attempt was skipped
	// because the breaker rejected it.
	Err error

	// Latency is the observed duration of the failed attempt. Zero for
	// skipped attempts.
	Latency time.Duration

	// Skipped marks attempts never made because the breaker was open.
	Skipped bool
}

// AllFailedError reports that every candidate was exhausted without a
// success. The caller substitutes the fixed fallback message.
type AllFailedError struct {
	// Attempts lists each candidate outcome in dispatch order.
	Attempts []AttemptError
}

// Error summarizes the failed attempts.
func (e *AllFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return "dispatch failed: no candidates"
	}

	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		switch {
		case a.Skipped:
			parts = append(parts, a.Backend+" (skipped, circuit open)")
		case a.Err != nil:
			parts = append(parts, fmt.Sprintf("%s (%v)", a.Backend, a.Err))
		default:
			parts = append(parts, a.Backend)
		}
	}
	return "dispatch failed: all candidates exhausted: " + strings.Join(parts, "; ")
}
