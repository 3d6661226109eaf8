// Package health tracks per-backend availability. Each backend carries a
// circuit breaker driven by attempt results and a rolling record of recent
// attempts used for success-rate and latency statistics.
package health

import (
	"sync"
	"time"
)

// State is the circuit breaker state of a backend.
type State int

const (
	// StateClosed admits traffic normally.
	StateClosed State = iota

	// StateOpen rejects the backend until the cooldown elapses.
	StateOpen

	// StateHalfOpen admits a single probe attempt. The probe's result
	// decides between closing and re-opening the circuit.
	StateHalfOpen
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker is a circuit breaker for a single backend. It opens after a
// configured run of consecutive failures, stays open for a cooldown, then
// admits one probe attempt in the half-open state.
//
// Breaker is not safe for concurrent use on its own; the Registry serializes
// access per backend.
type Breaker struct {
	mu sync.Mutex

	failureThreshold int
	cooldown         time.Duration

	state               State
	consecutiveFailures int
	openedAt            time.Time
	probing             bool
}

// NewBreaker creates a closed breaker that opens after failureThreshold
// consecutive failures and stays open for cooldown.
func NewBreaker(failureThreshold int, cooldown time.Duration) *Breaker {
	return &Breaker{
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		state:            StateClosed,
	}
}

// Allow reports whether an attempt against the backend may proceed now.
// In the open state, the first call after the cooldown elapses moves the
// breaker to half-open and claims the probe slot; further calls are rejected
// until the probe resolves.
func (b *Breaker) Allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true

	case StateOpen:
		if now.Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.state = StateHalfOpen
		b.probing = true
		return true

	case StateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true

	default:
		return false
	}
}

// RecordSuccess resolves an attempt as successful. A success in the
// half-open state closes the circuit; in any state it clears the failure
// run.
func (b *Breaker) RecordSuccess(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures = 0
	b.probing = false
	b.state = StateClosed
}

// RecordFailure resolves an attempt as failed. A failure in the half-open
// state re-opens the circuit immediately; in the closed state the circuit
// opens once the consecutive failure run reaches the threshold.
func (b *Breaker) RecordFailure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	b.probing = false

	if b.state == StateHalfOpen {
		b.state = StateOpen
		b.openedAt = now
		return
	}

	if b.consecutiveFailures >= b.failureThreshold {
		b.state = StateOpen
		b.openedAt = now
	}
}

// Reset forces the breaker closed and clears the failure run. Used by the
// operator surface to restore a backend after manual intervention.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.consecutiveFailures = 0
	b.probing = false
}

// State returns the current state, accounting for an elapsed cooldown: an
// open breaker whose cooldown has passed reports half-open, since the next
// Allow call would admit a probe.
func (b *Breaker) State(now time.Time) State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && now.Sub(b.openedAt) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}

// ConsecutiveFailures returns the current failure run length.
func (b *Breaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveFailures
}
