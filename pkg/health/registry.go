package health

import (
	"log/slog"
	"sync"
	"time"
)

// maxSamples bounds the rolling attempt record per backend.
const maxSamples = 100

// sample is one resolved attempt against a backend.
type sample struct {
	success bool
	latency time.Duration
	cost    float64
	at      time.Time
}

// Stats is a point-in-time summary of a backend's recent attempts.
type Stats struct {
	// Backend is the backend name the stats describe.
	Backend string `json:"backend"`

	// State is the breaker state at the time of the snapshot.
	State string `json:"state"`

	// Attempts is the number of attempts in the rolling record.
	Attempts int `json:"attempts"`

	// SuccessRate is the fraction of successful attempts, 0..1. Zero when
	// no attempts are recorded.
	SuccessRate float64 `json:"success_rate"`

	// AvgLatency is the mean latency across recorded attempts.
	AvgLatency time.Duration `json:"avg_latency"`

	// AvgCost is the mean cost per recorded attempt.
	AvgCost float64 `json:"avg_cost"`

	// ConsecutiveFailures is the current failure run length.
	ConsecutiveFailures int `json:"consecutive_failures"`

	// LastAttempt is the time of the most recent recorded attempt.
	LastAttempt time.Time `json:"last_attempt,omitempty"`
}

// record holds the breaker and sample window for one backend.
type record struct {
	mu      sync.Mutex
	breaker *Breaker
	samples []sample
}

// Registry tracks health for all known backends. Records are created on
// first use, so backends never need explicit registration.
type Registry struct {
	mu      sync.Mutex
	records map[string]*record

	failureThreshold int
	cooldown         time.Duration
	logger           *slog.Logger
	onOpen           func(backend string)
}

// NewRegistry creates a registry whose breakers open after failureThreshold
// consecutive failures and cool down for cooldown.
func NewRegistry(failureThreshold int, cooldown time.Duration) *Registry {
	return &Registry{
		records:          make(map[string]*record),
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		logger:           slog.Default().With("component", "health"),
	}
}

// SetOnOpen installs a callback invoked whenever a backend's breaker opens.
// Set once at wiring time, before any traffic.
func (r *Registry) SetOnOpen(fn func(backend string)) {
	r.onOpen = fn
}

// get returns the record for backend, creating it if needed.
func (r *Registry) get(backend string) *record {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[backend]
	if !ok {
		rec = &record{breaker: NewBreaker(r.failureThreshold, r.cooldown)}
		r.records[backend] = rec
	}
	return rec
}

// Allow reports whether an attempt against backend may proceed now.
func (r *Registry) Allow(backend string) bool {
	return r.get(backend).breaker.Allow(time.Now())
}

// Available reports whether backend would currently admit an attempt,
// without claiming the half-open probe slot. Used by the selector to
// exclude open backends from the candidate list.
func (r *Registry) Available(backend string) bool {
	return r.get(backend).breaker.State(time.Now()) != StateOpen
}

// RecordSuccess records a successful attempt with its latency and cost.
func (r *Registry) RecordSuccess(backend string, latency time.Duration, cost float64) {
	rec := r.get(backend)
	now := time.Now()

	rec.breaker.RecordSuccess(now)

	rec.mu.Lock()
	rec.samples = append(rec.samples, sample{success: true, latency: latency, cost: cost, at: now})
	if len(rec.samples) > maxSamples {
		rec.samples = rec.samples[len(rec.samples)-maxSamples:]
	}
	rec.mu.Unlock()
}

// RecordFailure records a failed attempt with its observed latency.
func (r *Registry) RecordFailure(backend string, latency time.Duration) {
	rec := r.get(backend)
	now := time.Now()

	before := rec.breaker.State(now)
	rec.breaker.RecordFailure(now)
	after := rec.breaker.State(now)

	if before != StateOpen && after == StateOpen {
		r.logger.Warn("circuit opened",
			"backend", backend,
			"consecutive_failures", rec.breaker.ConsecutiveFailures(),
			"cooldown", r.cooldown,
		)
		if r.onOpen != nil {
			r.onOpen(backend)
		}
	}

	rec.mu.Lock()
	rec.samples = append(rec.samples, sample{success: false, latency: latency, at: now})
	if len(rec.samples) > maxSamples {
		rec.samples = rec.samples[len(rec.samples)-maxSamples:]
	}
	rec.mu.Unlock()
}

// State returns the breaker state for backend.
func (r *Registry) State(backend string) State {
	return r.get(backend).breaker.State(time.Now())
}

// ResetBreaker forces the breaker for backend closed and logs the reset.
func (r *Registry) ResetBreaker(backend string) {
	r.get(backend).breaker.Reset()
	r.logger.Info("circuit reset", "backend", backend)
}

// Stats returns a snapshot of backend's recent attempt record.
func (r *Registry) Stats(backend string) Stats {
	rec := r.get(backend)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	stats := Stats{
		Backend:             backend,
		State:               rec.breaker.State(time.Now()).String(),
		Attempts:            len(rec.samples),
		ConsecutiveFailures: rec.breaker.ConsecutiveFailures(),
	}

	if len(rec.samples) == 0 {
		return stats
	}

	var successes int
	var totalLatency time.Duration
	var totalCost float64
	for _, s := range rec.samples {
		if s.success {
			successes++
		}
		totalLatency += s.latency
		totalCost += s.cost
	}

	stats.SuccessRate = float64(successes) / float64(len(rec.samples))
	stats.AvgLatency = totalLatency / time.Duration(len(rec.samples))
	stats.AvgCost = totalCost / float64(len(rec.samples))
	stats.LastAttempt = rec.samples[len(rec.samples)-1].at
	return stats
}

// AllStats returns snapshots for every backend seen so far.
func (r *Registry) AllStats() map[string]Stats {
	r.mu.Lock()
	backends := make([]string, 0, len(r.records))
	for name := range r.records {
		backends = append(backends, name)
	}
	r.mu.Unlock()

	out := make(map[string]Stats, len(backends))
	for _, name := range backends {
		out[name] = r.Stats(name)
	}
	return out
}
