// Package governor admits or declines chat turns before any backend call is
// made. It enforces a per-session sliding-window rate limit, per-session
// cost budgets (a soft budget that biases routing and a hard ceiling that
// blocks admission), and process-wide hourly/daily aggregate cost ceilings.
//
// All checks are local arithmetic over owned counters; the governor never
// blocks one session on another and never calls an external service. An
// unknown session id simply means fresh counters.
package governor

import (
	"log/slog"
	"sync"
	"time"

	"conversa-hq/orbit/pkg/config"
)

// Governor tracks per-session request rates and cost spend, plus
// process-wide aggregate spend.
type Governor struct {
	cfg config.GovernorConfig

	mu       sync.Mutex
	sessions map[string]*sessionCounters

	// Process-wide aggregate spend windows.
	hourly *RollingWindow
	daily  *RollingWindow

	logger *slog.Logger
}

// sessionCounters is the per-session mutable state. Only the addressed
// session's counters are touched by any operation.
type sessionCounters struct {
	requests *RollingWindow
	cost     float64
	lastSeen time.Time
}

// New creates a governor with the given configuration.
func New(cfg config.GovernorConfig) *Governor {
	return &Governor{
		cfg:      cfg,
		sessions: make(map[string]*sessionCounters),
		hourly:   NewRollingWindow(time.Hour, time.Minute),
		daily:    NewRollingWindow(24*time.Hour, time.Hour),
		logger:   slog.Default().With("component", "governor"),
	}
}

// Admit decides whether a turn for the session may proceed to a backend.
// projectedCost is the caller's estimate of what the turn will cost if it
// runs (token projection plus any vision surcharge).
//
// Check order: rate limit, then session hard ceiling, then process-wide
// ceilings. The first breach declines. No counters are charged here; cost
// is only charged after a completion via ChargeCost.
func (g *Governor) Admit(sessionID string, projectedCost float64) Decision {
	counters := g.counters(sessionID)

	if used := counters.requests.Sum(); used >= float64(g.cfg.RequestsPerMinute) {
		g.logger.Debug("session rate limited",
			"session", sessionID,
			"requests_in_window", int(used),
			"limit", g.cfg.RequestsPerMinute,
		)
		return Decision{Allowed: false, Reason: ReasonRateLimited, RetryAfter: 10 * time.Second}
	}

	if counters.cost+projectedCost > g.cfg.HardCeiling {
		g.logger.Info("session hard ceiling reached",
			"session", sessionID,
			"spent", counters.cost,
			"projected", projectedCost,
			"ceiling", g.cfg.HardCeiling,
		)
		return Decision{Allowed: false, Reason: ReasonSessionBudget}
	}

	if g.cfg.HourlyCeiling > 0 && g.hourly.Sum()+projectedCost > g.cfg.HourlyCeiling {
		g.logger.Warn("hourly aggregate ceiling reached", "ceiling", g.cfg.HourlyCeiling)
		return Decision{Allowed: false, Reason: ReasonGlobalBudget, Scope: "hourly"}
	}
	if g.cfg.DailyCeiling > 0 && g.daily.Sum()+projectedCost > g.cfg.DailyCeiling {
		g.logger.Warn("daily aggregate ceiling reached", "ceiling", g.cfg.DailyCeiling)
		return Decision{Allowed: false, Reason: ReasonGlobalBudget, Scope: "daily"}
	}

	counters.requests.Add(1)
	return Decision{Allowed: true, Reason: ReasonOK}
}

// ChargeCost records actual spend against the session and the process-wide
// windows. Called once per completed turn with the realized cost.
func (g *Governor) ChargeCost(sessionID string, amount float64) {
	if amount <= 0 {
		return
	}

	counters := g.counters(sessionID)

	g.mu.Lock()
	counters.cost += amount
	g.mu.Unlock()

	g.hourly.Add(amount)
	g.daily.Add(amount)
}

// CurrentCost returns the session's cumulative charged cost.
func (g *Governor) CurrentCost(sessionID string) float64 {
	counters := g.counters(sessionID)

	g.mu.Lock()
	defer g.mu.Unlock()
	return counters.cost
}

// OverSoftGuard reports whether the session's spend has crossed the given
// fraction of the soft budget. The selector uses this to force the cheapest
// eligible backend.
func (g *Governor) OverSoftGuard(sessionID string, ratio float64) bool {
	return g.CurrentCost(sessionID) >= g.cfg.SoftBudget*ratio
}

// Forget drops a session's counters. Called when the session is closed or
// expired by the session store.
func (g *Governor) Forget(sessionID string) {
	g.mu.Lock()
	delete(g.sessions, sessionID)
	g.mu.Unlock()
}

// Prune drops counters idle for longer than maxIdle. Returns how many were
// dropped.
func (g *Governor) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	g.mu.Lock()
	defer g.mu.Unlock()

	dropped := 0
	for id, counters := range g.sessions {
		if counters.lastSeen.Before(cutoff) {
			delete(g.sessions, id)
			dropped++
		}
	}
	return dropped
}

// counters returns the session's counters, creating them if absent. An
// invalid or unknown session id is treated as a new session.
func (g *Governor) counters(sessionID string) *sessionCounters {
	g.mu.Lock()
	defer g.mu.Unlock()

	counters, ok := g.sessions[sessionID]
	if !ok {
		counters = &sessionCounters{
			requests: NewRollingWindow(time.Minute, time.Second),
		}
		g.sessions[sessionID] = counters
	}
	counters.lastSeen = time.Now()
	return counters
}
