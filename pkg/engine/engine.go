// Package engine wires the pipeline for one chat turn: admission by the
// governor, cache consultation, candidate selection, failover dispatch,
// output sanitization, and accounting. Turns for different sessions run
// concurrently; the caller serializes turns within one session.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"conversa-hq/orbit/pkg/config"
	"conversa-hq/orbit/pkg/gateway"
	"conversa-hq/orbit/pkg/governor"
	"conversa-hq/orbit/pkg/health"
	"conversa-hq/orbit/pkg/lexicon"
	"conversa-hq/orbit/pkg/monitor"
	"conversa-hq/orbit/pkg/orchestrator"
	"conversa-hq/orbit/pkg/respcache"
	"conversa-hq/orbit/pkg/sanitizer"
	"conversa-hq/orbit/pkg/selector"
	"conversa-hq/orbit/pkg/session"
)

// ErrEmptyMessage rejects turns with no message text.
var ErrEmptyMessage = errors.New("empty message")

// promptOverheadTokens is the assumed fixed token load of the system prompt
// and formatting around a turn, used for cost projection.
const promptOverheadTokens = 100

// Engine runs the turn pipeline.
type Engine struct {
	cfg      *config.Config
	sessions session.Store
	governor *governor.Governor
	cache    *respcache.Cache
	lexicons *lexicon.Store
	selector *selector.Selector
	orch     *orchestrator.Orchestrator
	san      *sanitizer.Sanitizer
	monitor  *monitor.Monitor
	registry *health.Registry
	logger   *slog.Logger
}

// New assembles an engine from its components.
func New(
	cfg *config.Config,
	sessions session.Store,
	gov *governor.Governor,
	cache *respcache.Cache,
	lexicons *lexicon.Store,
	sel *selector.Selector,
	orch *orchestrator.Orchestrator,
	san *sanitizer.Sanitizer,
	mon *monitor.Monitor,
	registry *health.Registry,
) *Engine {
	return &Engine{
		cfg:      cfg,
		sessions: sessions,
		governor: gov,
		cache:    cache,
		lexicons: lexicons,
		selector: sel,
		orch:     orch,
		san:      san,
		monitor:  mon,
		registry: registry,
		logger:   slog.Default().With("component", "engine"),
	}
}

// Handle runs one turn end to end and returns its tagged outcome. Every
// outcome carries sanitized, user-facing text; backend errors never escape.
func (e *Engine) Handle(ctx context.Context, req *Request) (*Outcome, error) {
	if req.Message == "" {
		return nil, ErrEmptyMessage
	}

	if max := e.cfg.Governor.MaxImagesPerTurn; max > 0 && len(req.ImageURLs) > max {
		req.ImageURLs = req.ImageURLs[:max]
	}

	sess := e.loadSession(ctx, req.SessionID)
	sess.Touch()
	if req.Step != "" {
		sess.Step = req.Step
	}

	emergency := req.Emergency || e.lexicons.Current().IsEmergency(req.Message)

	// Admission runs before any backend work. Declines are soft: the user
	// gets a fixed reassuring string, never an error.
	projected := e.projectedCost(sess, req)
	decision := e.governor.Admit(sess.ID, projected)
	if !decision.Allowed {
		outcome := e.declineOutcome(sess.ID, decision)
		e.saveSession(ctx, sess)
		return outcome, nil
	}

	// Cache consultation. Image turns skip the cache since the key carries
	// no image identity.
	cacheKey := ""
	if len(req.ImageURLs) == 0 {
		cacheKey = respcache.Key(req.Message, req.Step)
		if entry, ok := e.cache.Lookup(cacheKey); ok {
			e.monitor.RecordCache(true)
			text, verdict := e.san.Check(entry.Text)
			if verdict != sanitizer.VerdictClean {
				e.monitor.RecordSanitizerTrip(entry.Backend)
			}
			sess.AppendExchange(req.Message, text, e.cfg.Sessions.HistoryLimit)
			e.saveSession(ctx, sess)
			return &Outcome{
				Kind:      KindCached,
				SessionID: sess.ID,
				Text:      text,
				Backend:   entry.Backend,
				Sanitized: verdict != sanitizer.VerdictClean,
			}, nil
		}
		e.monitor.RecordCache(false)
	}

	turn := selector.Turn{
		Message:    req.Message,
		ImageCount: len(req.ImageURLs),
		Emergency:  req.Emergency,
	}
	candidates := e.selector.SelectCandidates(turn, sess.ID)
	if len(candidates) == 0 {
		// No callable backend at all. The static response path makes no
		// backend call and charges nothing.
		e.logger.Warn("no candidates available, serving static response", "session_id", sess.ID)
		outcome := e.fallbackOutcome(sess.ID, ReasonNoCandidates)
		sess.AppendExchange(req.Message, outcome.Text, e.cfg.Sessions.HistoryLimit)
		e.saveSession(ctx, sess)
		return outcome, nil
	}

	turnCtx, cancel := context.WithTimeout(ctx, e.cfg.Orchestrator.TurnTimeout)
	defer cancel()

	result, err := e.orch.DispatchWithOptions(turnCtx, candidates, e.buildGatewayRequest(sess, req), orchestrator.Options{
		Emergency:  emergency,
		ImageCount: len(req.ImageURLs),
	})
	if err != nil {
		var allFailed *orchestrator.AllFailedError
		if errors.As(err, &allFailed) {
			e.recordFailures(sess, allFailed.Attempts)
			outcome := e.fallbackOutcome(sess.ID, ReasonAllFailed)
			sess.AppendExchange(req.Message, outcome.Text, e.cfg.Sessions.HistoryLimit)
			e.saveSession(ctx, sess)
			return outcome, nil
		}
		return nil, fmt.Errorf("dispatching turn: %w", err)
	}

	e.recordFailures(sess, result.Failures)

	text, verdict := e.san.Check(result.Text)
	sanitized := verdict != sanitizer.VerdictClean
	if sanitized {
		e.monitor.RecordSanitizerTrip(result.Backend)
	}

	e.governor.ChargeCost(sess.ID, result.Cost)
	sess.CostSpent += result.Cost
	sess.RecordAttempt(session.Attempt{
		Backend: result.Backend,
		Latency: result.Latency,
		Cost:    result.Cost,
		Success: true,
		At:      sess.LastActivity,
	})
	e.monitor.Record(result.Backend, result.Latency, result.Cost, true)

	if cacheKey != "" && !sanitized && len(text) >= e.cfg.Cache.MinResponseLength {
		e.cache.Store(cacheKey, respcache.Entry{Text: text, Backend: result.Backend})
	}

	sess.AppendExchange(req.Message, text, e.cfg.Sessions.HistoryLimit)
	e.saveSession(ctx, sess)

	return &Outcome{
		Kind:      KindSuccess,
		SessionID: sess.ID,
		Text:      text,
		Backend:   result.Backend,
		Cost:      result.Cost,
		Latency:   result.Latency,
		Sanitized: sanitized,
	}, nil
}

// BackendStats exposes the health registry snapshot for the status surface.
func (e *Engine) BackendStats() map[string]health.Stats {
	return e.registry.AllStats()
}

// ResetBreaker forces a backend's breaker closed, for operator use after a
// manual intervention.
func (e *Engine) ResetBreaker(backend string) {
	e.registry.ResetBreaker(backend)
}

// Report exposes the monitor snapshot.
func (e *Engine) Report() monitor.Snapshot {
	return e.monitor.Report()
}

// loadSession fetches the session or creates a fresh one. A present but
// unknown id is kept, so a client-side id survives a store eviction. Store
// errors degrade to a fresh session rather than failing the turn.
func (e *Engine) loadSession(ctx context.Context, id string) *session.Session {
	if id != "" {
		sess, err := e.sessions.Get(ctx, id)
		if err == nil {
			return sess
		}
		if !errors.Is(err, session.ErrNotFound) {
			e.logger.Error("session load failed, starting fresh", "session_id", id, "error", err)
		}
	}

	sess := session.New()
	if id != "" {
		sess.ID = id
	}
	return sess
}

// saveSession persists the session; failures are logged, not fatal.
func (e *Engine) saveSession(ctx context.Context, sess *session.Session) {
	if err := e.sessions.Put(ctx, sess); err != nil {
		e.logger.Error("session save failed", "session_id", sess.ID, "error", err)
	}
}

// projectedCost is the conservative cost estimate used for admission: the
// most expensive configured backend's rates applied to everything the wire
// request will carry (history window, current message, prompt overhead), a
// completion at the full token budget hint, and the vision surcharge for
// attached images. Overestimating here keeps a session's charged cost under
// its hard ceiling once the turn completes.
func (e *Engine) projectedCost(sess *session.Session, req *Request) float64 {
	inputChars := len(req.Message)
	for _, ex := range e.historyWindow(sess) {
		inputChars += len(ex.Content)
	}
	inputTokens := inputChars/4 + promptOverheadTokens

	outputTokens := e.cfg.Gateway.MaxTokens
	if outputTokens < e.cfg.Governor.ProjectedOutputTokens {
		outputTokens = e.cfg.Governor.ProjectedOutputTokens
	}

	worst := 0.0
	for _, b := range e.cfg.Backends {
		cost := b.Cost(inputTokens, outputTokens) +
			b.VisionSurcharge(len(req.ImageURLs), e.cfg.Governor.VisionTokensPerImage)
		if cost > worst {
			worst = cost
		}
	}
	return worst
}

// historyWindow returns the trailing history slice the gateway request will
// carry, capped at the configured depth.
func (e *Engine) historyWindow(sess *session.Session) []session.Exchange {
	depth := e.cfg.Gateway.HistoryDepth * 2
	history := sess.History
	if depth > 0 && len(history) > depth {
		history = history[len(history)-depth:]
	}
	return history
}

// buildGatewayRequest assembles the wire request: recent history capped at
// the configured depth, then the current user message.
func (e *Engine) buildGatewayRequest(sess *session.Session, req *Request) *gateway.Request {
	history := e.historyWindow(sess)

	messages := make([]gateway.Message, 0, len(history)+1)
	for _, ex := range history {
		messages = append(messages, gateway.Message{Role: ex.Role, Content: ex.Content})
	}
	messages = append(messages, gateway.Message{
		Role:      "user",
		Content:   req.Message,
		ImageURLs: req.ImageURLs,
	})

	return &gateway.Request{
		Messages:    messages,
		MaxTokens:   e.cfg.Gateway.MaxTokens,
		Temperature: e.cfg.Gateway.Temperature,
	}
}

// declineOutcome maps an admission decline to its fixed user-facing string.
func (e *Engine) declineOutcome(sessionID string, decision governor.Decision) *Outcome {
	switch decision.Reason {
	case governor.ReasonRateLimited:
		return &Outcome{
			Kind:       KindFailure,
			SessionID:  sessionID,
			Text:       e.san.Sanitize(e.cfg.Orchestrator.RateLimitMessage),
			Reason:     ReasonRateLimited,
			RetryAfter: decision.RetryAfter,
		}

	case governor.ReasonSessionBudget:
		return &Outcome{
			Kind:      KindFailure,
			SessionID: sessionID,
			Text:      e.san.Sanitize(e.cfg.Orchestrator.CostLimitMessage),
			Reason:    ReasonSessionBudget,
			Escalate:  true,
			Contacts:  e.cfg.Orchestrator.FallbackContacts,
		}

	default:
		e.monitor.RecordBudgetExhausted(decision.Scope)
		return &Outcome{
			Kind:      KindFailure,
			SessionID: sessionID,
			Text:      e.san.Sanitize(e.cfg.Orchestrator.CostLimitMessage),
			Reason:    ReasonGlobalBudget,
			Escalate:  true,
			Contacts:  e.cfg.Orchestrator.FallbackContacts,
		}
	}
}

// fallbackOutcome is the fixed hand-off-to-a-human response. It never
// depends on a backend call and charges no cost.
func (e *Engine) fallbackOutcome(sessionID, reason string) *Outcome {
	return &Outcome{
		Kind:      KindFailure,
		SessionID: sessionID,
		Text:      e.san.Sanitize(e.cfg.Orchestrator.FallbackMessage),
		Reason:    reason,
		Escalate:  true,
		Contacts:  e.cfg.Orchestrator.FallbackContacts,
	}
}

// recordFailures books failed attempts into the session record and the
// monitor. Skipped candidates (breaker-rejected) are not attempts and are
// not recorded.
func (e *Engine) recordFailures(sess *session.Session, attempts []orchestrator.AttemptError) {
	for _, a := range attempts {
		if a.Skipped {
			continue
		}
		sess.RecordAttempt(session.Attempt{
			Backend: a.Backend,
			Latency: a.Latency,
			Success: false,
			At:      sess.LastActivity,
		})
		e.monitor.Record(a.Backend, a.Latency, 0, false)
	}
}
