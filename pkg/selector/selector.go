// Package selector picks the ordered list of candidate backends for a turn.
// Selection is deterministic and explainable: emergency flags and keyword
// lexicon scores choose a preferred backend, a cost guard can force the
// cheapest one, and open circuit breakers exclude backends entirely. The
// output is an ordered list so the orchestrator can fail over.
package selector

import (
	"log/slog"
	"sort"

	"conversa-hq/orbit/pkg/config"
	"conversa-hq/orbit/pkg/lexicon"
)

// Turn carries the per-turn inputs selection depends on beyond the message
// text itself.
type Turn struct {
	// Message is the raw user message.
	Message string

	// ImageCount is the number of images attached to the turn. A non-zero
	// count restricts candidates to vision-capable backends.
	ImageCount int

	// Emergency flags the turn immediate-priority regardless of keyword
	// matches.
	Emergency bool
}

// BudgetGuard reports whether a session's spend has crossed the soft budget
// guard threshold.
type BudgetGuard interface {
	OverSoftGuard(sessionID string, ratio float64) bool
}

// Availability reports whether a backend's circuit currently admits
// attempts.
type Availability interface {
	Available(backend string) bool
}

// Selector orders candidate backends for each turn.
type Selector struct {
	cfg      config.SelectorConfig
	backends map[string]config.BackendConfig
	lexicons *lexicon.Store
	budget   BudgetGuard
	health   Availability
	logger   *slog.Logger
}

// New creates a selector over the configured backends.
func New(cfg config.SelectorConfig, backends map[string]config.BackendConfig, lexicons *lexicon.Store, budget BudgetGuard, health Availability) *Selector {
	return &Selector{
		cfg:      cfg,
		backends: backends,
		lexicons: lexicons,
		budget:   budget,
		health:   health,
		logger:   slog.Default().With("component", "selector"),
	}
}

// SelectCandidates returns the ordered backend candidates for the turn. An
// empty list means no backend may be called and the caller must use the
// static emergency response.
func (s *Selector) SelectCandidates(turn Turn, sessionID string) []string {
	lex := s.lexicons.Current()
	emergency := turn.Emergency || lex.IsEmergency(turn.Message)

	var order []string
	var reason string

	switch {
	case emergency:
		// Fast backend first, then the general-purpose one, then cheapest.
		order = []string{s.cfg.EmergencyBackend, s.cfg.ConversationalBackend, s.cheapest(false)}
		reason = "emergency"

	case turn.ImageCount > 0:
		order = s.visionCandidates()
		reason = "vision"

	default:
		conv := lex.ConversationalScore(turn.Message)
		tech := lex.TechnicalScore(turn.Message)
		if tech > conv {
			order = []string{s.cfg.TechnicalBackend, s.cfg.ConversationalBackend}
			reason = "technical"
		} else {
			// Ties break toward the conversational backend.
			order = []string{s.cfg.ConversationalBackend, s.cfg.TechnicalBackend}
			reason = "conversational"
		}
	}

	// Cost guard: past the soft budget guard threshold, the cheapest
	// eligible backend goes first. Emergency turns are exempt.
	if !emergency && s.budget.OverSoftGuard(sessionID, s.cfg.CostGuardRatio) {
		cheapest := s.cheapest(turn.ImageCount > 0)
		if cheapest != "" {
			order = append([]string{cheapest}, order...)
			reason = "cost_guard"
		}
	}

	order = dedupe(order)

	// Open breakers drop out of the list entirely.
	candidates := make([]string, 0, len(order))
	for _, name := range order {
		if name == "" {
			continue
		}
		if _, known := s.backends[name]; !known {
			continue
		}
		if s.health.Available(name) {
			candidates = append(candidates, name)
		}
	}

	if len(candidates) == 0 {
		if s.cfg.LastResort != "" && s.health.Available(s.cfg.LastResort) {
			candidates = []string{s.cfg.LastResort}
			reason = "last_resort"
		}
	}

	s.logger.Debug("candidates selected",
		"session_id", sessionID,
		"reason", reason,
		"candidates", candidates,
	)
	return candidates
}

// visionCandidates returns vision-capable backends, highest tier first.
func (s *Selector) visionCandidates() []string {
	type tiered struct {
		name string
		tier int
	}
	var capable []tiered
	for name, b := range s.backends {
		if b.Vision {
			capable = append(capable, tiered{name: name, tier: b.VisionTier})
		}
	}
	sort.Slice(capable, func(i, j int) bool {
		if capable[i].tier != capable[j].tier {
			return capable[i].tier > capable[j].tier
		}
		return capable[i].name < capable[j].name
	})

	out := make([]string, len(capable))
	for i, c := range capable {
		out[i] = c.name
	}
	return out
}

// cheapest returns the backend with the lowest combined per-token cost,
// restricted to vision-capable backends when visionOnly is set.
func (s *Selector) cheapest(visionOnly bool) string {
	best := ""
	bestCost := 0.0
	for name, b := range s.backends {
		if visionOnly && !b.Vision {
			continue
		}
		cost := b.InputCostPer1K + b.OutputCostPer1K
		if best == "" || cost < bestCost || (cost == bestCost && name < best) {
			best = name
			bestCost = cost
		}
	}
	return best
}

// dedupe removes repeated names, keeping first occurrence order.
func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
