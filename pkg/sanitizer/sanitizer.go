// Package sanitizer inspects outbound completion text for leaked internal
// operating instructions. Detection is fail-closed: any fingerprint hit or
// suspicious structural shape replaces the entire output with one fixed safe
// string. Partial redaction is never attempted because a partial leak is
// still a leak.
//
// The check runs on every outbound message, cached and emergency paths
// included.
package sanitizer

import (
	"log/slog"
	"strings"

	"conversa-hq/orbit/pkg/config"
)

// Verdict explains why a text was replaced.
type Verdict string

const (
	// VerdictClean means the text passed all checks unchanged.
	VerdictClean Verdict = "clean"

	// VerdictFingerprint means the text contained a known leak fingerprint.
	VerdictFingerprint Verdict = "fingerprint"

	// VerdictStructural means the text's shape looked like internal
	// instructions: multiple section markers, or anomalous length combined
	// with dense instructional vocabulary.
	VerdictStructural Verdict = "structural"
)

// Sanitizer screens outbound text against leak fingerprints and structural
// signatures.
type Sanitizer struct {
	cfg    config.SanitizerConfig
	logger *slog.Logger
}

// New creates a sanitizer from config.
func New(cfg config.SanitizerConfig) *Sanitizer {
	return &Sanitizer{
		cfg:    cfg,
		logger: slog.Default().With("component", "sanitizer"),
	}
}

// Sanitize returns text unchanged when clean, or the configured safe
// fallback when any leak signal fires.
func (s *Sanitizer) Sanitize(text string) string {
	safe, _ := s.Check(text)
	return safe
}

// Check is Sanitize with the verdict exposed, for callers that record leak
// events.
func (s *Sanitizer) Check(text string) (string, Verdict) {
	if text == "" {
		return text, VerdictClean
	}

	if fp := s.matchFingerprint(text); fp != "" {
		s.logger.Warn("leak fingerprint in outbound text, replaced with safe fallback",
			"fingerprint", fp,
			"length", len(text),
		)
		return s.cfg.SafeFallback, VerdictFingerprint
	}

	if s.looksStructural(text) {
		s.logger.Warn("structural leak signature in outbound text, replaced with safe fallback",
			"length", len(text),
		)
		return s.cfg.SafeFallback, VerdictStructural
	}

	return text, VerdictClean
}

// matchFingerprint returns the first matching fingerprint, or empty.
func (s *Sanitizer) matchFingerprint(text string) string {
	for _, fp := range s.cfg.Fingerprints {
		if fp != "" && strings.Contains(text, fp) {
			return fp
		}
	}
	return ""
}

// looksStructural applies the shape checks: a marker count at or above the
// threshold fires on its own; anomalous length fires only combined with an
// instructional vocabulary density above the configured per-100-words rate.
func (s *Sanitizer) looksStructural(text string) bool {
	markers := 0
	for _, m := range s.cfg.SectionMarkers {
		if m != "" && strings.Contains(text, m) {
			markers++
		}
	}
	if markers >= s.cfg.MarkerThreshold {
		return true
	}

	if len(text) <= s.cfg.SuspectLength {
		return false
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return false
	}

	lowered := strings.ToLower(text)
	hits := 0
	for _, term := range s.cfg.InstructionalVocabulary {
		if term == "" {
			continue
		}
		hits += strings.Count(lowered, strings.ToLower(term))
	}

	density := float64(hits) / float64(len(words)) * 100.0
	return density >= s.cfg.VocabularyDensity
}
