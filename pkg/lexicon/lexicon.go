// Package lexicon loads the keyword lists that drive backend selection.
// The lists live in a YAML file so the selection policy can be tuned and
// versioned without touching orchestration code, and a file watcher hot
// reloads them on change.
package lexicon

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon holds the category keyword lists used for turn scoring. All
// matching is case-insensitive substring matching against the lowercased
// message.
type Lexicon struct {
	// Conversational marks customer-facing turns: greetings, pricing and
	// quote requests, and handoff asks.
	Conversational []string `yaml:"conversational"`

	// Technical marks reference and troubleshooting turns: infrastructure,
	// security, and product vocabulary.
	Technical []string `yaml:"technical"`

	// Emergency marks turns that need immediate-priority handling. A single
	// hit flags the turn.
	Emergency []string `yaml:"emergency"`
}

// Default returns the built-in lexicon used when no file is configured.
func Default() *Lexicon {
	return &Lexicon{
		Conversational: []string{
			"hello", "hi", "thanks", "thank you", "quote", "price", "pricing",
			"cost", "how much", "help", "support", "assistance", "person",
			"human", "operator", "company", "contract", "service", "invoice",
		},
		Technical: []string{
			"server", "firewall", "network", "router", "switch", "vpn",
			"backup", "antivirus", "encryption", "install", "installation",
			"configure", "configuration", "maintenance", "update", "upgrade",
			"cloud", "storage", "sync", "restore", "active directory",
			"windows server", "vmware",
		},
		Emergency: []string{
			"emergency", "urgent", "urgently", "immediately", "asap",
			"right now", "down", "outage", "not working", "can't work",
			"blocked", "critical", "production down", "ransomware", "hacked",
			"data loss",
		},
	}
}

// Load reads a lexicon from a YAML file. Missing categories fall back to
// the built-in defaults so a partial file stays usable.
func Load(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon file: %w", err)
	}

	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parsing lexicon file %s: %w", path, err)
	}

	defaults := Default()
	if len(lex.Conversational) == 0 {
		lex.Conversational = defaults.Conversational
	}
	if len(lex.Technical) == 0 {
		lex.Technical = defaults.Technical
	}
	if len(lex.Emergency) == 0 {
		lex.Emergency = defaults.Emergency
	}

	return &lex, nil
}

// countHits returns the number of keywords present in the lowercased
// message.
func countHits(lowered string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lowered, kw) {
			hits++
		}
	}
	return hits
}

// ConversationalScore counts conversational keyword hits in message.
func (l *Lexicon) ConversationalScore(message string) int {
	return countHits(strings.ToLower(message), l.Conversational)
}

// TechnicalScore counts technical keyword hits in message.
func (l *Lexicon) TechnicalScore(message string) int {
	return countHits(strings.ToLower(message), l.Technical)
}

// IsEmergency reports whether message contains any emergency keyword.
func (l *Lexicon) IsEmergency(message string) bool {
	return countHits(strings.ToLower(message), l.Emergency) > 0
}
