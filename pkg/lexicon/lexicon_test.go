package lexicon

import (
	"os"
	"path/filepath"
	"testing"
)

// ====== Loading ======

func TestLoad_FullFile(t *testing.T) {
	path := writeLexicon(t, `
conversational:
  - hello
  - pricing
technical:
  - firewall
emergency:
  - outage
`)

	lex, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(lex.Conversational) != 2 {
		t.Errorf("expected 2 conversational keywords, got %d", len(lex.Conversational))
	}
	if len(lex.Technical) != 1 || lex.Technical[0] != "firewall" {
		t.Errorf("unexpected technical list: %v", lex.Technical)
	}
	if len(lex.Emergency) != 1 || lex.Emergency[0] != "outage" {
		t.Errorf("unexpected emergency list: %v", lex.Emergency)
	}
}

func TestLoad_PartialFileFallsBackToDefaults(t *testing.T) {
	path := writeLexicon(t, `
technical:
  - kubernetes
`)

	lex, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	defaults := Default()
	if len(lex.Conversational) != len(defaults.Conversational) {
		t.Error("missing conversational list should fall back to defaults")
	}
	if len(lex.Emergency) != len(defaults.Emergency) {
		t.Error("missing emergency list should fall back to defaults")
	}
	if len(lex.Technical) != 1 || lex.Technical[0] != "kubernetes" {
		t.Errorf("file-provided technical list should win, got %v", lex.Technical)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeLexicon(t, "conversational: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

// ====== Scoring ======

func TestScoring(t *testing.T) {
	lex := &Lexicon{
		Conversational: []string{"hello", "quote", "price"},
		Technical:      []string{"firewall", "vpn", "server"},
		Emergency:      []string{"urgent", "outage"},
	}

	tests := []struct {
		message   string
		conv      int
		tech      int
		emergency bool
	}{
		{"Hello, can I get a quote?", 2, 0, false},
		{"the firewall blocks the vpn to the server", 0, 3, false},
		{"hello, the firewall is down, this is URGENT", 1, 1, true},
		{"completely unrelated text", 0, 0, false},
		{"", 0, 0, false},
	}

	for _, tt := range tests {
		if got := lex.ConversationalScore(tt.message); got != tt.conv {
			t.Errorf("ConversationalScore(%q) = %d, want %d", tt.message, got, tt.conv)
		}
		if got := lex.TechnicalScore(tt.message); got != tt.tech {
			t.Errorf("TechnicalScore(%q) = %d, want %d", tt.message, got, tt.tech)
		}
		if got := lex.IsEmergency(tt.message); got != tt.emergency {
			t.Errorf("IsEmergency(%q) = %v, want %v", tt.message, got, tt.emergency)
		}
	}
}

func TestScoring_CaseInsensitive(t *testing.T) {
	lex := &Lexicon{Emergency: []string{"ransomware"}}

	if !lex.IsEmergency("RANSOMWARE on the file server!") {
		t.Error("matching must be case-insensitive")
	}
}

func TestScoring_KeywordCountedOncePerCategory(t *testing.T) {
	lex := &Lexicon{Conversational: []string{"price"}}

	// Repeats of the same keyword count as a single hit.
	if got := lex.ConversationalScore("price price price"); got != 1 {
		t.Errorf("expected 1 hit, got %d", got)
	}
}

// ====== Store ======

func TestNewStore_EmptyPathUsesDefaults(t *testing.T) {
	s, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer s.Close()

	lex := s.Current()
	if lex == nil || len(lex.Emergency) == 0 {
		t.Error("empty path should serve the built-in defaults")
	}
}

func TestNewStore_LoadsFile(t *testing.T) {
	path := writeLexicon(t, `
conversational: [ciao]
`)

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer s.Close()

	if got := s.Current().Conversational; len(got) != 1 || got[0] != "ciao" {
		t.Errorf("unexpected conversational list: %v", got)
	}
}

func TestNewStore_MissingFile(t *testing.T) {
	if _, err := NewStore(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestStore_CloseWithoutWatch(t *testing.T) {
	path := writeLexicon(t, "emergency: [down]")

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	// Must not block even though Watch never ran.
	s.Close()
	s.Close()
}

func writeLexicon(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lexicons.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing lexicon file: %v", err)
	}
	return path
}
