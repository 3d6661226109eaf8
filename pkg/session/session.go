// Package session defines the per-conversation state the orchestration core
// tracks across turns, and the stores that persist it between turns.
//
// A Session is owned exclusively by the orchestration layer for its lifetime:
// created on the first turn, mutated on every turn, and evicted when its
// inactivity window elapses or the conversation is explicitly closed. Callers
// are expected to serialize turns for a single session; stores only guard
// against concurrent access across sessions.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Attempt records one backend attempt made on behalf of this session.
type Attempt struct {
	// Backend is the backend identifier that was attempted.
	Backend string `json:"backend"`

	// Latency is the observed attempt duration.
	Latency time.Duration `json:"latency"`

	// Cost is the cost charged for the attempt (zero on failure).
	Cost float64 `json:"cost"`

	// Success indicates whether the attempt produced a completion.
	Success bool `json:"success"`

	// At is when the attempt completed.
	At time.Time `json:"at"`
}

// Exchange is one user/assistant message pair kept as conversation history.
type Exchange struct {
	// Role is "user" or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// Session identifies one end-user conversation and accumulates its cost and
// rate state across turns.
type Session struct {
	// ID is the unique session identifier.
	ID string `json:"id"`

	// CreatedAt is when the session was created.
	CreatedAt time.Time `json:"created_at"`

	// LastActivity is the time of the most recent turn.
	LastActivity time.Time `json:"last_activity"`

	// CostSpent is the cumulative cost charged to this session.
	CostSpent float64 `json:"cost_spent"`

	// MessageCount is the number of turns handled for this session.
	MessageCount int `json:"message_count"`

	// Attempts is the rolling list of backend attempts, newest last.
	Attempts []Attempt `json:"attempts,omitempty"`

	// History is the rolling conversation history, oldest first.
	History []Exchange `json:"history,omitempty"`

	// Step is the current conversation step supplied by the dialogue layer.
	Step string `json:"step,omitempty"`
}

// New creates a session with a fresh UUID.
func New() *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastActivity: now,
	}
}

// maxAttempts bounds the rolling attempt list per session.
const maxAttempts = 50

// RecordAttempt appends a backend attempt, dropping the oldest beyond the
// rolling bound.
func (s *Session) RecordAttempt(a Attempt) {
	s.Attempts = append(s.Attempts, a)
	if len(s.Attempts) > maxAttempts {
		s.Attempts = s.Attempts[len(s.Attempts)-maxAttempts:]
	}
}

// AppendExchange appends a user/assistant pair, trimming history to limit
// messages (oldest dropped first).
func (s *Session) AppendExchange(userText, assistantText string, limit int) {
	s.History = append(s.History,
		Exchange{Role: "user", Content: userText},
		Exchange{Role: "assistant", Content: assistantText},
	)
	if limit > 0 && len(s.History) > limit {
		s.History = s.History[len(s.History)-limit:]
	}
}

// Touch updates the last-activity time and bumps the message count.
func (s *Session) Touch() {
	s.LastActivity = time.Now()
	s.MessageCount++
}
