package engine

import "time"

// Request is one inbound chat turn.
type Request struct {
	// SessionID continues an existing conversation. Empty starts a new
	// session; the assigned id is returned on the outcome.
	SessionID string `json:"session_id,omitempty"`

	// Message is the user's message text.
	Message string `json:"message"`

	// Step is the current conversation step supplied by the dialogue layer,
	// used for cache keying.
	Step string `json:"step,omitempty"`

	// ImageURLs attach images to the turn, restricting dispatch to
	// vision-capable backends.
	ImageURLs []string `json:"image_urls,omitempty"`

	// Emergency flags the turn immediate-priority regardless of keyword
	// detection.
	Emergency bool `json:"emergency,omitempty"`
}

// Kind tags an Outcome so consumers handle every variant exhaustively.
type Kind string

const (
	// KindSuccess is a fresh completion from a backend.
	KindSuccess Kind = "success"

	// KindCached is a completion served from the response cache; no backend
	// was called and no cost was charged.
	KindCached Kind = "cached"

	// KindFailure is a turn that produced no backend completion. Text holds
	// one of the fixed user-facing strings and Reason says why.
	KindFailure Kind = "failure"
)

// Failure reasons.
const (
	ReasonRateLimited   = "rate_limited"
	ReasonSessionBudget = "session_budget"
	ReasonGlobalBudget  = "global_budget"
	ReasonAllFailed     = "all_failed"
	ReasonNoCandidates  = "no_candidates"
)

// Outcome is the tagged result of one turn. Text is always set and always
// sanitized; the user never sees an error.
type Outcome struct {
	// Kind discriminates the variant.
	Kind Kind `json:"kind"`

	// SessionID identifies the session the turn ran under.
	SessionID string `json:"session_id"`

	// Text is the user-facing reply.
	Text string `json:"text"`

	// Backend attributes a success to the backend that produced it. Also
	// set for cached outcomes, naming the original producer.
	Backend string `json:"backend,omitempty"`

	// Cost is the dollar cost charged for the turn.
	Cost float64 `json:"cost,omitempty"`

	// Latency is the winning attempt's duration. Zero for cached and
	// failure outcomes.
	Latency time.Duration `json:"latency,omitempty"`

	// Reason explains a failure outcome.
	Reason string `json:"reason,omitempty"`

	// Escalate asks the caller to hand the conversation to a human. The
	// core only sets the flag; invoking the escalation sink is the caller's
	// job.
	Escalate bool `json:"escalate,omitempty"`

	// RetryAfter hints when a rate-limited session may retry.
	RetryAfter time.Duration `json:"retry_after,omitempty"`

	// Sanitized marks an outcome whose text was replaced by the output
	// sanitizer. Logged for audit, not an error.
	Sanitized bool `json:"sanitized,omitempty"`

	// Contacts are the escalation channels offered alongside fallback
	// text.
	Contacts []string `json:"contacts,omitempty"`
}
