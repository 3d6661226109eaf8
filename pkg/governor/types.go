package governor

import "time"

// Reason classifies why an admission decision was made.
type Reason string

const (
	// ReasonOK means the request is admitted.
	ReasonOK Reason = "ok"

	// ReasonRateLimited means the session exceeded its per-minute request
	// ceiling. The caller should tell the user to slow down.
	ReasonRateLimited Reason = "rate_limited"

	// ReasonSessionBudget means the projected cost would push the session
	// past its hard ceiling. The caller should hand off to a human.
	ReasonSessionBudget Reason = "session_budget"

	// ReasonGlobalBudget means a process-wide hour or day ceiling is
	// breached; all new admissions are declined until the window rolls.
	ReasonGlobalBudget Reason = "global_budget"
)

// Decision is the result of an admission check. Admission is pure local
// arithmetic: it never calls an external service and cannot fail, so there
// is no error branch, only an allow/decline with a reason.
type Decision struct {
	// Allowed indicates whether the request may proceed to a backend.
	Allowed bool

	// Reason classifies the decision.
	Reason Reason

	// Scope names which aggregate ceiling tripped ("hourly" or "daily")
	// when Reason is ReasonGlobalBudget.
	Scope string

	// RetryAfter suggests how long a rate-limited session should wait.
	RetryAfter time.Duration
}
