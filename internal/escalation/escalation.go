package escalation

import "time"

// Reason codes for handing a turn off to a human operator.
type Reason string

const (
	ReasonLowConfidence   Reason = "low_confidence"
	ReasonExplicitRequest Reason = "explicit_request"
	ReasonAgentTimeout    Reason = "agent_timeout"
	ReasonAgentFailure    Reason = "agent_failure"
	ReasonManualRequest   Reason = "manual_request"
	ReasonSessionError    Reason = "session_error"
)

// Event is a record of a human handoff. Events are immutable once written.
type Event struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Turn       int       `json:"turn"`
	Reason     Reason    `json:"reason"`
	Summary    string    `json:"summary"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}
