package conversation

import (
	"github.com/ziadkadry99/voicedesk/internal/escalation"
	"github.com/ziadkadry99/voicedesk/internal/session"
)

// Events receives notifications as the machine moves a session through its
// states. Implemented by the websocket hub; NopEvents serves tests and the
// seed command.
type Events interface {
	VoiceState(sessionID string, state State, turn int)
	NewMessage(sessionID string, msg session.Message)
	AgentRouting(sessionID string, targets []string, intentType string)
	EscalationAlert(sessionID string, event escalation.Event)
	Filler(sessionID string, phrase string)
}

// NopEvents discards all notifications.
type NopEvents struct{}

func (NopEvents) VoiceState(string, State, int)            {}
func (NopEvents) NewMessage(string, session.Message)       {}
func (NopEvents) AgentRouting(string, []string, string)    {}
func (NopEvents) EscalationAlert(string, escalation.Event) {}
func (NopEvents) Filler(string, string)                    {}
