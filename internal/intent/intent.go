// Package intent classifies user utterances and decides which responders
// should handle each turn. A fast rule pass covers the common cases so
// most turns never pay for an LLM round trip.
package intent

// Type is the coarse category of an utterance.
type Type string

const (
	TypeTicketQuery    Type = "ticket_query"
	TypeKnowledgeQuery Type = "knowledge_query"
	TypeMixedQuery     Type = "mixed_query"
	TypeGreeting       Type = "greeting"
	TypeEscalation     Type = "escalation"
	TypeFollowup       Type = "followup"
	TypeUnknown        Type = "unknown"
)

// Target names a responder that should handle the turn. Lower priority
// numbers are consulted first when merging answers.
type Target struct {
	Name     string
	Priority int
}

// Decision is the routing outcome for one utterance.
type Decision struct {
	Intent     Type
	Targets    []Target
	Confidence float64
	Entities   map[string]string
	Fallback   bool
	Reasoning  string
}

// targetsFor maps an intent type to its responder targets. Followup routing
// is resolved by the classifier since it depends on session state.
func targetsFor(t Type) []Target {
	switch t {
	case TypeTicketQuery:
		return []Target{{Name: "tickets", Priority: 1}}
	case TypeKnowledgeQuery:
		return []Target{{Name: "knowledge", Priority: 1}}
	case TypeMixedQuery:
		return []Target{{Name: "tickets", Priority: 1}, {Name: "knowledge", Priority: 2}}
	case TypeGreeting, TypeEscalation:
		return []Target{{Name: "conversation", Priority: 1}}
	default:
		return []Target{{Name: "knowledge", Priority: 2}}
	}
}
