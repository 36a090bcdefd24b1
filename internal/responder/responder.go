package responder

import (
	"context"
	"strings"
	"time"

	"github.com/ziadkadry99/voicedesk/internal/session"
)

// Domain identifies the area a responder is specialized in.
type Domain string

const (
	DomainTickets      Domain = "tickets"
	DomainKnowledge    Domain = "knowledge"
	DomainConversation Domain = "conversation"
)

// Authoritative reports whether the domain's structured claims override
// narrative responders on overlapping fields during aggregation.
func (d Domain) Authoritative() bool {
	return d == DomainTickets
}

// Utterance is one recognized user input. It is immutable once created.
type Utterance struct {
	Text      string
	Turn      int
	WordCount int
}

// NewUtterance builds an Utterance tagged with the turn sequence number.
func NewUtterance(text string, turn int) Utterance {
	return Utterance{
		Text:      text,
		Turn:      turn,
		WordCount: len(strings.Fields(text)),
	}
}

// Result is one responder's answer for a turn.
//
// Fields carries structured claims (e.g. "ticket_status") used by the
// aggregator to detect overlapping claims between responders. Confidence is
// meaningful only when Err is nil; out-of-range values are clamped by the
// aggregator rather than trusted.
type Result struct {
	Responder  string
	Domain     Domain
	Text       string
	Fields     map[string]string
	Confidence float64
	Latency    time.Duration
	Turn       int
	Err        error
}

// Responder is the single capability contract every specialized responder
// implements. Handle must respect ctx's deadline: either complete before it
// or return promptly once cancelled. It must never block indefinitely on an
// external call.
type Responder interface {
	Name() string
	Domain() Domain
	Handle(ctx context.Context, utt Utterance, snap session.Snapshot) Result
}
