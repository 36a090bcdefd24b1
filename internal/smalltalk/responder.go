// Package smalltalk handles greetings, thanks, and other conversational
// utterances that need no backend lookup.
package smalltalk

import (
	"context"
	"strings"
	"time"

	"github.com/ziadkadry99/voicedesk/internal/responder"
	"github.com/ziadkadry99/voicedesk/internal/session"
)

const (
	confidenceMatched = 0.9
	confidenceGeneric = 0.65
)

var greetings = []string{"hello", "hi", "hey", "good morning", "good afternoon", "good evening"}
var thanks = []string{"thank", "thanks", "appreciate"}
var goodbyes = []string{"bye", "goodbye", "see you", "that's all", "that is all"}

// Responder produces canned conversational replies so the assistant always
// has something to say, even when no specialist matches.
type Responder struct{}

// NewResponder creates the conversation responder.
func NewResponder() *Responder {
	return &Responder{}
}

func (r *Responder) Name() string             { return "conversation" }
func (r *Responder) Domain() responder.Domain { return responder.DomainConversation }

func (r *Responder) Handle(ctx context.Context, utt responder.Utterance, snap session.Snapshot) responder.Result {
	start := time.Now()
	res := responder.Result{
		Responder: r.Name(),
		Domain:    r.Domain(),
		Turn:      utt.Turn,
	}

	lower := strings.ToLower(utt.Text)
	switch {
	case containsAny(lower, greetings):
		res.Text = "Hello! I'm your support assistant. I can check ticket statuses or look things up in the knowledge base. How can I help?"
		res.Confidence = confidenceMatched
	case containsAny(lower, thanks):
		res.Text = "You're welcome! Is there anything else I can help you with?"
		res.Confidence = confidenceMatched
	case containsAny(lower, goodbyes):
		res.Text = "Goodbye! Feel free to reach out any time you need help."
		res.Confidence = confidenceMatched
	default:
		res.Text = "I can help with support tickets and questions from the knowledge base. Could you tell me a bit more about what you need?"
		res.Confidence = confidenceGeneric
	}

	res.Latency = time.Since(start)
	return res
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if containsPhrase(text, p) {
			return true
		}
	}
	return false
}

// containsPhrase matches on word boundaries, so "hi" does not match inside
// "this" and "bye" does not match inside "maybe".
func containsPhrase(text, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		before := start == 0 || !isWordChar(text[start-1])
		after := end == len(text) || !isWordChar(text[end])
		if before && after {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
