package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ziadkadry99/voicedesk/internal/llm"
	"github.com/ziadkadry99/voicedesk/internal/session"
)

const classifyPrompt = `You are an intent classifier for an IT support voice assistant.
Classify the user's utterance into exactly one intent:

- ticket_query: asking about a specific support ticket or their open tickets
- knowledge_query: a how-to or informational question answerable from documentation
- mixed_query: needs both ticket data and documentation
- greeting: a greeting or social nicety
- escalation: asking for a human agent
- followup: a continuation of the previous exchange
- unknown: none of the above

Respond with JSON only:
{"intent": "<intent>", "confidence": <0.0-1.0>, "entities": {"ticket_id": "..."}, "reasoning": "<one short sentence>"}

Omit entities that are not present.`

// Classifier maps utterances to routing decisions. Rule tables decide the
// unambiguous cases; the rest go to the configured reasoning model. It
// never returns an error: any failure produces a fallback decision routing
// to the default responder.
type Classifier struct {
	provider      llm.Provider
	model         string
	timeout       time.Duration
	defaultTarget string
}

// NewClassifier creates a classifier. provider may be nil, in which case
// only the fast rules run and everything else falls back.
func NewClassifier(provider llm.Provider, model string, timeout time.Duration) *Classifier {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Classifier{
		provider:      provider,
		model:         model,
		timeout:       timeout,
		defaultTarget: "conversation",
	}
}

// Classify produces a routing decision for the utterance. Called at most
// once per turn.
func (c *Classifier) Classify(ctx context.Context, utterance string, snap session.Snapshot) Decision {
	if d, ok := classifyFast(utterance, snap); ok {
		return d
	}

	if c.provider == nil {
		return c.fallback("no reasoning model configured")
	}

	d, err := c.classifyLLM(ctx, utterance, snap)
	if err != nil {
		log.Printf("intent: classification failed, using fallback: %v", err)
		return c.fallback(err.Error())
	}
	return d
}

func (c *Classifier) classifyLLM(ctx context.Context, utterance string, snap session.Snapshot) (Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	userMsg := "Utterance: " + utterance
	if snap.Topic != "" {
		userMsg += "\nCurrent topic: " + snap.Topic
	}
	if snap.LastResponder != "" {
		userMsg += "\nLast responder: " + snap.LastResponder
	}
	if recent := snap.Recent(2); len(recent) > 0 {
		userMsg += "\nRecent exchange:"
		for _, m := range recent {
			userMsg += fmt.Sprintf("\n%s: %s", m.Speaker, m.Content)
		}
	}

	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		Model: c.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: classifyPrompt},
			{Role: llm.RoleUser, Content: userMsg},
		},
		MaxTokens:   256,
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("classify call: %w", err)
	}

	return c.parseDecision(resp.Content, snap)
}

func (c *Classifier) parseDecision(raw string, snap session.Snapshot) (Decision, error) {
	raw = stripCodeFence(raw)

	var parsed struct {
		Intent     string            `json:"intent"`
		Confidence float64           `json:"confidence"`
		Entities   map[string]string `json:"entities"`
		Reasoning  string            `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return Decision{}, fmt.Errorf("json parse: %w", err)
	}

	t := Type(parsed.Intent)
	switch t {
	case TypeTicketQuery, TypeKnowledgeQuery, TypeMixedQuery,
		TypeGreeting, TypeEscalation, TypeFollowup, TypeUnknown:
	default:
		return Decision{}, fmt.Errorf("unrecognized intent %q", parsed.Intent)
	}

	d := Decision{
		Intent:     t,
		Confidence: clamp(parsed.Confidence),
		Entities:   parsed.Entities,
		Reasoning:  parsed.Reasoning,
	}

	if t == TypeFollowup && snap.LastResponder != "" {
		d.Targets = []Target{{Name: snap.LastResponder, Priority: 1}}
	} else {
		d.Targets = targetsFor(t)
	}
	return d, nil
}

func (c *Classifier) fallback(reason string) Decision {
	return Decision{
		Intent:     TypeUnknown,
		Targets:    []Target{{Name: c.defaultTarget, Priority: 1}},
		Confidence: 0.3,
		Fallback:   true,
		Reasoning:  "fallback: " + reason,
	}
}

// stripCodeFence removes markdown code fences some models wrap JSON in.
func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	lines := strings.Split(raw, "\n")
	if len(lines) < 2 {
		return raw
	}
	end := len(lines)
	if strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}
	return strings.Join(lines[1:end], "\n")
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
