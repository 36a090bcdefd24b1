package supervisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ziadkadry99/voicedesk/internal/escalation"
	"github.com/ziadkadry99/voicedesk/internal/intent"
	"github.com/ziadkadry99/voicedesk/internal/responder"
	"github.com/ziadkadry99/voicedesk/internal/session"
)

// stubResponder returns a fixed result after an optional delay.
type stubResponder struct {
	name       string
	domain     responder.Domain
	text       string
	fields     map[string]string
	confidence float64
	delay      time.Duration
	err        error
	staleTurn  int
}

func (s *stubResponder) Name() string             { return s.name }
func (s *stubResponder) Domain() responder.Domain { return s.domain }

func (s *stubResponder) Handle(ctx context.Context, utt responder.Utterance, _ session.Snapshot) responder.Result {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return responder.Result{Responder: s.name, Domain: s.domain, Turn: utt.Turn, Err: ctx.Err()}
		}
	}
	turn := utt.Turn
	if s.staleTurn != 0 {
		turn = s.staleTurn
	}
	return responder.Result{
		Responder:  s.name,
		Domain:     s.domain,
		Text:       s.text,
		Fields:     s.fields,
		Confidence: s.confidence,
		Turn:       turn,
		Err:        s.err,
	}
}

// stubClassifier routes every utterance to a fixed target set.
type stubClassifier struct {
	targets []intent.Target
}

func (c *stubClassifier) Classify(_ context.Context, _ string, _ session.Snapshot) intent.Decision {
	return intent.Decision{Intent: intent.TypeUnknown, Targets: c.targets, Confidence: 0.9}
}

func newTestSupervisor(t *testing.T, cls Classifier, cfg Config, responders ...responder.Responder) *Supervisor {
	t.Helper()
	registry := responder.NewRegistry()
	for _, r := range responders {
		if err := registry.Register(r); err != nil {
			t.Fatalf("Register(%s): %v", r.Name(), err)
		}
	}
	return New(registry, cls, cfg)
}

func targets(names ...string) []intent.Target {
	out := make([]intent.Target, len(names))
	for i, n := range names {
		out[i] = intent.Target{Name: n, Priority: i + 1}
	}
	return out
}

func TestSingleTargetVerbatim(t *testing.T) {
	r := &stubResponder{name: "a", domain: responder.DomainKnowledge, text: "the answer", confidence: 0.8}
	sup := newTestSupervisor(t, &stubClassifier{targets: targets("a")}, Config{}, r)

	resp := sup.ProcessTurn(context.Background(), responder.NewUtterance("question", 1), session.Snapshot{})

	if resp.Text != "the answer" {
		t.Errorf("expected verbatim text, got %q", resp.Text)
	}
	if resp.Confidence != 0.8 {
		t.Errorf("expected confidence 0.8, got %v", resp.Confidence)
	}
	if resp.Escalate {
		t.Error("expected no escalation")
	}
	if len(resp.Contributors) != 1 || resp.Contributors[0] != "a" {
		t.Errorf("unexpected contributors: %v", resp.Contributors)
	}
}

func TestFanOutIsConcurrent(t *testing.T) {
	delay := 150 * time.Millisecond
	a := &stubResponder{name: "a", domain: responder.DomainTickets, text: "a", confidence: 0.9, delay: delay}
	b := &stubResponder{name: "b", domain: responder.DomainKnowledge, text: "b", confidence: 0.9, delay: delay}
	sup := newTestSupervisor(t, &stubClassifier{targets: targets("a", "b")}, Config{TaskTimeout: time.Second}, a, b)

	start := time.Now()
	resp := sup.ProcessTurn(context.Background(), responder.NewUtterance("q", 1), session.Snapshot{})
	elapsed := time.Since(start)

	if len(resp.Contributors) != 2 {
		t.Fatalf("expected 2 contributors, got %v", resp.Contributors)
	}
	// Sequential dispatch would take at least 2*delay.
	if elapsed >= 2*delay {
		t.Errorf("dispatch took %v, expected concurrent execution under %v", elapsed, 2*delay)
	}
}

func TestTimedOutResponderExcluded(t *testing.T) {
	fast := &stubResponder{name: "fast", domain: responder.DomainTickets, text: "fast answer", confidence: 0.9}
	slow := &stubResponder{name: "slow", domain: responder.DomainKnowledge, text: "slow answer", confidence: 0.9, delay: time.Second}
	sup := newTestSupervisor(t, &stubClassifier{targets: targets("fast", "slow")},
		Config{TaskTimeout: 50 * time.Millisecond}, fast, slow)

	resp := sup.ProcessTurn(context.Background(), responder.NewUtterance("q", 1), session.Snapshot{})

	if resp.Text != "fast answer" {
		t.Errorf("expected only the fast answer, got %q", resp.Text)
	}
	if len(resp.Contributors) != 1 {
		t.Errorf("expected 1 contributor, got %v", resp.Contributors)
	}
}

func TestStaleResultDiscarded(t *testing.T) {
	stale := &stubResponder{name: "stale", domain: responder.DomainKnowledge, text: "old", confidence: 0.9, staleTurn: 1}
	sup := newTestSupervisor(t, &stubClassifier{targets: targets("stale")}, Config{TaskTimeout: time.Second}, stale)

	resp := sup.ProcessTurn(context.Background(), responder.NewUtterance("q", 2), session.Snapshot{})

	if !resp.Escalate {
		t.Error("expected escalation when the only result is stale")
	}
	if resp.Text != fallbackText {
		t.Errorf("expected fallback text, got %q", resp.Text)
	}
}

func TestAllFailedForcesEscalation(t *testing.T) {
	a := &stubResponder{name: "a", domain: responder.DomainTickets, err: errors.New("boom")}
	b := &stubResponder{name: "b", domain: responder.DomainKnowledge, err: errors.New("boom")}
	sup := newTestSupervisor(t, &stubClassifier{targets: targets("a", "b")}, Config{TaskTimeout: time.Second}, a, b)

	resp := sup.ProcessTurn(context.Background(), responder.NewUtterance("q", 1), session.Snapshot{})

	if !resp.Escalate {
		t.Fatal("expected escalation when all responders fail")
	}
	if resp.EscalationReason != escalation.ReasonAgentFailure {
		t.Errorf("expected agent_failure reason, got %s", resp.EscalationReason)
	}
	if resp.Text != fallbackText {
		t.Errorf("expected fallback text, got %q", resp.Text)
	}
}

func TestAllTimedOutReason(t *testing.T) {
	slow := &stubResponder{name: "slow", domain: responder.DomainKnowledge, text: "x", confidence: 0.9, delay: time.Second}
	sup := newTestSupervisor(t, &stubClassifier{targets: targets("slow")},
		Config{TaskTimeout: 30 * time.Millisecond}, slow)

	resp := sup.ProcessTurn(context.Background(), responder.NewUtterance("q", 1), session.Snapshot{})

	if resp.EscalationReason != escalation.ReasonAgentTimeout {
		t.Errorf("expected agent_timeout reason, got %s", resp.EscalationReason)
	}
}

func TestLowConfidenceEscalates(t *testing.T) {
	r := &stubResponder{name: "a", domain: responder.DomainKnowledge, text: "hedge", confidence: 0.3}
	sup := newTestSupervisor(t, &stubClassifier{targets: targets("a")}, Config{EscalationThreshold: 0.6}, r)

	resp := sup.ProcessTurn(context.Background(), responder.NewUtterance("q", 1), session.Snapshot{})

	if !resp.Escalate {
		t.Fatal("expected escalation below threshold")
	}
	if resp.EscalationReason != escalation.ReasonLowConfidence {
		t.Errorf("expected low_confidence reason, got %s", resp.EscalationReason)
	}
	// Partial answer is still delivered alongside the flag.
	if resp.Text != "hedge" {
		t.Errorf("expected partial answer to survive, got %q", resp.Text)
	}
}

func TestOverridePhraseEscalates(t *testing.T) {
	r := &stubResponder{name: "a", domain: responder.DomainKnowledge, text: "fine", confidence: 0.95}
	sup := newTestSupervisor(t, &stubClassifier{targets: targets("a")},
		Config{OverridePhrases: []string{"human"}}, r)

	resp := sup.ProcessTurn(context.Background(), responder.NewUtterance("let me talk to a human please", 1), session.Snapshot{})

	if !resp.Escalate {
		t.Fatal("expected escalation on override phrase")
	}
	if resp.EscalationReason != escalation.ReasonExplicitRequest {
		t.Errorf("expected explicit_request reason, got %s", resp.EscalationReason)
	}
}

func TestOverridePhraseWordBoundary(t *testing.T) {
	r := &stubResponder{name: "a", domain: responder.DomainKnowledge, text: "fine", confidence: 0.95}
	sup := newTestSupervisor(t, &stubClassifier{targets: targets("a")},
		Config{OverridePhrases: []string{"agent"}}, r)

	resp := sup.ProcessTurn(context.Background(), responder.NewUtterance("is the deployment agentless", 1), session.Snapshot{})

	if resp.Escalate {
		t.Error("substring inside a longer word must not trigger escalation")
	}
}

func TestMergeOverlappingClaims(t *testing.T) {
	auth := &stubResponder{
		name: "tickets", domain: responder.DomainTickets,
		text:       "Ticket TKT-001 is in progress.",
		fields:     map[string]string{"ticket_status": "in_progress"},
		confidence: 0.95,
	}
	narrative := &stubResponder{
		name: "knowledge", domain: responder.DomainKnowledge,
		text:       "The ticket appears resolved.",
		fields:     map[string]string{"ticket_status": "resolved"},
		confidence: 0.7,
	}
	sup := newTestSupervisor(t, &stubClassifier{targets: targets("knowledge", "tickets")},
		Config{TaskTimeout: time.Second}, auth, narrative)

	resp := sup.ProcessTurn(context.Background(), responder.NewUtterance("q", 1), session.Snapshot{})

	// The authoritative claim wins; the contradicting text is dropped.
	if !strings.Contains(resp.Text, "in progress") {
		t.Errorf("expected authoritative text, got %q", resp.Text)
	}
	if strings.Contains(resp.Text, "appears resolved") {
		t.Errorf("overridden claim leaked into text: %q", resp.Text)
	}
	// Overlap takes the minimum of contributing confidences.
	if resp.Confidence != 0.7 {
		t.Errorf("expected min confidence 0.7, got %v", resp.Confidence)
	}
}

func TestMergeDisjointTopics(t *testing.T) {
	a := &stubResponder{
		name: "tickets", domain: responder.DomainTickets,
		text:       "Ticket TKT-001 is open.",
		fields:     map[string]string{"ticket_status": "open"},
		confidence: 0.9,
	}
	b := &stubResponder{
		name: "knowledge", domain: responder.DomainKnowledge,
		text:       "Offline mode is enabled under settings.",
		fields:     map[string]string{"sources": "kb/mobile.md"},
		confidence: 0.75,
	}
	sup := newTestSupervisor(t, &stubClassifier{targets: targets("tickets", "knowledge")},
		Config{TaskTimeout: time.Second}, a, b)

	resp := sup.ProcessTurn(context.Background(), responder.NewUtterance("q", 1), session.Snapshot{})

	if !strings.Contains(resp.Text, "TKT-001") || !strings.Contains(resp.Text, "ffline mode") {
		t.Errorf("expected both answers concatenated, got %q", resp.Text)
	}
	// Disjoint topics take the maximum.
	if resp.Confidence != 0.9 {
		t.Errorf("expected max confidence 0.9, got %v", resp.Confidence)
	}
	if len(resp.Contributors) != 2 {
		t.Errorf("expected 2 contributors, got %v", resp.Contributors)
	}
}

func TestConfidenceClamped(t *testing.T) {
	r := &stubResponder{name: "a", domain: responder.DomainKnowledge, text: "x", confidence: 1.7}
	sup := newTestSupervisor(t, &stubClassifier{targets: targets("a")}, Config{}, r)

	resp := sup.ProcessTurn(context.Background(), responder.NewUtterance("q", 1), session.Snapshot{})

	if resp.Confidence != 1 {
		t.Errorf("expected confidence clamped to 1, got %v", resp.Confidence)
	}
}

func TestUnknownTargetSkipped(t *testing.T) {
	r := &stubResponder{name: "a", domain: responder.DomainKnowledge, text: "x", confidence: 0.9}
	sup := newTestSupervisor(t, &stubClassifier{targets: targets("a", "ghost")}, Config{}, r)

	resp := sup.ProcessTurn(context.Background(), responder.NewUtterance("q", 1), session.Snapshot{})

	if resp.Text != "x" {
		t.Errorf("expected the registered responder's answer, got %q", resp.Text)
	}
}
