// Package supervisor routes each utterance to responders, fans out the
// dispatched calls concurrently under per-task deadlines, and aggregates
// the results into a single confidence-scored reply.
package supervisor

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/ziadkadry99/voicedesk/internal/escalation"
	"github.com/ziadkadry99/voicedesk/internal/intent"
	"github.com/ziadkadry99/voicedesk/internal/responder"
	"github.com/ziadkadry99/voicedesk/internal/session"
)

// collectGrace is how long past the task deadline the collect loop waits
// for in-flight goroutines to report cancellation before giving up.
const collectGrace = 250 * time.Millisecond

const fallbackText = "I'm sorry, I'm having trouble finding that right now. Let me get a human agent to help you."

// Classifier is the routing decision source. Implemented by intent.Classifier.
type Classifier interface {
	Classify(ctx context.Context, utterance string, snap session.Snapshot) intent.Decision
}

// Config tunes dispatch deadlines and escalation behavior.
type Config struct {
	TaskTimeout         time.Duration
	EscalationThreshold float64
	OverridePhrases     []string
}

// Response is the aggregated outcome of one turn.
type Response struct {
	Text             string
	Confidence       float64
	Escalate         bool
	EscalationReason escalation.Reason
	Contributors     []string
	Turn             int
	Intent           intent.Type
}

// Supervisor coordinates classification, fan-out, and aggregation.
type Supervisor struct {
	registry   *responder.Registry
	classifier Classifier
	cfg        Config
}

// New creates a supervisor over the given responder registry.
func New(registry *responder.Registry, classifier Classifier, cfg Config) *Supervisor {
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 3 * time.Second
	}
	if cfg.EscalationThreshold <= 0 {
		cfg.EscalationThreshold = 0.6
	}
	return &Supervisor{registry: registry, classifier: classifier, cfg: cfg}
}

// ProcessTurn runs the full routing pipeline for one utterance. It never
// returns an error: every failure mode degrades to a fallback response,
// possibly with the escalation flag set.
func (s *Supervisor) ProcessTurn(ctx context.Context, utt responder.Utterance, snap session.Snapshot) *Response {
	decision := s.classifier.Classify(ctx, utt.Text, snap)

	results, timedOut := s.dispatch(ctx, decision.Targets, utt, snap)

	resp := s.aggregate(results, timedOut, utt)
	resp.Turn = utt.Turn
	resp.Intent = decision.Intent

	// Override phrases escalate regardless of how well the turn went.
	if s.containsOverride(utt.Text) {
		resp.Escalate = true
		resp.EscalationReason = escalation.ReasonExplicitRequest
	}

	return resp
}

// dispatch fans the utterance out to every target concurrently, each under
// its own deadline, and collects results tagged for this turn. Late or
// stale results are discarded.
// ordered pairs a result with its routing priority for merge ordering.
type ordered struct {
	res      responder.Result
	priority int
}

func (s *Supervisor) dispatch(ctx context.Context, targets []intent.Target, utt responder.Utterance, snap session.Snapshot) ([]responder.Result, bool) {
	ch := make(chan ordered, len(targets))
	dispatched := 0

	for _, target := range targets {
		r, ok := s.registry.Lookup(target.Name)
		if !ok {
			log.Printf("supervisor: no responder registered for %q, skipping", target.Name)
			continue
		}
		dispatched++

		go func(r responder.Responder, priority int) {
			taskCtx, cancel := context.WithTimeout(ctx, s.cfg.TaskTimeout)
			defer cancel()

			res := r.Handle(taskCtx, utt, snap)
			if res.Err == nil && taskCtx.Err() != nil {
				res.Err = taskCtx.Err()
			}
			ch <- ordered{res: res, priority: priority}
		}(r, target.Priority)
	}

	if dispatched == 0 {
		return nil, false
	}

	backstop := time.NewTimer(s.cfg.TaskTimeout + collectGrace)
	defer backstop.Stop()

	var collected []ordered
	timedOut := false
	for received := 0; received < dispatched; {
		select {
		case o := <-ch:
			received++
			if o.res.Turn != utt.Turn {
				log.Printf("supervisor: discarding stale result from %s (turn %d, current %d)",
					o.res.Responder, o.res.Turn, utt.Turn)
				continue
			}
			if o.res.Err != nil {
				if errors.Is(o.res.Err, context.DeadlineExceeded) {
					timedOut = true
					log.Printf("supervisor: %s timed out after %s", o.res.Responder, s.cfg.TaskTimeout)
				} else {
					log.Printf("supervisor: %s failed: %v", o.res.Responder, o.res.Err)
				}
				continue
			}
			collected = append(collected, o)
		case <-backstop.C:
			timedOut = true
			log.Printf("supervisor: collect deadline elapsed with %d/%d results", received, dispatched)
			received = dispatched
		}
	}

	// Authoritative and higher-priority results merge first.
	for i := 1; i < len(collected); i++ {
		for j := i; j > 0 && mergeBefore(collected[j], collected[j-1]); j-- {
			collected[j], collected[j-1] = collected[j-1], collected[j]
		}
	}

	results := make([]responder.Result, len(collected))
	for i, o := range collected {
		results[i] = o.res
		results[i].Confidence = clamp(results[i].Confidence)
	}
	return results, timedOut
}

func mergeBefore(a, b ordered) bool {
	aAuth, bAuth := a.res.Domain.Authoritative(), b.res.Domain.Authoritative()
	if aAuth != bAuth {
		return aAuth
	}
	return a.priority < b.priority
}

func (s *Supervisor) containsOverride(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range s.cfg.OverridePhrases {
		if containsWord(lower, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// containsWord reports whether phrase occurs in text on word boundaries,
// so "agent" does not match "agentless".
func containsWord(text, phrase string) bool {
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

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
