package supervisor

import (
	"strings"

	"github.com/ziadkadry99/voicedesk/internal/escalation"
	"github.com/ziadkadry99/voicedesk/internal/responder"
)

// transitions join disjoint answers from different responders.
var transitions = []string{
	"Also, ",
	"On a related note, ",
	"Additionally, ",
}

// aggregate merges successful results into one response. With no results the
// turn falls back to a canned reply and forces escalation.
func (s *Supervisor) aggregate(results []responder.Result, timedOut bool, utt responder.Utterance) *Response {
	if len(results) == 0 {
		reason := escalation.ReasonAgentFailure
		if timedOut {
			reason = escalation.ReasonAgentTimeout
		}
		return &Response{
			Text:             fallbackText,
			Confidence:       0,
			Escalate:         true,
			EscalationReason: reason,
		}
	}

	resp := &Response{}
	if len(results) == 1 {
		resp.Text = results[0].Text
		resp.Confidence = results[0].Confidence
		resp.Contributors = []string{results[0].Responder}
	} else {
		s.merge(resp, results)
	}

	if resp.Confidence < s.cfg.EscalationThreshold {
		resp.Escalate = true
		resp.EscalationReason = escalation.ReasonLowConfidence
	}
	return resp
}

// merge combines multiple results. Results arrive authoritative-first; when
// a later result claims fields the authoritative one already answered, the
// overlapping claim is dropped and confidence takes the minimum of the pair.
// Fully disjoint answers are concatenated and confidence takes the maximum.
func (s *Supervisor) merge(resp *Response, results []responder.Result) {
	primary := results[0]
	resp.Text = primary.Text
	resp.Confidence = primary.Confidence
	resp.Contributors = []string{primary.Responder}

	claimed := map[string]bool{}
	for k := range primary.Fields {
		claimed[k] = true
	}

	transition := 0
	for _, r := range results[1:] {
		overlap := false
		extra := false
		for k := range r.Fields {
			if claimed[k] {
				overlap = true
			} else {
				extra = true
			}
		}

		if overlap {
			// Overlapping claims are only as trustworthy as the weakest source.
			if r.Confidence < resp.Confidence {
				resp.Confidence = r.Confidence
			}
			if !extra {
				// Everything this result claimed was already answered by a
				// higher-priority responder; its text would only contradict.
				resp.Contributors = append(resp.Contributors, r.Responder)
				continue
			}
		} else {
			if r.Confidence > resp.Confidence {
				resp.Confidence = r.Confidence
			}
		}

		if text := strings.TrimSpace(r.Text); text != "" {
			resp.Text = joinWithTransition(resp.Text, text, transitions[transition%len(transitions)])
			transition++
		}
		resp.Contributors = append(resp.Contributors, r.Responder)
		for k := range r.Fields {
			claimed[k] = true
		}
	}
}

func joinWithTransition(base, addition, transition string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return addition
	}
	if !strings.HasSuffix(base, ".") && !strings.HasSuffix(base, "!") && !strings.HasSuffix(base, "?") {
		base += "."
	}
	return base + " " + transition + lowerFirst(addition)
}

// lowerFirst downcases the leading letter unless the sentence starts with
// something that looks like a proper noun or an ID.
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	if len(s) > 1 && s[1] >= 'A' && s[1] <= 'Z' {
		return s
	}
	if s[0] >= 'A' && s[0] <= 'Z' && (s[0] != 'I' || (len(s) > 1 && s[1] != ' ' && s[1] != '\'')) {
		return string(s[0]+'a'-'A') + s[1:]
	}
	return s
}
