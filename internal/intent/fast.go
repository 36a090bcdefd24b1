package intent

import (
	"regexp"
	"strings"

	"github.com/ziadkadry99/voicedesk/internal/session"
	"github.com/ziadkadry99/voicedesk/internal/tickets"
)

// Fast-path rules handle the common utterance shapes without a reasoning
// call. Confidence values reflect how unambiguous each pattern is.

var (
	greetingPattern = regexp.MustCompile(`(?i)^\s*(hi|hello|hey|good\s+(morning|afternoon|evening))\b`)

	escalationPattern = regexp.MustCompile(`(?i)\b(speak|talk)\s+(to|with)\s+(a\s+)?(human|person|agent|someone|representative)|\b(human\s+agent|real\s+person)\b`)

	ticketPattern = regexp.MustCompile(`(?i)\b(ticket|tkt|incident|my\s+request)\b|\b(tkt|it)[\s-]*\d`)

	knowledgePattern = regexp.MustCompile(`(?i)\b(how\s+(do|can|to)|what\s+(is|are)|where|why|reset|configure|install|setup|set\s+up|troubleshoot|documentation|guide)\b`)

	followupPattern = regexp.MustCompile(`(?i)^\s*(what\s+about|and|also|how\s+about|it|that\s+one|the\s+same)\b`)
)

// classifyFast applies the rule tables and returns a Decision, or false when
// no rule is confident enough and the reasoning call should decide.
func classifyFast(utterance string, snap session.Snapshot) (Decision, bool) {
	lower := strings.ToLower(utterance)

	if greetingPattern.MatchString(lower) && len(strings.Fields(lower)) <= 6 {
		return Decision{
			Intent:     TypeGreeting,
			Targets:    targetsFor(TypeGreeting),
			Confidence: 0.95,
			Reasoning:  "greeting pattern",
		}, true
	}

	if escalationPattern.MatchString(lower) {
		return Decision{
			Intent:     TypeEscalation,
			Targets:    targetsFor(TypeEscalation),
			Confidence: 0.90,
			Reasoning:  "explicit escalation request",
		}, true
	}

	isTicket := ticketPattern.MatchString(lower)
	isKnowledge := knowledgePattern.MatchString(lower)

	switch {
	case isTicket && isKnowledge:
		d := Decision{
			Intent:     TypeMixedQuery,
			Targets:    targetsFor(TypeMixedQuery),
			Confidence: 0.80,
			Reasoning:  "ticket and knowledge patterns both matched",
		}
		if id := tickets.ParseTicketID(utterance); id != "" {
			d.Entities = map[string]string{"ticket_id": id}
		}
		return d, true
	case isTicket:
		d := Decision{
			Intent:     TypeTicketQuery,
			Targets:    targetsFor(TypeTicketQuery),
			Confidence: 0.85,
			Reasoning:  "ticket pattern",
		}
		if id := tickets.ParseTicketID(utterance); id != "" {
			d.Entities = map[string]string{"ticket_id": id}
		}
		return d, true
	case isKnowledge:
		return Decision{
			Intent:     TypeKnowledgeQuery,
			Targets:    targetsFor(TypeKnowledgeQuery),
			Confidence: 0.85,
			Reasoning:  "knowledge pattern",
		}, true
	}

	// Short continuations stick with whoever answered last.
	if followupPattern.MatchString(lower) && snap.LastResponder != "" {
		return Decision{
			Intent:     TypeFollowup,
			Targets:    []Target{{Name: snap.LastResponder, Priority: 1}},
			Confidence: 0.75,
			Reasoning:  "followup to " + snap.LastResponder,
		}, true
	}

	return Decision{}, false
}
