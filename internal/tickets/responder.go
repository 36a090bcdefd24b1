package tickets

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ziadkadry99/voicedesk/internal/responder"
	"github.com/ziadkadry99/voicedesk/internal/session"
)

// ticketIDPattern matches spoken or typed ticket references like
// "TKT-001", "tkt 12" or "IT-4821".
var ticketIDPattern = regexp.MustCompile(`(?i)\b(tkt|it)[\s-]*(\d{1,6})\b`)

// confidence levels for ticket answers, matching how certain a structured
// lookup actually is.
const (
	confidenceDirectHit  = 0.95
	confidenceMiss       = 0.1
	confidenceSearchHit  = 0.75
	confidenceSearchMiss = 0.2
)

// stopwords excluded from keyword extraction for ticket searches.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "about": true,
	"for": true, "is": true, "me": true, "my": true, "of": true,
	"show": true, "status": true, "the": true, "there": true,
	"ticket": true, "tickets": true, "what": true, "whats": true,
	"related": true, "any": true, "to": true, "find": true,
}

// Responder answers queries about support tickets from the SQLite store.
// It is authoritative for structured ticket fields during aggregation.
type Responder struct {
	store *Store
}

// NewResponder creates the ticket responder.
func NewResponder(store *Store) *Responder {
	return &Responder{store: store}
}

func (r *Responder) Name() string             { return "tickets" }
func (r *Responder) Domain() responder.Domain { return responder.DomainTickets }

func (r *Responder) Handle(ctx context.Context, utt responder.Utterance, snap session.Snapshot) responder.Result {
	start := time.Now()
	res := responder.Result{
		Responder: r.Name(),
		Domain:    r.Domain(),
		Turn:      utt.Turn,
	}

	if id := ParseTicketID(utt.Text); id != "" {
		r.lookup(ctx, id, &res)
	} else {
		r.search(ctx, utt.Text, &res)
	}

	res.Latency = time.Since(start)
	return res
}

func (r *Responder) lookup(ctx context.Context, id string, res *responder.Result) {
	t, err := r.store.Get(ctx, id)
	if err != nil {
		res.Err = fmt.Errorf("ticket lookup %s: %w", id, err)
		return
	}
	if t == nil {
		res.Text = fmt.Sprintf("I couldn't find a ticket with ID %s.", id)
		res.Confidence = confidenceMiss
		return
	}

	res.Text = describeTicket(t)
	res.Confidence = confidenceDirectHit
	res.Fields = map[string]string{
		"ticket_id":     t.ID,
		"ticket_status": t.Status,
		"assigned_team": t.AssignedTeam,
	}
}

func (r *Responder) search(ctx context.Context, query string, res *responder.Result) {
	keywords := extractKeywords(query)
	found, err := r.store.Search(ctx, keywords, "", "", 5)
	if err != nil {
		res.Err = fmt.Errorf("ticket search: %w", err)
		return
	}
	if len(found) == 0 {
		res.Text = "I didn't find any tickets matching that."
		res.Confidence = confidenceSearchMiss
		return
	}

	var parts []string
	for _, t := range found {
		parts = append(parts, fmt.Sprintf("%s (%s, %s)", t.ID, t.Title, spokenStatus(t.Status)))
	}
	if len(found) == 1 {
		res.Text = "I found one related ticket: " + parts[0] + "."
	} else {
		res.Text = fmt.Sprintf("I found %d related tickets: %s.", len(found), strings.Join(parts, "; "))
	}
	res.Confidence = confidenceSearchHit
}

// ParseTicketID extracts and normalizes a ticket reference from text,
// returning "" when none is present. "tkt 1" becomes "TKT-001".
func ParseTicketID(text string) string {
	m := ticketIDPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	prefix := strings.ToUpper(m[1])
	num := m[2]
	for len(num) < 3 {
		num = "0" + num
	}
	return prefix + "-" + num
}

func describeTicket(t *Ticket) string {
	desc := fmt.Sprintf("Ticket %s, %s, is currently %s", t.ID, t.Title, spokenStatus(t.Status))
	if t.AssignedTeam != "" {
		desc += " and assigned to the " + t.AssignedTeam + " team"
	}
	desc += "."
	if t.Status == "resolved" && t.Resolution != "" {
		desc += " Resolution: " + t.Resolution
	}
	return desc
}

func spokenStatus(status string) string {
	return strings.ReplaceAll(status, "_", " ")
}

func extractKeywords(query string) []string {
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, ".,!?;:\"'")
		if len(word) < 3 || stopwords[word] {
			continue
		}
		keywords = append(keywords, word)
	}
	return keywords
}
