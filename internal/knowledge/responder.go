package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ziadkadry99/voicedesk/internal/responder"
	"github.com/ziadkadry99/voicedesk/internal/session"
)

const (
	// relevanceThreshold is the minimum similarity for an article to be
	// considered an actual answer rather than a vague match.
	relevanceThreshold = 0.7

	searchLimit    = 5
	maxAnswerParts = 3
)

// Responder answers questions from the knowledge base via vector search.
type Responder struct {
	store *Store
}

// NewResponder creates the knowledge responder.
func NewResponder(store *Store) *Responder {
	return &Responder{store: store}
}

func (r *Responder) Name() string             { return "knowledge" }
func (r *Responder) Domain() responder.Domain { return responder.DomainKnowledge }

func (r *Responder) Handle(ctx context.Context, utt responder.Utterance, snap session.Snapshot) responder.Result {
	start := time.Now()
	res := responder.Result{
		Responder: r.Name(),
		Domain:    r.Domain(),
		Turn:      utt.Turn,
	}
	defer func() { res.Latency = time.Since(start) }()

	results, err := r.store.Search(ctx, utt.Text, searchLimit)
	if err != nil {
		res.Err = fmt.Errorf("knowledge search: %w", err)
		return res
	}

	relevant := results[:0:0]
	for _, sr := range results {
		if sr.Relevance >= relevanceThreshold {
			relevant = append(relevant, sr)
		}
	}

	if len(relevant) == 0 {
		res.Text = "I couldn't find anything in the knowledge base about that."
		if len(results) > 0 {
			res.Confidence = float64(results[0].Relevance) * 0.5
		} else {
			res.Confidence = 0.1
		}
		return res
	}

	if len(relevant) > maxAnswerParts {
		relevant = relevant[:maxAnswerParts]
	}

	var parts []string
	sources := map[string]bool{}
	for _, sr := range relevant {
		parts = append(parts, sr.Article.Content)
		if sr.Article.Source != "" {
			sources[sr.Article.Source] = true
		}
	}

	res.Text = strings.Join(parts, " ")
	res.Confidence = float64(relevant[0].Relevance)
	if len(sources) > 0 {
		res.Fields = map[string]string{"sources": joinSources(sources)}
	}
	return res
}

func joinSources(set map[string]bool) string {
	names := make([]string, 0, len(set))
	for s := range set {
		names = append(names, s)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
