package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ziadkadry99/voicedesk/internal/embeddings"
	"github.com/ziadkadry99/voicedesk/internal/responder"
	"github.com/ziadkadry99/voicedesk/internal/session"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(embeddings.NewLocalEmbedder())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestAddAndSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.AddArticles(ctx, SampleArticles); err != nil {
		t.Fatalf("AddArticles: %v", err)
	}
	if store.Count() != len(SampleArticles) {
		t.Fatalf("expected %d articles, got %d", len(SampleArticles), store.Count())
	}

	// Querying with an article's own content must rank it first.
	results, err := store.Search(ctx, SampleArticles[0].Content, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].Article.ID != SampleArticles[0].ID {
		t.Errorf("expected %s first, got %s", SampleArticles[0].ID, results[0].Article.ID)
	}
	if results[0].Relevance < 0.99 {
		t.Errorf("expected near-perfect relevance for identical text, got %v", results[0].Relevance)
	}
	if results[0].Article.Title != SampleArticles[0].Title {
		t.Errorf("metadata lost: %+v", results[0].Article)
	}
}

func TestSearchEmptyStore(t *testing.T) {
	store := newTestStore(t)

	results, err := store.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results != nil {
		t.Errorf("expected no results from an empty store, got %v", results)
	}
}

func TestPersistAndLoad(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store := newTestStore(t)
	if err := store.AddArticles(ctx, SampleArticles[:2]); err != nil {
		t.Fatalf("AddArticles: %v", err)
	}
	if err := store.Persist(dir); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	fresh := newTestStore(t)
	if err := fresh.Load(dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fresh.Count() != 2 {
		t.Errorf("expected 2 articles after load, got %d", fresh.Count())
	}
}

func TestResponderAnswersFromIndex(t *testing.T) {
	store := newTestStore(t)
	if err := store.AddArticles(context.Background(), SampleArticles); err != nil {
		t.Fatalf("AddArticles: %v", err)
	}
	r := NewResponder(store)

	// Identical text guarantees relevance above the answer threshold.
	utt := responder.NewUtterance(SampleArticles[1].Content, 4)
	res := r.Handle(context.Background(), utt, session.Snapshot{})

	if res.Err != nil {
		t.Fatalf("Handle: %v", res.Err)
	}
	if !strings.Contains(res.Text, "offline mode") {
		t.Errorf("expected the offline mode article in the answer, got %q", res.Text)
	}
	if res.Confidence < 0.7 {
		t.Errorf("expected confidence above threshold, got %v", res.Confidence)
	}
	if res.Turn != 4 {
		t.Errorf("result not tagged with turn: %d", res.Turn)
	}
	if !strings.Contains(res.Fields["sources"], "kb/mobile.md") {
		t.Errorf("expected source attribution, got %v", res.Fields)
	}
}

func TestResponderLowRelevance(t *testing.T) {
	store := newTestStore(t)
	if err := store.AddArticles(context.Background(), SampleArticles); err != nil {
		t.Fatalf("AddArticles: %v", err)
	}
	r := NewResponder(store)

	res := r.Handle(context.Background(), responder.NewUtterance("zebra xylophone quantum", 1), session.Snapshot{})

	if res.Confidence >= 0.7 {
		t.Errorf("expected low confidence for an unrelated query, got %v", res.Confidence)
	}
	if !strings.Contains(res.Text, "couldn't find") {
		t.Errorf("expected a no-answer reply, got %q", res.Text)
	}
}

func TestLoadMarkdownDir(t *testing.T) {
	dir := t.TempDir()
	content := `# Printer Setup

Connect the printer over USB and install the vendor driver.

## Network Printing

Add the printer by IP under system settings. Use the Infrastructure
team's print server for shared queues.
`
	if err := os.WriteFile(filepath.Join(dir, "printers.md"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not markdown"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	articles, err := LoadMarkdownDir(dir)
	if err != nil {
		t.Fatalf("LoadMarkdownDir: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles (one per section), got %d", len(articles))
	}
	if articles[0].Title != "Printer Setup" {
		t.Errorf("expected first section title, got %q", articles[0].Title)
	}
	if !strings.Contains(articles[1].Content, "print server") {
		t.Errorf("second section content wrong: %q", articles[1].Content)
	}
	if articles[0].Source != "printers.md" {
		t.Errorf("expected relative source path, got %q", articles[0].Source)
	}
}

func TestSplitChunks(t *testing.T) {
	sentence := "This is a sentence about something. "
	long := strings.Repeat(sentence, 40)

	chunks := splitChunks(strings.TrimSpace(long), 200)
	if len(chunks) < 2 {
		t.Fatalf("expected long content split into chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 240 {
			t.Errorf("chunk %d exceeds bound: %d chars", i, len(c))
		}
	}
}
