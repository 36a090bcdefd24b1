package knowledge

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/voicedesk/internal/embeddings"
)

const collectionName = "knowledge"

// Store holds knowledge base articles in an in-memory vector index backed
// by chromem-go, with gob export for persistence between runs.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc
}

// NewStore creates an empty knowledge store using the given embedder.
func NewStore(embedder embeddings.Embedder) (*Store, error) {
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &Store{
		db:         db,
		collection: col,
		embedFunc:  ef,
	}, nil
}

// AddArticles embeds and indexes the given articles.
func (s *Store) AddArticles(ctx context.Context, articles []Article) error {
	if len(articles) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(articles))
	for i, a := range articles {
		docs[i] = chromem.Document{
			ID:      a.ID,
			Content: a.Content,
			Metadata: map[string]string{
				"title":  a.Title,
				"source": a.Source,
			},
		}
	}

	return s.collection.AddDocuments(ctx, docs, 1)
}

// Search returns the articles most relevant to the query, best first.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}

	// chromem-go requires nResults <= collection size.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := s.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{
			Article: Article{
				ID:      r.ID,
				Content: r.Content,
				Title:   r.Metadata["title"],
				Source:  r.Metadata["source"],
			},
			Relevance: r.Similarity,
		}
	}

	return out, nil
}

// Count returns the number of indexed articles.
func (s *Store) Count() int {
	return s.collection.Count()
}

// Persist exports the index to dir for later reuse.
func (s *Store) Persist(dir string) error {
	return s.db.ExportToFile(dir+"/chromem.gob.gz", true, "")
}

// Load imports a previously persisted index from dir.
func (s *Store) Load(dir string) error {
	if err := s.db.ImportFromFile(dir+"/chromem.gob.gz", ""); err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	col := s.db.GetCollection(collectionName, s.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	s.collection = col
	return nil
}
