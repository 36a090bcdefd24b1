package cmd

import (
	"fmt"
	"os"

	"github.com/ziadkadry99/voicedesk/internal/config"
	"github.com/ziadkadry99/voicedesk/internal/embeddings"
	"github.com/ziadkadry99/voicedesk/internal/knowledge"
	"github.com/ziadkadry99/voicedesk/internal/responder"
	"github.com/ziadkadry99/voicedesk/internal/smalltalk"
	"github.com/ziadkadry99/voicedesk/internal/tickets"
)

// createEmbedderFromConfig builds the embedder for the configured provider.
// Returns nil without error when the provider needs an API key that is not
// set, so callers can degrade gracefully.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, nil
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(cfg.EmbeddingModel)), nil
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(cfg.OllamaHost, cfg.EmbeddingModel), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.EmbeddingProvider)
	}
}

// buildRegistry registers the standard responder set. The knowledge store
// may be nil, in which case only tickets and conversation are available.
func buildRegistry(ticketStore *tickets.Store, kbStore *knowledge.Store) (*responder.Registry, error) {
	registry := responder.NewRegistry()

	if err := registry.Register(tickets.NewResponder(ticketStore)); err != nil {
		return nil, err
	}
	if kbStore != nil {
		if err := registry.Register(knowledge.NewResponder(kbStore)); err != nil {
			return nil, err
		}
	}
	if err := registry.Register(smalltalk.NewResponder()); err != nil {
		return nil, err
	}
	return registry, nil
}
