package llm

import (
	"fmt"
	"os"

	"github.com/ziadkadry99/voicedesk/internal/config"
)

// NewFromConfig builds a Provider from the configuration. The API key is
// read from the provider's conventional environment variable.
func NewFromConfig(cfg *config.Config) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		return NewOpenAIProvider(apiKey, cfg.Model), nil
	case config.ProviderOllama:
		return NewOllamaProvider(cfg.OllamaHost, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
