package config

import "time"

// DefaultOverridePhrases are phrases that force escalation regardless of
// how the utterance was classified.
var DefaultOverridePhrases = []string{
	"escalate",
	"human",
	"agent",
	"person",
	"representative",
	"supervisor",
	"manager",
	"speak to someone",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		DataDir:           "./data",
		Provider:          ProviderOpenAI,
		Model:             "gpt-4o-mini",
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    "text-embedding-3-small",
		OllamaHost:        "http://localhost:11434",
		Orchestrator: OrchestratorConfig{
			TaskTimeout:         3 * time.Second,
			ClassifyTimeout:     2 * time.Second,
			FillerDelay:         2 * time.Second,
			EscalationThreshold: 0.6,
			OverridePhrases:     DefaultOverridePhrases,
		},
		Interruption: InterruptionConfig{
			WordThreshold: 3,
			MinConfidence: 0.7,
			PollInterval:  100 * time.Millisecond,
		},
		Session: SessionConfig{
			IdleTimeout: 10 * time.Minute,
			MaxHistory:  50,
		},
	}
}
