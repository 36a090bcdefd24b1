package config

import "time"

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// Config is the top-level voicedesk configuration, corresponding to .voicedesk.yml.
type Config struct {
	Server            ServerConfig       `yaml:"server" koanf:"server"`
	DataDir           string             `yaml:"data_dir" koanf:"data_dir"`
	Provider          ProviderType       `yaml:"provider" koanf:"provider"`
	Model             string             `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType       `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string             `yaml:"embedding_model" koanf:"embedding_model"`
	OllamaHost        string             `yaml:"ollama_host" koanf:"ollama_host"`
	Orchestrator      OrchestratorConfig `yaml:"orchestrator" koanf:"orchestrator"`
	Interruption      InterruptionConfig `yaml:"interruption" koanf:"interruption"`
	Session           SessionConfig      `yaml:"session" koanf:"session"`
}

// ServerConfig holds HTTP/WebSocket server settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// OrchestratorConfig controls routing, aggregation and escalation.
type OrchestratorConfig struct {
	TaskTimeout         time.Duration `yaml:"task_timeout" koanf:"task_timeout"`
	ClassifyTimeout     time.Duration `yaml:"classify_timeout" koanf:"classify_timeout"`
	FillerDelay         time.Duration `yaml:"filler_delay" koanf:"filler_delay"`
	EscalationThreshold float64       `yaml:"escalation_threshold" koanf:"escalation_threshold"`
	OverridePhrases     []string      `yaml:"override_phrases" koanf:"override_phrases"`
}

// InterruptionConfig controls barge-in detection during playback.
type InterruptionConfig struct {
	WordThreshold int           `yaml:"word_threshold" koanf:"word_threshold"`
	MinConfidence float64       `yaml:"min_confidence" koanf:"min_confidence"`
	PollInterval  time.Duration `yaml:"poll_interval" koanf:"poll_interval"`
}

// SessionConfig controls session memory retention.
type SessionConfig struct {
	IdleTimeout time.Duration `yaml:"idle_timeout" koanf:"idle_timeout"`
	MaxHistory  int           `yaml:"max_history" koanf:"max_history"`
}
