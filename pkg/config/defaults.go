package config

import (
	"github.com/papercomputeco/ideas/pkg/llm"
)

// Allowed values of the enumerated keys.
var (
	ProviderNames   = []string{"openai", "anthropic", "ollama", "script"}
	AuthModes       = []string{"hs256", "jwks", "oidc"}
	StorageDrivers  = []string{"memory", "sqlite", "postgres"}
	EventPublishers = []string{"nop", "kafka"}
)

const (
	defaultListen    = ":8080"
	defaultWorkers   = 3
	defaultQueueSize = 256

	defaultProvider = "openai"
	defaultUpstream = "https://api.openai.com"

	defaultAuthMode = "hs256"

	defaultStorageDriver = "memory"

	defaultPublisher = "nop"
	defaultTopic     = "ideas.generated"

	defaultClientTarget  = "http://localhost:8080"
	defaultRetryInterval = "3s"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	agent := llm.DefaultAgent()

	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen:    defaultListen,
			Workers:   defaultWorkers,
			QueueSize: defaultQueueSize,
		},
		Agent: AgentConfig{
			Name:         agent.Name,
			Model:        agent.Model,
			Instructions: agent.Instructions,
			Prompt:       llm.DefaultPrompt,
		},
		Upstream: UpstreamConfig{
			Provider: defaultProvider,
			URL:      defaultUpstream,
		},
		Auth: AuthConfig{
			Mode: defaultAuthMode,
		},
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		Events: EventsConfig{
			Publisher: defaultPublisher,
			Topic:     defaultTopic,
		},
		Client: ClientConfig{
			Target:        defaultClientTarget,
			RetryInterval: defaultRetryInterval,
		},
	}
}
