package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent ideas configuration stored as config.toml
// in the .ideas/ directory. The TOML layout uses sections for logical grouping.
//
// Secrets (the upstream API key, the HS256 signing secret) are never stored
// here; they come from the environment.
type Config struct {
	Version  int            `toml:"version"`
	Server   ServerConfig   `toml:"server"`
	Agent    AgentConfig    `toml:"agent"`
	Upstream UpstreamConfig `toml:"upstream"`
	Auth     AuthConfig     `toml:"auth"`
	Storage  StorageConfig  `toml:"storage"`
	Events   EventsConfig   `toml:"events"`
	Client   ClientConfig   `toml:"client"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen    string `toml:"listen,omitempty"`
	Workers   uint   `toml:"workers,omitempty"`
	QueueSize uint   `toml:"queue_size,omitempty"`
}

// AgentConfig selects the agent and prompt used for every generation.
type AgentConfig struct {
	Name         string `toml:"name,omitempty"`
	Model        string `toml:"model,omitempty"`
	Instructions string `toml:"instructions,omitempty"`
	Prompt       string `toml:"prompt,omitempty"`
}

// UpstreamConfig selects the upstream generation provider.
type UpstreamConfig struct {
	Provider string `toml:"provider,omitempty"`
	URL      string `toml:"url,omitempty"`

	// Delay paces the script provider between fragments.
	Delay string `toml:"delay,omitempty"`
}

// AuthConfig configures bearer token validation on the server.
type AuthConfig struct {
	Mode     string `toml:"mode,omitempty"`
	Issuer   string `toml:"issuer,omitempty"`
	Audience string `toml:"audience,omitempty"`
	JWKSURL  string `toml:"jwks_url,omitempty"`
}

// StorageConfig selects where completed ideas are persisted.
type StorageConfig struct {
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// EventsConfig selects where idea events are published.
type EventsConfig struct {
	Publisher string `toml:"publisher,omitempty"`

	// Brokers is a comma separated list of Kafka bootstrap brokers.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// ideas server (e.g. ideas watch, ideas history). Target is a full URL
// (scheme + host + port).
type ClientConfig struct {
	Target        string `toml:"target,omitempty"`
	RetryInterval string `toml:"retry_interval,omitempty"`
	MaxRetries    uint   `toml:"max_retries,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func durationKey(name string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = v
			return nil
		},
	}
}

func oneOfKey(name string, allowed []string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			for _, a := range allowed {
				if v == a {
					*field(c) = v
					return nil
				}
			}
			return fmt.Errorf("invalid value for %s: %q (allowed: %v)", name, v, allowed)
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen":     stringKey(func(c *Config) *string { return &c.Server.Listen }),
	"server.workers":    uintKey("server.workers", func(c *Config) *uint { return &c.Server.Workers }),
	"server.queue_size": uintKey("server.queue_size", func(c *Config) *uint { return &c.Server.QueueSize }),

	"agent.name":         stringKey(func(c *Config) *string { return &c.Agent.Name }),
	"agent.model":        stringKey(func(c *Config) *string { return &c.Agent.Model }),
	"agent.instructions": stringKey(func(c *Config) *string { return &c.Agent.Instructions }),
	"agent.prompt":       stringKey(func(c *Config) *string { return &c.Agent.Prompt }),

	"upstream.provider": oneOfKey("upstream.provider", ProviderNames, func(c *Config) *string { return &c.Upstream.Provider }),
	"upstream.url":      stringKey(func(c *Config) *string { return &c.Upstream.URL }),
	"upstream.delay":    durationKey("upstream.delay", func(c *Config) *string { return &c.Upstream.Delay }),

	"auth.mode":     oneOfKey("auth.mode", AuthModes, func(c *Config) *string { return &c.Auth.Mode }),
	"auth.issuer":   stringKey(func(c *Config) *string { return &c.Auth.Issuer }),
	"auth.audience": stringKey(func(c *Config) *string { return &c.Auth.Audience }),
	"auth.jwks_url": stringKey(func(c *Config) *string { return &c.Auth.JWKSURL }),

	"storage.driver":       oneOfKey("storage.driver", StorageDrivers, func(c *Config) *string { return &c.Storage.Driver }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"events.publisher": oneOfKey("events.publisher", EventPublishers, func(c *Config) *string { return &c.Events.Publisher }),
	"events.brokers":   stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":     stringKey(func(c *Config) *string { return &c.Events.Topic }),

	"client.target":         stringKey(func(c *Config) *string { return &c.Client.Target }),
	"client.retry_interval": durationKey("client.retry_interval", func(c *Config) *string { return &c.Client.RetryInterval }),
	"client.max_retries":    uintKey("client.max_retries", func(c *Config) *uint { return &c.Client.MaxRetries }),
}

// orderedKeys lists configKeys in TOML section order.
var orderedKeys = []string{
	"server.listen",
	"server.workers",
	"server.queue_size",
	"agent.name",
	"agent.model",
	"agent.instructions",
	"agent.prompt",
	"upstream.provider",
	"upstream.url",
	"upstream.delay",
	"auth.mode",
	"auth.issuer",
	"auth.audience",
	"auth.jwks_url",
	"storage.driver",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"events.publisher",
	"events.brokers",
	"events.topic",
	"client.target",
	"client.retry_interval",
	"client.max_retries",
}
