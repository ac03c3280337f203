package config

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/ideas/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// CurrentV is the config.toml version this build reads and writes.
	CurrentV = 0
)

// secretKeys never belong in config.toml. They are read from the
// environment or from credentials.toml.
var secretKeys = map[string]string{
	"upstream.api_key": "IDEAS_UPSTREAM_API_KEY or \"ideas auth <provider>\"",
	"auth.secret":      "IDEAS_AUTH_SECRET",
	"client.token":     "IDEAS_TOKEN or \"ideas auth\"",
}

// Store reads and writes config.toml in one .ideas/ directory.
type Store struct {
	path string
}

// Open resolves the .ideas/ directory (override first) and returns the
// Store for its config.toml. The file itself need not exist.
func Open(override string) (*Store, error) {
	dir, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return &Store{path: path}, nil
}

func (s *Store) Path() string {
	return s.path
}

// Load returns the file's configuration with every unset key filled from
// NewDefaultConfig. A missing file yields the defaults.
func (s *Store) Load() (*Config, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewDefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	fillDefaults(cfg)
	return cfg, nil
}

// Save writes cfg to config.toml, creating it with 0600 permissions.
func (s *Store) Save(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(s.path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Set validates value for key and saves it, keeping every other key.
func (s *Store) Set(key, value string) error {
	info, err := lookupKey(key)
	if err != nil {
		return err
	}

	cfg, err := s.Load()
	if err != nil {
		return err
	}
	if err := info.set(cfg, value); err != nil {
		return err
	}
	return s.Save(cfg)
}

// Get returns the effective value of key as a string.
func (s *Store) Get(key string) (string, error) {
	info, err := lookupKey(key)
	if err != nil {
		return "", err
	}

	cfg, err := s.Load()
	if err != nil {
		return "", err
	}
	return info.get(cfg), nil
}

// Parse decodes config.toml content. Unknown keys and versions are errors,
// secret keys are rejected with a pointer to where they belong, and every
// set value must pass the same validation as "ideas config set".
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	for _, k := range md.Undecoded() {
		key := k.String()
		if where, ok := secretKeys[key]; ok {
			return nil, fmt.Errorf("%s must not be stored in config.toml, use %s", key, where)
		}
		return nil, fmt.Errorf("unknown config key: %q", key)
	}

	for _, key := range orderedKeys {
		info := configKeys[key]
		if value := info.get(cfg); value != "" {
			if err := info.set(cfg, value); err != nil {
				return nil, err
			}
		}
	}

	return cfg, nil
}

// ValidConfigKeys returns the settable keys in TOML section order.
func ValidConfigKeys() []string {
	return slices.Clone(orderedKeys)
}

func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func lookupKey(key string) (configKeyInfo, error) {
	info, ok := configKeys[key]
	if ok {
		return info, nil
	}
	if where, secret := secretKeys[key]; secret {
		return configKeyInfo{}, fmt.Errorf("%s is a secret, use %s", key, where)
	}
	return configKeyInfo{}, fmt.Errorf("unknown config key: %q", key)
}

// fillDefaults sets every empty key of cfg to its default.
func fillDefaults(cfg *Config) {
	defaults := NewDefaultConfig()
	for _, key := range orderedKeys {
		info := configKeys[key]
		if info.get(cfg) != "" {
			continue
		}
		if def := info.get(defaults); def != "" {
			_ = info.set(cfg, def)
		}
	}
}

// presets adjust the defaults for one upstream.
var presets = map[string]func(*Config){
	"openai": func(c *Config) {
		c.Upstream = UpstreamConfig{Provider: "openai", URL: "https://api.openai.com"}
	},
	"anthropic": func(c *Config) {
		c.Upstream = UpstreamConfig{Provider: "anthropic", URL: "https://api.anthropic.com"}
		c.Agent.Model = "claude-haiku-4-5"
	},
	"ollama": func(c *Config) {
		c.Upstream = UpstreamConfig{Provider: "ollama", URL: "http://localhost:11434"}
		c.Agent.Model = "llama3.2"
	},
	"script": func(c *Config) {
		c.Upstream = UpstreamConfig{Provider: "script", Delay: "50ms"}
		c.Agent.Model = "script"
	},
}

// PresetConfig returns the defaults adjusted for the named upstream preset.
func PresetConfig(name string) (*Config, error) {
	apply, ok := presets[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}

	cfg := NewDefaultConfig()
	apply(cfg)
	return cfg, nil
}

// ValidPresetNames returns the preset names, sorted.
func ValidPresetNames() []string {
	return slices.Sorted(maps.Keys(presets))
}

// SecretHint returns where a secret key is configured instead of
// config.toml, or "" when key is not a secret.
func SecretHint(key string) string {
	return secretKeys[key]
}
