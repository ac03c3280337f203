package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/ideas/pkg/dotdir"
)

// Environment variables holding secrets, which never live in config.toml.
const (
	EnvToken          = "IDEAS_TOKEN"
	EnvAuthSecret     = "IDEAS_AUTH_SECRET"
	EnvUpstreamAPIKey = "IDEAS_UPSTREAM_API_KEY"
)

// InitViper returns a viper instance layered, highest first, as:
//
//	flags bound with BindRegisteredFlags
//	IDEAS_* environment variables (IDEAS_SERVER_LISTEN, IDEAS_CLIENT_TARGET, ...)
//	config.toml in the resolved .ideas/ directory
//	NewDefaultConfig
//
// config.toml goes through Parse first, so a file that "ideas config"
// would reject also fails here.
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()
	for key, value := range defaultValues() {
		v.SetDefault(key, value)
	}

	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	v.SetConfigType("toml")
	data, err := os.ReadFile(filepath.Join(dir, configFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if _, err := Parse(data); err != nil {
			return nil, err
		}
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("IDEAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// defaultValues returns every non-empty default keyed by its dotted name.
func defaultValues() map[string]string {
	d := NewDefaultConfig()
	values := make(map[string]string, len(orderedKeys))
	for _, key := range orderedKeys {
		if value := configKeys[key].get(d); value != "" {
			values[key] = value
		}
	}
	return values
}
