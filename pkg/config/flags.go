package config

import (
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --target
// on both "ideas watch" and "ideas history").
type Flag struct {
	// Name is the long flag name (e.g. "upstream").
	Name string

	// Shorthand is the one-letter short flag (e.g. "u"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "upstream.url").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen        = "listen"
	FlagWorkers       = "workers"
	FlagProvider      = "provider"
	FlagUpstream      = "upstream"
	FlagDelay         = "delay"
	FlagModel         = "model"
	FlagPrompt        = "prompt"
	FlagAuthMode      = "auth-mode"
	FlagIssuer        = "issuer"
	FlagAudience      = "audience"
	FlagJWKSURL       = "jwks-url"
	FlagStorage       = "storage"
	FlagSQLite        = "sqlite"
	FlagPostgres      = "postgres"
	FlagPublisher     = "publisher"
	FlagBrokers       = "brokers"
	FlagTopic         = "topic"
	FlagTarget        = "target"
	FlagRetryInterval = "retry-interval"
	FlagMaxRetries    = "max-retries"
)

// Flags is the registry shared by every ideas command.
var Flags = FlagSet{
	FlagListen:        {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "Address for the ideas server to listen on"},
	FlagWorkers:       {Name: "workers", ViperKey: "server.workers", Description: "Number of persistence workers"},
	FlagProvider:      {Name: "provider", Shorthand: "p", ViperKey: "upstream.provider", Description: "Upstream provider type (openai, anthropic, ollama, script)"},
	FlagUpstream:      {Name: "upstream", Shorthand: "u", ViperKey: "upstream.url", Description: "Upstream provider base URL"},
	FlagDelay:         {Name: "delay", ViperKey: "upstream.delay", Description: "Delay between fragments of the script provider"},
	FlagModel:         {Name: "model", Shorthand: "m", ViperKey: "agent.model", Description: "Model used for generation"},
	FlagPrompt:        {Name: "prompt", ViperKey: "agent.prompt", Description: "Prompt sent for every generation"},
	FlagAuthMode:      {Name: "auth-mode", ViperKey: "auth.mode", Description: "Bearer token validation mode (hs256, jwks, oidc)"},
	FlagIssuer:        {Name: "issuer", ViperKey: "auth.issuer", Description: "Expected token issuer"},
	FlagAudience:      {Name: "audience", ViperKey: "auth.audience", Description: "Expected token audience"},
	FlagJWKSURL:       {Name: "jwks-url", ViperKey: "auth.jwks_url", Description: "JWKS URL used in jwks mode"},
	FlagStorage:       {Name: "storage", ViperKey: "storage.driver", Description: "Idea storage driver (memory, sqlite, postgres)"},
	FlagSQLite:        {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to the SQLite database"},
	FlagPostgres:      {Name: "postgres", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string"},
	FlagPublisher:     {Name: "publisher", ViperKey: "events.publisher", Description: "Idea event publisher (nop, kafka)"},
	FlagBrokers:       {Name: "brokers", ViperKey: "events.brokers", Description: "Comma separated Kafka brokers"},
	FlagTopic:         {Name: "topic", ViperKey: "events.topic", Description: "Kafka topic for idea events"},
	FlagTarget:        {Name: "target", Shorthand: "t", ViperKey: "client.target", Description: "Ideas server URL"},
	FlagRetryInterval: {Name: "retry-interval", ViperKey: "client.retry_interval", Description: "Wait between reconnection attempts"},
	FlagMaxRetries:    {Name: "max-retries", ViperKey: "client.max_retries", Description: "Maximum reconnection attempts (0 retries forever)"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaultString(viperKey string) string {
	return defaultValues()[viperKey]
}

func defaultUint(viperKey string) uint {
	n, _ := strconv.ParseUint(defaultValues()[viperKey], 10, 64)
	return uint(n)
}
