// Package configcmder provides the config command for managing persistent
// ideas configuration stored in the .ideas/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent ideas configuration.

Configuration is stored as config.toml in the .ideas/ directory and provides
default values for command flags. CLI flags and IDEAS_* environment variables
always take precedence over config file values. Secrets are never stored
here.

Keys use dotted notation matching the TOML section structure:
  server.listen, server.workers, server.queue_size,
  agent.name, agent.model, agent.instructions, agent.prompt,
  upstream.provider, upstream.url, upstream.delay,
  auth.mode, auth.issuer, auth.audience, auth.jwks_url,
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  events.publisher, events.brokers, events.topic,
  client.target, client.retry_interval, client.max_retries

Use subcommands to initialize, get, set, or list configuration values:
  ideas config init --preset <name>  Write a preset config.toml
  ideas config set <key> <value>     Set a configuration value
  ideas config get <key>             Get a configuration value
  ideas config list                  List all configuration values

Examples:
  ideas config init --preset script
  ideas config set upstream.provider anthropic
  ideas config get client.target
  ideas config list`

const configShortDesc string = "Manage persistent ideas configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
