package configcmder

import (
	"io"

	"github.com/spf13/cobra"
)

const getLongDesc string = `Get a configuration value.

Prints the effective value of a key from config.toml in the .ideas/
directory, falling back to the built-in default. Flags and IDEAS_*
environment variables are not consulted.

Examples:
  ideas config get upstream.provider
  ideas config get client.target`

const getShortDesc string = "Get a configuration value"

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "get <key>",
		Short:             getShortDesc,
		Long:              getLongDesc,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKey,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runGet(cmd.OutOrStdout(), args[0], configDir)
		},
	}
}

func runGet(out io.Writer, key, configDir string) error {
	store, err := openStore(key, configDir)
	if err != nil {
		return err
	}

	value, err := store.Get(key)
	if err != nil {
		return err
	}

	printKey(out, key, value, len(key))
	return nil
}
