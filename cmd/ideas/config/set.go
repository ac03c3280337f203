package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ideas/pkg/cliui"
)

const setLongDesc string = `Set a configuration value.

Validates the value and writes it to config.toml in the .ideas/ directory,
keeping every other key. Counts must be numbers, delays and intervals Go
durations, and providers, auth modes, storage drivers and publishers one of
their known names.

Examples:
  ideas config set upstream.provider anthropic
  ideas config set upstream.delay 40ms
  ideas config set storage.driver sqlite
  ideas config set client.max_retries 5`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "set <key> <value>",
		Short:             setShortDesc,
		Long:              setLongDesc,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeKey,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(cmd.OutOrStdout(), args[0], args[1], configDir)
		},
	}
}

func runSet(out io.Writer, key, value, configDir string) error {
	store, err := openStore(key, configDir)
	if err != nil {
		return err
	}

	if err := store.Set(key, value); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s %s = %s %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(key),
		cliui.ValueStyle.Render(value),
		cliui.DimStyle.Render("("+store.Path()+")"),
	)
	return nil
}
