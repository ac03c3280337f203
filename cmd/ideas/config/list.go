package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ideas/pkg/cliui"
	"github.com/papercomputeco/ideas/pkg/config"
)

const listLongDesc string = `List all configuration values.

Prints every key grouped by section with its effective value from
config.toml in the .ideas/ directory, defaults filled in.

Examples:
  ideas config list`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(cmd.OutOrStdout(), configDir)
		},
	}
}

func runList(out io.Writer, configDir string) error {
	store, err := config.Open(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	keys := config.ValidConfigKeys()
	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}

	fmt.Fprintf(out, "\n  %s\n", cliui.DimStyle.Render(store.Path()))

	section := ""
	for _, key := range keys {
		value, err := store.Get(key)
		if err != nil {
			return err
		}

		if s, _, _ := strings.Cut(key, "."); s != section {
			section = s
			fmt.Fprintf(out, "\n  %s\n", cliui.HeaderStyle.Render("["+section+"]"))
		}
		printKey(out, key, value, width)
	}
	fmt.Fprintln(out)

	return nil
}
