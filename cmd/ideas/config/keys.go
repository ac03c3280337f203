package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ideas/pkg/cliui"
	"github.com/papercomputeco/ideas/pkg/config"
)

// completeKey offers config keys for the first argument only.
func completeKey(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func checkKey(key string) error {
	if config.IsValidConfigKey(key) {
		return nil
	}
	if hint := config.SecretHint(key); hint != "" {
		return fmt.Errorf("%s is a secret and is never stored in config.toml, use %s", key, hint)
	}
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

// openStore validates key and opens the config store.
func openStore(key, configDir string) (*config.Store, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	store, err := config.Open(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return store, nil
}

// printKey writes one "key  value" line, padding the key to width.
func printKey(out io.Writer, key, value string, width int) {
	rendered := cliui.ValueStyle.Render(value)
	if value == "" {
		rendered = cliui.DimStyle.Render("<not set>")
	}
	fmt.Fprintf(out, "  %s  %s\n", cliui.KeyStyle.Render(fmt.Sprintf("%-*s", width, key)), rendered)
}
