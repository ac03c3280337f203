package configcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ideas/pkg/cliui"
	"github.com/papercomputeco/ideas/pkg/config"
)

const initLongDesc string = `Write a preset config.toml.

Presets pick the upstream provider, its URL and a matching model. An existing
config.toml is only replaced with --force.

Available presets: openai, anthropic, ollama, script

Examples:
  ideas config init --preset script
  ideas config init --preset ollama --force`

const initShortDesc string = "Write a preset config.toml"

func newInitCmd() *cobra.Command {
	var preset string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runInit(cmd.OutOrStdout(), preset, force, configDir)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "openai", "Preset name ("+strings.Join(config.ValidPresetNames(), ", ")+")")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing config.toml")

	return cmd
}

func runInit(out io.Writer, preset string, force bool, configDir string) error {
	cfg, err := config.PresetConfig(preset)
	if err != nil {
		return err
	}

	store, err := config.Open(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	target := store.Path()
	if _, err := os.Stat(target); err == nil && !force {
		return fmt.Errorf("config file already exists at %s, use --force to replace it", target)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config file: %w", err)
	}

	if err := store.Save(cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Wrote %s preset to %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(strings.ToLower(preset)),
		cliui.DimStyle.Render(target),
	)
	return nil
}
