// Package ideascmder
package ideascmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/ideas/cmd/ideas/auth"
	configcmder "github.com/papercomputeco/ideas/cmd/ideas/config"
	historycmder "github.com/papercomputeco/ideas/cmd/ideas/history"
	servecmder "github.com/papercomputeco/ideas/cmd/ideas/serve"
	tokencmder "github.com/papercomputeco/ideas/cmd/ideas/token"
	versioncmder "github.com/papercomputeco/ideas/cmd/ideas/version"
	watchcmder "github.com/papercomputeco/ideas/cmd/ideas/watch"
)

const ideasLongDesc string = `Ideas streams freshly generated business ideas from an LLM to your terminal.

Run the server and watch it:
  ideas serve          Run the ideas server
  ideas token          Mint a development bearer token
  ideas auth           Store the bearer token for a server
  ideas watch          Stream one idea from a running server
  ideas history        List ideas the server has persisted`

const ideasShortDesc string = "Ideas - streamed LLM idea generation"

func NewIdeasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ideas",
		Short:        ideasShortDesc,
		Long:         ideasLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .ideas/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(tokencmder.NewTokenCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
