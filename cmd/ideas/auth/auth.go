// Package authcmder provides the auth command for storing server tokens and
// upstream API keys.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/ideas/pkg/cliui"
	"github.com/papercomputeco/ideas/pkg/config"
	"github.com/papercomputeco/ideas/pkg/credentials"
)

const authLongDesc string = `Store credentials in credentials.toml in the .ideas/ directory.

Without arguments the bearer token used by "ideas watch" and "ideas history"
is stored for the target server. IDEAS_TOKEN, when set, takes precedence
over the stored token.

With a provider argument the upstream API key used by "ideas serve" is
stored instead. IDEAS_UPSTREAM_API_KEY and the provider's own variable
take precedence over the stored key.

Supported providers: openai, anthropic

Examples:
  ideas auth                        Prompt for the target's bearer token
  ideas token | ideas auth          Store a freshly minted development token
  ideas auth openai                 Prompt for an OpenAI API key
  ideas auth --list                 List stored credentials
  ideas auth --remove openai        Remove the stored OpenAI key
  ideas auth --logout               Remove the target's bearer token`

const authShortDesc string = "Store server tokens and upstream API keys"

type authCommander struct {
	configDir string
	target    string
	list      bool
	remove    string
	logout    bool

	in  io.Reader
	out io.Writer
}

func NewAuthCmd() *cobra.Command {
	cmder := &authCommander{}

	cmd := &cobra.Command{
		Use:   "auth [provider]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagTarget})
			cmder.target = v.GetString("client.target")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()

			switch {
			case cmder.list:
				return cmder.runList()
			case cmder.remove != "":
				return cmder.runRemove(cmder.remove)
			case cmder.logout:
				return cmder.runLogout()
			case len(args) == 1:
				return cmder.runProvider(args[0])
			default:
				return cmder.runToken()
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.SupportedProviders(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &cmder.target)
	cmd.Flags().BoolVar(&cmder.list, "list", false, "List stored credentials")
	cmd.Flags().StringVar(&cmder.remove, "remove", "", "Remove the stored API key for a provider")
	cmd.Flags().BoolVar(&cmder.logout, "logout", false, "Remove the stored bearer token for the target")

	return cmd
}

func (c *authCommander) manager() (*credentials.Manager, error) {
	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	return mgr, nil
}

func (c *authCommander) runToken() error {
	token, err := c.readSecret(fmt.Sprintf("Enter bearer token for %s: ", c.target))
	if err != nil {
		return err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token cannot be empty")
	}

	mgr, err := c.manager()
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out)
	err = cliui.Step(c.out, "Storing token for "+cliui.NameStyle.Render(c.target), func() error {
		return mgr.SetToken(c.target, token)
	})
	fmt.Fprintln(c.out)
	return err
}

func (c *authCommander) runProvider(provider string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	if !credentials.IsSupportedProvider(provider) {
		return fmt.Errorf("unsupported provider: %q\n\nSupported providers: %s",
			provider, strings.Join(credentials.SupportedProviders(), ", "))
	}

	envVar := credentials.EnvVarForProvider(provider)
	apiKey, err := c.readSecret(fmt.Sprintf("Enter API key for %s (%s): ", provider, envVar))
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	mgr, err := c.manager()
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out)
	msg := fmt.Sprintf("Storing %s credentials %s",
		cliui.NameStyle.Render(provider),
		cliui.DimStyle.Render("(overridden by "+envVar+")"),
	)
	err = cliui.Step(c.out, msg, func() error {
		return mgr.SetKey(provider, apiKey)
	})
	fmt.Fprintln(c.out)
	return err
}

func (c *authCommander) runList() error {
	mgr, err := c.manager()
	if err != nil {
		return err
	}

	creds, err := mgr.Load()
	if err != nil {
		return err
	}

	if len(creds.Servers) == 0 && len(creds.Providers) == 0 {
		fmt.Fprintf(c.out, "\n  %s No stored credentials.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(c.out, "  Use 'ideas auth' to store a server token or 'ideas auth <provider>' for an API key.\n\n")
		return nil
	}

	if len(creds.Servers) > 0 {
		fmt.Fprintf(c.out, "\n  %s\n\n", cliui.HeaderStyle.Render("Server tokens"))
		targets := make([]string, 0, len(creds.Servers))
		for target := range creds.Servers {
			targets = append(targets, target)
		}
		slices.Sort(targets)
		for _, target := range targets {
			fmt.Fprintf(c.out, "  %s  %s\n", cliui.SuccessMark, cliui.NameStyle.Render(target))
		}
	}

	providers, err := mgr.ListProviders()
	if err != nil {
		return err
	}
	if len(providers) > 0 {
		fmt.Fprintf(c.out, "\n  %s\n\n", cliui.HeaderStyle.Render("Provider keys"))
		for _, p := range providers {
			fmt.Fprintf(c.out, "  %s  %s  %s\n",
				cliui.SuccessMark,
				cliui.NameStyle.Render(p),
				cliui.DimStyle.Render("→ "+credentials.EnvVarForProvider(p)),
			)
		}
	}
	fmt.Fprintln(c.out)

	return nil
}

func (c *authCommander) runRemove(provider string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	mgr, err := c.manager()
	if err != nil {
		return err
	}
	if err := mgr.RemoveKey(provider); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Removed %s credentials.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(provider))
	return nil
}

func (c *authCommander) runLogout() error {
	mgr, err := c.manager()
	if err != nil {
		return err
	}
	if err := mgr.RemoveToken(c.target); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Removed token for %s.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(c.target))
	return nil
}

// readSecret reads a secret from the command input. A terminal gets a prompt
// with hidden input; anything else has its first line read.
func (c *authCommander) readSecret(prompt string) (string, error) {
	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(c.out, prompt)
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.out) // newline after hidden input
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return string(secret), nil
	}

	scanner := bufio.NewScanner(c.in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}
