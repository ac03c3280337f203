// Package tokencmder provides the token command, which mints HS256 bearer
// tokens for local development.
package tokencmder

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ideas/pkg/auth"
	"github.com/papercomputeco/ideas/pkg/config"
)

const tokenLongDesc string = `Mint an HS256 bearer token for an ideas server running in hs256 mode.

The token is signed with IDEAS_AUTH_SECRET, the same secret "ideas serve"
validates with, and printed on stdout so it can be piped:

  ideas token --subject alice | ideas auth

Issuer and audience default to the server's auth.issuer and auth.audience
settings.`

const tokenShortDesc string = "Mint a development bearer token"

type tokenCommander struct {
	subject  string
	ttl      time.Duration
	issuer   string
	audience string
}

func NewTokenCmd() *cobra.Command {
	cmder := &tokenCommander{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: tokenShortDesc,
		Long:  tokenLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagIssuer, config.FlagAudience})
			cmder.issuer = v.GetString("auth.issuer")
			cmder.audience = v.GetString("auth.audience")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			tok, err := cmder.mint(os.Getenv(config.EnvAuthSecret))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}

	cmd.Flags().StringVar(&cmder.subject, "subject", "developer", "Subject (sub claim) of the token")
	cmd.Flags().DurationVar(&cmder.ttl, "ttl", 24*time.Hour, "Lifetime of the token")
	config.AddStringFlag(cmd, config.Flags, config.FlagIssuer, &cmder.issuer)
	config.AddStringFlag(cmd, config.Flags, config.FlagAudience, &cmder.audience)

	return cmd
}

func (c *tokenCommander) mint(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%s is not set", config.EnvAuthSecret)
	}
	if strings.TrimSpace(c.subject) == "" {
		return "", errors.New("subject cannot be empty")
	}

	var audience []string
	for aud := range strings.SplitSeq(c.audience, ",") {
		if aud = strings.TrimSpace(aud); aud != "" {
			audience = append(audience, aud)
		}
	}

	return auth.Mint(secret, auth.MintOptions{
		Subject:  c.subject,
		Issuer:   c.issuer,
		Audience: audience,
		TTL:      c.ttl,
	})
}
