// Package watchcmder provides the watch command, which mounts one stream
// session against a running ideas server and renders it as it arrives.
package watchcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/ideas/pkg/client"
	"github.com/papercomputeco/ideas/pkg/config"
	"github.com/papercomputeco/ideas/pkg/credentials"
	"github.com/papercomputeco/ideas/pkg/dotdir"
	"github.com/papercomputeco/ideas/pkg/logger"
)

// streamPath is the idea stream route on the ideas server.
const streamPath = "/api/idea"

type watchCommander struct {
	configDir     string
	target        string
	retryInterval string
	maxRetries    uint
	plain         bool
	debug         bool

	logger *slog.Logger
}

var watchFlags = []string{
	config.FlagTarget,
	config.FlagRetryInterval,
	config.FlagMaxRetries,
}

const watchLongDesc string = `Stream one idea from a running ideas server.

The idea is rendered fragment by fragment while it is generated. Transient
failures (connection drops, 429 and 5xx responses) are retried after the
retry interval; a rejected token ends the session with "Authentication
required".

The bearer token is taken from IDEAS_TOKEN or, when unset, from the token
stored for the target with "ideas auth".

When stdout is not a terminal, or with --plain, fragments are written as
plain text. Press q or ctrl+c to stop watching.`

const watchShortDesc string = "Stream one idea from an ideas server"

func NewWatchCmd() *cobra.Command {
	cmder := &watchCommander{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, watchFlags)

			cmder.target = v.GetString("client.target")
			cmder.retryInterval = v.GetString("client.retry_interval")
			cmder.maxRetries = v.GetUint("client.max_retries")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &cmder.target)
	config.AddStringFlag(cmd, config.Flags, config.FlagRetryInterval, &cmder.retryInterval)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxRetries, &cmder.maxRetries)
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Write fragments as plain text instead of the interactive view")

	return cmd
}

func (c *watchCommander) run(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger = logger.Nop()
	if c.debug {
		c.logger = logger.New(
			logger.WithDebug(true),
			logger.WithFormat(logger.FormatPretty),
			logger.WithWriter(os.Stderr),
			logger.WithComponent("client"),
		)
	}

	cl, err := c.newClient()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st client.State
	if c.plain || !isTerminal(out) {
		st, err = runPlain(ctx, cl, out)
	} else {
		st, err = c.runTUI(ctx, cl)
	}
	if err != nil {
		return err
	}

	return c.finish(st)
}

func (c *watchCommander) newClient() (*client.Client, error) {
	target := strings.TrimRight(strings.TrimSpace(c.target), "/")
	if target == "" {
		return nil, errors.New("no target configured, set --target or client.target")
	}

	var interval time.Duration
	if c.retryInterval != "" {
		d, err := time.ParseDuration(c.retryInterval)
		if err != nil {
			return nil, fmt.Errorf("parsing retry interval: %w", err)
		}
		interval = d
	}

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	return client.New(client.Config{
		URL:           target + streamPath,
		Tokens:        mgr.TokenSource(config.EnvToken, target),
		RetryInterval: interval,
		MaxRetries:    int(c.maxRetries),
		Logger:        c.logger,
	})
}

// runTUI drives the interactive view. Session updates are forwarded to the
// program; quitting the program unmounts the session.
func (c *watchCommander) runTUI(ctx context.Context, cl *client.Client) (client.State, error) {
	output := termenv.NewOutput(os.Stdout)
	lipgloss.SetDefaultRenderer(lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(output.EnvColorProfile())))

	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		width = 0
	}

	var sess *client.Session
	model := newWatchModel(c.target, width, func() {
		if sess != nil {
			sess.Unmount()
		}
	})

	program := bubbletea.NewProgram(model, bubbletea.WithContext(ctx))
	sess = cl.Mount(ctx, func(st client.State) {
		program.Send(stateMsg(st))
	})
	defer sess.Unmount()

	if _, err := program.Run(); err != nil && !errors.Is(err, bubbletea.ErrProgramKilled) {
		return client.State{}, fmt.Errorf("running watch view: %w", err)
	}

	sess.Unmount()
	<-sess.Done()
	return sess.State(), nil
}

// finish persists a completed idea and turns a failed session into the
// command's error.
func (c *watchCommander) finish(st client.State) error {
	switch st.Phase {
	case client.Completed:
		if st.Text == client.LoadingText {
			return nil
		}
		last := &dotdir.LastIdea{
			Text:       st.Text,
			Source:     c.target,
			ReceivedAt: time.Now().UTC(),
		}
		if err := dotdir.NewManager().SaveLastIdea(last, c.configDir); err != nil {
			c.logger.Warn("could not save last idea", "error", err)
		}
		return nil

	case client.Errored:
		if st.Err != nil {
			return st.Err
		}
		return errors.New("stream failed")

	default:
		return nil
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
