// Package historycmder provides the history command, which lists the ideas
// persisted by a running ideas server.
package historycmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/ideas/pkg/cliui"
	"github.com/papercomputeco/ideas/pkg/config"
	"github.com/papercomputeco/ideas/pkg/credentials"
	"github.com/papercomputeco/ideas/pkg/dotdir"
	"github.com/papercomputeco/ideas/pkg/storage"
	"github.com/papercomputeco/ideas/pkg/utils"
	"github.com/papercomputeco/ideas/server"
)

// ErrUnauthorized is returned when the server rejects the stored token.
var ErrUnauthorized = errors.New("server rejected credentials, run \"ideas auth\" to store a token")

var (
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	timeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

const previewWidth = 60

type historyCommander struct {
	configDir string
	target    string
	limit     int
	last      bool
}

const historyLongDesc string = `List ideas persisted by an ideas server.

Without arguments the most recent ideas are listed, newest first, one line
each. With an idea ID the full idea is rendered as markdown. With --last the
idea most recently received by "ideas watch" is shown from the local .ideas/
directory, without contacting the server.

Examples:
  ideas history
  ideas history --limit 5
  ideas history 3f0c9a4e-5d7b-4a43-9a55-0a3c7f1d2b6e
  ideas history --last`

const historyShortDesc string = "List persisted ideas"

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: historyShortDesc,
		Long:  historyLongDesc,
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
			out := cmd.OutOrStdout()
			if cmder.last {
				return cmder.runLast(out)
			}
			if len(args) == 1 {
				return cmder.runShow(cmd.Context(), out, args[0])
			}
			return cmder.runList(cmd.Context(), out)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &cmder.target)
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", storage.DefaultListLimit, "Number of ideas to list")
	cmd.Flags().BoolVar(&cmder.last, "last", false, "Show the last idea received by \"ideas watch\"")

	return cmd
}

func (c *historyCommander) token() (string, error) {
	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}
	return mgr.TokenSource(config.EnvToken, c.target).Token(context.Background())
}

func (c *historyCommander) runList(ctx context.Context, out io.Writer) error {
	tok, err := c.token()
	if err != nil {
		return err
	}

	resp, err := ListIdeas(ctx, c.target, tok, c.limit)
	if err != nil {
		return err
	}

	if len(resp.Ideas) == 0 {
		fmt.Fprintln(out, "No ideas yet.")
		return nil
	}

	fmt.Fprintf(out, "\n  %s %s\n\n",
		cliui.HeaderStyle.Render("Ideas"),
		cliui.DimStyle.Render(fmt.Sprintf("(%d of %d)", len(resp.Ideas), resp.Total)),
	)
	for _, idea := range resp.Ideas {
		fmt.Fprintln(out, "  "+FormatLine(idea))
	}
	fmt.Fprintln(out)

	return nil
}

func (c *historyCommander) runShow(ctx context.Context, out io.Writer, id string) error {
	tok, err := c.token()
	if err != nil {
		return err
	}

	idea, err := GetIdea(ctx, c.target, tok, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s  %s  %s%s\n",
		idStyle.Render(idea.ID),
		cliui.NameStyle.Render(idea.Agent+" / "+idea.Model),
		timeStyle.Render(idea.CompletedAt.Local().Format(time.DateTime)),
		generationTime(idea),
	)
	return renderText(out, idea.Text)
}

func (c *historyCommander) runLast(out io.Writer) error {
	last, err := dotdir.NewManager().LoadLastIdea(c.configDir)
	if err != nil {
		return err
	}
	if last == nil {
		fmt.Fprintln(out, "No idea received yet. Run \"ideas watch\" first.")
		return nil
	}

	fmt.Fprintf(out, "\n  %s  %s\n",
		cliui.DimStyle.Render(last.Source),
		timeStyle.Render(last.ReceivedAt.Local().Format(time.DateTime)),
	)
	return renderText(out, last.Text)
}

// generationTime describes how long the idea took to generate, or nothing
// when the timestamps are missing.
func generationTime(idea *storage.Idea) string {
	if idea.StartedAt.IsZero() || idea.CompletedAt.Before(idea.StartedAt) {
		return ""
	}
	return "  " + cliui.DimStyle.Render("in "+cliui.FormatDuration(idea.CompletedAt.Sub(idea.StartedAt)))
}

func renderText(out io.Writer, text string) error {
	rendered, err := cliui.RenderMarkdown(text, 0)
	if err != nil {
		rendered = text + "\n"
	}
	_, err = fmt.Fprint(out, rendered)
	return err
}

// FormatLine renders one idea as a single list line: short ID, completion
// time and a truncated headline.
func FormatLine(idea *storage.Idea) string {
	id := idea.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s  %s  %s",
		idStyle.Render(id),
		timeStyle.Render(idea.CompletedAt.Local().Format(time.DateTime)),
		previewStyle.Render(utils.Truncate(utils.Headline(idea.Text), previewWidth)),
	)
}

// ListIdeas fetches the most recent ideas from GET /api/ideas.
func ListIdeas(ctx context.Context, target, token string, limit int) (*server.IdeasResponse, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var resp server.IdeasResponse
	if err := getJSON(ctx, target, "/api/ideas", q, token, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetIdea fetches one idea from GET /api/ideas/:id.
func GetIdea(ctx context.Context, target, token, id string) (*storage.Idea, error) {
	var idea storage.Idea
	if err := getJSON(ctx, target, "/api/ideas/"+url.PathEscape(id), nil, token, &idea); err != nil {
		return nil, err
	}
	return &idea, nil
}

func getJSON(ctx context.Context, target, path string, query url.Values, token string, v any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	u, err := url.Parse(strings.TrimRight(target, "/"))
	if err != nil {
		return fmt.Errorf("invalid target URL: %w", err)
	}
	u.Path += path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to ideas server at %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return storage.NotFoundError{ID: path[strings.LastIndex(path, "/")+1:]}
	default:
		return fmt.Errorf("request failed (HTTP %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
