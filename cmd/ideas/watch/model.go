package watchcmder

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/ideas/pkg/cliui"
	"github.com/papercomputeco/ideas/pkg/client"
)

// stateMsg carries a session state into the program.
type stateMsg client.State

type watchKeyMap struct {
	Quit key.Binding
}

func defaultKeyMap() watchKeyMap {
	return watchKeyMap{
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "stop")),
	}
}

var (
	watchTargetStyle = cliui.DimStyle
	watchBodyStyle   = lipgloss.NewStyle().PaddingLeft(2)
	watchHelpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).PaddingLeft(2)
)

type watchModel struct {
	target   string
	width    int
	state    client.State
	rendered string
	spinner  spinner.Model
	keys     watchKeyMap
	unmount  func()
}

func newWatchModel(target string, width int, unmount func()) watchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

	return watchModel{
		target:  target,
		width:   width,
		state:   client.State{Phase: client.Idle, Text: client.LoadingText},
		spinner: s,
		keys:    defaultKeyMap(),
		unmount: unmount,
	}
}

func (m watchModel) Init() bubbletea.Cmd {
	return m.spinner.Tick
}

func (m watchModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case bubbletea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			if m.unmount != nil {
				m.unmount()
			}
			if !m.state.Phase.Terminal() {
				m.state.Phase = client.Aborted
			}
			return m, bubbletea.Quit
		}
		return m, nil

	case stateMsg:
		m.state = client.State(msg)
		if !m.state.Phase.Terminal() {
			return m, nil
		}
		if m.state.Phase == client.Completed {
			m.rendered = m.renderIdea()
		}
		return m, bubbletea.Quit

	case spinner.TickMsg:
		if m.state.Phase.Terminal() {
			return m, nil
		}
		var cmd bubbletea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// renderIdea renders the completed idea as markdown, falling back to the raw
// text when rendering fails.
func (m watchModel) renderIdea() string {
	width := m.width - 4
	out, err := cliui.RenderMarkdown(m.state.Text, width)
	if err != nil {
		return watchBodyStyle.Render(m.state.Text)
	}
	return strings.TrimRight(out, "\n")
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString("\n  ")
	b.WriteString(cliui.TitleStyle.Render("ideas"))
	b.WriteString(" ")
	b.WriteString(watchTargetStyle.Render(m.target))
	b.WriteString("\n\n")

	switch {
	case m.rendered != "":
		b.WriteString(m.rendered)
	case m.state.Text != "":
		b.WriteString(watchBodyStyle.Render(m.state.Text))
	default:
		b.WriteString(watchBodyStyle.Render(client.LoadingText))
	}
	b.WriteString("\n\n  ")

	if m.state.Phase.Terminal() {
		b.WriteString(cliui.StatusLine(m.state))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(cliui.StatusLine(m.state))
	b.WriteString("\n")
	b.WriteString(watchHelpStyle.Render(m.keys.Quit.Help().Key + " " + m.keys.Quit.Help().Desc))
	b.WriteString("\n")

	return b.String()
}
