package tui

import (
	"context"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/allysonai/allyson/pkg/client"
)

// sessionCreatedMsg reports a create request. openErr is set when the session
// was created but the browser could not be opened.
type sessionCreatedMsg struct {
	id      string
	err     error
	openErr error
}

type newSessionModel struct {
	api        API
	open       func(string) error
	sessionURL func(string) string
	input      textarea.Model
	spinner    spinner.Model
	sending    bool
	statusMsg  string
	width      int
}

func newNewSessionModel(o Options) newSessionModel {
	ta := textarea.New()
	ta.Placeholder = "Describe what Allyson should do, e.g. find the cheapest flight to Lisbon next Friday"
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.SetHeight(6)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle

	return newSessionModel{
		api:        o.API,
		open:       o.Open,
		sessionURL: o.SessionURL,
		input:      ta,
		spinner:    sp,
	}
}

// mount focuses the task input.
func (m newSessionModel) mount() (newSessionModel, tea.Cmd) {
	m.statusMsg = ""
	return m, m.input.Focus()
}

func (m newSessionModel) blur() newSessionModel {
	m.input.Blur()
	return m
}

func (m newSessionModel) Update(msg tea.Msg) (newSessionModel, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionCreatedMsg:
		m.sending = false
		if msg.err != nil {
			slog.Warn("create session failed", "error", msg.err)
			return m, notifyError("Error creating session. Please try again.")
		}
		if msg.openErr != nil {
			slog.Warn("open session in browser failed", "session_id", msg.id, "error", msg.openErr)
		}
		m.input.Reset()
		return m, notifySuccess("Session created successfully")

	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		w := msg.Width - 4
		if w < 20 {
			w = 20
		}
		m.input.SetWidth(w)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+s" {
			return m.submit()
		}
		if m.sending {
			return m, nil
		}
		m.statusMsg = ""
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m newSessionModel) submit() (newSessionModel, tea.Cmd) {
	if m.sending {
		return m, nil
	}
	task := strings.TrimSpace(m.input.Value())
	if task == "" {
		m.statusMsg = "enter a task first"
		return m, nil
	}

	m.sending = true
	api, open, sessionURL := m.api, m.open, m.sessionURL
	create := func() tea.Msg {
		id, err := api.CreateSession(context.Background(), client.NewCreateSessionRequest(task))
		if err != nil {
			return sessionCreatedMsg{err: err}
		}
		return sessionCreatedMsg{id: id, openErr: open(sessionURL(id))}
	}
	return m, tea.Batch(create, m.spinner.Tick)
}

func (m newSessionModel) View() string {
	var b strings.Builder
	b.WriteString(" " + titleStyle.Render("New Session") + "\n\n")
	b.WriteString(m.input.View() + "\n\n")

	var button string
	switch {
	case m.sending:
		button = buttonStyle.Render(m.spinner.View() + " Creating…")
	case strings.TrimSpace(m.input.Value()) == "":
		button = buttonStyle.Render("Create Session")
	default:
		button = buttonFocusStyle.Render("Create Session")
	}
	row := lipgloss.JoinHorizontal(lipgloss.Center, " ", button)
	if m.statusMsg != "" {
		row = lipgloss.JoinHorizontal(lipgloss.Center, row, "  ", dimStyle.Render(m.statusMsg))
	}
	b.WriteString(row)
	return b.String()
}

func (m newSessionModel) helpKeys() string {
	return helpBar(
		[2]string{"ctrl+s", "create"},
		[2]string{"esc", "back"},
		[2]string{"ctrl+c", "quit"},
	)
}
