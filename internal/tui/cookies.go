package tui

import (
	"context"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type cookieAction int

const (
	actionAuthenticate cookieAction = iota
	actionReauthenticate
	actionDisconnect
)

func (a cookieAction) label() string {
	switch a {
	case actionReauthenticate:
		return "Re-authenticate Website"
	case actionDisconnect:
		return "Disconnect Website"
	default:
		return "Authenticate Website"
	}
}

// cookieStatusMsg carries the active tab's host and whether the service
// already holds cookies for it. gen is the mount that requested it.
type cookieStatusMsg struct {
	gen           int
	host          string
	authenticated bool
	hostErr       error
	err           error
}

// cookieActionMsg reports a save, update or disconnect. The follow-up check
// result rides along so the buttons reflect the service state.
type cookieActionMsg struct {
	gen           int
	action        cookieAction
	captureErr    error
	err           error
	authenticated bool
	checkErr      error
}

type cookiesModel struct {
	api      API
	capturer CookieCapturer
	host     string
	hostErr  error
	authed   bool
	checked  bool
	loading  bool
	cursor   int
	gen      int
	spinner  spinner.Model
	width    int
}

func newCookiesModel(o Options) cookiesModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle
	return cookiesModel{api: o.API, capturer: o.Cookies, spinner: sp}
}

// mount resolves the active tab and checks its cookie status. Results from
// earlier mounts are dropped.
func (m cookiesModel) mount() (cookiesModel, tea.Cmd) {
	m.gen++
	m.loading = true
	m.checked = false
	m.authed = false
	m.hostErr = nil
	m.cursor = 0
	api, capturer, gen := m.api, m.capturer, m.gen
	load := func() tea.Msg {
		ctx := context.Background()
		host, err := capturer.ActiveHost(ctx)
		if err != nil {
			return cookieStatusMsg{gen: gen, hostErr: err}
		}
		ok, err := api.CheckCookies(ctx, host)
		return cookieStatusMsg{gen: gen, host: host, authenticated: ok, err: err}
	}
	return m, tea.Batch(load, m.spinner.Tick)
}

func (m cookiesModel) actions() []cookieAction {
	if m.authed {
		return []cookieAction{actionReauthenticate, actionDisconnect}
	}
	return []cookieAction{actionAuthenticate}
}

func (m cookiesModel) Update(msg tea.Msg) (cookiesModel, tea.Cmd) {
	switch msg := msg.(type) {
	case cookieStatusMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		if msg.hostErr != nil {
			slog.Warn("resolve active tab failed", "error", msg.hostErr)
			m.hostErr = msg.hostErr
			m.host = ""
			m.authed = false
			return m, nil
		}
		m.host = msg.host
		if msg.err != nil {
			slog.Warn("check cookies failed", "host", msg.host, "error", msg.err)
			return m, nil
		}
		m.authed = msg.authenticated
		m.checked = true
		m.cursor = 0
		return m, nil

	case cookieActionMsg:
		// A remount while the action ran owns the page state now; only
		// report the outcome.
		if msg.gen == m.gen {
			m.loading = false
			m.cursor = 0
			if msg.captureErr == nil && msg.err == nil {
				m.checked = msg.checkErr == nil
				m.authed = m.checked && msg.authenticated
			}
		}
		return m, actionResult(msg)

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m cookiesModel) updateKeys(msg tea.KeyMsg) (cookiesModel, tea.Cmd) {
	actions := m.actions()
	switch msg.String() {
	case "j", "down", "l", "right", "tab":
		if m.cursor < len(actions)-1 {
			m.cursor++
		}
	case "k", "up", "h", "left", "shift+tab":
		if m.cursor > 0 {
			m.cursor--
		}
	case "r":
		if !m.loading {
			return m.mount()
		}
	case "enter":
		if m.loading || !m.checked || m.host == "" || m.cursor >= len(actions) {
			return m, nil
		}
		return m.run(actions[m.cursor])
	}
	return m, nil
}

func (m cookiesModel) run(action cookieAction) (cookiesModel, tea.Cmd) {
	m.loading = true
	api, capturer, host, gen := m.api, m.capturer, m.host, m.gen
	do := func() tea.Msg {
		msg := performCookieAction(context.Background(), api, capturer, host, action)
		msg.gen = gen
		return msg
	}
	return m, tea.Batch(do, m.spinner.Tick)
}

// performCookieAction runs action for host and re-checks its status on success.
func performCookieAction(ctx context.Context, api API, capturer CookieCapturer, host string, action cookieAction) cookieActionMsg {
	switch action {
	case actionDisconnect:
		if err := api.DeleteCookies(ctx, host); err != nil {
			return cookieActionMsg{action: action, err: err}
		}
	default:
		bundle, err := capturer.Capture(ctx, host)
		if err != nil {
			return cookieActionMsg{action: action, captureErr: err}
		}
		if action == actionReauthenticate {
			err = api.UpdateCookies(ctx, bundle)
		} else {
			err = api.SaveCookies(ctx, bundle)
		}
		if err != nil {
			return cookieActionMsg{action: action, err: err}
		}
	}
	ok, err := api.CheckCookies(ctx, host)
	return cookieActionMsg{action: action, authenticated: ok, checkErr: err}
}

// actionResult logs a finished action and picks its notification.
func actionResult(msg cookieActionMsg) tea.Cmd {
	switch {
	case msg.captureErr != nil:
		slog.Error("read browser cookies failed", "action", msg.action.label(), "error", msg.captureErr)
		return notifyError("Error getting cookies. Please try again.")
	case msg.err != nil:
		slog.Warn("cookie action failed", "action", msg.action.label(), "error", msg.err)
		if msg.action == actionDisconnect {
			return notifyError("Error disconnecting website. Please try again.")
		}
		return notifyError("Error getting cookies. Please try again.")
	}
	if msg.checkErr != nil {
		slog.Warn("check cookies failed", "action", msg.action.label(), "error", msg.checkErr)
	}
	switch msg.action {
	case actionReauthenticate:
		return notifySuccess("Website updated successfully")
	case actionDisconnect:
		return notifySuccess("Website disconnected successfully")
	default:
		return notifySuccess("Website saved successfully")
	}
}

func (m cookiesModel) View() string {
	var b strings.Builder
	b.WriteString(" " + titleStyle.Render("Website Access") + "\n\n")

	switch {
	case m.hostErr != nil:
		b.WriteString(" " + dimStyle.Render("No website tab found. Open the site in a browser started with") + "\n")
		b.WriteString(" " + dimStyle.Render("--remote-debugging-port, then press r.") + "\n")
		return b.String()
	case m.host == "" && m.loading:
		b.WriteString(" " + m.spinner.View() + dimStyle.Render(" finding active tab…") + "\n")
		return b.String()
	}

	b.WriteString(" " + dimStyle.Render("URL: ") + normalStyle.Render(m.host))
	switch {
	case m.loading:
		b.WriteString("  " + m.spinner.View())
	case !m.checked:
		b.WriteString("  " + metaStyle.Render("status unknown, press r to retry"))
	}
	b.WriteString("\n\n")

	// Actions need a known status; save and update are picked from it.
	if m.checked {
		b.WriteString(m.buttonsView())
		b.WriteString("\n\n")
	}

	box := infoBoxStyle
	if m.width > 8 {
		box = box.Width(m.width - 4)
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, " ", box.Render(
		"We encrypt & store your cookies so they can be used within Allyson easily "+
			"so you don't have to log back in every single time.")))
	return b.String()
}

func (m cookiesModel) buttonsView() string {
	actions := m.actions()
	buttons := make([]string, 0, len(actions)*2)
	for i, a := range actions {
		focused := i == m.cursor && !m.loading
		style := buttonStyle
		switch {
		case a == actionDisconnect && focused:
			style = dangerButtonFocusStyle
		case a == actionDisconnect:
			style = dangerButtonStyle
		case focused:
			style = buttonFocusStyle
		}
		if i > 0 {
			buttons = append(buttons, " ")
		}
		buttons = append(buttons, style.Render(a.label()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, append([]string{" "}, buttons...)...)
}

func (m cookiesModel) helpKeys() string {
	return helpBar(
		[2]string{"h/l", "select"},
		[2]string{"enter", "run"},
		[2]string{"r", "refresh"},
	)
}
