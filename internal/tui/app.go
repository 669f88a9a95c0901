package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/allysonai/allyson/pkg/domain"
)

type page int

const (
	pageSessions page = iota
	pageNewSession
	pageCookies
)

// meLoadedMsg carries the result of GetMe.
type meLoadedMsg struct {
	profile *domain.Profile
	err     error
}

type browserOpenedMsg struct {
	url string
	err error
}

// App is the root Bubbletea model.
type App struct {
	opts       Options
	page       page
	sessions   sessionsModel
	create     newSessionModel
	cookies    cookiesModel
	toast      toastModel
	menuOpen   bool
	menuCursor int
	profile    *domain.Profile
	initCmd    tea.Cmd
	width      int
	height     int
	frame      int // logo shimmer animation frame
}

// NewApp creates a new TUI application showing the session list.
func NewApp(opts Options) App {
	opts = opts.withDefaults()
	a := App{
		opts:     opts,
		page:     pageSessions,
		sessions: newSessionsModel(opts),
		create:   newNewSessionModel(opts),
		cookies:  newCookiesModel(opts),
	}
	a.sessions, a.initCmd = a.sessions.mount()
	return a
}

func (a App) Init() tea.Cmd {
	return tea.Batch(a.initCmd, shimmerTickCmd(), a.loadMe())
}

func (a App) loadMe() tea.Cmd {
	api := a.opts.API
	return func() tea.Msg {
		p, err := api.GetMe(context.Background())
		return meLoadedMsg{profile: p, err: err}
	}
}

func (a App) openURL(url string) tea.Cmd {
	open := a.opts.Open
	return func() tea.Msg {
		return browserOpenedMsg{url: url, err: open(url)}
	}
}

// navigate swaps the visible page. Pages are remounted on every visit.
func (a App) navigate(p page) (App, tea.Cmd) {
	if a.page == pageNewSession && p != pageNewSession {
		a.create = a.create.blur()
	}
	a.page = p
	var cmd tea.Cmd
	switch p {
	case pageSessions:
		a.sessions, cmd = a.sessions.mount()
	case pageNewSession:
		a.create, cmd = a.create.mount()
	case pageCookies:
		a.cookies, cmd = a.cookies.mount()
	}
	return a, cmd
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Chrome: header(2) + toast(1) + help(1) = 4 lines
		bodyMsg := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 4}
		a.sessions, _ = a.sessions.Update(bodyMsg)
		a.create, _ = a.create.Update(bodyMsg)
		a.cookies, _ = a.cookies.Update(bodyMsg)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case meLoadedMsg:
		if msg.err != nil {
			slog.Warn("fetch profile failed", "error", msg.err)
			return a, notifyError("Error fetching user. Please try again.")
		}
		a.profile = msg.profile
		return a, nil

	case browserOpenedMsg:
		if msg.err != nil {
			slog.Warn("open browser failed", "url", msg.url, "error", msg.err)
			return a, notifyError("Could not open browser.")
		}
		return a, nil

	case toastMsg:
		var cmd tea.Cmd
		a.toast, cmd = a.toast.show(msg)
		return a, cmd

	case toastExpiredMsg:
		a.toast = a.toast.expire(msg)
		return a, nil

	// Async results go to their owner regardless of the visible page.
	case sessionsLoadedMsg, linkResultMsg:
		var cmd tea.Cmd
		a.sessions, cmd = a.sessions.Update(msg)
		return a, cmd

	case sessionCreatedMsg:
		var cmd tea.Cmd
		a.create, cmd = a.create.Update(msg)
		return a, cmd

	case cookieStatusMsg, cookieActionMsg:
		var cmd tea.Cmd
		a.cookies, cmd = a.cookies.Update(msg)
		return a, cmd

	case spinner.TickMsg:
		var c1, c2, c3 tea.Cmd
		a.sessions, c1 = a.sessions.Update(msg)
		a.create, c2 = a.create.Update(msg)
		a.cookies, c3 = a.cookies.Update(msg)
		return a, tea.Batch(c1, c2, c3)

	case tea.KeyMsg:
		return a.updateKeys(msg)
	}
	return a, nil
}

func (a App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	// Menu overlay captures all keys when open
	if a.menuOpen {
		switch msg.String() {
		case "m", "esc":
			a.menuOpen = false
		case "q":
			return a, tea.Quit
		case "j", "down":
			if a.menuCursor < len(menuItems)-1 {
				a.menuCursor++
			}
		case "k", "up":
			if a.menuCursor > 0 {
				a.menuCursor--
			}
		case "enter":
			a.menuOpen = false
			return a.navigate(menuItems[a.menuCursor].page)
		}
		return a, nil
	}

	if a.isEditing() {
		if msg.String() == "esc" {
			return a.navigate(pageSessions)
		}
	} else {
		switch msg.String() {
		case "q":
			return a, tea.Quit
		case "m":
			a.menuOpen = true
			a.menuCursor = menuIndex(a.page)
			return a, nil
		case "b":
			return a, a.openURL(a.opts.SettingsURL)
		case "esc":
			if a.page != pageSessions {
				return a.navigate(pageSessions)
			}
			return a, nil
		}
	}

	var cmd tea.Cmd
	switch a.page {
	case pageSessions:
		a.sessions, cmd = a.sessions.Update(msg)
	case pageNewSession:
		a.create, cmd = a.create.Update(msg)
	case pageCookies:
		a.cookies, cmd = a.cookies.Update(msg)
	}
	return a, cmd
}

func (a App) isEditing() bool {
	return a.page == pageNewSession
}

func (a App) View() string {
	// Header: centered shimmer logo, balance below
	logo := renderShimmerLogo(a.frame)
	logoPad := max((a.width-lipgloss.Width(logo))/2, 0)
	header := strings.Repeat(" ", logoPad) + logo

	balance := 0.0
	if a.profile != nil {
		balance = a.profile.Balance
	}
	balanceLine := dimStyle.Render("balance ") + balanceStyle.Render(domain.FormatAmount(balance)) + " " + helpKeyStyle.Render("b")
	if a.opts.Version != "" {
		balanceLine += metaStyle.Render("  ·  " + a.opts.Version)
	}
	balancePad := max((a.width-lipgloss.Width(balanceLine))/2, 0)
	header += "\n" + strings.Repeat(" ", balancePad) + balanceLine

	var body, help string
	switch a.page {
	case pageSessions:
		body = a.sessions.View()
		help = " " + a.sessions.helpKeys() + "  " + helpEntry("m", "menu") + "  " + helpEntry("q", "quit")
	case pageNewSession:
		body = a.create.View()
		help = " " + a.create.helpKeys()
	case pageCookies:
		body = a.cookies.View()
		help = " " + a.cookies.helpKeys() + "  " + helpEntry("m", "menu") + "  " + helpEntry("esc", "back") + "  " + helpEntry("q", "quit")
	}

	if a.menuOpen {
		body = menuView(a.menuCursor)
		help = " " + helpEntry("j/k", "nav") + "  " + helpEntry("enter", "go") + "  " + helpEntry("esc", "close")
	}

	chrome := 4
	body = strings.TrimRight(truncateToHeight(body, a.height-chrome), "\n")
	if lines := strings.Count(body, "\n") + 1; a.height > chrome && lines < a.height-chrome {
		body += strings.Repeat("\n", a.height-chrome-lines)
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s", header, body, a.toast.View(), help)
}
