package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/allysonai/allyson/internal/pager"
	"github.com/allysonai/allyson/pkg/client"
	"github.com/allysonai/allyson/pkg/domain"
)

// pageSizes is the cycle order for the per-page setting.
var pageSizes = []int{5, 10, 20, 50}

// sessionsLoadedMsg carries one fetched page, tagged with the request that produced it.
type sessionsLoadedMsg struct {
	req      pager.Request
	sessions []domain.Session
	err      error
}

type linkResultMsg struct {
	action string
	err    error
}

type sessionsModel struct {
	api        API
	sessionURL func(string) string
	open       func(string) error
	copy       func(string) error
	pager      pager.Pager
	cursor     int
	offset     int
	spinner    spinner.Model
	width      int
	height     int
}

func newSessionsModel(o Options) sessionsModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = dimStyle
	return sessionsModel{
		api:        o.API,
		sessionURL: o.SessionURL,
		open:       o.Open,
		copy:       o.Copy,
		pager:      pager.New(o.PageSize, domain.FilterAll),
		spinner:    sp,
	}
}

// mount starts a fresh epoch; the list is always re-fetched when the page is shown.
func (m sessionsModel) mount() (sessionsModel, tea.Cmd) {
	m.cursor = 0
	m.offset = 0
	return m, m.fetch(m.pager.Reset())
}

func (m sessionsModel) fetch(req pager.Request) tea.Cmd {
	api := m.api
	load := func() tea.Msg {
		sessions, err := api.ListSessions(context.Background(), client.ListSessionsParams{
			Page:   req.Page,
			Limit:  req.Limit,
			Status: req.Filter,
		})
		return sessionsLoadedMsg{req: req, sessions: sessions, err: err}
	}
	return tea.Batch(load, m.spinner.Tick)
}

func (m sessionsModel) Update(msg tea.Msg) (sessionsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionsLoadedMsg:
		if msg.err != nil {
			if m.pager.Fail(msg.req) {
				slog.Warn("session list fetch failed", "error", msg.err, "epoch", msg.req.Epoch, "page", msg.req.Page)
			}
			return m, nil
		}
		if !m.pager.Apply(msg.req, msg.sessions) {
			slog.Debug("discarding stale session page", "epoch", msg.req.Epoch, "current_epoch", m.pager.Epoch(), "page", msg.req.Page)
		}
		return m, nil

	case linkResultMsg:
		if msg.err != nil {
			slog.Warn("session link action failed", "action", msg.action, "error", msg.err)
			if msg.action == "copy" {
				return m, notifyError("Could not copy link.")
			}
			return m, notifyError("Could not open browser.")
		}
		if msg.action == "copy" {
			return m, notifySuccess("Link copied")
		}
		return m, nil

	case spinner.TickMsg:
		if !m.pager.Loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampScroll()
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m sessionsModel) updateKeys(msg tea.KeyMsg) (sessionsModel, tea.Cmd) {
	n := m.pager.Len()
	switch msg.String() {
	case "j", "down":
		if m.cursor < n-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "pgdown", "ctrl+d":
		m.cursor = min(m.cursor+m.listHeight(), max(n-1, 0))
	case "pgup", "ctrl+u":
		m.cursor = max(m.cursor-m.listHeight(), 0)
	case "G", "end":
		m.cursor = max(n-1, 0)
	case "g", "home":
		m.cursor = 0
	case "enter", "o":
		return m, m.linkCmd("open")
	case "c":
		return m, m.linkCmd("copy")
	case "f":
		if req, ok := m.pager.SetFilter(m.pager.Filter().Next()); ok {
			m.cursor, m.offset = 0, 0
			return m, m.fetch(req)
		}
		return m, nil
	case "+", "=":
		return m.setPageSize(1)
	case "-":
		return m.setPageSize(-1)
	case "r":
		return m.mount()
	default:
		return m, nil
	}
	m.clampScroll()
	return m.maybeLoadMore()
}

func (m sessionsModel) setPageSize(step int) (sessionsModel, tea.Cmd) {
	idx := 0
	for i, s := range pageSizes {
		if s == m.pager.PageSize() {
			idx = i
			break
		}
	}
	idx = (idx + step + len(pageSizes)) % len(pageSizes)
	if req, ok := m.pager.SetPageSize(pageSizes[idx]); ok {
		m.cursor, m.offset = 0, 0
		return m, m.fetch(req)
	}
	return m, nil
}

// maybeLoadMore requests the next page when the viewport is near the bottom.
func (m sessionsModel) maybeLoadMore() (sessionsModel, tea.Cmd) {
	if req, ok := m.pager.Next(m.remaining()); ok {
		return m, m.fetch(req)
	}
	return m, nil
}

func (m sessionsModel) linkCmd(action string) tea.Cmd {
	items := m.pager.Items()
	if m.cursor >= len(items) {
		return nil
	}
	link := m.sessionURL(items[m.cursor].SessionID)
	open, copyFn := m.open, m.copy
	return func() tea.Msg {
		var err error
		if action == "copy" {
			err = copyFn(link)
		} else {
			err = open(link)
		}
		return linkResultMsg{action: action, err: err}
	}
}

// listHeight is the number of session rows that fit. Chrome: filter bar,
// blank line, footer.
func (m sessionsModel) listHeight() int {
	h := m.height - 3
	if h < 1 {
		return 1
	}
	return h
}

// remaining is the number of rows below the bottom edge of the viewport.
func (m sessionsModel) remaining() int {
	r := m.pager.Len() - (m.offset + m.listHeight())
	if r < 0 {
		return 0
	}
	return r
}

func (m *sessionsModel) clampScroll() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m sessionsModel) View() string {
	var b strings.Builder

	filter := m.pager.Filter()
	b.WriteString(" " + dimStyle.Render("status ") + accentStyle.Render(filter.Label()) + " " + helpKeyStyle.Render("f"))
	b.WriteString(metaStyle.Render("  ·  "))
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d per page ", m.pager.PageSize())) + helpKeyStyle.Render("+/-"))
	b.WriteString("\n\n")

	items := m.pager.Items()
	width := m.width
	if width <= 0 {
		width = 80
	}
	// Row: cursor(2) + name + gap(2) + status(14) + cost(12)
	nameWidth := width - 30
	if nameWidth < 10 {
		nameWidth = 10
	}

	end := min(m.offset+m.listHeight(), len(items))
	for i := m.offset; i < end; i++ {
		s := items[i]
		cursor := "  "
		nameStyle := normalStyle
		if i == m.cursor {
			cursor = accentStyle.Render("> ")
			nameStyle = selectedStyle
		}
		name := padRight(truncStr(oneLine(s.Name), nameWidth), nameWidth)
		status := statusDotStyle(s.Status).Render("●") + " " + dimStyle.Render(padRight(s.Status.Label(), 12))
		cost := fmt.Sprintf("%10s", domain.FormatAmount(s.Cost))
		b.WriteString(cursor + nameStyle.Render(name) + "  " + status + " " + balanceStyle.Render(cost) + "\n")
	}

	switch {
	case m.pager.Loading():
		b.WriteString(" " + m.spinner.View() + dimStyle.Render(" loading sessions…"))
	case !m.pager.HasMore():
		if len(items) == 0 {
			b.WriteString(" " + dimStyle.Render("No sessions yet. Press m and pick New Session to start one.") + "\n")
		}
		b.WriteString(" " + metaStyle.Render("No more sessions to load"))
	}
	return b.String()
}

func (m sessionsModel) helpKeys() string {
	return helpBar(
		[2]string{"j/k", "scroll"},
		[2]string{"enter", "open"},
		[2]string{"c", "copy link"},
		[2]string{"f", "status"},
		[2]string{"+/-", "per page"},
		[2]string{"r", "refresh"},
	)
}
