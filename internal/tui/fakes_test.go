package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/allysonai/allyson/internal/cookies"
	"github.com/allysonai/allyson/pkg/client"
	"github.com/allysonai/allyson/pkg/domain"
)

// fakeAPI records calls and serves canned responses. Cmds run synchronously
// in tests, so no locking is needed.
type fakeAPI struct {
	profile *domain.Profile
	meErr   error

	createID  string
	createErr error
	created   []client.CreateSessionRequest

	listFn    func(p client.ListSessionsParams) ([]domain.Session, error)
	listCalls []client.ListSessionsParams

	authed    map[string]bool
	checkErr  error
	saveErr   error
	updateErr error
	deleteErr error
	saved     []domain.CookieBundle
	updated   []domain.CookieBundle
	deleted   []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		profile:  &domain.Profile{Balance: 12.5},
		createID: "sess-new",
		authed:   map[string]bool{},
	}
}

func (f *fakeAPI) GetMe(context.Context) (*domain.Profile, error) {
	if f.meErr != nil {
		return nil, f.meErr
	}
	return f.profile, nil
}

func (f *fakeAPI) CreateSession(_ context.Context, req client.CreateSessionRequest) (string, error) {
	f.created = append(f.created, req)
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.createID, nil
}

func (f *fakeAPI) ListSessions(_ context.Context, p client.ListSessionsParams) ([]domain.Session, error) {
	f.listCalls = append(f.listCalls, p)
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(p)
}

func (f *fakeAPI) CheckCookies(_ context.Context, host string) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return f.authed[host], nil
}

func (f *fakeAPI) SaveCookies(_ context.Context, b domain.CookieBundle) error {
	f.saved = append(f.saved, b)
	if f.saveErr != nil {
		return f.saveErr
	}
	f.authed[b.URL] = true
	return nil
}

func (f *fakeAPI) UpdateCookies(_ context.Context, b domain.CookieBundle) error {
	f.updated = append(f.updated, b)
	if f.updateErr != nil {
		return f.updateErr
	}
	f.authed[b.URL] = true
	return nil
}

func (f *fakeAPI) DeleteCookies(_ context.Context, host string) error {
	f.deleted = append(f.deleted, host)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.authed, host)
	return nil
}

// fakeBrowser implements cookies.Source.
type fakeBrowser struct {
	tab     string
	tabErr  error
	cookies []domain.Cookie
	err     error
}

func (b *fakeBrowser) ActiveTab(context.Context) (string, error) { return b.tab, b.tabErr }

func (b *fakeBrowser) AllCookies(context.Context) ([]domain.Cookie, error) { return b.cookies, b.err }

// recorder captures URLs handed to the browser opener and the clipboard.
type recorder struct {
	opened  []string
	copied  []string
	openErr error
}

func (r *recorder) open(url string) error {
	r.opened = append(r.opened, url)
	return r.openErr
}

func (r *recorder) copy(s string) error {
	r.copied = append(r.copied, s)
	return nil
}

var errBoom = errors.New("boom")

func testOptions(api *fakeAPI, br *fakeBrowser, rec *recorder) Options {
	return Options{
		API:         api,
		Cookies:     cookies.NewCapturer(br),
		Open:        rec.open,
		Copy:        rec.copy,
		SessionURL:  func(id string) string { return "https://app.test/sessions/session?id=" + id },
		SettingsURL: "https://app.test/settings",
		PageSize:    10,
	}
}

func makeSessions(from, n int) []domain.Session {
	out := make([]domain.Session, n)
	for i := range out {
		out[i] = domain.Session{
			SessionID: fmt.Sprintf("s%d", from+i),
			Name:      fmt.Sprintf("task %d", from+i),
			Status:    domain.StatusCompleted,
			Cost:      0.25,
		}
	}
	return out
}

// runCmd executes cmd and any batched children one level deep. Only call it
// on commands that do not sleep (no tea.Tick).
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// firstMsg returns the first message of type T produced by cmd.
func firstMsg[T tea.Msg](cmd tea.Cmd) (T, bool) {
	for _, m := range runCmd(cmd) {
		if v, ok := m.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}
