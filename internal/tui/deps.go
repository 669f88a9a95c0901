package tui

import (
	"context"

	"github.com/allysonai/allyson/internal/browser"
	"github.com/allysonai/allyson/pkg/client"
	"github.com/allysonai/allyson/pkg/domain"
)

// API is the part of the Allyson API the TUI uses. *client.Client implements it.
type API interface {
	GetMe(ctx context.Context) (*domain.Profile, error)
	CreateSession(ctx context.Context, req client.CreateSessionRequest) (string, error)
	ListSessions(ctx context.Context, p client.ListSessionsParams) ([]domain.Session, error)
	CheckCookies(ctx context.Context, host string) (bool, error)
	SaveCookies(ctx context.Context, bundle domain.CookieBundle) error
	UpdateCookies(ctx context.Context, bundle domain.CookieBundle) error
	DeleteCookies(ctx context.Context, host string) error
}

// CookieCapturer reads the active tab and its cookies. *cookies.Capturer implements it.
type CookieCapturer interface {
	ActiveHost(ctx context.Context) (string, error)
	Capture(ctx context.Context, host string) (domain.CookieBundle, error)
}

// Options wires the TUI to its collaborators.
type Options struct {
	API     API
	Cookies CookieCapturer
	// Open opens a URL in a new browser tab.
	Open browser.Opener
	// Copy writes text to the system clipboard.
	Copy func(string) error
	// SessionURL builds the web view link for a session ID.
	SessionURL  func(sessionID string) string
	SettingsURL string
	PageSize    int
	Version     string
}

func (o Options) withDefaults() Options {
	if o.Open == nil {
		o.Open = browser.Open
	}
	if o.Copy == nil {
		o.Copy = func(string) error { return nil }
	}
	if o.SessionURL == nil {
		o.SessionURL = func(id string) string { return id }
	}
	if o.PageSize < 1 {
		o.PageSize = 10
	}
	return o
}
