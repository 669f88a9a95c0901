package cookies

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/allysonai/allyson/pkg/domain"
)

const focusedScript = `() => document.visibilityState === "visible" && document.hasFocus()`

// CDP reads tabs and cookies from a running Chromium over the DevTools protocol.
// The browser must be started with --remote-debugging-port. The connection is
// opened lazily and reused until Close.
type CDP struct {
	endpoint string

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
}

// NewCDP returns a source for the browser listening at endpoint, e.g. http://127.0.0.1:9222.
func NewCDP(endpoint string) *CDP {
	return &CDP{endpoint: endpoint}
}

func (c *CDP) connect(ctx context.Context) (playwright.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser != nil && c.browser.IsConnected() {
		return c.browser, nil
	}

	if c.pw == nil {
		// Keep driver output off the terminal the TUI is drawing on.
		opts := &playwright.RunOptions{
			SkipInstallBrowsers: true,
			Verbose:             false,
			Stdout:              io.Discard,
			Stderr:              io.Discard,
		}
		if err := playwright.Install(opts); err != nil {
			return nil, fmt.Errorf("%w: install driver: %v", ErrBrowserUnavailable, err)
		}
		pw, err := playwright.Run(opts)
		if err != nil {
			return nil, fmt.Errorf("%w: start driver: %v", ErrBrowserUnavailable, err)
		}
		c.pw = pw
	}

	browser, err := c.pw.Chromium.ConnectOverCDP(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", ErrBrowserUnavailable, c.endpoint, err)
	}
	c.browser = browser
	return browser, nil
}

// ActiveTab implements Source. The active tab is the first visible, focused
// web page; when focus cannot be determined the most recently opened web page
// is used.
func (c *CDP) ActiveTab(ctx context.Context) (string, error) {
	browser, err := c.connect(ctx)
	if err != nil {
		return "", err
	}

	var fallback string
	for _, bctx := range browser.Contexts() {
		for _, page := range bctx.Pages() {
			u := page.URL()
			if !isWebURL(u) {
				continue
			}
			fallback = u
			focused, err := page.Evaluate(focusedScript)
			if err != nil {
				continue
			}
			if ok, _ := focused.(bool); ok {
				return u, nil
			}
		}
	}
	if fallback == "" {
		return "", ErrNoActiveTab
	}
	return fallback, nil
}

// AllCookies implements Source.
func (c *CDP) AllCookies(ctx context.Context) ([]domain.Cookie, error) {
	browser, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	var out []domain.Cookie
	for _, bctx := range browser.Contexts() {
		cookies, err := bctx.Cookies()
		if err != nil {
			return nil, fmt.Errorf("read cookie store: %w", err)
		}
		for _, ck := range cookies {
			out = append(out, fromPlaywright(ck))
		}
	}
	return out, nil
}

// Close disconnects from the browser without closing it.
func (c *CDP) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser != nil {
		_ = c.browser.Close() // disconnects a CDP-attached browser
		c.browser = nil
	}
	if c.pw != nil {
		err := c.pw.Stop()
		c.pw = nil
		if err != nil {
			return fmt.Errorf("stop playwright: %w", err)
		}
	}
	return nil
}

func isWebURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

func fromPlaywright(ck playwright.Cookie) domain.Cookie {
	out := domain.Cookie{
		Name:     ck.Name,
		Value:    ck.Value,
		Domain:   ck.Domain,
		HostOnly: !strings.HasPrefix(ck.Domain, "."),
		Path:     ck.Path,
		Secure:   ck.Secure,
		HTTPOnly: ck.HttpOnly,
		SameSite: domain.SameSiteUnspecified,
		Session:  ck.Expires < 0,
		StoreID:  "0",
	}
	if ck.SameSite != nil {
		switch string(*ck.SameSite) {
		case "Strict":
			out.SameSite = domain.SameSiteStrict
		case "Lax":
			out.SameSite = domain.SameSiteLax
		case "None":
			out.SameSite = domain.SameSiteNone
		}
	}
	if !out.Session {
		exp := ck.Expires
		out.ExpirationDate = &exp
	}
	return out
}
