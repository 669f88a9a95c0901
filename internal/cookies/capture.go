// Package cookies reads cookies for the browser's active tab so they can be
// forwarded to the backend.
package cookies

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/allysonai/allyson/pkg/domain"
)

var (
	// ErrNoActiveTab is returned when no http(s) tab is open in the browser.
	ErrNoActiveTab = errors.New("no active browser tab")
	// ErrBrowserUnavailable is returned when the browser cannot be reached.
	ErrBrowserUnavailable = errors.New("browser unavailable")
	// ErrPublicSuffix is returned when asked to capture for a bare public
	// suffix such as "com" or "co.uk", which would match every site under it.
	ErrPublicSuffix = errors.New("host is a public suffix")
)

// Source is a browser's tab list and cookie store.
type Source interface {
	// ActiveTab returns the URL of the tab the user is looking at.
	ActiveTab(ctx context.Context) (string, error)
	// AllCookies returns every cookie in the browser's store.
	AllCookies(ctx context.Context) ([]domain.Cookie, error)
}

// Capturer builds cookie bundles from a Source.
type Capturer struct {
	src Source
}

// NewCapturer returns a Capturer reading from src.
func NewCapturer(src Source) *Capturer {
	return &Capturer{src: src}
}

// ActiveHost returns the hostname of the active tab.
func (c *Capturer) ActiveHost(ctx context.Context) (string, error) {
	raw, err := c.src.ActiveTab(ctx)
	if err != nil {
		return "", fmt.Errorf("cookies.ActiveHost: %w", err)
	}
	host, err := HostFromURL(raw)
	if err != nil {
		return "", fmt.Errorf("cookies.ActiveHost: %w", err)
	}
	return host, nil
}

// Capture collects the cookies whose domain is host or one of its subdomains.
// Cookie order is preserved.
func (c *Capturer) Capture(ctx context.Context, host string) (domain.CookieBundle, error) {
	if IsPublicSuffix(host) {
		return domain.CookieBundle{}, fmt.Errorf("cookies.Capture: %w: %q", ErrPublicSuffix, host)
	}
	all, err := c.src.AllCookies(ctx)
	if err != nil {
		return domain.CookieBundle{}, fmt.Errorf("cookies.Capture: %w", err)
	}
	bundle := domain.CookieBundle{URL: host, Cookies: []domain.Cookie{}}
	for _, ck := range all {
		if MatchDomain(ck.Domain, host) {
			bundle.Cookies = append(bundle.Cookies, ck)
		}
	}
	return bundle, nil
}

// MatchDomain reports whether a cookie set for cookieDomain falls under host:
// the domains are equal or the cookie's domain is a subdomain of host.
func MatchDomain(cookieDomain, host string) bool {
	d := strings.ToLower(strings.TrimPrefix(cookieDomain, "."))
	h := strings.ToLower(strings.TrimPrefix(host, "."))
	if d == "" || h == "" {
		return false
	}
	return d == h || strings.HasSuffix(d, "."+h)
}

// IsPublicSuffix reports whether host is an ICANN public suffix. IP addresses
// and single-label hosts like localhost are not.
func IsPublicSuffix(host string) bool {
	h := strings.ToLower(strings.TrimPrefix(host, "."))
	if h == "" || net.ParseIP(h) != nil {
		return false
	}
	suffix, icann := publicsuffix.PublicSuffix(h)
	return icann && suffix == h
}

// HostFromURL extracts the hostname of an http(s) URL.
func HostFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse tab url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q is not a web page", ErrNoActiveTab, raw)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrNoActiveTab, raw)
	}
	return u.Hostname(), nil
}
