package cookies

import (
	"context"
	"errors"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allysonai/allyson/pkg/domain"
)

type fakeSource struct {
	tab     string
	tabErr  error
	cookies []domain.Cookie
	err     error
}

func (f fakeSource) ActiveTab(context.Context) (string, error) { return f.tab, f.tabErr }

func (f fakeSource) AllCookies(context.Context) ([]domain.Cookie, error) { return f.cookies, f.err }

func TestMatchDomain(t *testing.T) {
	tests := []struct {
		cookie, host string
		want         bool
	}{
		{"example.com", "example.com", true},
		{".example.com", "example.com", true},
		{"app.example.com", "example.com", true},
		{".App.Example.com", "example.com", true},
		{"example.com", "app.example.com", false},
		{"badexample.com", "example.com", false},
		{"example.org", "example.com", false},
		{"", "example.com", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchDomain(tt.cookie, tt.host), "MatchDomain(%q, %q)", tt.cookie, tt.host)
	}
}

func TestHostFromURL(t *testing.T) {
	host, err := HostFromURL("https://app.example.com:8443/path?q=1")
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", host)

	for _, raw := range []string{"chrome://newtab/", "about:blank", "file:///tmp/x.html", "https:///nohost"} {
		_, err := HostFromURL(raw)
		assert.ErrorIs(t, err, ErrNoActiveTab, raw)
	}
}

func TestCapturerActiveHost(t *testing.T) {
	c := NewCapturer(fakeSource{tab: "https://example.com/login"})
	host, err := c.ActiveHost(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "example.com", host)

	c = NewCapturer(fakeSource{tabErr: ErrBrowserUnavailable})
	_, err = c.ActiveHost(context.Background())
	assert.ErrorIs(t, err, ErrBrowserUnavailable)
}

func TestCaptureFiltersByDomainInOrder(t *testing.T) {
	src := fakeSource{cookies: []domain.Cookie{
		{Name: "a", Domain: ".example.com"},
		{Name: "b", Domain: "other.com"},
		{Name: "c", Domain: "www.example.com"},
		{Name: "d", Domain: "notexample.com"},
	}}
	bundle, err := NewCapturer(src).Capture(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, "example.com", bundle.URL)
	var names []string
	for _, ck := range bundle.Cookies {
		names = append(names, ck.Name)
	}
	assert.Equal(t, []string{"a", "c"}, names)
}

func TestCaptureEmptyIsNotNil(t *testing.T) {
	bundle, err := NewCapturer(fakeSource{}).Capture(context.Background(), "example.com")
	require.NoError(t, err)
	assert.NotNil(t, bundle.Cookies)
	assert.Empty(t, bundle.Cookies)
}

func TestCaptureError(t *testing.T) {
	boom := errors.New("store locked")
	_, err := NewCapturer(fakeSource{err: boom}).Capture(context.Background(), "example.com")
	assert.ErrorIs(t, err, boom)
}

func TestFromPlaywright(t *testing.T) {
	lax := playwright.SameSiteAttribute("Lax")
	persistent := fromPlaywright(playwright.Cookie{
		Name:     "sid",
		Value:    "v",
		Domain:   ".example.com",
		Path:     "/",
		Expires:  1767225600,
		HttpOnly: true,
		Secure:   true,
		SameSite: &lax,
	})
	assert.Equal(t, "sid", persistent.Name)
	assert.False(t, persistent.HostOnly)
	assert.False(t, persistent.Session)
	require.NotNil(t, persistent.ExpirationDate)
	assert.Equal(t, float64(1767225600), *persistent.ExpirationDate)
	assert.Equal(t, domain.SameSiteLax, persistent.SameSite)
	assert.True(t, persistent.HTTPOnly)
	assert.Equal(t, "0", persistent.StoreID)

	session := fromPlaywright(playwright.Cookie{Name: "tmp", Domain: "example.com", Path: "/", Expires: -1})
	assert.True(t, session.HostOnly)
	assert.True(t, session.Session)
	assert.Nil(t, session.ExpirationDate)
	assert.Equal(t, domain.SameSiteUnspecified, session.SameSite)
}

func TestCaptureRejectsPublicSuffix(t *testing.T) {
	src := fakeSource{cookies: []domain.Cookie{{Name: "a", Domain: ".example.com"}}}
	_, err := NewCapturer(src).Capture(context.Background(), "com")
	assert.ErrorIs(t, err, ErrPublicSuffix)
}

func TestIsPublicSuffix(t *testing.T) {
	tests := map[string]bool{
		"com":             true,
		"co.uk":           true,
		".com":            true,
		"example.com":     false,
		"shop.example.co": false,
		"localhost":       false,
		"127.0.0.1":       false,
		"":                false,
	}
	for host, want := range tests {
		assert.Equal(t, want, IsPublicSuffix(host), host)
	}
}
