package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/allysonai/allyson/pkg/auth"
	"github.com/allysonai/allyson/pkg/domain"
)

func TestLoginURL(t *testing.T) {
	got := loginURL("https://app.allyson.ai", 53111, "abc")
	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse %q: %v", got, err)
	}
	if u.Host != "app.allyson.ai" || u.Path != "/cli/login" {
		t.Errorf("unexpected login URL %q", got)
	}
	if u.Query().Get("cli_port") != "53111" || u.Query().Get("state") != "abc" {
		t.Errorf("unexpected query %q", u.RawQuery)
	}
}

func TestNewStateIsRandom(t *testing.T) {
	a, err := newState()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := newState()
	if len(a) != 32 || a == b {
		t.Errorf("expected two distinct 32-char states, got %q and %q", a, b)
	}
}

func TestCallbackRouter(t *testing.T) {
	exchange := func(_ context.Context, code string) (string, error) {
		if code == "bad" {
			return "", errors.New("exchange rejected")
		}
		return "tok-" + code, nil
	}

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantToken  string
		wantErr    bool
	}{
		{"valid", "state=s1&code=c1", http.StatusOK, "tok-c1", false},
		{"state mismatch", "state=other&code=c1", http.StatusForbidden, "", true},
		{"missing code", "state=s1", http.StatusBadRequest, "", true},
		{"exchange fails", "state=s1&code=bad", http.StatusBadGateway, "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tokenCh := make(chan string, 1)
			errCh := make(chan error, 1)
			h := callbackRouter("s1", exchange, tokenCh, errCh)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+tc.query, nil))

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			select {
			case tok := <-tokenCh:
				if tok != tc.wantToken {
					t.Errorf("token = %q, want %q", tok, tc.wantToken)
				}
			case err := <-errCh:
				if !tc.wantErr {
					t.Errorf("unexpected error: %v", err)
				}
			default:
				t.Error("expected a token or an error")
			}
		})
	}
}

func TestCallbackRouterOnlyServesCallback(t *testing.T) {
	h := callbackRouter("s1", nil, make(chan string, 1), make(chan error, 1))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCallbackRouterRepeatedCallbacksDoNotBlock(t *testing.T) {
	exchange := func(_ context.Context, code string) (string, error) { return "tok-" + code, nil }
	tokenCh := make(chan string, 1)
	errCh := make(chan error, 1)
	h := callbackRouter("s1", exchange, tokenCh, errCh)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, q := range []string{"state=other", "state=other", "state=s1&code=c1", "state=s1&code=c2"} {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?"+q, nil))
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("callback handler blocked on a repeated callback")
	}
	if err := <-errCh; err == nil || !strings.Contains(err.Error(), "state mismatch") {
		t.Errorf("expected the first outcome kept, got %v", err)
	}
	if tok := <-tokenCh; tok != "tok-c1" {
		t.Errorf("token = %q, want tok-c1", tok)
	}
}

type fakeIdentity struct {
	existing map[string]bool
	code     string
}

func (f *fakeIdentity) SignUp(_ context.Context, email string) error {
	if f.existing[email] {
		return auth.ErrIdentifierExists
	}
	return nil
}

func (f *fakeIdentity) SignIn(context.Context, string) error { return nil }

func (f *fakeIdentity) VerifySignUp(_ context.Context, _, code string) (string, error) {
	return f.verify(code)
}

func (f *fakeIdentity) VerifySignIn(_ context.Context, _, code string) (string, error) {
	return f.verify(code)
}

func (f *fakeIdentity) verify(code string) (string, error) {
	if code != f.code {
		return "", errors.New("incorrect code")
	}
	return "tok-123", nil
}

type fakeAccounts struct {
	calls []string
	err   error
}

func (f *fakeAccounts) forToken(tok string) accountCreator {
	return accountFunc(func(context.Context) (*domain.Profile, error) {
		f.calls = append(f.calls, tok)
		return &domain.Profile{}, f.err
	})
}

type accountFunc func(context.Context) (*domain.Profile, error)

func (f accountFunc) CreateAccount(ctx context.Context) (*domain.Profile, error) { return f(ctx) }

func TestEmailLoginNewAccount(t *testing.T) {
	id := &fakeIdentity{code: "424242"}
	accounts := &fakeAccounts{}
	var out bytes.Buffer

	tok, err := emailLogin(context.Background(), auth.NewFlow(id), accounts.forToken,
		strings.NewReader("new@example.com\n424242\n"), &out)
	if err != nil {
		t.Fatalf("emailLogin: %v", err)
	}
	if tok != "tok-123" {
		t.Errorf("token = %q", tok)
	}
	if len(accounts.calls) != 1 || accounts.calls[0] != "tok-123" {
		t.Errorf("expected account creation with the new token, got %v", accounts.calls)
	}
	if !strings.Contains(out.String(), "Verification code sent to your email!") {
		t.Errorf("missing confirmation, got %q", out.String())
	}
	if !strings.Contains(out.String(), "Verified new@example.com") {
		t.Errorf("missing verified address, got %q", out.String())
	}
}

func TestEmailLoginExistingAccountSkipsCreate(t *testing.T) {
	id := &fakeIdentity{code: "1", existing: map[string]bool{"me@example.com": true}}
	accounts := &fakeAccounts{}

	_, err := emailLogin(context.Background(), auth.NewFlow(id), accounts.forToken,
		strings.NewReader("me@example.com\n1\n"), &bytes.Buffer{})
	if err != nil {
		t.Fatalf("emailLogin: %v", err)
	}
	if len(accounts.calls) != 0 {
		t.Errorf("expected no account creation for sign-in, got %v", accounts.calls)
	}
}

func TestEmailLoginRetriesBadCode(t *testing.T) {
	id := &fakeIdentity{code: "good"}
	var out bytes.Buffer

	tok, err := emailLogin(context.Background(), auth.NewFlow(id), (&fakeAccounts{}).forToken,
		strings.NewReader("a@b.co\nwrong\ngood\n"), &out)
	if err != nil {
		t.Fatalf("emailLogin: %v", err)
	}
	if tok == "" {
		t.Error("expected a token after the retry")
	}
	if !strings.Contains(out.String(), "Invalid verification code. Please try again.") {
		t.Errorf("expected retry hint, got %q", out.String())
	}
}

func TestEmailLoginGivesUpAfterAttempts(t *testing.T) {
	id := &fakeIdentity{code: "good"}
	_, err := emailLogin(context.Background(), auth.NewFlow(id), (&fakeAccounts{}).forToken,
		strings.NewReader("a@b.co\n1\n2\n3\n"), &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error after repeated bad codes")
	}
}

func TestEmailLoginAccountSetupFailureKeepsToken(t *testing.T) {
	id := &fakeIdentity{code: "1"}
	accounts := &fakeAccounts{err: errors.New("HTTP 500")}
	var out bytes.Buffer

	tok, err := emailLogin(context.Background(), auth.NewFlow(id), accounts.forToken,
		strings.NewReader("a@b.co\n1\n"), &out)
	if err != nil {
		t.Fatalf("emailLogin: %v", err)
	}
	if tok == "" {
		t.Error("expected token kept")
	}
	if !strings.Contains(out.String(), "Account setup incomplete. Please contact support.") {
		t.Errorf("expected setup warning, got %q", out.String())
	}
}

func TestEmailLoginInvalidEmail(t *testing.T) {
	_, err := emailLogin(context.Background(), auth.NewFlow(&fakeIdentity{}), (&fakeAccounts{}).forToken,
		strings.NewReader("not-an-email\n"), &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error for invalid email")
	}
}

type fakeChecker struct {
	mu     sync.Mutex
	authed map[string]bool
	fail   map[string]bool
	seen   []string
}

func (f *fakeChecker) CheckCookies(_ context.Context, host string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, host)
	if f.fail[host] {
		return false, errors.New("HTTP 500: down")
	}
	return f.authed[host], nil
}

func TestCheckHosts(t *testing.T) {
	fc := &fakeChecker{
		authed: map[string]bool{"github.com": true},
		fail:   map[string]bool{"broken.io": true},
	}
	hosts := []string{"https://github.com/login", "example.com", "broken.io", "a.io", "b.io", "c.io"}

	results, err := checkHosts(context.Background(), fc, hosts)
	if err != nil {
		t.Fatalf("checkHosts: %v", err)
	}
	if len(results) != len(hosts) || len(fc.seen) != len(hosts) {
		t.Fatalf("expected %d results and calls, got %d and %d", len(hosts), len(results), len(fc.seen))
	}
	if results[0].host != "github.com" || !results[0].authed {
		t.Errorf("results[0] = %+v", results[0])
	}
	if results[1].authed || results[1].err != nil {
		t.Errorf("results[1] = %+v", results[1])
	}
	if results[2].err == nil {
		t.Error("expected per-host error for broken.io")
	}

	var out bytes.Buffer
	if err := printHostStatus(&out, results); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"HOST", "github.com", "authenticated", "not authenticated", "error: HTTP 500"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("status table missing %q:\n%s", want, out.String())
		}
	}
}

func TestNormalizeHost(t *testing.T) {
	tests := map[string]string{
		"Example.COM":                "example.com",
		"https://shop.example.com/x": "shop.example.com",
		" github.com/ ":              "github.com",
	}
	for in, want := range tests {
		if got := normalizeHost(in); got != want {
			t.Errorf("normalizeHost(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPrintSessions(t *testing.T) {
	var out bytes.Buffer
	err := printSessions(&out, []domain.Session{
		{SessionID: "s1", Name: "book\na flight", Status: domain.StatusHumanInput, Cost: 1234.5},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"ID", "s1", "Help Needed", "$1,234.50", "book a flight"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("table missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := printSessions(&out, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No sessions found.") {
		t.Errorf("expected empty message, got %q", out.String())
	}
}
