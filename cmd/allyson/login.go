package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/allysonai/allyson/internal/browser"
	"github.com/allysonai/allyson/internal/config"
	"github.com/allysonai/allyson/pkg/auth"
	"github.com/allysonai/allyson/pkg/client"
	"github.com/allysonai/allyson/pkg/domain"
)

const loginTimeout = 2 * time.Minute

var (
	loginEmail bool
	loginNoTUI bool
)

func init() {
	loginCmd.Flags().BoolVar(&loginEmail, "email", false, "sign in with an emailed verification code instead of the browser")
	loginCmd.Flags().BoolVar(&loginNoTUI, "no-tui", false, "exit after signing in")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to Allyson",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		var tok string
		if loginEmail {
			tok, err = runEmailLogin(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		} else {
			tok, err = runBrowserLogin(ctx, cfg, cmd.OutOrStdout())
		}
		if err != nil {
			return err
		}
		if err := auth.SaveToken(cfg.TokenPath(), tok); err != nil {
			return err
		}

		// Verify by calling /v1/me.
		c := newClient(cfg)
		me, err := c.GetMe(ctx)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Token saved but verification failed: %v\n", err)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "You are signed in! Balance %s\n\n", domain.FormatAmount(me.Balance))
		if loginNoTUI {
			return nil
		}
		return launchTUI(cfg)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear your session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		removed, err := auth.RemoveToken(cfg.TokenPath())
		if err != nil {
			return err
		}
		if !removed {
			fmt.Fprintln(cmd.OutOrStdout(), "Already logged out.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account and balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := requireClient(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		me, err := c.GetMe(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetch profile: %w", err)
		}
		out := cmd.OutOrStdout()
		if me.Email != "" {
			fmt.Fprintf(out, "%s\n", me.Email)
		}
		fmt.Fprintf(out, "Balance: %s\n", domain.FormatAmount(me.Balance))
		return nil
	},
}

// runBrowserLogin opens the web app's CLI sign-in page and waits for it to
// redirect back to a localhost callback carrying a one-time code.
func runBrowserLogin(ctx context.Context, cfg *config.Config, out io.Writer) (string, error) {
	// Start ephemeral localhost server on random port.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("start callback listener: %w", err)
	}
	defer listener.Close() //nolint:errcheck

	state, err := newState()
	if err != nil {
		return "", err
	}

	web := client.New(cfg.WebURL, nil)
	exchange := func(ctx context.Context, code string) (string, error) {
		var result struct {
			Token string `json:"token"`
		}
		if err := web.Do(ctx, http.MethodPost, "/api/cli/auth/exchange", map[string]string{"code": code}, &result); err != nil {
			return "", fmt.Errorf("cli code exchange: %w", err)
		}
		if result.Token == "" {
			return "", errors.New("cli code exchange: invalid response")
		}
		return result.Token, nil
	}

	tokenCh := make(chan string, 1)
	errCh := make(chan error, 1)
	srv := &http.Server{
		Handler:           callbackRouter(state, exchange, tokenCh, errCh),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if srvErr := srv.Serve(listener); srvErr != nil && srvErr != http.ErrServerClosed {
			trySend(errCh, srvErr)
		}
	}()
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx) //nolint:errcheck
	}()

	port := listener.Addr().(*net.TCPAddr).Port
	fmt.Fprintln(out, "Opening browser to sign in...")
	browser.OpenOrPrint(loginURL(cfg.WebURL, port, state))

	select {
	case tok := <-tokenCh:
		return tok, nil
	case err := <-errCh:
		return "", fmt.Errorf("callback server error: %w", err)
	case <-time.After(loginTimeout):
		return "", errors.New("login timed out, no callback received within 2 minutes")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate login state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func loginURL(webURL string, port int, state string) string {
	params := url.Values{}
	params.Set("cli_port", strconv.Itoa(port))
	params.Set("state", state)
	return webURL + "/cli/login?" + params.Encode()
}

// callbackRouter serves GET /callback?state=&code=. A valid callback sends the
// exchanged token on tokenCh; any failure goes to errCh.
func callbackRouter(state string, exchange func(context.Context, string) (string, error), tokenCh chan<- string, errCh chan<- error) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/callback", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "invalid state", http.StatusForbidden)
			trySend(errCh, errors.New("callback state mismatch (possible CSRF)"))
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			trySend(errCh, errors.New("callback received without code"))
			return
		}
		tok, err := exchange(req.Context(), code)
		if err != nil {
			http.Error(w, "exchange failed", http.StatusBadGateway)
			trySend(errCh, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, callbackHTML) //nolint:errcheck
		trySend(tokenCh, tok)
	})
	return r
}

// trySend delivers v unless ch already holds a value. Only the first callback
// outcome is waited on.
func trySend[T any](ch chan<- T, v T) {
	select {
	case ch <- v:
	default:
	}
}

// runEmailLogin signs in with a verification code sent to the user's email.
// New identities get their backend account created before returning.
func runEmailLogin(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) (string, error) {
	return emailLogin(ctx, auth.NewFlow(auth.NewHTTPIdentity(cfg.WebURL)), func(tok string) accountCreator {
		return client.New(cfg.APIURL, auth.Static(tok))
	}, in, out)
}

type accountCreator interface {
	CreateAccount(ctx context.Context) (*domain.Profile, error)
}

const maxCodeAttempts = 3

func emailLogin(ctx context.Context, flow *auth.Flow, accounts func(tok string) accountCreator, in io.Reader, out io.Writer) (string, error) {
	reader := bufio.NewReader(in)

	email, err := prompt(reader, out, "Email: ")
	if err != nil {
		return "", err
	}
	res := flow.Start(ctx, email)
	if res.Outcome == auth.Failed {
		fmt.Fprintln(out, "Something went wrong. Please try again.")
		return "", res.Err
	}
	fmt.Fprintln(out, "Verification code sent to your email!")

	for attempt := 1; ; attempt++ {
		code, err := prompt(reader, out, "Code: ")
		if err != nil {
			return "", err
		}
		res = flow.Verify(ctx, code)
		if res.Outcome == auth.Complete {
			break
		}
		if attempt >= maxCodeAttempts {
			return "", fmt.Errorf("verification failed: %w", res.Err)
		}
		fmt.Fprintln(out, "Invalid verification code. Please try again.")
	}
	fmt.Fprintf(out, "Verified %s\n", flow.Email())

	if res.NewAccount {
		if _, err := accounts(res.Token).CreateAccount(ctx); err != nil {
			fmt.Fprintln(out, "Account setup incomplete. Please contact support.")
			fmt.Fprintf(out, "  (%v)\n", err)
		}
	}
	return res.Token, nil
}

func prompt(r *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
