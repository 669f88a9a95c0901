package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/allysonai/allyson/internal/cookies"
)

// maxStatusChecks bounds concurrent cookie status requests.
const maxStatusChecks = 4

func init() {
	cookiesCmd.AddCommand(cookiesStatusCmd, cookiesSaveCmd, cookiesUpdateCmd, cookiesDeleteCmd)
	rootCmd.AddCommand(cookiesCmd)
}

var cookiesCmd = &cobra.Command{
	Use:   "cookies",
	Short: "Share website logins with Allyson",
	Long: `Share website logins with Allyson.

Cookies are read from a running Chrome or Chromium started with
--remote-debugging-port (see cdp_url in the config file).`,
}

// cookieChecker is the part of the API the cookie commands use.
type cookieChecker interface {
	CheckCookies(ctx context.Context, host string) (bool, error)
}

type hostStatus struct {
	host   string
	authed bool
	err    error
}

var cookiesStatusCmd = &cobra.Command{
	Use:   "status [host...]",
	Short: "Show whether Allyson holds cookies for each host (default: the active tab)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := requireClient(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		hosts := args
		if len(hosts) == 0 {
			cdp := cookies.NewCDP(cfg.CDPURL)
			defer cdp.Close() //nolint:errcheck
			host, err := cookies.NewCapturer(cdp).ActiveHost(cmd.Context())
			if err != nil {
				return err
			}
			hosts = []string{host}
		}
		results, err := checkHosts(cmd.Context(), c, hosts)
		if err != nil {
			return err
		}
		return printHostStatus(cmd.OutOrStdout(), results)
	},
}

// checkHosts checks every host concurrently. Per-host failures are reported
// in the result rather than aborting the others.
func checkHosts(ctx context.Context, c cookieChecker, hosts []string) ([]hostStatus, error) {
	results := make([]hostStatus, len(hosts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxStatusChecks)
	for i, h := range hosts {
		host := normalizeHost(h)
		g.Go(func() error {
			ok, err := c.CheckCookies(ctx, host)
			results[i] = hostStatus{host: host, authed: ok, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func printHostStatus(out io.Writer, results []hostStatus) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HOST\tSTATUS")
	for _, r := range results {
		status := "not authenticated"
		switch {
		case r.err != nil:
			status = "error: " + r.err.Error()
		case r.authed:
			status = "authenticated"
		}
		fmt.Fprintf(w, "%s\t%s\n", r.host, status)
	}
	return w.Flush()
}

// normalizeHost accepts a bare hostname or a URL.
func normalizeHost(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "://") {
		if h, err := cookies.HostFromURL(s); err == nil {
			return h
		}
	}
	return strings.ToLower(strings.TrimSuffix(s, "/"))
}

var cookiesSaveCmd = &cobra.Command{
	Use:   "save <host>",
	Short: "Capture the browser's cookies for host and save them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return captureAndSend(cmd, normalizeHost(args[0]), false)
	},
}

var cookiesUpdateCmd = &cobra.Command{
	Use:   "update <host>",
	Short: "Re-capture the browser's cookies for host",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return captureAndSend(cmd, normalizeHost(args[0]), true)
	},
}

func captureAndSend(cmd *cobra.Command, host string, update bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := requireClient(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	cdp := cookies.NewCDP(cfg.CDPURL)
	defer cdp.Close() //nolint:errcheck

	bundle, err := cookies.NewCapturer(cdp).Capture(cmd.Context(), host)
	if err != nil {
		return fmt.Errorf("get cookies: %w", err)
	}
	if len(bundle.Cookies) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: the browser holds no cookies for %s\n", host)
	}

	send, done := c.SaveCookies, "Website saved successfully"
	if update {
		send, done = c.UpdateCookies, "Website updated successfully"
	}
	if err := send(cmd.Context(), bundle); err != nil {
		return fmt.Errorf("send cookies: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d cookies for %s)\n", done, len(bundle.Cookies), host)
	return nil
}

var cookiesDeleteCmd = &cobra.Command{
	Use:     "delete <host>",
	Aliases: []string{"disconnect"},
	Short:   "Delete the cookies Allyson holds for host",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := requireClient(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		host := normalizeHost(args[0])
		if err := c.DeleteCookies(cmd.Context(), host); err != nil {
			return fmt.Errorf("delete cookies: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Website disconnected successfully (%s)\n", host)
		return nil
	},
}
