package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/allysonai/allyson/internal/browser"
	"github.com/allysonai/allyson/internal/config"
	"github.com/allysonai/allyson/internal/cookies"
	"github.com/allysonai/allyson/internal/logging"
	"github.com/allysonai/allyson/internal/tui"
	"github.com/allysonai/allyson/pkg/auth"
	"github.com/allysonai/allyson/pkg/client"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

var (
	flagConfig   string
	flagAPIURL   string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "allyson",
	Short: "Start and browse Allyson automation sessions",
	Long: `allyson starts browser automation sessions, lists past sessions and shares
website logins with Allyson.

Run without a command to open the interactive view.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := "warn"
		if flagLogLevel != "" {
			level = flagLogLevel
		}
		logging.ToStderr(level)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd.Context())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default ~/.allyson/config.yaml)")
	pf.StringVar(&flagAPIURL, "api-url", "", "API base URL (overrides config and ALLYSON_API_URL)")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "allyson "+version)
	},
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	path := flagConfig
	if path == "" {
		dir, err := config.DefaultDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if flagAPIURL != "" {
		cfg.APIURL = strings.TrimRight(flagAPIURL, "/")
	}
	if flagLogLevel != "" {
		cfg.LogLevel = strings.ToLower(flagLogLevel)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func tokenSource(cfg *config.Config) auth.FileSource {
	return auth.FileSource{Path: cfg.TokenPath()}
}

func newClient(cfg *config.Config) *client.Client {
	return client.New(cfg.APIURL, tokenSource(cfg))
}

// requireClient returns a client for commands that need a signed-in user.
func requireClient(ctx context.Context, cfg *config.Config) (*client.Client, error) {
	if _, err := tokenSource(cfg).Token(ctx); err != nil {
		if errors.Is(err, auth.ErrNoToken) {
			return nil, errors.New("not signed in, run: allyson login")
		}
		return nil, err
	}
	return newClient(cfg), nil
}

func runTUI(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if _, err := tokenSource(cfg).Token(ctx); errors.Is(err, auth.ErrNoToken) {
		printSignedOutGreeting()
		return nil
	}
	c := newClient(cfg)
	// Only force re-login on actual auth failures (401), not transient errors.
	if _, err := c.GetMe(ctx); client.IsUnauthorized(err) {
		printSignedOutGreeting()
		return nil
	}
	return launchTUI(cfg)
}

// launchTUI moves logging to the log file and runs the interactive view. The
// API client it builds logs to the same file.
func launchTUI(cfg *config.Config) error {
	logger, logFile, err := logging.ToFile(cfg.LogPath(), cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logFile.Close() //nolint:errcheck
	c := client.New(cfg.APIURL, tokenSource(cfg), client.WithLogger(logger))

	cdp := cookies.NewCDP(cfg.CDPURL)
	defer cdp.Close() //nolint:errcheck

	app := tui.NewApp(tui.Options{
		API:         c,
		Cookies:     cookies.NewCapturer(cdp),
		Open:        browser.Open,
		Copy:        clipboard.WriteAll,
		SessionURL:  cfg.SessionURL,
		SettingsURL: cfg.SettingsURL(),
		PageSize:    cfg.PageSize,
		Version:     version,
	})

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}
