// Package config loads the client configuration from ~/.allyson/config.yaml
// with environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the client configuration.
type Config struct {
	// APIURL is the base URL of the task API.
	APIURL string `yaml:"api_url"`
	// WebURL is the companion web app, used for links and sign-in only.
	WebURL string `yaml:"web_url"`
	// CDPURL is the DevTools endpoint of the browser cookies are read from.
	CDPURL   string `yaml:"cdp_url"`
	LogLevel string `yaml:"log_level"`
	PageSize int    `yaml:"page_size"`
	// Dir holds the token and log files. Not persisted.
	Dir string `yaml:"-"`
}

// Defaults.
const (
	DefaultAPIURL   = "https://api.allyson.ai"
	DefaultWebURL   = "https://app.allyson.ai"
	DefaultCDPURL   = "http://127.0.0.1:9222"
	DefaultLogLevel = "info"
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// DefaultDir returns ~/.allyson.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".allyson"), nil
}

// Default returns the built-in configuration rooted at dir.
func Default(dir string) *Config {
	return &Config{
		APIURL:   DefaultAPIURL,
		WebURL:   DefaultWebURL,
		CDPURL:   DefaultCDPURL,
		LogLevel: DefaultLogLevel,
		PageSize: DefaultPageSize,
		Dir:      dir,
	}
}

// TokenPath is where the session token is stored.
func (c *Config) TokenPath() string { return filepath.Join(c.Dir, "token") }

// LogPath is where the TUI writes its diagnostic log.
func (c *Config) LogPath() string { return filepath.Join(c.Dir, "allyson.log") }

// SessionURL is the web view of a session.
func (c *Config) SessionURL(sessionID string) string {
	return c.WebURL + "/sessions/session?id=" + url.QueryEscape(sessionID)
}

// SettingsURL is the account settings page, where the balance is topped up.
func (c *Config) SettingsURL() string { return c.WebURL + "/settings" }

// Load reads the config file at path, writing defaults when it does not
// exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default(filepath.Dir(path))

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ALLYSON_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv("ALLYSON_WEB_URL"); v != "" {
		c.WebURL = v
	}
	if v := os.Getenv("ALLYSON_CDP_URL"); v != "" {
		c.CDPURL = v
	}
	if v := os.Getenv("ALLYSON_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("ALLYSON_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ALLYSON_PAGE_SIZE: %w", err)
		}
		c.PageSize = n
	}
	return nil
}

func (c *Config) normalize() {
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	c.WebURL = strings.TrimRight(c.WebURL, "/")
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}

// Validate checks URLs and bounds.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{"api_url": c.APIURL, "web_url": c.WebURL, "cdp_url": c.CDPURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config: %s must be an http(s) URL, got %q", name, raw)
		}
	}
	if c.PageSize < 1 || c.PageSize > MaxPageSize {
		return fmt.Errorf("config: page_size must be between 1 and %d, got %d", MaxPageSize, c.PageSize)
	}
	return nil
}

// Save writes cfg to path atomically.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
