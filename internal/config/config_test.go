package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ALLYSON_API_URL", "ALLYSON_WEB_URL", "ALLYSON_CDP_URL", "ALLYSON_LOG_LEVEL", "ALLYSON_PAGE_SIZE"} {
		t.Setenv(k, "")
	}
}

func TestLoadWritesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, DefaultWebURL, cfg.WebURL)
	assert.Equal(t, DefaultPageSize, cfg.PageSize)
	assert.Equal(t, filepath.Dir(path), cfg.Dir)
	assert.FileExists(t, path)

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: http://localhost:8080/\npage_size: 20\nlog_level: DEBUG\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.APIURL)
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DefaultWebURL, cfg.WebURL, "unset keys keep defaults")

	t.Setenv("ALLYSON_API_URL", "https://staging.allyson.ai")
	t.Setenv("ALLYSON_PAGE_SIZE", "5")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://staging.allyson.ai", cfg.APIURL)
	assert.Equal(t, 5, cfg.PageSize)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{"bad url", "api_url: ftp://example.com\n", nil},
		{"page size too big", "page_size: 500\n", nil},
		{"page size zero", "page_size: 0\n", nil},
		{"env page size not a number", "", map[string]string{"ALLYSON_PAGE_SIZE": "ten"}},
		{"malformed yaml", "api_url: [\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestURLs(t *testing.T) {
	cfg := Default("/tmp/allyson")
	assert.Equal(t, "https://app.allyson.ai/sessions/session?id=abc+1", cfg.SessionURL("abc 1"))
	assert.Equal(t, "https://app.allyson.ai/settings", cfg.SettingsURL())
	assert.Equal(t, "/tmp/allyson/token", cfg.TokenPath())
	assert.Equal(t, "/tmp/allyson/allyson.log", cfg.LogPath())
}
