package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bytenews.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000/api", cfg.APIURL)
	assert.Equal(t, SourceAPI, cfg.Source)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "@every 15m", cfg.RefreshSchedule)
	assert.Equal(t, "/content", cfg.Endpoints.Content)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
api_url: https://news.example.com/api
source: rss
cache_ttl: 5m
refresh_schedule: "*/10 * * * *"
endpoints:
  content: /news
  preferences: /user/preferences
log_format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://news.example.com/api", cfg.APIURL)
	assert.Equal(t, SourceRSS, cfg.Source)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "/news", cfg.Endpoints.Content)
	assert.Equal(t, "/user/preferences", cfg.Endpoints.Preferences)
	assert.Equal(t, "/chat", cfg.Endpoints.Chat)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("BYTENEWS_API_URL", "http://127.0.0.1:9000/api")
	t.Setenv("BYTENEWS_SOURCE", "rss")
	t.Setenv("BYTENEWS_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, "api_url: http://file.example/api\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9000/api", cfg.APIURL)
	assert.Equal(t, SourceRSS, cfg.Source)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative api url", func(c *Config) { c.APIURL = "/api" }},
		{"unknown source", func(c *Config) { c.Source = "carrier-pigeon" }},
		{"bad schedule", func(c *Config) { c.RefreshSchedule = "every so often" }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }},
		{"negative ttl", func(c *Config) { c.CacheTTL = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.RefreshSchedule = "off"
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "api_url: [unterminated"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"

	log := cfg.NewLogger(&buf)
	log.Info("hidden")
	log.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)
}
