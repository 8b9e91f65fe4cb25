package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"bytenews/internal/api"
)

const (
	SourceAPI = "api"
	SourceRSS = "rss"
)

// Config holds all application configuration.
type Config struct {
	APIURL          string        `yaml:"api_url"`
	Endpoints       api.Endpoints `yaml:"endpoints"`
	Timeout         time.Duration `yaml:"timeout"`
	Source          string        `yaml:"source"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	RefreshSchedule string        `yaml:"refresh_schedule"`
	ExtractTimeout  time.Duration `yaml:"extract_timeout"`
	StatePath       string        `yaml:"state_path"`
	StubAddr        string        `yaml:"stub_addr"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads configuration from a YAML file, applies defaults and
// environment overrides, and validates the result. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// GetConfigPath returns the config file path from environment or default.
func GetConfigPath() string {
	return getEnvOrDefault("BYTENEWS_CONFIG", "./bytenews.yaml")
}

func applyDefaults(cfg *Config) {
	if cfg.APIURL == "" {
		cfg.APIURL = "http://localhost:5000/api"
	}
	def := api.DefaultEndpoints()
	if cfg.Endpoints.Login == "" {
		cfg.Endpoints.Login = def.Login
	}
	if cfg.Endpoints.Register == "" {
		cfg.Endpoints.Register = def.Register
	}
	if cfg.Endpoints.Preferences == "" {
		cfg.Endpoints.Preferences = def.Preferences
	}
	if cfg.Endpoints.Content == "" {
		cfg.Endpoints.Content = def.Content
	}
	if cfg.Endpoints.Chat == "" {
		cfg.Endpoints.Chat = def.Chat
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Source == "" {
		cfg.Source = SourceAPI
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	if cfg.RefreshSchedule == "" {
		cfg.RefreshSchedule = "@every 15m"
	}
	if cfg.ExtractTimeout == 0 {
		cfg.ExtractTimeout = 15 * time.Second
	}
	if cfg.StubAddr == "" {
		cfg.StubAddr = ":5000"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
}

func applyEnvironmentOverrides(cfg *Config) {
	cfg.APIURL = getEnvOrDefault("BYTENEWS_API_URL", cfg.APIURL)
	cfg.Source = getEnvOrDefault("BYTENEWS_SOURCE", cfg.Source)
	cfg.StatePath = getEnvOrDefault("BYTENEWS_STATE_PATH", cfg.StatePath)
	cfg.StubAddr = getEnvOrDefault("BYTENEWS_STUB_ADDR", cfg.StubAddr)
	cfg.LogLevel = getEnvOrDefault("BYTENEWS_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("BYTENEWS_LOG_FORMAT", cfg.LogFormat)
	cfg.RefreshSchedule = getEnvOrDefault("BYTENEWS_REFRESH_SCHEDULE", cfg.RefreshSchedule)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("api_url must be an absolute http(s) URL, got %q", c.APIURL)
	}
	if c.Source != SourceAPI && c.Source != SourceRSS {
		return fmt.Errorf("source must be %q or %q, got %q", SourceAPI, SourceRSS, c.Source)
	}
	if c.Timeout < 0 || c.CacheTTL < 0 || c.ExtractTimeout < 0 {
		return errors.New("durations must not be negative")
	}
	// "off" disables automatic refresh.
	if c.RefreshSchedule != "off" {
		if _, err := cron.ParseStandard(c.RefreshSchedule); err != nil {
			return fmt.Errorf("invalid refresh_schedule %q: %w", c.RefreshSchedule, err)
		}
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// NewLogger builds the structured logger described by the config.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log_level %q", s)
}
