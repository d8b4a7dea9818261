// Package config loads the builder server configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cdrslab/fundam-builder/internal/action"
)

// Config holds the full server configuration.
type Config struct {
	Port int       `yaml:"port"`
	DSN  string    `yaml:"dsn"`
	Log  LogConfig `yaml:"log"`

	Session SessionConfig `yaml:"session"`

	PlacementInset int  `yaml:"placement_inset"` // inside-drop band in pixels
	StableIDs      bool `yaml:"stable_ids"`      // keep node ids across source edits

	PreviewLatency time.Duration `yaml:"preview_latency"` // simulated API call delay
	LiveAPIs       bool          `yaml:"live_apis"`       // call configured API URLs over HTTP

	APIs   []action.API   `yaml:"apis"`
	Modals []action.Modal `yaml:"modals"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // text or json
}

// SessionConfig bounds builder session lifetimes. A zero duration disables
// that expiry.
type SessionConfig struct {
	MaxAge          time.Duration `yaml:"max_age"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// Default returns sane defaults.
func Default() *Config {
	return &Config{
		Port: 8080,
		DSN:  "file:fundam.db?_pragma=foreign_keys(1)",
		Log:  LogConfig{Level: "info", Format: "text"},
		Session: SessionConfig{
			MaxAge:          24 * time.Hour,
			IdleTimeout:     30 * time.Minute,
			CleanupInterval: time.Minute,
		},
		PlacementInset: 20,
		PreviewLatency: 300 * time.Millisecond,
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path or a missing file leaves the
// defaults in place.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Port = p
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.DSN = v
	}
	if v := getenv("FUNDAM_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("FUNDAM_PREVIEW_LATENCY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FUNDAM_PREVIEW_LATENCY: %w", err)
		}
		c.PreviewLatency = d
	}
	return nil
}

// Validate checks that values are sane.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	if _, err := c.level(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format %q (use text or json)", c.Log.Format)
	}
	if c.PlacementInset < 0 {
		return fmt.Errorf("placement_inset must be >= 0")
	}
	if c.PreviewLatency < 0 {
		return fmt.Errorf("preview_latency must be >= 0")
	}
	if c.Session.CleanupInterval <= 0 {
		return fmt.Errorf("session.cleanup_interval must be > 0")
	}

	seen := make(map[string]bool)
	for i, a := range c.APIs {
		if a.ID == "" {
			return fmt.Errorf("apis[%d]: id is required", i)
		}
		if seen[a.ID] {
			return fmt.Errorf("apis[%d]: duplicate id %q", i, a.ID)
		}
		seen[a.ID] = true
		if c.LiveAPIs && a.URL == "" {
			return fmt.Errorf("apis[%d]: url is required with live_apis", i)
		}
	}
	clear(seen)
	for i, m := range c.Modals {
		if m.ID == "" {
			return fmt.Errorf("modals[%d]: id is required", i)
		}
		if seen[m.ID] {
			return fmt.Errorf("modals[%d]: duplicate id %q", i, m.ID)
		}
		seen[m.ID] = true
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	var l slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return l, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// Logger builds the process logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	l, _ := c.level()
	opts := &slog.HandlerOptions{Level: l}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Catalog returns the configured APIs and modals for the action executor.
func (c *Config) Catalog() *action.StaticCatalog {
	return action.NewCatalog(c.APIs, c.Modals)
}

// Caller returns the API caller for button actions: simulated calls by
// default, real HTTP requests when live_apis is set.
func (c *Config) Caller() action.Caller {
	if c.LiveAPIs {
		return action.HTTPCaller{}
	}
	return action.SimulatedCaller{Latency: c.PreviewLatency}
}
