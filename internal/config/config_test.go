package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdrslab/fundam-builder/internal/action"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"PORT", "DATABASE_URL", "FUNDAM_LOG_LEVEL", "FUNDAM_PREVIEW_LATENCY"} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fundam.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 20, cfg.PlacementInset)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
port: 9090
log:
  level: debug
  format: json
session:
  max_age: 2h
  idle_timeout: 5m
placement_inset: 12
stable_ids: true
preview_latency: 50ms
apis:
  - id: users
    method: GET
    url: https://example.test/users
    mock:
      total: 2
modals:
  - id: edit
    title: Edit user
    node_id: dlg
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, time.Minute, cfg.Session.CleanupInterval, "unset keys keep defaults")
	assert.Equal(t, 12, cfg.PlacementInset)
	assert.True(t, cfg.StableIDs)
	assert.Equal(t, action.SimulatedCaller{Latency: 50 * time.Millisecond}, cfg.Caller())

	cat := cfg.Catalog()
	api, ok := cat.API("users")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"total": 2}, api.Mock)
	m, ok := cat.Modal("edit")
	require.True(t, ok)
	assert.Equal(t, "dlg", m.Target())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("FUNDAM_LOG_LEVEL", "warn")
	t.Setenv("FUNDAM_PREVIEW_LATENCY", "0s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "file:test.db", cfg.DSN)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Zero(t, cfg.PreviewLatency)
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("PORT", "eighty")
	_, err := Load("")
	assert.ErrorContains(t, err, "PORT")
}

func TestLoad_MalformedFile(t *testing.T) {
	_, err := Load(writeFile(t, "port: [1"))
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Port = 0 }, "port"},
		{"level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"inset", func(c *Config) { c.PlacementInset = -1 }, "placement_inset"},
		{"api id", func(c *Config) { c.APIs = []action.API{{}} }, "apis[0]: id"},
		{"api dup", func(c *Config) { c.APIs = []action.API{{ID: "a"}, {ID: "a"}} }, "duplicate"},
		{"live url", func(c *Config) { c.LiveAPIs = true; c.APIs = []action.API{{ID: "a"}} }, "url is required"},
		{"modal dup", func(c *Config) { c.Modals = []action.Modal{{ID: "m"}, {ID: "m"}} }, "modals[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.Log = LogConfig{Level: "warn", Format: "json"}
	log := cfg.Logger(&buf)
	log.Info("hidden")
	log.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
