package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Telegram.Enabled())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
app:
  environment: staging
http:
  addr: 127.0.0.1:9000
auth:
  secret: from-file
  ttl: 2h
log:
  level: debug
telegram:
  token: abc
  at: "08:30"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("TASKMGR_AUTH_SECRET", "from-env")
	t.Setenv("TASKMGR_DB_MAXOPEN", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
	assert.Equal(t, "from-env", cfg.Auth.Secret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 3, cfg.Database.MaxOpen)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Telegram.Enabled())
	assert.Equal(t, "08:30", cfg.Telegram.At)
	// untouched keys keep their defaults
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"empty dsn", func(c *Config) { c.Database.DSN = " " }},
		{"empty secret", func(c *Config) { c.Auth.Secret = "" }},
		{"default secret in production", func(c *Config) { c.App.Environment = "production" }},
		{"zero ttl", func(c *Config) { c.Auth.TokenTTL = 0 }},
		{"zero login burst", func(c *Config) { c.HTTP.LoginBurst = 0 }},
		{"bad trusted proxy", func(c *Config) { c.HTTP.TrustedProxies = []string{"10.0.0.0/33"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o600))

	changes := make(chan Config, 16)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w, err := NewWatcher(path, logger, func(cfg Config) {
		select {
		case changes <- cfg:
		default:
		}
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))

	// truncation and write may arrive as separate events
	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changes:
			if cfg.Log.Level == "debug" {
				return
			}
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}

func TestProxyPrefixes(t *testing.T) {
	h := HTTPConfig{TrustedProxies: []string{"10.1.2.3", " 192.168.0.0/16 ", "::1"}}
	prefixes, err := h.ProxyPrefixes()
	require.NoError(t, err)
	require.Len(t, prefixes, 3)
	assert.Equal(t, "10.1.2.3/32", prefixes[0].String())
	assert.Equal(t, "192.168.0.0/16", prefixes[1].String())
	assert.Equal(t, "::1/128", prefixes[2].String())

	_, err = HTTPConfig{TrustedProxies: []string{"proxy.local"}}.ProxyPrefixes()
	assert.Error(t, err)
}
