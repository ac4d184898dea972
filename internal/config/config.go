package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides, e.g. TASKMGR_AUTH_SECRET.
const EnvPrefix = "TASKMGR_"

// insecureSecret is only accepted outside production.
const insecureSecret = "change-me-development-secret"

// Config keeps runtime settings for the service.
type Config struct {
	App      AppConfig      `koanf:"app"`
	HTTP     HTTPConfig     `koanf:"http"`
	Database DatabaseConfig `koanf:"db"`
	Auth     AuthConfig     `koanf:"auth"`
	Log      LogConfig      `koanf:"log"`
	Telegram TelegramConfig `koanf:"telegram"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	// Seed inserts demo users and tasks when the users table is empty.
	Seed bool `koanf:"seed"`
}

type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	Origins         []string      `koanf:"origins"`
	ReadTimeout     time.Duration `koanf:"readtimeout"`
	WriteTimeout    time.Duration `koanf:"writetimeout"`
	ShutdownTimeout time.Duration `koanf:"shutdowntimeout"`
	// LoginRate is the sustained number of token requests per second per client IP.
	LoginRate  float64 `koanf:"loginrate"`
	LoginBurst int     `koanf:"loginburst"`
	// TrustedProxies are addresses or CIDRs whose X-Forwarded-For is believed.
	TrustedProxies []string `koanf:"trustedproxies"`
}

// ProxyPrefixes parses TrustedProxies; a bare address becomes a single-host prefix.
func (h HTTPConfig) ProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(h.TrustedProxies))
	for _, raw := range h.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("http.trustedproxies: %w", err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("http.trustedproxies: %w", err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

type DatabaseConfig struct {
	// Driver is sqlite or postgres.
	Driver   string        `koanf:"driver"`
	DSN      string        `koanf:"dsn"`
	MaxOpen  int           `koanf:"maxopen"`
	MaxIdle  int           `koanf:"maxidle"`
	Lifetime time.Duration `koanf:"lifetime"`
}

type AuthConfig struct {
	Secret   string        `koanf:"secret"`
	TokenTTL time.Duration `koanf:"ttl"`
	Issuer   string        `koanf:"issuer"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type TelegramConfig struct {
	Token string `koanf:"token"`
	// Interval between digests; ignored when At is set.
	Interval time.Duration `koanf:"interval"`
	// At is a daily HH:MM digest time.
	At string `koanf:"at"`
}

// Enabled reports whether the Telegram front end should start.
func (t TelegramConfig) Enabled() bool {
	return t.Token != ""
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		App: AppConfig{
			Name:        "Smart Task Manager",
			Version:     "0.6.0",
			Environment: "development",
		},
		HTTP: HTTPConfig{
			Addr:            "0.0.0.0:8000",
			Origins:         []string{"*"},
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			LoginRate:       1,
			LoginBurst:      10,
		},
		Database: DatabaseConfig{
			Driver:   "sqlite",
			DSN:      "task_manager.db",
			MaxOpen:  20,
			MaxIdle:  5,
			Lifetime: time.Hour,
		},
		Auth: AuthConfig{
			Secret:   insecureSecret,
			TokenTTL: 24 * time.Hour,
			Issuer:   "task-manager",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Telegram: TelegramConfig{
			Interval: 5 * time.Hour,
		},
	}
}

// Load reads configuration from defaults, then the YAML file at path (if any),
// then TASKMGR_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// TASKMGR_HTTP_ADDR -> http.addr
	transform := func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "_", ".")
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", transform), nil); err != nil {
		return cfg, fmt.Errorf("load env: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("db.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("db.dsn is required")
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}
	if c.Auth.Secret == insecureSecret && c.App.Environment == "production" {
		return fmt.Errorf("auth.secret must be set in production")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.ttl must be positive")
	}
	if c.HTTP.LoginRate <= 0 || c.HTTP.LoginBurst <= 0 {
		return fmt.Errorf("http.loginrate and http.loginburst must be positive")
	}
	if _, err := c.HTTP.ProxyPrefixes(); err != nil {
		return err
	}
	return nil
}
