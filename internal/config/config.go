package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvProduction marks a production deployment.
const EnvProduction = "production"

type Server struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type Session struct {
	CookieName    string        `yaml:"cookie_name"`
	IdleTTL       time.Duration `yaml:"idle_ttl"`
	SecureCookies bool          `yaml:"secure_cookies"`
}

type CSRF struct {
	Key            string   `yaml:"key"` // 64 hex characters
	TrustedOrigins []string `yaml:"trusted_origins"`
	Plaintext      bool     `yaml:"plaintext"` // serving over plain HTTP
}

type Board struct {
	SeedSamples bool `yaml:"seed_samples"`
}

type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

type Config struct {
	Env                string  `yaml:"env"`
	Server             Server  `yaml:"server"`
	Session            Session `yaml:"session"`
	CSRF               CSRF    `yaml:"csrf"`
	RateLimitPerSecond int     `yaml:"rate_limit_per_second"`
	SlowRequestMs      int     `yaml:"slow_request_ms"`
	Board              Board   `yaml:"board"`
	Log                Log     `yaml:"log"`
}

// Default returns the development configuration.
func Default() *Config {
	c := &Config{Board: Board{SeedSamples: true}, CSRF: CSRF{Plaintext: true}}
	c.applyDefaults()
	return c
}

// Load reads a YAML file, applies defaults, then NOTICEBOARD_* environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "noticeboard_session"
	}
	if c.Session.IdleTTL == 0 {
		c.Session.IdleTTL = 24 * time.Hour
	}
	if len(c.CSRF.TrustedOrigins) == 0 {
		c.CSRF.TrustedOrigins = []string{"localhost:8080", "127.0.0.1:8080"}
	}
	if c.RateLimitPerSecond == 0 {
		c.RateLimitPerSecond = 10
	}
	if c.SlowRequestMs == 0 {
		c.SlowRequestMs = 200
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// applyEnv overlays NOTICEBOARD_* variables onto c.
func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("NOTICEBOARD_ENV"); v != "" {
		c.Env = v
	}
	if v := getenv("NOTICEBOARD_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getenv("NOTICEBOARD_CSRF_KEY"); v != "" {
		c.CSRF.Key = v
	}
	if v := getenv("NOTICEBOARD_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("NOTICEBOARD_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := getenv("NOTICEBOARD_SLOW_REQUEST_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("NOTICEBOARD_SLOW_REQUEST_MS must be a positive integer, got %q", v)
		}
		c.SlowRequestMs = n
	}
	if v := getenv("NOTICEBOARD_CSRF_PLAINTEXT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("NOTICEBOARD_CSRF_PLAINTEXT: %w", err)
		}
		c.CSRF.Plaintext = b
	}
	if v := getenv("NOTICEBOARD_SEED_SAMPLES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("NOTICEBOARD_SEED_SAMPLES: %w", err)
		}
		c.Board.SeedSamples = b
	}
	return nil
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	if c.CSRF.Key != "" {
		if _, err := c.CSRFKey(); err != nil {
			return err
		}
	} else if c.IsProduction() {
		return errors.New("csrf.key is required in production")
	}
	if c.IsProduction() && c.CSRF.Plaintext {
		return errors.New("csrf.plaintext must be false in production")
	}
	if c.RateLimitPerSecond <= 0 {
		return fmt.Errorf("rate_limit_per_second must be positive, got %d", c.RateLimitPerSecond)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.Log.Format)
	}
	return nil
}

// CSRFKey decodes the configured CSRF secret.
// PRE: none
// POST: returns a 32-byte key, or nil and no error when the key is unset
func (c *Config) CSRFKey() ([]byte, error) {
	if c.CSRF.Key == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.CSRF.Key)
	if err != nil || len(key) != 32 {
		return nil, errors.New("csrf.key must be 64 hex characters (32 bytes)")
	}
	return key, nil
}

// IsProduction reports whether the config targets production.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}
