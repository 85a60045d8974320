package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "noticeboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "noticeboard_session", cfg.Session.CookieName)
	assert.Equal(t, 24*time.Hour, cfg.Session.IdleTTL)
	assert.True(t, cfg.Board.SeedSamples)
	assert.True(t, cfg.CSRF.Plaintext)
	assert.Equal(t, 10, cfg.RateLimitPerSecond)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"server:",
		"  addr: \":9000\"",
		"  read_timeout: 2s",
		"session:",
		"  idle_ttl: 30m",
		"board:",
		"  seed_samples: false",
		"log:",
		"  format: json",
	}, "\n"))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout, "unset fields keep defaults")
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)
	assert.False(t, cfg.Board.SeedSamples)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NOTICEBOARD_ADDR", ":7070")
	t.Setenv("NOTICEBOARD_SEED_SAMPLES", "false")
	t.Setenv("NOTICEBOARD_SLOW_REQUEST_MS", "50")

	cfg, err := Load(writeConfig(t, "server:\n  addr: \":9000\"\n"))
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.False(t, cfg.Board.SeedSamples)
	assert.Equal(t, 50, cfg.SlowRequestMs)
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("NOTICEBOARD_SLOW_REQUEST_MS", "fast")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse yaml")
}

func TestValidate_ProductionRequiresKey(t *testing.T) {
	cfg := Default()
	cfg.Env = EnvProduction
	require.Error(t, cfg.Validate())

	cfg.CSRF.Key = validKey
	cfg.CSRF.Plaintext = false
	require.NoError(t, cfg.Validate())
}

func TestValidate_ProductionRejectsPlaintextCSRF(t *testing.T) {
	cfg := Default()
	cfg.Env = EnvProduction
	cfg.CSRF.Key = validKey

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csrf.plaintext")

	cfg.Env = "development"
	assert.NoError(t, cfg.Validate(), "plaintext stays allowed outside production")
}

func TestValidate_RateLimitMustBePositive(t *testing.T) {
	for _, rate := range []int{0, -5} {
		cfg := Default()
		cfg.RateLimitPerSecond = rate
		err := cfg.Validate()
		require.Error(t, err, "rate %d", rate)
		assert.Contains(t, err.Error(), "rate_limit_per_second")
	}
}

func TestLoad_ProductionFromEnv(t *testing.T) {
	t.Setenv("NOTICEBOARD_ENV", "production")
	t.Setenv("NOTICEBOARD_CSRF_KEY", validKey)

	_, err := Load("")
	require.Error(t, err, "plaintext default must not pass in production")

	t.Setenv("NOTICEBOARD_CSRF_PLAINTEXT", "false")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.CSRF.Plaintext)
}

func TestLoad_NegativeRateLimit(t *testing.T) {
	_, err := Load(writeConfig(t, "rate_limit_per_second: -1\n"))
	require.Error(t, err)
}

func TestCSRFKey(t *testing.T) {
	cfg := Default()

	key, err := cfg.CSRFKey()
	require.NoError(t, err)
	assert.Nil(t, key)

	cfg.CSRF.Key = validKey
	key, err = cfg.CSRFKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)

	cfg.CSRF.Key = "abcd"
	_, err = cfg.CSRFKey()
	require.Error(t, err)
}

func TestValidate_LogSettings(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Log.Format = "xml"
	require.Error(t, cfg.Validate())
}
