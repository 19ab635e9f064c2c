package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir()) // no config file present

	cfg, err := Load(newTestLogger(), "presenced")
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.Server.Address)
	assert.Equal(t, "presenced", cfg.Server.Name)
	assert.Equal(t, []string{"localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.Server.Auth.Timeout)
	assert.Equal(t, 5, cfg.Server.ConnectionLimit.MaxPerIdentity)
	assert.Equal(t, "cycle", cfg.Server.ConnectionLimit.Mode)
	assert.Equal(t, 5*time.Minute, cfg.Presence.StaleAfter)
	assert.Equal(t, 30*time.Second, cfg.Health.Interval)
	assert.Equal(t, int64(2000), cfg.Health.PingThreshold.DegradedMs)
	assert.Equal(t, int64(5000), cfg.Health.PingThreshold.UnhealthyMs)
	assert.Equal(t, 2, cfg.Search.MinQueryLength)
	assert.Equal(t, 10, cfg.Search.TotalLimit)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Empty(t, cfg.Bridge.NATSUrl, "bridge is off by default")
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  address: ":9100"
  connectionLimit:
    maxPerIdentity: 2
    mode: reject
presence:
  staleAfter: 90s
bridge:
  natsUrl: nats://localhost:4222
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "presenced.yaml"), yaml, 0o644))
	chdir(t, dir)

	cfg, err := Load(newTestLogger(), "presenced")
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.Address)
	assert.Equal(t, 2, cfg.Server.ConnectionLimit.MaxPerIdentity)
	assert.Equal(t, "reject", cfg.Server.ConnectionLimit.Mode)
	assert.Equal(t, 90*time.Second, cfg.Presence.StaleAfter)
	assert.Equal(t, "nats://localhost:4222", cfg.Bridge.NATSUrl)
	// untouched keys keep their defaults
	assert.Equal(t, 5, cfg.Search.PerTypeLimit)
}

func TestLoadEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PRESENCED_REDIS_ADDR", "redis-prod:6379")

	cfg, err := Load(newTestLogger(), "presenced")
	require.NoError(t, err)
	assert.Equal(t, "redis-prod:6379", cfg.Redis.Addr)
}
