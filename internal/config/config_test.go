package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipca-labs/aquasentry/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://api.telegram.org", cfg.Telegram.APIBase)
	assert.Equal(t, "30s", cfg.Telegram.PollTimeout)
	assert.Equal(t, "10s", cfg.Dispatch.Timeout)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, "30s", cfg.Server.ReadTimeout)
	assert.Equal(t, "60s", cfg.Server.WriteTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.NotEmpty(t, cfg.Store.Dir)
	assert.NotEmpty(t, cfg.History.Path)
	assert.Empty(t, cfg.Telegram.Token, "no credential ships by default")
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	data := []byte(`
telegram:
  token: "123456:test-token"
  poll_timeout: 45s
store:
  dir: /tmp/aquasentry-state
server:
  listen: ":9090"
logging:
  level: debug
`)
	err := os.WriteFile(cfgPath, data, 0o644)
	require.NoError(t, err)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "123456:test-token", cfg.Telegram.Token)
	assert.Equal(t, "45s", cfg.Telegram.PollTimeout)
	assert.Equal(t, "/tmp/aquasentry-state", cfg.Store.Dir)
	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AQUASENTRY_TELEGRAM_TOKEN", "env-token")
	t.Setenv("AQUASENTRY_LOGGING_LEVEL", "error")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	err := os.WriteFile(cfgPath, []byte("invalid: [yaml"), 0o644)
	require.NoError(t, err)

	_, err = config.Load(cfgPath)
	assert.Error(t, err)
}
