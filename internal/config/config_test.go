package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/apod-api/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, "apod-api", cfg.Service.Name)
	assert.Equal(t, "v1", cfg.Service.Version)
	assert.Equal(t, 8080, cfg.Service.Port)
	assert.Equal(t, "https://apod.nasa.gov/apod/", cfg.APOD.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.APOD.RequestTimeout)
	assert.Equal(t, 12*time.Hour, cfg.Cache.TTL)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
service:
  port: 9090
  debug: true
apod:
  base_url: https://mirror.example.com/apod/
  request_timeout: 5s
cache:
  enabled: true
  addr: redis:6379
  ttl: 1h
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Service.Port)
	assert.True(t, cfg.Service.Debug)
	assert.Equal(t, "https://mirror.example.com/apod/", cfg.APOD.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.APOD.RequestTimeout)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "redis:6379", cfg.Cache.Addr)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
service:
  port: 9090
cache:
  ttl: 1h
`)

	t.Setenv("APOD_PORT", "7070")
	t.Setenv("CACHE_TTL", "30m")
	t.Setenv("REDIS_ADDR", "elsewhere:6379")
	t.Setenv("APOD_DEBUG", "true")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Service.Port)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "elsewhere:6379", cfg.Cache.Addr)
	assert.True(t, cfg.Service.Debug)
}

func TestLoad_InvalidPort(t *testing.T) {
	path := writeConfig(t, `
service:
  port: 70000
`)

	_, err := config.Load(path)
	assert.ErrorContains(t, err, "invalid port")
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "service: [not a map")

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, "config.yml", config.Path("config.yml"))

	t.Setenv("CONFIG_PATH", "/etc/apod/config.yml")
	assert.Equal(t, "/etc/apod/config.yml", config.Path("config.yml"))
}
