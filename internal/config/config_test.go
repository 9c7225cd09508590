package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
dsn: "user:pass@tcp(localhost:3306)/quillmark?parseTime=true"
redis_url: "redis://localhost:6379/0"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2333, cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, time.Minute, cfg.Publishing.SweepInterval())
	assert.Equal(t, 10*time.Minute, cfg.Publishing.RetryWindow())
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
port: 8080
env: development
dsn: "user:pass@tcp(localhost:3306)/quillmark?parseTime=true"
redis_url: "redis://localhost:6379/0"
publishing:
  sweep_interval_seconds: 30
  retry_window_seconds: 120
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, 30*time.Second, cfg.Publishing.SweepInterval())
	assert.Equal(t, 2*time.Minute, cfg.Publishing.RetryWindow())
}

func TestLoadRejectsMissingRequirements(t *testing.T) {
	_, err := Load(writeConfig(t, `redis_url: "redis://localhost:6379/0"`))
	assert.ErrorContains(t, err, "dsn is required")

	_, err = Load(writeConfig(t, `dsn: "user:pass@tcp(localhost)/db"`))
	assert.ErrorContains(t, err, "redis_url is required")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
