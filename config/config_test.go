package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "file", cfg.Store.Driver)
	assert.True(t, cfg.Codec.StrictChecksum)
	assert.Equal(t, "127.0.0.1:8787", cfg.HTTP.Addr())
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hampton.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  timezone: UTC
store:
  driver: sqlite
  dir: /var/lib/hampton
content:
  timeout: 3s
codec:
  strict_checksum: false
`), 0o644))

	t.Setenv("HAMPTON_STORE_DRIVER", "bolt")
	t.Setenv("HAMPTON_HTTP_PORT", "9000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bolt", cfg.Store.Driver)
	assert.Equal(t, "/var/lib/hampton", cfg.Store.Dir)
	assert.Equal(t, "hampton_progress", cfg.Store.Key)
	assert.Equal(t, 9000, cfg.HTTP.Port)
	assert.Equal(t, 3*time.Second, cfg.Content.Timeout)
	assert.False(t, cfg.Codec.StrictChecksum)
	assert.Equal(t, time.UTC, cfg.App.Location)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Store, cfg.Store)
	assert.Equal(t, Default().Log, cfg.Log)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = "postgres"
	cfg.Log.Format = "xml"
	cfg.Content.Dir = "content"
	cfg.Content.BaseURL = "https://example.com"
	cfg.Store.SyncInterval = -time.Second

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
	assert.Contains(t, err.Error(), "log.format")
	assert.Contains(t, err.Error(), "mutually exclusive")
	assert.Contains(t, err.Error(), "store.sync_interval")
}

func TestLoad_BadTimezone(t *testing.T) {
	t.Setenv("HAMPTON_APP_TIMEZONE", "Mars/Olympus")
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app: {}\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "app.timezone")
}
