package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultTimeout, cfg.API.Timeout)
	assert.Equal(t, DefaultPageSize, cfg.API.PageSize)
	assert.Equal(t, DefaultSessionTTL, cfg.API.SessionTTL)
	assert.Equal(t, DefaultCacheTTL, cfg.Cache.TTL)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.NotEmpty(t, cfg.Data.Dir)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, DefaultListen, cfg.Metrics.Listen)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://api.example.com/v1
  timeout: 45s
  page_size: 100
auth:
  email: sync@example.com
  workspace_id: "ws-100"
logging:
  level: debug
data:
  dir: `+dir+`
  workbook: racks.json
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1", cfg.API.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.API.Timeout)
	assert.Equal(t, 100, cfg.API.PageSize)
	assert.Equal(t, "sync@example.com", cfg.Auth.Email)
	assert.Equal(t, "ws-100", cfg.Auth.WorkspaceID)
	assert.Equal(t, "DEBUG", cfg.Logging.Level, "level is upper-cased")
	assert.Equal(t, "racks.json", cfg.Data.Workbook)
	// unset fields still default
	assert.Equal(t, DefaultSessionTTL, cfg.API.SessionTTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("BOMCTL_API_BASE_URL", "https://env.example.com/v1")
	t.Setenv("BOMCTL_AUTH_EMAIL", "env@example.com")
	t.Setenv("BOMCTL_LOGGING_LEVEL", "error")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/v1", cfg.API.BaseURL)
	assert.Equal(t, "env@example.com", cfg.Auth.Email)
	assert.Equal(t, "ERROR", cfg.Logging.Level, "env spelling is normalized")
}

func TestLoadRejectsBadURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: not-a-url\n"), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a valid URL")
}

func TestLoadRejectsBadLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: LOUD\n"), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Logging.Level")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unclosed"), 0600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.API.BaseURL = "https://api.example.com/v1"
	cfg.Auth.Email = "sync@example.com"
	require.NoError(t, SaveConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.API.BaseURL, loaded.API.BaseURL)
	assert.Equal(t, cfg.Auth.Email, loaded.Auth.Email)
}

func TestValidateEmail(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Auth.Email = "not-an-address"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid email")
}

func TestDurationDecodeHook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  ttl: 12h\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, cfg.Cache.TTL)
}
