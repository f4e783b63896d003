package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	remote, err := cfg.GetRemote()
	require.NoError(t, err)
	assert.Equal(t, "http", remote.Provider)
	assert.Equal(t, 10*time.Second, remote.Timeout)

	cache, err := cfg.GetCache()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cache.Type)
	assert.Equal(t, 24*time.Hour, cache.TTL)
	assert.Equal(t, time.Hour, cache.CleanupFrequency)
	assert.Equal(t, 10000, cache.MaxEntries)

	notifications, err := cfg.GetNotifications()
	require.NoError(t, err)
	assert.Equal(t, "all", notifications.Level)
	assert.Equal(t, "log", notifications.Channel)

	overrides, err := cfg.GetWeightOverrides()
	require.NoError(t, err)
	assert.Empty(t, overrides)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phishguard.yaml")
	yaml := `
remote:
  provider: openai
  timeout: 2s
cache:
  type: redis
  max_entries: 50
scoring:
  weights:
    hasIpAddress: 0.5
    isNotHttps: 0.1
trusted_hosts:
  - example.com
notifications:
  level: high
  smtp:
    to: [soc@example.com]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	remote, err := cfg.GetRemote()
	require.NoError(t, err)
	assert.Equal(t, "openai", remote.Provider)
	assert.Equal(t, 2*time.Second, remote.Timeout)

	cache, err := cfg.GetCache()
	require.NoError(t, err)
	assert.Equal(t, "redis", cache.Type)
	assert.Equal(t, 50, cache.MaxEntries)

	overrides, err := cfg.GetWeightOverrides()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, overrides["hasipaddress"], 1e-9)
	assert.InDelta(t, 0.1, overrides["isnothttps"], 1e-9)

	assert.Equal(t, []string{"example.com"}, cfg.GetTrustedHosts())

	notifications, err := cfg.GetNotifications()
	require.NoError(t, err)
	assert.Equal(t, "high", notifications.Level)
	assert.Equal(t, []string{"soc@example.com"}, notifications.SMTP.To)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("PHISHGUARD_CACHE_TYPE", "memory")

	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.GetString("cache.type"))
}

func TestInvalidDuration(t *testing.T) {
	v := NewEmptyViper()
	v.Set("cache.ttl", "soon")
	_, err := NewFromViper(v).GetCache()
	assert.Error(t, err)
}
