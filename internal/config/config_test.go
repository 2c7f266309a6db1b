package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 6, cfg.OTP.Length)
	assert.Equal(t, 10*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, cfg.JWT.Secret, cfg.Audit.SigningKey)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PERMISSION_CACHE_TTL", "90s")
	t.Setenv("PERMISSION_CACHE_BACKEND", "memory")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("AUDIT_OFFLOAD", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.True(t, cfg.Audit.Offload)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := LoadTestConfig()
	cfg.Cache.Backend = "memcached"
	cfg.Worker.PurgeSchedule = "every tuesday"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PERMISSION_CACHE_BACKEND")
	assert.Contains(t, err.Error(), "WORKER_PURGE_SCHEDULE")
}

func TestLoadTestConfigIsValid(t *testing.T) {
	assert.NoError(t, LoadTestConfig().Validate())
}

func TestSaveRedactsSecrets(t *testing.T) {
	cfg := LoadTestConfig()
	path := filepath.Join(t.TempDir(), "config.json")

	require.NoError(t, cfg.Save(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "test-secret")
	assert.Equal(t, "test-secret", cfg.JWT.Secret)
}
