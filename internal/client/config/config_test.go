package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "./data", c.DataDir)
	assert.Equal(t, "http://127.0.0.1:8080", c.RemoteEndpoint)
	assert.Equal(t, "vault", c.DataSource)
	assert.Equal(t, "mediavault", c.Database)
	assert.Equal(t, 30*time.Second, c.SyncInterval)
	assert.True(t, c.LocalFallback)
	assert.Empty(t, c.APIKey)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "http://127.0.0.1:8080", cfg.RemoteEndpoint)
	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
}

func TestEnvSecrets(t *testing.T) {
	t.Setenv("MEDIAVAULT_API_KEY", "k-123")
	t.Setenv("MEDIAVAULT_LEGACY_SECRET", "pepper")
	t.Setenv("MEDIAVAULT_SEED_ADMIN_PASSWORD", "admin-pw")
	t.Setenv("MEDIAVAULT_SEED_TEST_PASSWORD", "test-pw")

	cfg := &Config{}
	parseEnvSecrets(cfg)

	assert.Equal(t, "k-123", cfg.APIKey)
	assert.Equal(t, "pepper", cfg.LegacySecret)
	assert.Equal(t, "admin-pw", cfg.SeedAdminPassword)
	assert.Equal(t, "test-pw", cfg.SeedTestPassword)
}
