package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the MediaVault client.
//
// Fields:
//   - DataDir: directory holding the local record store's collection files.
//   - RemoteEndpoint: base URL of the remote document-store API.
//   - APIKey: credential for the remote API (environment only).
//   - DataSource, Database: remote addressing, sent with every action call.
//   - ScanEndpoint: base URL of the content-scan service.
//   - SyncInterval: how often background reconciliation runs.
//   - SessionTimeout: remember-me session window.
//   - LocalFallback: degrade to synthesized local results when the remote
//     is unreachable instead of failing operations.
//   - LegacySecret: secret of the historical digest scheme (environment
//     only), used solely to verify and upgrade old records.
//   - SeedAdminPassword, SeedTestPassword: initial passwords for the
//     seeded accounts (environment only); random ones are generated when
//     unset.
type Config struct {
	DataDir           string
	RemoteEndpoint    string
	APIKey            string
	DataSource        string
	Database          string
	ScanEndpoint      string
	SyncInterval      time.Duration
	SessionTimeout    time.Duration
	LocalFallback     bool
	LegacySecret      string
	SeedAdminPassword string
	SeedTestPassword  string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = "./data"
	c.RemoteEndpoint = "http://127.0.0.1:8080"
	c.DataSource = "vault"
	c.Database = "mediavault"
	c.ScanEndpoint = ""
	c.SyncInterval = 30 * time.Second
	c.SessionTimeout = 30 * 24 * time.Hour
	c.LocalFallback = true
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), command-line flags (if present), and finally the
// environment for secret material. Later sources take precedence over
// earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	parseEnvSecrets(cfg)
	return cfg
}

// parseEnvSecrets pulls secret values from the environment. Secrets never
// live in defaults, JSON files, or flags.
func parseEnvSecrets(cfg *Config) {
	if v := os.Getenv("MEDIAVAULT_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("MEDIAVAULT_LEGACY_SECRET"); v != "" {
		cfg.LegacySecret = v
	}
	if v := os.Getenv("MEDIAVAULT_SEED_ADMIN_PASSWORD"); v != "" {
		cfg.SeedAdminPassword = v
	}
	if v := os.Getenv("MEDIAVAULT_SEED_TEST_PASSWORD"); v != "" {
		cfg.SeedTestPassword = v
	}
}
