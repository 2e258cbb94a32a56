package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/mediavault/mediavault/internal/flagx"
	"github.com/mediavault/mediavault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "30s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	DataDir        string         `json:"data_dir"`
	RemoteEndpoint string         `json:"remote_endpoint"`
	DataSource     string         `json:"data_source"`
	Database       string         `json:"database"`
	ScanEndpoint   string         `json:"scan_endpoint"`
	SyncInterval   timex.Duration `json:"sync_interval"`
	SessionTimeout timex.Duration `json:"session_timeout"`
	LocalFallback  *bool          `json:"local_fallback"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Behavior:
//   - Reads and unmarshals the JSON into JsonConfig.
//   - Copies set fields into the provided Config; absent fields keep their
//     earlier values.
//   - Panics on read or unmarshal errors (caller should recover if desired).
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	// Resolve file path from flags.
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.RemoteEndpoint != "" {
		cfg.RemoteEndpoint = jc.RemoteEndpoint
	}
	if jc.DataSource != "" {
		cfg.DataSource = jc.DataSource
	}
	if jc.Database != "" {
		cfg.Database = jc.Database
	}
	if jc.ScanEndpoint != "" {
		cfg.ScanEndpoint = jc.ScanEndpoint
	}
	if jc.SyncInterval.Duration != 0 {
		cfg.SyncInterval = time.Duration(jc.SyncInterval.Duration)
	}
	if jc.SessionTimeout.Duration != 0 {
		cfg.SessionTimeout = time.Duration(jc.SessionTimeout.Duration)
	}
	if jc.LocalFallback != nil {
		cfg.LocalFallback = *jc.LocalFallback
	}
}
