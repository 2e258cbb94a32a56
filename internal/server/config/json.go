package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/mediavault/mediavault/internal/flagx"
	"github.com/mediavault/mediavault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify lifetimes either as
// strings like "15m" or as integer nanoseconds. After parsing, values are
// copied into the runtime Config. Secrets are deliberately absent: they
// come from the environment only.
type JsonConfig struct {
	Addr             string         `json:"addr"`
	DatabaseDSN      string         `json:"database_dsn"`
	TokenValidity    timex.Duration `json:"token_validity"`
	OffloadThreshold int64          `json:"offload_threshold"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Region         string         `json:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
}

// parseJson overlays Config with values loaded from a JSON file selected
// via the -c / -config flags. Absent fields keep their earlier values.
// Panics on read or unmarshal errors (caller should recover if desired).
func parseJson(cfg *Config) {
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

	if jc.Addr != "" {
		cfg.Addr = jc.Addr
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.TokenValidity.Duration != 0 {
		cfg.TokenValidity = time.Duration(jc.TokenValidity.Duration)
	}
	if jc.OffloadThreshold != 0 {
		cfg.OffloadThreshold = jc.OffloadThreshold
	}
	if jc.S3Bucket != "" {
		cfg.S3Bucket = jc.S3Bucket
	}
	if jc.S3Region != "" {
		cfg.S3Region = jc.S3Region
	}
	if jc.S3BaseEndpoint != "" {
		cfg.S3BaseEndpoint = jc.S3BaseEndpoint
	}
}
