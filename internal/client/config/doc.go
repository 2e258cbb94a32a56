// Package config loads runtime configuration for the MediaVault client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//  4. Secrets (the remote api key and the legacy digest secret) come from
//     the environment only; they are never embedded in files or defaults.
//
// Supported flags
//
//	-d string   data directory for the local record store
//	-r string   base URL of the remote document-store endpoint
//	-s string   base URL of the content-scan service
//	-i int      background sync interval (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "30s" or integer nanoseconds:
//
//	{
//	  "data_dir": "/var/lib/mediavault",
//	  "remote_endpoint": "https://docstore.example.com",
//	  "data_source": "vault",
//	  "database": "mediavault",
//	  "scan_endpoint": "https://scan.example.com",
//	  "sync_interval": "30s",
//	  "session_timeout": "720h",
//	  "local_fallback": true
//	}
package config
