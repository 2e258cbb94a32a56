package config

import (
	"flag"
	"os"
	"time"

	"github.com/mediavault/mediavault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   data directory for the local record store
//	-r string   base URL of the remote document-store endpoint
//	-s string   base URL of the content-scan service
//	-i int      background sync interval in seconds (default from Config)
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-r", "-s", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory for the local record store")
	fs.StringVar(&cfg.RemoteEndpoint, "r", cfg.RemoteEndpoint, "base URL of the remote document-store endpoint")
	fs.StringVar(&cfg.ScanEndpoint, "s", cfg.ScanEndpoint, "base URL of the content-scan service")
	syncInterval := fs.Int("i", int(cfg.SyncInterval.Seconds()), "background sync interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
}
