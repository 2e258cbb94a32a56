// Package cli implements the interactive MediaVault client: an
// authenticated REPL over the dual-backend core with background
// reconciliation and session revalidation.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mediavault/mediavault/internal/client/config"
	"github.com/mediavault/mediavault/internal/credentials"
	"github.com/mediavault/mediavault/internal/localstore"
	"github.com/mediavault/mediavault/internal/logging"
	"github.com/mediavault/mediavault/internal/models"
	"github.com/mediavault/mediavault/internal/reconcile"
	"github.com/mediavault/mediavault/internal/remote"
	"github.com/mediavault/mediavault/internal/repositories/files"
	"github.com/mediavault/mediavault/internal/repositories/shares"
	"github.com/mediavault/mediavault/internal/repositories/users"
	"github.com/mediavault/mediavault/internal/scan"
	"github.com/mediavault/mediavault/internal/session"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config   *config.Config
	log      logging.Logger
	local    *localstore.Store
	remote   *remote.Client
	users    users.Repository
	files    files.Repository
	shares   shares.Repository
	sessions *session.Manager
	creds    *credentials.Store
	recon    *reconcile.Reconciler
	scans    *scan.Client

	// mu guards user and mode: the REPL goroutine writes them on
	// login/logout while the status watcher reads them.
	mu     sync.RWMutex
	user   *models.User
	mode   Mode
	reader *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	logger := logging.NewSlogLogger(sl)

	local, err := localstore.New(c.DataDir, logger)
	if err != nil {
		return nil, err
	}

	remoteClient := remote.New(remote.Config{
		Endpoint:      c.RemoteEndpoint,
		APIKey:        c.APIKey,
		DataSource:    c.DataSource,
		Database:      c.Database,
		LocalFallback: c.LocalFallback,
	}, local, logger)

	userRepo := users.NewDualRepository(local, remoteClient, logger)
	fileRepo := files.NewDualRepository(local, remoteClient, logger)
	shareRepo := shares.NewDualRepository(local, remoteClient, logger)

	sessions := session.NewManager(userRepo, local, c.SessionTimeout, logger)
	creds := credentials.New(userRepo, sessions, credentials.Config{
		LegacySecret:      c.LegacySecret,
		SeedAdminPassword: c.SeedAdminPassword,
		SeedTestPassword:  c.SeedTestPassword,
	}, logger)
	recon := reconcile.New(local, remoteClient, logger)
	scans := scan.New(scan.Config{Endpoint: c.ScanEndpoint}, logger)

	if err := creds.Seed(context.Background()); err != nil {
		return nil, fmt.Errorf("seed accounts: %w", err)
	}

	return &App{
		config:   c,
		log:      logger,
		local:    local,
		remote:   remoteClient,
		users:    userRepo,
		files:    fileRepo,
		shares:   shareRepo,
		sessions: sessions,
		creds:    creds,
		recon:    recon,
		scans:    scans,
		mode:     ModeOffline,
		reader:   bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.currentUser() != nil
}

func (a *App) currentUser() *models.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user
}

func (a *App) setUser(u *models.User) {
	a.mu.Lock()
	a.user = u
	a.mu.Unlock()
}

func (a *App) currentMode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()
	if changed {
		printlnFn("Switched to", string(mode), "mode")
	}
}

// StartOnlineStatusWatcher probes the remote endpoint on a fixed interval
// and flips the mode indicator accordingly. Reconnecting pushes user
// records created offline and resyncs the logged-in user's files.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := a.remote.Connect(probeCtx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
				continue
			}
			wasOffline := a.currentMode() != ModeOnline
			a.setMode(ModeOnline)
			if wasOffline {
				if err := a.users.PushLocal(ctx); err != nil {
					a.log.Warn(ctx, "pushing offline-created users failed", "error", err)
				}
				if u := a.currentUser(); u != nil {
					if _, err := a.recon.SyncFiles(ctx, u.ID); err != nil {
						a.log.Warn(ctx, "post-reconnect sync failed", "error", err)
					}
				}
			}

		case <-ctx.Done():
			return
		}
	}
}
