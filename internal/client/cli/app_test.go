package cli

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediavault/mediavault/internal/client/config"
	"github.com/mediavault/mediavault/internal/cryptox"
	"github.com/mediavault/mediavault/internal/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:        t.TempDir(),
		RemoteEndpoint: "http://127.0.0.1:1",
		DataSource:     "vault",
		Database:       "mediavault",
		SyncInterval:   time.Second,
		SessionTimeout: time.Hour,
		LocalFallback:  true,
	}
}

func TestNewApp_SeedsAccounts(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	a, err := NewApp(cfg)
	require.NoError(t, err)

	admin, err := a.users.GetByEmail(ctx, "admin@mediavault.local")
	require.NoError(t, err, "admin account must exist right after construction")
	assert.True(t, admin.Admin())
	assert.True(t, cryptox.IsEncodedHash(admin.Password))

	tester, err := a.users.GetByEmail(ctx, "test@mediavault.local")
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, tester.Plan)

	// Constructing again over the same data dir does not duplicate accounts.
	a2, err := NewApp(cfg)
	require.NoError(t, err)
	all, err := a2.users.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestNewApp_SeedsConfiguredPasswords(t *testing.T) {
	cfg := testConfig(t)
	cfg.SeedAdminPassword = "admin-secret"

	a, err := NewApp(cfg)
	require.NoError(t, err)

	admin, err := a.creds.Login(context.Background(), "admin@mediavault.local", "admin-secret", false)
	require.NoError(t, err)
	assert.Equal(t, models.PlanBusiness, admin.Plan)
}

func TestAppState_ConcurrentAccess(t *testing.T) {
	a, err := NewApp(testConfig(t))
	require.NoError(t, err)

	origPrintln := printlnFn
	t.Cleanup(func() { printlnFn = origPrintln })
	printlnFn = func(args ...any) {}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			a.setMode(ModeOnline)
			a.setMode(ModeOffline)
			_ = a.currentMode()
			_ = a.getStatus()
			_ = a.isLoggedIn()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			a.setUser(&models.User{ID: "u1", Username: "alice"})
			a.setUser(nil)
		}
	}()
	wg.Wait()

	assert.False(t, a.isLoggedIn())
}
