package shares

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediavault/mediavault/internal/localstore"
	"github.com/mediavault/mediavault/internal/logging"
	"github.com/mediavault/mediavault/internal/models"
	"github.com/mediavault/mediavault/internal/remote"
)

func offlineRepo(t *testing.T) *DualRepository {
	t.Helper()
	local, err := localstore.New(t.TempDir(), logging.NewNopLogger())
	require.NoError(t, err)
	client := remote.New(remote.Config{
		Endpoint: "http://127.0.0.1:1", APIKey: "k", DataSource: "ds", Database: "db",
		LocalFallback: true,
	}, local, logging.NewNopLogger())
	return NewDualRepository(local, client, logging.NewNopLogger())
}

func TestCreateAndList(t *testing.T) {
	r := offlineRepo(t)
	ctx := context.Background()

	s := &models.ShareRecord{OwnerID: "u1", FileID: "f1", Target: "b@x.com"}
	require.NoError(t, r.Create(ctx, s))
	assert.NotEmpty(t, s.ID)
	assert.NotEmpty(t, s.CreatedAt)

	got, err := r.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b@x.com", got[0].Target)

	other, err := r.ListByOwner(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestDelete(t *testing.T) {
	r := offlineRepo(t)
	ctx := context.Background()

	s := &models.ShareRecord{OwnerID: "u1", FileID: "f1", Target: "b@x.com"}
	require.NoError(t, r.Create(ctx, s))

	require.NoError(t, r.Delete(ctx, "u1", s.ID))

	got, err := r.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDelete_WrongOwnerKeepsRecord(t *testing.T) {
	r := offlineRepo(t)
	ctx := context.Background()

	s := &models.ShareRecord{OwnerID: "u1", FileID: "f1", Target: "b@x.com"}
	require.NoError(t, r.Create(ctx, s))

	require.NoError(t, r.Delete(ctx, "u2", s.ID))

	got, err := r.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
