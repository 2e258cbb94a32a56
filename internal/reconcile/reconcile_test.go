package reconcile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediavault/mediavault/internal/localstore"
	"github.com/mediavault/mediavault/internal/logging"
	"github.com/mediavault/mediavault/internal/models"
	"github.com/mediavault/mediavault/internal/remote"
)

// fakeDocstore is an in-memory document store speaking the /action API.
type fakeDocstore struct {
	mu        sync.Mutex
	docs      map[string][]models.Document // by collection
	findCalls atomic.Int64
	findDelay time.Duration
}

func newFakeDocstore() *fakeDocstore {
	return &fakeDocstore{docs: map[string][]models.Document{}}
}

func (f *fakeDocstore) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Collection string          `json:"collection"`
			Filter     models.Document `json:"filter"`
			Document   models.Document `json:"document"`
			Update     models.Document `json:"update"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		f.mu.Lock()
		defer f.mu.Unlock()

		switch r.URL.Path {
		case "/action/find":
			f.findCalls.Add(1)
			if f.findDelay > 0 {
				time.Sleep(f.findDelay)
			}
			out := []models.Document{}
			for _, d := range f.docs[req.Collection] {
				if remote.MatchFilter(d, req.Filter) {
					out = append(out, d)
				}
			}
			json.NewEncoder(w).Encode(map[string]any{"documents": out})
		case "/action/insertOne":
			f.docs[req.Collection] = append(f.docs[req.Collection], req.Document)
			json.NewEncoder(w).Encode(map[string]any{"insertedId": "srv_" + req.Document.ID()})
		case "/action/updateOne":
			modified := 0
			if set, ok := req.Update["$set"].(map[string]any); ok {
				for _, d := range f.docs[req.Collection] {
					if remote.MatchFilter(d, req.Filter) {
						for k, v := range set {
							d[k] = v
						}
						modified = 1
						break
					}
				}
			}
			json.NewEncoder(w).Encode(map[string]any{"modifiedCount": modified})
		case "/action/deleteOne":
			json.NewEncoder(w).Encode(map[string]any{"deletedCount": 0})
		default:
			http.NotFound(w, r)
		}
	})
}

func (f *fakeDocstore) get(collection, id string) models.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.docs[collection] {
		if d.ID() == id {
			return d
		}
	}
	return nil
}

func setup(t *testing.T, fake *fakeDocstore) (*Reconciler, *localstore.Store, *remote.Client) {
	t.Helper()
	local, err := localstore.New(t.TempDir(), logging.NewNopLogger())
	require.NoError(t, err)

	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client := remote.New(remote.Config{
		Endpoint:      srv.URL,
		APIKey:        "k",
		DataSource:    "ds",
		Database:      "db",
		LocalFallback: true,
	}, local, logging.NewNopLogger())
	require.NoError(t, client.Connect(context.Background()))

	return New(local, client, logging.NewNopLogger()), local, client
}

func TestSyncOwner_RemoteNewerWins(t *testing.T) {
	fake := newFakeDocstore()
	fake.docs[models.CollectionFiles] = []models.Document{
		{"id": "f1", "ownerId": "u1", "lastModified": "2024-02-01T00:00:00Z", "name": "remote"},
	}
	r, local, _ := setup(t, fake)

	require.NoError(t, local.SaveAll(models.CollectionFiles, []models.Document{
		{"id": "f1", "ownerId": "u1", "lastModified": "2024-01-01T00:00:00Z", "name": "local"},
	}))

	merged, err := r.SyncOwner(context.Background(), models.CollectionFiles, "u1")
	require.NoError(t, err)
	require.Len(t, merged, 1)

	got := local.GetAll(models.CollectionFiles)
	require.Len(t, got, 1)
	assert.Equal(t, "2024-02-01T00:00:00Z", got[0]["lastModified"])
	assert.Equal(t, "remote", got[0]["name"])
}

func TestSyncOwner_LocalNewerPropagates(t *testing.T) {
	fake := newFakeDocstore()
	fake.docs[models.CollectionFiles] = []models.Document{
		{"id": "f1", "ownerId": "u1", "lastModified": "2024-01-01T00:00:00Z", "name": "remote"},
	}
	r, local, _ := setup(t, fake)

	require.NoError(t, local.SaveAll(models.CollectionFiles, []models.Document{
		{"id": "f1", "ownerId": "u1", "lastModified": "2024-03-01T00:00:00Z", "name": "local"},
	}))

	_, err := r.SyncOwner(context.Background(), models.CollectionFiles, "u1")
	require.NoError(t, err)

	remoteDoc := fake.get(models.CollectionFiles, "f1")
	require.NotNil(t, remoteDoc)
	assert.Equal(t, "local", remoteDoc["name"])

	got := local.GetAll(models.CollectionFiles)
	require.Len(t, got, 1)
	assert.Equal(t, "local", got[0]["name"])
}

func TestSyncOwner_TieFavorsRemote(t *testing.T) {
	fake := newFakeDocstore()
	fake.docs[models.CollectionFiles] = []models.Document{
		{"id": "f1", "ownerId": "u1", "lastModified": "2024-01-01T00:00:00Z", "name": "remote"},
	}
	r, local, _ := setup(t, fake)

	require.NoError(t, local.SaveAll(models.CollectionFiles, []models.Document{
		{"id": "f1", "ownerId": "u1", "lastModified": "2024-01-01T00:00:00Z", "name": "local"},
	}))

	_, err := r.SyncOwner(context.Background(), models.CollectionFiles, "u1")
	require.NoError(t, err)

	got := local.GetAll(models.CollectionFiles)
	require.Len(t, got, 1)
	assert.Equal(t, "remote", got[0]["name"])
}

func TestSyncOwner_OneSidedRecordsSurvive(t *testing.T) {
	fake := newFakeDocstore()
	fake.docs[models.CollectionFiles] = []models.Document{
		{"id": "remote-only", "ownerId": "u1", "lastModified": "2024-01-01T00:00:00Z"},
	}
	r, local, _ := setup(t, fake)

	require.NoError(t, local.SaveAll(models.CollectionFiles, []models.Document{
		{"id": "local-only", "ownerId": "u1", "lastModified": "2024-01-02T00:00:00Z"},
	}))

	merged, err := r.SyncOwner(context.Background(), models.CollectionFiles, "u1")
	require.NoError(t, err)
	assert.Len(t, merged, 2)

	// Local-only record was pushed up and got a remote id.
	assert.NotNil(t, fake.get(models.CollectionFiles, "local-only"))
	got := local.GetAll(models.CollectionFiles)
	ids := []string{got[0].ID(), got[1].ID()}
	assert.ElementsMatch(t, []string{"remote-only", "local-only"}, ids)
	for _, d := range got {
		if d.ID() == "local-only" {
			assert.Equal(t, "srv_local-only", d.RemoteID())
		}
	}
}

func TestSyncOwner_OtherOwnersUntouched(t *testing.T) {
	fake := newFakeDocstore()
	r, local, _ := setup(t, fake)

	other := models.Document{"id": "x1", "ownerId": "u2", "name": "untouched"}
	require.NoError(t, local.SaveAll(models.CollectionFiles, []models.Document{
		other,
		{"id": "f1", "ownerId": "u1"},
	}))

	_, err := r.SyncOwner(context.Background(), models.CollectionFiles, "u1")
	require.NoError(t, err)

	got := local.GetAll(models.CollectionFiles)
	require.Len(t, got, 2)
	assert.Equal(t, "untouched", got[0]["name"])
	assert.Equal(t, "u2", got[0].OwnerID())
}

func TestSyncOwner_Idempotent(t *testing.T) {
	fake := newFakeDocstore()
	fake.docs[models.CollectionFiles] = []models.Document{
		{"id": "f1", "ownerId": "u1", "lastModified": "2024-02-01T00:00:00Z"},
	}
	r, local, _ := setup(t, fake)

	require.NoError(t, local.SaveAll(models.CollectionFiles, []models.Document{
		{"id": "f2", "ownerId": "u1", "lastModified": "2024-01-01T00:00:00Z"},
	}))

	first, err := r.SyncOwner(context.Background(), models.CollectionFiles, "u1")
	require.NoError(t, err)
	second, err := r.SyncOwner(context.Background(), models.CollectionFiles, "u1")
	require.NoError(t, err)

	assert.Equal(t, len(first), len(second))
	assert.ElementsMatch(t, first, second)
}

func TestSyncOwner_RemoteDownLocalAuthoritative(t *testing.T) {
	local, err := localstore.New(t.TempDir(), logging.NewNopLogger())
	require.NoError(t, err)
	client := remote.New(remote.Config{
		Endpoint: "http://127.0.0.1:1", APIKey: "k", DataSource: "ds", Database: "db",
		LocalFallback: true,
	}, local, logging.NewNopLogger())
	r := New(local, client, logging.NewNopLogger())

	require.NoError(t, local.SaveAll(models.CollectionFiles, []models.Document{
		{"id": "f1", "ownerId": "u1", "lastModified": "2024-01-01T00:00:00Z"},
	}))

	merged, err := r.SyncOwner(context.Background(), models.CollectionFiles, "u1")
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "f1", merged[0].ID())
}

func TestSyncFiles_RecomputesStorageUsed(t *testing.T) {
	fake := newFakeDocstore()
	fake.docs[models.CollectionFiles] = []models.Document{
		{"id": "f1", "ownerId": "u1", "size": float64(100), "lastModified": "2024-01-01T00:00:00Z"},
	}
	r, local, _ := setup(t, fake)

	require.NoError(t, local.SaveAll(models.CollectionFiles, []models.Document{
		{"id": "f2", "ownerId": "u1", "size": float64(50), "lastModified": "2024-01-01T00:00:00Z"},
	}))
	require.NoError(t, local.SaveAll(models.CollectionUsers, []models.Document{
		{"id": "u1", "email": "a@x.com", "storageUsed": float64(0)},
	}))

	_, err := r.SyncFiles(context.Background(), "u1")
	require.NoError(t, err)

	users := local.GetAll(models.CollectionUsers)
	require.Len(t, users, 1)
	assert.EqualValues(t, 150, users[0]["storageUsed"])
}

func TestSyncOwner_ConcurrentCallsSingleFlight(t *testing.T) {
	fake := newFakeDocstore()
	fake.findDelay = 150 * time.Millisecond
	r, _, _ := setup(t, fake)

	before := fake.findCalls.Load() // Connect's probe

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.SyncOwner(context.Background(), models.CollectionFiles, "u1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// All concurrent passes for the same owner share one merge, hence one
	// remote fetch.
	assert.Equal(t, int64(1), fake.findCalls.Load()-before)
}
