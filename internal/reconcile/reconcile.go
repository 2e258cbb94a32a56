// Package reconcile merges the local and remote copies of an owner's
// records into one authoritative set and leaves both sides consistent.
//
// The join key is the client-generated record id. One-sided records are
// adopted, never dropped; records present on both sides are resolved by
// lastModified with ties going to the remote copy. Remote writes are
// best-effort: any remote failure demotes the pass to local-authoritative
// instead of aborting.
package reconcile

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/mediavault/mediavault/internal/localstore"
	"github.com/mediavault/mediavault/internal/logging"
	"github.com/mediavault/mediavault/internal/models"
	"github.com/mediavault/mediavault/internal/remote"
)

// Reconciler runs merge passes. Passes for the same (collection, owner)
// pair are single-flighted: a pass requested while an identical one is in
// flight shares its result instead of interleaving load/save cycles.
type Reconciler struct {
	local  *localstore.Store
	remote *remote.Client
	log    logging.Logger
	group  singleflight.Group
}

func New(local *localstore.Store, remoteClient *remote.Client, log logging.Logger) *Reconciler {
	return &Reconciler{local: local, remote: remoteClient, log: log}
}

// SyncOwner merges one collection for one owner and returns the merged set.
func (r *Reconciler) SyncOwner(ctx context.Context, collection, ownerID string) ([]models.Document, error) {
	key := collection + "/" + ownerID
	v, err, _ := r.group.Do(key, func() (any, error) {
		return r.merge(ctx, collection, ownerID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Document), nil
}

// SyncFiles merges the files collection and propagates the recomputed
// storage total onto the owner's user record.
func (r *Reconciler) SyncFiles(ctx context.Context, ownerID string) ([]models.Document, error) {
	merged, err := r.SyncOwner(ctx, models.CollectionFiles, ownerID)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, doc := range merged {
		if n, ok := asInt64(doc["size"]); ok {
			total += n
		}
	}
	r.updateStorageUsed(ctx, ownerID, total)
	return merged, nil
}

func (r *Reconciler) merge(ctx context.Context, collection, ownerID string) ([]models.Document, error) {
	localDocs := ownerSlice(r.local.GetAll(collection), ownerID)

	var remoteDocs []models.Document
	if r.remote.Connected() {
		res, err := r.remote.Find(ctx, collection, models.Document{"ownerId": ownerID})
		if err != nil {
			// Fallback disabled or remote refused: proceed local-only.
			r.log.Warn(ctx, "remote fetch failed, local set is authoritative",
				"collection", collection, "owner", ownerID, "error", err)
		} else {
			remoteDocs = res.Documents
		}
	}

	localByID := indexByID(localDocs)
	remoteByID := indexByID(remoteDocs)

	merged := make([]models.Document, 0, len(localDocs)+len(remoteDocs))
	seen := make(map[string]struct{})

	for _, rd := range remoteDocs {
		id := rd.ID()
		if id == "" {
			// Remote-authored record that never carried a client id:
			// adopt as-is, it cannot be joined.
			merged = append(merged, rd.Clone())
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		ld, both := localByID[id]
		if !both {
			merged = append(merged, rd.Clone())
			continue
		}
		// Both sides: >= favors the remote copy on ties.
		if !rd.LastModified().Before(ld.LastModified()) {
			merged = append(merged, rd.Clone())
		} else {
			winner := ld.Clone()
			merged = append(merged, winner)
			r.pushUpdate(ctx, collection, winner)
		}
	}

	for _, ld := range localDocs {
		id := ld.ID()
		if id != "" {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}
		if _, both := remoteByID[id]; both && id != "" {
			continue // already resolved above
		}
		winner := ld.Clone()
		r.pushInsert(ctx, collection, winner)
		merged = append(merged, winner)
	}

	if err := r.replaceOwnerSlice(collection, ownerID, merged); err != nil {
		return nil, fmt.Errorf("persist merged %s: %w", collection, err)
	}
	return merged, nil
}

// pushInsert mirrors a locally-authored record to the remote store and
// records the assigned remote id. Failures are logged, never fatal.
func (r *Reconciler) pushInsert(ctx context.Context, collection string, doc models.Document) {
	if !r.remote.Connected() {
		return
	}
	res, err := r.remote.InsertOne(ctx, collection, doc)
	if err != nil {
		r.log.Warn(ctx, "remote insert failed during reconciliation",
			"collection", collection, "id", doc.ID(), "error", err)
		return
	}
	if res.InsertedID != "" && !isLocalID(res.InsertedID) && doc.RemoteID() == "" {
		doc.SetRemoteID(res.InsertedID)
	}
}

// pushUpdate overwrites the remote copy with the locally newer record.
func (r *Reconciler) pushUpdate(ctx context.Context, collection string, doc models.Document) {
	if !r.remote.Connected() {
		return
	}
	filter := models.Document{"id": doc.ID(), "ownerId": doc.OwnerID()}
	if _, err := r.remote.UpdateOne(ctx, collection, filter, models.Document{"$set": map[string]any(doc)}); err != nil {
		r.log.Warn(ctx, "remote update failed during reconciliation",
			"collection", collection, "id", doc.ID(), "error", err)
	}
}

// replaceOwnerSlice swaps out only this owner's records; other owners'
// records in the collection are preserved untouched.
func (r *Reconciler) replaceOwnerSlice(collection, ownerID string, merged []models.Document) error {
	all := r.local.GetAll(collection)
	next := make([]models.Document, 0, len(all)+len(merged))
	for _, d := range all {
		if d.OwnerID() != ownerID {
			next = append(next, d)
		}
	}
	next = append(next, merged...)
	return r.local.SaveAll(collection, next)
}

func (r *Reconciler) updateStorageUsed(ctx context.Context, ownerID string, total int64) {
	users := r.local.GetAll(models.CollectionUsers)
	for i, u := range users {
		if u.ID() == ownerID {
			users[i]["storageUsed"] = total
			if err := r.local.SaveAll(models.CollectionUsers, users); err != nil {
				r.log.Warn(ctx, "saving storage total failed", "owner", ownerID, "error", err)
			}
			break
		}
	}

	if r.remote.Connected() {
		filter := models.Document{"id": ownerID}
		update := models.Document{"$set": map[string]any{"storageUsed": total}}
		if _, err := r.remote.UpdateOne(ctx, models.CollectionUsers, filter, update); err != nil {
			r.log.Warn(ctx, "propagating storage total failed", "owner", ownerID, "error", err)
		}
	}
}

func ownerSlice(docs []models.Document, ownerID string) []models.Document {
	out := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if d.OwnerID() == ownerID {
			out = append(out, d)
		}
	}
	return out
}

func indexByID(docs []models.Document) map[string]models.Document {
	out := make(map[string]models.Document, len(docs))
	for _, d := range docs {
		if id := d.ID(); id != "" {
			out[id] = d
		}
	}
	return out
}

func isLocalID(id string) bool {
	return len(id) >= 6 && id[:6] == "local_"
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}
