package users

import (
	"context"
	"fmt"

	"github.com/mediavault/mediavault/internal/common"
	"github.com/mediavault/mediavault/internal/localstore"
	"github.com/mediavault/mediavault/internal/logging"
	"github.com/mediavault/mediavault/internal/models"
	"github.com/mediavault/mediavault/internal/remote"
)

// DualRepository serves reads from the remote store when connected and from
// the local mirror otherwise; writes go remote-first and are always
// mirrored locally.
type DualRepository struct {
	local  *localstore.Store
	remote *remote.Client
	log    logging.Logger
}

func NewDualRepository(local *localstore.Store, remoteClient *remote.Client, log logging.Logger) *DualRepository {
	return &DualRepository{local: local, remote: remoteClient, log: log}
}

func (r *DualRepository) GetAll(ctx context.Context) ([]models.User, error) {
	docs := r.findDocs(ctx, nil)
	out := make([]models.User, 0, len(docs))
	for _, d := range docs {
		var u models.User
		if err := models.Decode(d, &u); err != nil {
			r.log.Warn(ctx, "skipping undecodable user record", "id", d.ID(), "error", err)
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *DualRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, models.Document{"id": id})
}

func (r *DualRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, models.Document{"email": email})
}

func (r *DualRepository) Save(ctx context.Context, user *models.User) error {
	doc, err := models.Encode(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	if r.remote.Connected() {
		res, uerr := r.remote.UpdateOne(ctx, models.CollectionUsers,
			models.Document{"id": user.ID},
			models.Document{"$set": map[string]any(doc)})
		if uerr != nil {
			r.log.Warn(ctx, "remote user update failed", "id", user.ID, "error", uerr)
		} else if res.ModifiedCount == 0 {
			ins, ierr := r.remote.InsertOne(ctx, models.CollectionUsers, doc)
			if ierr != nil {
				r.log.Warn(ctx, "remote user insert failed", "id", user.ID, "error", ierr)
			} else if ins.InsertedID != "" && user.RemoteID == "" {
				user.RemoteID = ins.InsertedID
				doc.SetRemoteID(ins.InsertedID)
			}
		}
	}

	if err := r.local.UpsertByID(models.CollectionUsers, doc); err != nil {
		return fmt.Errorf("mirror user locally: %w", err)
	}
	return nil
}

func (r *DualRepository) Delete(ctx context.Context, id string) error {
	if r.remote.Connected() {
		if _, err := r.remote.DeleteOne(ctx, models.CollectionUsers, models.Document{"id": id}); err != nil {
			r.log.Warn(ctx, "remote user delete failed", "id", id, "error", err)
		}
	}
	_, err := r.local.RemoveWhere(models.CollectionUsers, func(d models.Document) bool {
		return d.ID() == id
	})
	return err
}

// PushLocal inserts local user records missing from the remote store.
// Insert-only: a record that exists remotely is left as the remote has it,
// so reconnecting never clobbers a newer remote version.
func (r *DualRepository) PushLocal(ctx context.Context) error {
	if !r.remote.Connected() {
		return nil
	}
	for _, doc := range r.local.GetAll(models.CollectionUsers) {
		id := doc.ID()
		if id == "" {
			continue
		}
		res, err := r.remote.Find(ctx, models.CollectionUsers, models.Document{"id": id})
		if err != nil || len(res.Documents) > 0 {
			continue
		}
		if _, err := r.remote.InsertOne(ctx, models.CollectionUsers, doc); err != nil {
			r.log.Warn(ctx, "pushing local user failed", "id", id, "error", err)
			continue
		}
		r.log.Info(ctx, "pushed offline-created user", "id", id)
	}
	return nil
}

func (r *DualRepository) findOne(ctx context.Context, filter models.Document) (*models.User, error) {
	docs := r.findDocs(ctx, filter)
	if len(docs) == 0 {
		return nil, common.ErrNotFound
	}
	var u models.User
	if err := models.Decode(docs[0], &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}

// findDocs never fails: a remote error degrades to scanning the local
// mirror, which is the documented behavior of every read path.
func (r *DualRepository) findDocs(ctx context.Context, filter models.Document) []models.Document {
	res, err := r.remote.Find(ctx, models.CollectionUsers, filter)
	if err == nil {
		return res.Documents
	}
	r.log.Warn(ctx, "remote user lookup failed, scanning local mirror", "error", err)

	out := make([]models.Document, 0)
	for _, d := range r.local.GetAll(models.CollectionUsers) {
		if remote.MatchFilter(d, filter) {
			out = append(out, d)
		}
	}
	return out
}
