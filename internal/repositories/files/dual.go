package files

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mediavault/mediavault/internal/common"
	"github.com/mediavault/mediavault/internal/localstore"
	"github.com/mediavault/mediavault/internal/logging"
	"github.com/mediavault/mediavault/internal/models"
	"github.com/mediavault/mediavault/internal/remote"
)

type DualRepository struct {
	local  *localstore.Store
	remote *remote.Client
	log    logging.Logger
	now    func() time.Time
}

func NewDualRepository(local *localstore.Store, remoteClient *remote.Client, log logging.Logger) *DualRepository {
	return &DualRepository{local: local, remote: remoteClient, log: log, now: time.Now}
}

func (r *DualRepository) Save(ctx context.Context, file *models.FileRecord) error {
	now := r.now().UTC().Format(time.RFC3339)
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.UploadDate == "" {
		file.UploadDate = now
	}
	if file.Timestamp == "" {
		file.Timestamp = now
	}
	file.LastModified = now

	doc, err := models.Encode(file)
	if err != nil {
		return fmt.Errorf("encode file record: %w", err)
	}

	if r.remote.Connected() {
		res, uerr := r.remote.UpdateOne(ctx, models.CollectionFiles,
			models.Document{"id": file.ID, "ownerId": file.OwnerID},
			models.Document{"$set": map[string]any(doc)})
		if uerr != nil {
			r.log.Warn(ctx, "remote file update failed", "id", file.ID, "error", uerr)
		} else if res.ModifiedCount == 0 {
			ins, ierr := r.remote.InsertOne(ctx, models.CollectionFiles, doc)
			if ierr != nil {
				r.log.Warn(ctx, "remote file insert failed", "id", file.ID, "error", ierr)
			} else if ins.InsertedID != "" && file.RemoteID == "" {
				file.RemoteID = ins.InsertedID
				doc.SetRemoteID(ins.InsertedID)
			}
		}
	}

	if err := r.local.UpsertByID(models.CollectionFiles, doc); err != nil {
		return fmt.Errorf("mirror file locally: %w", err)
	}
	return nil
}

func (r *DualRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.FileRecord, error) {
	docs := r.findDocs(ctx, models.Document{"ownerId": ownerID})
	out := make([]models.FileRecord, 0, len(docs))
	for _, d := range docs {
		var f models.FileRecord
		if err := models.Decode(d, &f); err != nil {
			r.log.Warn(ctx, "skipping undecodable file record", "id", d.ID(), "error", err)
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *DualRepository) GetByID(ctx context.Context, ownerID, id string) (*models.FileRecord, error) {
	docs := r.findDocs(ctx, models.Document{"id": id, "ownerId": ownerID})
	if len(docs) == 0 {
		return nil, common.ErrNotFound
	}
	var f models.FileRecord
	if err := models.Decode(docs[0], &f); err != nil {
		return nil, fmt.Errorf("decode file record: %w", err)
	}
	return &f, nil
}

func (r *DualRepository) Delete(ctx context.Context, ownerID, id string) error {
	if r.remote.Connected() {
		filter := models.Document{"id": id, "ownerId": ownerID}
		if _, err := r.remote.DeleteOne(ctx, models.CollectionFiles, filter); err != nil {
			r.log.Warn(ctx, "remote file delete failed", "id", id, "error", err)
		}
	}
	_, err := r.local.RemoveWhere(models.CollectionFiles, func(d models.Document) bool {
		return d.ID() == id && d.OwnerID() == ownerID
	})
	return err
}

func (r *DualRepository) findDocs(ctx context.Context, filter models.Document) []models.Document {
	res, err := r.remote.Find(ctx, models.CollectionFiles, filter)
	if err == nil {
		return res.Documents
	}
	r.log.Warn(ctx, "remote file lookup failed, scanning local mirror", "error", err)

	out := make([]models.Document, 0)
	for _, d := range r.local.GetAll(models.CollectionFiles) {
		if remote.MatchFilter(d, filter) {
			out = append(out, d)
		}
	}
	return out
}
