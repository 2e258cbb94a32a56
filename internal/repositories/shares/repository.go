// Package shares implements the dual-backend repository for share grants.
package shares

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mediavault/mediavault/internal/localstore"
	"github.com/mediavault/mediavault/internal/logging"
	"github.com/mediavault/mediavault/internal/models"
	"github.com/mediavault/mediavault/internal/remote"
)

// Repository describes operations on share records.
type Repository interface {
	Create(ctx context.Context, share *models.ShareRecord) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.ShareRecord, error)
	Delete(ctx context.Context, ownerID, id string) error
}

type DualRepository struct {
	local  *localstore.Store
	remote *remote.Client
	log    logging.Logger
	now    func() time.Time
}

func NewDualRepository(local *localstore.Store, remoteClient *remote.Client, log logging.Logger) *DualRepository {
	return &DualRepository{local: local, remote: remoteClient, log: log, now: time.Now}
}

func (r *DualRepository) Create(ctx context.Context, share *models.ShareRecord) error {
	now := r.now().UTC().Format(time.RFC3339)
	if share.ID == "" {
		share.ID = uuid.NewString()
	}
	if share.CreatedAt == "" {
		share.CreatedAt = now
	}
	share.LastModified = now

	doc, err := models.Encode(share)
	if err != nil {
		return fmt.Errorf("encode share record: %w", err)
	}

	if r.remote.Connected() {
		ins, ierr := r.remote.InsertOne(ctx, models.CollectionShares, doc)
		if ierr != nil {
			r.log.Warn(ctx, "remote share insert failed", "id", share.ID, "error", ierr)
		} else if ins.InsertedID != "" && share.RemoteID == "" {
			share.RemoteID = ins.InsertedID
			doc.SetRemoteID(ins.InsertedID)
		}
	}

	if err := r.local.UpsertByID(models.CollectionShares, doc); err != nil {
		return fmt.Errorf("mirror share locally: %w", err)
	}
	return nil
}

func (r *DualRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.ShareRecord, error) {
	filter := models.Document{"ownerId": ownerID}
	var docs []models.Document
	res, err := r.remote.Find(ctx, models.CollectionShares, filter)
	if err == nil {
		docs = res.Documents
	} else {
		r.log.Warn(ctx, "remote share lookup failed, scanning local mirror", "error", err)
		for _, d := range r.local.GetAll(models.CollectionShares) {
			if remote.MatchFilter(d, filter) {
				docs = append(docs, d)
			}
		}
	}

	out := make([]models.ShareRecord, 0, len(docs))
	for _, d := range docs {
		var s models.ShareRecord
		if err := models.Decode(d, &s); err != nil {
			r.log.Warn(ctx, "skipping undecodable share record", "id", d.ID(), "error", err)
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *DualRepository) Delete(ctx context.Context, ownerID, id string) error {
	if r.remote.Connected() {
		filter := models.Document{"id": id, "ownerId": ownerID}
		if _, err := r.remote.DeleteOne(ctx, models.CollectionShares, filter); err != nil {
			r.log.Warn(ctx, "remote share delete failed", "id", id, "error", err)
		}
	}
	_, err := r.local.RemoveWhere(models.CollectionShares, func(d models.Document) bool {
		return d.ID() == id && d.OwnerID() == ownerID
	})
	return err
}
