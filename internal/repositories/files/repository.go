// Package files implements the dual-backend repository for uploaded file
// records.
package files

import (
	"context"

	"github.com/mediavault/mediavault/internal/models"
)

// Repository describes operations on file records.
type Repository interface {
	// Save upserts a file record on both backends, assigning an id and
	// timestamps when absent.
	Save(ctx context.Context, file *models.FileRecord) error

	// ListByOwner returns the owner's file records.
	ListByOwner(ctx context.Context, ownerID string) ([]models.FileRecord, error)

	// GetByID returns one of the owner's file records, or common.ErrNotFound.
	GetByID(ctx context.Context, ownerID, id string) (*models.FileRecord, error)

	// Delete removes one of the owner's file records from both backends.
	Delete(ctx context.Context, ownerID, id string) error
}
