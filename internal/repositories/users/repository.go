// Package users implements the dual-backend repository for user records.
package users

import (
	"context"

	"github.com/mediavault/mediavault/internal/models"
)

// Repository describes CRUD and lookup operations for User records.
// Implementations write through to the remote document store when it is
// reachable and always mirror into the local record store.
type Repository interface {
	// GetAll returns every user record.
	GetAll(ctx context.Context) ([]models.User, error)

	// GetByID returns a user by id, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByEmail returns a user by email, or common.ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// Save upserts a user record on both backends.
	Save(ctx context.Context, user *models.User) error

	// Delete removes a user record. Owned files and shares are not
	// cascaded; ownership is a weak reference.
	Delete(ctx context.Context, id string) error

	// PushLocal uploads local user records the remote store does not have,
	// so accounts created offline become visible after a reconnect. Records
	// already present remotely are never overwritten.
	PushLocal(ctx context.Context) error
}
