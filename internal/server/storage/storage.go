// Package storage persists documents for the document-store server. Two
// backends implement the same interface: an in-memory store used by tests
// and a PostgreSQL store keying jsonb documents by (collection, id).
package storage

import (
	"context"

	"github.com/mediavault/mediavault/internal/models"
)

// Store is the document persistence contract behind the action endpoints.
// Filters use the same subset the client evaluates: exact equality plus
// $or of equalities.
type Store interface {
	// Find returns documents of the collection matching the filter, up to
	// limit when limit > 0.
	Find(ctx context.Context, collection string, filter models.Document, limit int) ([]models.Document, error)
	// InsertOne stores the document and returns its id, generating one if
	// the document carries none. An existing id is overwritten.
	InsertOne(ctx context.Context, collection string, doc models.Document) (string, error)
	// UpdateOne applies the update to the first matching document and
	// reports how many documents changed (0 or 1). An update of the form
	// {"$set": {...}} merges fields; anything else replaces the document.
	UpdateOne(ctx context.Context, collection string, filter, update models.Document) (int64, error)
	// DeleteOne removes the first matching document and reports how many
	// documents were removed (0 or 1).
	DeleteOne(ctx context.Context, collection string, filter models.Document) (int64, error)
}

// ApplyUpdate produces the stored form of doc after update. A {"$set": m}
// update merges m into a clone of doc; any other shape replaces the
// document wholesale, preserving the original id.
func ApplyUpdate(doc, update models.Document) models.Document {
	if set, ok := update["$set"].(map[string]any); ok {
		out := doc.Clone()
		for k, v := range set {
			out[k] = v
		}
		return out
	}
	out := update
	if out.ID() == "" && doc.ID() != "" {
		out = update.Clone()
		out.SetID(doc.ID())
	}
	return out
}
