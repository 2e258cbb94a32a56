package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mediavault/mediavault/internal/models"
	"github.com/mediavault/mediavault/internal/remote"
)

// MemoryStore keeps collections in process memory. It backs the API tests
// and makes the server runnable without a database.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]models.Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][]models.Document)}
}

func (s *MemoryStore) Find(ctx context.Context, collection string, filter models.Document, limit int) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Document
	for _, d := range s.collections[collection] {
		if remote.MatchFilter(d, filter) {
			out = append(out, d.Clone())
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) InsertOne(ctx context.Context, collection string, doc models.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := doc.Clone()
	id := stored.ID()
	if id == "" {
		id = uuid.NewString()
		stored.SetID(id)
	}

	docs := s.collections[collection]
	for i, d := range docs {
		if d.ID() == id {
			docs[i] = stored
			return id, nil
		}
	}
	s.collections[collection] = append(docs, stored)
	return id, nil
}

func (s *MemoryStore) UpdateOne(ctx context.Context, collection string, filter, update models.Document) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[collection]
	for i, d := range docs {
		if remote.MatchFilter(d, filter) {
			docs[i] = ApplyUpdate(d, update)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *MemoryStore) DeleteOne(ctx context.Context, collection string, filter models.Document) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[collection]
	for i, d := range docs {
		if remote.MatchFilter(d, filter) {
			s.collections[collection] = append(docs[:i], docs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}
