// Package localstore implements the always-written local copy of every
// collection: JSON array snapshots on disk, one file per collection. It is
// the fallback of last resort when the remote document store is unreachable,
// so it must never surface read errors — missing or malformed data is
// served as an empty collection.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mediavault/mediavault/internal/logging"
	"github.com/mediavault/mediavault/internal/models"
)

// Keys for single-value entries that sit beside the collections.
const (
	KeyCurrentUser = "current_user"
	KeySession     = "session"
)

// Store persists collections as JSON files under a data directory. All
// mutations are full-snapshot read-modify-write cycles guarded by a mutex,
// so concurrent callers within one process cannot interleave. Two processes
// sharing the same directory are not protected; last writer wins.
type Store struct {
	dir string
	mu  sync.Mutex
	log logging.Logger
}

// New creates the data directory if needed and returns a Store over it.
func New(dir string, log logging.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir, log: log}, nil
}

// GetAll returns the stored records of a collection. Absent or malformed
// data yields an empty slice, never an error.
func (s *Store) GetAll(collection string) []models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll(collection)
}

// SaveAll replaces the stored snapshot of a collection.
func (s *Store) SaveAll(collection string, docs []models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeAll(collection, docs)
}

// UpsertByID replaces the record with a matching id, or appends the record
// when no match exists.
func (s *Store) UpsertByID(collection string, doc models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.readAll(collection)
	replaced := false
	for i, existing := range docs {
		if existing.ID() != "" && existing.ID() == doc.ID() {
			docs[i] = doc
			replaced = true
			break
		}
	}
	if !replaced {
		docs = append(docs, doc)
	}
	return s.writeAll(collection, docs)
}

// RemoveWhere deletes every record the predicate matches and reports how
// many were removed.
func (s *Store) RemoveWhere(collection string, match func(models.Document) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.readAll(collection)
	kept := docs[:0]
	removed := 0
	for _, d := range docs {
		if match(d) {
			removed++
			continue
		}
		kept = append(kept, d)
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.writeAll(collection, kept)
}

// GetValue reads a single-document entry (e.g. the current-user mirror).
// Returns nil when absent or malformed.
func (s *Store) GetValue(key string) models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil
	}
	var doc models.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.log.Warn(context.Background(), "discarding malformed local value", "key", key, "error", err)
		return nil
	}
	return doc
}

// SetValue writes a single-document entry.
func (s *Store) SetValue(key string, doc models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal value %s: %w", key, err)
	}
	return s.write(key, raw)
}

// DeleteValue removes a single-document entry. Deleting an absent entry is
// not an error.
func (s *Store) DeleteValue(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete value %s: %w", key, err)
	}
	return nil
}

// maxActivityEntries caps each user's activity log.
const maxActivityEntries = 100

// AppendActivity adds an entry to the per-user activity log, trimming the
// oldest entries beyond the cap.
func (s *Store) AppendActivity(entry models.ActivityEntry) error {
	doc, err := models.Encode(entry)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	collection := activityCollection(entry.OwnerID)
	docs := append(s.readAll(collection), doc)
	if len(docs) > maxActivityEntries {
		docs = docs[len(docs)-maxActivityEntries:]
	}
	return s.writeAll(collection, docs)
}

// GetActivity returns a user's activity log, oldest first.
func (s *Store) GetActivity(ownerID string) []models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll(activityCollection(ownerID))
}

func activityCollection(ownerID string) string {
	return "activity_" + ownerID
}

func (s *Store) readAll(collection string) []models.Document {
	raw, err := os.ReadFile(s.path(collection))
	if err != nil {
		return []models.Document{}
	}
	var docs []models.Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		s.log.Warn(context.Background(), "discarding malformed local collection", "collection", collection, "error", err)
		return []models.Document{}
	}
	return docs
}

func (s *Store) writeAll(collection string, docs []models.Document) error {
	if docs == nil {
		docs = []models.Document{}
	}
	raw, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("marshal collection %s: %w", collection, err)
	}
	return s.write(collection, raw)
}

// write lands the bytes via a rename so a crash cannot leave a half-written
// snapshot behind.
func (s *Store) write(key string, raw []byte) error {
	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o660); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

func (s *Store) path(key string) string {
	// Collection names may embed a user id; keep them filesystem-safe.
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, key)
	return filepath.Join(s.dir, safe+".json")
}
