package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mediavault/mediavault/internal/dbx"
	"github.com/mediavault/mediavault/internal/models"
	"github.com/mediavault/mediavault/internal/remote"
)

// PostgresStore keeps each document as a jsonb value keyed by
// (collection, id). Plain equality filters are pushed down as jsonb
// containment; $or filters are evaluated in process over the collection.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Find(ctx context.Context, collection string, filter models.Document, limit int) ([]models.Document, error) {
	if contains, ok := containmentFilter(filter); ok {
		return s.findByContainment(ctx, collection, contains, limit)
	}
	return s.findByScan(ctx, collection, filter, limit)
}

func (s *PostgresStore) findByContainment(ctx context.Context, collection string, contains models.Document, limit int) ([]models.Document, error) {
	probe, err := json.Marshal(contains)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}

	query := `SELECT doc FROM documents WHERE collection = $1 AND doc @> $2::jsonb ORDER BY id`
	args := []any{collection, string(probe)}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

func (s *PostgresStore) findByScan(ctx context.Context, collection string, filter models.Document, limit int) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM documents WHERE collection = $1 ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	all, err := scanDocuments(rows)
	if err != nil {
		return nil, err
	}

	var out []models.Document
	for _, d := range all {
		if remote.MatchFilter(d, filter) {
			out = append(out, d)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *PostgresStore) InsertOne(ctx context.Context, collection string, doc models.Document) (string, error) {
	stored := doc.Clone()
	id := stored.ID()
	if id == "" {
		id = uuid.NewString()
		stored.SetID(id)
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	query := `
		INSERT INTO documents (collection, id, doc)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET doc = EXCLUDED.doc
		RETURNING id`

	if err := s.db.QueryRowContext(ctx, query, collection, id, string(raw)).Scan(&id); err != nil {
		return "", fmt.Errorf("error performing sql request: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) UpdateOne(ctx context.Context, collection string, filter, update models.Document) (int64, error) {
	var modified int64

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		doc, found, err := s.lockFirstMatch(ctx, tx, collection, filter)
		if err != nil || !found {
			return err
		}

		raw, err := json.Marshal(ApplyUpdate(doc, update))
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE documents SET doc = $3::jsonb WHERE collection = $1 AND id = $2`,
			collection, doc.ID(), string(raw)); err != nil {
			return fmt.Errorf("error performing sql request: %w", err)
		}
		modified = 1
		return nil
	})
	return modified, err
}

func (s *PostgresStore) DeleteOne(ctx context.Context, collection string, filter models.Document) (int64, error) {
	var deleted int64

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		doc, found, err := s.lockFirstMatch(ctx, tx, collection, filter)
		if err != nil || !found {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM documents WHERE collection = $1 AND id = $2`,
			collection, doc.ID()); err != nil {
			return fmt.Errorf("error performing sql request: %w", err)
		}
		deleted = 1
		return nil
	})
	return deleted, err
}

// lockFirstMatch finds the first document matching the filter within the
// transaction and locks its row until commit.
func (s *PostgresStore) lockFirstMatch(ctx context.Context, tx dbx.DBTX, collection string, filter models.Document) (models.Document, bool, error) {
	var query string
	var args []any

	if contains, ok := containmentFilter(filter); ok {
		probe, err := json.Marshal(contains)
		if err != nil {
			return nil, false, fmt.Errorf("encode filter: %w", err)
		}
		query = `SELECT doc FROM documents WHERE collection = $1 AND doc @> $2::jsonb ORDER BY id LIMIT 1 FOR UPDATE`
		args = []any{collection, string(probe)}
	} else {
		query = `SELECT doc FROM documents WHERE collection = $1 ORDER BY id FOR UPDATE`
		args = []any{collection}
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	docs, err := scanDocuments(rows)
	if err != nil {
		return nil, false, err
	}
	for _, d := range docs {
		if remote.MatchFilter(d, filter) {
			return d, true, nil
		}
	}
	return nil, false, nil
}

// containmentFilter reports whether the filter consists solely of scalar
// equality pairs and, if so, returns them as a containment probe. Operator
// keys ($or and friends) and nested expressions disqualify pushdown.
func containmentFilter(filter models.Document) (models.Document, bool) {
	out := models.Document{}
	for k, v := range filter {
		if strings.HasPrefix(k, "$") {
			return nil, false
		}
		switch v.(type) {
		case map[string]any, []any, models.Document:
			return nil, false
		}
		out[k] = v
	}
	return out, true
}

func scanDocuments(rows *sql.Rows) ([]models.Document, error) {
	var out []models.Document
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		var doc models.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}
