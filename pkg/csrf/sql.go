package csrf

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLStore persists CSRF records in the relational database. Works with
// both the postgres and sqlite drivers; $N ordinal placeholders are
// understood by both.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a store over an open database handle
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Schema returns the DDL for the csrf_tokens table
func Schema() string {
	return `
		CREATE TABLE IF NOT EXISTS csrf_tokens (
			subject_id TEXT PRIMARY KEY,
			token      TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`
}

// Find returns the record for the subject, or nil if none exists
func (s *SQLStore) Find(ctx context.Context, subjectID string) (*Record, error) {
	rec := &Record{}
	err := s.db.QueryRowContext(ctx, `
		SELECT subject_id, token, created_at, updated_at
		FROM csrf_tokens WHERE subject_id = $1
	`, subjectID).Scan(&rec.SubjectID, &rec.Token, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csrf token lookup failed: %w", err)
	}
	return rec, nil
}

// Upsert creates or overwrites the subject's record. ON CONFLICT keeps the
// original created_at so a record can never be duplicated per subject.
func (s *SQLStore) Upsert(ctx context.Context, subjectID, token string, now time.Time) (*Record, error) {
	rec := &Record{}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO csrf_tokens (subject_id, token, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (subject_id)
		DO UPDATE SET token = EXCLUDED.token, updated_at = EXCLUDED.updated_at
		RETURNING subject_id, token, created_at, updated_at
	`, subjectID, token, now).Scan(&rec.SubjectID, &rec.Token, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("csrf token upsert failed: %w", err)
	}
	return rec, nil
}
