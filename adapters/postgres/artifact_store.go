// Package postgres implements the shared-tier artifact store on PostgreSQL,
// for deployments where several workers fill one cache.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"godecode/domain/core"
	"godecode/domain/decoding"
)

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	kind       TEXT NOT NULL,
	subject    TEXT NOT NULL,
	analysis   TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (kind, subject, analysis)
)`

// Store implements ports.ArtifactStore on a PostgreSQL table keyed by
// (kind, subject, analysis).
type Store struct {
	db *sqlx.DB
}

// Open connects to the database and ensures the artifacts table exists.
func Open(url string) (*Store, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure artifacts table: %w", err)
	}
	return &Store{db: db}, nil
}

// Has reports whether an artifact exists at the key.
func (s *Store) Has(ctx context.Context, key decoding.Key) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM artifacts WHERE kind = $1 AND subject = $2 AND analysis = $3)`,
		key.Kind, key.Subject, key.Analysis).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check artifact: %w", err)
	}
	return exists, nil
}

// Load unmarshals the artifact at the key into out.
func (s *Store) Load(ctx context.Context, key decoding.Key, out any) error {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM artifacts WHERE kind = $1 AND subject = $2 AND analysis = $3`,
		key.Kind, key.Subject, key.Analysis).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return core.NewMissingArtifactError(string(key.Kind), string(key.Subject), string(key.Analysis))
	}
	if err != nil {
		return fmt.Errorf("load artifact: %w", err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("unmarshal artifact: %w", err)
	}
	return nil
}

// Save upserts the artifact under the key.
func (s *Store) Save(ctx context.Context, key decoding.Key, artifact any) error {
	payload, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO artifacts (kind, subject, analysis, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (kind, subject, analysis) DO UPDATE
		 SET payload = EXCLUDED.payload, created_at = EXCLUDED.created_at`,
		key.Kind, key.Subject, key.Analysis, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
