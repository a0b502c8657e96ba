package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/linkstash/linkstash/internal/domain"
	"github.com/linkstash/linkstash/internal/store"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// Store is the durable link store backed by SQLite. The schema owns
// the (owner_id, normalized_url) uniqueness and the persisted metadata
// retry budget, so both survive process restarts.
type Store struct {
	db *sql.DB
}

// Ensure Store satisfies the durable store contract.
var _ store.Remote = (*Store)(nil)

// Open creates or opens the database at path and applies the schema.
// ":memory:" is accepted for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_loc=UTC")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Pragmas + schema in one batch.
	_, err = db.Exec(`
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;

		CREATE TABLE IF NOT EXISTS spaces (
			id         TEXT PRIMARY KEY,
			owner_id   TEXT NOT NULL,
			name       TEXT NOT NULL,
			color      TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS tags (
			id         TEXT PRIMARY KEY,
			owner_id   TEXT NOT NULL,
			name       TEXT NOT NULL,
			color      TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS links (
			id                       TEXT PRIMARY KEY,
			owner_id                 TEXT NOT NULL,
			url                      TEXT NOT NULL,
			normalized_url           TEXT NOT NULL,
			domain                   TEXT NOT NULL DEFAULT '',
			title                    TEXT NOT NULL DEFAULT '',
			description              TEXT NOT NULL DEFAULT '',
			thumbnail_url            TEXT NOT NULL DEFAULT '',
			note                     TEXT NOT NULL DEFAULT '',
			space_id                 TEXT REFERENCES spaces(id),
			created_at               DATETIME NOT NULL,
			updated_at               DATETIME NOT NULL,
			opened_at                DATETIME,
			metadata_fetch_attempts  INTEGER NOT NULL DEFAULT 0,
			metadata_last_attempt_at DATETIME,
			metadata_complete        INTEGER NOT NULL DEFAULT 0,
			UNIQUE (owner_id, normalized_url)
		);
		CREATE TABLE IF NOT EXISTS link_tags (
			link_id TEXT NOT NULL REFERENCES links(id) ON DELETE CASCADE,
			tag_id  TEXT NOT NULL REFERENCES tags(id),
			PRIMARY KEY (link_id, tag_id)
		);
		CREATE INDEX IF NOT EXISTS idx_links_owner_created ON links(owner_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_links_metadata_pending ON links(metadata_complete, metadata_fetch_attempts);
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database responds.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// mapConstraintErr converts SQLite constraint violations into the
// typed errors the engine branches on. Anything else passes through.
func mapConstraintErr(err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return domain.ErrDuplicate
	case sqlite3.ErrConstraintForeignKey:
		return domain.ErrConflict
	}
	return err
}
