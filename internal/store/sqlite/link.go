package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/linkstash/linkstash/internal/domain"
	"github.com/linkstash/linkstash/internal/store"
)

const linkColumns = `id, owner_id, url, normalized_url, domain, title, description,
	thumbnail_url, note, space_id, created_at, updated_at, opened_at,
	metadata_fetch_attempts, metadata_last_attempt_at, metadata_complete`

// CreateLink inserts a new link and returns the stored record with the
// store-assigned id and timestamps.
func (s *Store) CreateLink(ctx context.Context, l *domain.Link) (*domain.Link, error) {
	stored := l.Clone()
	stored.ID = uuid.NewString()
	stored.Tentative = false
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO links (id, owner_id, url, normalized_url, domain, title, description,
			thumbnail_url, note, space_id, created_at, updated_at,
			metadata_fetch_attempts, metadata_last_attempt_at, metadata_complete)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.OwnerID, stored.URL, stored.NormalizedURL, stored.Domain,
		stored.Title, stored.Description, stored.ThumbnailURL, stored.Note,
		nullable(stored.SpaceID), stored.CreatedAt, stored.UpdatedAt,
		stored.Metadata.Attempts, stored.Metadata.LastAttemptAt, boolInt(stored.Metadata.Complete),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert link: %w", mapConstraintErr(err))
	}

	if err := insertLinkTags(ctx, tx, stored.ID, stored.TagIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit link insert: %w", err)
	}
	return stored, nil
}

// UpdateLink persists the mutable fields and returns the stored record.
func (s *Store) UpdateLink(ctx context.Context, l *domain.Link) (*domain.Link, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE links SET title = ?, note = ?, space_id = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		l.Title, l.Note, nullable(l.SpaceID), now, l.ID, l.OwnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update link: %w", mapConstraintErr(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM link_tags WHERE link_id = ?`, l.ID); err != nil {
		return nil, fmt.Errorf("failed to clear link tags: %w", err)
	}
	if err := insertLinkTags(ctx, tx, l.ID, l.TagIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit link update: %w", err)
	}

	stored := l.Clone()
	stored.UpdatedAt = now
	return stored, nil
}

// DeleteLink removes a link permanently.
func (s *Store) DeleteLink(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM links WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", mapConstraintErr(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetLink fetches one link by id.
func (s *Store) GetLink(ctx context.Context, ownerID, id string) (*domain.Link, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM links WHERE id = ? AND owner_id = ?`, id, ownerID)

	l, err := scanLink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	if err := s.loadTags(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// ListLinks returns one page of the owner's collection, newest first.
func (s *Store) ListLinks(ctx context.Context, ownerID string, p store.Page) ([]*domain.Link, error) {
	if p.Size <= 0 {
		return nil, fmt.Errorf("invalid page size: %d", p.Size)
	}

	query := `SELECT ` + linkColumns + ` FROM links WHERE owner_id = ?`
	args := []any{ownerID}
	if p.SpaceID != "" {
		query += ` AND space_id = ?`
		args = append(args, p.SpaceID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, p.Size, p.Index*p.Size)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var links []*domain.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate links: %w", err)
	}

	for _, l := range links {
		if err := s.loadTags(ctx, l); err != nil {
			return nil, err
		}
	}
	return links, nil
}

// TouchOpened records an open timestamp. Never affects ordering.
func (s *Store) TouchOpened(ctx context.Context, ownerID, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE links SET opened_at = ? WHERE id = ? AND owner_id = ?`,
		at.UTC(), id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to touch opened_at: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecordMetadataAttempt persists the attempt counter before the fetch
// goes out, so a crash mid-fetch still consumes budget.
func (s *Store) RecordMetadataAttempt(ctx context.Context, ownerID, id string, attempts int, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE links SET metadata_fetch_attempts = ?, metadata_last_attempt_at = ?
		WHERE id = ? AND owner_id = ?`,
		attempts, at.UTC(), id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to record metadata attempt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SaveMetadata stores a successful enrichment and marks the link done.
func (s *Store) SaveMetadata(ctx context.Context, ownerID, id string, meta domain.LinkMetadata) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE links SET title = ?, description = ?, thumbnail_url = ?,
			metadata_complete = 1, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		meta.Title, meta.Description, meta.ThumbnailURL, time.Now().UTC(), id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ResetMetadataAttempts zeroes the retry budget. Explicit user action only.
func (s *Store) ResetMetadataAttempts(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE links SET metadata_fetch_attempts = 0, metadata_last_attempt_at = NULL,
			metadata_complete = 0
		WHERE id = ? AND owner_id = ?`,
		id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to reset metadata attempts: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AwaitingMetadata returns links with retry budget left, across owners.
func (s *Store) AwaitingMetadata(ctx context.Context) ([]*domain.Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+linkColumns+` FROM links
		WHERE metadata_complete = 0 AND metadata_fetch_attempts < ?
		ORDER BY created_at ASC`,
		domain.MaxMetadataAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to query awaiting metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var links []*domain.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate awaiting metadata: %w", err)
	}
	return links, nil
}

// NormalizedURLsByOwner returns every owner's dedup key set.
func (s *Store) NormalizedURLsByOwner(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT owner_id, normalized_url FROM links`)
	if err != nil {
		return nil, fmt.Errorf("failed to query normalized urls: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string][]string)
	for rows.Next() {
		var owner, nurl string
		if err := rows.Scan(&owner, &nurl); err != nil {
			return nil, fmt.Errorf("failed to scan normalized url: %w", err)
		}
		out[owner] = append(out[owner], nurl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate normalized urls: %w", err)
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(r rowScanner) (*domain.Link, error) {
	var (
		l             domain.Link
		spaceID       sql.NullString
		openedAt      sql.NullTime
		lastAttemptAt sql.NullTime
		complete      int
	)
	err := r.Scan(
		&l.ID, &l.OwnerID, &l.URL, &l.NormalizedURL, &l.Domain, &l.Title,
		&l.Description, &l.ThumbnailURL, &l.Note, &spaceID,
		&l.CreatedAt, &l.UpdatedAt, &openedAt,
		&l.Metadata.Attempts, &lastAttemptAt, &complete,
	)
	if err != nil {
		return nil, err
	}
	if spaceID.Valid {
		l.SpaceID = spaceID.String
	}
	if openedAt.Valid {
		t := openedAt.Time
		l.OpenedAt = &t
	}
	if lastAttemptAt.Valid {
		t := lastAttemptAt.Time
		l.Metadata.LastAttemptAt = &t
	}
	l.Metadata.Complete = complete != 0
	return &l, nil
}

func (s *Store) loadTags(ctx context.Context, l *domain.Link) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag_id FROM link_tags WHERE link_id = ?`, l.ID)
	if err != nil {
		return fmt.Errorf("failed to load link tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	l.TagIDs = nil
	for rows.Next() {
		var tagID string
		if err := rows.Scan(&tagID); err != nil {
			return fmt.Errorf("failed to scan tag id: %w", err)
		}
		l.TagIDs = append(l.TagIDs, tagID)
	}
	return rows.Err()
}

func insertLinkTags(ctx context.Context, tx *sql.Tx, linkID string, tagIDs []string) error {
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO link_tags (link_id, tag_id) VALUES (?, ?)`, linkID, tagID); err != nil {
			return fmt.Errorf("failed to insert link tag: %w", mapConstraintErr(err))
		}
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
