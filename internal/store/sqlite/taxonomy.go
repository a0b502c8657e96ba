package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/linkstash/linkstash/internal/domain"
)

// CreateSpace inserts a new space and returns the stored record.
func (s *Store) CreateSpace(ctx context.Context, sp *domain.Space) (*domain.Space, error) {
	stored := *sp
	stored.ID = uuid.NewString()
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO spaces (id, owner_id, name, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.OwnerID, stored.Name, stored.Color, stored.CreatedAt, stored.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert space: %w", mapConstraintErr(err))
	}
	return &stored, nil
}

// CreateTag inserts a new tag and returns the stored record.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) (*domain.Tag, error) {
	stored := *t
	stored.ID = uuid.NewString()
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, owner_id, name, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.OwnerID, stored.Name, stored.Color, stored.CreatedAt, stored.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert tag: %w", mapConstraintErr(err))
	}
	return &stored, nil
}

// ListTags returns the owner's tags with usage counts.
func (s *Store) ListTags(ctx context.Context, ownerID string) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.owner_id, t.name, t.color, t.created_at, t.updated_at,
			(SELECT COUNT(*) FROM link_tags lt WHERE lt.tag_id = t.id)
		FROM tags t WHERE t.owner_id = ? ORDER BY t.name`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tags []*domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Name, &t.Color,
			&t.CreatedAt, &t.UpdatedAt, &t.UsageCount); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, &t)
	}
	return tags, rows.Err()
}

// ListSpaces returns the owner's spaces with link counts.
func (s *Store) ListSpaces(ctx context.Context, ownerID string) ([]*domain.Space, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sp.id, sp.owner_id, sp.name, sp.color, sp.created_at, sp.updated_at,
			(SELECT COUNT(*) FROM links l WHERE l.space_id = sp.id)
		FROM spaces sp WHERE sp.owner_id = ? ORDER BY sp.name`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var spaces []*domain.Space
	for rows.Next() {
		var sp domain.Space
		if err := rows.Scan(&sp.ID, &sp.OwnerID, &sp.Name, &sp.Color,
			&sp.CreatedAt, &sp.UpdatedAt, &sp.LinkCount); err != nil {
			return nil, fmt.Errorf("failed to scan space: %w", err)
		}
		spaces = append(spaces, &sp)
	}
	return spaces, rows.Err()
}
