package store

import (
	"context"
	"time"

	"github.com/linkstash/linkstash/internal/domain"
)

// Page selects one page of an owner's collection. SpaceID narrows the
// query to a single space; empty means the whole collection.
type Page struct {
	Index   int
	Size    int
	SpaceID string
}

// Remote is the durable store contract consumed by the mutation engine,
// the metadata coordinator and the paginated loader. Implementations
// must surface uniqueness violations as domain.ErrDuplicate and
// foreign-key violations as domain.ErrConflict.
type Remote interface {
	// CreateLink persists a new link and returns the stored record with
	// the store-assigned id and server timestamps.
	CreateLink(ctx context.Context, l *domain.Link) (*domain.Link, error)

	// UpdateLink persists the mutable fields of l and returns the
	// stored record with the server-side updatedAt.
	UpdateLink(ctx context.Context, l *domain.Link) (*domain.Link, error)

	// DeleteLink removes a link permanently.
	DeleteLink(ctx context.Context, ownerID, id string) error

	// GetLink fetches one link, domain.ErrNotFound when absent.
	GetLink(ctx context.Context, ownerID, id string) (*domain.Link, error)

	// ListLinks returns one page, newest first.
	ListLinks(ctx context.Context, ownerID string, p Page) ([]*domain.Link, error)

	// TouchOpened records an open. Analytics only.
	TouchOpened(ctx context.Context, ownerID, id string, at time.Time) error

	// RecordMetadataAttempt persists the attempt counter and timestamp.
	// It is called before the fetch goes out so a crash mid-fetch never
	// grants a free retry.
	RecordMetadataAttempt(ctx context.Context, ownerID, id string, attempts int, at time.Time) error

	// SaveMetadata stores a successful enrichment result and marks the
	// link complete.
	SaveMetadata(ctx context.Context, ownerID, id string, meta domain.LinkMetadata) error

	// ResetMetadataAttempts zeroes the retry budget. Only an explicit
	// user action reaches this.
	ResetMetadataAttempts(ctx context.Context, ownerID, id string) error

	// AwaitingMetadata returns links across all owners that still have
	// retry budget and are not complete.
	AwaitingMetadata(ctx context.Context) ([]*domain.Link, error)

	// NormalizedURLsByOwner returns every owner's set of normalized
	// URLs, used to warm the dedup cache at startup.
	NormalizedURLsByOwner(ctx context.Context) (map[string][]string, error)

	// ListTags and ListSpaces expose the owner's display entities.
	ListTags(ctx context.Context, ownerID string) ([]*domain.Tag, error)
	ListSpaces(ctx context.Context, ownerID string) ([]*domain.Space, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
