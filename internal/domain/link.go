package domain

import "time"

const (
	// NoteMaxLen is the maximum length of a user note attached to a link.
	NoteMaxLen = 200

	// MaxMetadataAttempts is the enrichment retry budget per link.
	// The counter is persisted next to the link so it survives restarts.
	MaxMetadataAttempts = 3
)

// MetadataState tracks the enrichment lifecycle of a single link.
// Attempts is authoritative in the durable store, not in memory.
type MetadataState struct {
	Attempts      int
	LastAttemptAt *time.Time
	Complete      bool
}

// Exhausted reports whether the retry budget is spent without success.
func (m MetadataState) Exhausted() bool {
	return !m.Complete && m.Attempts >= MaxMetadataAttempts
}

// AwaitingRetry reports whether another automatic attempt is allowed.
func (m MetadataState) AwaitingRetry() bool {
	return !m.Complete && m.Attempts > 0 && m.Attempts < MaxMetadataAttempts
}

// LinkMetadata is the payload returned by an enrichment fetch.
type LinkMetadata struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// Link represents a captured URL owned by a single user.
type Link struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	// ID is assigned by the durable store. Until the remote create is
	// acknowledged it holds a client-generated tentative id.
	ID string

	// OwnerID scopes the link to one user. (OwnerID, NormalizedURL)
	// is unique per owner, enforced by the store.
	OwnerID string

	// ─────────────────────────────
	// Capture
	// ─────────────────────────────

	// URL is the address exactly as captured.
	URL string

	// NormalizedURL is the canonical dedup key derived from URL.
	NormalizedURL string

	// Domain is computed synchronously from URL and doubles as the
	// title placeholder until enrichment completes.
	Domain string

	// ─────────────────────────────
	// Enrichment (nullable until fetched)
	// ─────────────────────────────

	Title        string
	Description  string
	ThumbnailURL string

	// ─────────────────────────────
	// User annotations
	// ─────────────────────────────

	// Note holds free text, at most NoteMaxLen characters.
	Note string

	// SpaceID is empty for the unsorted bucket.
	SpaceID string

	// TagIDs is order-irrelevant.
	TagIDs []string

	// ─────────────────────────────
	// Timestamps
	// ─────────────────────────────

	CreatedAt time.Time
	UpdatedAt time.Time

	// OpenedAt is analytics only. It never reorders the collection.
	OpenedAt *time.Time

	// ─────────────────────────────
	// Sync state
	// ─────────────────────────────

	Metadata MetadataState

	// Tentative marks a link whose remote create has not resolved yet.
	Tentative bool
}

// DisplayTitle returns the fetched title, or the domain placeholder
// so the entry is never blank.
func (l *Link) DisplayTitle() string {
	if l.Title != "" {
		return l.Title
	}
	return l.Domain
}

// HasTag reports whether the link carries the given tag.
func (l *Link) HasTag(tagID string) bool {
	for _, id := range l.TagIDs {
		if id == tagID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Rollback snapshots rely on it.
func (l *Link) Clone() *Link {
	c := *l
	if l.TagIDs != nil {
		c.TagIDs = append([]string(nil), l.TagIDs...)
	}
	if l.OpenedAt != nil {
		t := *l.OpenedAt
		c.OpenedAt = &t
	}
	if l.Metadata.LastAttemptAt != nil {
		t := *l.Metadata.LastAttemptAt
		c.Metadata.LastAttemptAt = &t
	}
	return &c
}

// LinkPatch describes a partial update. Nil fields are left untouched.
type LinkPatch struct {
	Title   *string
	Note    *string
	SpaceID *string
	TagIDs  *[]string
}

// Apply mutates l with the non-nil fields of the patch.
func (p LinkPatch) Apply(l *Link) {
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Note != nil {
		l.Note = *p.Note
	}
	if p.SpaceID != nil {
		l.SpaceID = *p.SpaceID
	}
	if p.TagIDs != nil {
		l.TagIDs = append([]string(nil), (*p.TagIDs)...)
	}
}

// Empty reports whether the patch changes nothing.
func (p LinkPatch) Empty() bool {
	return p.Title == nil && p.Note == nil && p.SpaceID == nil && p.TagIDs == nil
}

// PendingShare is the single-slot payload handed over by the OS share
// surface. At most one is outstanding per process lifetime slice.
type PendingShare struct {
	URL string
}

// PageCursor is the per-query bookkeeping of the paginated loader.
type PageCursor struct {
	PageIndex int
	PageSize  int
	Exhausted bool
}
