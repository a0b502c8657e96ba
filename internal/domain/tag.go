package domain

import "time"

// Tag is a user-defined label, many-to-many with links.
type Tag struct {
	ID      string
	OwnerID string
	Name    string
	Color   string

	// UsageCount is derived by the store from link_tags membership.
	UsageCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Space is a user-defined bucket a link may belong to.
// A link with no space lives in the implicit "unsorted" bucket.
type Space struct {
	ID      string
	OwnerID string
	Name    string
	Color   string

	// LinkCount is derived by the store.
	LinkCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}
