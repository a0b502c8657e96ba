package pager

import (
	"context"
	"fmt"
	"sync"

	"github.com/linkstash/linkstash/internal/collection"
	"github.com/linkstash/linkstash/internal/domain"
	"github.com/linkstash/linkstash/internal/logger"
	"github.com/linkstash/linkstash/internal/store"
)

// DefaultPageSize is how many links one page request carries.
const DefaultPageSize = 30

// Source is the slice of the durable store the loader reads from.
type Source interface {
	ListLinks(ctx context.Context, ownerID string, p store.Page) ([]*domain.Link, error)
	ListTags(ctx context.Context, ownerID string) ([]*domain.Tag, error)
}

// Loader pages one owner's collection into the local window. At most
// one load runs at a time; a request that arrives while another is in
// flight is a no-op. Once a short page comes back the collection is
// exhausted and further next-page calls do nothing until a refresh.
type Loader struct {
	src      Source
	cache    *collection.Cache
	owner    string
	pageSize int
	log      logger.Logger

	mu       sync.Mutex
	cursor   domain.PageCursor
	loaded   bool
	inflight bool
	tagNames map[string]string
}

func NewLoader(src Source, cache *collection.Cache, owner string, pageSize int, log logger.Logger) *Loader {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Loader{
		src:      src,
		cache:    cache,
		owner:    owner,
		pageSize: pageSize,
		log:      log,
		cursor:   domain.PageCursor{PageSize: pageSize},
		tagNames: make(map[string]string),
	}
}

// begin claims the in-flight slot. false means another load owns it.
func (l *Loader) begin() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inflight {
		return false
	}
	l.inflight = true
	return true
}

func (l *Loader) end() {
	l.mu.Lock()
	l.inflight = false
	l.mu.Unlock()
}

// LoadFirstPage populates the window with page zero. Already-loaded
// loaders treat it as a refresh request.
func (l *Loader) LoadFirstPage(ctx context.Context) error {
	l.mu.Lock()
	loaded := l.loaded
	l.mu.Unlock()
	if loaded {
		return l.Refresh(ctx)
	}

	if !l.begin() {
		return nil
	}
	defer l.end()

	rows, err := l.src.ListLinks(ctx, l.owner, store.Page{Index: 0, Size: l.pageSize})
	if err != nil {
		return fmt.Errorf("failed to load first page: %w", err)
	}
	l.cache.ResetWindow(l.owner, rows)
	l.refreshTagNames(ctx)

	l.mu.Lock()
	l.loaded = true
	l.cursor = domain.PageCursor{
		PageIndex: 0,
		PageSize:  l.pageSize,
		Exhausted: len(rows) < l.pageSize,
	}
	l.mu.Unlock()
	return nil
}

// LoadNextPage appends the next page to the window. No-op while
// exhausted or while another load is in flight.
func (l *Loader) LoadNextPage(ctx context.Context) error {
	l.mu.Lock()
	if !l.loaded || l.cursor.Exhausted {
		l.mu.Unlock()
		return nil
	}
	next := l.cursor.PageIndex + 1
	l.mu.Unlock()

	if !l.begin() {
		return nil
	}
	defer l.end()

	rows, err := l.src.ListLinks(ctx, l.owner, store.Page{Index: next, Size: l.pageSize})
	if err != nil {
		return fmt.Errorf("failed to load page %d: %w", next, err)
	}
	added := l.cache.MergeAppend(l.owner, rows)
	if added < len(rows) {
		l.log.Debug("skipped rows already present in window",
			logger.String("owner", l.owner),
			logger.Int("skipped", len(rows)-added))
	}

	l.mu.Lock()
	l.cursor.PageIndex = next
	l.cursor.Exhausted = len(rows) < l.pageSize
	l.mu.Unlock()
	return nil
}

// Refresh reloads page zero and rebuilds the window around it. Links
// with unresolved optimistic state survive the rebuild; the page
// cursor rewinds so scrolling starts over.
func (l *Loader) Refresh(ctx context.Context) error {
	if !l.begin() {
		return nil
	}
	defer l.end()

	rows, err := l.src.ListLinks(ctx, l.owner, store.Page{Index: 0, Size: l.pageSize})
	if err != nil {
		return fmt.Errorf("failed to refresh collection: %w", err)
	}
	l.cache.ResetWindow(l.owner, rows)
	l.refreshTagNames(ctx)

	l.mu.Lock()
	l.loaded = true
	l.cursor = domain.PageCursor{
		PageIndex: 0,
		PageSize:  l.pageSize,
		Exhausted: len(rows) < l.pageSize,
	}
	l.mu.Unlock()
	return nil
}

// Window returns the loaded window, newest first.
func (l *Loader) Window() []*domain.Link {
	return l.cache.Window(l.owner)
}

// Filter narrows the loaded window to links matching query. It only
// ever searches what is already local; no store round trip.
func (l *Loader) Filter(query string) []*domain.Link {
	window := l.cache.Window(l.owner)

	l.mu.Lock()
	names := l.tagNames
	l.mu.Unlock()

	out := make([]*domain.Link, 0, len(window))
	for _, link := range window {
		tags := make([]string, 0, len(link.TagIDs))
		for _, id := range link.TagIDs {
			if name, ok := names[id]; ok {
				tags = append(tags, name)
			}
		}
		if domain.MatchesFilter(query, link, tags) {
			out = append(out, link)
		}
	}
	return out
}

// Cursor reports the paging position.
func (l *Loader) Cursor() domain.PageCursor {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor
}

// refreshTagNames rebuilds the id-to-name map used by Filter.
// Best effort; a failure leaves the previous map in place.
func (l *Loader) refreshTagNames(ctx context.Context) {
	tags, err := l.src.ListTags(ctx, l.owner)
	if err != nil {
		l.log.Warn("failed to refresh tag names",
			logger.String("owner", l.owner),
			logger.Error(err))
		return
	}
	names := make(map[string]string, len(tags))
	for _, t := range tags {
		names[t.ID] = t.Name
	}
	l.mu.Lock()
	l.tagNames = names
	l.mu.Unlock()
}
