package collection

import (
	"sync"
	"time"

	"github.com/linkstash/linkstash/internal/domain"
)

// EventType classifies cache notifications sent to observers.
type EventType string

const (
	EventCreated  EventType = "created"
	EventUpdated  EventType = "updated"
	EventDeleted  EventType = "deleted"
	EventRestored EventType = "restored"
)

// Event is delivered to observers after every engine mutation so the
// consuming surface reflects changes with zero perceived latency.
type Event struct {
	Owner string
	Type  EventType
	Link  *domain.Link
}

// Observer receives cache events. Callbacks run outside the cache lock.
type Observer func(Event)

// window is the loaded slice of one owner's collection, newest first.
type window struct {
	links      []*domain.Link
	byID       map[string]*domain.Link
	normalized map[string]string    // normalized URL -> link id
	seqs       map[string]int64     // per-link mutation sequence
	tombstones map[string]time.Time // locally deleted, remote not reconciled
}

func newWindow() *window {
	return &window{
		byID:       make(map[string]*domain.Link),
		normalized: make(map[string]string),
		seqs:       make(map[string]int64),
		tombstones: make(map[string]time.Time),
	}
}

func (w *window) indexOf(id string) int {
	for i, l := range w.links {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// Cache is the local collection cache: the only mutable view of each
// owner's links. It is written exclusively by the mutation engine and
// the paginated loader's merge step.
type Cache struct {
	mu        sync.RWMutex
	windows   map[string]*window
	observers []Observer
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{windows: make(map[string]*window)}
}

// Subscribe registers an observer for all future cache events.
func (c *Cache) Subscribe(fn Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

func (c *Cache) notify(ev Event) {
	c.mu.RLock()
	obs := append([]Observer(nil), c.observers...)
	c.mu.RUnlock()
	for _, fn := range obs {
		fn(ev)
	}
}

func (c *Cache) windowFor(owner string) *window {
	w, ok := c.windows[owner]
	if !ok {
		w = newWindow()
		c.windows[owner] = w
	}
	return w
}

// InsertFront places a link at the head of the owner's window.
func (c *Cache) InsertFront(owner string, l *domain.Link) {
	clone := l.Clone()

	c.mu.Lock()
	w := c.windowFor(owner)
	w.links = append([]*domain.Link{clone}, w.links...)
	w.byID[clone.ID] = clone
	w.normalized[clone.NormalizedURL] = clone.ID
	c.mu.Unlock()

	c.notify(Event{Owner: owner, Type: EventCreated, Link: clone.Clone()})
}

// InsertAt restores a link at its original position. Used by delete
// rollback; the index is clamped to the current window bounds.
func (c *Cache) InsertAt(owner string, index int, l *domain.Link) {
	clone := l.Clone()

	c.mu.Lock()
	w := c.windowFor(owner)
	if index < 0 {
		index = 0
	}
	if index > len(w.links) {
		index = len(w.links)
	}
	w.links = append(w.links, nil)
	copy(w.links[index+1:], w.links[index:])
	w.links[index] = clone
	w.byID[clone.ID] = clone
	w.normalized[clone.NormalizedURL] = clone.ID
	delete(w.tombstones, clone.ID)
	c.mu.Unlock()

	c.notify(Event{Owner: owner, Type: EventRestored, Link: clone.Clone()})
}

// Remove deletes a link from the window and records a tombstone so a
// refresh cannot resurrect it. Returns a snapshot and the original
// index for a potential rollback.
func (c *Cache) Remove(owner string, id string) (*domain.Link, int, bool) {
	c.mu.Lock()
	w := c.windowFor(owner)
	idx := w.indexOf(id)
	if idx < 0 {
		c.mu.Unlock()
		return nil, -1, false
	}
	l := w.links[idx]
	w.links = append(w.links[:idx], w.links[idx+1:]...)
	delete(w.byID, id)
	delete(w.normalized, l.NormalizedURL)
	w.tombstones[id] = time.Now()
	snapshot := l.Clone()
	c.mu.Unlock()

	c.notify(Event{Owner: owner, Type: EventDeleted, Link: snapshot.Clone()})
	return snapshot, idx, true
}

// Discard drops a link without leaving a tombstone. Used when a
// tentative create is rejected remotely: the record never existed in
// the store, so a refresh has nothing to resurrect.
func (c *Cache) Discard(owner, id string) bool {
	c.mu.Lock()
	w := c.windowFor(owner)
	idx := w.indexOf(id)
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	l := w.links[idx]
	w.links = append(w.links[:idx], w.links[idx+1:]...)
	delete(w.byID, id)
	delete(w.normalized, l.NormalizedURL)
	delete(w.seqs, id)
	snapshot := l.Clone()
	c.mu.Unlock()

	c.notify(Event{Owner: owner, Type: EventDeleted, Link: snapshot})
	return true
}

// Replace updates a link in place, keeping its position.
func (c *Cache) Replace(owner string, l *domain.Link) bool {
	clone := l.Clone()

	c.mu.Lock()
	w := c.windowFor(owner)
	idx := w.indexOf(clone.ID)
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	old := w.links[idx]
	if old.NormalizedURL != clone.NormalizedURL {
		delete(w.normalized, old.NormalizedURL)
		w.normalized[clone.NormalizedURL] = clone.ID
	}
	w.links[idx] = clone
	w.byID[clone.ID] = clone
	c.mu.Unlock()

	c.notify(Event{Owner: owner, Type: EventUpdated, Link: clone.Clone()})
	return true
}

// ReconcileID swaps a tentative id for the store-assigned record without
// moving the link, so the confirmation never reorders the view.
func (c *Cache) ReconcileID(owner, tentativeID string, confirmed *domain.Link) bool {
	clone := confirmed.Clone()
	clone.Tentative = false

	c.mu.Lock()
	w := c.windowFor(owner)
	idx := w.indexOf(tentativeID)
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	w.links[idx] = clone
	delete(w.byID, tentativeID)
	w.byID[clone.ID] = clone
	w.normalized[clone.NormalizedURL] = clone.ID
	if seq, ok := w.seqs[tentativeID]; ok {
		delete(w.seqs, tentativeID)
		w.seqs[clone.ID] = seq
	}
	c.mu.Unlock()

	c.notify(Event{Owner: owner, Type: EventUpdated, Link: clone.Clone()})
	return true
}

// Get returns a snapshot of a link by id.
func (c *Cache) Get(owner, id string) (*domain.Link, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.windows[owner]
	if !ok {
		return nil, false
	}
	l, ok := w.byID[id]
	if !ok {
		return nil, false
	}
	return l.Clone(), true
}

// GetByNormalized returns a snapshot of the link holding the
// normalized URL, if loaded.
func (c *Cache) GetByNormalized(owner, normalizedURL string) (*domain.Link, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.windows[owner]
	if !ok {
		return nil, false
	}
	id, ok := w.normalized[normalizedURL]
	if !ok {
		return nil, false
	}
	l, ok := w.byID[id]
	if !ok {
		return nil, false
	}
	return l.Clone(), true
}

// HasNormalized reports whether the owner's loaded window already holds
// the normalized URL. This is the pre-flight duplicate check.
func (c *Cache) HasNormalized(owner, normalizedURL string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.windows[owner]
	if !ok {
		return false
	}
	_, ok = w.normalized[normalizedURL]
	return ok
}

// Window returns snapshots of the owner's loaded links, newest first.
func (c *Cache) Window(owner string) []*domain.Link {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.windows[owner]
	if !ok {
		return nil
	}
	out := make([]*domain.Link, 0, len(w.links))
	for _, l := range w.links {
		out = append(out, l.Clone())
	}
	return out
}

// Count returns the number of loaded links for an owner.
func (c *Cache) Count(owner string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.windows[owner]
	if !ok {
		return 0
	}
	return len(w.links)
}

// BumpSeq assigns the next mutation sequence number for a link.
// Sequence state outlives removal so delete rollbacks can be fenced.
func (c *Cache) BumpSeq(owner, id string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.windowFor(owner)
	w.seqs[id]++
	return w.seqs[id]
}

// SeqOf returns the current mutation sequence number for a link.
func (c *Cache) SeqOf(owner, id string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.windows[owner]
	if !ok {
		return 0
	}
	return w.seqs[id]
}

// IsTombstoned reports whether the link was deleted locally.
func (c *Cache) IsTombstoned(owner, id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.windows[owner]
	if !ok {
		return false
	}
	_, ok = w.tombstones[id]
	return ok
}

// MergeAppend adds fetched page rows that are not yet present, skipping
// tombstoned ids and rows whose normalized URL is already loaded (the
// tentative copy wins until its create resolves). Returns how many rows
// were appended.
func (c *Cache) MergeAppend(owner string, rows []*domain.Link) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.windowFor(owner)
	added := 0
	for _, row := range rows {
		if _, dead := w.tombstones[row.ID]; dead {
			continue
		}
		if _, present := w.byID[row.ID]; present {
			continue
		}
		if _, present := w.normalized[row.NormalizedURL]; present {
			continue
		}
		clone := row.Clone()
		w.links = append(w.links, clone)
		w.byID[clone.ID] = clone
		w.normalized[clone.NormalizedURL] = clone.ID
		added++
	}
	return added
}

// ResetWindow replaces the loaded window with fresh page rows while
// preserving in-flight optimistic state: tentative creates stay at the
// head and tombstoned rows stay gone. Sequence numbers are kept.
func (c *Cache) ResetWindow(owner string, rows []*domain.Link) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.windowFor(owner)

	var tentative []*domain.Link
	for _, l := range w.links {
		if l.Tentative {
			tentative = append(tentative, l)
		}
	}

	fresh := newWindow()
	fresh.seqs = w.seqs
	fresh.tombstones = w.tombstones

	for _, l := range tentative {
		fresh.links = append(fresh.links, l)
		fresh.byID[l.ID] = l
		fresh.normalized[l.NormalizedURL] = l.ID
	}
	for _, row := range rows {
		if _, dead := fresh.tombstones[row.ID]; dead {
			continue
		}
		if _, present := fresh.normalized[row.NormalizedURL]; present {
			continue
		}
		clone := row.Clone()
		fresh.links = append(fresh.links, clone)
		fresh.byID[clone.ID] = clone
		fresh.normalized[clone.NormalizedURL] = clone.ID
	}

	c.windows[owner] = fresh
}

// PruneTombstones drops tombstones older than ttl along with their
// sequence state. Returns the number pruned.
func (c *Cache) PruneTombstones(ttl time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := time.Now().Add(-ttl)
	pruned := 0
	for _, w := range c.windows {
		for id, at := range w.tombstones {
			if at.Before(cutoff) {
				delete(w.tombstones, id)
				delete(w.seqs, id)
				pruned++
			}
		}
	}
	return pruned
}
