package mutation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/linkstash/linkstash/internal/collection"
	"github.com/linkstash/linkstash/internal/domain"
	"github.com/linkstash/linkstash/internal/logger"
	"github.com/linkstash/linkstash/internal/store"
)

const owner = "user-1"

// fakeRemote is a scriptable in-memory store.Remote.
type fakeRemote struct {
	mu     sync.Mutex
	links  map[string]*domain.Link
	nextID int

	createErr error
	deleteErr error
	onUpdate  func(l *domain.Link) error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{links: make(map[string]*domain.Link)}
}

func (f *fakeRemote) CreateLink(_ context.Context, l *domain.Link) (*domain.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.links {
		if existing.OwnerID == l.OwnerID && existing.NormalizedURL == l.NormalizedURL {
			return nil, domain.ErrDuplicate
		}
	}
	f.nextID++
	stored := l.Clone()
	stored.ID = fmt.Sprintf("srv-%d", f.nextID)
	stored.Tentative = false
	f.links[stored.ID] = stored.Clone()
	return stored, nil
}

func (f *fakeRemote) UpdateLink(_ context.Context, l *domain.Link) (*domain.Link, error) {
	if f.onUpdate != nil {
		if err := f.onUpdate(l); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.links[l.ID]; !ok {
		return nil, domain.ErrNotFound
	}
	stored := l.Clone()
	stored.UpdatedAt = time.Now().UTC()
	f.links[l.ID] = stored.Clone()
	return stored, nil
}

func (f *fakeRemote) DeleteLink(_ context.Context, _, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.links[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.links, id)
	return nil
}

func (f *fakeRemote) GetLink(_ context.Context, _, id string) (*domain.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return l.Clone(), nil
}

func (f *fakeRemote) ListLinks(_ context.Context, _ string, _ store.Page) ([]*domain.Link, error) {
	return nil, nil
}

func (f *fakeRemote) TouchOpened(_ context.Context, _, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.links[id]; ok {
		t := at
		l.OpenedAt = &t
	}
	return nil
}

func (f *fakeRemote) RecordMetadataAttempt(_ context.Context, _, _ string, _ int, _ time.Time) error {
	return nil
}

func (f *fakeRemote) SaveMetadata(_ context.Context, _, _ string, _ domain.LinkMetadata) error {
	return nil
}

func (f *fakeRemote) ResetMetadataAttempts(_ context.Context, _, _ string) error { return nil }

func (f *fakeRemote) AwaitingMetadata(_ context.Context) ([]*domain.Link, error) { return nil, nil }

func (f *fakeRemote) NormalizedURLsByOwner(_ context.Context) (map[string][]string, error) {
	return nil, nil
}

func (f *fakeRemote) ListTags(_ context.Context, _ string) ([]*domain.Tag, error) { return nil, nil }

func (f *fakeRemote) ListSpaces(_ context.Context, _ string) ([]*domain.Space, error) {
	return nil, nil
}

func (f *fakeRemote) Ping(_ context.Context) error { return nil }

type fakeDedup struct {
	mu   sync.Mutex
	sets map[string]map[string]struct{}
}

func newFakeDedup() *fakeDedup {
	return &fakeDedup{sets: make(map[string]map[string]struct{})}
}

func (d *fakeDedup) HasNormalized(_ context.Context, owner, nurl string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.sets[owner][nurl]
	return ok, nil
}

func (d *fakeDedup) AddNormalized(_ context.Context, owner, nurl string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sets[owner] == nil {
		d.sets[owner] = make(map[string]struct{})
	}
	d.sets[owner][nurl] = struct{}{}
	return nil
}

func (d *fakeDedup) RemoveNormalized(_ context.Context, owner, nurl string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sets[owner], nurl)
	return nil
}

func newTestEngine(remote *fakeRemote) (*Engine, *collection.Cache, *fakeDedup) {
	cache := collection.NewCache()
	dedup := newFakeDedup()
	eng := New(remote, cache, dedup, domain.NewNormalizer(nil), logger.New("error", false))
	return eng, cache, dedup
}

func mustCreate(t *testing.T, eng *Engine, url string) *domain.Link {
	t.Helper()
	_, done, err := eng.Create(context.Background(), owner, CreateInput{URL: url})
	if err != nil {
		t.Fatalf("Create(%s) failed: %v", url, err)
	}
	if err := <-done; err != nil {
		t.Fatalf("remote create for %s failed: %v", url, err)
	}
	return headLink(t, eng, url)
}

func headLink(t *testing.T, eng *Engine, url string) *domain.Link {
	t.Helper()
	for _, l := range eng.Cache().Window(owner) {
		if l.URL == url {
			return l
		}
	}
	t.Fatalf("link %s not found in window", url)
	return nil
}

func TestCreateValidation(t *testing.T) {
	eng, _, _ := newTestEngine(newFakeRemote())

	if _, _, err := eng.Create(context.Background(), owner, CreateInput{URL: "not a url"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("bad URL error = %v, want ErrValidation", err)
	}

	long := strings.Repeat("x", domain.NoteMaxLen+1)
	if _, _, err := eng.Create(context.Background(), owner, CreateInput{URL: "https://example.com", Note: long}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("long note error = %v, want ErrValidation", err)
	}
}

func TestCreateReconcilesInPlace(t *testing.T) {
	eng, cache, dedup := newTestEngine(newFakeRemote())

	tentative, done, err := eng.Create(context.Background(), owner, CreateInput{URL: "https://example.com/a"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !tentative.Tentative {
		t.Error("create did not return a tentative record")
	}
	// Visible immediately, before the remote resolves.
	if cache.Count(owner) != 1 {
		t.Fatalf("window size before remote resolve = %d, want 1", cache.Count(owner))
	}
	// Placeholder title is the domain.
	if got := cache.Window(owner)[0].DisplayTitle(); got != "example.com" {
		t.Errorf("placeholder title = %q, want example.com", got)
	}

	if err := <-done; err != nil {
		t.Fatalf("remote create failed: %v", err)
	}

	head := cache.Window(owner)[0]
	if head.Tentative {
		t.Error("confirmed link still tentative")
	}
	if head.ID == tentative.ID {
		t.Error("store-assigned id not applied")
	}
	if dup, _ := dedup.HasNormalized(context.Background(), owner, "https://example.com/a"); !dup {
		t.Error("dedup key not recorded after confirm")
	}
}

func TestCreateDuplicateShortCircuits(t *testing.T) {
	eng, cache, _ := newTestEngine(newFakeRemote())
	mustCreate(t, eng, "https://example.com/a?utm_source=tw")

	// Equivalent URL must be refused without a local insert.
	_, _, err := eng.Create(context.Background(), owner, CreateInput{URL: "https://example.com/a"})
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("duplicate create error = %v, want ErrDuplicate", err)
	}
	if cache.Count(owner) != 1 {
		t.Errorf("window size after duplicate = %d, want 1", cache.Count(owner))
	}
}

func TestCreateRemoteFailureRollsBack(t *testing.T) {
	remote := newFakeRemote()
	remote.createErr = errors.New("connection refused")
	eng, cache, _ := newTestEngine(remote)

	_, done, err := eng.Create(context.Background(), owner, CreateInput{URL: "https://example.com/a"})
	if err != nil {
		t.Fatalf("Create failed synchronously: %v", err)
	}

	rerr := <-done
	if !errors.Is(rerr, domain.ErrNetwork) {
		t.Errorf("remote failure = %v, want ErrNetwork", rerr)
	}
	if cache.Count(owner) != 0 {
		t.Errorf("window size after rollback = %d, want 0", cache.Count(owner))
	}
	// The URL must be creatable again after the rollback.
	remote.createErr = nil
	mustCreate(t, eng, "https://example.com/a")
}

func TestDeleteRollbackRestoresPosition(t *testing.T) {
	remote := newFakeRemote()
	eng, cache, _ := newTestEngine(remote)

	// Window ends up [c b a], newest first.
	mustCreate(t, eng, "https://a.com")
	b := mustCreate(t, eng, "https://b.com")
	mustCreate(t, eng, "https://c.com")

	remote.deleteErr = errors.New("connection reset")
	done, err := eng.Delete(context.Background(), owner, b.ID)
	if err != nil {
		t.Fatalf("Delete failed synchronously: %v", err)
	}
	if rerr := <-done; !errors.Is(rerr, domain.ErrNetwork) {
		t.Errorf("remote delete failure = %v, want ErrNetwork", rerr)
	}

	w := cache.Window(owner)
	if len(w) != 3 {
		t.Fatalf("window size after rollback = %d, want 3", len(w))
	}
	if w[1].ID != b.ID {
		t.Errorf("rolled-back link at index %d, want middle position", indexOf(w, b.ID))
	}
}

func TestDeleteSuccessDropsDedupKey(t *testing.T) {
	eng, cache, dedup := newTestEngine(newFakeRemote())
	l := mustCreate(t, eng, "https://example.com/a")

	done, err := eng.Delete(context.Background(), owner, l.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if rerr := <-done; rerr != nil {
		t.Fatalf("remote delete failed: %v", rerr)
	}
	if cache.Count(owner) != 0 {
		t.Errorf("window size after delete = %d, want 0", cache.Count(owner))
	}
	if dup, _ := dedup.HasNormalized(context.Background(), owner, l.NormalizedURL); dup {
		t.Error("dedup key kept after delete")
	}
}

func TestUpdateRollbackRestoresSnapshot(t *testing.T) {
	remote := newFakeRemote()
	eng, cache, _ := newTestEngine(remote)
	l := mustCreate(t, eng, "https://example.com/a")

	remote.onUpdate = func(*domain.Link) error { return errors.New("timeout") }

	note := "will not stick"
	updated, done, err := eng.Update(context.Background(), owner, l.ID, domain.LinkPatch{Note: &note})
	if err != nil {
		t.Fatalf("Update failed synchronously: %v", err)
	}
	if updated.Note != note {
		t.Errorf("optimistic note = %q, want %q", updated.Note, note)
	}

	if rerr := <-done; !errors.Is(rerr, domain.ErrNetwork) {
		t.Errorf("remote update failure = %v, want ErrNetwork", rerr)
	}
	got, _ := cache.Get(owner, l.ID)
	if got.Note != "" {
		t.Errorf("note after rollback = %q, want empty", got.Note)
	}
}

func TestLateRollbackDoesNotClobberLaterMutation(t *testing.T) {
	remote := newFakeRemote()
	eng, cache, _ := newTestEngine(remote)
	l := mustCreate(t, eng, "https://example.com/a")

	firstBlocked := make(chan struct{})
	var calls int
	var mu sync.Mutex
	remote.onUpdate = func(*domain.Link) error {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			// First mutation stalls, then fails after the second wins.
			<-firstBlocked
			return errors.New("timeout")
		}
		return nil
	}

	first := "first"
	_, done1, err := eng.Update(context.Background(), owner, l.ID, domain.LinkPatch{Note: &first})
	if err != nil {
		t.Fatalf("first Update failed: %v", err)
	}

	second := "second"
	_, done2, err := eng.Update(context.Background(), owner, l.ID, domain.LinkPatch{Note: &second})
	if err != nil {
		t.Fatalf("second Update failed: %v", err)
	}
	if rerr := <-done2; rerr != nil {
		t.Fatalf("second remote update failed: %v", rerr)
	}

	// Now let the stale first mutation fail. Its rollback must be
	// fenced out by the sequence check.
	close(firstBlocked)
	if rerr := <-done1; !errors.Is(rerr, domain.ErrNetwork) {
		t.Errorf("first update failure = %v, want ErrNetwork", rerr)
	}

	got, _ := cache.Get(owner, l.ID)
	if got.Note != second {
		t.Errorf("note after stale rollback = %q, want %q", got.Note, second)
	}
}

func TestOpenNeverReorders(t *testing.T) {
	eng, cache, _ := newTestEngine(newFakeRemote())
	mustCreate(t, eng, "https://a.com")
	b := mustCreate(t, eng, "https://b.com")

	if err := eng.Open(context.Background(), owner, b.ID); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	w := cache.Window(owner)
	if w[0].ID != b.ID {
		t.Errorf("open reordered the window, head = %s", w[0].ID)
	}
	if w[0].OpenedAt == nil {
		t.Error("openedAt not stamped")
	}
}

func indexOf(links []*domain.Link, id string) int {
	for i, l := range links {
		if l.ID == id {
			return i
		}
	}
	return -1
}
