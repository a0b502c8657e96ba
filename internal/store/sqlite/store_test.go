package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/linkstash/linkstash/internal/domain"
	"github.com/linkstash/linkstash/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testLink(owner, url string) *domain.Link {
	return &domain.Link{
		OwnerID:       owner,
		URL:           url,
		NormalizedURL: url,
		Domain:        domain.DomainOf(url),
	}
}

func TestCreateLinkAssignsID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stored, err := s.CreateLink(ctx, testLink("u1", "https://example.com/a"))
	if err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}
	if stored.ID == "" {
		t.Error("CreateLink did not assign an id")
	}
	if stored.Tentative {
		t.Error("stored link still tentative")
	}
	if stored.CreatedAt.IsZero() || stored.UpdatedAt.IsZero() {
		t.Error("CreateLink did not set server timestamps")
	}
}

func TestCreateLinkDuplicateKey(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateLink(ctx, testLink("u1", "https://example.com/a")); err != nil {
		t.Fatalf("first CreateLink failed: %v", err)
	}

	_, err := s.CreateLink(ctx, testLink("u1", "https://example.com/a"))
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Errorf("duplicate create error = %v, want ErrDuplicate", err)
	}

	// A different owner may hold the same URL.
	if _, err := s.CreateLink(ctx, testLink("u2", "https://example.com/a")); err != nil {
		t.Errorf("same URL for another owner failed: %v", err)
	}
}

func TestCreateLinkMissingSpaceIsConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	l := testLink("u1", "https://example.com/a")
	l.SpaceID = "no-such-space"

	_, err := s.CreateLink(ctx, l)
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("create with vanished space error = %v, want ErrConflict", err)
	}
}

func TestListLinksPagination(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		url := "https://example.com/" + string(rune('a'+i))
		if _, err := s.CreateLink(ctx, testLink("u1", url)); err != nil {
			t.Fatalf("CreateLink %d failed: %v", i, err)
		}
	}

	page0, err := s.ListLinks(ctx, "u1", store.Page{Index: 0, Size: 3})
	if err != nil {
		t.Fatalf("ListLinks page 0 failed: %v", err)
	}
	page1, err := s.ListLinks(ctx, "u1", store.Page{Index: 1, Size: 3})
	if err != nil {
		t.Fatalf("ListLinks page 1 failed: %v", err)
	}
	if len(page0) != 3 || len(page1) != 2 {
		t.Fatalf("page sizes = %d, %d, want 3, 2", len(page0), len(page1))
	}

	seen := make(map[string]bool)
	for _, l := range append(page0, page1...) {
		if seen[l.ID] {
			t.Errorf("duplicate id across pages: %s", l.ID)
		}
		seen[l.ID] = true
	}
}

func TestDeleteLink(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stored, err := s.CreateLink(ctx, testLink("u1", "https://example.com/a"))
	if err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}
	if err := s.DeleteLink(ctx, "u1", stored.ID); err != nil {
		t.Fatalf("DeleteLink failed: %v", err)
	}
	if err := s.DeleteLink(ctx, "u1", stored.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetLink(ctx, "u1", stored.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("get after delete error = %v, want ErrNotFound", err)
	}
}

func TestMetadataAttemptsPersist(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stored, err := s.CreateLink(ctx, testLink("u1", "https://example.com/a"))
	if err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	now := time.Now().UTC()
	if err := s.RecordMetadataAttempt(ctx, "u1", stored.ID, 2, now); err != nil {
		t.Fatalf("RecordMetadataAttempt failed: %v", err)
	}

	got, err := s.GetLink(ctx, "u1", stored.ID)
	if err != nil {
		t.Fatalf("GetLink failed: %v", err)
	}
	if got.Metadata.Attempts != 2 {
		t.Errorf("persisted attempts = %d, want 2", got.Metadata.Attempts)
	}
	if got.Metadata.LastAttemptAt == nil {
		t.Error("persisted lastAttemptAt is nil")
	}

	awaiting, err := s.AwaitingMetadata(ctx)
	if err != nil {
		t.Fatalf("AwaitingMetadata failed: %v", err)
	}
	if len(awaiting) != 1 {
		t.Fatalf("awaiting count = %d, want 1", len(awaiting))
	}

	// Spending the full budget drops the link from the awaiting set.
	if err := s.RecordMetadataAttempt(ctx, "u1", stored.ID, domain.MaxMetadataAttempts, now); err != nil {
		t.Fatalf("RecordMetadataAttempt failed: %v", err)
	}
	awaiting, err = s.AwaitingMetadata(ctx)
	if err != nil {
		t.Fatalf("AwaitingMetadata failed: %v", err)
	}
	if len(awaiting) != 0 {
		t.Errorf("awaiting count after exhaustion = %d, want 0", len(awaiting))
	}
}

func TestSaveMetadataMarksComplete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stored, err := s.CreateLink(ctx, testLink("u1", "https://example.com/a"))
	if err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	meta := domain.LinkMetadata{Title: "Example", Description: "desc", ThumbnailURL: "https://img"}
	if err := s.SaveMetadata(ctx, "u1", stored.ID, meta); err != nil {
		t.Fatalf("SaveMetadata failed: %v", err)
	}

	got, err := s.GetLink(ctx, "u1", stored.ID)
	if err != nil {
		t.Fatalf("GetLink failed: %v", err)
	}
	if !got.Metadata.Complete {
		t.Error("metadata not marked complete")
	}
	if got.Title != "Example" {
		t.Errorf("title = %q, want Example", got.Title)
	}
}

func TestTagsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tag, err := s.CreateTag(ctx, &domain.Tag{OwnerID: "u1", Name: "reading"})
	if err != nil {
		t.Fatalf("CreateTag failed: %v", err)
	}

	l := testLink("u1", "https://example.com/a")
	l.TagIDs = []string{tag.ID}
	stored, err := s.CreateLink(ctx, l)
	if err != nil {
		t.Fatalf("CreateLink with tag failed: %v", err)
	}

	got, err := s.GetLink(ctx, "u1", stored.ID)
	if err != nil {
		t.Fatalf("GetLink failed: %v", err)
	}
	if len(got.TagIDs) != 1 || got.TagIDs[0] != tag.ID {
		t.Errorf("tag ids = %v, want [%s]", got.TagIDs, tag.ID)
	}

	tags, err := s.ListTags(ctx, "u1")
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	if len(tags) != 1 || tags[0].UsageCount != 1 {
		t.Errorf("tag usage count = %v, want 1", tags)
	}
}

func TestNormalizedURLsByOwner(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	urls := map[string]string{
		"u1": "https://a.com",
		"u2": "https://b.com",
	}
	for owner, url := range urls {
		if _, err := s.CreateLink(ctx, testLink(owner, url)); err != nil {
			t.Fatalf("CreateLink failed: %v", err)
		}
	}

	got, err := s.NormalizedURLsByOwner(ctx)
	if err != nil {
		t.Fatalf("NormalizedURLsByOwner failed: %v", err)
	}
	for owner, url := range urls {
		if len(got[owner]) != 1 || got[owner][0] != url {
			t.Errorf("owner %s urls = %v, want [%s]", owner, got[owner], url)
		}
	}
}
