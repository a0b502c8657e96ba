package collection

import (
	"testing"
	"time"

	"github.com/linkstash/linkstash/internal/domain"
)

const owner = "user-1"

func link(id, url string) *domain.Link {
	return &domain.Link{ID: id, OwnerID: owner, URL: url, NormalizedURL: url}
}

func TestInsertFrontOrdering(t *testing.T) {
	c := NewCache()
	c.InsertFront(owner, link("a", "https://a.com"))
	c.InsertFront(owner, link("b", "https://b.com"))

	w := c.Window(owner)
	if len(w) != 2 {
		t.Fatalf("window length = %d, want 2", len(w))
	}
	if w[0].ID != "b" || w[1].ID != "a" {
		t.Errorf("window order = [%s %s], want [b a]", w[0].ID, w[1].ID)
	}
}

func TestRemoveReturnsOriginalIndex(t *testing.T) {
	c := NewCache()
	for _, id := range []string{"c", "b", "a"} {
		c.InsertFront(owner, link(id, "https://"+id+".com"))
	}

	// Window is [a b c]; removing b must report index 1.
	snapshot, idx, ok := c.Remove(owner, "b")
	if !ok {
		t.Fatal("Remove() returned ok=false")
	}
	if idx != 1 {
		t.Errorf("Remove() index = %d, want 1", idx)
	}
	if snapshot.ID != "b" {
		t.Errorf("Remove() snapshot = %s, want b", snapshot.ID)
	}
	if !c.IsTombstoned(owner, "b") {
		t.Error("removed link should be tombstoned")
	}
}

func TestInsertAtRestoresPosition(t *testing.T) {
	c := NewCache()
	for _, id := range []string{"c", "b", "a"} {
		c.InsertFront(owner, link(id, "https://"+id+".com"))
	}
	snapshot, idx, _ := c.Remove(owner, "b")

	c.InsertAt(owner, idx, snapshot)

	w := c.Window(owner)
	if len(w) != 3 || w[0].ID != "a" || w[1].ID != "b" || w[2].ID != "c" {
		var got []string
		for _, l := range w {
			got = append(got, l.ID)
		}
		t.Errorf("window after restore = %v, want [a b c]", got)
	}
	if c.IsTombstoned(owner, "b") {
		t.Error("restored link should not be tombstoned")
	}
}

func TestReconcileIDKeepsPosition(t *testing.T) {
	c := NewCache()
	c.InsertFront(owner, link("old", "https://old.com"))
	tentative := link("tmp", "https://new.com")
	tentative.Tentative = true
	c.InsertFront(owner, tentative)
	c.BumpSeq(owner, "tmp")

	confirmed := link("srv-1", "https://new.com")
	if !c.ReconcileID(owner, "tmp", confirmed) {
		t.Fatal("ReconcileID() returned false")
	}

	w := c.Window(owner)
	if w[0].ID != "srv-1" {
		t.Errorf("confirmed link position changed, head = %s", w[0].ID)
	}
	if w[0].Tentative {
		t.Error("confirmed link still tentative")
	}
	if c.SeqOf(owner, "srv-1") != 1 {
		t.Errorf("sequence not carried over, SeqOf = %d", c.SeqOf(owner, "srv-1"))
	}
	if !c.HasNormalized(owner, "https://new.com") {
		t.Error("normalized key lost during reconcile")
	}
}

func TestBumpSeqMonotonic(t *testing.T) {
	c := NewCache()
	if got := c.BumpSeq(owner, "x"); got != 1 {
		t.Errorf("first BumpSeq = %d, want 1", got)
	}
	if got := c.BumpSeq(owner, "x"); got != 2 {
		t.Errorf("second BumpSeq = %d, want 2", got)
	}
	// Sequence survives removal for rollback fencing.
	c.InsertFront(owner, link("x", "https://x.com"))
	c.Remove(owner, "x")
	if got := c.SeqOf(owner, "x"); got != 2 {
		t.Errorf("SeqOf after remove = %d, want 2", got)
	}
}

func TestMergeAppendSkipsDuplicatesAndTombstones(t *testing.T) {
	c := NewCache()
	c.InsertFront(owner, link("a", "https://a.com"))
	c.InsertFront(owner, link("dead", "https://dead.com"))
	c.Remove(owner, "dead")

	rows := []*domain.Link{
		link("a", "https://a.com"),       // already loaded
		link("dead", "https://dead.com"), // tombstoned
		link("b", "https://b.com"),       // new
	}
	added := c.MergeAppend(owner, rows)
	if added != 1 {
		t.Errorf("MergeAppend added %d rows, want 1", added)
	}
	if c.Count(owner) != 2 {
		t.Errorf("window size = %d, want 2", c.Count(owner))
	}
}

func TestResetWindowPreservesOptimisticState(t *testing.T) {
	c := NewCache()
	tentative := link("tmp", "https://pending.com")
	tentative.Tentative = true
	c.InsertFront(owner, tentative)
	c.InsertFront(owner, link("dead", "https://dead.com"))
	c.Remove(owner, "dead")

	rows := []*domain.Link{
		link("dead", "https://dead.com"),
		link("b", "https://b.com"),
	}
	c.ResetWindow(owner, rows)

	w := c.Window(owner)
	if len(w) != 2 {
		t.Fatalf("window size = %d, want 2", len(w))
	}
	if w[0].ID != "tmp" {
		t.Errorf("tentative link not kept at head, got %s", w[0].ID)
	}
	if w[1].ID != "b" {
		t.Errorf("fresh row missing, got %s", w[1].ID)
	}
}

func TestObserverReceivesEvents(t *testing.T) {
	c := NewCache()
	var events []EventType
	c.Subscribe(func(ev Event) { events = append(events, ev.Type) })

	c.InsertFront(owner, link("a", "https://a.com"))
	l, _ := c.Get(owner, "a")
	l.Note = "note"
	c.Replace(owner, l)
	c.Remove(owner, "a")

	want := []EventType{EventCreated, EventUpdated, EventDeleted}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, ev := range want {
		if events[i] != ev {
			t.Errorf("event[%d] = %s, want %s", i, events[i], ev)
		}
	}
}

func TestPruneTombstones(t *testing.T) {
	c := NewCache()
	c.InsertFront(owner, link("a", "https://a.com"))
	c.Remove(owner, "a")

	if pruned := c.PruneTombstones(time.Hour); pruned != 0 {
		t.Errorf("fresh tombstone pruned early, pruned = %d", pruned)
	}
	if pruned := c.PruneTombstones(0); pruned != 1 {
		t.Errorf("PruneTombstones(0) = %d, want 1", pruned)
	}
}
