package mutation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/linkstash/linkstash/internal/collection"
	"github.com/linkstash/linkstash/internal/domain"
	"github.com/linkstash/linkstash/internal/logger"
	"github.com/linkstash/linkstash/internal/store"
)

// DedupIndex is the fast normalized-URL membership cache consulted
// before a create. All calls are best effort; the store's uniqueness
// constraint is the backstop.
type DedupIndex interface {
	HasNormalized(ctx context.Context, ownerID, normalizedURL string) (bool, error)
	AddNormalized(ctx context.Context, ownerID, normalizedURL string) error
	RemoveNormalized(ctx context.Context, ownerID, normalizedURL string) error
}

// Enricher schedules background metadata fetches for confirmed links.
type Enricher interface {
	Schedule(ownerID string, l *domain.Link)
}

// CreateInput is the user-facing create payload.
type CreateInput struct {
	URL     string
	Note    string
	SpaceID string
	TagIDs  []string
}

// Engine applies mutations locally first and reconciles them with the
// durable store asynchronously. On remote failure the local state is
// rolled back to the exact pre-mutation snapshot, fenced by a per-link
// sequence number so a rollback never clobbers a later mutation.
type Engine struct {
	store    store.Remote
	cache    *collection.Cache
	dedup    DedupIndex
	norm     *domain.Normalizer
	enricher Enricher
	log      logger.Logger
}

// New creates the engine. dedup may be nil (no fast-path cache).
func New(st store.Remote, cache *collection.Cache, dedup DedupIndex, norm *domain.Normalizer, log logger.Logger) *Engine {
	return &Engine{
		store: st,
		cache: cache,
		dedup: dedup,
		norm:  norm,
		log:   log,
	}
}

// SetEnricher wires the metadata coordinator in after construction.
// The coordinator needs the engine to apply results, so the dependency
// is circular and resolved here.
func (e *Engine) SetEnricher(enricher Enricher) {
	e.enricher = enricher
}

// Cache exposes the local collection cache for read paths.
func (e *Engine) Cache() *collection.Cache {
	return e.cache
}

// Create validates the input, inserts a tentative record locally and
// persists it in the background. The returned channel resolves with
// the remote outcome (nil, ErrDuplicate, ErrConflict or ErrNetwork).
func (e *Engine) Create(ctx context.Context, ownerID string, in CreateInput) (*domain.Link, <-chan error, error) {
	normalizedURL, err := e.norm.Normalize(in.URL)
	if err != nil {
		return nil, nil, err
	}
	if err := validateNote(in.Note); err != nil {
		return nil, nil, err
	}

	// Pre-flight duplicate check: loaded window first, then the dedup
	// cache. Either hit short-circuits without a local insert.
	if e.cache.HasNormalized(ownerID, normalizedURL) {
		return nil, nil, domain.ErrDuplicate
	}
	if e.dedup != nil {
		if dup, derr := e.dedup.HasNormalized(ctx, ownerID, normalizedURL); derr != nil {
			e.log.Debug("dedup cache unavailable, relying on store constraint",
				logger.Error(derr))
		} else if dup {
			return nil, nil, domain.ErrDuplicate
		}
	}

	now := time.Now().UTC()
	tentative := &domain.Link{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		URL:           in.URL,
		NormalizedURL: normalizedURL,
		Domain:        domain.DomainOf(normalizedURL),
		Note:          in.Note,
		SpaceID:       in.SpaceID,
		TagIDs:        append([]string(nil), in.TagIDs...),
		CreatedAt:     now,
		UpdatedAt:     now,
		Tentative:     true,
	}

	e.cache.InsertFront(ownerID, tentative)
	seq := e.cache.BumpSeq(ownerID, tentative.ID)

	done := make(chan error, 1)
	rctx := context.WithoutCancel(ctx)
	go func() {
		stored, rerr := e.store.CreateLink(rctx, tentative)
		if rerr != nil {
			typed := classifyRemote("create link", rerr)
			// Only undo if no later mutation touched the record.
			if e.cache.SeqOf(ownerID, tentative.ID) == seq {
				e.cache.Discard(ownerID, tentative.ID)
			}
			e.log.Warn("remote create failed, local insert rolled back",
				logger.String("owner", ownerID),
				logger.String("url", normalizedURL),
				logger.Error(typed))
			done <- typed
			return
		}

		e.cache.ReconcileID(ownerID, tentative.ID, stored)
		if e.dedup != nil {
			if derr := e.dedup.AddNormalized(rctx, ownerID, normalizedURL); derr != nil {
				e.log.Debug("failed to record dedup key", logger.Error(derr))
			}
		}
		if e.enricher != nil {
			e.enricher.Schedule(ownerID, stored)
		}
		done <- nil
	}()

	return tentative.Clone(), done, nil
}

// Update applies a patch locally and persists it in the background.
func (e *Engine) Update(ctx context.Context, ownerID, id string, patch domain.LinkPatch) (*domain.Link, <-chan error, error) {
	if patch.Empty() {
		return nil, nil, &domain.ValidationError{Field: "patch", Message: "no fields to update"}
	}
	if patch.Note != nil {
		if err := validateNote(*patch.Note); err != nil {
			return nil, nil, err
		}
	}

	snapshot, ok := e.cache.Get(ownerID, id)
	if !ok {
		return nil, nil, domain.ErrNotFound
	}

	updated := snapshot.Clone()
	patch.Apply(updated)
	updated.UpdatedAt = time.Now().UTC()

	e.cache.Replace(ownerID, updated)
	seq := e.cache.BumpSeq(ownerID, id)

	done := make(chan error, 1)
	rctx := context.WithoutCancel(ctx)
	go func() {
		stored, rerr := e.store.UpdateLink(rctx, updated)
		if rerr != nil {
			typed := classifyRemote("update link", rerr)
			if e.cache.SeqOf(ownerID, id) == seq {
				e.cache.Replace(ownerID, snapshot)
			}
			e.log.Warn("remote update failed, local patch rolled back",
				logger.String("owner", ownerID),
				logger.String("link", id),
				logger.Error(typed))
			done <- typed
			return
		}

		if e.cache.SeqOf(ownerID, id) == seq {
			e.cache.Replace(ownerID, stored)
		}
		done <- nil
	}()

	return updated.Clone(), done, nil
}

// Delete removes the link locally and persists the removal in the
// background. A failed remote delete restores the link at its original
// position, not at the end.
func (e *Engine) Delete(ctx context.Context, ownerID, id string) (<-chan error, error) {
	snapshot, index, ok := e.cache.Remove(ownerID, id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	seq := e.cache.BumpSeq(ownerID, id)

	done := make(chan error, 1)
	rctx := context.WithoutCancel(ctx)
	go func() {
		rerr := e.store.DeleteLink(rctx, ownerID, id)
		if rerr != nil && !errors.Is(rerr, domain.ErrNotFound) {
			typed := classifyRemote("delete link", rerr)
			if e.cache.SeqOf(ownerID, id) == seq {
				e.cache.InsertAt(ownerID, index, snapshot)
			}
			e.log.Warn("remote delete failed, link restored",
				logger.String("owner", ownerID),
				logger.String("link", id),
				logger.Int("position", index),
				logger.Error(typed))
			done <- typed
			return
		}

		if e.dedup != nil {
			if derr := e.dedup.RemoveNormalized(rctx, ownerID, snapshot.NormalizedURL); derr != nil {
				e.log.Debug("failed to drop dedup key", logger.Error(derr))
			}
		}
		done <- nil
	}()

	return done, nil
}

// Open stamps openedAt. Analytics only: no rollback, no sequencing,
// never a reorder.
func (e *Engine) Open(ctx context.Context, ownerID, id string) error {
	l, ok := e.cache.Get(ownerID, id)
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now().UTC()
	l.OpenedAt = &now
	e.cache.Replace(ownerID, l)

	rctx := context.WithoutCancel(ctx)
	go func() {
		if err := e.store.TouchOpened(rctx, ownerID, id, now); err != nil {
			e.log.Debug("failed to persist opened_at", logger.Error(err))
		}
	}()
	return nil
}

// ApplyMetadata lands a successful enrichment in the loaded window,
// in place, so the list never reorders when a title arrives.
func (e *Engine) ApplyMetadata(ownerID, id string, meta domain.LinkMetadata, state domain.MetadataState) {
	l, ok := e.cache.Get(ownerID, id)
	if !ok {
		return
	}
	l.Title = meta.Title
	l.Description = meta.Description
	l.ThumbnailURL = meta.ThumbnailURL
	l.Metadata = state
	e.cache.Replace(ownerID, l)
}

// ApplyMetadataState updates only the attempt bookkeeping in the
// loaded window after a failed or started fetch.
func (e *Engine) ApplyMetadataState(ownerID, id string, state domain.MetadataState) {
	l, ok := e.cache.Get(ownerID, id)
	if !ok {
		return
	}
	l.Metadata = state
	e.cache.Replace(ownerID, l)
}

func validateNote(note string) error {
	if len([]rune(note)) > domain.NoteMaxLen {
		return &domain.ValidationError{Field: "note", Message: "note exceeds 200 characters"}
	}
	return nil
}

// classifyRemote keeps typed store errors and wraps everything else as
// a transient network failure.
func classifyRemote(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrDuplicate),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrNotFound):
		return err
	default:
		return &domain.NetworkError{Op: op, Err: err}
	}
}
