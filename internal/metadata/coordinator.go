package metadata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/linkstash/linkstash/internal/domain"
	"github.com/linkstash/linkstash/internal/logger"
)

// Store is the slice of the durable store the coordinator needs.
type Store interface {
	GetLink(ctx context.Context, ownerID, id string) (*domain.Link, error)
	RecordMetadataAttempt(ctx context.Context, ownerID, id string, attempts int, at time.Time) error
	SaveMetadata(ctx context.Context, ownerID, id string, meta domain.LinkMetadata) error
	ResetMetadataAttempts(ctx context.Context, ownerID, id string) error
	AwaitingMetadata(ctx context.Context) ([]*domain.Link, error)
}

// Resolver fetches page metadata for one target URL.
type Resolver interface {
	Fetch(ctx context.Context, target string) (domain.LinkMetadata, error)
}

// Applier receives enrichment outcomes for the local window.
type Applier interface {
	ApplyMetadata(ownerID, id string, meta domain.LinkMetadata, state domain.MetadataState)
	ApplyMetadataState(ownerID, id string, state domain.MetadataState)
}

// Coordinator owns the enrichment lifecycle: it spends the per-link
// retry budget, persists every attempt before the fetch goes out, and
// pushes outcomes back into the local window. Retries are only ever
// driven by an external trigger (a sweep), never by a timer of its own.
type Coordinator struct {
	store Store
	fetch Resolver
	apply Applier
	log   logger.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

func New(st Store, fetch Resolver, apply Applier, log logger.Logger) *Coordinator {
	return &Coordinator{
		store:    st,
		fetch:    fetch,
		apply:    apply,
		log:      log,
		inflight: make(map[string]struct{}),
	}
}

// Schedule kicks off a background enrichment attempt for a freshly
// stored link. Safe to call with links that have no budget left.
func (c *Coordinator) Schedule(ownerID string, l *domain.Link) {
	snapshot := l.Clone()
	go func() {
		if err := c.attempt(context.Background(), snapshot); err != nil {
			c.log.Debug("metadata attempt failed",
				logger.String("link_id", snapshot.ID),
				logger.Error(err))
		}
	}()
}

// Sweep retries every link across all owners that still has budget.
// Called on startup and on every foreground trigger.
func (c *Coordinator) Sweep(ctx context.Context) error {
	links, err := c.store.AwaitingMetadata(ctx)
	if err != nil {
		return fmt.Errorf("failed to list links awaiting metadata: %w", err)
	}
	for _, l := range links {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.attempt(ctx, l); err != nil {
			c.log.Debug("metadata retry failed",
				logger.String("link_id", l.ID),
				logger.Error(err))
		}
	}
	return nil
}

// Refresh runs one synchronous attempt for a single link, on user
// request. With reset true the retry budget is zeroed first, which is
// the only way an exhausted link fetches again.
func (c *Coordinator) Refresh(ctx context.Context, ownerID, id string, reset bool) error {
	l, err := c.store.GetLink(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if reset {
		if err := c.store.ResetMetadataAttempts(ctx, ownerID, id); err != nil {
			return fmt.Errorf("failed to reset metadata attempts: %w", err)
		}
		l.Metadata = domain.MetadataState{}
		c.apply.ApplyMetadataState(ownerID, id, l.Metadata)
	}
	if l.Metadata.Exhausted() {
		return domain.ErrExhaustedRetries
	}
	return c.attempt(ctx, l)
}

// attempt runs a single enrichment round. The bumped counter hits the
// store before the network call so a crash mid-fetch still consumed
// the attempt.
func (c *Coordinator) attempt(ctx context.Context, l *domain.Link) error {
	if l.Metadata.Complete || l.Metadata.Exhausted() {
		return nil
	}

	key := l.OwnerID + "/" + l.ID
	c.mu.Lock()
	if _, busy := c.inflight[key]; busy {
		c.mu.Unlock()
		return nil
	}
	c.inflight[key] = struct{}{}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
	}()

	now := time.Now().UTC()
	state := l.Metadata
	state.Attempts++
	state.LastAttemptAt = &now

	if err := c.store.RecordMetadataAttempt(ctx, l.OwnerID, l.ID, state.Attempts, now); err != nil {
		return fmt.Errorf("failed to record metadata attempt: %w", err)
	}

	meta, err := c.fetch.Fetch(ctx, l.URL)
	if err != nil {
		c.apply.ApplyMetadataState(l.OwnerID, l.ID, state)
		return err
	}

	if err := c.store.SaveMetadata(ctx, l.OwnerID, l.ID, meta); err != nil {
		c.apply.ApplyMetadataState(l.OwnerID, l.ID, state)
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	state.Complete = true
	c.apply.ApplyMetadata(l.OwnerID, l.ID, meta, state)
	return nil
}
