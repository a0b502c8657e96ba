package scheduler

import (
	"context"
	"fmt"

	"github.com/linkstash/linkstash/internal/logger"
	"github.com/linkstash/linkstash/internal/store"
	redisstore "github.com/linkstash/linkstash/internal/store/redis"
)

// DedupSyncer warms the Redis dedup sets from the durable store so the
// cross-restart duplicate check works from the first request on.
type DedupSyncer struct {
	store  store.Remote
	dedup  *redisstore.Store
	logger logger.Logger
}

// NewDedupSyncer creates a new dedup cache syncer
func NewDedupSyncer(st store.Remote, dedup *redisstore.Store, log logger.Logger) *DedupSyncer {
	return &DedupSyncer{
		store:  st,
		dedup:  dedup,
		logger: log,
	}
}

// Sync loads every owner's normalized URLs and pushes them into Redis.
// Best effort per owner: one failing owner does not abort the rest.
func (ds *DedupSyncer) Sync(ctx context.Context) error {
	byOwner, err := ds.store.NormalizedURLsByOwner(ctx)
	if err != nil {
		return fmt.Errorf("failed to list normalized urls: %w", err)
	}

	warmed := 0
	for owner, urls := range byOwner {
		if len(urls) == 0 {
			continue
		}
		if err := ds.dedup.WarmNormalized(ctx, owner, urls); err != nil {
			ds.logger.Warn("failed to warm dedup set",
				logger.String("owner", owner),
				logger.Int("urls", len(urls)),
				logger.Error(err))
			continue
		}
		warmed += len(urls)
	}

	ds.logger.Info("dedup cache warmed",
		logger.Int("owners", len(byOwner)),
		logger.Int("urls", warmed))
	return nil
}
