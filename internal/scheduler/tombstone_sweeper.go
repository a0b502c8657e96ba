package scheduler

import (
	"context"
	"time"

	"github.com/linkstash/linkstash/internal/collection"
	"github.com/linkstash/linkstash/internal/logger"
)

// TombstoneSweeper periodically drops deletion markers old enough that
// no refresh can still race against them.
type TombstoneSweeper struct {
	cache    *collection.Cache
	logger   logger.Logger
	interval time.Duration
	ttl      time.Duration
	stopCh   chan struct{}
}

// NewTombstoneSweeper creates a new tombstone sweeper
func NewTombstoneSweeper(cache *collection.Cache, log logger.Logger, interval, ttl time.Duration) *TombstoneSweeper {
	return &TombstoneSweeper{
		cache:    cache,
		logger:   log,
		interval: interval,
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep
func (ts *TombstoneSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(ts.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if pruned := ts.cache.PruneTombstones(ts.ttl); pruned > 0 {
					ts.logger.Debug("pruned tombstones",
						logger.Int("count", pruned))
				}
			case <-ts.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the sweeper
func (ts *TombstoneSweeper) Stop() {
	close(ts.stopCh)
}
