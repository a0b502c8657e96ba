package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultDedupTTL bounds how long a warmed dedup set lives without
	// a refresh. The durable store remains the source of truth.
	DefaultDedupTTL = 48 * time.Hour
)

// Store caches dedup keys and open counters in Redis. Every caller
// treats it as best effort: a Redis outage degrades duplicate checks
// to the store's uniqueness constraint, never to a failure.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// AddNormalized records a normalized URL in the owner's dedup set.
func (s *Store) AddNormalized(ctx context.Context, ownerID, normalizedURL string) error {
	key := DedupKey(ownerID)
	if err := s.client.SAdd(ctx, key, normalizedURL).Err(); err != nil {
		return fmt.Errorf("failed to add dedup key: %w", err)
	}
	if err := s.client.Expire(ctx, key, DefaultDedupTTL).Err(); err != nil {
		return fmt.Errorf("failed to refresh dedup ttl: %w", err)
	}
	return nil
}

// RemoveNormalized drops a normalized URL from the owner's dedup set.
func (s *Store) RemoveNormalized(ctx context.Context, ownerID, normalizedURL string) error {
	if err := s.client.SRem(ctx, DedupKey(ownerID), normalizedURL).Err(); err != nil {
		return fmt.Errorf("failed to remove dedup key: %w", err)
	}
	return nil
}

// HasNormalized reports whether the owner already saved this URL.
func (s *Store) HasNormalized(ctx context.Context, ownerID, normalizedURL string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, DedupKey(ownerID), normalizedURL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check dedup key: %w", err)
	}
	return ok, nil
}

// WarmNormalized bulk-loads an owner's dedup set (startup sync).
func (s *Store) WarmNormalized(ctx context.Context, ownerID string, normalizedURLs []string) error {
	if len(normalizedURLs) == 0 {
		return nil
	}
	key := DedupKey(ownerID)
	pipe := s.client.Pipeline()
	members := make([]interface{}, 0, len(normalizedURLs))
	for _, u := range normalizedURLs {
		members = append(members, u)
	}
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, DefaultDedupTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to warm dedup set: %w", err)
	}
	return nil
}

// IncrementOpens bumps a link's open counter.
func (s *Store) IncrementOpens(ctx context.Context, ownerID, linkID string) error {
	if err := s.client.Incr(ctx, OpensKey(ownerID, linkID)).Err(); err != nil {
		return fmt.Errorf("failed to increment opens: %w", err)
	}
	return nil
}

// Opens reads a link's open counter. Missing key means zero.
func (s *Store) Opens(ctx context.Context, ownerID, linkID string) (int64, error) {
	n, err := s.client.Get(ctx, OpensKey(ownerID, linkID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read opens: %w", err)
	}
	return n, nil
}

// DropOpens removes a deleted link's counter.
func (s *Store) DropOpens(ctx context.Context, ownerID, linkID string) error {
	if err := s.client.Del(ctx, OpensKey(ownerID, linkID)).Err(); err != nil {
		return fmt.Errorf("failed to drop opens: %w", err)
	}
	return nil
}
