package redis

const (
	// KeyPrefixDedup is the prefix for per-owner normalized URL sets.
	KeyPrefixDedup = "linkstash:dedup:"
	// KeyPrefixOpens is the prefix for per-link open counters.
	KeyPrefixOpens = "linkstash:opens:"
)

// DedupKey returns the Redis key for an owner's normalized URL set.
func DedupKey(ownerID string) string {
	return KeyPrefixDedup + ownerID
}

// OpensKey returns the Redis key for a link's open counter.
func OpensKey(ownerID, linkID string) string {
	return KeyPrefixOpens + ownerID + ":" + linkID
}
