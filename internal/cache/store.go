// Package cache implements the Persistent Cache (spec.md §4.6): a
// namespaced, TTL-aware key/value store backed by badger, with a recovery
// fallback chain down to an in-memory store when the on-disk store cannot
// be opened.
package cache

import "time"

// Box names the logical namespace a key belongs to (spec.md §4.6, "Boxes").
type Box string

const (
	BoxUserProfiles            Box = "user_profiles"
	BoxProfileFetchTimestamps  Box = "profile_fetch_timestamps"
	BoxPersonalEvents          Box = "personal_events"
	BoxPersonalEventsMetadata  Box = "personal_events_metadata"
	BoxPendingUploads          Box = "pending_uploads"
	BoxVideoCache              Box = "video_cache"
	BoxBookmarkPublishedHashes Box = "bookmark_published_hashes"
	BoxBookmarkPendingChanges  Box = "bookmark_pending_changes"
)

// Store is the persistent KV capability every box is layered over. A zero
// ttl means "no expiry".
type Store interface {
	Get(box Box, key string) (value []byte, ok bool, err error)
	Put(box Box, key string, value []byte, ttl time.Duration) error
	Delete(box Box, key string) error
	// DeletePrefix removes every key in box whose key starts with prefix —
	// used for the account-vanish purge (spec.md's supplemented kind-62
	// handling) and for bookmark reconciliation sweeps.
	DeletePrefix(box Box, prefix string) error
	// ForEach iterates every key/value pair in box, stopping early if fn
	// returns false.
	ForEach(box Box, fn func(key string, value []byte) bool) error
	Close() error
}

func namespacedKey(box Box, key string) []byte {
	return []byte(string(box) + ":" + key)
}
