package cache

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/untreu2/divinefeed/internal/log"
	"github.com/untreu2/divinefeed/internal/metrics"
	"github.com/untreu2/divinefeed/internal/resilience"
)

const maxOpenAttempts = 3

// Open implements the recovery fallback chain from spec.md §4.6: reuse the
// existing on-disk handle, then delete-and-recreate it, then fall back to
// an in-memory store with a logged warning. Each step retries up to
// maxOpenAttempts times with bounded exponential backoff (<=5s) unless the
// failure is a permanent permission error, which skips straight to the next
// step.
func Open(path string) Store {
	logger := log.WithComponent("cache")

	if store, err := openWithRetries(path, logger); err == nil {
		metrics.IncCacheStoreOpen("reused")
		return store
	}

	logger.Warn().Str("path", path).Msg("cache: reuse failed, attempting delete-recreate")
	if err := os.RemoveAll(path); err != nil && !os.IsNotExist(err) {
		logger.Error().Err(err).Str("path", path).Msg("cache: delete-recreate cleanup failed")
	} else if store, err := openWithRetries(path, logger); err == nil {
		metrics.IncCacheStoreOpen("recreated")
		return store
	}

	logger.Error().Str("path", path).Msg("cache: falling back to in-memory store, data will not survive restart")
	metrics.IncCacheStoreOpen("memory_fallback")
	return NewMemoryStore()
}

func openWithRetries(path string, logger zerolog.Logger) (Store, error) {
	backoff := resilience.NewBackoff()
	var lastErr error
	for attempt := 0; attempt < maxOpenAttempts; attempt++ {
		store, err := OpenBadgerStore(path)
		if err == nil {
			return store, nil
		}
		lastErr = err
		if os.IsPermission(err) {
			logger.Error().Err(err).Str("path", path).Msg("cache: permanent permission error, not retrying")
			return nil, err
		}
		logger.Warn().Err(err).Int("attempt", attempt+1).Msg("cache: open attempt failed")
		time.Sleep(backoff.Next())
	}
	return nil, lastErr
}
