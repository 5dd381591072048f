// Package profile implements the Profile Fetcher (spec.md §4.4): a debounced,
// batched resolver for kind-0 profile-metadata events with single-flight
// in-flight dedupe, negative memoization, and stale-while-revalidate
// background refresh.
package profile

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/untreu2/divinefeed/internal/config"
	"github.com/untreu2/divinefeed/internal/log"
	"github.com/untreu2/divinefeed/internal/metrics"
	"github.com/untreu2/divinefeed/internal/nostrwire"
	"github.com/untreu2/divinefeed/internal/transport"
)

// CacheStore is the persistent-cache capability the fetcher needs: reading
// and writing cached kind-0 events along with the timestamp they were last
// fetched (spec.md §4.6 "user_profiles" / "profile_fetch_timestamps" boxes).
type CacheStore interface {
	Get(pubkey string) (ev *nostrwire.Event, fetchedAt time.Time, ok bool)
	Put(pubkey string, ev *nostrwire.Event, fetchedAt time.Time)
}

type pendingResult struct {
	ev    *nostrwire.Event
	found bool
}

// Fetcher resolves profile metadata for pubkeys, coalescing concurrent
// requests into a single batched subscription.
type Fetcher struct {
	cfg   config.ProfileFetcherConfig
	t     transport.EventTransport
	cache CacheStore
	sf    singleflight.Group

	limiter *rate.Limiter
	logger  zerolog.Logger
	clock   func() time.Time

	mu      sync.Mutex
	pending map[string]struct{}
	waiters map[string][]chan pendingResult
	timer   *time.Timer

	negMu    sync.Mutex
	negative map[string]time.Time
}

// New constructs a Fetcher.
func New(cfg config.ProfileFetcherConfig, t transport.EventTransport, cache CacheStore) *Fetcher {
	return &Fetcher{
		cfg:      cfg,
		t:        t,
		cache:    cache,
		limiter:  rate.NewLimiter(rate.Every(cfg.RefreshRateEvery), 1),
		logger:   log.WithComponent("profile"),
		clock:    time.Now,
		pending:  make(map[string]struct{}),
		waiters:  make(map[string][]chan pendingResult),
		negative: make(map[string]time.Time),
	}
}

// GetProfile resolves pubkey's kind-0 event. A fresh cache entry returns
// immediately; an entry older than SoftRefreshAfter also triggers a
// rate-limited background refresh before returning the (still valid) stale
// value (stale-while-revalidate, spec.md §4.4). A cold cache either returns
// ErrProfileNotFound immediately (within the negative-memoization window)
// or performs a debounced, batched, single-flighted fetch.
func (f *Fetcher) GetProfile(ctx context.Context, pubkey string) (*nostrwire.Event, error) {
	if ev, fetchedAt, ok := f.cache.Get(pubkey); ok {
		age := f.clock().Sub(fetchedAt)
		if age > f.cfg.HardTTL {
			// Hard TTL exceeded: treat as cold, fall through to a real fetch.
		} else {
			if age > f.cfg.SoftRefreshAfter {
				f.triggerBackgroundRefresh(pubkey)
			}
			metrics.IncProfileCache("hit")
			return ev, nil
		}
	}

	if until, ok := f.negativeUntil(pubkey); ok && f.clock().Before(until) {
		metrics.IncProfileCache("negative_hit")
		return nil, ErrProfileNotFound
	}

	v, err, _ := f.sf.Do(pubkey, func() (any, error) {
		return f.fetchOne(ctx, pubkey)
	})
	if err != nil {
		return nil, err
	}
	return v.(*nostrwire.Event), nil
}

// RequestProfile warms the cache for pubkey without waiting on the result
// (spec.md §4.4, "Callers"). Nothing in this module calls it; the feed
// pipeline does not prefetch authors.
func (f *Fetcher) RequestProfile(pubkey string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), f.cfg.BatchFallback)
		defer cancel()
		_, _ = f.GetProfile(ctx, pubkey)
	}()
}

func (f *Fetcher) triggerBackgroundRefresh(pubkey string) {
	if !f.limiter.Allow() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), f.cfg.BatchFallback)
		defer cancel()
		_, _ = f.sf.Do(pubkey, func() (any, error) {
			return f.fetchOne(ctx, pubkey)
		})
	}()
}

func (f *Fetcher) negativeUntil(pubkey string) (time.Time, bool) {
	f.negMu.Lock()
	defer f.negMu.Unlock()
	until, ok := f.negative[pubkey]
	return until, ok
}

func (f *Fetcher) markNegative(pubkey string) {
	f.negMu.Lock()
	f.negative[pubkey] = f.clock().Add(f.cfg.NegativeTTL)
	f.negMu.Unlock()
}

func (f *Fetcher) clearNegative(pubkey string) {
	f.negMu.Lock()
	delete(f.negative, pubkey)
	f.negMu.Unlock()
}

// fetchOne enqueues pubkey into the current debounce batch and blocks until
// the batch resolves, the fallback deadline elapses, or ctx is cancelled.
func (f *Fetcher) fetchOne(ctx context.Context, pubkey string) (*nostrwire.Event, error) {
	ch := make(chan pendingResult, 1)

	f.mu.Lock()
	f.waiters[pubkey] = append(f.waiters[pubkey], ch)
	f.pending[pubkey] = struct{}{}
	shouldFlushNow := len(f.pending) >= f.cfg.MaxBatchAuthors
	if f.timer == nil && !shouldFlushNow {
		delay := f.cfg.DebounceMax
		if delay <= 0 {
			delay = 100 * time.Millisecond
		}
		f.timer = time.AfterFunc(delay, f.flush)
	} else if f.timer != nil && shouldFlushNow {
		f.timer.Stop()
		f.timer = nil
	}
	f.mu.Unlock()

	if shouldFlushNow {
		go f.flush()
	}

	fallback := f.cfg.BatchFallback
	if fallback <= 0 {
		fallback = 30 * time.Second
	}

	select {
	case r := <-ch:
		if !r.found {
			f.markNegative(pubkey)
			metrics.IncProfileCache("miss")
			return nil, ErrProfileNotFound
		}
		f.clearNegative(pubkey)
		metrics.IncProfileCache("fetched")
		return r.ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(fallback):
		metrics.IncProfileCache("timeout")
		return nil, ErrFetchTimeout
	}
}

// flush drains the pending batch and issues one subscription covering every
// queued pubkey (spec.md §4.4, "Batching").
func (f *Fetcher) flush() {
	f.mu.Lock()
	if len(f.pending) == 0 {
		f.mu.Unlock()
		return
	}
	pubkeys := make([]string, 0, len(f.pending))
	for pk := range f.pending {
		pubkeys = append(pubkeys, pk)
	}
	waiters := f.waiters
	f.pending = make(map[string]struct{})
	f.waiters = make(map[string][]chan pendingResult)
	f.timer = nil
	f.mu.Unlock()

	found := f.fetchBatch(pubkeys)

	now := f.clock()
	for pk, ev := range found {
		f.cache.Put(pk, ev, now)
	}
	for pk, chans := range waiters {
		ev, ok := found[pk]
		for _, ch := range chans {
			ch <- pendingResult{ev: ev, found: ok}
		}
	}
}

func (f *Fetcher) fetchBatch(pubkeys []string) map[string]*nostrwire.Event {
	fallback := f.cfg.BatchFallback
	if fallback <= 0 {
		fallback = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), fallback)
	defer cancel()

	maxBatch := f.cfg.MaxBatchAuthors
	if maxBatch <= 0 {
		maxBatch = 500
	}
	limit := len(pubkeys)
	if limit > maxBatch {
		limit = maxBatch
	}

	frames, err := f.t.Subscribe(ctx, "profile-batch-"+uuid.NewString(), []*nostrwire.Filter{{
		Kinds:   []int{nostrwire.KindProfileMetadata},
		Authors: pubkeys,
		Limit:   limit,
	}})
	if err != nil {
		f.logger.Warn().Err(err).Int("authors", len(pubkeys)).Msg("profile batch subscribe failed")
		return nil
	}

	found := make(map[string]*nostrwire.Event, len(pubkeys))
	for {
		select {
		case fr, ok := <-frames:
			if !ok {
				return found
			}
			switch {
			case fr.Event != nil:
				ev := fr.Event.Event
				if existing, ok := found[ev.PubKey]; !ok || ev.CreatedAt > existing.CreatedAt {
					found[ev.PubKey] = ev
				}
			case fr.EOSE != nil:
				return found
			}
		case <-ctx.Done():
			return found
		}
	}
}
