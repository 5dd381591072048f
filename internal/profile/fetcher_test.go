package profile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/untreu2/divinefeed/internal/config"
	"github.com/untreu2/divinefeed/internal/nostrwire"
	"github.com/untreu2/divinefeed/internal/transport"
)

type memCache struct {
	mu    sync.Mutex
	store map[string]struct {
		ev        *nostrwire.Event
		fetchedAt time.Time
	}
}

func newMemCache() *memCache {
	return &memCache{store: make(map[string]struct {
		ev        *nostrwire.Event
		fetchedAt time.Time
	})}
}

func (c *memCache) Get(pubkey string) (*nostrwire.Event, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[pubkey]
	return v.ev, v.fetchedAt, ok
}

func (c *memCache) Put(pubkey string, ev *nostrwire.Event, fetchedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[pubkey] = struct {
		ev        *nostrwire.Event
		fetchedAt time.Time
	}{ev, fetchedAt}
}

func testConfig() config.ProfileFetcherConfig {
	return config.ProfileFetcherConfig{
		DebounceMin:      5 * time.Millisecond,
		DebounceMax:      10 * time.Millisecond,
		BatchFallback:    500 * time.Millisecond,
		NegativeTTL:      50 * time.Millisecond,
		HardTTL:          365 * 24 * time.Hour,
		SoftRefreshAfter: 7 * 24 * time.Hour,
		RefreshRateEvery: 30 * time.Second,
		MaxBatchAuthors:  500,
	}
}

// respondingFake answers any Subscribe by immediately delivering a kind-0
// event for every author present in profiles, then EOSE.
type respondingFake struct {
	*transport.Fake
	profiles    map[string]*nostrwire.Event
	calls       int
	lastFilters []*nostrwire.Filter
	mu          sync.Mutex
}

func newRespondingFake(profiles map[string]*nostrwire.Event) *respondingFake {
	return &respondingFake{Fake: transport.NewFake(), profiles: profiles}
}

func (r *respondingFake) Subscribe(ctx context.Context, id string, filters []*nostrwire.Filter) (<-chan transport.Frame, error) {
	r.mu.Lock()
	r.calls++
	r.lastFilters = filters
	r.mu.Unlock()

	ch := make(chan transport.Frame, 64)
	go func() {
		defer close(ch)
		for _, f := range filters {
			for _, a := range f.Authors {
				if ev, ok := r.profiles[a]; ok {
					ch <- transport.Frame{Event: &nostrwire.ServerEventFrame{SubscriptionID: id, Event: ev}}
				}
			}
		}
		ch <- transport.Frame{EOSE: &nostrwire.EOSEFrame{SubscriptionID: id}}
	}()
	return ch, nil
}

func TestGetProfile_FetchesAndCaches(t *testing.T) {
	profileEvent := &nostrwire.Event{ID: "p1", PubKey: "pk1", Kind: nostrwire.KindProfileMetadata, Content: `{"name":"alice"}`}
	fake := newRespondingFake(map[string]*nostrwire.Event{"pk1": profileEvent})
	cache := newMemCache()
	f := New(testConfig(), fake, cache)

	ev, err := f.GetProfile(context.Background(), "pk1")
	require.NoError(t, err)
	require.Equal(t, "p1", ev.ID)

	_, _, ok := cache.Get("pk1")
	require.True(t, ok)
}

func TestGetProfile_ConcurrentRequestsCoalesceIntoOneBatch(t *testing.T) {
	profiles := map[string]*nostrwire.Event{
		"pk1": {ID: "e1", PubKey: "pk1", Kind: nostrwire.KindProfileMetadata},
		"pk2": {ID: "e2", PubKey: "pk2", Kind: nostrwire.KindProfileMetadata},
	}
	fake := newRespondingFake(profiles)
	cache := newMemCache()
	f := New(testConfig(), fake, cache)

	var wg sync.WaitGroup
	results := make([]*nostrwire.Event, 2)
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		results[0], errs[0] = f.GetProfile(context.Background(), "pk1")
	}()
	go func() {
		defer wg.Done()
		results[1], errs[1] = f.GetProfile(context.Background(), "pk2")
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, "e1", results[0].ID)
	require.Equal(t, "e2", results[1].ID)
	require.Equal(t, 1, fake.calls, "both pubkeys queued inside the debounce window should share one subscription")
}

func TestGetProfile_BatchFilterCarriesLimitEqualToPendingCount(t *testing.T) {
	profiles := map[string]*nostrwire.Event{
		"pk1": {ID: "e1", PubKey: "pk1", Kind: nostrwire.KindProfileMetadata},
		"pk2": {ID: "e2", PubKey: "pk2", Kind: nostrwire.KindProfileMetadata},
		"pk3": {ID: "e3", PubKey: "pk3", Kind: nostrwire.KindProfileMetadata},
	}
	fake := newRespondingFake(profiles)
	cache := newMemCache()
	f := New(testConfig(), fake, cache)

	var wg sync.WaitGroup
	wg.Add(3)
	for _, pk := range []string{"pk1", "pk2", "pk3"} {
		pk := pk
		go func() {
			defer wg.Done()
			_, _ = f.GetProfile(context.Background(), pk)
		}()
	}
	wg.Wait()

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.lastFilters, 1)
	require.Equal(t, 3, fake.lastFilters[0].Limit)
}

func TestFetchBatch_LimitClampsToMaxBatchAuthors(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBatchAuthors = 2
	fake := newRespondingFake(map[string]*nostrwire.Event{})
	f := New(cfg, fake, newMemCache())

	f.fetchBatch([]string{"pk1", "pk2", "pk3"})

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.lastFilters, 1)
	require.Equal(t, 2, fake.lastFilters[0].Limit, "limit clamps to MaxBatchAuthors even though 3 authors are pending")
}

func TestGetProfile_NegativeMemoizationSkipsNetwork(t *testing.T) {
	fake := newRespondingFake(map[string]*nostrwire.Event{})
	cache := newMemCache()
	f := New(testConfig(), fake, cache)

	_, err := f.GetProfile(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrProfileNotFound)
	require.Equal(t, 1, fake.calls)

	_, err = f.GetProfile(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrProfileNotFound)
	require.Equal(t, 1, fake.calls, "second call within the negative TTL must not hit the network")
}

func TestGetProfile_FreshCacheHitSkipsNetwork(t *testing.T) {
	profileEvent := &nostrwire.Event{ID: "p1", PubKey: "pk1", Kind: nostrwire.KindProfileMetadata}
	fake := newRespondingFake(map[string]*nostrwire.Event{"pk1": profileEvent})
	cache := newMemCache()
	cache.Put("pk1", profileEvent, time.Now())
	f := New(testConfig(), fake, cache)

	ev, err := f.GetProfile(context.Background(), "pk1")
	require.NoError(t, err)
	require.Equal(t, "p1", ev.ID)
	require.Equal(t, 0, fake.calls)
}
