package subscription

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/untreu2/divinefeed/internal/nostrwire"
	"github.com/untreu2/divinefeed/internal/transport"
)

func TestLimitNormalization(t *testing.T) {
	f := &nostrwire.Filter{Limit: 500}
	f.NormalizeLimit()
	require.Equal(t, nostrwire.MaxLimit, f.Limit)
}

func TestCacheInterception_FullyCachedCompletesWithoutTransport(t *testing.T) {
	fake := transport.NewFake()
	m := New(fake)

	cachedEvent := &nostrwire.Event{ID: "abc", Kind: nostrwire.KindShortVideo}
	m.SetCacheReader(CacheReader{
		GetCachedEvent: func(id string) (*nostrwire.Event, bool) {
			if id == "abc" {
				return cachedEvent, true
			}
			return nil, false
		},
	})

	var mu sync.Mutex
	var delivered []*nostrwire.Event
	completed := make(chan struct{})

	_, err := m.CreateSubscription(context.Background(), Options{
		Name:    "test",
		Filters: []*nostrwire.Filter{{IDs: []string{"abc"}}},
		OnEvent: func(e *nostrwire.Event) {
			mu.Lock()
			delivered = append(delivered, e)
			mu.Unlock()
		},
		OnComplete: func() { close(completed) },
	})
	require.NoError(t, err)

	select {
	case <-completed:
	case <-time.After(time.Second):
		t.Fatal("expected immediate completion with no transport traffic")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, delivered, 1)
	require.Equal(t, "abc", delivered[0].ID)
}

func TestCreateSubscription_MissingIDsGoToTransport(t *testing.T) {
	fake := transport.NewFake()
	m := New(fake)
	m.SetCacheReader(CacheReader{
		GetCachedEvent: func(id string) (*nostrwire.Event, bool) { return nil, false },
	})

	subID, err := m.CreateSubscription(context.Background(), Options{
		Name:    "test",
		Filters: []*nostrwire.Filter{{IDs: []string{"missing1"}}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, subID)
}

func TestCancel_Idempotent(t *testing.T) {
	fake := transport.NewFake()
	m := New(fake)
	m.SetCacheReader(CacheReader{})
	id, err := m.CreateSubscription(context.Background(), Options{Name: "test", Filters: []*nostrwire.Filter{{Kinds: []int{1}}}})
	require.NoError(t, err)
	m.Cancel(id)
	m.Cancel(id) // must not panic
}
