package curation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/untreu2/divinefeed/internal/nostrwire"
	"github.com/untreu2/divinefeed/internal/subscription"
	"github.com/untreu2/divinefeed/internal/transport"
)

func TestFetchCurationSet_NewestWins(t *testing.T) {
	fake := transport.NewFake()
	mgr := subscription.New(fake)
	mgr.SetCacheReader(subscription.CacheReader{})
	r := New(mgr)

	resultCh := make(chan []string, 1)
	go func() {
		members, err := r.FetchCurationSet(context.Background(), "author1", "favorites")
		require.NoError(t, err)
		var ids []string
		for _, m := range members {
			ids = append(ids, m.ID)
		}
		resultCh <- ids
	}()

	// Allow the subscription to register before pushing frames.
	time.Sleep(20 * time.Millisecond)

	var subID string
	for id := range fakeSubs(fake) {
		subID = id
	}
	require.NotEmpty(t, subID)

	older := &nostrwire.Event{ID: "set-old", PubKey: "author1", CreatedAt: 100, Kind: nostrwire.KindCurationSet, Tags: [][]string{{"d", "favorites"}, {"e", "vid1"}}}
	newer := &nostrwire.Event{ID: "set-new", PubKey: "author1", CreatedAt: 200, Kind: nostrwire.KindCurationSet, Tags: [][]string{{"d", "favorites"}, {"e", "vid2"}, {"e", "vid3"}}}

	fake.PushEvent(subID, older)
	fake.PushEvent(subID, newer)
	fake.PushEOSE(subID)

	select {
	case ids := <-resultCh:
		require.Equal(t, []string{"vid2", "vid3"}, ids)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for curation set")
	}
}

// fakeSubs collects the Fake's currently registered subscription ids (from
// Fake.SubscriptionIDs) into a set for test synchronization.
func fakeSubs(f *transport.Fake) map[string]struct{} {
	out := make(map[string]struct{})
	ids := f.SubscriptionIDs()
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
