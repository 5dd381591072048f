package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/untreu2/divinefeed/internal/nostrwire"
)

func TestFake_SubscribePushEventAndEOSE(t *testing.T) {
	f := NewFake()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := f.Subscribe(ctx, "sub-1", nil)
	require.NoError(t, err)
	require.Equal(t, []string{"sub-1"}, f.SubscriptionIDs())

	f.PushEvent("sub-1", &nostrwire.Event{ID: "evt-1"})
	frame := <-ch
	require.NotNil(t, frame.Event)
	require.Equal(t, "evt-1", frame.Event.Event.ID)

	f.PushEOSE("sub-1")
	frame = <-ch
	require.NotNil(t, frame.EOSE)
}

func TestFake_CloseOnContextCancel(t *testing.T) {
	f := NewFake()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := f.Subscribe(ctx, "sub-2", nil)
	require.NoError(t, err)

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-ch
		return !open
	}, time.Second, 10*time.Millisecond)
	require.Empty(t, f.SubscriptionIDs())
}

func TestFake_PublishRecordsEventsAndHonorsScriptedResult(t *testing.T) {
	f := NewFake()
	f.PublishResult = []EndpointAck{{Endpoint: "relay-a", OK: true}, {Endpoint: "relay-b", OK: false}}

	acks, err := f.Publish(context.Background(), &nostrwire.Event{ID: "evt-1"})
	require.NoError(t, err)
	require.Equal(t, f.PublishResult, acks)
	require.Len(t, f.Published, 1)
	require.Equal(t, "evt-1", f.Published[0].ID)
}

func TestFake_PublishReturnsScriptedError(t *testing.T) {
	f := NewFake()
	f.PublishErr = context.DeadlineExceeded

	_, err := f.Publish(context.Background(), &nostrwire.Event{ID: "evt-1"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFake_PushEventToUnknownSubscriptionIsNoop(t *testing.T) {
	f := NewFake()
	require.NotPanics(t, func() {
		f.PushEvent("ghost", &nostrwire.Event{ID: "evt-1"})
		f.PushEOSE("ghost")
	})
}
