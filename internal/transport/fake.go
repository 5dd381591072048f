package transport

import (
	"context"
	"sync"

	"github.com/untreu2/divinefeed/internal/nostrwire"
)

// Fake is an in-memory EventTransport for tests and for standalone
// consumers (e.g. internal/curation) that don't need a real relay
// connection. It lets a test push events/EOSE/notices to a subscription by
// id, simulating what a real transport would deliver.
type Fake struct {
	mu   sync.Mutex
	subs map[string]chan Frame

	PublishResult []EndpointAck
	PublishErr    error
	Published     []*nostrwire.Event
}

func NewFake() *Fake {
	return &Fake{subs: make(map[string]chan Frame)}
}

func (f *Fake) Subscribe(ctx context.Context, subscriptionID string, filters []*nostrwire.Filter) (<-chan Frame, error) {
	ch := make(chan Frame, 64)
	f.mu.Lock()
	f.subs[subscriptionID] = ch
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.Close(subscriptionID)
	}()

	return ch, nil
}

func (f *Fake) Close(subscriptionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.subs[subscriptionID]; ok {
		delete(f.subs, subscriptionID)
		close(ch)
	}
	return nil
}

// SubscriptionIDs returns the ids currently subscribed through this Fake,
// for tests that need to discover an id assigned by a caller (e.g. the
// Subscription Manager) rather than supplying one themselves.
func (f *Fake) SubscriptionIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.subs))
	for id := range f.subs {
		ids = append(ids, id)
	}
	return ids
}

// PushEvent delivers an EVENT frame to subscriptionID, if still open.
func (f *Fake) PushEvent(subscriptionID string, ev *nostrwire.Event) {
	f.mu.Lock()
	ch, ok := f.subs[subscriptionID]
	f.mu.Unlock()
	if !ok {
		return
	}
	ch <- Frame{Event: &nostrwire.ServerEventFrame{SubscriptionID: subscriptionID, Event: ev}}
}

// PushEOSE delivers an EOSE frame to subscriptionID, if still open.
func (f *Fake) PushEOSE(subscriptionID string) {
	f.mu.Lock()
	ch, ok := f.subs[subscriptionID]
	f.mu.Unlock()
	if !ok {
		return
	}
	ch <- Frame{EOSE: &nostrwire.EOSEFrame{SubscriptionID: subscriptionID}}
}

func (f *Fake) Publish(ctx context.Context, event *nostrwire.Event) ([]EndpointAck, error) {
	f.mu.Lock()
	f.Published = append(f.Published, event)
	f.mu.Unlock()
	if f.PublishErr != nil {
		return nil, f.PublishErr
	}
	if f.PublishResult != nil {
		return f.PublishResult, nil
	}
	return []EndpointAck{{Endpoint: "fake://relay", OK: true}}, nil
}
