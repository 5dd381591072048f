// Package subscription implements the Subscription Manager (spec.md §4.3):
// cache-aware multiplexing of filter subscriptions over an EventTransport,
// with limit normalization and per-subscription deadlines.
package subscription

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/untreu2/divinefeed/internal/log"
	"github.com/untreu2/divinefeed/internal/nostrwire"
	"github.com/untreu2/divinefeed/internal/transport"
)

// CacheReader bundles the read-only capability closures the manager needs
// from the persistent cache, injected via SetCacheReader rather than a
// direct dependency — this breaks the cache↔subscription cycle noted in
// spec.md §9 "Design Notes".
type CacheReader struct {
	// GetCachedEvent returns a cached event by id, if present.
	GetCachedEvent func(id string) (*nostrwire.Event, bool)
	// HasFreshProfile reports whether pubkey has a cached, non-stale kind-0
	// profile (spec.md §4.4 "Freshness").
	HasFreshProfile func(pubkey string) bool
}

// Options configures a new subscription (spec.md §4.3 Data Model).
type Options struct {
	Name       string
	Filters    []*nostrwire.Filter
	OnEvent    func(*nostrwire.Event)
	OnError    func(error)
	OnComplete func()
	Timeout    time.Duration
	Priority   int
}

type handle struct {
	id       string
	name     string
	opts     Options
	cancel   context.CancelFunc
	timer    *time.Timer
	completeOnce sync.Once
}

// Manager multiplexes subscriptions over a transport.EventTransport.
type Manager struct {
	mu     sync.Mutex
	subs   map[string]*handle
	t      transport.EventTransport
	cache  CacheReader
	logger zerolog.Logger
}

// New constructs a Manager over transport t.
func New(t transport.EventTransport) *Manager {
	return &Manager{
		subs:   make(map[string]*handle),
		t:      t,
		logger: log.WithComponent("subscription"),
	}
}

// SetCacheReader injects the cache capability closures. Safe to call before
// the manager processes any subscription; not intended for concurrent
// reconfiguration.
func (m *Manager) SetCacheReader(r CacheReader) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = r
}

// CreateSubscription returns a unique subscriptionId and begins dispatch.
func (m *Manager) CreateSubscription(ctx context.Context, opts Options) (string, error) {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(ctx)
	h := &handle{id: id, name: opts.Name, opts: opts, cancel: cancel}

	m.mu.Lock()
	m.subs[id] = h
	cache := m.cache
	m.mu.Unlock()

	if opts.Timeout > 0 {
		h.timer = time.AfterFunc(opts.Timeout, func() {
			m.Cancel(id)
			m.completeOnce(h)
		})
	}

	remaining := m.interceptAndDeliver(opts.Filters, cache, opts.OnEvent)
	if len(remaining) == 0 {
		// Every filter resolved entirely from cache: complete immediately
		// without transport traffic (spec.md §4.3).
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
		m.completeOnce(h)
		return id, nil
	}

	frames, err := m.t.Subscribe(ctx, id, remaining)
	if err != nil {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
		return "", err
	}

	go m.pump(ctx, h, frames)
	return id, nil
}

func (m *Manager) pump(ctx context.Context, h *handle, frames <-chan transport.Frame) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			switch {
			case f.Event != nil && h.opts.OnEvent != nil:
				h.opts.OnEvent(f.Event.Event)
			case f.EOSE != nil:
				m.completeOnce(h)
			case f.Notice != nil && h.opts.OnError != nil:
				h.opts.OnError(&NoticeError{Text: f.Notice.Text})
			}
		}
	}
}

func (m *Manager) completeOnce(h *handle) {
	h.completeOnce.Do(func() {
		if h.opts.OnComplete != nil {
			h.opts.OnComplete()
		}
	})
}

// interceptAndDeliver implements spec.md §4.3 "Cache interception": for
// each filter it splits ids/authors into cached and missing legs, delivers
// cached events synchronously (dispatched before returning, ahead of any
// transport traffic), and returns the filters still requiring transport
// dispatch with limits normalized.
func (m *Manager) interceptAndDeliver(filters []*nostrwire.Filter, cache CacheReader, onEvent func(*nostrwire.Event)) []*nostrwire.Filter {
	var remaining []*nostrwire.Filter
	for _, f := range filters {
		f = f.Clone()

		if len(f.IDs) > 0 && cache.GetCachedEvent != nil {
			var missing []string
			for _, id := range f.IDs {
				if ev, ok := cache.GetCachedEvent(id); ok {
					if onEvent != nil {
						onEvent(ev)
					}
				} else {
					missing = append(missing, id)
				}
			}
			f.IDs = missing
			if len(missing) == 0 {
				continue // fully served from cache, no transport traffic
			}
		}

		if f.IsProfileMetadataFilter() && len(f.Authors) > 0 && cache.HasFreshProfile != nil {
			var missing []string
			for _, a := range f.Authors {
				if !cache.HasFreshProfile(a) {
					missing = append(missing, a)
				}
			}
			f.Authors = missing
			if len(missing) == 0 {
				continue
			}
		}

		f.NormalizeLimit()
		remaining = append(remaining, f)
	}
	return remaining
}

// Cancel cancels subscription id. Idempotent.
func (m *Manager) Cancel(id string) {
	m.mu.Lock()
	h, ok := m.subs[id]
	if ok {
		delete(m.subs, id)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	if h.timer != nil {
		h.timer.Stop()
	}
	h.cancel()
	_ = m.t.Close(id)
}

// CancelByName cancels every subscription whose name starts with prefix.
func (m *Manager) CancelByName(prefix string) {
	m.mu.Lock()
	var ids []string
	for id, h := range m.subs {
		if strings.HasPrefix(h.name, prefix) {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.Cancel(id)
	}
}

// ActiveSubscription is a read-only introspection snapshot of one live
// subscription, for the debug API's surface.
type ActiveSubscription struct {
	ID       string
	Name     string
	Priority int
}

// Snapshot returns a point-in-time list of active subscriptions, for
// introspection callers (internal/debugapi).
func (m *Manager) Snapshot() []ActiveSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ActiveSubscription, 0, len(m.subs))
	for id, h := range m.subs {
		out = append(out, ActiveSubscription{ID: id, Name: h.name, Priority: h.opts.Priority})
	}
	return out
}

// Dispose cancels every active subscription.
func (m *Manager) Dispose() {
	m.mu.Lock()
	var ids []string
	for id := range m.subs {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.Cancel(id)
	}
}

// NoticeError wraps a relay NOTICE frame as an error.
type NoticeError struct{ Text string }

func (e *NoticeError) Error() string { return "subscription: notice: " + e.Text }
