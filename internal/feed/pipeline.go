package feed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/untreu2/divinefeed/internal/config"
	"github.com/untreu2/divinefeed/internal/log"
	"github.com/untreu2/divinefeed/internal/metrics"
	"github.com/untreu2/divinefeed/internal/nostrwire"
	"github.com/untreu2/divinefeed/internal/subscription"
	"github.com/untreu2/divinefeed/internal/video"
)

// VideoSink is the admission target for transformed descriptors — satisfied
// by *pool.Pool. Kept as a narrow interface so the pipeline never imports
// the pool package directly (spec.md §4.2, "Collaborators").
type VideoSink interface {
	AddDescriptor(d *video.Descriptor)
}

// VanishHandler reacts to a kind-62 account-vanish event for authorKey,
// purging whatever personal state the caller owns (personal cache entries,
// pending uploads). Supplemental to spec.md; see SPEC_FULL.md.
type VanishHandler interface {
	HandleAccountVanish(authorKey string)
}

// Pipeline is the Feed Ingestion Bridge (spec.md §4.2): it owns one or more
// subscriptions, transforms and admits incoming events into a VideoSink,
// and restarts stalled subscriptions.
type Pipeline struct {
	mu  sync.Mutex
	cfg config.FeedConfig

	mgr   *subscription.Manager
	sink  VideoSink
	seen  AlreadySeenService
	seenIDs *seenIDSet
	vanish VanishHandler

	logger zerolog.Logger
	clock  func() time.Time

	subs map[string]*subscriptionState
}

type subscriptionState struct {
	name       string
	filters    []*nostrwire.Filter
	lastEvent  time.Time
	restarting bool
}

// Options configures a new Pipeline.
type Options struct {
	Config        config.FeedConfig
	Manager       *subscription.Manager
	Sink          VideoSink
	AlreadySeen   AlreadySeenService
	VanishHandler VanishHandler
}

// New constructs a Pipeline.
func New(opts Options) *Pipeline {
	return &Pipeline{
		cfg:     opts.Config,
		mgr:     opts.Manager,
		sink:    opts.Sink,
		seen:    opts.AlreadySeen,
		seenIDs: newSeenIDSet(opts.Config.SeenIDCapacity),
		vanish:  opts.VanishHandler,
		logger:  log.WithComponent("feed"),
		clock:   time.Now,
		subs:    make(map[string]*subscriptionState),
	}
}

// Subscribe opens a live subscription named name against filters and begins
// ingesting matching events into the sink. replay indicates a replay/backfill
// filter whose events should bypass the AlreadySeenService gate (spec.md
// §4.2 admission rule 5).
func (p *Pipeline) Subscribe(ctx context.Context, name string, filters []*nostrwire.Filter, replay bool) (string, error) {
	st := &subscriptionState{name: name, filters: filters, lastEvent: p.clock()}

	// OnEvent closes over st directly rather than looking it up in p.subs by
	// id: CreateSubscription can deliver cache-intercepted events
	// synchronously, before it has returned the id this state will be keyed
	// by, so a post-hoc id lookup would miss those and leave lastEvent
	// frozen. st is the same object later stored at p.subs[id].
	id, err := p.mgr.CreateSubscription(ctx, subscription.Options{
		Name:    name,
		Filters: filters,
		OnEvent: func(ev *nostrwire.Event) {
			p.handleEvent(ev, replay)
			p.mu.Lock()
			st.lastEvent = p.clock()
			p.mu.Unlock()
		},
		OnError: func(err error) {
			p.logger.Warn().Err(err).Str("subscription", name).Msg("subscription error")
		},
	})
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.subs[id] = st
	p.mu.Unlock()
	return id, nil
}

// handleEvent implements the transform→admit pipeline for one inbound
// event, including the supplemented kind-62 account-vanish path.
func (p *Pipeline) handleEvent(ev *nostrwire.Event, replay bool) {
	if ev.Kind == nostrwire.KindAccountVanish {
		if p.vanish != nil {
			p.vanish.HandleAccountVanish(ev.PubKey)
		}
		return
	}

	if ev.Kind != nostrwire.KindShortVideo && ev.Kind != nostrwire.KindShortVideoLegacy {
		return
	}

	// Admission rule 1: per-feed duplicate detection via the LRU seen set.
	// Add reports false if the id was already present, in which case we
	// discard silently (spec.md §4.2 "cross-subscription duplicates: keep
	// first, discard second").
	p.mu.Lock()
	isNew := p.seenIDs.Add(ev.ID)
	p.mu.Unlock()
	if !isNew {
		metrics.IncAdmission(string(rejectDuplicate))
		return
	}

	d := transform(ev)
	result := checkAdmission(ev, d, p.cfg.MaxEventAge, p.clock(), p.seen, replay)
	metrics.IncAdmission(string(result))
	if result != admitted {
		p.logger.Debug().Str("event_id", ev.ID).Str("reason", string(result)).Msg("event rejected")
		return
	}

	p.sink.AddDescriptor(d)
}

// HealthCheck scans every open subscription for silence longer than
// staleAfter and restarts it (spec.md §4.2 "Health monitoring": a
// subscription that has delivered no events for more than the configured
// threshold is presumed dead; EOSE does not count as activity). restart receives
// the subscription id, name and filters and is responsible for reopening
// the subscription and forgetting the stale id.
func (p *Pipeline) HealthCheck(ctx context.Context, staleAfter time.Duration, restart func(ctx context.Context, id string, name string, filters []*nostrwire.Filter)) {
	now := p.clock()

	p.mu.Lock()
	var stale []struct {
		id      string
		name    string
		filters []*nostrwire.Filter
	}
	for id, st := range p.subs {
		if st.restarting {
			continue
		}
		if now.Sub(st.lastEvent) > staleAfter {
			st.restarting = true
			stale = append(stale, struct {
				id      string
				name    string
				filters []*nostrwire.Filter
			}{id, st.name, st.filters})
		}
	}
	p.mu.Unlock()

	for _, s := range stale {
		p.logger.Warn().Str("subscription", s.name).Dur("threshold", staleAfter).Msg("subscription stale, restarting")
		p.mgr.Cancel(s.id)
		p.mu.Lock()
		delete(p.subs, s.id)
		p.mu.Unlock()
		restart(ctx, s.id, s.name, s.filters)
	}
}

// RunHealthLoop runs HealthCheck on cfg.HealthCheckEvery until ctx is done.
func (p *Pipeline) RunHealthLoop(ctx context.Context, restart func(ctx context.Context, id, name string, filters []*nostrwire.Filter)) {
	interval := p.cfg.HealthCheckEvery
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.HealthCheck(ctx, p.cfg.StaleAfter, restart)
		}
	}
}

// Close cancels every subscription owned by the pipeline.
func (p *Pipeline) Close() {
	p.mu.Lock()
	ids := make([]string, 0, len(p.subs))
	for id := range p.subs {
		ids = append(ids, id)
	}
	p.mu.Unlock()
	for _, id := range ids {
		p.mgr.Cancel(id)
	}
}
