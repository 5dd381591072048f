// Package pool implements the Video Controller Pool (spec.md §4.1): a
// bounded map of initialized media decoders over an unbounded logical video
// list, with directional preloading, eviction, and a per-id circuit
// breaker.
package pool

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/untreu2/divinefeed/internal/config"
	"github.com/untreu2/divinefeed/internal/log"
	"github.com/untreu2/divinefeed/internal/metrics"
	"github.com/untreu2/divinefeed/internal/video"
)

// Notification is emitted on every successful state transition and on
// eviction (spec.md §4.1, "Observable side effects"). Emissions are
// edge-triggered and the channel may coalesce multiple transitions.
type Notification struct {
	ID       string
	State    State
	Reason   string // "init", "eviction", "list_limit", "grace_expired", "memory_pressure", "dispose", "stop_all"
}

// entry is the pool's per-id bookkeeping. All mutation happens under Pool.mu.
type entry struct {
	descriptor *video.Descriptor
	state      State
	retryCount int
	lastError  error
	controller ControllerHandle
	lastAccess time.Time

	// cancelled marks a slot whose pending initialization should dispose its
	// result instead of publishing it once the goroutine completes.
	cancelled bool
	// disposeTimer holds the delayed-disposal timer for a Ready entry that
	// fell outside the preload window's grace band.
	disposeTimer *time.Timer
}

// Pool is the Video Controller Pool. All exported methods are safe to call
// from any goroutine. Internal state is protected by a single coarse mutex;
// controller initialization runs outside the lock (spec.md §4.1,
// "Concurrency").
type Pool struct {
	mu sync.Mutex

	cfg  config.PoolConfig
	init Initializer

	order   []string // ids, maintained per video.Less ordering (V4)
	entries map[string]*entry

	cursorIndex int

	notify chan Notification
	logger zerolog.Logger

	clock     func() time.Time
	afterFunc func(d time.Duration, f func()) *time.Timer
}

// New constructs a Pool. init is the platform media layer collaborator used
// to materialize a ControllerHandle for a descriptor.
func New(cfg config.PoolConfig, init Initializer) *Pool {
	return &Pool{
		cfg:     cfg,
		init:    init,
		entries: make(map[string]*entry),
		notify:  make(chan Notification, 256),
		logger:  log.WithComponent("pool"),
		clock:   time.Now,
		afterFunc: time.AfterFunc,
	}
}

// StateChanges returns the edge-triggered notification stream.
func (p *Pool) StateChanges() <-chan Notification { return p.notify }

func (p *Pool) emit(n Notification) {
	select {
	case p.notify <- n:
	default:
		// Slow consumer: coalesce by dropping, the receiver can always
		// reconcile against Videos()/StateOf.
	}
}

// AddDescriptor inserts d at the position consistent with the feed ordering
// invariant (V4). Fails silently if id is already present (idempotence
// law). If insertion would exceed cfg.MaxVideos, the oldest descriptors
// past the limit are evicted along with any of their controllers.
func (p *Pool) AddDescriptor(d *video.Descriptor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.entries[d.ID]; exists {
		return
	}

	idx := video.InsertSorted(p.descriptorList(), d)
	p.order = append(p.order, "")
	copy(p.order[idx+1:], p.order[idx:])
	p.order[idx] = d.ID
	p.entries[d.ID] = &entry{descriptor: d, state: NotLoaded}

	if idx <= p.cursorIndex && len(p.order) > 1 {
		// An insert at or before the cursor (a newer descriptor, since the
		// list is newest-first) shifts the logical cursor position;
		// callers re-derive cursorIndex via PreloadWindow on next scroll,
		// but we keep our own copy coherent for subsequent eviction scoring.
		p.cursorIndex++
	}

	p.evictPastLimitLocked()
}

func (p *Pool) descriptorList() []*video.Descriptor {
	list := make([]*video.Descriptor, len(p.order))
	for i, id := range p.order {
		list[i] = p.entries[id].descriptor
	}
	return list
}

// evictPastLimitLocked drops the oldest (by createdAtSeconds) descriptors
// past cfg.MaxVideos. Must be called with p.mu held.
func (p *Pool) evictPastLimitLocked() {
	if p.cfg.MaxVideos <= 0 || len(p.order) <= p.cfg.MaxVideos {
		return
	}
	// p.order is sorted newest-first (video.Less), so the tail is oldest.
	overflow := len(p.order) - p.cfg.MaxVideos
	victims := p.order[len(p.order)-overflow:]
	for _, id := range victims {
		p.disposeLocked(id, "list_limit")
		delete(p.entries, id)
	}
	p.order = p.order[:len(p.order)-overflow]
	if p.cursorIndex >= len(p.order) {
		p.cursorIndex = len(p.order) - 1
	}
}

// StateOf returns the current state of id, or NotLoaded if id is unknown.
func (p *Pool) StateOf(id string) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[id]; ok {
		return e.state
	}
	return NotLoaded
}

// Videos returns a read-only snapshot of the admitted descriptors in feed
// order (V3, V4). The returned slice is immutable; the pool never mutates
// it after returning.
func (p *Pool) Videos() []*video.Descriptor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.descriptorList()
}

// ReadyVideos returns a snapshot of descriptors currently in the Ready
// state, in feed order.
func (p *Pool) ReadyVideos() []*video.Descriptor {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*video.Descriptor, 0, len(p.order))
	for _, id := range p.order {
		if e := p.entries[id]; e.state == Ready {
			out = append(out, e.descriptor)
		}
	}
	return out
}

// HandleFor returns the live ControllerHandle for id, if Ready.
func (p *Pool) HandleFor(id string) (ControllerHandle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[id]
	if !ok || e.state != Ready {
		return nil, false
	}
	e.lastAccess = p.clock()
	return e.controller, true
}

// controllerCountLocked returns the number of live ControllerHandles
// (entries in Loading or Ready, matching V1/V2 — a Loading slot already
// reserves a controller "in flight").
func (p *Pool) controllerCountLocked() int {
	n := 0
	for _, e := range p.entries {
		if e.state == Loading || e.state == Ready {
			n++
		}
	}
	return n
}

// DebugInfo is a read-only introspection snapshot (spec.md §4.1).
type DebugInfo struct {
	TotalVideos       int
	ControllerCount   int
	CursorIndex       int
	StateCounts       map[string]int
}

func (p *Pool) DebugInfo() DebugInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	counts := make(map[string]int)
	for _, e := range p.entries {
		counts[e.state.String()]++
	}
	return DebugInfo{
		TotalVideos:     len(p.order),
		ControllerCount: p.controllerCountLocked(),
		CursorIndex:     p.cursorIndex,
		StateCounts:     counts,
	}
}

func (p *Pool) reportControllerCount() {
	metrics.SetControllerCount(p.controllerCountLocked())
}
