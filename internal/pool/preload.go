package pool

import (
	"context"
	"sort"
	"time"

	"github.com/untreu2/divinefeed/internal/metrics"
)

// Preload is a no-op if the state is Ready, Loading, or PermanentlyFailed
// (spec.md §4.1, V6). Otherwise it transitions to Loading, acquires a
// ControllerHandle from the platform media layer outside the lock, and on
// completion transitions to Ready, Failed, or PermanentlyFailed.
func (p *Pool) Preload(ctx context.Context, id string) error {
	p.mu.Lock()
	e, ok := p.entries[id]
	if !ok {
		p.mu.Unlock()
		return ErrUnknownID
	}
	switch e.state {
	case Ready, Loading:
		p.mu.Unlock()
		return nil
	case PermanentlyFailed:
		p.mu.Unlock()
		return ErrPermanentlyFailed
	}

	if p.controllerCountLocked() >= p.cfg.MaxControllers {
		if !p.evictOneLocked(id) {
			p.mu.Unlock()
			return ErrPoolSaturated
		}
	}

	e.state = Loading
	e.cancelled = false
	d := e.descriptor
	p.mu.Unlock()

	p.emit(Notification{ID: id, State: Loading, Reason: "init"})

	initCtx, cancel := context.WithTimeout(ctx, p.cfg.PreloadTimeout)
	defer cancel()

	start := time.Now()
	handle, err := p.init(initCtx, d)

	p.mu.Lock()
	defer p.mu.Unlock()

	// Re-fetch: AddDescriptor never removes an in-flight entry, but eviction
	// or explicit Dispose may have marked this slot cancelled while we were
	// outside the lock.
	e, ok = p.entries[id]
	if !ok {
		if err == nil && handle != nil {
			handle.Dispose()
		}
		return ErrUnknownID
	}

	if e.cancelled {
		if err == nil && handle != nil {
			handle.Dispose()
		}
		e.state = Disposed
		e.cancelled = false
		return nil
	}

	if err != nil {
		e.retryCount++
		e.lastError = err
		if e.retryCount >= p.cfg.MaxRetries {
			e.state = PermanentlyFailed
			p.emit(Notification{ID: id, State: PermanentlyFailed, Reason: "init"})
		} else {
			e.state = Failed
			p.emit(Notification{ID: id, State: Failed, Reason: "init"})
		}
		p.reportControllerCount()
		return &InitError{ID: id, RetryCount: e.retryCount, Err: err}
	}

	e.state = Ready
	e.controller = handle
	e.lastAccess = p.clock()
	p.emit(Notification{ID: id, State: Ready, Reason: "init"})
	p.reportControllerCount()
	return nil
}

// evictOneLocked selects an eviction victim per spec.md §4.1 ("Eviction
// (memory policy)"): Ready descriptors outside the current preload window,
// ordered by distance-from-cursor descending then last-access ascending.
// requestingID is excluded from victimhood (it cannot evict itself).
// Returns true if a victim was found and evicted.
func (p *Pool) evictOneLocked(requestingID string) bool {
	idxOf := make(map[string]int, len(p.order))
	for i, id := range p.order {
		idxOf[id] = i
	}

	type candidate struct {
		id       string
		distance int
		lastUsed time.Time
	}
	var candidates []candidate
	for id, e := range p.entries {
		if e.state != Ready || id == requestingID {
			continue
		}
		if p.inWindowLocked(idxOf[id]) {
			continue
		}
		candidates = append(candidates, candidate{
			id:       id,
			distance: abs(idxOf[id] - p.cursorIndex),
			lastUsed: e.lastAccess,
		})
	}
	if len(candidates) == 0 {
		return false
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance > candidates[j].distance
		}
		return candidates[i].lastUsed.Before(candidates[j].lastUsed)
	})

	victim := candidates[0].id
	p.disposeLocked(victim, "eviction")
	return true
}

func (p *Pool) inWindowLocked(idx int) bool {
	lo := p.cursorIndex - p.cfg.PreloadBehind
	hi := p.cursorIndex + p.cfg.PreloadAhead
	return idx >= lo && idx <= hi
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// disposeLocked transitions id to Disposed, releasing its controller (or
// cancelling a pending initialization so it disposes its own result on
// completion instead of publishing it). Must be called with p.mu held.
func (p *Pool) disposeLocked(id string, reason string) {
	e, ok := p.entries[id]
	if !ok {
		return
	}
	if e.disposeTimer != nil {
		e.disposeTimer.Stop()
		e.disposeTimer = nil
	}
	switch e.state {
	case Loading:
		e.cancelled = true
		return
	case Ready:
		if e.controller != nil {
			e.controller.Dispose()
			e.controller = nil
		}
	}
	e.state = Disposed
	if reason == "eviction" || reason == "list_limit" || reason == "memory_pressure" {
		metrics.IncEviction(reason)
	}
	p.emit(Notification{ID: id, State: Disposed, Reason: reason})
}

// Dispose disposes a single id's controller (or cancels its pending
// initialization). Idempotent.
func (p *Pool) Dispose(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disposeLocked(id, "dispose")
	p.reportControllerCount()
}
