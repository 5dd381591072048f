package pool

import "context"

// windowIndices computes the target index set {cursor-behind .. cursor+ahead}
// clipped to the current list bounds, and returns it ordered by the
// preload priority from spec.md §4.1: cursor first, then forward (ahead of
// cursor) in descending distance, then backward (behind cursor), also in
// descending distance. The backward ordering is an implementer's choice —
// the spec only states the forward ordering explicitly.
func windowIndices(cursor, ahead, behind, length int) []int {
	if length == 0 {
		return nil
	}
	lo := cursor - behind
	hi := cursor + ahead
	if lo < 0 {
		lo = 0
	}
	if hi > length-1 {
		hi = length - 1
	}

	var forward, backward []int
	for i := hi; i > cursor && i >= lo; i-- {
		forward = append(forward, i)
	}
	for i := lo; i < cursor && i <= hi; i++ {
		backward = append(backward, i) // descending distance: farthest-behind first
	}

	out := make([]int, 0, hi-lo+1)
	if cursor >= lo && cursor <= hi {
		out = append(out, cursor)
	}
	out = append(out, forward...)
	out = append(out, backward...)
	return out
}

// PreloadWindow computes the target window around cursorIndex, filters out
// PermanentlyFailed ids, and issues Preload in priority order. Errors from
// individual Preload calls are collected but do not stop the remaining
// issues in the window — a saturated pool simply leaves the unfulfilled ids
// for a later call once eviction or disposal frees room.
func (p *Pool) PreloadWindow(ctx context.Context, cursorIndex, ahead, behind int) map[string]error {
	p.mu.Lock()
	p.cursorIndex = cursorIndex
	ids := make([]string, len(p.order))
	copy(ids, p.order)
	p.mu.Unlock()

	indices := windowIndices(cursorIndex, ahead, behind, len(ids))

	results := make(map[string]error, len(indices))
	for _, idx := range indices {
		id := ids[idx]
		if p.StateOf(id) == PermanentlyFailed {
			continue
		}
		results[id] = p.Preload(ctx, id)
	}

	p.scheduleGraceDisposals(cursorIndex, ahead, behind, ids)
	return results
}

// scheduleGraceDisposals arms a delayed-disposal timer for every Ready id
// outside the window and its grace band, and disarms timers for ids that
// are back in range (spec.md §4.1, "Preload window").
func (p *Pool) scheduleGraceDisposals(cursorIndex, ahead, behind int, ids []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	const graceMargin = 1 // small grace band beyond the active window
	lo := cursorIndex - behind - graceMargin
	hi := cursorIndex + ahead + graceMargin

	for idx, id := range ids {
		e := p.entries[id]
		if e == nil || e.state != Ready {
			continue
		}
		inBand := idx >= lo && idx <= hi
		if inBand {
			if e.disposeTimer != nil {
				e.disposeTimer.Stop()
				e.disposeTimer = nil
			}
			continue
		}
		if e.disposeTimer != nil {
			continue // already scheduled
		}
		idCopy := id
		e.disposeTimer = p.afterFunc(p.cfg.GracePeriod, func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if e2 := p.entries[idCopy]; e2 != nil && e2.state == Ready && e2.disposeTimer != nil {
				e2.disposeTimer = nil
				p.disposeLocked(idCopy, "grace_expired")
				p.reportControllerCount()
			}
		})
	}
}

// HandleMemoryPressure disposes all controllers except the one at the
// cursor and its immediate successor, returning once disposal is complete
// (spec.md §4.1).
func (p *Pool) HandleMemoryPressure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	keep := make(map[string]bool, 2)
	if p.cursorIndex >= 0 && p.cursorIndex < len(p.order) {
		keep[p.order[p.cursorIndex]] = true
	}
	if p.cursorIndex+1 >= 0 && p.cursorIndex+1 < len(p.order) {
		keep[p.order[p.cursorIndex+1]] = true
	}

	for id, e := range p.entries {
		if keep[id] {
			continue
		}
		if e.state == Ready || e.state == Loading {
			p.disposeLocked(id, "memory_pressure")
		}
	}
	p.reportControllerCount()
}

// StopAll disposes every live controller, returning once complete.
func (p *Pool) StopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.entries {
		p.disposeLocked(id, "stop_all")
	}
	p.reportControllerCount()
}
