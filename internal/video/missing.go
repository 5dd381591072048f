package video

import (
	"sync"
	"time"

	"github.com/untreu2/divinefeed/internal/resilience"
)

// missingCooldown is the trending-list reconciliation memoization window
// (spec.md §9, Open Question 3). Kept independent of the profile fetcher's
// 10-minute negative cache since the two lifetimes are not coupled by any
// stated invariant.
const missingCooldown = 6 * time.Hour

// MissingVideoMemo remembers ids that a trending/curation reconciliation
// pass could not resolve to a descriptor, so repeated reconciliation runs
// don't repeatedly chase the same dead id.
type MissingVideoMemo struct {
	mu    sync.Mutex
	clock resilience.Clock
	miss  map[string]time.Time
}

// NewMissingVideoMemo constructs a memo using the given clock (tests may
// supply a resilience.FakeClock).
func NewMissingVideoMemo(clock resilience.Clock) *MissingVideoMemo {
	if clock == nil {
		clock = resilience.RealClock{}
	}
	return &MissingVideoMemo{clock: clock, miss: make(map[string]time.Time)}
}

// MarkMissing records id as unresolved as of now.
func (m *MissingVideoMemo) MarkMissing(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.miss[id] = m.clock.Now()
}

// IsCoolingDown reports whether id was marked missing within the cooldown
// window and should be skipped this reconciliation pass.
func (m *MissingVideoMemo) IsCoolingDown(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.miss[id]
	if !ok {
		return false
	}
	if m.clock.Now().Sub(at) >= missingCooldown {
		delete(m.miss, id)
		return false
	}
	return true
}
