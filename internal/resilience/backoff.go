package resilience

import (
	"math/rand"
	"time"
)

// Backoff computes exponential backoff with jitter for the transient
// transport error class (spec: 250ms x 2^n, clamped to 5s, max 3 attempts).
type Backoff struct {
	Base    time.Duration
	Max     time.Duration
	Attempt int
}

// NewBackoff returns a Backoff seeded with the standard transient-transport
// schedule.
func NewBackoff() *Backoff {
	return &Backoff{Base: 250 * time.Millisecond, Max: 5 * time.Second}
}

// Next returns the delay for the current attempt and advances the counter.
func (b *Backoff) Next() time.Duration {
	d := b.Base << b.Attempt
	if d <= 0 || d > b.Max {
		d = b.Max
	}
	b.Attempt++
	jitter := time.Duration(rand.Int63n(int64(d) / 2))
	return d/2 + jitter
}

// Reset zeroes the attempt counter, e.g. after a successful call.
func (b *Backoff) Reset() { b.Attempt = 0 }
