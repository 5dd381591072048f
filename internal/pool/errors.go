package pool

import "errors"

// Sentinel errors for errors.Is checks at the boundary (spec.md §7).
var (
	// ErrPoolSaturated is returned when preload is requested but every
	// controller is ineligible for eviction (resource class, recoverable).
	ErrPoolSaturated = errors.New("pool: saturated, no evictable controller")
	// ErrPermanentlyFailed is returned by Preload for an id whose circuit
	// breaker has already tripped (media class, terminal; V6).
	ErrPermanentlyFailed = errors.New("pool: id permanently failed, will not retry")
	// ErrUnknownID is returned for operations against an id never admitted.
	ErrUnknownID = errors.New("pool: unknown id")
	// ErrDisposed names the Disposed state. Preload does not return it: a
	// disposed id is initialized again on its next Preload.
	ErrDisposed = errors.New("pool: id disposed")
)

// InitError wraps a media-layer initialization failure with the id it
// applies to, so callers can distinguish "this id's Nth attempt failed"
// from a bare transport error.
type InitError struct {
	ID         string
	RetryCount int
	Err        error
}

func (e *InitError) Error() string {
	return "pool: init failed for " + e.ID + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error { return e.Err }
