package profile

import "errors"

var (
	// ErrProfileNotFound is returned when a batch fetch completes without
	// locating the requested pubkey's kind-0 event (spec.md §4.4, "negative
	// memoization").
	ErrProfileNotFound = errors.New("profile: not found")
	// ErrFetchTimeout is returned when a batch fetch does not resolve within
	// the configured fallback window.
	ErrFetchTimeout = errors.New("profile: fetch timed out")
)
