// Package transport defines the boundary between this module and the
// external event-stream transport (WebSocket relays). The transport itself
// is out of scope per spec.md §1; this package carries only the interface
// the Subscription Manager, Profile Fetcher, and Publish Pipeline program
// against, plus an in-memory fake used by tests and by standalone consumers
// such as the curation-set reader.
package transport

import (
	"context"

	"github.com/untreu2/divinefeed/internal/nostrwire"
)

// EventTransport is the external collaborator that multiplexes REQ/CLOSE/
// EVENT frames over one or more relay connections. A real implementation
// fans a single logical request out to every configured relay and merges
// the resulting event stream; that fan-out policy lives entirely in the
// (out-of-scope) transport and is invisible to callers of this interface.
type EventTransport interface {
	// Subscribe opens a logical subscription against filters and returns a
	// channel of frames. The channel is closed when the subscription ends
	// (CLOSE, EOSE-without-stream for a one-shot filter, or ctx
	// cancellation). The transport guarantees no send on the channel occurs
	// after ctx is done.
	Subscribe(ctx context.Context, subscriptionID string, filters []*nostrwire.Filter) (<-chan Frame, error)

	// Close cancels an open subscription. Idempotent.
	Close(subscriptionID string) error

	// Publish broadcasts a signed event to every configured endpoint in
	// parallel and returns per-endpoint acknowledgements.
	Publish(ctx context.Context, event *nostrwire.Event) ([]EndpointAck, error)
}

// Frame is a tagged union over the server→client frame kinds this module
// consumes.
type Frame struct {
	Event  *nostrwire.ServerEventFrame
	EOSE   *nostrwire.EOSEFrame
	Notice *nostrwire.NoticeFrame
}

// EndpointAck records one relay's response to a broadcast Publish call.
type EndpointAck struct {
	Endpoint string
	OK       bool
	Reason   string
}
