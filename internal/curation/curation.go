// Package curation implements the addressable curation-set reader
// (SPEC_FULL.md's supplemented kind-30005 component): a thin wrapper over
// the Subscription Manager applying the replaceable-event newest-wins rule.
package curation

import (
	"context"
	"time"

	"github.com/untreu2/divinefeed/internal/feed"
	"github.com/untreu2/divinefeed/internal/nostrwire"
	"github.com/untreu2/divinefeed/internal/subscription"
	"github.com/untreu2/divinefeed/internal/video"
)

// FetchTimeout is the curation-set fetch deadline (spec.md §5).
const FetchTimeout = 10 * time.Second

// Reader fetches curation sets via a Subscription Manager.
type Reader struct {
	mgr *subscription.Manager
}

// New constructs a Reader over mgr.
func New(mgr *subscription.Manager) *Reader {
	return &Reader{mgr: mgr}
}

// FetchCurationSet resolves the newest kind-30005 event for
// {authorKey, dTag} and returns its member videos as Descriptors, applying
// the replaceable-event newest-wins rule if more than one relay-returned
// copy arrives before EOSE.
func (r *Reader) FetchCurationSet(ctx context.Context, authorKey, dTag string) ([]*video.Descriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	done := make(chan struct{})
	var newest *nostrwire.Event
	var completeOnce bool

	filter := &nostrwire.Filter{
		Kinds:   []int{nostrwire.KindCurationSet},
		Authors: []string{authorKey},
	}
	filter.Tags = map[string][]string{"#d": {dTag}}

	id, err := r.mgr.CreateSubscription(ctx, subscription.Options{
		Name:    "curation-" + authorKey + "-" + dTag,
		Filters: []*nostrwire.Filter{filter},
		Timeout: FetchTimeout,
		OnEvent: func(ev *nostrwire.Event) {
			if ev.DTag() != dTag {
				return
			}
			if newest == nil || ev.CreatedAt > newest.CreatedAt {
				newest = ev
			}
		},
		OnComplete: func() {
			if !completeOnce {
				completeOnce = true
				close(done)
			}
		},
	})
	if err != nil {
		return nil, err
	}
	defer r.mgr.Cancel(id)

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if newest == nil {
		return nil, nil
	}
	return membersFromCurationEvent(newest), nil
}

// membersFromCurationEvent derives member Descriptors from the curation
// event's `e` tags, each referencing a short-video event id. The curation
// set only references ids; resolving them to full Descriptors is left to
// the caller via the cache/subscription layer, so this returns
// placeholder Descriptors carrying just the id for now, consistent with
// how a curation set is a list of references rather than inline content.
func membersFromCurationEvent(ev *nostrwire.Event) []*video.Descriptor {
	var out []*video.Descriptor
	for _, e := range ev.AllTagValues("e") {
		if len(e) == 0 {
			continue
		}
		out = append(out, &video.Descriptor{ID: e[0]})
	}
	return out
}

// ResolveMembers upgrades a curation set's id-only Descriptors to full
// Descriptors using resolve as the resolved-event source (typically the feed
// pipeline's cache-backed transform).
func ResolveMembers(members []*video.Descriptor, resolve func(id string) (*nostrwire.Event, bool)) []*video.Descriptor {
	out := make([]*video.Descriptor, 0, len(members))
	for _, m := range members {
		ev, ok := resolve(m.ID)
		if !ok {
			continue
		}
		out = append(out, feed.DescriptorFromEvent(ev))
	}
	return out
}
