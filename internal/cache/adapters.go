package cache

import (
	"encoding/json"
	"time"

	"github.com/untreu2/divinefeed/internal/nostrwire"
)

// ProfileAdapter implements profile.CacheStore over a Store, splitting the
// kind-0 event and its fetch timestamp across the user_profiles and
// profile_fetch_timestamps boxes (spec.md §4.6).
type ProfileAdapter struct {
	store Store
}

// NewProfileAdapter wraps store for use as a profile.CacheStore.
func NewProfileAdapter(store Store) *ProfileAdapter {
	return &ProfileAdapter{store: store}
}

func (a *ProfileAdapter) Get(pubkey string) (*nostrwire.Event, time.Time, bool) {
	raw, ok, err := a.store.Get(BoxUserProfiles, pubkey)
	if err != nil || !ok {
		return nil, time.Time{}, false
	}
	var ev nostrwire.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, time.Time{}, false
	}
	tsRaw, ok, err := a.store.Get(BoxProfileFetchTimestamps, pubkey)
	if err != nil || !ok {
		return &ev, time.Time{}, true
	}
	fetchedAt, err := time.Parse(time.RFC3339Nano, string(tsRaw))
	if err != nil {
		return &ev, time.Time{}, true
	}
	return &ev, fetchedAt, true
}

func (a *ProfileAdapter) Put(pubkey string, ev *nostrwire.Event, fetchedAt time.Time) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_ = a.store.Put(BoxUserProfiles, pubkey, raw, 0)
	_ = a.store.Put(BoxProfileFetchTimestamps, pubkey, []byte(fetchedAt.Format(time.RFC3339Nano)), 0)
}

// VideoEventAdapter implements subscription.CacheReader's capability
// closures over a Store, caching raw events by id in video_cache and
// deferring freshness decisions to the profile fetch timestamps box.
type VideoEventAdapter struct {
	store              Store
	softFreshThreshold time.Duration
}

// NewVideoEventAdapter wraps store for use by the Subscription Manager's
// cache-interception path.
func NewVideoEventAdapter(store Store, softFreshThreshold time.Duration) *VideoEventAdapter {
	return &VideoEventAdapter{store: store, softFreshThreshold: softFreshThreshold}
}

// GetCachedEvent satisfies subscription.CacheReader.GetCachedEvent.
func (a *VideoEventAdapter) GetCachedEvent(id string) (*nostrwire.Event, bool) {
	raw, ok, err := a.store.Get(BoxVideoCache, id)
	if err != nil || !ok {
		return nil, false
	}
	var ev nostrwire.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, false
	}
	return &ev, true
}

// PutCachedEvent stores ev in the video cache box, keyed by id.
func (a *VideoEventAdapter) PutCachedEvent(ev *nostrwire.Event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_ = a.store.Put(BoxVideoCache, ev.ID, raw, 0)
}

// HasFreshProfile satisfies subscription.CacheReader.HasFreshProfile: a
// profile is fresh if it was fetched within softFreshThreshold.
func (a *VideoEventAdapter) HasFreshProfile(pubkey string) bool {
	tsRaw, ok, err := a.store.Get(BoxProfileFetchTimestamps, pubkey)
	if err != nil || !ok {
		return false
	}
	fetchedAt, err := time.Parse(time.RFC3339Nano, string(tsRaw))
	if err != nil {
		return false
	}
	return time.Since(fetchedAt) < a.softFreshThreshold
}

// PurgeAccount implements the supplemented kind-62 account-vanish handling
// (SPEC_FULL.md): it removes every personal-namespace record keyed or
// prefixed by authorKey across the boxes that hold per-account state.
func (a *ProfileAdapter) PurgeAccount(authorKey string) {
	_ = a.store.Delete(BoxUserProfiles, authorKey)
	_ = a.store.Delete(BoxProfileFetchTimestamps, authorKey)
}

// PurgePersonalEvents removes every personal_events / personal_events_metadata
// / pending_uploads record for authorKey. Kept separate from
// ProfileAdapter.PurgeAccount so callers without a profile adapter can still
// react to account-vanish.
func PurgePersonalEvents(store Store, authorKey string) {
	_ = store.DeletePrefix(BoxPersonalEvents, authorKey)
	_ = store.DeletePrefix(BoxPersonalEventsMetadata, authorKey)
	_ = store.DeletePrefix(BoxPendingUploads, authorKey)
}
