package main

import (
	"net/http"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/untreu2/divinefeed/internal/cache"
	"github.com/untreu2/divinefeed/internal/config"
	"github.com/untreu2/divinefeed/internal/curation"
	"github.com/untreu2/divinefeed/internal/debugapi"
	"github.com/untreu2/divinefeed/internal/feed"
	"github.com/untreu2/divinefeed/internal/nostrwire"
	"github.com/untreu2/divinefeed/internal/pool"
	"github.com/untreu2/divinefeed/internal/profile"
	"github.com/untreu2/divinefeed/internal/publish"
	"github.com/untreu2/divinefeed/internal/subscription"
	"github.com/untreu2/divinefeed/internal/transport"
)

// daemonDeps bundles every wired component for the daemon's lifetime.
type daemonDeps struct {
	store        cache.Store
	pool         *pool.Pool
	subs         *subscription.Manager
	feedPipeline *feed.Pipeline
	profiles     *profile.Fetcher
	publisher    *publish.Pipeline
	curationRdr  *curation.Reader
	debugAPI     *debugapi.Server
	t            transport.EventTransport
	seenStore    *feed.SQLiteSeenStore
}

func (d *daemonDeps) Close() {
	d.subs.Dispose()
	d.feedPipeline.Close()
	_ = d.seenStore.Close()
	_ = d.store.Close()
}

// wire constructs every daemon component. The media Initializer and relay
// transport are external collaborators per spec.md §1's Non-goals (platform
// media layer, WebSocket transport); absent a host-supplied implementation
// this wires deterministic local stand-ins so the daemon is runnable
// out of the box, logging that a real implementation should replace them
// in production.
func wire(fc *config.FileConfig, profileCfg config.Profile, logger zerolog.Logger) (*daemonDeps, error) {
	dataDir := fc.DataDir
	if dataDir == "" {
		dataDir = "./data"
	}
	store := cache.Open(filepath.Join(dataDir, "videofeed.badger"))

	t := newTransport(logger)

	subsMgr := subscription.New(t)
	profileAdapter := cache.NewProfileAdapter(store)
	videoAdapter := cache.NewVideoEventAdapter(store, profileCfg.Profile.SoftRefreshAfter)
	subsMgr.SetCacheReader(subscription.CacheReader{
		GetCachedEvent:  videoAdapter.GetCachedEvent,
		HasFreshProfile: videoAdapter.HasFreshProfile,
	})

	videoPool := pool.New(profileCfg.Pool, newLocalInitializer(logger))

	seenStore, err := feed.OpenSQLiteSeenStore(filepath.Join(dataDir, "seen.sqlite"))
	if err != nil {
		return nil, err
	}

	vanish := &accountVanishHandler{profileCache: profileAdapter, videoCache: store}

	feedPipeline := feed.New(feed.Options{
		Config:        profileCfg.Feed,
		Manager:       subsMgr,
		Sink:          videoPool,
		AlreadySeen:   seenStore,
		VanishHandler: vanish,
	})

	profileFetcher := profile.New(profileCfg.Profile, t, profileAdapter)

	var uploader *publish.Uploader
	if len(fc.StorageEndpoints) > 0 {
		uploader = publish.NewUploader(http.DefaultClient, fc.StorageEndpoints[0])
	}

	var publisher *publish.Pipeline
	if uploader != nil {
		publisher = publish.New(publish.Options{
			Uploader:   uploader,
			Signer:     noopSigner{},
			Transport:  t,
			Sink:       videoPool,
			ClientName: "videofeedd",
		})
		logger.Warn().Msg("publish pipeline wired with a placeholder signer — key management is an external collaborator and must be replaced with a real Signer before publishing is usable")
	}

	curationReader := curation.New(subsMgr)

	debugSrv := debugapi.New(fc.ResolveDebugAPI(), debugapi.PoolAdapter{Pool: videoPool}).
		WithSubscriptions(subsMgr)

	return &daemonDeps{
		store:        store,
		pool:         videoPool,
		subs:         subsMgr,
		feedPipeline: feedPipeline,
		profiles:     profileFetcher,
		publisher:    publisher,
		curationRdr:  curationReader,
		debugAPI:     debugSrv,
		t:            t,
		seenStore:    seenStore,
	}, nil
}

// newTransport always returns the in-memory transport, which keeps the
// daemon runnable for local development without a relay; the WebSocket
// relay client is an external collaborator per spec.md's Non-goals and no
// relay transport is wired in.
func newTransport(logger zerolog.Logger) transport.EventTransport {
	logger.Warn().Msg("no relay transport configured — falling back to the in-memory transport; wire a real relay client for production use")
	return transport.NewFake()
}

// noopSigner is a placeholder publish.Signer. Nostr key management and
// Schnorr signing are explicitly out of scope per spec.md §1 ("cryptographic
// primitives... external collaborators"); production deployments must
// inject a real Signer backed by the host application's keychain.
type noopSigner struct{}

func (noopSigner) PubKey() string { return "" }

func (noopSigner) Sign(ev *nostrwire.Event) (*nostrwire.Event, error) {
	return nil, publish.ErrAuthRequired
}
