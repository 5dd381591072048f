package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/untreu2/divinefeed/internal/cache"
	"github.com/untreu2/divinefeed/internal/nostrwire"
	"github.com/untreu2/divinefeed/internal/pool"
	"github.com/untreu2/divinefeed/internal/video"
)

// accountVanishHandler implements feed.VanishHandler: it purges every
// personal store keyed by the vanished author on receipt of a kind-62
// account-vanish event (SPEC_FULL.md supplement to spec.md §4.2).
type accountVanishHandler struct {
	profileCache *cache.ProfileAdapter
	videoCache   cache.Store
}

func (h *accountVanishHandler) HandleAccountVanish(authorKey string) {
	h.profileCache.PurgeAccount(authorKey)
	cache.PurgePersonalEvents(h.videoCache, authorKey)
}

// localController is a deterministic stand-in ControllerHandle used when no
// host-supplied media Initializer is configured. It performs no I/O; a real
// deployment replaces newLocalInitializer with the platform media layer.
type localController struct{}

func (localController) Dispose() {}
func (localController) Pause()   {}
func (localController) Resume()  {}

func newLocalInitializer(logger zerolog.Logger) pool.Initializer {
	logger.Warn().Msg("no media initializer configured — wiring a no-op controller; the platform media layer is an external collaborator per the design")
	return func(ctx context.Context, d *video.Descriptor) (pool.ControllerHandle, error) {
		return localController{}, nil
	}
}

// restartSubscription re-issues a stalled subscription with the same
// filters, called back from the feed pipeline's health loop.
func restartSubscription(ctx context.Context, pipeline interface {
	Subscribe(ctx context.Context, name string, filters []*nostrwire.Filter, replay bool) (string, error)
}, id, name string, filters []*nostrwire.Filter, logger zerolog.Logger) {
	if _, err := pipeline.Subscribe(ctx, name, filters, false); err != nil {
		logger.Warn().Err(err).Str("subscription", name).Msg("failed to restart stale subscription")
	}
}

func runSubsystems(ctx context.Context, deps *daemonDeps, logger zerolog.Logger) error {
	deps.feedPipeline.RunHealthLoop(ctx, func(ctx context.Context, id, name string, filters []*nostrwire.Filter) {
		restartSubscription(ctx, deps.feedPipeline, id, name, filters, logger)
	})
	<-ctx.Done()
	return nil
}
