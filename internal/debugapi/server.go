// Package debugapi implements the local-only introspection HTTP surface
// (SPEC_FULL.md domain-stack supplement): read-only views of the Video
// Controller Pool's debugInfo() and videos() accessors, plus a liveness
// probe, mounted on chi with an httprate-based rate limiter.
package debugapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/untreu2/divinefeed/internal/config"
	"github.com/untreu2/divinefeed/internal/log"
)

// PoolView is the read-only slice of *pool.Pool this package depends on,
// kept narrow so debugapi never imports internal/pool's mutation surface.
type PoolView interface {
	DebugInfo() DebugInfo
	Videos() []VideoView
}

// DebugInfo mirrors pool.DebugInfo's JSON-relevant fields. Declared locally
// rather than importing internal/pool's type directly so the wire shape is
// this package's to own (internal/pool's type is adapted to it by the
// caller, see PoolAdapter in adapter.go).
type DebugInfo struct {
	TotalVideos     int            `json:"totalVideos"`
	ControllerCount int            `json:"controllerCount"`
	CursorIndex     int            `json:"cursorIndex"`
	StateCounts     map[string]int `json:"stateCounts"`
}

// VideoView is the JSON projection of a video.Descriptor for the
// introspection surface.
type VideoView struct {
	ID           string `json:"id"`
	AuthorKey    string `json:"authorKey"`
	CreatedAt    int64  `json:"createdAt"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// Server is the debug HTTP server. Construct with New and run with
// ListenAndServe; Shutdown honors graceful drain.
type Server struct {
	cfg    config.DebugAPIConfig
	pool   PoolView
	subs   SubscriptionsView
	logger zerolog.Logger
	http   *http.Server
}

// New constructs a Server bound to pool. It does not start listening until
// ListenAndServe is called.
func New(cfg config.DebugAPIConfig, pool PoolView) *Server {
	s := &Server{
		cfg:    cfg,
		pool:   pool,
		logger: log.WithComponent("debugapi"),
	}
	s.http = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(httprate.Limit(
		s.cfg.RateLimitRPS,
		time.Second,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, http.StatusTooManyRequests, "rate_limit_exceeded")
		}),
	))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/debug/info", s.handleDebugInfo)
	r.Get("/debug/videos", s.handleVideos)
	r.Get("/debug/subscriptions", s.handleSubscriptions)

	return r
}

// ListenAndServe starts the HTTP server. It blocks until the server stops
// or returns an error (http.ErrServerClosed on a clean Shutdown).
func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.cfg.ListenAddr).Msg("debugapi listening")
	return s.http.ListenAndServe()
}

// Shutdown gracefully drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
