// Package api exposes the HTTP interface for the extraction service.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mediagrab/mediagrab/internal/accounts"
	"github.com/mediagrab/mediagrab/internal/cache"
	"github.com/mediagrab/mediagrab/internal/config"
	"github.com/mediagrab/mediagrab/internal/engine"
	"github.com/mediagrab/mediagrab/internal/extractor"
	"github.com/mediagrab/mediagrab/internal/metrics"
	"github.com/mediagrab/mediagrab/internal/ratelimit"
	"github.com/mediagrab/mediagrab/internal/scrape"
)

// Server wires HTTP handlers to the extractor, pool, and cache.
type Server struct {
	router    chi.Router
	extractor *extractor.Service
	pool      *accounts.Pool
	engine    *engine.Engine
	cache     cache.Cache
	cfg       config.Config
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	svc *extractor.Service,
	pool *accounts.Pool,
	eng *engine.Engine,
	c cache.Cache,
	limiter *ratelimit.Limiter,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		extractor: svc,
		pool:      pool,
		engine:    eng,
		cache:     c,
		cfg:       cfg,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(ratelimit.Middleware(limiter, logger))
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/api", s.extract)

	r.Route("/accounts", func(r chi.Router) {
		r.Get("/stats", s.accountStats)
		r.Get("/next", s.previewNext)
		r.Post("/load", s.loadAccounts)
		r.Post("/add", s.addAccount)
		r.Route("/{username}", func(r chi.Router) {
			r.Delete("/", s.removeAccount)
			r.Post("/enable", s.enableAccount)
			r.Post("/disable", s.disableAccount)
		})
	})

	r.Route("/cache", func(r chi.Router) {
		r.Get("/stats", s.cacheStats)
		r.Post("/clear", s.clearCache)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) extract(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeFailure(w, scrape.NewError(scrape.KindValidation, "missing url parameter"))
		return
	}
	res, err := s.extractor.Extract(r.Context(), rawURL)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeSuccess(w, "media extracted", res)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	available := s.pool.AvailableCount()
	metrics.SetAccountsAvailable(available)
	writeSuccess(w, "", map[string]any{
		"service":            "mediagrab",
		"accounts_total":     s.pool.Len(),
		"accounts_available": available,
		"live_clients":       s.engine.ClientCount(),
		"ambient_user":       s.engine.AmbientUser(),
	})
}

func (s *Server) cacheStats(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, "", s.cache.Stats(r.Context()))
}

func (s *Server) clearCache(w http.ResponseWriter, r *http.Request) {
	s.cache.Clear(r.Context())
	s.logger.Info("cache cleared via API")
	writeSuccess(w, "cache cleared", nil)
}
