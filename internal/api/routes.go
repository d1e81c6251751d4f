package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler
}

func SetupRouter(e Engine, cfg RouterConfig, logger *slog.Logger) *chi.Mux {
	h := NewHandler(e, logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	// Health
	r.Get("/health", h.Health)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(JSONOnly)

		r.Put("/glimpse", h.SetGlimpse)
		r.Delete("/glimpse", h.DeleteGlimpse)

		r.Route("/glimpses/{profile}", func(r chi.Router) {
			r.Get("/", h.GetGlimpse)
			r.Get("/expired", h.IsExpired)
			r.Post("/expire", h.MarkExpired)
			r.Post("/mint", h.Mint)
		})

		r.Get("/tokens/id", h.TokenIDFor)
		r.Get("/tokens/{id}", h.GetToken)

		r.Get("/holders/{identity}/tokens", h.HolderTokens)
		r.Get("/holders/{identity}/close-friends", h.CloseFriendsOf)

		r.Get("/profiles/{profile}/close-friends/{viewer}", h.IsCloseFriend)
		r.Get("/profiles/{a}/mutual/{b}", h.AreMutualFollowers)
	})

	return r
}
