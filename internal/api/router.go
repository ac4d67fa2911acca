// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shelfscout/shelfscout/internal/config"
	"github.com/shelfscout/shelfscout/internal/middleware"
)

// NewRouter assembles the full HTTP surface. Health and metrics stay
// unauthenticated; everything under /api/v1 requires a bearer token.
func NewRouter(cfg *config.Config, auth *middleware.Authenticator, h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(httprate.LimitByIP(cfg.Server.RateLimitReqs, cfg.Server.RateLimitWindow))

	r.Get("/healthz", h.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Authenticate(func(w http.ResponseWriter, req *http.Request) {
			writeError(w, req, http.StatusUnauthorized, KindUnauthorized, "missing or invalid bearer token", 0)
		}))
		r.Use(middleware.Prometheus)

		r.Post("/recommendations", h.Recommendations)
		r.Get("/plan", h.Plan)

		r.Route("/library", func(r chi.Router) {
			r.Get("/", h.LibraryList)
			r.Post("/", h.LibraryAdd)
			r.Delete("/{key}", h.LibraryRemove)
		})
	})

	return r
}
