// Copyright (c) 2026 Anvil Works
// SPDX-License-Identifier: GPL-3.0-or-later

// Package server assembles the HTTP API for browsing log records.
package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/anvilworks/joblog/internal/config"
	"github.com/anvilworks/joblog/internal/middleware"
	"github.com/anvilworks/joblog/internal/version"
	"github.com/anvilworks/joblog/pkg/sqlstore"
)

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	db        *sql.DB
	store     *sqlstore.Store
	version   version.Info
	cfg       *config.Config
	startTime time.Time
	limiter   *middleware.RateLimiter
}

// New creates a handler backed by the given database and record store.
func New(db *sql.DB, store *sqlstore.Store, ver version.Info, cfg *config.Config) *Handler {
	return &Handler{
		db:        db,
		store:     store,
		version:   ver,
		cfg:       cfg,
		startTime: time.Now(),
		limiter:   middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
}

// StartLimiterCleanup runs the rate limiter cache cleanup until ctx is
// cancelled. Call it from a goroutine at startup.
func (h *Handler) StartLimiterCleanup(ctx context.Context) {
	h.limiter.StartCleanup(ctx)
}

// Router assembles the chi router with all middleware and routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(h.cfg.IsDevelopment())))

	if h.cfg.CORSEnabled() {
		c := cors.New(cors.Options{
			AllowedOrigins: h.cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", middleware.HeaderRequestID},
		})
		r.Use(c.Handler)
	}

	r.Get("/healthz", h.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.limiter.Middleware())

		r.Get("/status", h.Status)
		r.Get("/records", h.ListRecords)
		r.Get("/records/{id}", h.GetRecord)
	})

	return r
}
