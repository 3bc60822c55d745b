// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/contentrank/internal/recommend"
	"github.com/tomtom215/contentrank/internal/recommend/storage"
)

// HealthReporter is satisfied by *recommend.Service.
type HealthReporter interface {
	GetHealth() recommend.Health
}

// Pinger is satisfied by *database.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ArtifactReporter is satisfied by *inference.Backend.
type ArtifactReporter interface {
	Artifact() (*recommend.Artifact, *storage.Metadata)
}

// RouterConfig configures the operational HTTP surface.
type RouterConfig struct {
	// RateLimitRequests per RateLimitWindow and client IP. Zero disables
	// rate limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// ReadyTimeout bounds the database ping behind /readyz.
	// Default: 2s
	ReadyTimeout time.Duration
}

// Dependencies are the collaborators the handlers report on. Any of them
// may be nil; the corresponding check is then skipped.
type Dependencies struct {
	Health   HealthReporter
	DB       Pinger
	Artifact ArtifactReporter
}

// Handler serves the health, readiness and metrics endpoints.
type Handler struct {
	deps      Dependencies
	config    RouterConfig
	startTime time.Time
}

// NewHandler creates a handler. The zero RouterConfig is valid.
func NewHandler(cfg RouterConfig, deps Dependencies) *Handler {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 2 * time.Second
	}
	return &Handler{
		deps:      deps,
		config:    cfg,
		startTime: time.Now(),
	}
}

// Router builds the chi router:
//
//	GET /healthz  layer health, 503 when every breaker is open
//	GET /readyz   database and artifact readiness
//	GET /metrics  Prometheus exposition
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(PrometheusMetrics)
	if h.config.RateLimitRequests > 0 {
		r.Use(RateLimit(h.config.RateLimitRequests, h.config.RateLimitWindow))
	}

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	return r
}
