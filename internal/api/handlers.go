// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/contentrank/internal/logging"
	"github.com/tomtom215/contentrank/internal/recommend"
)

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status          string                           `json:"status"`
	Uptime          float64                          `json:"uptime_seconds"`
	Services        map[string]recommend.LayerHealth `json:"services"`
	CircuitBreakers []string                         `json:"circuit_breakers"`
}

// ReadyResponse is the /readyz body.
type ReadyResponse struct {
	Status    string     `json:"status"`
	Database  string     `json:"database"`
	Model     string     `json:"model"`
	TrainedAt *time.Time `json:"trained_at,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Healthz reports per-layer health. It answers 503 only when no layer can
// be tried at all; open breakers on some layers are "degraded".
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status:          "healthy",
		Uptime:          time.Since(h.startTime).Seconds(),
		Services:        map[string]recommend.LayerHealth{},
		CircuitBreakers: []string{},
	}
	status := http.StatusOK

	if h.deps.Health != nil {
		health := h.deps.Health.GetHealth()
		if health.Services != nil {
			resp.Services = health.Services
		}
		if health.CircuitBreakers != nil {
			resp.CircuitBreakers = health.CircuitBreakers
		}
		switch {
		case !health.Available():
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		case len(health.CircuitBreakers) > 0:
			resp.Status = "degraded"
		}
	}

	respondJSON(w, status, resp)
}

// Readyz checks the database. A missing artifact is reported but does not
// fail readiness since the service answers from fallback layers.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{Status: "ready", Database: "skipped", Model: "cold_start"}
	status := http.StatusOK

	if h.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.config.ReadyTimeout)
		defer cancel()
		if err := h.deps.DB.Ping(ctx); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("readiness ping failed")
			resp.Status = "not_ready"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}

	if h.deps.Artifact != nil {
		if artifact, meta := h.deps.Artifact.Artifact(); artifact != nil {
			resp.Model = "loaded"
			if meta != nil && !meta.TrainedAt.IsZero() {
				trainedAt := meta.TrainedAt
				resp.TrainedAt = &trainedAt
			}
		}
	}

	respondJSON(w, status, resp)
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Code: code, Message: message})
}
