// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package recommend

import (
	"sync"
	"time"
)

// LayerHealth is the last observed state of one layer.
type LayerHealth struct {
	Healthy      bool      `json:"healthy"`
	LastCheck    time.Time `json:"last_check"`
	Error        string    `json:"error,omitempty"`
	FailureCount int       `json:"failure_count"`
}

// Health is the snapshot returned by Service.GetHealth.
type Health struct {
	Services map[string]LayerHealth `json:"services"`
	// CircuitBreakers lists layers whose breaker is open or half-open.
	CircuitBreakers []string `json:"circuit_breakers"`
}

// Available reports whether at least one layer can still be tried.
func (h Health) Available() bool {
	return len(h.CircuitBreakers) < len(h.Services)
}

// healthTracker is written only by the orchestrator.
type healthTracker struct {
	mu     sync.Mutex
	layers map[string]*LayerHealth
}

func newHealthTracker(names []string) *healthTracker {
	h := &healthTracker{layers: make(map[string]*LayerHealth, len(names))}
	for _, name := range names {
		h.layers[name] = &LayerHealth{Healthy: true}
	}
	return h
}

func (h *healthTracker) success(name string, now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	lh := h.layers[name]
	lh.Healthy = true
	lh.LastCheck = now
	lh.Error = ""
	lh.FailureCount = 0
}

func (h *healthTracker) failure(name string, now time.Time, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	lh := h.layers[name]
	lh.Healthy = false
	lh.LastCheck = now
	lh.Error = err.Error()
	lh.FailureCount++
}

// rejected records a call the breaker refused; the failure count is left
// alone because the layer was not invoked.
func (h *healthTracker) rejected(name string, now time.Time, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	lh := h.layers[name]
	lh.Healthy = false
	lh.LastCheck = now
	lh.Error = err.Error()
}

func (h *healthTracker) snapshot() map[string]LayerHealth {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]LayerHealth, len(h.layers))
	for name, lh := range h.layers {
		out[name] = *lh
	}
	return out
}
