// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

/*
Package api serves the operational HTTP surface of contentrank serve.

There is no end-user recommendation endpoint. The router exposes:

  - GET /healthz: per-layer health and open circuit breakers from
    recommend.Service.GetHealth, 503 when no layer can be tried
  - GET /readyz: database ping and whether a model artifact is loaded
  - GET /metrics: Prometheus exposition

Middleware order is request id, real IP, panic recovery, request metrics and
then the optional per-IP rate limit (go-chi/httprate).

Usage:

	h := api.NewHandler(api.RouterConfig{RateLimitRequests: 100, RateLimitWindow: time.Minute},
		api.Dependencies{Health: svc, DB: db, Artifact: backend})
	server := &http.Server{Addr: ":8089", Handler: h.Router()}
*/
package api
