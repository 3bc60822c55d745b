// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

// Package logging provides centralized zerolog-based structured logging for Contentrank.
//
// The package keeps one global zerolog logger configured from main, plus
// helpers for request-scoped logging and an slog adapter used by the
// supervisor tree.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Msg("Server starting")
//	logging.Err(err).Str("layer", "ai").Msg("Layer failed")
//
//	// Request-scoped
//	ctx = logging.ContextWithNewRequestID(ctx)
//	logging.Ctx(ctx).Debug().Int64("user_id", userID).Msg("Serving recommendations")
//
// # Configuration
//
// Environment variables (read through internal/config):
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false (default: false)
//
// Components that are constructed with a logger take a zerolog.Logger by
// value and tag it with a component field:
//
//	logger := logging.WithComponent("training")
package logging
