// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

// Package batch regenerates the precomputed recommendation table.
//
// The precomputed layer serves these rows when the live model is
// unavailable. A run scores every user of the latest artifact concurrently
// and replaces the table in a single transaction, so readers see either the
// previous rows or the new ones.
package batch
