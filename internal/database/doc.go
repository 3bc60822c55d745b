// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

/*
Package database provides the DuckDB storage behind the recommender.

# Tables

  - interactions: the append-only interaction log read by training
  - content_items, content_tags: the content catalog used by the
    content-based, popularity and emergency layers and by metadata
    enrichment during training
  - precomputed_recommendations: per-user lists written by the batch
    recompute and served by the precomputed layer

# Interfaces

*DB implements recommend.ContentCatalog, recommend.PrecomputedSource,
recommend.HistorySource, training.InteractionSource,
training.MetadataSource and batch.PrecomputedWriter.

Every query records its duration and errors through the metrics package.
Queries issued without a deadline get the configured query timeout.

# Usage

	db, err := database.New(&cfg.Database)
	if err != nil {
	    return err
	}
	defer db.Close()

	events, err := db.Interactions(ctx, time.Now().AddDate(0, 0, -90))

Tests use ":memory:" as the path.
*/
package database
