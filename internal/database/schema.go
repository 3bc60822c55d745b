// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package database

import (
	"context"
	"fmt"
	"time"
)

// Table names, also used as metric labels.
const (
	tableInteractions = "interactions"
	tableItems        = "content_items"
	tableTags         = "content_tags"
	tablePrecomputed  = "precomputed_recommendations"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func tableCreationQueries() []string {
	return []string{
		`CREATE SEQUENCE IF NOT EXISTS interactions_id_seq START 1`,

		// Append-only interaction log. content_key keeps the persisted
		// "<catalog>:<id>" form; rows with malformed keys are skipped on read.
		`CREATE TABLE IF NOT EXISTS interactions (
			id BIGINT PRIMARY KEY DEFAULT nextval('interactions_id_seq'),
			user_id BIGINT NOT NULL,
			content_key VARCHAR NOT NULL,
			action VARCHAR NOT NULL,
			value DOUBLE NOT NULL DEFAULT 1.0,
			metadata VARCHAR,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions(created_at)`,

		`CREATE TABLE IF NOT EXISTS content_items (
			catalog_type VARCHAR NOT NULL,
			object_id BIGINT NOT NULL,
			title VARCHAR NOT NULL DEFAULT '',
			likes BIGINT NOT NULL DEFAULT 0,
			bookmarks BIGINT NOT NULL DEFAULT 0,
			plays BIGINT NOT NULL DEFAULT 0,
			views BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (catalog_type, object_id)
		)`,

		`CREATE TABLE IF NOT EXISTS content_tags (
			catalog_type VARCHAR NOT NULL,
			object_id BIGINT NOT NULL,
			tag VARCHAR NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_content_tags_tag ON content_tags(catalog_type, tag)`,

		`CREATE TABLE IF NOT EXISTS precomputed_recommendations (
			user_id BIGINT NOT NULL,
			content_key VARCHAR NOT NULL,
			score DOUBLE NOT NULL,
			computed_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_precomputed_user ON precomputed_recommendations(user_id)`,
	}
}

// createTables creates the tables the recommender reads and writes.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}
