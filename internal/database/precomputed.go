// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/contentrank/internal/recommend"
)

// PrecomputedFor returns the stored recommendations of one user, best first.
// A non-positive limit returns every row. Rows with malformed keys are
// dropped.
func (db *DB) PrecomputedFor(ctx context.Context, userID int64, limit int) (items []recommend.ScoredItem, err error) {
	start := time.Now()
	defer func() { observe("select", tablePrecomputed, start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query, args := withLimit(`
		SELECT content_key, score
		FROM precomputed_recommendations
		WHERE user_id = ?
		ORDER BY score DESC, content_key`,
		[]any{userID}, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query precomputed recommendations: %w", err)
	}
	defer closeWithLog(rows, "precomputed rows")

	items = []recommend.ScoredItem{}
	for rows.Next() {
		var (
			key   string
			score float64
		)
		if err := rows.Scan(&key, &score); err != nil {
			return nil, fmt.Errorf("scan precomputed recommendation: %w", err)
		}
		ref, parseErr := recommend.ParseContentRef(key)
		if parseErr != nil {
			continue
		}
		items = append(items, recommend.ScoredItem{Content: ref, Score: score})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate precomputed recommendations: %w", err)
	}
	return items, nil
}

// ReplacePrecomputed deletes every stored row and inserts rows in one
// transaction. Readers see either the old table or the new one.
func (db *DB) ReplacePrecomputed(ctx context.Context, rows []recommend.PrecomputedRow) (err error) {
	start := time.Now()
	defer func() { observe("replace", tablePrecomputed, start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	if _, err = tx.ExecContext(ctx, `DELETE FROM precomputed_recommendations`); err != nil {
		return fmt.Errorf("clear precomputed recommendations: %w", err)
	}

	if len(rows) > 0 {
		stmt, prepErr := tx.PrepareContext(ctx, `
			INSERT INTO precomputed_recommendations (user_id, content_key, score, computed_at)
			VALUES (?, ?, ?, ?)`)
		if prepErr != nil {
			err = prepErr
			return fmt.Errorf("prepare precomputed insert: %w", err)
		}
		defer closeWithLog(stmt, "precomputed insert statement")

		computedAt := db.now().UTC()
		for i := range rows {
			r := &rows[i]
			if _, err = stmt.ExecContext(ctx, r.UserID, r.Content.String(), r.Score, computedAt); err != nil {
				return fmt.Errorf("insert precomputed row for user %d: %w", r.UserID, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit precomputed recommendations: %w", err)
	}
	return nil
}

// CountPrecomputed returns the number of stored rows.
func (db *DB) CountPrecomputed(ctx context.Context) (n int64, err error) {
	start := time.Now()
	defer func() { observe("count", tablePrecomputed, start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM precomputed_recommendations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count precomputed recommendations: %w", err)
	}
	return n, nil
}

var (
	_ recommend.PrecomputedSource = (*DB)(nil)
	_ recommend.ContentCatalog    = (*DB)(nil)
	_ recommend.HistorySource     = (*DB)(nil)
)
