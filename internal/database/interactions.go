// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/contentrank/internal/logging"
	"github.com/tomtom215/contentrank/internal/recommend"
)

// Interactions returns every event created at or after since, oldest first.
// A zero since reads the whole log. Rows whose metadata column is not valid
// JSON are returned without metadata.
func (db *DB) Interactions(ctx context.Context, since time.Time) (events []recommend.InteractionEvent, err error) {
	start := time.Now()
	defer func() { observe("select", tableInteractions, start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT id, user_id, content_key, action, value, metadata, created_at
		FROM interactions`
	var args []any
	if !since.IsZero() {
		query += ` WHERE created_at >= ?`
		args = append(args, since.UTC())
	}
	query += ` ORDER BY created_at, id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer closeWithLog(rows, "interaction rows")

	for rows.Next() {
		var (
			ev       recommend.InteractionEvent
			action   string
			metadata sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.ContentKey, &action, &ev.Value, &metadata, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		ev.Action = recommend.Action(action)
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &ev.Metadata); err != nil {
				logging.Debug().Int64("interaction_id", ev.ID).Err(err).Msg("Ignoring malformed interaction metadata")
				ev.Metadata = nil
			}
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}

	return events, nil
}

// SeenContent returns the distinct content the user has interacted with.
// Malformed keys are dropped.
func (db *DB) SeenContent(ctx context.Context, userID int64) (refs []recommend.ContentRef, err error) {
	start := time.Now()
	defer func() { observe("select", tableInteractions, start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT content_key
		FROM interactions
		WHERE user_id = ?
		ORDER BY content_key`, userID)
	if err != nil {
		return nil, fmt.Errorf("query seen content: %w", err)
	}
	defer closeWithLog(rows, "seen content rows")

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan seen content: %w", err)
		}
		ref, parseErr := recommend.ParseContentRef(key)
		if parseErr != nil {
			continue
		}
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seen content: %w", err)
	}

	return refs, nil
}

// InsertInteraction appends one event and returns its id. A zero CreatedAt
// is stored as the current time.
func (db *DB) InsertInteraction(ctx context.Context, ev *recommend.InteractionEvent) (id int64, err error) {
	start := time.Now()
	defer func() { observe("insert", tableInteractions, start, err) }()

	if ev.Value < 0 {
		return 0, fmt.Errorf("interaction value must not be negative, got %v", ev.Value)
	}

	var metadata any
	if len(ev.Metadata) > 0 {
		b, marshalErr := json.Marshal(ev.Metadata)
		if marshalErr != nil {
			return 0, fmt.Errorf("marshal interaction metadata: %w", marshalErr)
		}
		metadata = string(b)
	}

	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = db.now()
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	err = db.conn.QueryRowContext(ctx, `
		INSERT INTO interactions (user_id, content_key, action, value, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`,
		ev.UserID, ev.ContentKey, string(ev.Action), ev.Value, metadata, createdAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert interaction: %w", err)
	}
	return id, nil
}
