// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/contentrank/internal/recommend"
)

// metadataChunkSize bounds the IN list of one metadata query.
const metadataChunkSize = 500

// Engagement counter names stored in ItemMetadata.EngagementCounts.
const (
	CountLikes     = "likes"
	CountBookmarks = "bookmarks"
	CountPlays     = "plays"
	CountViews     = "views"
)

// ContentItem is one row of the content catalog with its tags.
type ContentItem struct {
	Ref       recommend.ContentRef
	Title     string
	Likes     int64
	Bookmarks int64
	Plays     int64
	Views     int64
	CreatedAt time.Time
	Tags      []string
}

// UpsertContentItem inserts or replaces a catalog item and its tags.
func (db *DB) UpsertContentItem(ctx context.Context, item *ContentItem) (err error) {
	start := time.Now()
	defer func() { observe("upsert", tableItems, start, err) }()

	if !item.Ref.Valid() {
		return fmt.Errorf("%w: %v", recommend.ErrInvalidContentRef, item.Ref)
	}
	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = db.now()
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	catalog := string(item.Ref.Catalog)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO content_items (catalog_type, object_id, title, likes, bookmarks, plays, views, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (catalog_type, object_id) DO UPDATE SET
			title = EXCLUDED.title,
			likes = EXCLUDED.likes,
			bookmarks = EXCLUDED.bookmarks,
			plays = EXCLUDED.plays,
			views = EXCLUDED.views,
			created_at = EXCLUDED.created_at`,
		catalog, item.Ref.ID, item.Title, item.Likes, item.Bookmarks, item.Plays, item.Views, createdAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert content item %s: %w", item.Ref, err)
	}

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM content_tags WHERE catalog_type = ? AND object_id = ?`,
		catalog, item.Ref.ID); err != nil {
		return fmt.Errorf("clear tags of %s: %w", item.Ref, err)
	}
	for _, tag := range distinctTags(item.Tags) {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO content_tags (catalog_type, object_id, tag) VALUES (?, ?, ?)`,
			catalog, item.Ref.ID, tag); err != nil {
			return fmt.Errorf("insert tag %q of %s: %w", tag, item.Ref, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit content item %s: %w", item.Ref, err)
	}
	return nil
}

// ItemsByTags returns items of one catalog carrying any of tags, ordered by
// the number of matching tags, then newest first.
func (db *DB) ItemsByTags(ctx context.Context, catalog recommend.CatalogType, tags []string, limit int) (items []recommend.CatalogItem, err error) {
	tags = distinctTags(tags)
	if len(tags) == 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() { observe("select", tableTags, start, err) }()

	args := make([]any, 0, len(tags)+2)
	args = append(args, string(catalog))
	for _, tag := range tags {
		args = append(args, tag)
	}

	query := fmt.Sprintf(`
		SELECT i.object_id, i.created_at, i.likes + i.bookmarks + i.plays AS engagement
		FROM content_items i
		JOIN content_tags t ON t.catalog_type = i.catalog_type AND t.object_id = i.object_id
		WHERE i.catalog_type = ? AND t.tag IN (%s)
		GROUP BY i.object_id, i.created_at, i.likes, i.bookmarks, i.plays
		ORDER BY COUNT(DISTINCT t.tag) DESC, i.created_at DESC, i.object_id`,
		placeholders(len(tags)))
	query, args = withLimit(query, args, limit)

	return db.queryCatalog(ctx, catalog, query, args...)
}

// RecentItems returns the newest items of one catalog.
func (db *DB) RecentItems(ctx context.Context, catalog recommend.CatalogType, limit int) (items []recommend.CatalogItem, err error) {
	start := time.Now()
	defer func() { observe("select", tableItems, start, err) }()

	query, args := withLimit(`
		SELECT object_id, created_at, likes + bookmarks + plays AS engagement
		FROM content_items
		WHERE catalog_type = ?
		ORDER BY created_at DESC, object_id`,
		[]any{string(catalog)}, limit)

	return db.queryCatalog(ctx, catalog, query, args...)
}

// PopularItems returns items of one catalog ordered by likes + bookmarks +
// plays, highest first.
func (db *DB) PopularItems(ctx context.Context, catalog recommend.CatalogType, limit int) (items []recommend.CatalogItem, err error) {
	start := time.Now()
	defer func() { observe("select", tableItems, start, err) }()

	query, args := withLimit(`
		SELECT object_id, created_at, likes + bookmarks + plays AS engagement
		FROM content_items
		WHERE catalog_type = ?
		ORDER BY engagement DESC, created_at DESC, object_id`,
		[]any{string(catalog)}, limit)

	return db.queryCatalog(ctx, catalog, query, args...)
}

func (db *DB) queryCatalog(ctx context.Context, catalog recommend.CatalogType, query string, args ...any) ([]recommend.CatalogItem, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s items: %w", catalog, err)
	}
	defer closeWithLog(rows, "catalog rows")

	var items []recommend.CatalogItem
	for rows.Next() {
		var (
			id         int64
			createdAt  time.Time
			engagement int64
		)
		if err := rows.Scan(&id, &createdAt, &engagement); err != nil {
			return nil, fmt.Errorf("scan %s item: %w", catalog, err)
		}
		items = append(items, recommend.CatalogItem{
			Ref:        recommend.ContentRef{Catalog: catalog, ID: id},
			CreatedAt:  createdAt,
			Engagement: engagement,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s items: %w", catalog, err)
	}
	return items, nil
}

// ItemMetadata returns tags, engagement counters and creation time for the
// refs found in the catalog. Unknown refs are absent from the result.
func (db *DB) ItemMetadata(ctx context.Context, refs []recommend.ContentRef) (out map[recommend.ContentRef]recommend.ItemMetadata, err error) {
	start := time.Now()
	defer func() { observe("select", tableItems, start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	byCatalog := make(map[recommend.CatalogType][]int64)
	for _, ref := range refs {
		if ref.Valid() {
			byCatalog[ref.Catalog] = append(byCatalog[ref.Catalog], ref.ID)
		}
	}

	out = make(map[recommend.ContentRef]recommend.ItemMetadata, len(refs))
	for catalog, ids := range byCatalog {
		for lo := 0; lo < len(ids); lo += metadataChunkSize {
			chunk := ids[lo:min(lo+metadataChunkSize, len(ids))]
			if err := db.loadItemChunk(ctx, catalog, chunk, out); err != nil {
				return nil, err
			}
			if err := db.loadTagChunk(ctx, catalog, chunk, out); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (db *DB) loadItemChunk(ctx context.Context, catalog recommend.CatalogType, ids []int64, out map[recommend.ContentRef]recommend.ItemMetadata) error {
	args := idArgs(catalog, ids)
	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT object_id, likes, bookmarks, plays, views, created_at
		FROM content_items
		WHERE catalog_type = ? AND object_id IN (%s)`, placeholders(len(ids))), args...)
	if err != nil {
		return fmt.Errorf("query %s metadata: %w", catalog, err)
	}
	defer closeWithLog(rows, "metadata rows")

	for rows.Next() {
		var (
			id                             int64
			likes, bookmarks, plays, views int64
			createdAt                      time.Time
		)
		if err := rows.Scan(&id, &likes, &bookmarks, &plays, &views, &createdAt); err != nil {
			return fmt.Errorf("scan %s metadata: %w", catalog, err)
		}
		ref := recommend.ContentRef{Catalog: catalog, ID: id}
		md := out[ref]
		md.CreatedAt = createdAt
		md.EngagementCounts = map[string]int64{
			CountLikes:     likes,
			CountBookmarks: bookmarks,
			CountPlays:     plays,
			CountViews:     views,
		}
		out[ref] = md
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s metadata: %w", catalog, err)
	}
	return nil
}

func (db *DB) loadTagChunk(ctx context.Context, catalog recommend.CatalogType, ids []int64, out map[recommend.ContentRef]recommend.ItemMetadata) error {
	args := idArgs(catalog, ids)
	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT object_id, tag
		FROM content_tags
		WHERE catalog_type = ? AND object_id IN (%s)
		ORDER BY object_id, tag`, placeholders(len(ids))), args...)
	if err != nil {
		return fmt.Errorf("query %s tags: %w", catalog, err)
	}
	defer closeWithLog(rows, "tag rows")

	for rows.Next() {
		var (
			id  int64
			tag string
		)
		if err := rows.Scan(&id, &tag); err != nil {
			return fmt.Errorf("scan %s tag: %w", catalog, err)
		}
		ref := recommend.ContentRef{Catalog: catalog, ID: id}
		md, ok := out[ref]
		if !ok {
			// Tags without an item row carry no metadata.
			continue
		}
		md.Tags = append(md.Tags, tag)
		out[ref] = md
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s tags: %w", catalog, err)
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func idArgs(catalog recommend.CatalogType, ids []int64) []any {
	args := make([]any, 0, len(ids)+1)
	args = append(args, string(catalog))
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}

// withLimit appends a LIMIT clause when limit is positive.
func withLimit(query string, args []any, limit int) (string, []any) {
	if limit <= 0 {
		return query, args
	}
	return query + ` LIMIT ?`, append(args, limit)
}

// distinctTags trims tags and drops empty and repeated ones, keeping order.
func distinctTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
