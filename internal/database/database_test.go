// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/contentrank/internal/config"
	"github.com/tomtom215/contentrank/internal/recommend"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// setupTestDB creates a new in-memory test database closed on cleanup.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(&config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "256MB",
		Threads:   1,
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	db.now = func() time.Time { return baseTime }
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return db
}

func ref(c recommend.CatalogType, id int64) recommend.ContentRef {
	return recommend.ContentRef{Catalog: c, ID: id}
}

func insertEvent(t *testing.T, db *DB, userID int64, key string, action recommend.Action, at time.Time, meta map[string]any) int64 {
	t.Helper()
	id, err := db.InsertInteraction(context.Background(), &recommend.InteractionEvent{
		UserID:     userID,
		ContentKey: key,
		Action:     action,
		Value:      1.0,
		Metadata:   meta,
		CreatedAt:  at,
	})
	if err != nil {
		t.Fatalf("InsertInteraction(%s) error = %v", key, err)
	}
	return id
}

func upsertItem(t *testing.T, db *DB, item ContentItem) {
	t.Helper()
	if err := db.UpsertContentItem(context.Background(), &item); err != nil {
		t.Fatalf("UpsertContentItem(%s) error = %v", item.Ref, err)
	}
}

func TestNew(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if db.Path() != ":memory:" {
		t.Errorf("Path() = %q, want :memory:", db.Path())
	}

	for _, table := range []string{tableInteractions, tableItems, tableTags, tablePrecomputed} {
		var n int
		err := db.Conn().QueryRowContext(ctx,
			`SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?`, table).Scan(&n)
		if err != nil {
			t.Fatalf("information_schema query error = %v", err)
		}
		if n != 1 {
			t.Errorf("table %s missing", table)
		}
	}
}

func TestNew_FileDatabaseReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.duckdb")
	cfg := &config.DatabaseConfig{Path: path, MaxMemory: "256MB", Threads: 1}

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	insertEvent(t, db, 1, "blog:1", recommend.ActionView, baseTime, nil)
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	db, err = New(cfg)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer db.Close()

	events, err := db.Interactions(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("Interactions() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events after reopen, want 1", len(events))
	}
}

func TestInteractions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	insertEvent(t, db, 1, "blog:1", recommend.ActionView, baseTime.Add(2*time.Hour),
		map[string]any{recommend.MetaDurationSeconds: 60, recommend.MetaBookmarked: true})
	insertEvent(t, db, 2, "game:7", recommend.ActionPlay, baseTime, nil)
	insertEvent(t, db, 1, "blog:2", recommend.ActionLike, baseTime.Add(time.Hour), nil)

	t.Run("whole log oldest first", func(t *testing.T) {
		events, err := db.Interactions(ctx, time.Time{})
		if err != nil {
			t.Fatalf("Interactions() error = %v", err)
		}
		want := []string{"game:7", "blog:2", "blog:1"}
		if len(events) != len(want) {
			t.Fatalf("got %d events, want %d", len(events), len(want))
		}
		for i, key := range want {
			if events[i].ContentKey != key {
				t.Errorf("events[%d] = %s, want %s", i, events[i].ContentKey, key)
			}
		}
		last := events[2]
		if last.Action != recommend.ActionView || last.UserID != 1 || last.Value != 1.0 {
			t.Errorf("unexpected event %+v", last)
		}
		if !last.CreatedAt.Equal(baseTime.Add(2 * time.Hour)) {
			t.Errorf("CreatedAt = %v, want %v", last.CreatedAt, baseTime.Add(2*time.Hour))
		}
		if d, ok := last.Metadata[recommend.MetaDurationSeconds].(float64); !ok || d != 60 {
			t.Errorf("duration metadata = %#v, want 60", last.Metadata[recommend.MetaDurationSeconds])
		}
		if events[0].Metadata != nil {
			t.Errorf("event without metadata decoded to %#v", events[0].Metadata)
		}
		// Metadata survives the round trip with its weighting effect.
		if w := recommend.EngagementWeight(last); w <= 1.0 {
			t.Errorf("EngagementWeight = %v, want the duration and bookmark bonuses", w)
		}
	})

	t.Run("since filter", func(t *testing.T) {
		events, err := db.Interactions(ctx, baseTime.Add(time.Hour))
		if err != nil {
			t.Fatalf("Interactions() error = %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("got %d events, want 2", len(events))
		}
	})
}

func TestInteractions_MalformedMetadata(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.Conn().ExecContext(ctx, `
		INSERT INTO interactions (user_id, content_key, action, value, metadata, created_at)
		VALUES (1, 'blog:1', 'view', 1.0, 'not json', ?)`, baseTime)
	if err != nil {
		t.Fatalf("raw insert error = %v", err)
	}

	events, err := db.Interactions(ctx, time.Time{})
	if err != nil {
		t.Fatalf("Interactions() error = %v", err)
	}
	if len(events) != 1 || events[0].Metadata != nil {
		t.Fatalf("events = %+v, want one event without metadata", events)
	}
}

func TestInsertInteraction(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := insertEvent(t, db, 1, "blog:1", recommend.ActionView, time.Time{}, nil)
	second := insertEvent(t, db, 1, "blog:2", recommend.ActionView, time.Time{}, nil)
	if second <= first {
		t.Errorf("ids not increasing: %d then %d", first, second)
	}

	events, err := db.Interactions(ctx, time.Time{})
	if err != nil {
		t.Fatalf("Interactions() error = %v", err)
	}
	if !events[0].CreatedAt.Equal(baseTime) {
		t.Errorf("zero CreatedAt stored as %v, want %v", events[0].CreatedAt, baseTime)
	}

	_, err = db.InsertInteraction(ctx, &recommend.InteractionEvent{
		UserID: 1, ContentKey: "blog:3", Action: recommend.ActionView, Value: -1,
	})
	if err == nil {
		t.Error("negative value should be rejected")
	}
}

func TestSeenContent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	insertEvent(t, db, 1, "blog:1", recommend.ActionView, baseTime, nil)
	insertEvent(t, db, 1, "blog:1", recommend.ActionLike, baseTime, nil)
	insertEvent(t, db, 1, "game:2", recommend.ActionPlay, baseTime, nil)
	insertEvent(t, db, 1, "video:9", recommend.ActionView, baseTime, nil)
	insertEvent(t, db, 2, "blog:5", recommend.ActionView, baseTime, nil)

	refs, err := db.SeenContent(ctx, 1)
	if err != nil {
		t.Fatalf("SeenContent() error = %v", err)
	}
	want := []recommend.ContentRef{ref(recommend.CatalogBlog, 1), ref(recommend.CatalogGame, 2)}
	if len(refs) != len(want) {
		t.Fatalf("SeenContent() = %v, want %v", refs, want)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Errorf("refs[%d] = %v, want %v", i, refs[i], want[i])
		}
	}

	refs, err = db.SeenContent(ctx, 99)
	if err != nil || len(refs) != 0 {
		t.Errorf("unknown user: refs = %v, err = %v", refs, err)
	}
}

func seedCatalog(t *testing.T, db *DB) {
	t.Helper()
	upsertItem(t, db, ContentItem{
		Ref: ref(recommend.CatalogBlog, 1), Title: "Go tips", Likes: 5, Bookmarks: 1, Plays: 0, Views: 40,
		CreatedAt: baseTime.Add(-72 * time.Hour), Tags: []string{"go", "backend"},
	})
	upsertItem(t, db, ContentItem{
		Ref: ref(recommend.CatalogBlog, 2), Title: "Rust", Likes: 20, Bookmarks: 3,
		CreatedAt: baseTime.Add(-48 * time.Hour), Tags: []string{"rust", "backend"},
	})
	upsertItem(t, db, ContentItem{
		Ref: ref(recommend.CatalogBlog, 3), Title: "Go generics", Likes: 1,
		CreatedAt: baseTime.Add(-24 * time.Hour), Tags: []string{"go"},
	})
	upsertItem(t, db, ContentItem{
		Ref: ref(recommend.CatalogGame, 10), Title: "Puzzle", Plays: 100,
		CreatedAt: baseTime.Add(-1 * time.Hour), Tags: []string{"puzzle"},
	})
}

func refsOf(items []recommend.CatalogItem) []recommend.ContentRef {
	out := make([]recommend.ContentRef, len(items))
	for i, it := range items {
		out[i] = it.Ref
	}
	return out
}

func assertRefs(t *testing.T, got, want []recommend.ContentRef) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %v, want %v (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestCatalogQueries(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedCatalog(t, db)

	tests := []struct {
		name string
		run  func() ([]recommend.CatalogItem, error)
		want []recommend.ContentRef
	}{
		{
			name: "tags ranked by match count then recency",
			run: func() ([]recommend.CatalogItem, error) {
				return db.ItemsByTags(ctx, recommend.CatalogBlog, []string{"go", "backend"}, 10)
			},
			want: []recommend.ContentRef{
				ref(recommend.CatalogBlog, 1), // go + backend
				ref(recommend.CatalogBlog, 3), // go, newer
				ref(recommend.CatalogBlog, 2), // backend
			},
		},
		{
			name: "tags limited",
			run: func() ([]recommend.CatalogItem, error) {
				return db.ItemsByTags(ctx, recommend.CatalogBlog, []string{"go"}, 1)
			},
			want: []recommend.ContentRef{ref(recommend.CatalogBlog, 3)},
		},
		{
			name: "tags without match",
			run: func() ([]recommend.CatalogItem, error) {
				return db.ItemsByTags(ctx, recommend.CatalogBlog, []string{"cooking"}, 10)
			},
			want: nil,
		},
		{
			name: "tags scoped to catalog",
			run: func() ([]recommend.CatalogItem, error) {
				return db.ItemsByTags(ctx, recommend.CatalogGame, []string{"go"}, 10)
			},
			want: nil,
		},
		{
			name: "recent",
			run: func() ([]recommend.CatalogItem, error) {
				return db.RecentItems(ctx, recommend.CatalogBlog, 2)
			},
			want: []recommend.ContentRef{ref(recommend.CatalogBlog, 3), ref(recommend.CatalogBlog, 2)},
		},
		{
			name: "popular",
			run: func() ([]recommend.CatalogItem, error) {
				return db.PopularItems(ctx, recommend.CatalogBlog, 10)
			},
			want: []recommend.ContentRef{
				ref(recommend.CatalogBlog, 2),
				ref(recommend.CatalogBlog, 1),
				ref(recommend.CatalogBlog, 3),
			},
		},
		{
			name: "empty catalog",
			run: func() ([]recommend.CatalogItem, error) {
				return db.PopularItems(ctx, recommend.CatalogCommunity, 10)
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := tt.run()
			if err != nil {
				t.Fatalf("query error = %v", err)
			}
			assertRefs(t, refsOf(items), tt.want)
		})
	}

	t.Run("engagement excludes views", func(t *testing.T) {
		items, err := db.PopularItems(ctx, recommend.CatalogBlog, 1)
		if err != nil {
			t.Fatalf("PopularItems() error = %v", err)
		}
		if items[0].Engagement != 23 {
			t.Errorf("Engagement = %d, want 23", items[0].Engagement)
		}
	})
}

func TestUpsertContentItem_ReplacesTags(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedCatalog(t, db)

	upsertItem(t, db, ContentItem{
		Ref: ref(recommend.CatalogBlog, 1), Title: "Go tips v2", Likes: 50,
		CreatedAt: baseTime, Tags: []string{"cooking", " cooking ", ""},
	})

	items, err := db.ItemsByTags(ctx, recommend.CatalogBlog, []string{"go"}, 10)
	if err != nil {
		t.Fatalf("ItemsByTags() error = %v", err)
	}
	assertRefs(t, refsOf(items), []recommend.ContentRef{ref(recommend.CatalogBlog, 3)})

	md, err := db.ItemMetadata(ctx, []recommend.ContentRef{ref(recommend.CatalogBlog, 1)})
	if err != nil {
		t.Fatalf("ItemMetadata() error = %v", err)
	}
	got := md[ref(recommend.CatalogBlog, 1)]
	if len(got.Tags) != 1 || got.Tags[0] != "cooking" {
		t.Errorf("Tags = %v, want [cooking]", got.Tags)
	}
	if got.EngagementCounts[CountLikes] != 50 {
		t.Errorf("likes = %d, want 50", got.EngagementCounts[CountLikes])
	}

	if err := db.UpsertContentItem(ctx, &ContentItem{Ref: recommend.ContentRef{Catalog: "video", ID: 1}}); err == nil {
		t.Error("invalid ref should be rejected")
	}
}

func TestItemMetadata(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedCatalog(t, db)

	refs := []recommend.ContentRef{
		ref(recommend.CatalogBlog, 1),
		ref(recommend.CatalogGame, 10),
		ref(recommend.CatalogBlog, 404),
	}
	md, err := db.ItemMetadata(ctx, refs)
	if err != nil {
		t.Fatalf("ItemMetadata() error = %v", err)
	}
	if len(md) != 2 {
		t.Fatalf("got %d entries, want 2 (unknown refs are absent)", len(md))
	}

	blog := md[ref(recommend.CatalogBlog, 1)]
	if len(blog.Tags) != 2 || blog.Tags[0] != "backend" || blog.Tags[1] != "go" {
		t.Errorf("blog:1 tags = %v, want [backend go]", blog.Tags)
	}
	if blog.EngagementCounts[CountViews] != 40 || blog.EngagementCounts[CountBookmarks] != 1 {
		t.Errorf("blog:1 counts = %v", blog.EngagementCounts)
	}
	if !blog.CreatedAt.Equal(baseTime.Add(-72 * time.Hour)) {
		t.Errorf("blog:1 CreatedAt = %v", blog.CreatedAt)
	}

	if md[ref(recommend.CatalogGame, 10)].EngagementCounts[CountPlays] != 100 {
		t.Errorf("game:10 counts = %v", md[ref(recommend.CatalogGame, 10)].EngagementCounts)
	}

	empty, err := db.ItemMetadata(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty refs: md = %v, err = %v", empty, err)
	}
}

func TestPrecomputed(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	rows := []recommend.PrecomputedRow{
		{UserID: 1, Content: ref(recommend.CatalogBlog, 1), Score: 0.4},
		{UserID: 1, Content: ref(recommend.CatalogGame, 2), Score: 0.9},
		{UserID: 1, Content: ref(recommend.CatalogBlog, 3), Score: 0.6},
		{UserID: 2, Content: ref(recommend.CatalogBlog, 1), Score: 0.1},
	}
	if err := db.ReplacePrecomputed(ctx, rows); err != nil {
		t.Fatalf("ReplacePrecomputed() error = %v", err)
	}

	t.Run("ordered best first", func(t *testing.T) {
		items, err := db.PrecomputedFor(ctx, 1, 0)
		if err != nil {
			t.Fatalf("PrecomputedFor() error = %v", err)
		}
		want := []recommend.ContentRef{
			ref(recommend.CatalogGame, 2),
			ref(recommend.CatalogBlog, 3),
			ref(recommend.CatalogBlog, 1),
		}
		if len(items) != len(want) {
			t.Fatalf("got %d items, want %d", len(items), len(want))
		}
		for i := range want {
			if items[i].Content != want[i] {
				t.Errorf("[%d] = %v, want %v", i, items[i].Content, want[i])
			}
		}
		if items[0].Score != 0.9 {
			t.Errorf("top score = %v, want 0.9", items[0].Score)
		}
	})

	t.Run("limit", func(t *testing.T) {
		items, err := db.PrecomputedFor(ctx, 1, 2)
		if err != nil || len(items) != 2 {
			t.Fatalf("items = %v, err = %v", items, err)
		}
	})

	t.Run("unknown user is empty", func(t *testing.T) {
		items, err := db.PrecomputedFor(ctx, 42, 0)
		if err != nil {
			t.Fatalf("PrecomputedFor() error = %v", err)
		}
		if items == nil || len(items) != 0 {
			t.Errorf("items = %#v, want empty non-nil slice", items)
		}
	})

	t.Run("malformed keys dropped", func(t *testing.T) {
		_, err := db.Conn().ExecContext(ctx, `
			INSERT INTO precomputed_recommendations (user_id, content_key, score, computed_at)
			VALUES (2, 'video:5', 0.99, ?)`, baseTime)
		if err != nil {
			t.Fatalf("raw insert error = %v", err)
		}
		items, err := db.PrecomputedFor(ctx, 2, 0)
		if err != nil {
			t.Fatalf("PrecomputedFor() error = %v", err)
		}
		if len(items) != 1 || items[0].Content != ref(recommend.CatalogBlog, 1) {
			t.Errorf("items = %v, want only blog:1", items)
		}
	})

	t.Run("replace is wholesale", func(t *testing.T) {
		if err := db.ReplacePrecomputed(ctx, rows[:1]); err != nil {
			t.Fatalf("ReplacePrecomputed() error = %v", err)
		}
		n, err := db.CountPrecomputed(ctx)
		if err != nil || n != 1 {
			t.Fatalf("CountPrecomputed() = %d, %v; want 1", n, err)
		}
		if err := db.ReplacePrecomputed(ctx, nil); err != nil {
			t.Fatalf("ReplacePrecomputed(nil) error = %v", err)
		}
		n, err = db.CountPrecomputed(ctx)
		if err != nil || n != 0 {
			t.Fatalf("CountPrecomputed() = %d, %v; want 0", n, err)
		}
	})
}

func TestServiceOverDuckDB(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedCatalog(t, db)

	if err := db.ReplacePrecomputed(ctx, []recommend.PrecomputedRow{
		{UserID: 1, Content: ref(recommend.CatalogGame, 10), Score: 0.8},
		{UserID: 1, Content: ref(recommend.CatalogBlog, 2), Score: 0.7},
	}); err != nil {
		t.Fatalf("ReplacePrecomputed() error = %v", err)
	}

	cfg := recommend.DefaultConfig()
	cfg.CacheTTL = 0
	svc, err := recommend.NewService(cfg, recommend.Dependencies{
		Precomputed: db,
		Catalog:     db,
		History:     db,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	t.Run("precomputed rows served", func(t *testing.T) {
		items := svc.GetRecommendations(ctx, 1, nil, recommend.WithTopN(2))
		if len(items) != 2 || items[0].Content != ref(recommend.CatalogGame, 10) {
			t.Fatalf("items = %v, want precomputed order", items)
		}
	})

	t.Run("cold user falls back to the catalog", func(t *testing.T) {
		items := svc.GetRecommendations(ctx, 2, []string{"blog"}, recommend.WithTopN(3))
		if len(items) != 3 {
			t.Fatalf("got %d items, want 3", len(items))
		}
		for _, it := range items {
			if it.Content.Catalog != recommend.CatalogBlog {
				t.Errorf("type filter leaked %v", it.Content)
			}
			if it.Score != recommend.RecentItemScore {
				t.Errorf("score = %v, want recent item score %v", it.Score, recommend.RecentItemScore)
			}
		}
	})
}
