// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package recommend

import (
	"context"
	"time"
)

// ScoredItem is one ranked recommendation. It encodes to JSON as
// {"content_key": "<catalog>:<id>", "score": ...}.
type ScoredItem struct {
	Content ContentRef `json:"content_key"`
	Score   float64    `json:"score"`
}

// RankOptions controls one inference call.
type RankOptions struct {
	TopN int
	// ContentTypes is an allow-list; empty allows every catalog.
	ContentTypes     []CatalogType
	DiversityPenalty float64
	FreshnessBoost   bool
}

// UserInterests holds explicit tags per catalog.
type UserInterests map[CatalogType][]string

// Empty reports whether no catalog has any tag.
func (ui UserInterests) Empty() bool {
	for _, tags := range ui {
		if len(tags) > 0 {
			return false
		}
	}
	return true
}

// CatalogItem is a catalog row as seen by the fallback layers.
type CatalogItem struct {
	Ref       ContentRef
	CreatedAt time.Time
	// Engagement is likes + bookmarks + plays.
	Engagement int64
}

// PrecomputedRow is one row of the precomputed recommendation table.
type PrecomputedRow struct {
	UserID  int64
	Content ContentRef
	Score   float64
}

// LayerRequest is what every fallback layer receives. Layers must not
// modify it.
type LayerRequest struct {
	UserID       int64
	ContentTypes []CatalogType
	TopN         int
	// Candidates is how many items a layer should aim to return. It is at
	// least TopN and grows with the user's history when ExcludeSeen is set,
	// so that filtering seen items still leaves a full list.
	Candidates       int
	ExcludeSeen      bool
	DiversityPenalty float64
	FreshnessBoost   bool
}

// Types returns the effective allow-list: ContentTypes, or every catalog
// when it is empty.
func (r *LayerRequest) Types() []CatalogType {
	if len(r.ContentTypes) == 0 {
		return AllCatalogTypes
	}
	return r.ContentTypes
}

// EmbeddingBackend ranks items for a user with a learned model.
//
// Rank returns an empty slice and nil for users the model does not know.
// An error means the backend itself is unusable (for example a corrupt
// artifact) and is treated as a failure of the AI layer.
type EmbeddingBackend interface {
	Rank(ctx context.Context, userID int64, opts RankOptions) ([]ScoredItem, error)
}

// PrecomputedSource reads batch-computed recommendations.
type PrecomputedSource interface {
	PrecomputedFor(ctx context.Context, userID int64, limit int) ([]ScoredItem, error)
}

// InterestSource reads a user's explicit interests.
type InterestSource interface {
	InterestsFor(ctx context.Context, userID int64) (UserInterests, error)
}

// ContentCatalog queries candidate items from the content catalogs.
type ContentCatalog interface {
	// ItemsByTags returns items carrying any of tags, best match first.
	ItemsByTags(ctx context.Context, catalog CatalogType, tags []string, limit int) ([]CatalogItem, error)
	// RecentItems returns the newest items.
	RecentItems(ctx context.Context, catalog CatalogType, limit int) ([]CatalogItem, error)
	// PopularItems returns items ordered by engagement, highest first.
	PopularItems(ctx context.Context, catalog CatalogType, limit int) ([]CatalogItem, error)
}

// HistorySource reports what a user has already interacted with.
type HistorySource interface {
	SeenContent(ctx context.Context, userID int64) ([]ContentRef, error)
}
