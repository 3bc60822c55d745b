// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Layer names, also used as metric labels and health keys.
const (
	LayerAI           = "ai"
	LayerPrecomputed  = "precomputed"
	LayerContentBased = "content_based"
	LayerPopularity   = "popularity"
	LayerEmergency    = "emergency"
)

// LayerKind tags the variant of a fallback layer.
type LayerKind int

// Layer kinds in their default order.
const (
	KindAI LayerKind = iota
	KindPrecomputed
	KindContentBased
	KindPopularity
	// KindEmergency layers only run when every earlier layer failed.
	KindEmergency
)

// String returns the kind's layer name.
func (k LayerKind) String() string {
	switch k {
	case KindAI:
		return LayerAI
	case KindPrecomputed:
		return LayerPrecomputed
	case KindContentBased:
		return LayerContentBased
	case KindPopularity:
		return LayerPopularity
	case KindEmergency:
		return LayerEmergency
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// RecommendationLayer is one step of the fallback chain. TryRecommend
// returns an empty slice when it has nothing to offer and an error when it
// could not run; only errors count against the layer's circuit breaker.
type RecommendationLayer interface {
	Name() string
	Kind() LayerKind
	TryRecommend(ctx context.Context, req *LayerRequest) ([]ScoredItem, error)
}

// AILayer serves items ranked by the embedding model.
type AILayer struct {
	backend EmbeddingBackend
}

// NewAILayer creates the model layer. A nil backend behaves as ColdStartBackend.
func NewAILayer(backend EmbeddingBackend) *AILayer {
	if backend == nil {
		backend = ColdStartBackend{}
	}
	return &AILayer{backend: backend}
}

// Name implements RecommendationLayer.
func (l *AILayer) Name() string { return LayerAI }

// Kind implements RecommendationLayer.
func (l *AILayer) Kind() LayerKind { return KindAI }

// TryRecommend asks the backend for twice the candidate count so that the
// type filter still leaves enough items.
func (l *AILayer) TryRecommend(ctx context.Context, req *LayerRequest) ([]ScoredItem, error) {
	items, err := l.backend.Rank(ctx, req.UserID, RankOptions{
		TopN:             2 * req.Candidates,
		ContentTypes:     req.ContentTypes,
		DiversityPenalty: req.DiversityPenalty,
		FreshnessBoost:   req.FreshnessBoost,
	})
	if err != nil {
		return nil, fmt.Errorf("model ranking: %w", err)
	}
	return truncate(filterAllowed(items, req.ContentTypes), req.Candidates), nil
}

// PrecomputedLayer serves rows written by the batch recompute job.
type PrecomputedLayer struct {
	source PrecomputedSource
}

// NewPrecomputedLayer creates the precomputed collaborative layer.
func NewPrecomputedLayer(source PrecomputedSource) *PrecomputedLayer {
	return &PrecomputedLayer{source: source}
}

// Name implements RecommendationLayer.
func (l *PrecomputedLayer) Name() string { return LayerPrecomputed }

// Kind implements RecommendationLayer.
func (l *PrecomputedLayer) Kind() LayerKind { return KindPrecomputed }

// TryRecommend reads every stored row for the user; the table is small per
// user and filtering happens before truncation.
func (l *PrecomputedLayer) TryRecommend(ctx context.Context, req *LayerRequest) ([]ScoredItem, error) {
	items, err := l.source.PrecomputedFor(ctx, req.UserID, 0)
	if err != nil {
		return nil, fmt.Errorf("read precomputed rows: %w", err)
	}
	return truncate(filterAllowed(items, req.ContentTypes), req.Candidates), nil
}

// ContentBasedLayer matches explicit interests against catalog tags.
type ContentBasedLayer struct {
	interests InterestSource
	catalog   ContentCatalog
}

// NewContentBasedLayer creates the interest-matching layer. interests may be
// nil, in which case every catalog falls back to recent items.
func NewContentBasedLayer(interests InterestSource, catalog ContentCatalog) *ContentBasedLayer {
	return &ContentBasedLayer{interests: interests, catalog: catalog}
}

// Name implements RecommendationLayer.
func (l *ContentBasedLayer) Name() string { return LayerContentBased }

// Kind implements RecommendationLayer.
func (l *ContentBasedLayer) Kind() LayerKind { return KindContentBased }

// TryRecommend queries each requested catalog: tag matches score 0.8, and a
// catalog without tags or matches contributes its newest items at 0.5. The
// per-catalog lists are interleaved.
func (l *ContentBasedLayer) TryRecommend(ctx context.Context, req *LayerRequest) ([]ScoredItem, error) {
	var interests UserInterests
	if l.interests != nil {
		var err error
		interests, err = l.interests.InterestsFor(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("read interests: %w", err)
		}
	}

	types := req.Types()
	lists := make([][]ScoredItem, 0, len(types))
	for _, t := range types {
		if tags := interests[t]; len(tags) > 0 {
			matched, err := l.catalog.ItemsByTags(ctx, t, tags, req.Candidates)
			if err != nil {
				return nil, fmt.Errorf("match %s tags: %w", t, err)
			}
			if len(matched) > 0 {
				lists = append(lists, scoreConstant(matched, MatchedInterestScore))
				continue
			}
		}
		recent, err := l.catalog.RecentItems(ctx, t, req.Candidates)
		if err != nil {
			return nil, fmt.Errorf("recent %s items: %w", t, err)
		}
		lists = append(lists, scoreConstant(recent, RecentItemScore))
	}
	return truncate(interleave(lists), req.Candidates), nil
}

// PopularityLayer ranks items by likes + bookmarks + plays.
type PopularityLayer struct {
	catalog ContentCatalog
}

// NewPopularityLayer creates the popularity layer.
func NewPopularityLayer(catalog ContentCatalog) *PopularityLayer {
	return &PopularityLayer{catalog: catalog}
}

// Name implements RecommendationLayer.
func (l *PopularityLayer) Name() string { return LayerPopularity }

// Kind implements RecommendationLayer.
func (l *PopularityLayer) Kind() LayerKind { return KindPopularity }

// TryRecommend merges the per-catalog popularity lists by engagement.
func (l *PopularityLayer) TryRecommend(ctx context.Context, req *LayerRequest) ([]ScoredItem, error) {
	var out []ScoredItem
	for _, t := range req.Types() {
		items, err := l.catalog.PopularItems(ctx, t, req.Candidates)
		if err != nil {
			return nil, fmt.Errorf("popular %s items: %w", t, err)
		}
		for _, it := range items {
			out = append(out, ScoredItem{Content: it.Ref, Score: float64(it.Engagement)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return truncate(out, req.Candidates), nil
}

// EmergencyLayer returns the newest items with a minimal score.
type EmergencyLayer struct {
	catalog ContentCatalog
}

// NewEmergencyLayer creates the last-resort layer.
func NewEmergencyLayer(catalog ContentCatalog) *EmergencyLayer {
	return &EmergencyLayer{catalog: catalog}
}

// Name implements RecommendationLayer.
func (l *EmergencyLayer) Name() string { return LayerEmergency }

// Kind implements RecommendationLayer.
func (l *EmergencyLayer) Kind() LayerKind { return KindEmergency }

// TryRecommend merges the newest items of every requested catalog.
func (l *EmergencyLayer) TryRecommend(ctx context.Context, req *LayerRequest) ([]ScoredItem, error) {
	var all []CatalogItem
	for _, t := range req.Types() {
		items, err := l.catalog.RecentItems(ctx, t, req.Candidates)
		if err != nil {
			return nil, fmt.Errorf("recent %s items: %w", t, err)
		}
		all = append(all, items...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return truncate(scoreConstant(all, EmergencyScore), req.Candidates), nil
}

func scoreConstant(items []CatalogItem, score float64) []ScoredItem {
	out := make([]ScoredItem, len(items))
	for i, it := range items {
		out[i] = ScoredItem{Content: it.Ref, Score: score}
	}
	return out
}

// interleave takes one item from each list in turn.
func interleave(lists [][]ScoredItem) []ScoredItem {
	total := 0
	for _, l := range lists {
		total += len(l)
	}
	out := make([]ScoredItem, 0, total)
	for pos := 0; len(out) < total; pos++ {
		for _, l := range lists {
			if pos < len(l) {
				out = append(out, l[pos])
			}
		}
	}
	return out
}

// filterAllowed drops items outside the allow-list, items with non-finite
// scores and duplicates, keeping the first occurrence.
func filterAllowed(items []ScoredItem, types []CatalogType) []ScoredItem {
	out := make([]ScoredItem, 0, len(items))
	seen := make(map[ContentRef]struct{}, len(items))
	for _, it := range items {
		if !Allowed(it.Content, types) || math.IsNaN(it.Score) || math.IsInf(it.Score, 0) {
			continue
		}
		if _, dup := seen[it.Content]; dup {
			continue
		}
		seen[it.Content] = struct{}{}
		out = append(out, it)
	}
	return out
}

func truncate(items []ScoredItem, n int) []ScoredItem {
	if n >= 0 && len(items) > n {
		return items[:n]
	}
	return items
}

var (
	_ RecommendationLayer = (*AILayer)(nil)
	_ RecommendationLayer = (*PrecomputedLayer)(nil)
	_ RecommendationLayer = (*ContentBasedLayer)(nil)
	_ RecommendationLayer = (*PopularityLayer)(nil)
	_ RecommendationLayer = (*EmergencyLayer)(nil)
)
