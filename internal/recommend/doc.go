// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

// Package recommend is the fallback-resilient recommendation core.
//
// # Architecture
//
// Service is the only entry point callers use. It walks an ordered list of
// RecommendationLayer implementations and returns the first non-empty list:
//
//   - ai: the trained hybrid embedding model (EmbeddingBackend)
//   - precomputed: rows written by the batch recompute job
//   - content_based: explicit user interests matched against catalog tags
//   - popularity: likes + bookmarks + plays per catalog
//   - emergency: newest items, only when every layer above failed
//
// Each layer sits behind its own gobreaker circuit breaker and runs under a
// timeout. Failures, timeouts and panics count against the breaker; an empty
// result does not.
//
// # Data Model
//
// InteractionEvent rows are turned into training weights by EngagementWeight.
// Items are addressed by ContentRef, a {catalog, id} pair whose
// "<catalog>:<id>" string form only appears at persistence and wire
// boundaries. A trained model is an Artifact.
//
// # Subpackages
//
//   - training: builds an Artifact from the interaction log
//   - storage: atomic, checksummed artifact files
//   - inference: scoring, freshness and diversity re-ranking
//   - reranking: the diversity and freshness passes
//   - batch: rebuilds the precomputed recommendation table
//
// # Usage
//
//	svc, err := recommend.NewService(recommend.DefaultConfig(), recommend.Dependencies{
//	    Backend:     backend,
//	    Precomputed: db,
//	    Interests:   interestStore,
//	    Catalog:     db,
//	    History:     db,
//	    Cache:       cache.NewMemory[[]recommend.ScoredItem](5 * time.Minute),
//	}, logger)
//
//	items := svc.GetRecommendations(ctx, userID, []string{"blog", "game"},
//	    recommend.WithTopN(12))
//
// # Thread Safety
//
// Service is safe for concurrent use. Breaker state lives in gobreaker, which
// is synchronised; the health map is guarded by a mutex and written only by
// the Service.
package recommend
