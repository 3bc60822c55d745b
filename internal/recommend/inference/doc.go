// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

/*
Package inference turns a trained artifact into ranked recommendations.

Engine.ScoreAndRank computes the hybrid score of one user against every
item, drops items outside the content-type allow-list, applies the optional
freshness multiplier, sorts (ties go to the lower item index) and finally
runs the diversity walk. It never returns an error. When the full pipeline
fails it retries with raw scores only, and when that fails too it returns an
empty list. Both degradations are counted in
contentrank_inference_degraded_total.

Backend adapts an Engine and an artifact store to recommend.EmbeddingBackend
so the model can serve as the first fallback layer:

	store, _ := storage.NewStore(cfg.Artifact.Path)
	backend := inference.NewBackend(store, inference.NewEngine(logger), logger)
	svc, _ := recommend.NewService(cfg.Recommend, recommend.Dependencies{
	    Backend: backend,
	    Catalog: db,
	}, logger)

The backend reloads the artifact whenever the file's modification time
changes. Concurrent requests that notice a change share one load. A missing
artifact is a cold start; an unreadable one is reported as
ErrArtifactUnavailable unless an earlier artifact is still loaded, in which
case that artifact keeps serving.
*/
package inference
