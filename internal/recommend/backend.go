// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package recommend

import "context"

// ColdStartBackend is the EmbeddingBackend used when the model is disabled.
// Every user is a cold start, so the AI layer always yields to the next one.
type ColdStartBackend struct{}

// Rank always returns an empty list.
func (ColdStartBackend) Rank(context.Context, int64, RankOptions) ([]ScoredItem, error) {
	return []ScoredItem{}, nil
}

var _ EmbeddingBackend = ColdStartBackend{}
