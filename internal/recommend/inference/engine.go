// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package inference

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/contentrank/internal/metrics"
	"github.com/tomtom215/contentrank/internal/recommend"
	"github.com/tomtom215/contentrank/internal/recommend/reranking"
)

var errRankPanic = errors.New("ranking panicked")

// Engine scores every item of an artifact for one user.
type Engine struct {
	logger zerolog.Logger
	now    func() time.Time
}

// NewEngine creates an inference engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{
		logger: logger.With().Str("component", "inference").Logger(),
		now:    time.Now,
	}
}

// ScoreAndRank returns up to opts.TopN items for userID. It never fails:
// an unknown user gets an empty list, and an internal error degrades first
// to the raw top-N without freshness or diversity, then to an empty list.
//
//nolint:gocritic // hugeParam: RankOptions copied once per request
func (e *Engine) ScoreAndRank(a *recommend.Artifact, userID int64, opts recommend.RankOptions) []recommend.ScoredItem {
	if a == nil {
		return []recommend.ScoredItem{}
	}

	items, err := e.rank(a, userID, opts, true)
	if err == nil {
		return items
	}
	e.logger.Warn().Err(err).Int64("user_id", userID).Msg("ranking failed, serving raw scores")
	metrics.RecordInferenceDegraded(metrics.DegradedRaw)

	items, err = e.rank(a, userID, opts, false)
	if err == nil {
		return items
	}
	e.logger.Error().Err(err).Int64("user_id", userID).Msg("raw ranking failed, serving nothing")
	metrics.RecordInferenceDegraded(metrics.DegradedEmpty)
	return []recommend.ScoredItem{}
}

// rank scores the user's row against every allowed item. With full set it
// validates the artifact and applies freshness and diversity.
//
//nolint:gocritic // hugeParam: RankOptions copied once per request
func (e *Engine) rank(a *recommend.Artifact, userID int64, opts recommend.RankOptions, full bool) (out []recommend.ScoredItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", errRankPanic, r)
		}
	}()

	if full {
		if err := a.Validate(); err != nil {
			return nil, err
		}
	}

	u, ok := a.UserIndex(userID)
	if !ok {
		return []recommend.ScoredItem{}, nil
	}

	topN := opts.TopN
	if topN <= 0 {
		topN = recommend.DefaultTopN
	}

	cands := make([]reranking.Candidate, 0, a.NumItems())
	for i, ref := range a.ItemKeys {
		if !recommend.Allowed(ref, opts.ContentTypes) {
			continue
		}
		s := a.Score(u, i)
		if math.IsNaN(s) || math.IsInf(s, 0) {
			continue
		}
		cands = append(cands, reranking.Candidate{Index: i, Score: s})
	}

	if full && opts.FreshnessBoost {
		reranking.ApplyFreshness(cands, func(i int) time.Time { return a.ItemMetadata[i].CreatedAt }, e.now())
	}
	reranking.SortCandidates(cands)

	if full && opts.DiversityPenalty > 0 {
		cands = reranking.NewDiversity(opts.DiversityPenalty).Rerank(cands, a.Item, topN)
	} else if len(cands) > topN {
		cands = cands[:topN]
	}

	out = make([]recommend.ScoredItem, len(cands))
	for k, c := range cands {
		out[k] = recommend.ScoredItem{Content: a.ItemKeys[c.Index], Score: c.Score}
	}
	return out, nil
}
