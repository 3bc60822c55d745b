// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package reranking

import "math"

// maxRerankSize bounds the number of items a single rerank selects.
const maxRerankSize = 10000

// Diversity penalises candidates that resemble already-selected items.
//
// The walk visits candidates in descending score order. Each candidate's
// score is penalised by its strongest positive cosine similarity to the
// items selected so far:
//
//	penalised = score - penalty * max(0, maxcos) * |score|
//
// A candidate whose penalised score falls below half of the weakest
// selected score is set aside, but only while that weakest score is
// positive. When the walk runs out of candidates before k items are
// selected, the set-aside candidates backfill in walk order.
type Diversity struct {
	penalty float64
}

// NewDiversity creates a diversity reranker. Negative penalties are
// treated as zero.
func NewDiversity(penalty float64) *Diversity {
	if penalty < 0 || math.IsNaN(penalty) {
		penalty = 0
	}
	return &Diversity{penalty: penalty}
}

// Name returns the reranker identifier.
func (d *Diversity) Name() string {
	return "diversity"
}

// Penalty returns the configured penalty.
func (d *Diversity) Penalty() float64 { return d.penalty }

// Rerank selects up to k candidates. cands must already be sorted with
// SortCandidates; embeddings[c.Index] is the item vector of c. The result
// carries penalised scores and is sorted by them.
func (d *Diversity) Rerank(cands []Candidate, embeddings [][]float64, k int) []Candidate {
	if len(cands) == 0 || k <= 0 {
		return nil
	}
	k = min(k, maxRerankSize, len(cands))

	if d.penalty == 0 {
		out := make([]Candidate, k)
		copy(out, cands[:k])
		return out
	}

	selected := make([]Candidate, 0, k)
	var setAside []Candidate
	weakest := math.Inf(1)

	for _, c := range cands {
		if len(selected) >= k {
			break
		}

		maxCos := 0.0
		for _, s := range selected {
			if sim := Cosine(embeddings[c.Index], embeddings[s.Index]); sim > maxCos {
				maxCos = sim
			}
		}
		penalised := c.Score - d.penalty*maxCos*math.Abs(c.Score)
		c.Score = penalised

		if len(selected) > 0 && weakest > 0 && penalised < weakest/2 {
			setAside = append(setAside, c)
			continue
		}
		selected = append(selected, c)
		weakest = math.Min(weakest, penalised)
	}

	for _, c := range setAside {
		if len(selected) >= k {
			break
		}
		selected = append(selected, c)
	}

	SortCandidates(selected)
	return selected
}
