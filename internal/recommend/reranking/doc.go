// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

// Package reranking implements post-processing of model scores.
//
// Reranking runs after the inference engine has scored every item:
//
//	hybrid scores -> freshness -> sort -> diversity -> top N
//	(relevance)      (recency)            (variety)
//
// # Freshness
//
// Items younger than seven days are boosted by up to 50%, items younger
// than thirty days by up to 20%, both decaying linearly with age:
//
//	age < 7d:  1 + 0.5 * (1 - age/7d)
//	age < 30d: 1 + 0.2 * (1 - age/30d)
//
// # Diversity
//
// A greedy walk penalises each candidate by its highest cosine similarity
// to the item embeddings already selected, so near-duplicates of a chosen
// item sink in the ranking. See Diversity for the exact rule.
//
// The walk stops once k items are selected, so a request costs at most
// O(k * n) similarity computations for n visited candidates.
//
// # Thread Safety
//
// Rerankers are stateless and safe for concurrent use.
package reranking
