// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package reranking

import (
	"math"
	"time"
)

// Freshness windows and their maximum boosts.
const (
	FreshWindow  = 7 * 24 * time.Hour
	RecentWindow = 30 * 24 * time.Hour
	FreshBoost   = 0.5
	RecentBoost  = 0.2
)

// FreshnessMultiplier returns the score multiplier for an item created at
// createdAt. The boost decays linearly to zero across each window. Items
// from the future count as brand new; a zero createdAt gets no boost.
func FreshnessMultiplier(createdAt, now time.Time) float64 {
	if createdAt.IsZero() {
		return 1
	}
	age := now.Sub(createdAt)
	if age < 0 {
		age = 0
	}
	switch {
	case age < FreshWindow:
		return 1 + FreshBoost*(1-float64(age)/float64(FreshWindow))
	case age < RecentWindow:
		return 1 + RecentBoost*(1-float64(age)/float64(RecentWindow))
	default:
		return 1
	}
}

// Boost applies multiplier m to score s. The boost is added as |s|*(m-1) so
// that a fresher item always moves up, including when s is negative.
func Boost(s, m float64) float64 {
	return s + math.Abs(s)*(m-1)
}

// ApplyFreshness boosts every candidate's score in place. createdAt returns
// the creation time of an item row.
func ApplyFreshness(cands []Candidate, createdAt func(index int) time.Time, now time.Time) {
	for i := range cands {
		cands[i].Score = Boost(cands[i].Score, FreshnessMultiplier(createdAt(cands[i].Index), now))
	}
}
