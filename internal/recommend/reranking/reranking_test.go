// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package reranking

import (
	"math"
	"testing"
	"time"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2}, []float64{1, 2}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-2, 0}, -1},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); !approxEqual(got, tt.want) {
				t.Errorf("Cosine() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortCandidatesTieBreak(t *testing.T) {
	cands := []Candidate{{Index: 5, Score: 1}, {Index: 2, Score: 3}, {Index: 1, Score: 1}, {Index: 0, Score: 3}}
	SortCandidates(cands)
	want := []int{0, 2, 1, 5}
	for i, c := range cands {
		if c.Index != want[i] {
			t.Fatalf("order = %v, want indices %v", cands, want)
		}
	}
}

func TestNewDiversity(t *testing.T) {
	tests := []struct {
		name    string
		penalty float64
		want    float64
	}{
		{"normal", 0.15, 0.15},
		{"zero", 0, 0},
		{"negative clamped", -1, 0},
		{"nan clamped", math.NaN(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewDiversity(tt.penalty).Penalty(); got != tt.want {
				t.Errorf("Penalty() = %v, want %v", got, tt.want)
			}
		})
	}
	if NewDiversity(0.1).Name() != "diversity" {
		t.Error("unexpected Name()")
	}
}

// clusters: items 0-2 point the same way, 3 and 4 are distinct.
var clusterEmbeddings = [][]float64{
	{1, 0, 0},
	{0.99, 0.01, 0},
	{0.98, 0.02, 0},
	{0, 1, 0},
	{0, 0, 1},
}

func clusterCandidates() []Candidate {
	return []Candidate{
		{Index: 0, Score: 1.0},
		{Index: 1, Score: 0.95},
		{Index: 2, Score: 0.9},
		{Index: 3, Score: 0.6},
		{Index: 4, Score: 0.55},
	}
}

func TestDiversityRerank(t *testing.T) {
	tests := []struct {
		name    string
		penalty float64
		k       int
		wantLen int
	}{
		{"no penalty keeps order", 0, 3, 3},
		{"k larger than input", 0.5, 10, 5},
		{"k zero", 0.5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewDiversity(tt.penalty).Rerank(clusterCandidates(), clusterEmbeddings, tt.k)
			if len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}

	t.Run("no penalty returns top k unchanged", func(t *testing.T) {
		got := NewDiversity(0).Rerank(clusterCandidates(), clusterEmbeddings, 3)
		for i, c := range got {
			if c.Index != i {
				t.Errorf("position %d = item %d, want %d", i, c.Index, i)
			}
		}
	})
}

func avgPairwiseCosine(cands []Candidate, emb [][]float64) float64 {
	var sum float64
	var n int
	for i := range cands {
		for j := i + 1; j < len(cands); j++ {
			sum += Cosine(emb[cands[i].Index], emb[cands[j].Index])
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func TestDiversityReducesSimilarity(t *testing.T) {
	plain := NewDiversity(0).Rerank(clusterCandidates(), clusterEmbeddings, 3)
	diverse := NewDiversity(1).Rerank(clusterCandidates(), clusterEmbeddings, 3)

	before := avgPairwiseCosine(plain, clusterEmbeddings)
	after := avgPairwiseCosine(diverse, clusterEmbeddings)
	if after >= before {
		t.Errorf("average pairwise cosine %v not below undiversified %v", after, before)
	}
	if diverse[0].Index != 0 {
		t.Errorf("top item = %d, want 0 (first selection is never penalised)", diverse[0].Index)
	}
}

func TestDiversityBackfillsRejected(t *testing.T) {
	// Three near-identical items: with a full penalty the 2nd and 3rd drop
	// to near zero and are set aside, then return as backfill.
	emb := [][]float64{{1, 0}, {1, 0.001}, {1, 0.002}}
	cands := []Candidate{{Index: 0, Score: 1}, {Index: 1, Score: 0.9}, {Index: 2, Score: 0.8}}

	got := NewDiversity(1).Rerank(cands, emb, 3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 after backfill", len(got))
	}
	if got[0].Index != 0 || !approxEqual(got[0].Score, 1) {
		t.Errorf("first = %+v, want item 0 with score 1", got[0])
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("result not sorted: %+v", got)
		}
	}
}

func TestDiversityNegativeScores(t *testing.T) {
	emb := [][]float64{{1, 0}, {1, 0}, {0, 1}}
	cands := []Candidate{{Index: 0, Score: -0.1}, {Index: 1, Score: -0.2}, {Index: 2, Score: -0.5}}

	// The weakest selected score is never positive, so nothing is set aside.
	got := NewDiversity(0.5).Rerank(cands, emb, 3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Item 1 duplicates item 0 and drops to -0.3, still above item 2.
	want := []int{0, 1, 2}
	for i, c := range got {
		if c.Index != want[i] {
			t.Errorf("position %d = %d, want %d (%+v)", i, c.Index, want[i], got)
		}
	}
}

func TestFreshnessMultiplier(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	tests := []struct {
		name    string
		created time.Time
		want    float64
	}{
		{"zero time", time.Time{}, 1},
		{"brand new", now, 1.5},
		{"future counts as new", now.Add(48 * time.Hour), 1.5},
		{"half week", now.Add(-84 * time.Hour), 1.25},
		{"exactly seven days", now.Add(-7 * day), 1 + 0.2*(1-7.0/30)},
		{"fifteen days", now.Add(-15 * day), 1.1},
		{"thirty days", now.Add(-30 * day), 1},
		{"a year", now.Add(-365 * day), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FreshnessMultiplier(tt.created, now); !approxEqual(got, tt.want) {
				t.Errorf("FreshnessMultiplier() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyFreshness(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	created := []time.Time{now.Add(-400 * 24 * time.Hour), now}
	cands := []Candidate{{Index: 0, Score: 1}, {Index: 1, Score: 0.8}}

	ApplyFreshness(cands, func(i int) time.Time { return created[i] }, now)
	SortCandidates(cands)

	if cands[0].Index != 1 || !approxEqual(cands[0].Score, 1.2) {
		t.Errorf("fresh item should overtake: %+v", cands)
	}
}

func TestApplyFreshnessNegativeScores(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	created := []time.Time{now.Add(-60 * 24 * time.Hour), now.Add(-24 * time.Hour)}
	cands := []Candidate{{Index: 0, Score: -0.7}, {Index: 1, Score: -0.7}}

	ApplyFreshness(cands, func(i int) time.Time { return created[i] }, now)
	SortCandidates(cands)

	if cands[0].Index != 1 {
		t.Errorf("fresh item ranked below old item with the same score: %+v", cands)
	}
	if cands[0].Score <= -0.7 {
		t.Errorf("fresh negative score %v was not raised", cands[0].Score)
	}
	if !approxEqual(cands[1].Score, -0.7) {
		t.Errorf("old score = %v, want unchanged -0.7", cands[1].Score)
	}
}

func TestBoost(t *testing.T) {
	tests := []struct {
		name string
		s, m float64
		want float64
	}{
		{"positive", 1, 1.5, 1.5},
		{"negative moves up", -1, 1.5, -0.5},
		{"zero", 0, 1.5, 0},
		{"no boost", -0.3, 1, -0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Boost(tt.s, tt.m); !approxEqual(got, tt.want) {
				t.Errorf("Boost(%v, %v) = %v, want %v", tt.s, tt.m, got, tt.want)
			}
		})
	}
}
