// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package training

import (
	"math/rand"
	"sort"
)

// maxNegativeResamples bounds how often a negative draw is retried when it
// lands on one of the user's positives. After that the last draw is used.
const maxNegativeResamples = 5

// weightedSampler draws triples with replacement, with probability
// proportional to their raw engagement weight.
type weightedSampler struct {
	triples []triple
	cum     []float64
	total   float64
}

func newWeightedSampler(triples []triple) *weightedSampler {
	s := &weightedSampler{triples: triples, cum: make([]float64, len(triples))}
	for i, tr := range triples {
		s.total += tr.weight
		s.cum[i] = s.total
	}
	return s
}

//nolint:gosec // G404: math/rand is acceptable for sampling
func (s *weightedSampler) sample(rng *rand.Rand, n int, dst []triple) []triple {
	dst = dst[:0]
	for k := 0; k < n; k++ {
		r := rng.Float64() * s.total
		idx := sort.SearchFloat64s(s.cum, r)
		if idx >= len(s.triples) {
			idx = len(s.triples) - 1
		}
		dst = append(dst, s.triples[idx])
	}
	return dst
}

// sampleNegative draws an item uniformly, retrying while it is a positive
// of the user.
//
//nolint:gosec // G404: math/rand is acceptable for sampling
func sampleNegative(rng *rand.Rand, numItems int, positives map[int]struct{}) int {
	j := rng.Intn(numItems)
	for r := 0; r < maxNegativeResamples; r++ {
		if _, isPositive := positives[j]; !isPositive {
			return j
		}
		j = rng.Intn(numItems)
	}
	return j
}
