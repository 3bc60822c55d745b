// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package training

import (
	"math"
	"math/rand"

	"github.com/tomtom215/contentrank/internal/recommend"
)

const (
	initScale       = 0.1
	bnEpsilon       = 1e-5
	bnMomentum      = 0.1
	maxGradNorm     = 5.0
	minSampleWeight = 0.2
	maxSampleWeight = 3.0
)

// model holds the trainable parameters of the hybrid bilinear model.
type model struct {
	dim, contentDim int

	user [][]float64 // [users][dim]
	item [][]float64 // [items][dim]
	tag  [][]float64 // [tags][contentDim]

	// Batch normalisation of user embeddings.
	gamma, beta        []float64
	runMean, runVar    []float64
	runningInitialised bool
}

func newModel(ds *dataset, p Params, rng *rand.Rand) *model {
	m := &model{
		dim:        p.EmbeddingDim,
		contentDim: p.ContentEmbeddingDim,
		user:       randomMatrix(ds.numUsers(), p.EmbeddingDim, rng),
		item:       randomMatrix(ds.numItems(), p.EmbeddingDim, rng),
		tag:        randomMatrix(ds.tagCount, p.ContentEmbeddingDim, rng),
		gamma:      make([]float64, p.EmbeddingDim),
		beta:       make([]float64, p.EmbeddingDim),
		runMean:    make([]float64, p.EmbeddingDim),
		runVar:     make([]float64, p.EmbeddingDim),
	}
	for f := range m.gamma {
		m.gamma[f] = 1
		m.runVar[f] = 1
	}
	return m
}

//nolint:gosec // G404: math/rand is acceptable for ML initialization
func randomMatrix(rows, cols int, rng *rand.Rand) [][]float64 {
	out := make([][]float64, rows)
	for r := range out {
		out[r] = make([]float64, cols)
		for c := range out[r] {
			out[r][c] = (rng.Float64()*2 - 1) * initScale
		}
	}
	return out
}

// contentVector is the mean of the item's tag vectors, or zero for an
// untagged item.
func (m *model) contentVector(tags []int, dst []float64) []float64 {
	for f := range dst {
		dst[f] = 0
	}
	if len(tags) == 0 {
		return dst
	}
	for _, t := range tags {
		for f, v := range m.tag[t] {
			dst[f] += v
		}
	}
	inv := 1.0 / float64(len(tags))
	for f := range dst {
		dst[f] *= inv
	}
	return dst
}

// batchStats holds the per-dimension statistics of one mini-batch.
type batchStats struct {
	mean, invStd []float64
}

// computeBatchStats measures the user embeddings of the sampled triples and
// folds them into the running statistics.
func (m *model) computeBatchStats(batch []triple) batchStats {
	n := float64(len(batch))
	mean := make([]float64, m.dim)
	variance := make([]float64, m.dim)

	for _, tr := range batch {
		for f, v := range m.user[tr.user] {
			mean[f] += v
		}
	}
	for f := range mean {
		mean[f] /= n
	}
	for _, tr := range batch {
		for f, v := range m.user[tr.user] {
			d := v - mean[f]
			variance[f] += d * d
		}
	}
	for f := range variance {
		variance[f] /= n
	}

	if !m.runningInitialised {
		copy(m.runMean, mean)
		copy(m.runVar, variance)
		m.runningInitialised = true
	} else {
		for f := range mean {
			m.runMean[f] = (1-bnMomentum)*m.runMean[f] + bnMomentum*mean[f]
			m.runVar[f] = (1-bnMomentum)*m.runVar[f] + bnMomentum*variance[f]
		}
	}

	invStd := make([]float64, m.dim)
	for f := range invStd {
		invStd[f] = 1.0 / math.Sqrt(variance[f]+bnEpsilon)
	}
	return batchStats{mean: mean, invStd: invStd}
}

// exportUsers folds the running statistics and gamma/beta into plain user
// embeddings for inference.
func (m *model) exportUsers() [][]float64 {
	out := make([][]float64, len(m.user))
	for u, row := range m.user {
		out[u] = make([]float64, m.dim)
		for f, v := range row {
			out[u][f] = m.gamma[f]*(v-m.runMean[f])/math.Sqrt(m.runVar[f]+bnEpsilon) + m.beta[f]
		}
	}
	return out
}

// exportContent materialises the per-item content vectors.
func (m *model) exportContent(itemTags [][]int) [][]float64 {
	out := make([][]float64, len(itemTags))
	for i, tags := range itemTags {
		out[i] = m.contentVector(tags, make([]float64, m.contentDim))
	}
	return out
}

func copyMatrix(src [][]float64) [][]float64 {
	out := make([][]float64, len(src))
	for i, row := range src {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// clampWeight bounds the influence of a single triple.
func clampWeight(w float64) float64 {
	return math.Min(maxSampleWeight, math.Max(minSampleWeight, w))
}

// clipInPlace rescales g so its L2 norm is at most maxGradNorm.
func clipInPlace(g []float64) {
	var sq float64
	for _, v := range g {
		sq += v * v
	}
	if sq <= maxGradNorm*maxGradNorm {
		return
	}
	scale := maxGradNorm / math.Sqrt(sq)
	for i := range g {
		g[i] *= scale
	}
}

// sgdStep applies param -= lr * (grad + decay*param).
func sgdStep(param, grad []float64, lr, decay float64) {
	for f := range param {
		param[f] -= lr * (grad[f] + decay*param[f])
	}
}

// hybridScore mirrors recommend.HybridScore on raw slices.
func hybridScore(user, item, content []float64, contentDim int) float64 {
	return recommend.HybridScore(user, item, content, contentDim)
}
