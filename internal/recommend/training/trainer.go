// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package training

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/contentrank/internal/metrics"
	"github.com/tomtom215/contentrank/internal/recommend"
)

// ErrTrainingInProgress is returned when Train is called while another
// training run on the same Trainer is active.
var ErrTrainingInProgress = errors.New("training already in progress")

// Reasons reported in Stats.Reason when no artifact is produced.
const (
	ReasonNoUsersOrItems = "insufficient data: no users or items after filtering"
	ReasonNoPositives    = "insufficient data: no positive interactions"
)

// InteractionSource reads the interaction log. A zero since means unbounded.
type InteractionSource interface {
	Interactions(ctx context.Context, since time.Time) ([]recommend.InteractionEvent, error)
}

// MetadataSource enriches items with catalog metadata.
type MetadataSource interface {
	ItemMetadata(ctx context.Context, refs []recommend.ContentRef) (map[recommend.ContentRef]recommend.ItemMetadata, error)
}

// Stats describes a training run.
type Stats struct {
	Events         int           `json:"events"`
	SkippedEvents  int           `json:"skipped_events"`
	NegativeEvents int           `json:"negative_events"`
	Users          int           `json:"users"`
	Items          int           `json:"items"`
	Tags           int           `json:"tags"`
	Triples        int           `json:"triples"`
	Epochs         int           `json:"epochs"`
	FinalLoss      float64       `json:"final_loss"`
	Duration       time.Duration `json:"duration"`
	// Reason is set when the run produced no artifact.
	Reason string `json:"reason,omitempty"`
}

// Trainer fits the hybrid embedding model. One Trainer runs at most one
// training at a time.
type Trainer struct {
	params Params
	logger zerolog.Logger
	mu     sync.Mutex
	now    func() time.Time
}

// NewTrainer validates params and creates a Trainer.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewTrainer(params Params, logger zerolog.Logger) (*Trainer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Trainer{
		params: params,
		logger: logger.With().Str("component", "trainer").Logger(),
		now:    time.Now,
	}, nil
}

// Params returns the trainer's hyperparameters.
func (t *Trainer) Params() Params { return t.params }

// TrainFromSource reads events inside the Days window, enriches the items
// with catalog metadata and trains. A metadata failure is logged and
// training continues without tags or timestamps.
func (t *Trainer) TrainFromSource(ctx context.Context, events InteractionSource, meta MetadataSource) (*recommend.Artifact, *Stats, error) {
	if !t.mu.TryLock() {
		return nil, nil, ErrTrainingInProgress
	}
	defer t.mu.Unlock()

	var since time.Time
	if t.params.Days > 0 {
		since = t.now().AddDate(0, 0, -t.params.Days)
	}

	evs, err := events.Interactions(ctx, since)
	if err != nil {
		metrics.RecordTraining(metrics.TrainingResult{Outcome: metrics.TrainingError})
		return nil, nil, fmt.Errorf("read interactions: %w", err)
	}

	var md map[recommend.ContentRef]recommend.ItemMetadata
	if meta != nil {
		md, err = meta.ItemMetadata(ctx, distinctRefs(evs))
		if err != nil {
			t.logger.Warn().Err(err).Msg("item metadata unavailable, training without content features")
			md = nil
		}
	}

	return t.train(ctx, evs, md)
}

// Train fits a model on events. It returns (nil, stats, nil) when the
// events yield no users, items or positive triples.
func (t *Trainer) Train(ctx context.Context, events []recommend.InteractionEvent, meta map[recommend.ContentRef]recommend.ItemMetadata) (*recommend.Artifact, *Stats, error) {
	if !t.mu.TryLock() {
		return nil, nil, ErrTrainingInProgress
	}
	defer t.mu.Unlock()
	return t.train(ctx, events, meta)
}

func (t *Trainer) train(ctx context.Context, events []recommend.InteractionEvent, meta map[recommend.ContentRef]recommend.ItemMetadata) (*recommend.Artifact, *Stats, error) {
	start := time.Now()
	ds := buildDataset(events, meta)
	stats := &Stats{
		Events:         len(events),
		SkippedEvents:  ds.skipped,
		NegativeEvents: ds.negative,
		Users:          ds.numUsers(),
		Items:          ds.numItems(),
		Tags:           ds.tagCount,
		Triples:        len(ds.triples),
	}

	switch {
	case stats.Users == 0 || stats.Items == 0:
		stats.Reason = ReasonNoUsersOrItems
	case stats.Triples == 0:
		stats.Reason = ReasonNoPositives
	}
	if stats.Reason != "" {
		stats.Duration = time.Since(start)
		t.logger.Warn().
			Int("events", stats.Events).
			Int("skipped", stats.SkippedEvents).
			Str("reason", stats.Reason).
			Msg("not enough data to train")
		metrics.RecordTraining(metrics.TrainingResult{Outcome: metrics.TrainingInsufficientData, Duration: stats.Duration})
		return nil, stats, nil
	}

	//nolint:gosec // G404: math/rand is acceptable for ML training
	rng := rand.New(rand.NewSource(t.params.seed()))
	m := newModel(ds, t.params, rng)

	loss, err := t.fit(ctx, ds, m, rng)
	stats.Duration = time.Since(start)
	if err != nil {
		metrics.RecordTraining(metrics.TrainingResult{Outcome: metrics.TrainingError, Duration: stats.Duration})
		return nil, stats, err
	}
	stats.Epochs = t.params.Epochs
	stats.FinalLoss = loss

	artifact := &recommend.Artifact{
		UserMap:      ds.userMap,
		ItemMap:      ds.itemMap,
		ItemKeys:     ds.itemKeys,
		ItemMetadata: ds.metadata,
		User:         m.exportUsers(),
		Item:         copyMatrix(m.item),
		Content:      m.exportContent(ds.itemTags),
		Dim:          m.dim,
		ContentDim:   m.contentDim,
		TrainedAt:    t.now().UTC(),
	}
	if err := artifact.Validate(); err != nil {
		metrics.RecordTraining(metrics.TrainingResult{Outcome: metrics.TrainingError, Duration: stats.Duration})
		return nil, stats, fmt.Errorf("trained artifact failed validation: %w", err)
	}

	metrics.RecordTraining(metrics.TrainingResult{
		Outcome:   metrics.TrainingSuccess,
		Duration:  stats.Duration,
		Users:     stats.Users,
		Items:     stats.Items,
		Triples:   stats.Triples,
		FinalLoss: stats.FinalLoss,
	})
	t.logger.Info().
		Int("users", stats.Users).
		Int("items", stats.Items).
		Int("triples", stats.Triples).
		Int("tags", stats.Tags).
		Float64("final_loss", stats.FinalLoss).
		Dur("duration", stats.Duration).
		Msg("training complete")

	return artifact, stats, nil
}

// workspace holds per-step scratch vectors so the inner loop does not allocate.
type workspace struct {
	xhat, uhat, ud      []float64
	maskU, maskI, maskJ []float64
	vi, vj, ci, cj      []float64
	gUd, gU, gVi, gVj   []float64
	gCi, gCj, gTag      []float64
	gammaGrad, betaGrad []float64
}

func newWorkspace(dim, contentDim int) *workspace {
	vec := func(n int) []float64 { return make([]float64, n) }
	return &workspace{
		xhat: vec(dim), uhat: vec(dim), ud: vec(dim),
		maskU: vec(dim), maskI: vec(dim), maskJ: vec(dim),
		vi: vec(dim), vj: vec(dim), ci: vec(contentDim), cj: vec(contentDim),
		gUd: vec(dim), gU: vec(dim), gVi: vec(dim), gVj: vec(dim),
		gCi: vec(contentDim), gCj: vec(contentDim), gTag: vec(contentDim),
		gammaGrad: vec(dim), betaGrad: vec(dim),
	}
}

// fit runs the epochs and returns the mean loss of the last epoch.
//
//nolint:gocyclo // ML training loops are inherently branchy
func (t *Trainer) fit(ctx context.Context, ds *dataset, m *model, rng *rand.Rand) (float64, error) {
	p := t.params
	sampler := newWeightedSampler(ds.triples)
	batchSize := min(p.BatchSize, len(ds.triples))
	batchesPerEpoch := (len(ds.triples) + batchSize - 1) / batchSize
	keep := 1 - p.DropoutRate
	ws := newWorkspace(m.dim, m.contentDim)
	batch := make([]triple, 0, batchSize)

	var lastLoss float64
	for epoch := 0; epoch < p.Epochs; epoch++ {
		var epochLoss float64
		var samples int

		for b := 0; b < batchesPerEpoch; b++ {
			if err := ctx.Err(); err != nil {
				return 0, fmt.Errorf("training cancelled at epoch %d: %w", epoch, err)
			}

			batch = sampler.sample(rng, batchSize, batch)
			bs := m.computeBatchStats(batch)
			clear(ws.gammaGrad)
			clear(ws.betaGrad)

			for _, tr := range batch {
				j := sampleNegative(rng, ds.numItems(), ds.positives[tr.user])
				if j == tr.item {
					continue
				}
				epochLoss += t.step(m, ds, tr, j, bs, keep, rng, ws)
				samples++
			}

			scale := 1.0 / float64(len(batch))
			for f := range ws.gammaGrad {
				ws.gammaGrad[f] *= scale
				ws.betaGrad[f] *= scale
			}
			clipInPlace(ws.gammaGrad)
			clipInPlace(ws.betaGrad)
			sgdStep(m.gamma, ws.gammaGrad, p.LearningRate, 0)
			sgdStep(m.beta, ws.betaGrad, p.LearningRate, 0)
		}

		if samples > 0 {
			lastLoss = epochLoss / float64(samples)
		}
		if math.IsNaN(lastLoss) || math.IsInf(lastLoss, 0) {
			return 0, fmt.Errorf("training diverged at epoch %d", epoch)
		}
		t.logger.Debug().
			Int("epoch", epoch+1).
			Float64("loss", lastLoss).
			Int("samples", samples).
			Msg("epoch complete")
	}
	return lastLoss, nil
}

// step applies one weighted margin-ranking update for (user, positive,
// negative) and returns its loss. Batch statistics are constants in the
// backward pass.
//
//nolint:gocritic // hugeParam: batchStats is two slice headers
func (t *Trainer) step(m *model, ds *dataset, tr triple, neg int, bs batchStats, keep float64, rng *rand.Rand, ws *workspace) float64 {
	p := t.params
	cd := m.contentDim
	u := m.user[tr.user]
	vPos := m.item[tr.item]
	vNeg := m.item[neg]

	for f, v := range u {
		ws.xhat[f] = (v - bs.mean[f]) * bs.invStd[f]
		ws.uhat[f] = m.gamma[f]*ws.xhat[f] + m.beta[f]
	}
	dropoutMask(rng, ws.maskU, keep)
	dropoutMask(rng, ws.maskI, keep)
	dropoutMask(rng, ws.maskJ, keep)
	for f := range ws.ud {
		ws.ud[f] = ws.uhat[f] * ws.maskU[f]
		ws.vi[f] = vPos[f] * ws.maskI[f]
		ws.vj[f] = vNeg[f] * ws.maskJ[f]
	}
	m.contentVector(ds.itemTags[tr.item], ws.ci)
	m.contentVector(ds.itemTags[neg], ws.cj)

	sPos := hybridScore(ws.ud, ws.vi, ws.ci, cd)
	sNeg := hybridScore(ws.ud, ws.vj, ws.cj, cd)
	wc := clampWeight(tr.weight)
	loss := wc * math.Max(0, p.Margin-(sPos-sNeg))
	if loss == 0 {
		return 0
	}

	const cw, tw = recommend.CollaborativeWeight, recommend.ContentWeight
	for f := range ws.gUd {
		ws.gUd[f] = -wc * cw * (ws.vi[f] - ws.vj[f])
		ws.gVi[f] = -wc * cw * ws.ud[f] * ws.maskI[f]
		ws.gVj[f] = wc * cw * ws.ud[f] * ws.maskJ[f]
	}
	for f := 0; f < cd; f++ {
		ws.gUd[f] += -wc * tw * (ws.ci[f] - ws.cj[f])
		ws.gCi[f] = -wc * tw * ws.ud[f]
		ws.gCj[f] = wc * tw * ws.ud[f]
	}
	for f := range ws.gU {
		gUhat := ws.gUd[f] * ws.maskU[f]
		ws.gammaGrad[f] += gUhat * ws.xhat[f]
		ws.betaGrad[f] += gUhat
		ws.gU[f] = gUhat * m.gamma[f] * bs.invStd[f]
	}

	clipInPlace(ws.gU)
	clipInPlace(ws.gVi)
	clipInPlace(ws.gVj)
	sgdStep(u, ws.gU, p.LearningRate, p.WeightDecay)
	sgdStep(vPos, ws.gVi, p.LearningRate, p.WeightDecay)
	sgdStep(vNeg, ws.gVj, p.LearningRate, p.WeightDecay)

	t.updateTags(m, ds.itemTags[tr.item], ws.gCi, ws.gTag)
	t.updateTags(m, ds.itemTags[neg], ws.gCj, ws.gTag)
	return loss
}

// updateTags spreads a content-vector gradient evenly over the item's tags.
func (t *Trainer) updateTags(m *model, tags []int, grad, scratch []float64) {
	if len(tags) == 0 {
		return
	}
	share := 1.0 / float64(len(tags))
	for f := range scratch {
		scratch[f] = grad[f] * share
	}
	clipInPlace(scratch)
	for _, tag := range tags {
		sgdStep(m.tag[tag], scratch, t.params.LearningRate, t.params.WeightDecay)
	}
}

// dropoutMask fills mask with 0 or 1/keep (inverted dropout).
//
//nolint:gosec // G404: math/rand is acceptable for dropout
func dropoutMask(rng *rand.Rand, mask []float64, keep float64) {
	if keep >= 1 {
		for f := range mask {
			mask[f] = 1
		}
		return
	}
	inv := 1 / keep
	for f := range mask {
		if rng.Float64() < keep {
			mask[f] = inv
		} else {
			mask[f] = 0
		}
	}
}

func distinctRefs(events []recommend.InteractionEvent) []recommend.ContentRef {
	seen := make(map[recommend.ContentRef]struct{})
	var refs []recommend.ContentRef
	for i := range events {
		ref, err := recommend.ParseContentRef(events[i].ContentKey)
		if err != nil {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	return refs
}
