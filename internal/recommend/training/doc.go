// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

/*
Package training fits the hybrid embedding model from the interaction log.

Each positive interaction becomes a weighted (user, item) triple. Training
samples triples in proportion to their engagement weight and minimises a
weighted pairwise margin loss against a uniformly drawn negative item:

	loss = clamp(w, 0.2, 3.0) * max(0, margin - (s(u,i) - s(u,j)))
	s(u,i) = 0.7 * dot(u, v_i) + 0.3 * dot(u[:cd], c_i)

where c_i is the mean of the item's tag embeddings. User embeddings pass
through batch normalisation during training; the running statistics are
folded into the exported vectors, so inference only computes dot products.

Training is deterministic for a fixed Params.Seed. A Trainer runs one
training at a time and reports ErrTrainingInProgress otherwise.

Usage:

	trainer, err := training.NewTrainer(training.DefaultParams(), logger)
	if err != nil {
	    return err
	}
	artifact, stats, err := trainer.TrainFromSource(ctx, db, db)
	if err != nil {
	    return err
	}
	if artifact == nil {
	    logger.Warn().Str("reason", stats.Reason).Msg("no model trained")
	}
*/
package training
