// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/tomtom215/contentrank/internal/config"
	"github.com/tomtom215/contentrank/internal/logging"
	"github.com/tomtom215/contentrank/internal/recommend/storage"
	"github.com/tomtom215/contentrank/internal/recommend/training"
)

// trainSummary is printed to stdout after a run.
type trainSummary struct {
	Saved    bool              `json:"saved"`
	Path     string            `json:"path,omitempty"`
	Stats    *training.Stats   `json:"stats"`
	Metadata *storage.Metadata `json:"metadata,omitempty"`
}

// runTrain trains one artifact. Insufficient data is not an error: the
// existing artifact stays in place and the reason is reported.
func runTrain(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	params := trainingParams(cfg)

	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.IntVar(&params.Days, "days", params.Days, "interaction window in days (0 = all)")
	fs.IntVar(&params.Epochs, "epochs", params.Epochs, "training epochs")
	fs.IntVar(&params.EmbeddingDim, "dim", params.EmbeddingDim, "user/item embedding dimension")
	fs.IntVar(&params.ContentEmbeddingDim, "content-dim", params.ContentEmbeddingDim, "tag embedding dimension")
	fs.Float64Var(&params.LearningRate, "lr", params.LearningRate, "learning rate")
	fs.IntVar(&params.BatchSize, "batch-size", params.BatchSize, "mini-batch size")
	fs.Int64Var(&params.Seed, "seed", params.Seed, "random seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	trainer, err := training.NewTrainer(params, logging.WithComponent("trainer"))
	if err != nil {
		return err
	}

	a, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer a.closeWithLog()

	artifact, stats, err := trainer.TrainFromSource(ctx, a.db, a.db)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	summary := trainSummary{Stats: stats}
	if artifact == nil {
		logging.Warn().Str("reason", stats.Reason).Msg("No artifact produced, keeping the previous model")
		return writeJSON(stdout, summary)
	}

	meta, err := a.artifacts.Save(ctx, artifact, storage.Metadata{
		Tags:               stats.Tags,
		Triples:            stats.Triples,
		Events:             stats.Events,
		SkippedEvents:      stats.SkippedEvents,
		FinalLoss:          stats.FinalLoss,
		TrainingDurationMS: stats.Duration.Milliseconds(),
	})
	if err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}

	logging.Info().
		Str("path", a.artifacts.Path()).
		Int("users", meta.Users).
		Int("items", meta.Items).
		Float64("final_loss", meta.FinalLoss).
		Msg("Model artifact saved")

	summary.Saved = true
	summary.Path = a.artifacts.Path()
	summary.Metadata = &meta
	return writeJSON(stdout, summary)
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
