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
	"time"

	"github.com/tomtom215/contentrank/internal/config"
	"github.com/tomtom215/contentrank/internal/logging"
)

// recomputeSummary is printed to stdout after a run.
type recomputeSummary struct {
	Rows       int   `json:"rows"`
	DurationMS int64 `json:"duration_ms"`
}

// runRecompute rewrites the precomputed table from the stored artifact.
func runRecompute(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("recompute", flag.ContinueOnError)
	topN := fs.Int("topn", cfg.Recommend.DefaultTopN, "rows stored per user")
	concurrency := fs.Int("concurrency", cfg.Recommend.RecomputeConcurrency, "users scored in parallel (0 = GOMAXPROCS)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.Recommend.RecomputeConcurrency = *concurrency

	a, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer a.closeWithLog()

	start := time.Now()
	rows, err := a.recomputer(*topN).Run(ctx)
	if err != nil {
		return fmt.Errorf("recompute: %w", err)
	}

	logging.Info().Int("rows", rows).Dur("duration", time.Since(start)).Msg("Precomputed recommendations rewritten")
	return writeJSON(stdout, recomputeSummary{Rows: rows, DurationMS: time.Since(start).Milliseconds()})
}
