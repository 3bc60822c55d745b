// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/contentrank/internal/metrics"
	"github.com/tomtom215/contentrank/internal/recommend"
	"github.com/tomtom215/contentrank/internal/recommend/inference"
	"github.com/tomtom215/contentrank/internal/recommend/storage"
)

// ErrNoArtifact is returned when there is no trained model to recompute from.
var ErrNoArtifact = errors.New("no model artifact to recompute from")

// ArtifactLoader reads the current artifact.
type ArtifactLoader interface {
	Load(ctx context.Context) (*recommend.Artifact, *storage.Metadata, error)
}

// PrecomputedWriter replaces the whole precomputed table.
type PrecomputedWriter interface {
	ReplacePrecomputed(ctx context.Context, rows []recommend.PrecomputedRow) error
}

// Config controls a recompute run.
type Config struct {
	// TopN rows are stored per user.
	TopN int
	// Concurrency bounds the number of users scored at once. Zero uses
	// GOMAXPROCS.
	Concurrency int
	// DiversityPenalty is applied while scoring; freshness is not, since the
	// rows outlive the moment they were computed.
	DiversityPenalty float64
}

// Recomputer regenerates the precomputed recommendation table from the
// latest artifact.
type Recomputer struct {
	loader ArtifactLoader
	writer PrecomputedWriter
	engine *inference.Engine
	cfg    Config
	logger zerolog.Logger
}

// NewRecomputer creates a Recomputer.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRecomputer(loader ArtifactLoader, writer PrecomputedWriter, engine *inference.Engine, cfg Config, logger zerolog.Logger) *Recomputer {
	if cfg.TopN <= 0 {
		cfg.TopN = recommend.DefaultTopN
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.GOMAXPROCS(0)
	}
	return &Recomputer{
		loader: loader,
		writer: writer,
		engine: engine,
		cfg:    cfg,
		logger: logger.With().Str("component", "recompute").Logger(),
	}
}

// Run loads the artifact and rewrites the table. It returns the number of
// rows written.
func (r *Recomputer) Run(ctx context.Context) (int, error) {
	a, _, err := r.loader.Load(ctx)
	if errors.Is(err, storage.ErrArtifactNotFound) {
		return 0, ErrNoArtifact
	}
	if err != nil {
		return 0, fmt.Errorf("load artifact: %w", err)
	}
	return r.RunWithArtifact(ctx, a)
}

// RunWithArtifact scores every user of a and replaces the table with the
// result. The table is left untouched when scoring is cancelled.
func (r *Recomputer) RunWithArtifact(ctx context.Context, a *recommend.Artifact) (n int, err error) {
	if a == nil {
		return 0, ErrNoArtifact
	}
	start := time.Now()
	defer func() {
		metrics.RecordRecompute(n, time.Since(start), err)
	}()

	users := make([]int64, a.NumUsers())
	for id, row := range a.UserMap {
		users[row] = id
	}

	perUser := make([][]recommend.PrecomputedRow, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, userID := range users {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items := r.engine.ScoreAndRank(a, userID, recommend.RankOptions{
				TopN:             r.cfg.TopN,
				DiversityPenalty: r.cfg.DiversityPenalty,
			})
			rows := make([]recommend.PrecomputedRow, len(items))
			for k, it := range items {
				rows[k] = recommend.PrecomputedRow{UserID: userID, Content: it.Content, Score: it.Score}
			}
			perUser[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("score users: %w", err)
	}

	var rows []recommend.PrecomputedRow
	for _, ur := range perUser {
		rows = append(rows, ur...)
	}
	if err := r.writer.ReplacePrecomputed(ctx, rows); err != nil {
		return 0, fmt.Errorf("write precomputed rows: %w", err)
	}

	r.logger.Info().
		Int("users", len(users)).
		Int("rows", len(rows)).
		Dur("duration", time.Since(start)).
		Msg("precomputed recommendations replaced")
	return len(rows), nil
}
