// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/contentrank/internal/recommend"
	"github.com/tomtom215/contentrank/internal/recommend/storage"
)

// ArtifactBackend is the part of inference.Backend the refresh loop drives.
type ArtifactBackend interface {
	// Refresh reports whether a different artifact was installed.
	Refresh(ctx context.Context) (bool, error)
	Artifact() (*recommend.Artifact, *storage.Metadata)
}

// PrecomputedRecomputer regenerates the precomputed table from an artifact.
type PrecomputedRecomputer interface {
	RunWithArtifact(ctx context.Context, a *recommend.Artifact) (int, error)
}

// ArtifactServiceConfig holds configuration for the artifact refresh service.
type ArtifactServiceConfig struct {
	// Interval between artifact checks.
	// Default: 1m
	Interval time.Duration

	// RecomputeOnChange regenerates the precomputed table after each new
	// artifact. Ignored without a recomputer.
	RecomputeOnChange bool

	// RecomputeTimeout bounds one recompute run.
	// Default: 30m
	RecomputeTimeout time.Duration
}

// ArtifactService polls the model artifact, swaps newer versions into the
// inference backend and refreshes the precomputed table to match.
type ArtifactService struct {
	backend    ArtifactBackend
	recomputer PrecomputedRecomputer
	config     ArtifactServiceConfig
	logger     zerolog.Logger
	name       string
}

// NewArtifactService creates the refresh service. recomputer may be nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewArtifactService(backend ArtifactBackend, recomputer PrecomputedRecomputer, cfg ArtifactServiceConfig, logger zerolog.Logger) *ArtifactService {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.RecomputeTimeout <= 0 {
		cfg.RecomputeTimeout = 30 * time.Minute
	}
	return &ArtifactService{
		backend:    backend,
		recomputer: recomputer,
		config:     cfg,
		logger:     logger.With().Str("service", "artifact-refresh").Logger(),
		name:       "artifact-refresh",
	}
}

// Serve implements suture.Service. It checks once immediately and then on
// every tick. Refresh failures are logged and retried on the next tick; the
// backend keeps serving its previous artifact meanwhile.
func (s *ArtifactService) Serve(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.config.Interval).
		Bool("recompute_on_change", s.config.RecomputeOnChange && s.recomputer != nil).
		Msg("artifact refresh service starting")

	s.check(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("artifact refresh service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

// check runs one refresh cycle.
func (s *ArtifactService) check(ctx context.Context) {
	changed, err := s.backend.Refresh(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn().Err(err).Msg("artifact refresh failed")
		}
		return
	}
	if !changed {
		return
	}

	artifact, meta := s.backend.Artifact()
	event := s.logger.Info()
	if meta != nil {
		event = event.Time("trained_at", meta.TrainedAt).Int("users", meta.Users).Int("items", meta.Items)
	}
	if artifact == nil {
		event.Msg("model artifact removed, serving cold start")
		return
	}
	event.Msg("model artifact loaded")

	if !s.config.RecomputeOnChange || s.recomputer == nil {
		return
	}
	s.recompute(ctx, artifact)
}

func (s *ArtifactService) recompute(ctx context.Context, artifact *recommend.Artifact) {
	recomputeCtx, cancel := context.WithTimeout(ctx, s.config.RecomputeTimeout)
	defer cancel()

	start := time.Now()
	rows, err := s.recomputer.RunWithArtifact(recomputeCtx, artifact)
	if err != nil {
		s.logger.Warn().Err(err).Msg("precomputed recompute failed, keeping previous rows")
		return
	}
	s.logger.Info().
		Int("rows", rows).
		Dur("duration", time.Since(start)).
		Msg("precomputed recommendations refreshed")
}

// String returns the service name for logging.
func (s *ArtifactService) String() string {
	return s.name
}
