// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package inference

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/contentrank/internal/metrics"
	"github.com/tomtom215/contentrank/internal/recommend"
	"github.com/tomtom215/contentrank/internal/recommend/storage"
)

// ErrArtifactUnavailable is returned when the stored artifact cannot be
// read and no earlier artifact is loaded.
var ErrArtifactUnavailable = errors.New("model artifact unavailable")

// ArtifactSource is the part of storage.Store the backend needs.
type ArtifactSource interface {
	Load(ctx context.Context) (*recommend.Artifact, *storage.Metadata, error)
	ModTime() (time.Time, error)
}

// Backend serves the embedding model from the artifact store. It loads the
// artifact on first use and again whenever the file's modification time
// changes. A missing artifact means every user is a cold start.
type Backend struct {
	source ArtifactSource
	engine *Engine
	logger zerolog.Logger
	group  singleflight.Group

	mu       sync.RWMutex
	artifact *recommend.Artifact
	meta     *storage.Metadata
	modTime  time.Time
	// loadErr is the failure for modTime, kept so a corrupt file is not
	// re-read on every request.
	loadErr error
}

// NewBackend creates a backend over source.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBackend(source ArtifactSource, engine *Engine, logger zerolog.Logger) *Backend {
	return &Backend{
		source: source,
		engine: engine,
		logger: logger.With().Str("component", "model_backend").Logger(),
	}
}

// Rank implements recommend.EmbeddingBackend.
//
//nolint:gocritic // hugeParam: RankOptions copied once per request
func (b *Backend) Rank(ctx context.Context, userID int64, opts recommend.RankOptions) ([]recommend.ScoredItem, error) {
	a, err := b.current(ctx)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return []recommend.ScoredItem{}, nil
	}
	return b.engine.ScoreAndRank(a, userID, opts), nil
}

// Refresh checks the artifact file and reloads it when it changed. It
// reports whether a new artifact was installed.
func (b *Backend) Refresh(ctx context.Context) (bool, error) {
	b.mu.RLock()
	before := b.artifact
	b.mu.RUnlock()

	a, err := b.current(ctx)
	if err != nil {
		return false, err
	}
	return a != nil && a != before, nil
}

// Artifact returns the loaded artifact and its metadata, or nil before the
// first successful load.
func (b *Backend) Artifact() (*recommend.Artifact, *storage.Metadata) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.artifact, b.meta
}

func (b *Backend) current(ctx context.Context) (*recommend.Artifact, error) {
	modTime, err := b.source.ModTime()
	if errors.Is(err, storage.ErrArtifactNotFound) {
		b.mu.Lock()
		if b.artifact != nil {
			b.logger.Warn().Msg("artifact removed, serving cold start")
		}
		b.artifact, b.meta, b.modTime, b.loadErr = nil, nil, time.Time{}, nil
		b.mu.Unlock()
		return nil, nil
	}
	if err != nil {
		return b.fallback(err)
	}

	b.mu.RLock()
	fresh := b.modTime.Equal(modTime) && (b.artifact != nil || b.loadErr != nil)
	a, loadErr := b.artifact, b.loadErr
	b.mu.RUnlock()
	if fresh {
		if loadErr != nil {
			return b.fallback(loadErr)
		}
		return a, nil
	}

	_, err, _ = b.group.Do("load", func() (interface{}, error) {
		return nil, b.load(ctx, modTime)
	})
	if err != nil {
		return b.fallback(err)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.artifact, nil
}

// load reads the artifact for modTime. On failure the previous artifact,
// if any, stays installed.
func (b *Backend) load(ctx context.Context, modTime time.Time) error {
	a, meta, err := b.source.Load(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.modTime = modTime
	if errors.Is(err, storage.ErrArtifactNotFound) {
		b.artifact, b.meta, b.loadErr = nil, nil, nil
		return nil
	}
	metrics.RecordArtifactReload(trainedAt(a), err)
	if err != nil {
		b.loadErr = err
		b.logger.Error().Err(err).Time("mod_time", modTime).Msg("failed to load model artifact")
		return err
	}

	b.artifact, b.meta, b.loadErr = a, meta, nil
	b.logger.Info().
		Time("trained_at", a.TrainedAt).
		Int("users", a.NumUsers()).
		Int("items", a.NumItems()).
		Msg("model artifact loaded")
	return nil
}

// fallback serves the previously loaded artifact when there is one.
func (b *Backend) fallback(err error) (*recommend.Artifact, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.artifact != nil {
		return b.artifact, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrArtifactUnavailable, err)
}

func trainedAt(a *recommend.Artifact) time.Time {
	if a == nil {
		return time.Time{}
	}
	return a.TrainedAt
}

var _ recommend.EmbeddingBackend = (*Backend)(nil)
