// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tomtom215/contentrank/internal/cache"
	"github.com/tomtom215/contentrank/internal/config"
	"github.com/tomtom215/contentrank/internal/database"
	"github.com/tomtom215/contentrank/internal/interests"
	"github.com/tomtom215/contentrank/internal/logging"
	"github.com/tomtom215/contentrank/internal/recommend"
	"github.com/tomtom215/contentrank/internal/recommend/batch"
	"github.com/tomtom215/contentrank/internal/recommend/inference"
	"github.com/tomtom215/contentrank/internal/recommend/storage"
	"github.com/tomtom215/contentrank/internal/recommend/training"
)

// app holds the components shared by the subcommands. Fields are nil when
// the subcommand did not ask for them.
type app struct {
	cfg       *config.Config
	db        *database.DB
	interests *interests.Store
	artifacts *storage.Store
	engine    *inference.Engine
	backend   *inference.Backend
	cache     cache.Store[[]recommend.ScoredItem]
	service   *recommend.Service

	closers []io.Closer
}

// openStores opens DuckDB and the artifact store.
func openStores(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db)
	logging.Info().Str("path", db.Path()).Msg("Database initialized")

	artifacts, err := storage.NewStore(cfg.Artifact.Path)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open artifact store: %w", err)
	}
	a.artifacts = artifacts
	a.engine = inference.NewEngine(logging.WithComponent("inference"))
	return a, nil
}

// openApp opens every store and builds the recommendation service.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a, err := openStores(cfg)
	if err != nil {
		return nil, err
	}

	store, err := interests.Open(interests.Config{
		Path:     cfg.Interests.Path,
		InMemory: cfg.Interests.InMemory,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open interests store: %w", err)
	}
	a.interests = store
	a.closers = append(a.closers, store)

	resultCache, err := newResultCache(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.cache = resultCache
	if c, ok := resultCache.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	deps := recommend.Dependencies{
		Precomputed: a.db,
		Interests:   a.interests,
		Catalog:     a.db,
		History:     a.db,
		Cache:       a.cache,
	}
	if cfg.Recommend.ModelEnabled {
		a.backend = inference.NewBackend(a.artifacts, a.engine, logging.WithComponent("model_backend"))
		deps.Backend = a.backend
	} else {
		logging.Info().Msg("Model disabled (MODEL_ENABLED=false), serving without the AI layer")
		deps.Backend = recommend.ColdStartBackend{}
	}

	svc, err := recommend.NewService(recommendConfig(cfg), deps, logging.WithComponent("recommend"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create recommendation service: %w", err)
	}
	a.service = svc
	return a, nil
}

// newResultCache returns the configured cache. A zero TTL disables caching.
func newResultCache(ctx context.Context, cfg *config.Config) (cache.Store[[]recommend.ScoredItem], error) {
	if cfg.Recommend.CacheTTL <= 0 {
		return cache.Nop[[]recommend.ScoredItem]{}, nil
	}
	switch cfg.Cache.Backend {
	case cache.BackendRedis:
		client, err := cache.NewRedisClient(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("connect result cache: %w", err)
		}
		logging.Info().Str("addr", cfg.Cache.RedisAddr).Msg("Using Redis result cache")
		return cache.NewRedis[[]recommend.ScoredItem](client, cfg.Cache.KeyPrefix, cfg.Recommend.CacheTTL), nil
	default:
		return cache.NewMemory[[]recommend.ScoredItem](cfg.Recommend.CacheTTL), nil
	}
}

func (a *app) recomputer(topN int) *batch.Recomputer {
	if topN <= 0 {
		topN = a.cfg.Recommend.DefaultTopN
	}
	return batch.NewRecomputer(a.artifacts, a.db, a.engine, batch.Config{
		TopN:             topN,
		Concurrency:      a.cfg.Recommend.RecomputeConcurrency,
		DiversityPenalty: a.cfg.Recommend.DiversityPenalty,
	}, logging.WithComponent("recompute"))
}

// Close releases the stores in reverse order of opening.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) closeWithLog() {
	if err := a.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing stores")
	}
}

func recommendConfig(cfg *config.Config) recommend.Config {
	return recommend.Config{
		MaxRetries:     cfg.Recommend.MaxRetries,
		BreakerTimeout: cfg.Recommend.BreakerTimeout,
		LayerTimeout:   cfg.Recommend.LayerTimeout,
		CacheTTL:       cfg.Recommend.CacheTTL,
		DefaultTopN:    cfg.Recommend.DefaultTopN,
		MaxCandidates:  cfg.Recommend.MaxCandidates,
	}
}

func trainingParams(cfg *config.Config) training.Params {
	t := cfg.Training
	return training.Params{
		Days:                t.Days,
		Epochs:              t.Epochs,
		EmbeddingDim:        t.EmbeddingDim,
		ContentEmbeddingDim: t.ContentEmbeddingDim,
		LearningRate:        t.LearningRate,
		BatchSize:           t.BatchSize,
		Margin:              t.Margin,
		DropoutRate:         t.DropoutRate,
		WeightDecay:         t.WeightDecay,
		Seed:                t.Seed,
	}
}
