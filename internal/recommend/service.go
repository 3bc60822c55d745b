// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/contentrank/internal/cache"
	"github.com/tomtom215/contentrank/internal/metrics"
)

// ErrNoLayers is returned when a Service would have no layer to try.
var ErrNoLayers = errors.New("no recommendation layers configured")

// Dependencies are the collaborators of the default layer chain. Any of them
// may be nil: a nil Backend means the model is disabled, and a nil
// Precomputed or Catalog removes the layers that need it.
type Dependencies struct {
	Backend     EmbeddingBackend
	Precomputed PrecomputedSource
	Interests   InterestSource
	Catalog     ContentCatalog
	History     HistorySource
	Cache       cache.Store[[]ScoredItem]
}

// Service is the fallback orchestrator and the only entry point callers use.
// It is safe for concurrent use.
type Service struct {
	cfg      Config
	layers   []RecommendationLayer
	breakers map[string]*layerBreaker
	health   *healthTracker
	history  HistorySource
	cache    cache.Store[[]ScoredItem]
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService builds the standard chain: ai, precomputed, content_based,
// popularity, emergency.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewService(cfg Config, deps Dependencies, logger zerolog.Logger) (*Service, error) {
	layers := []RecommendationLayer{NewAILayer(deps.Backend)}
	if deps.Precomputed != nil {
		layers = append(layers, NewPrecomputedLayer(deps.Precomputed))
	}
	if deps.Catalog != nil {
		layers = append(layers,
			NewContentBasedLayer(deps.Interests, deps.Catalog),
			NewPopularityLayer(deps.Catalog),
			NewEmergencyLayer(deps.Catalog),
		)
	}
	return NewServiceWithLayers(cfg, layers, deps.History, deps.Cache, logger)
}

// NewServiceWithLayers builds a Service over an explicit layer list, tried in
// order. history and store may be nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewServiceWithLayers(cfg Config, layers []RecommendationLayer, history HistorySource, store cache.Store[[]ScoredItem], logger zerolog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if len(layers) == 0 {
		return nil, ErrNoLayers
	}
	if store == nil || cfg.CacheTTL == 0 {
		store = cache.Nop[[]ScoredItem]{}
	}

	logger = logger.With().Str("component", "recommend").Logger()
	breakers := make(map[string]*layerBreaker, len(layers))
	names := make([]string, 0, len(layers))
	for _, l := range layers {
		if l == nil {
			return nil, fmt.Errorf("nil recommendation layer at position %d", len(names))
		}
		name := l.Name()
		if _, dup := breakers[name]; dup {
			return nil, fmt.Errorf("duplicate recommendation layer %q", name)
		}
		breakers[name] = newLayerBreaker(name, cfg, logger)
		names = append(names, name)
	}

	return &Service{
		cfg:      cfg,
		layers:   layers,
		breakers: breakers,
		health:   newHealthTracker(names),
		history:  history,
		cache:    store,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// requestOptions are the per-call knobs of GetRecommendations.
type requestOptions struct {
	topN             int
	excludeSeen      bool
	diversityPenalty float64
	freshnessBoost   bool
}

// Option customises a GetRecommendations call.
type Option func(*requestOptions)

// WithTopN sets the list length. Non-positive values keep the default.
func WithTopN(n int) Option {
	return func(o *requestOptions) {
		if n > 0 {
			o.topN = n
		}
	}
}

// WithExcludeSeen prefers items the user has not interacted with (default true).
func WithExcludeSeen(exclude bool) Option {
	return func(o *requestOptions) { o.excludeSeen = exclude }
}

// WithDiversityPenalty sets the diversity penalty (default 0.15). Negative or
// non-finite values disable diversity.
func WithDiversityPenalty(p float64) Option {
	return func(o *requestOptions) {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			p = 0
		}
		o.diversityPenalty = p
	}
}

// WithFreshnessBoost toggles the freshness multiplier (default true).
func WithFreshnessBoost(boost bool) Option {
	return func(o *requestOptions) { o.freshnessBoost = boost }
}

// cacheParams is the shape hashed into the result cache key.
type cacheParams struct {
	User        int64         `json:"user"`
	Types       []CatalogType `json:"types"`
	TopN        int           `json:"topn"`
	ExcludeSeen bool          `json:"exclude_seen"`
	Penalty     float64       `json:"penalty"`
	Freshness   bool          `json:"freshness"`
}

// GetRecommendations returns up to topN items for userID from the first layer
// that yields a non-empty list. It never panics and never returns an error:
// an empty slice means nothing is available right now.
//
// contentTypes names the allowed catalogs; unknown names are dropped and an
// empty list allows every catalog. If every given name is unknown the result
// is empty.
func (s *Service) GetRecommendations(ctx context.Context, userID int64, contentTypes []string, opts ...Option) (items []ScoredItem) {
	start := time.Now()
	served := ""
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Int64("user_id", userID).
				Interface("panic", r).
				Msg("recommendation request panicked")
			items, served = []ScoredItem{}, ""
		}
		metrics.RecordRecommendation(served, time.Since(start), len(items))
	}()

	o := requestOptions{
		topN:             s.cfg.DefaultTopN,
		excludeSeen:      true,
		diversityPenalty: DefaultDiversityPenalty,
		freshnessBoost:   true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.topN > s.cfg.MaxCandidates {
		o.topN = s.cfg.MaxCandidates
	}

	types := ParseCatalogTypes(contentTypes)
	if len(contentTypes) > 0 && len(types) == 0 {
		s.logger.Debug().Strs("content_types", contentTypes).Msg("no known content types requested")
		return []ScoredItem{}
	}

	key := cache.GenerateKey("recommend", cacheParams{
		User:        userID,
		Types:       types,
		TopN:        o.topN,
		ExcludeSeen: o.excludeSeen,
		Penalty:     o.diversityPenalty,
		Freshness:   o.freshnessBoost,
	})
	if cached, ok := s.cacheGet(ctx, key); ok {
		served = "cache"
		return cached
	}

	var seen map[ContentRef]struct{}
	if o.excludeSeen {
		seen = s.seenContent(ctx, userID)
	}

	req := &LayerRequest{
		UserID:           userID,
		ContentTypes:     types,
		TopN:             o.topN,
		Candidates:       min(o.topN+len(seen), s.cfg.MaxCandidates),
		ExcludeSeen:      o.excludeSeen,
		DiversityPenalty: o.diversityPenalty,
		FreshnessBoost:   o.freshnessBoost,
	}

	allFailed := true
	for _, layer := range s.layers {
		if layer.Kind() == KindEmergency && !allFailed {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		out, ok := s.tryLayer(ctx, layer, req)
		if !ok {
			continue
		}
		allFailed = false

		if final := finalize(out, req, seen); len(final) > 0 {
			served = layer.Name()
			s.cacheSet(ctx, key, final)
			return final
		}
	}

	if allFailed {
		s.logger.Error().Int64("user_id", userID).Msg("every recommendation layer failed")
	}
	return []ScoredItem{}
}

// tryLayer invokes one layer through its breaker and records the outcome.
// ok is false when the layer failed or was skipped.
func (s *Service) tryLayer(ctx context.Context, layer RecommendationLayer, req *LayerRequest) (items []ScoredItem, ok bool) {
	name := layer.Name()
	start := time.Now()

	items, err := s.breakers[name].Execute(func() ([]ScoredItem, error) {
		return callLayer(ctx, layer, req, s.cfg.LayerTimeout)
	})
	metrics.RecordLayerCall(name, time.Since(start))

	switch {
	case err == nil:
		s.health.success(name, s.now())
		return items, true
	case errors.Is(err, errCallerDone):
		return nil, false
	case breakerRejected(err):
		s.health.rejected(name, s.now(), err)
		metrics.RecordLayerFailure(name, metrics.FailureOpen)
		s.logger.Debug().Str("layer", name).Msg("layer skipped, circuit breaker open")
		return nil, false
	default:
		s.health.failure(name, s.now(), err)
		metrics.RecordLayerFailure(name, failureReason(err))
		s.logger.Warn().Err(err).Str("layer", name).Int64("user_id", req.UserID).Msg("recommendation layer failed")
		return nil, false
	}
}

// seenContent loads the user's history. Failures degrade to an empty history.
func (s *Service) seenContent(ctx context.Context, userID int64) map[ContentRef]struct{} {
	if s.history == nil {
		return nil
	}
	refs, err := s.history.SeenContent(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("history lookup failed, not excluding seen items")
		return nil
	}
	seen := make(map[ContentRef]struct{}, len(refs))
	for _, ref := range refs {
		seen[ref] = struct{}{}
	}
	return seen
}

func (s *Service) cacheGet(ctx context.Context, key string) ([]ScoredItem, bool) {
	items, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.RecordCacheLookup("error")
		s.logger.Debug().Err(err).Msg("result cache read failed")
		return nil, false
	case !ok || len(items) == 0:
		metrics.RecordCacheLookup("miss")
		return nil, false
	default:
		metrics.RecordCacheLookup("hit")
		return append([]ScoredItem(nil), items...), true
	}
}

func (s *Service) cacheSet(ctx context.Context, key string, items []ScoredItem) {
	if err := s.cache.Set(ctx, key, append([]ScoredItem(nil), items...)); err != nil {
		s.logger.Debug().Err(err).Msg("result cache write failed")
	}
}

// GetHealth returns a snapshot of per-layer health and the layers whose
// circuit breaker is not closed, in chain order.
func (s *Service) GetHealth() Health {
	open := make([]string, 0)
	for _, layer := range s.layers {
		if s.breakers[layer.Name()].State() != gobreaker.StateClosed {
			open = append(open, layer.Name())
		}
	}
	return Health{
		Services:        s.health.snapshot(),
		CircuitBreakers: open,
	}
}

// Layers returns the layer names in chain order.
func (s *Service) Layers() []string {
	names := make([]string, len(s.layers))
	for i, l := range s.layers {
		names[i] = l.Name()
	}
	return names
}

// finalize applies the allow-list and de-duplication to a layer's output,
// then picks TopN items. With ExcludeSeen, unseen items are taken first and
// seen ones only backfill a short list. The pick is ordered by descending
// score, keeping layer order among equal scores.
func finalize(items []ScoredItem, req *LayerRequest, seen map[ContentRef]struct{}) []ScoredItem {
	valid := filterAllowed(items, req.ContentTypes)
	if len(valid) == 0 {
		return nil
	}

	var picked []ScoredItem
	if req.ExcludeSeen && len(seen) > 0 {
		picked = make([]ScoredItem, 0, req.TopN)
		var backfill []ScoredItem
		for _, it := range valid {
			if _, ok := seen[it.Content]; ok {
				backfill = append(backfill, it)
				continue
			}
			if len(picked) < req.TopN {
				picked = append(picked, it)
			}
		}
		for _, it := range backfill {
			if len(picked) >= req.TopN {
				break
			}
			picked = append(picked, it)
		}
	} else {
		picked = truncate(valid, req.TopN)
	}

	sort.SliceStable(picked, func(i, j int) bool { return picked[i].Score > picked[j].Score })
	return picked
}
