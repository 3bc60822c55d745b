// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/contentrank/internal/metrics"
)

// Layer call failures that are not returned by the layer itself.
var (
	ErrLayerTimeout = errors.New("layer call timed out")
	ErrLayerPanic   = errors.New("layer panicked")
)

// errCallerDone wraps the caller's context error when the request context
// was cancelled or expired during a layer call.
var errCallerDone = errors.New("caller stopped waiting")

// layerBreaker is the per-layer circuit breaker.
type layerBreaker = gobreaker.CircuitBreaker[[]ScoredItem]

// newLayerBreaker opens after cfg.MaxRetries consecutive failures, stays open
// for cfg.BreakerTimeout and then admits a single trial call. A caller that
// stops waiting does not count against the layer.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func newLayerBreaker(layer string, cfg Config, logger zerolog.Logger) *layerBreaker {
	threshold := uint32(cfg.MaxRetries) //nolint:gosec // validated positive
	return gobreaker.NewCircuitBreaker[[]ScoredItem](gobreaker.Settings{
		Name:        layer,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, errCallerDone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("layer", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			metrics.RecordBreakerTransition(name, from.String(), to.String())
		},
	})
}

// callLayer runs one layer under timeout with panic recovery. The layer runs
// in its own goroutine so that a layer ignoring its context still cannot
// hold the request past the timeout.
func callLayer(ctx context.Context, layer RecommendationLayer, req *LayerRequest, timeout time.Duration) ([]ScoredItem, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		items []ScoredItem
		err   error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%w: %s: %v", ErrLayerPanic, layer.Name(), r)}
			}
		}()
		items, err := layer.TryRecommend(callCtx, req)
		done <- result{items: items, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", errCallerDone, ctx.Err())
		}
		return res.items, res.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", errCallerDone, ctx.Err())
		}
		return nil, fmt.Errorf("%w after %v", ErrLayerTimeout, timeout)
	}
}

// failureReason maps a layer error to a metrics label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return metrics.FailureOpen
	case errors.Is(err, ErrLayerTimeout), errors.Is(err, context.DeadlineExceeded):
		return metrics.FailureTimeout
	case errors.Is(err, ErrLayerPanic):
		return metrics.FailurePanic
	default:
		return metrics.FailureError
	}
}

func breakerRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
