// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package recommend

import (
	"fmt"
	"time"
)

// Defaults for Config and request options.
const (
	DefaultTopN             = 12
	DefaultDiversityPenalty = 0.15
	DefaultMaxRetries       = 3
	DefaultBreakerTimeout   = 300 * time.Second
	DefaultLayerTimeout     = 2 * time.Second
	DefaultCacheTTL         = 5 * time.Minute
	DefaultMaxCandidates    = 500

	MatchedInterestScore = 0.8
	RecentItemScore      = 0.5
	EmergencyScore       = 0.01
)

// Config contains the orchestrator's resilience settings.
type Config struct {
	// MaxRetries is the number of consecutive failures that opens a layer's
	// circuit breaker.
	// Default: 3.
	MaxRetries int `json:"max_retries"`

	// BreakerTimeout is how long an open breaker rejects calls before
	// letting one trial call through.
	// Default: 300s.
	BreakerTimeout time.Duration `json:"breaker_timeout"`

	// LayerTimeout bounds each layer call. A timeout counts as a failure.
	// Default: 2s.
	LayerTimeout time.Duration `json:"layer_timeout"`

	// CacheTTL is how long final lists are cached. Zero disables caching.
	// Default: 5m.
	CacheTTL time.Duration `json:"cache_ttl"`

	// DefaultTopN is used when a request does not set WithTopN.
	DefaultTopN int `json:"default_top_n"`

	// MaxCandidates caps how many items a layer is asked for.
	MaxCandidates int `json:"max_candidates"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     DefaultMaxRetries,
		BreakerTimeout: DefaultBreakerTimeout,
		LayerTimeout:   DefaultLayerTimeout,
		CacheTTL:       DefaultCacheTTL,
		DefaultTopN:    DefaultTopN,
		MaxCandidates:  DefaultMaxCandidates,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be positive, got %d", c.MaxRetries)
	}
	if c.BreakerTimeout <= 0 {
		return fmt.Errorf("breaker_timeout must be positive, got %v", c.BreakerTimeout)
	}
	if c.LayerTimeout <= 0 {
		return fmt.Errorf("layer_timeout must be positive, got %v", c.LayerTimeout)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must be non-negative, got %v", c.CacheTTL)
	}
	if c.DefaultTopN < 1 {
		return fmt.Errorf("default_top_n must be positive, got %d", c.DefaultTopN)
	}
	if c.MaxCandidates < c.DefaultTopN {
		return fmt.Errorf("max_candidates must be >= default_top_n, got %d < %d", c.MaxCandidates, c.DefaultTopN)
	}
	return nil
}
