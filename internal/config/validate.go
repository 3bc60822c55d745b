// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/contentrank/internal/validation"
)

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// Validate checks struct tags first, then the constraints that span fields.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if err := c.validateTraining(); err != nil {
		return err
	}

	if err := c.validateRecommend(); err != nil {
		return err
	}

	if err := c.validateCache(); err != nil {
		return err
	}

	if err := c.validateArtifact(); err != nil {
		return err
	}

	if err := c.validateInterests(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateTraining() error {
	if c.Training.ContentEmbeddingDim > c.Training.EmbeddingDim {
		return fmt.Errorf("training.content_embedding_dim (%d) must not exceed training.embedding_dim (%d)",
			c.Training.ContentEmbeddingDim, c.Training.EmbeddingDim)
	}
	return nil
}

func (c *Config) validateRecommend() error {
	r := c.Recommend
	if r.BreakerTimeout <= 0 {
		return fmt.Errorf("recommend.breaker_timeout must be positive, got %v", r.BreakerTimeout)
	}
	if r.LayerTimeout <= 0 {
		return fmt.Errorf("recommend.layer_timeout must be positive, got %v", r.LayerTimeout)
	}
	if r.CacheTTL < 0 {
		return fmt.Errorf("recommend.cache_ttl must not be negative, got %v", r.CacheTTL)
	}
	if r.MaxCandidates < r.DefaultTopN {
		return fmt.Errorf("recommend.max_candidates (%d) must be at least recommend.default_top_n (%d)",
			r.MaxCandidates, r.DefaultTopN)
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required when cache.backend is redis")
	}
	return nil
}

func (c *Config) validateArtifact() error {
	if c.Artifact.RefreshInterval <= 0 {
		return fmt.Errorf("artifact.refresh_interval must be positive, got %v", c.Artifact.RefreshInterval)
	}
	return nil
}

func (c *Config) validateInterests() error {
	if !c.Interests.InMemory && c.Interests.Path == "" {
		return fmt.Errorf("interests.path is required unless interests.in_memory is set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	level := strings.ToLower(c.Logging.Level)
	if !validLogLevels[level] {
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	format := strings.ToLower(c.Logging.Format)
	if !validLogFormats[format] {
		return fmt.Errorf("logging.format must be json or console; got %q", c.Logging.Format)
	}
	return nil
}
