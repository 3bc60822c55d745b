// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package config

import "time"

// Config is the complete application configuration.
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Artifact  ArtifactConfig  `koanf:"artifact"`
	Training  TrainingConfig  `koanf:"training"`
	Recommend RecommendConfig `koanf:"recommend"`
	Cache     CacheConfig     `koanf:"cache"`
	Interests InterestsConfig `koanf:"interests"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the DuckDB file. ":memory:" opens a throwaway database.
	// Default: /data/contentrank.duckdb
	Path string `koanf:"path" validate:"required"`

	// MaxMemory is passed to DuckDB's max_memory setting.
	// Default: 1GB
	MaxMemory string `koanf:"max_memory"`

	// Threads is DuckDB's worker thread count. Zero lets DuckDB decide.
	Threads int `koanf:"threads" validate:"gte=0,lte=256"`

	// QueryTimeout applies to queries issued without a deadline.
	// Default: 30s
	QueryTimeout time.Duration `koanf:"query_timeout"`
}

// ArtifactConfig locates the trained model artifact.
type ArtifactConfig struct {
	// Path of the artifact file written by training.
	// Default: /data/model.artifact
	Path string `koanf:"path" validate:"required"`

	// RefreshInterval is how often the server checks the artifact for a
	// newer version.
	// Default: 1m
	RefreshInterval time.Duration `koanf:"refresh_interval"`

	// RecomputeOnChange regenerates the precomputed table whenever a new
	// artifact is picked up.
	// Default: true
	RecomputeOnChange bool `koanf:"recompute_on_change"`
}

// TrainingConfig holds the trainer's hyperparameters.
type TrainingConfig struct {
	// Days is the interaction lookback window. Zero reads the whole log.
	// Default: 90
	Days int `koanf:"days" validate:"gte=0"`

	// Default: 10
	Epochs int `koanf:"epochs" validate:"gte=1,lte=1000"`

	// Default: 64
	EmbeddingDim int `koanf:"embedding_dim" validate:"gte=2,lte=1024"`

	// Default: 16
	ContentEmbeddingDim int `koanf:"content_embedding_dim" validate:"gte=1"`

	// Default: 0.05
	LearningRate float64 `koanf:"learning_rate" validate:"gt=0,lte=1"`

	// Default: 256
	BatchSize int `koanf:"batch_size" validate:"gte=1"`

	// Default: 1.0
	Margin float64 `koanf:"margin" validate:"gt=0"`

	// Default: 0.1
	DropoutRate float64 `koanf:"dropout_rate" validate:"gte=0,lt=1"`

	// Default: 1e-4
	WeightDecay float64 `koanf:"weight_decay" validate:"gte=0"`

	// Seed makes training reproducible. Zero uses the trainer default.
	Seed int64 `koanf:"seed"`
}

// RecommendConfig configures the fallback orchestrator.
type RecommendConfig struct {
	// ModelEnabled selects the trained model for the AI layer. When false
	// the AI layer treats every user as a cold start.
	// Default: true
	ModelEnabled bool `koanf:"model_enabled"`

	// MaxRetries is the consecutive failure count that opens a breaker.
	// Default: 3
	MaxRetries int `koanf:"max_retries" validate:"gte=1,lte=100"`

	// BreakerTimeout is how long an open breaker rejects calls.
	// Default: 300s
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`

	// LayerTimeout bounds a single layer call.
	// Default: 2s
	LayerTimeout time.Duration `koanf:"layer_timeout"`

	// CacheTTL is how long final lists are cached. Zero disables caching.
	// Default: 5m
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// Default: 12
	DefaultTopN int `koanf:"default_top_n" validate:"gte=1,lte=1000"`

	// Default: 500
	MaxCandidates int `koanf:"max_candidates" validate:"gte=1"`

	// DiversityPenalty is the default penalty for requests that do not set
	// one, and the penalty used by the batch recompute.
	// Default: 0.15
	DiversityPenalty float64 `koanf:"diversity_penalty" validate:"gte=0,lte=1"`

	// RecomputeConcurrency bounds the users scored in parallel during a
	// recompute. Zero uses GOMAXPROCS.
	RecomputeConcurrency int `koanf:"recompute_concurrency" validate:"gte=0"`
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	// Backend is "memory" or "redis".
	// Default: memory
	Backend string `koanf:"backend" validate:"oneof=memory redis"`

	// RedisAddr is host:port, required for the redis backend.
	RedisAddr string `koanf:"redis_addr"`

	// RedisPassword is optional.
	RedisPassword string `koanf:"redis_password"`

	// Default: 0
	RedisDB int `koanf:"redis_db" validate:"gte=0,lte=15"`

	// KeyPrefix namespaces every cache key as "<prefix>:<key>".
	// Default: contentrank
	KeyPrefix string `koanf:"key_prefix"`
}

// InterestsConfig locates the user interest store.
type InterestsConfig struct {
	// Path is the Badger directory.
	// Default: /data/interests
	Path string `koanf:"path"`

	// InMemory keeps interests in memory only. Used in tests and demos.
	InMemory bool `koanf:"in_memory"`
}

// ServerConfig holds the health and metrics HTTP server settings.
type ServerConfig struct {
	// Default: 0.0.0.0
	Host string `koanf:"host"`

	// Default: 8089
	Port int `koanf:"port" validate:"gte=1,lte=65535"`

	// Timeout bounds each request.
	// Default: 30s
	Timeout time.Duration `koanf:"timeout"`

	// RateLimitRequests per client within RateLimitWindow. Zero disables
	// rate limiting.
	// Default: 100
	RateLimitRequests int `koanf:"rate_limit_requests" validate:"gte=0"`

	// Default: 1m
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}
