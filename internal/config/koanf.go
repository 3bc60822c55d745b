// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/contentrank/config.yaml",
	"/etc/contentrank/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         "/data/contentrank.duckdb",
			MaxMemory:    "1GB",
			Threads:      0,
			QueryTimeout: 30 * time.Second,
		},
		Artifact: ArtifactConfig{
			Path:              "/data/model.artifact",
			RefreshInterval:   time.Minute,
			RecomputeOnChange: true,
		},
		Training: TrainingConfig{
			Days:                90,
			Epochs:              10,
			EmbeddingDim:        64,
			ContentEmbeddingDim: 16,
			LearningRate:        0.05,
			BatchSize:           256,
			Margin:              1.0,
			DropoutRate:         0.1,
			WeightDecay:         1e-4,
			Seed:                42,
		},
		Recommend: RecommendConfig{
			ModelEnabled:     true,
			MaxRetries:       3,
			BreakerTimeout:   300 * time.Second,
			LayerTimeout:     2 * time.Second,
			CacheTTL:         5 * time.Minute,
			DefaultTopN:      12,
			MaxCandidates:    500,
			DiversityPenalty: 0.15,
		},
		Cache: CacheConfig{
			Backend:   "memory",
			RedisAddr: "",
			RedisDB:   0,
			KeyPrefix: "contentrank",
		},
		Interests: InterestsConfig{
			Path:     "/data/interests",
			InMemory: false,
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8089,
			Timeout:           30 * time.Second,
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load reads configuration from three layers, each overriding the last:
// struct defaults, an optional YAML file and environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// DUCKDB_PATH -> database.path
	// RECOMMEND_CACHE_TTL -> recommend.cache_ttl
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or "" for none.
func findConfigFile() string {
	// Check environment variable first
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	// Database
	"duckdb_path":          "database.path",
	"duckdb_max_memory":    "database.max_memory",
	"duckdb_threads":       "database.threads",
	"duckdb_query_timeout": "database.query_timeout",

	// Artifact
	"artifact_path":             "artifact.path",
	"artifact_refresh_interval": "artifact.refresh_interval",
	"recompute_on_change":       "artifact.recompute_on_change",

	// Training
	"training_days":         "training.days",
	"training_epochs":       "training.epochs",
	"embedding_dim":         "training.embedding_dim",
	"content_embedding_dim": "training.content_embedding_dim",
	"learning_rate":         "training.learning_rate",
	"batch_size":            "training.batch_size",
	"training_margin":       "training.margin",
	"dropout_rate":          "training.dropout_rate",
	"weight_decay":          "training.weight_decay",
	"training_seed":         "training.seed",

	// Recommend
	"model_enabled":           "recommend.model_enabled",
	"max_retries":             "recommend.max_retries",
	"circuit_breaker_timeout": "recommend.breaker_timeout",
	"layer_timeout":           "recommend.layer_timeout",
	"recommend_cache_ttl":     "recommend.cache_ttl",
	"recommend_top_n":         "recommend.default_top_n",
	"max_candidates":          "recommend.max_candidates",
	"diversity_penalty":       "recommend.diversity_penalty",
	"recompute_concurrency":   "recommend.recompute_concurrency",

	// Cache
	"cache_backend":    "cache.backend",
	"redis_addr":       "cache.redis_addr",
	"redis_password":   "cache.redis_password",
	"redis_db":         "cache.redis_db",
	"cache_key_prefix": "cache.key_prefix",

	// Interests
	"interests_path":      "interests.path",
	"interests_in_memory": "interests.in_memory",

	// Server
	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_timeout":        "server.timeout",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf paths.
// Returning "" skips the variable.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
