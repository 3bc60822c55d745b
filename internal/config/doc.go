// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

/*
Package config loads and validates the Contentrank configuration.

# Configuration Sources

Load merges three layers with koanf, later layers winning:

 1. Struct defaults (defaultConfig)
 2. A YAML file: $CONFIG_PATH, then config.yaml, config.yml,
    /etc/contentrank/config.yaml
 3. Environment variables listed in envMappings

# Configuration Structure

  - DatabaseConfig: DuckDB file, memory limit, threads
  - ArtifactConfig: model artifact path and refresh polling
  - TrainingConfig: trainer hyperparameters
  - RecommendConfig: breakers, timeouts, result cache TTL, list sizes
  - CacheConfig: memory or Redis result cache
  - InterestsConfig: Badger interest store
  - ServerConfig: health and metrics HTTP server
  - LoggingConfig: zerolog level and format

# Environment Variables

Database:
  - DUCKDB_PATH, DUCKDB_MAX_MEMORY, DUCKDB_THREADS, DUCKDB_QUERY_TIMEOUT

Artifact:
  - ARTIFACT_PATH, ARTIFACT_REFRESH_INTERVAL, RECOMPUTE_ON_CHANGE

Training:
  - TRAINING_DAYS, TRAINING_EPOCHS, EMBEDDING_DIM, CONTENT_EMBEDDING_DIM
  - LEARNING_RATE, BATCH_SIZE, TRAINING_MARGIN, DROPOUT_RATE, WEIGHT_DECAY
  - TRAINING_SEED

Recommend:
  - MODEL_ENABLED, MAX_RETRIES, CIRCUIT_BREAKER_TIMEOUT, LAYER_TIMEOUT
  - RECOMMEND_CACHE_TTL, RECOMMEND_TOP_N, MAX_CANDIDATES
  - DIVERSITY_PENALTY, RECOMPUTE_CONCURRENCY

Cache:
  - CACHE_BACKEND (memory|redis), REDIS_ADDR, REDIS_PASSWORD, REDIS_DB
  - CACHE_KEY_PREFIX

Interests:
  - INTERESTS_PATH, INTERESTS_IN_MEMORY

Server:
  - HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT, RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

Durations accept Go syntax ("30s", "5m").

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal().Err(err).Msg("Failed to load configuration")
	}
*/
package config
