// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

/*
Package cache provides the recommendation result cache.

# Overview

Final recommendation lists are cached per request shape for a short TTL to
absorb bursts. Two backends implement Store:

  - Memory: an in-process TTL cache, the default
  - Redis: a shared cache for multi-instance deployments (go-redis v9)

Cache failures never fail a request; callers log them and carry on.

# Usage

	store := cache.NewMemory[[]recommend.ScoredItem](5 * time.Minute)

	key := cache.GenerateKey("recommend", params)
	if items, ok, err := store.Get(ctx, key); err == nil && ok {
	    return items
	}
	_ = store.Set(ctx, key, items)

# Keys

GenerateKey hashes the JSON form of the parameters (goccy/go-json) with
SHA-256 and keeps the first 16 bytes, so keys stay short regardless of how
many content types a request names.

# Thread Safety

TTL uses a sync.RWMutex for entries and a separate mutex for counters. Redis
is safe for concurrent use because the go-redis client is.
*/
package cache
