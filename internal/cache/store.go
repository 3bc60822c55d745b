// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package cache

import (
	"context"
	"fmt"
	"time"
)

// Backend names accepted by configuration.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Store is a context-aware key/value cache for values of type T.
// Implementations must be safe for concurrent use. A miss is reported as
// (zero, false, nil); errors are reserved for backend failures.
type Store[T any] interface {
	Get(ctx context.Context, key string) (T, bool, error)
	Set(ctx context.Context, key string, value T) error
}

// Memory adapts a TTL cache to the Store interface.
type Memory[T any] struct {
	ttl *TTL[T]
}

// NewMemory creates an in-process store whose entries live for ttl.
func NewMemory[T any](ttl time.Duration) *Memory[T] {
	return &Memory[T]{ttl: NewTTL[T](ttl, DefaultCleanupInterval)}
}

// Get implements Store.
func (m *Memory[T]) Get(ctx context.Context, key string) (T, bool, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, false, err
	}
	v, ok := m.ttl.Get(key)
	return v, ok, nil
}

// Set implements Store.
func (m *Memory[T]) Set(ctx context.Context, key string, value T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.ttl.Set(key, value)
	return nil
}

// Stats exposes the underlying cache counters.
func (m *Memory[T]) Stats() Stats {
	return m.ttl.GetStats()
}

// Close stops the background sweeper.
func (m *Memory[T]) Close() error {
	m.ttl.Close()
	return nil
}

// Nop is a Store that never holds anything.
type Nop[T any] struct{}

// Get implements Store.
func (Nop[T]) Get(context.Context, string) (T, bool, error) {
	var zero T
	return zero, false, nil
}

// Set implements Store.
func (Nop[T]) Set(context.Context, string, T) error { return nil }

// ValidateBackend reports whether name is a supported backend.
func ValidateBackend(name string) error {
	switch name {
	case BackendMemory, BackendRedis:
		return nil
	default:
		return fmt.Errorf("unknown cache backend %q", name)
	}
}

var (
	_ Store[string] = (*Memory[string])(nil)
	_ Store[string] = Nop[string]{}
	_ Store[string] = (*Redis[string])(nil)
)
