// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestTTLBasicOperations(t *testing.T) {
	c := NewTTL[string](time.Minute, time.Hour)
	defer c.Close()

	c.Set("key1", "value1")
	value, ok := c.Get("key1")
	if !ok {
		t.Fatal("Expected key1 to exist")
	}
	if value != "value1" {
		t.Errorf("Expected value1, got %q", value)
	}

	if _, ok := c.Get("key2"); ok {
		t.Error("Expected key2 to not exist")
	}
}

func TestTTLExpiration(t *testing.T) {
	c := NewTTL[int](time.Minute, time.Hour)
	defer c.Close()

	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("key1", 1)
	if _, ok := c.Get("key1"); !ok {
		t.Fatal("Expected key1 to exist immediately after set")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("key1"); ok {
		t.Error("Expected key1 to be expired")
	}
	if c.Len() != 0 {
		t.Errorf("Expected expired entry to be removed, Len() = %d", c.Len())
	}
}

func TestTTLSetWithTTL(t *testing.T) {
	c := NewTTL[int](time.Hour, time.Hour)
	defer c.Close()

	now := time.Now()
	c.now = func() time.Time { return now }

	c.SetWithTTL("short", 1, time.Second)
	c.Set("long", 2)

	now = now.Add(time.Minute)
	if _, ok := c.Get("short"); ok {
		t.Error("Expected short-lived entry to be expired")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("Expected default-TTL entry to survive")
	}
}

func TestTTLDeleteAndClear(t *testing.T) {
	c := NewTTL[string](time.Minute, time.Hour)
	defer c.Close()

	c.Set("key1", "a")
	c.Set("key2", "b")
	c.Set("key3", "c")

	c.Delete("key1")
	c.Delete("missing")
	if _, ok := c.Get("key1"); ok {
		t.Error("Expected key1 to be deleted")
	}

	c.Clear()
	for _, key := range []string{"key2", "key3"} {
		if _, ok := c.Get(key); ok {
			t.Errorf("Expected %s to be cleared", key)
		}
	}

	stats := c.GetStats()
	if stats.Evictions != 3 {
		t.Errorf("Evictions = %d, want 3", stats.Evictions)
	}
	if stats.TotalKeys != 0 {
		t.Errorf("TotalKeys = %d, want 0", stats.TotalKeys)
	}
}

func TestTTLCleanup(t *testing.T) {
	c := NewTTL[int](time.Minute, time.Hour)
	defer c.Close()

	now := time.Now()
	c.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	now = now.Add(2 * time.Minute)
	c.Set("fresh", 99)

	c.cleanup()

	if c.Len() != 1 {
		t.Errorf("Len() after cleanup = %d, want 1", c.Len())
	}
	stats := c.GetStats()
	if stats.Evictions != 5 {
		t.Errorf("Evictions = %d, want 5", stats.Evictions)
	}
	if !stats.LastCleanup.Equal(now) {
		t.Errorf("LastCleanup = %v, want %v", stats.LastCleanup, now)
	}
}

func TestTTLHitRate(t *testing.T) {
	c := NewTTL[int](time.Minute, time.Hour)
	defer c.Close()

	if c.HitRate() != 0 {
		t.Errorf("HitRate() on empty cache = %f, want 0", c.HitRate())
	}

	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("a")
	c.Get("b")

	if got := c.HitRate(); got != 75.0 {
		t.Errorf("HitRate() = %f, want 75", got)
	}
}

func TestTTLConcurrentAccess(t *testing.T) {
	c := NewTTL[int](time.Minute, time.Hour)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key%d", n%5)
			for j := 0; j < 100; j++ {
				c.Set(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() != 5 {
		t.Errorf("Len() = %d, want 5", c.Len())
	}
}

func TestTTLCloseIsIdempotent(t *testing.T) {
	c := NewTTL[int](time.Minute, 10*time.Millisecond)
	c.Close()
	c.Close()

	c.Set("still", 1)
	if _, ok := c.Get("still"); !ok {
		t.Error("Expected cache to stay usable after Close")
	}
}

func TestGenerateKey(t *testing.T) {
	type params struct {
		User  int64    `json:"user"`
		Types []string `json:"types"`
		TopN  int      `json:"topn"`
	}

	a := GenerateKey("recommend", params{User: 1, Types: []string{"blog"}, TopN: 12})
	b := GenerateKey("recommend", params{User: 1, Types: []string{"blog"}, TopN: 12})
	c := GenerateKey("recommend", params{User: 2, Types: []string{"blog"}, TopN: 12})

	if a != b {
		t.Errorf("identical params produced different keys: %q vs %q", a, b)
	}
	if a == c {
		t.Error("different params produced the same key")
	}
	// prefix + ":" + 32 hex characters
	if want := len("recommend:") + 32; len(a) != want {
		t.Errorf("key length = %d, want %d (%q)", len(a), want, a)
	}
}
