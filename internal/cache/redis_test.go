// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type cachedItem struct {
	Key   string  `json:"content_key"`
	Score float64 `json:"score"`
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	s := NewRedis[[]cachedItem](client, "contentrank", time.Minute)

	if _, ok, err := s.Get(ctx, "user:1"); ok || err != nil {
		t.Fatalf("Get() before Set = ok %v err %v, want clean miss", ok, err)
	}

	want := []cachedItem{{Key: "blog:1", Score: 0.9}, {Key: "game:4", Score: 0.5}}
	if err := s.Set(ctx, "user:1", want); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if !mr.Exists("contentrank:user:1") {
		t.Fatal("expected prefixed key in redis")
	}

	got, ok, err := s.Get(ctx, "user:1")
	if err != nil || !ok {
		t.Fatalf("Get() = ok %v err %v", ok, err)
	}
	if len(got) != len(want) {
		t.Fatalf("Get() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	s := NewRedis[int](client, "", time.Minute)

	if err := s.Set(ctx, "k", 7); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if ttl := mr.TTL("k"); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, err := s.Get(ctx, "k"); ok || err != nil {
		t.Errorf("Get() after expiry = ok %v err %v, want miss", ok, err)
	}
}

func TestRedisStoreDecodeError(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	s := NewRedis[[]cachedItem](client, "p", time.Minute)

	if err := mr.Set("p:bad", "not json"); err != nil {
		t.Fatalf("mr.Set() error = %v", err)
	}
	if _, ok, err := s.Get(ctx, "bad"); err == nil || ok {
		t.Errorf("Get() = ok %v err %v, want decode error", ok, err)
	}
}

func TestRedisStoreBackendDown(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	s := NewRedis[int](client, "", time.Minute)

	mr.Close()

	if err := s.Set(ctx, "k", 1); err == nil {
		t.Error("Set() with backend down should fail")
	}
	if _, ok, err := s.Get(ctx, "k"); err == nil || ok {
		t.Errorf("Get() with backend down = ok %v err %v, want error", ok, err)
	}
}

func TestNewRedisClient(t *testing.T) {
	mr, _ := setupRedis(t)

	client, err := NewRedisClient(context.Background(), mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("NewRedisClient() error = %v", err)
	}
	_ = client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if _, err := NewRedisClient(ctx, "127.0.0.1:1", "", 0); err == nil {
		t.Error("NewRedisClient() to a closed port should fail")
	}
}
