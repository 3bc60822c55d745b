// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package interests

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/contentrank/internal/recommend"
)

// Key prefix for BadgerDB storage
const interestsKeyPrefix = "interests:"

// Config selects where interests are stored.
type Config struct {
	// Path is the Badger directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps everything in memory.
	InMemory bool
}

// Store keeps each user's explicit interest tags per catalog in BadgerDB.
// It implements recommend.InterestSource.
type Store struct {
	db *badger.DB
}

// Open opens or creates the Badger database described by cfg.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("interests store path is required")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for interests: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an already opened database.
func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func userKey(userID int64) []byte {
	return []byte(interestsKeyPrefix + strconv.FormatInt(userID, 10))
}

// InterestsFor returns the user's interests. A user without stored interests
// gets an empty map. Catalog names no longer known are dropped.
func (s *Store) InterestsFor(ctx context.Context, userID int64) (recommend.UserInterests, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var stored map[string][]string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get interests: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read interests of user %d: %w", userID, err)
	}

	out := make(recommend.UserInterests, len(stored))
	for name, tags := range stored {
		catalog, err := recommend.ParseCatalogType(name)
		if err != nil {
			continue
		}
		if tags = normalizeTags(tags); len(tags) > 0 {
			out[catalog] = tags
		}
	}
	return out, nil
}

// SetInterests replaces the user's interests. Invalid catalogs and empty
// tags are dropped; an empty result deletes the entry.
func (s *Store) SetInterests(ctx context.Context, userID int64, interests recommend.UserInterests) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := make(map[string][]string, len(interests))
	for catalog, tags := range interests {
		if !catalog.Valid() {
			continue
		}
		if tags = normalizeTags(tags); len(tags) > 0 {
			stored[string(catalog)] = tags
		}
	}
	if len(stored) == 0 {
		return s.Delete(ctx, userID)
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal interests: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(userKey(userID), data); err != nil {
			return fmt.Errorf("set interests of user %d: %w", userID, err)
		}
		return nil
	})
}

// Delete removes the user's interests. Deleting a missing entry is not an
// error.
func (s *Store) Delete(ctx context.Context, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(userKey(userID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete interests of user %d: %w", userID, err)
		}
		return nil
	})
}

// Users returns the ids of every user with stored interests, ascending.
func (s *Store) Users(ctx context.Context) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ids []int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(interestsKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			raw := strings.TrimPrefix(string(it.Item().Key()), interestsKeyPrefix)
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list interest users: %w", err)
	}
	// Keys sort lexically, so "10" precedes "9".
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// normalizeTags trims tags and drops empty and repeated ones, keeping order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

var _ recommend.InterestSource = (*Store)(nil)
