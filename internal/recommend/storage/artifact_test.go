// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package storage

import (
	"context"
	"encoding/gob"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/contentrank/internal/recommend"
)

func testArtifact() *recommend.Artifact {
	refs := []recommend.ContentRef{
		{Catalog: recommend.CatalogBlog, ID: 1},
		{Catalog: recommend.CatalogGame, ID: 7},
		{Catalog: recommend.CatalogCommunity, ID: 3},
	}
	return &recommend.Artifact{
		UserMap:  map[int64]int{42: 0, 7: 1},
		ItemMap:  map[recommend.ContentRef]int{refs[0]: 0, refs[1]: 1, refs[2]: 2},
		ItemKeys: refs,
		ItemMetadata: []recommend.ItemMetadata{
			{Tags: []string{"go", "databases"}, EngagementCounts: map[string]int64{"like": 3}, CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
			{},
			{Tags: []string{"rpg"}},
		},
		User:       [][]float64{{0.1, 0.2, 0.3}, {-0.4, 0.5, 0.6}},
		Item:       [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		Content:    [][]float64{{0.5, 0.5}, {0, 0}, {0.25, -1}},
		Dim:        3,
		ContentDim: 2,
		TrainedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "models", "artifact.gob"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	original := testArtifact()

	saved, err := s.Save(ctx, original, Metadata{Triples: 12, FinalLoss: 0.25})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.Checksum == "" || saved.SizeBytes == 0 {
		t.Errorf("Save() metadata missing checksum/size: %+v", saved)
	}
	if saved.Users != 2 || saved.Items != 3 || saved.Dim != 3 || saved.ContentDim != 2 {
		t.Errorf("Save() shape metadata = %+v", saved)
	}

	loaded, meta, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if meta.Triples != 12 || meta.FinalLoss != 0.25 || meta.FormatVersion != FormatVersion {
		t.Errorf("Load() metadata = %+v", meta)
	}
	if !loaded.TrainedAt.Equal(original.TrainedAt) {
		t.Errorf("TrainedAt = %v, want %v", loaded.TrainedAt, original.TrainedAt)
	}

	for id, row := range original.UserMap {
		if got := loaded.UserMap[id]; got != row {
			t.Errorf("UserMap[%d] = %d, want %d", id, got, row)
		}
	}
	for i, ref := range original.ItemKeys {
		if loaded.ItemKeys[i] != ref {
			t.Errorf("ItemKeys[%d] = %v, want %v", i, loaded.ItemKeys[i], ref)
		}
		if loaded.ItemMap[ref] != i {
			t.Errorf("ItemMap[%v] = %d, want %d", ref, loaded.ItemMap[ref], i)
		}
	}

	// Every (user, item) score must survive the round trip exactly.
	for u := 0; u < original.NumUsers(); u++ {
		for i := 0; i < original.NumItems(); i++ {
			if got, want := loaded.Score(u, i), original.Score(u, i); got != want {
				t.Errorf("Score(%d, %d) = %v, want %v", u, i, got, want)
			}
		}
	}

	md := loaded.ItemMetadata[0]
	if len(md.Tags) != 2 || md.EngagementCounts["like"] != 3 || !md.CreatedAt.Equal(original.ItemMetadata[0].CreatedAt) {
		t.Errorf("ItemMetadata[0] = %+v", md)
	}
	if !loaded.ItemMetadata[1].CreatedAt.IsZero() {
		t.Error("zero CreatedAt should stay zero")
	}
}

func TestStoreLoadMissing(t *testing.T) {
	s := newTestStore(t)
	if _, _, err := s.Load(context.Background()); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("Load() error = %v, want ErrArtifactNotFound", err)
	}
	if _, err := s.ModTime(); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("ModTime() error = %v, want ErrArtifactNotFound", err)
	}
	if _, err := s.ReadMetadata(); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("ReadMetadata() error = %v, want ErrArtifactNotFound", err)
	}
}

func TestStoreDetectsCorruption(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.Save(ctx, testArtifact(), Metadata{}); err != nil {
		t.Fatal(err)
	}

	t.Run("checksum mismatch", func(t *testing.T) {
		meta, err := s.ReadMetadata()
		if err != nil {
			t.Fatal(err)
		}
		sf := readStored(t, s.Path())
		sf.Metadata = *meta
		sf.Metadata.Checksum = "deadbeef"
		writeStored(t, s.Path(), sf)

		if _, _, err := s.Load(ctx); !errors.Is(err, ErrChecksumMismatch) {
			t.Errorf("Load() error = %v, want ErrChecksumMismatch", err)
		}
	})

	t.Run("garbage file", func(t *testing.T) {
		if err := os.WriteFile(s.Path(), []byte("not a gob"), 0o600); err != nil {
			t.Fatal(err)
		}
		_, _, err := s.Load(ctx)
		if err == nil || errors.Is(err, ErrArtifactNotFound) {
			t.Errorf("Load() error = %v, want decode error", err)
		}
	})
}

func TestStoreSaveRejectsInvalidArtifact(t *testing.T) {
	s := newTestStore(t)
	a := testArtifact()
	a.Content = a.Content[:1]
	if _, err := s.Save(context.Background(), a, Metadata{}); !errors.Is(err, recommend.ErrInvalidArtifact) {
		t.Errorf("Save() error = %v, want ErrInvalidArtifact", err)
	}
	if _, err := os.Stat(s.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Error("invalid artifact should not be written")
	}
}

func TestStoreReplaceLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		a := testArtifact()
		a.TrainedAt = a.TrainedAt.Add(time.Duration(i) * time.Hour)
		if _, err := s.Save(ctx, a, Metadata{}); err != nil {
			t.Fatalf("Save(%d) error = %v", i, err)
		}
	}

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("directory contains %v, want only the artifact", names)
	}

	meta, err := s.ReadMetadata()
	if err != nil {
		t.Fatal(err)
	}
	want := testArtifact().TrainedAt.Add(2 * time.Hour)
	if !meta.TrainedAt.Equal(want) {
		t.Errorf("TrainedAt = %v, want latest %v", meta.TrainedAt, want)
	}
}

func TestStoreModTime(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Save(context.Background(), testArtifact(), Metadata{}); err != nil {
		t.Fatal(err)
	}
	mt, err := s.ModTime()
	if err != nil {
		t.Fatalf("ModTime() error = %v", err)
	}
	if mt.IsZero() {
		t.Error("ModTime() is zero")
	}
}

func TestNewStoreRequiresPath(t *testing.T) {
	if _, err := NewStore(""); err == nil {
		t.Error("NewStore(\"\") expected error")
	}
}

func readStored(t *testing.T, path string) storedFile {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		t.Fatal(err)
	}
	return sf
}

func writeStored(t *testing.T, path string, sf storedFile) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(sf); err != nil {
		t.Fatal(err)
	}
}
