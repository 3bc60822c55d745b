// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package inference

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/contentrank/internal/recommend"
	"github.com/tomtom215/contentrank/internal/recommend/storage"
	"github.com/tomtom215/contentrank/internal/recommend/training"
)

func newTestBackend(t *testing.T) (*Backend, *storage.Store) {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "artifact.gob"))
	if err != nil {
		t.Fatal(err)
	}
	return NewBackend(store, newTestEngine(), zerolog.Nop()), store
}

func TestBackendMissingArtifactIsColdStart(t *testing.T) {
	b, _ := newTestBackend(t)
	got, err := b.Rank(context.Background(), 1, recommend.RankOptions{TopN: 3})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Rank() = %v, want empty slice", got)
	}
	if a, _ := b.Artifact(); a != nil {
		t.Error("Artifact() should be nil before any artifact exists")
	}
}

func TestBackendLoadsAndReloads(t *testing.T) {
	b, store := newTestBackend(t)
	ctx := context.Background()

	if _, err := store.Save(ctx, fixtureArtifact(), storage.Metadata{}); err != nil {
		t.Fatal(err)
	}
	got, err := b.Rank(ctx, 1, recommend.RankOptions{TopN: 1})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(got) != 1 || got[0].Content != blog1 {
		t.Errorf("Rank() = %v, want [%v]", refs(got), blog1)
	}

	changed, err := b.Refresh(ctx)
	if err != nil || changed {
		t.Errorf("Refresh() = %v, %v; want false, nil for an unchanged file", changed, err)
	}

	// Replace the artifact: user 1 now prefers the game.
	next := fixtureArtifact()
	next.User[0] = []float64{0, 1, 0}
	if _, err := store.Save(ctx, next, storage.Metadata{}); err != nil {
		t.Fatal(err)
	}
	bumpModTime(t, store.Path())

	changed, err = b.Refresh(ctx)
	if err != nil || !changed {
		t.Fatalf("Refresh() = %v, %v; want true, nil after replacement", changed, err)
	}
	got, err = b.Rank(ctx, 1, recommend.RankOptions{TopN: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Content != game3 {
		t.Errorf("Rank() after reload = %v, want [%v]", refs(got), game3)
	}
}

func TestBackendCorruptArtifact(t *testing.T) {
	b, store := newTestBackend(t)
	ctx := context.Background()

	if err := os.WriteFile(store.Path(), []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Rank(ctx, 1, recommend.RankOptions{TopN: 1}); !errors.Is(err, ErrArtifactUnavailable) {
		t.Fatalf("Rank() error = %v, want ErrArtifactUnavailable", err)
	}

	// A good artifact replaces the corrupt one.
	if _, err := store.Save(ctx, fixtureArtifact(), storage.Metadata{}); err != nil {
		t.Fatal(err)
	}
	bumpModTime(t, store.Path())
	if _, err := b.Rank(ctx, 1, recommend.RankOptions{TopN: 1}); err != nil {
		t.Fatalf("Rank() error = %v after repair", err)
	}

	// A later corrupt file keeps the good artifact in service.
	if err := os.WriteFile(store.Path(), []byte("garbage again"), 0o600); err != nil {
		t.Fatal(err)
	}
	bumpModTime(t, store.Path())
	got, err := b.Rank(ctx, 1, recommend.RankOptions{TopN: 1})
	if err != nil {
		t.Fatalf("Rank() error = %v, want previous artifact served", err)
	}
	if len(got) != 1 || got[0].Content != blog1 {
		t.Errorf("Rank() = %v, want [%v]", refs(got), blog1)
	}
}

func TestBackendArtifactRemoved(t *testing.T) {
	b, store := newTestBackend(t)
	ctx := context.Background()
	if _, err := store.Save(ctx, fixtureArtifact(), storage.Metadata{}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Rank(ctx, 1, recommend.RankOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(store.Path()); err != nil {
		t.Fatal(err)
	}
	got, err := b.Rank(ctx, 1, recommend.RankOptions{})
	if err != nil || len(got) != 0 {
		t.Errorf("Rank() = %v, %v; want empty cold start", got, err)
	}
}

// bumpModTime moves the file's mtime forward so that a rewrite within the
// filesystem's timestamp granularity is still detected.
func bumpModTime(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	next := info.ModTime().Add(time.Second)
	if err := os.Chtimes(path, next, next); err != nil {
		t.Fatal(err)
	}
}

// TestTrainedModelThroughService trains 3 users who each viewed blog items
// 0-4 and asks the orchestrator for 5 blog recommendations.
func TestTrainedModelThroughService(t *testing.T) {
	ctx := context.Background()

	var events []recommend.InteractionEvent
	for user := int64(0); user < 3; user++ {
		for item := 0; item < 5; item++ {
			events = append(events, recommend.InteractionEvent{
				UserID:     user,
				ContentKey: fmt.Sprintf("blog:%d", item),
				Action:     recommend.ActionView,
				Value:      1,
			})
		}
	}

	params := training.DefaultParams()
	params.Epochs = 4
	params.EmbeddingDim = 16
	params.ContentEmbeddingDim = 8
	trainer, err := training.NewTrainer(params, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	artifact, stats, err := trainer.Train(ctx, events, nil)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if artifact == nil {
		t.Fatalf("Train() produced no artifact: %s", stats.Reason)
	}

	b, store := newTestBackend(t)
	if _, err := store.Save(ctx, artifact, storage.Metadata{Triples: stats.Triples}); err != nil {
		t.Fatal(err)
	}

	cfg := recommend.DefaultConfig()
	cfg.CacheTTL = 0
	svc, err := recommend.NewServiceWithLayers(cfg, []recommend.RecommendationLayer{recommend.NewAILayer(b)}, nil, nil, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	got := svc.GetRecommendations(ctx, 0, []string{"blog"}, recommend.WithTopN(5))
	if len(got) != 5 {
		t.Fatalf("got %d items, want 5: %v", len(got), got)
	}
	seen := make(map[recommend.ContentRef]bool)
	for i, it := range got {
		if it.Content.Catalog != recommend.CatalogBlog {
			t.Errorf("item %d = %v, want a blog item", i, it.Content)
		}
		if seen[it.Content] {
			t.Errorf("duplicate item %v", it.Content)
		}
		seen[it.Content] = true
		if i > 0 && !(it.Score < got[i-1].Score) {
			t.Errorf("scores not strictly descending at %d: %v then %v", i, got[i-1].Score, it.Score)
		}
	}
}

// TestTrainedArtifactSurvivesReload trains a tagged model, writes it, reads
// it back through a second store and checks every user ranks identically.
func TestTrainedArtifactSurvivesReload(t *testing.T) {
	ctx := context.Background()

	var events []recommend.InteractionEvent
	meta := make(map[recommend.ContentRef]recommend.ItemMetadata)
	for item := int64(1); item <= 6; item++ {
		tags := []string{"go"}
		if item%2 == 0 {
			tags = []string{"rust", "databases"}
		}
		meta[recommend.ContentRef{Catalog: recommend.CatalogBlog, ID: item}] = recommend.ItemMetadata{
			Tags:      tags,
			CreatedAt: testNow.AddDate(0, 0, -int(item)*5),
		}
		meta[recommend.ContentRef{Catalog: recommend.CatalogGame, ID: item}] = recommend.ItemMetadata{Tags: tags}
	}
	for user := int64(1); user <= 4; user++ {
		for item := int64(1); item <= 6; item++ {
			if (user+item)%3 == 0 {
				continue
			}
			action := recommend.ActionView
			if item%2 == 0 {
				action = recommend.ActionLike
			}
			events = append(events,
				recommend.InteractionEvent{UserID: user, ContentKey: fmt.Sprintf("blog:%d", item), Action: action, Value: 1},
				recommend.InteractionEvent{UserID: user, ContentKey: fmt.Sprintf("game:%d", item), Action: recommend.ActionPlay, Value: 2},
			)
		}
	}

	params := training.DefaultParams()
	params.Epochs = 4
	params.EmbeddingDim = 12
	params.ContentEmbeddingDim = 4
	trainer, err := training.NewTrainer(params, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	trained, stats, err := trainer.Train(ctx, events, meta)
	if err != nil || trained == nil {
		t.Fatalf("Train() = %v, %v", stats, err)
	}

	path := filepath.Join(t.TempDir(), "model.artifact")
	writer, err := storage.NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := writer.Save(ctx, trained, storage.Metadata{Triples: stats.Triples}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	reader, err := storage.NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	loaded, _, err := reader.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	engine := newTestEngine()
	backend := NewBackend(reader, engine, zerolog.Nop())

	options := []struct {
		name string
		opts recommend.RankOptions
	}{
		{"plain", recommend.RankOptions{TopN: 8}},
		{"blog only", recommend.RankOptions{TopN: 8, ContentTypes: []recommend.CatalogType{recommend.CatalogBlog}}},
		{"freshness", recommend.RankOptions{TopN: 8, FreshnessBoost: true}},
		{"diversity", recommend.RankOptions{TopN: 5, DiversityPenalty: 0.3, FreshnessBoost: true}},
	}
	for _, o := range options {
		t.Run(o.name, func(t *testing.T) {
			for user := int64(1); user <= 4; user++ {
				want := engine.ScoreAndRank(trained, user, o.opts)
				if len(want) == 0 {
					t.Fatalf("user %d: trained model ranked nothing", user)
				}
				got := engine.ScoreAndRank(loaded, user, o.opts)
				served, err := backend.Rank(ctx, user, o.opts)
				if err != nil {
					t.Fatalf("Rank() error = %v", err)
				}
				for name, list := range map[string][]recommend.ScoredItem{"loaded": got, "backend": served} {
					if len(list) != len(want) {
						t.Fatalf("user %d %s: %d items, want %d", user, name, len(list), len(want))
					}
					for i := range want {
						if list[i] != want[i] {
							t.Errorf("user %d %s item %d = %+v, want %+v", user, name, i, list[i], want[i])
						}
					}
				}
			}
		})
	}
}
