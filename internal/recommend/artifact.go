// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package recommend

import (
	"errors"
	"fmt"
	"time"
)

// Hybrid score weights.
const (
	CollaborativeWeight = 0.7
	ContentWeight       = 0.3
)

// ErrInvalidArtifact is returned by Artifact.Validate.
var ErrInvalidArtifact = errors.New("invalid model artifact")

// ItemMetadata is the catalog metadata captured for an item at training time.
type ItemMetadata struct {
	Tags             []string
	EngagementCounts map[string]int64
	// CreatedAt is zero when the catalog did not report a creation time.
	CreatedAt time.Time
}

// Artifact is a trained hybrid embedding model. It is immutable once built
// and safe for concurrent readers.
type Artifact struct {
	UserMap      map[int64]int
	ItemMap      map[ContentRef]int
	ItemKeys     []ContentRef
	ItemMetadata []ItemMetadata

	// User is [users][Dim], Item is [items][Dim], Content is [items][ContentDim].
	User    [][]float64
	Item    [][]float64
	Content [][]float64

	Dim        int
	ContentDim int
	TrainedAt  time.Time
}

// NumUsers returns the number of users in the model.
func (a *Artifact) NumUsers() int { return len(a.User) }

// NumItems returns the number of items in the model.
func (a *Artifact) NumItems() int { return len(a.ItemKeys) }

// UserIndex returns the embedding row of userID.
func (a *Artifact) UserIndex(userID int64) (int, bool) {
	idx, ok := a.UserMap[userID]
	return idx, ok
}

// Score returns the hybrid score of user row u against item row i.
func (a *Artifact) Score(u, i int) float64 {
	return HybridScore(a.User[u], a.Item[i], a.Content[i], a.ContentDim)
}

// Validate checks every shape invariant of the artifact: map/key inversion,
// embedding row counts and widths, and metadata length.
//
//nolint:gocyclo // shape checks are linear but numerous
func (a *Artifact) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: nil artifact", ErrInvalidArtifact)
	}
	if a.Dim <= 0 {
		return fmt.Errorf("%w: dim must be positive, got %d", ErrInvalidArtifact, a.Dim)
	}
	if a.ContentDim <= 0 || a.ContentDim > a.Dim {
		return fmt.Errorf("%w: content dim %d must be in [1, %d]", ErrInvalidArtifact, a.ContentDim, a.Dim)
	}

	nItems := len(a.ItemKeys)
	if len(a.ItemMap) != nItems {
		return fmt.Errorf("%w: item map has %d entries, item keys %d", ErrInvalidArtifact, len(a.ItemMap), nItems)
	}
	for i, ref := range a.ItemKeys {
		if !ref.Valid() {
			return fmt.Errorf("%w: item key %d is not a valid reference", ErrInvalidArtifact, i)
		}
		if idx, ok := a.ItemMap[ref]; !ok || idx != i {
			return fmt.Errorf("%w: item map does not invert item keys at %d (%s)", ErrInvalidArtifact, i, ref)
		}
	}
	if len(a.ItemMetadata) != nItems {
		return fmt.Errorf("%w: %d metadata rows for %d items", ErrInvalidArtifact, len(a.ItemMetadata), nItems)
	}

	nUsers := len(a.User)
	if len(a.UserMap) != nUsers {
		return fmt.Errorf("%w: user map has %d entries, %d embedding rows", ErrInvalidArtifact, len(a.UserMap), nUsers)
	}
	seen := make([]bool, nUsers)
	for id, idx := range a.UserMap {
		if idx < 0 || idx >= nUsers || seen[idx] {
			return fmt.Errorf("%w: user %d maps to bad row %d", ErrInvalidArtifact, id, idx)
		}
		seen[idx] = true
	}

	if err := checkMatrix("user", a.User, nUsers, a.Dim); err != nil {
		return err
	}
	if err := checkMatrix("item", a.Item, nItems, a.Dim); err != nil {
		return err
	}
	return checkMatrix("content", a.Content, nItems, a.ContentDim)
}

func checkMatrix(name string, m [][]float64, rows, cols int) error {
	if len(m) != rows {
		return fmt.Errorf("%w: %s embeddings have %d rows, want %d", ErrInvalidArtifact, name, len(m), rows)
	}
	for r, row := range m {
		if len(row) != cols {
			return fmt.Errorf("%w: %s embedding row %d has width %d, want %d", ErrInvalidArtifact, name, r, len(row), cols)
		}
	}
	return nil
}

// HybridScore is 0.7*dot(user, item) + 0.3*dot(user[:contentDim], content).
// The content term reuses the leading slice of the user vector as its
// projection into content space.
func HybridScore(user, item, content []float64, contentDim int) float64 {
	return CollaborativeWeight*Dot(user, item) + ContentWeight*Dot(user[:contentDim], content)
}

// Dot returns the inner product of two equal-length vectors.
func Dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
