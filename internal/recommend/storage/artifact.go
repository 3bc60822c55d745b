// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tomtom215/contentrank/internal/recommend"
)

// FormatVersion is written into every artifact file.
const FormatVersion = 1

// Storage errors.
var (
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrChecksumMismatch = errors.New("artifact checksum mismatch")
)

// Metadata describes a stored artifact.
type Metadata struct {
	FormatVersion int       `json:"format_version"`
	TrainedAt     time.Time `json:"trained_at"`
	SavedAt       time.Time `json:"saved_at"`

	Users   int `json:"users"`
	Items   int `json:"items"`
	Tags    int `json:"tags"`
	Triples int `json:"triples"`

	// Events is the number of interaction rows read; SkippedEvents had an
	// unparsable content key or an unknown action.
	Events        int `json:"events"`
	SkippedEvents int `json:"skipped_events"`

	Dim                int     `json:"dim"`
	ContentDim         int     `json:"content_dim"`
	FinalLoss          float64 `json:"final_loss"`
	TrainingDurationMS int64   `json:"training_duration_ms"`

	// Checksum is the hex SHA-256 of the uncompressed payload.
	Checksum  string `json:"checksum"`
	SizeBytes int64  `json:"size_bytes"`
}

// storedFile is the on-disk format.
type storedFile struct {
	Metadata       Metadata
	CompressedData []byte
}

// payload is the artifact body. Content keys are kept in their string form
// so that the file can be read without the recommend types.
type payload struct {
	UserIDs      []int64 // UserIDs[row] is the user owning embedding row
	ItemKeys     []string
	ItemMetadata []itemMetadata
	User         [][]float64
	Item         [][]float64
	Content      [][]float64
	Dim          int
	ContentDim   int
	TrainedAt    time.Time
}

type itemMetadata struct {
	Tags             []string
	EngagementCounts map[string]int64
	CreatedAt        time.Time
}

// Store persists one artifact at a fixed path. Writes go to a temporary
// file in the same directory which is synced and renamed over the target,
// so readers see either the old or the new artifact.
type Store struct {
	path string
	mu   sync.RWMutex
	now  func() time.Time
}

// NewStore creates a store for path, creating the parent directory.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("artifact path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &Store{path: path, now: time.Now}, nil
}

// Path returns the artifact file path.
func (s *Store) Path() string { return s.path }

// Save validates and writes the artifact. Shape and checksum fields of meta
// are filled in; the written metadata is returned.
//
//nolint:gocritic // meta passed by value is acceptable for this write operation
func (s *Store) Save(ctx context.Context, a *recommend.Artifact, meta Metadata) (Metadata, error) {
	if err := a.Validate(); err != nil {
		return Metadata{}, err
	}
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(toPayload(a)); err != nil {
		return Metadata{}, fmt.Errorf("encode artifact: %w", err)
	}
	hash := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return Metadata{}, fmt.Errorf("compress artifact: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return Metadata{}, fmt.Errorf("finalize compression: %w", err)
	}

	meta.FormatVersion = FormatVersion
	meta.TrainedAt = a.TrainedAt
	meta.SavedAt = s.now().UTC()
	meta.Users = a.NumUsers()
	meta.Items = a.NumItems()
	meta.Dim = a.Dim
	meta.ContentDim = a.ContentDim
	meta.Checksum = hex.EncodeToString(hash[:])
	meta.SizeBytes = int64(compressed.Len())

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAtomic(storedFile{Metadata: meta, CompressedData: compressed.Bytes()}); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

func (s *Store) writeAtomic(sf storedFile) (err error) {
	dir, base := filepath.Split(s.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()           //nolint:errcheck // already failing
			_ = os.Remove(tmp.Name()) //nolint:errcheck // best-effort cleanup
		}
	}()

	if err = gob.NewEncoder(tmp).Encode(sf); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync artifact: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("install artifact: %w", err)
	}
	return nil
}

// Load reads, verifies and validates the stored artifact. It returns
// ErrArtifactNotFound when no artifact has been written.
func (s *Store) Load(ctx context.Context) (*recommend.Artifact, *Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	sf, err := s.readFile()
	if err != nil {
		return nil, nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, nil, fmt.Errorf("decompress artifact: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, nil, fmt.Errorf("read decompressed artifact: %w", err)
	}

	hash := sha256.Sum256(raw)
	if got := hex.EncodeToString(hash[:]); got != sf.Metadata.Checksum {
		return nil, nil, fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, sf.Metadata.Checksum, got)
	}

	var p payload
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&p); err != nil {
		return nil, nil, fmt.Errorf("decode artifact: %w", err)
	}
	a, err := fromPayload(&p)
	if err != nil {
		return nil, nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, nil, err
	}
	return a, &sf.Metadata, nil
}

// ReadMetadata returns the stored metadata without decoding the payload.
func (s *Store) ReadMetadata() (*Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sf, err := s.readFile()
	if err != nil {
		return nil, err
	}
	return &sf.Metadata, nil
}

// ModTime returns the artifact file's modification time.
func (s *Store) ModTime() (time.Time, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, ErrArtifactNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("stat artifact: %w", err)
	}
	return info.ModTime(), nil
}

func (s *Store) readFile() (*storedFile, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read artifact file: %w", err)
	}
	return &sf, nil
}

func toPayload(a *recommend.Artifact) *payload {
	p := &payload{
		UserIDs:      make([]int64, len(a.UserMap)),
		ItemKeys:     make([]string, len(a.ItemKeys)),
		ItemMetadata: make([]itemMetadata, len(a.ItemMetadata)),
		User:         a.User,
		Item:         a.Item,
		Content:      a.Content,
		Dim:          a.Dim,
		ContentDim:   a.ContentDim,
		TrainedAt:    a.TrainedAt,
	}
	for id, row := range a.UserMap {
		p.UserIDs[row] = id
	}
	for i, ref := range a.ItemKeys {
		p.ItemKeys[i] = ref.String()
	}
	for i, md := range a.ItemMetadata {
		p.ItemMetadata[i] = itemMetadata(md)
	}
	return p
}

func fromPayload(p *payload) (*recommend.Artifact, error) {
	a := &recommend.Artifact{
		UserMap:      make(map[int64]int, len(p.UserIDs)),
		ItemMap:      make(map[recommend.ContentRef]int, len(p.ItemKeys)),
		ItemKeys:     make([]recommend.ContentRef, len(p.ItemKeys)),
		ItemMetadata: make([]recommend.ItemMetadata, len(p.ItemMetadata)),
		User:         p.User,
		Item:         p.Item,
		Content:      p.Content,
		Dim:          p.Dim,
		ContentDim:   p.ContentDim,
		TrainedAt:    p.TrainedAt,
	}
	for row, id := range p.UserIDs {
		a.UserMap[id] = row
	}
	for i, key := range p.ItemKeys {
		ref, err := recommend.ParseContentRef(key)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %w", recommend.ErrInvalidArtifact, i, err)
		}
		a.ItemKeys[i] = ref
		a.ItemMap[ref] = i
	}
	for i, md := range p.ItemMetadata {
		a.ItemMetadata[i] = recommend.ItemMetadata(md)
	}
	return a, nil
}
