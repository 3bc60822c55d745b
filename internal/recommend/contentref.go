// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package recommend

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidContentRef is returned when a content key cannot be resolved to
// a known catalog reference.
var ErrInvalidContentRef = errors.New("invalid content reference")

// CatalogType identifies the catalog an item belongs to.
type CatalogType string

// Known catalogs.
const (
	CatalogBlog      CatalogType = "blog"
	CatalogCommunity CatalogType = "community"
	CatalogGame      CatalogType = "game"
)

// AllCatalogTypes lists every known catalog in a fixed order.
var AllCatalogTypes = []CatalogType{CatalogBlog, CatalogCommunity, CatalogGame}

// Valid reports whether c is a known catalog.
func (c CatalogType) Valid() bool {
	switch c {
	case CatalogBlog, CatalogCommunity, CatalogGame:
		return true
	default:
		return false
	}
}

// ParseCatalogType parses a catalog name (case-insensitive, trimmed).
func ParseCatalogType(s string) (CatalogType, error) {
	c := CatalogType(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown catalog %q", ErrInvalidContentRef, s)
	}
	return c, nil
}

// ParseCatalogTypes parses a list of catalog names. Unknown names are
// dropped, duplicates collapsed, and input order preserved. An empty result
// means "every catalog" to callers that accept an allow-list.
func ParseCatalogTypes(names []string) []CatalogType {
	out := make([]CatalogType, 0, len(names))
	seen := make(map[CatalogType]struct{}, len(names))
	for _, name := range names {
		c, err := ParseCatalogType(name)
		if err != nil {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// ContentRef is a typed reference to one catalog item. Its string form
// "<catalog>:<id>" is used only where it is persisted or sent over the wire.
type ContentRef struct {
	Catalog CatalogType
	ID      int64
}

// NewContentRef builds a reference, validating the catalog and id.
func NewContentRef(catalog CatalogType, id int64) (ContentRef, error) {
	ref := ContentRef{Catalog: catalog, ID: id}
	if !ref.Valid() {
		return ContentRef{}, fmt.Errorf("%w: %s:%d", ErrInvalidContentRef, catalog, id)
	}
	return ref, nil
}

// ParseContentRef parses "<catalog>:<id>".
func ParseContentRef(key string) (ContentRef, error) {
	catalog, rawID, ok := strings.Cut(key, ":")
	if !ok {
		return ContentRef{}, fmt.Errorf("%w: %q has no catalog separator", ErrInvalidContentRef, key)
	}
	c, err := ParseCatalogType(catalog)
	if err != nil {
		return ContentRef{}, err
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id < 0 {
		return ContentRef{}, fmt.Errorf("%w: %q has a malformed id", ErrInvalidContentRef, key)
	}
	return ContentRef{Catalog: c, ID: id}, nil
}

// Valid reports whether the reference points into a known catalog.
func (r ContentRef) Valid() bool {
	return r.Catalog.Valid() && r.ID >= 0
}

// String formats the reference as "<catalog>:<id>".
func (r ContentRef) String() string {
	return string(r.Catalog) + ":" + strconv.FormatInt(r.ID, 10)
}

// MarshalText implements encoding.TextMarshaler.
func (r ContentRef) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %s:%d", ErrInvalidContentRef, r.Catalog, r.ID)
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *ContentRef) UnmarshalText(text []byte) error {
	ref, err := ParseContentRef(string(text))
	if err != nil {
		return err
	}
	*r = ref
	return nil
}

// Allowed reports whether ref's catalog is in types. An empty types list
// allows every known catalog.
func Allowed(ref ContentRef, types []CatalogType) bool {
	if len(types) == 0 {
		return ref.Valid()
	}
	for _, t := range types {
		if ref.Catalog == t {
			return ref.ID >= 0
		}
	}
	return false
}
