// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

/*
Package storage persists trained model artifacts.

# File Format

An artifact is a single gob-encoded file:

	storedFile{
	    Metadata       // shape, training statistics, SHA-256 checksum
	    CompressedData // gzip(gob(payload))
	}

The payload carries the user id per embedding row, item content keys in
their "<catalog>:<id>" string form, per-item catalog metadata and the three
embedding matrices. Load verifies the checksum before decoding and validates
every shape invariant of the decoded artifact.

# Atomic Replacement

Save writes to a temporary file in the artifact's directory, syncs it and
renames it over the target. A concurrent reader (or a process loading the
file from another host) therefore never sees a partial artifact.

# Usage

	store, err := storage.NewStore("/data/contentrank/model.gob")
	if err != nil {
	    return err
	}
	meta, err := store.Save(ctx, artifact, storage.Metadata{Triples: stats.Triples})
	...
	artifact, meta, err := store.Load(ctx)
	if errors.Is(err, storage.ErrArtifactNotFound) {
	    // no model trained yet
	}
*/
package storage
