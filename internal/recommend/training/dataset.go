// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package training

import (
	"sort"

	"github.com/tomtom215/contentrank/internal/recommend"
)

// triple is one weighted positive interaction.
type triple struct {
	user   int
	item   int
	weight float64
}

// dataset is the indexed training input.
type dataset struct {
	userMap  map[int64]int
	itemMap  map[recommend.ContentRef]int
	itemKeys []recommend.ContentRef

	triples   []triple
	positives []map[int]struct{}

	// itemTags[i] lists tag indices of item i; tagCount is the vocabulary size.
	itemTags [][]int
	tagCount int
	metadata []recommend.ItemMetadata

	skipped  int
	negative int
}

// buildDataset indexes users and items in first-seen order. Events whose
// content key does not parse or whose action is unknown are skipped. Negative-signal actions register
// their user and item but never become positive triples.
func buildDataset(events []recommend.InteractionEvent, meta map[recommend.ContentRef]recommend.ItemMetadata) *dataset {
	ds := &dataset{
		userMap: make(map[int64]int),
		itemMap: make(map[recommend.ContentRef]int),
	}
	eventCounts := make(map[int]map[string]int64)

	for i := range events {
		ev := &events[i]
		if !ev.Action.Valid() {
			ds.skipped++
			continue
		}
		ref, err := recommend.ParseContentRef(ev.ContentKey)
		if err != nil {
			ds.skipped++
			continue
		}

		u, ok := ds.userMap[ev.UserID]
		if !ok {
			u = len(ds.userMap)
			ds.userMap[ev.UserID] = u
			ds.positives = append(ds.positives, make(map[int]struct{}))
		}
		it, ok := ds.itemMap[ref]
		if !ok {
			it = len(ds.itemKeys)
			ds.itemMap[ref] = it
			ds.itemKeys = append(ds.itemKeys, ref)
		}

		counts := eventCounts[it]
		if counts == nil {
			counts = make(map[string]int64)
			eventCounts[it] = counts
		}
		counts[string(ev.Action)]++

		if ev.Action.Negative() {
			ds.negative++
			continue
		}
		w := recommend.EngagementWeight(*ev)
		if w <= 0 {
			continue
		}
		ds.triples = append(ds.triples, triple{user: u, item: it, weight: w})
		ds.positives[u][it] = struct{}{}
	}

	ds.indexMetadata(meta, eventCounts)
	return ds
}

// indexMetadata copies catalog metadata per item and builds the tag
// vocabulary in item order so that indices are deterministic.
func (ds *dataset) indexMetadata(meta map[recommend.ContentRef]recommend.ItemMetadata, eventCounts map[int]map[string]int64) {
	ds.metadata = make([]recommend.ItemMetadata, len(ds.itemKeys))
	ds.itemTags = make([][]int, len(ds.itemKeys))
	vocab := make(map[string]int)

	for i, ref := range ds.itemKeys {
		m := meta[ref]
		md := recommend.ItemMetadata{
			Tags:      append([]string(nil), m.Tags...),
			CreatedAt: m.CreatedAt,
		}
		if len(m.EngagementCounts) > 0 {
			md.EngagementCounts = make(map[string]int64, len(m.EngagementCounts))
			for k, v := range m.EngagementCounts {
				md.EngagementCounts[k] = v
			}
		} else {
			md.EngagementCounts = eventCounts[i]
		}
		ds.metadata[i] = md

		seen := make(map[int]struct{}, len(m.Tags))
		for _, tag := range m.Tags {
			idx, ok := vocab[tag]
			if !ok {
				idx = len(vocab)
				vocab[tag] = idx
			}
			if _, dup := seen[idx]; dup {
				continue
			}
			seen[idx] = struct{}{}
			ds.itemTags[i] = append(ds.itemTags[i], idx)
		}
		sort.Ints(ds.itemTags[i])
	}
	ds.tagCount = len(vocab)
}

func (ds *dataset) numUsers() int { return len(ds.userMap) }
func (ds *dataset) numItems() int { return len(ds.itemKeys) }
