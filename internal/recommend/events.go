// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package recommend

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Action is the kind of engagement a user had with an item.
type Action string

// Engagement actions recorded in the interaction log.
const (
	ActionView       Action = "view"
	ActionClick      Action = "click"
	ActionLike       Action = "like"
	ActionDislike    Action = "dislike"
	ActionPlay       Action = "play"
	ActionComplete   Action = "complete"
	ActionSkip       Action = "skip"
	ActionImpression Action = "impression"
)

// Metadata keys understood by EngagementWeight.
const (
	MetaDurationSeconds = "duration_seconds"
	MetaScrollFraction  = "scroll_fraction"
	MetaBookmarked      = "bookmarked"
	MetaSaved           = "saved"
	MetaLiked           = "liked"

	metaDurationAlias = "duration"
	metaScrollAlias   = "scroll_depth"
)

// Weighting constants.
const (
	MinEventValue     = 0.5
	MaxDurationBonus  = 2.5
	DurationBonusUnit = 30.0 // seconds per bonus point
	MaxScrollBonus    = 1.0
	BookmarkBonus     = 1.0
	LikeBonus         = 0.5
	MinEngagement     = 0.1
)

// baseWeights are non-negative so that the weight is monotone in Value.
var baseWeights = map[Action]float64{
	ActionImpression: 0.2,
	ActionView:       1.0,
	ActionClick:      1.5,
	ActionPlay:       2.0,
	ActionLike:       3.0,
	ActionComplete:   3.5,
	ActionSkip:       0.3,
	ActionDislike:    0.1,
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	_, ok := baseWeights[a]
	return ok
}

// Negative reports whether the action signals disinterest.
func (a Action) Negative() bool {
	return a == ActionDislike || a == ActionSkip
}

// BaseWeight returns the action's base weight, 0 for unknown actions.
func (a Action) BaseWeight() float64 {
	return baseWeights[a]
}

// InteractionEvent is one row of the interaction log. ContentKey keeps the
// persisted "<catalog>:<id>" form; consumers resolve it with ParseContentRef.
type InteractionEvent struct {
	ID         int64          `json:"id"`
	UserID     int64          `json:"user_id"`
	ContentKey string         `json:"content_key"`
	Action     Action         `json:"action"`
	Value      float64        `json:"value"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// EngagementWeight turns an event into a training weight:
//
//	max(value, 0.5) * base(action)
//	  + min(2.5, duration/30) + min(1, scroll) + 1 if bookmarked/saved + 0.5 if liked
//
// floored at 0.1. For a fixed action the result is non-decreasing in value,
// duration and scroll fraction.
func EngagementWeight(ev InteractionEvent) float64 {
	value := ev.Value
	if math.IsNaN(value) {
		value = 0
	}
	w := math.Max(value, MinEventValue) * ev.Action.BaseWeight()

	if d, ok := metaFloat(ev.Metadata, MetaDurationSeconds, metaDurationAlias); ok && d > 0 {
		w += math.Min(MaxDurationBonus, d/DurationBonusUnit)
	}
	if s, ok := metaFloat(ev.Metadata, MetaScrollFraction, metaScrollAlias); ok && s > 0 {
		w += math.Min(MaxScrollBonus, s)
	}
	if metaBool(ev.Metadata, MetaBookmarked) || metaBool(ev.Metadata, MetaSaved) {
		w += BookmarkBonus
	}
	if metaBool(ev.Metadata, MetaLiked) {
		w += LikeBonus
	}

	if math.IsNaN(w) || w < MinEngagement {
		return MinEngagement
	}
	if math.IsInf(w, 1) {
		return math.MaxFloat64
	}
	return w
}

func metaFloat(meta map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		raw, ok := meta[key]
		if !ok {
			continue
		}
		if f, ok := toFloat(raw); ok && !math.IsNaN(f) {
			return f, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func metaBool(meta map[string]any, key string) bool {
	raw, ok := meta[key]
	if !ok {
		return false
	}
	switch b := raw.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && parsed
	default:
		f, ok := toFloat(raw)
		return ok && f != 0
	}
}
