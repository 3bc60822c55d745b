// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"strings"

	"github.com/tomtom215/contentrank/internal/config"
	"github.com/tomtom215/contentrank/internal/logging"
	"github.com/tomtom215/contentrank/internal/recommend"
)

var errUserRequired = errors.New("-user is required")

// runRecommend prints one user's list as [{"content_key": ..., "score": ...}].
func runRecommend(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("recommend", flag.ContinueOnError)
	userID := fs.Int64("user", 0, "user id")
	types := fs.String("types", "", "comma-separated catalogs (blog,game,...); empty allows all")
	topN := fs.Int("topn", cfg.Recommend.DefaultTopN, "number of items")
	excludeSeen := fs.Bool("exclude-seen", true, "prefer items the user has not interacted with")
	freshness := fs.Bool("freshness", true, "apply the freshness boost")
	penalty := fs.Float64("diversity", cfg.Recommend.DiversityPenalty, "diversity penalty (0 disables)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == 0 {
		return errUserRequired
	}

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.closeWithLog()

	items := a.service.GetRecommendations(ctx, *userID, splitTypes(*types),
		recommend.WithTopN(*topN),
		recommend.WithExcludeSeen(*excludeSeen),
		recommend.WithFreshnessBoost(*freshness),
		recommend.WithDiversityPenalty(*penalty),
	)

	logging.Debug().Int64("user_id", *userID).Int("items", len(items)).Msg("Recommendations served")
	return writeJSON(stdout, items)
}

// splitTypes turns "blog, game," into ["blog", "game"].
func splitTypes(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
