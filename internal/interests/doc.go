// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

// Package interests stores users' explicit interest tags in BadgerDB.
//
// Each user is one key, "interests:<user_id>", holding a JSON object that
// maps catalog names to tag lists. The content-based recommendation layer
// reads it through recommend.InterestSource.
package interests
