// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

/*
Package services provides suture.Service wrappers for Contentrank components.

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts the ListenAndServe pattern to Serve

Artifact Refresh (ArtifactService):
  - Polls the model artifact through inference.Backend.Refresh
  - Regenerates the precomputed table after a new artifact when enabled
  - Logs failures and retries on the next tick instead of crashing

# Error Handling

Return values determine supervisor behavior:

	nil         -> Service stopped cleanly, will not restart
	error       -> Service crashed, supervisor will restart
	ctx.Err()   -> Shutdown requested, normal termination

# Usage

	tree.AddModelService(services.NewArtifactService(backend, recomputer,
	    services.ArtifactServiceConfig{Interval: time.Minute, RecomputeOnChange: true}, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second, logger))
*/
package services
