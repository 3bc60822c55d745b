// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

/*
Package supervisor runs the long-lived parts of "contentrank serve" under a
suture v4 supervisor tree.

	RootSupervisor ("contentrank")
	├── ModelSupervisor ("model-layer")
	│   └── ArtifactService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Suture events are logged through sutureslog, whose slog.Logger is backed by
the zerolog adapter in internal/logging. A crashing service is restarted with
backoff after FailureThreshold failures; FailureDecay controls how quickly
past failures are forgotten.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddModelService(artifactSvc)
	tree.AddAPIService(httpSvc)
	return tree.Serve(ctx)
*/
package supervisor
