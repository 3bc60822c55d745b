// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/contentrank/internal/api"
	"github.com/tomtom215/contentrank/internal/config"
	"github.com/tomtom215/contentrank/internal/logging"
	"github.com/tomtom215/contentrank/internal/supervisor"
	"github.com/tomtom215/contentrank/internal/supervisor/services"
)

const shutdownTimeout = 10 * time.Second

// runServe supervises the artifact refresh loop and the health server until
// ctx is cancelled.
func runServe(ctx context.Context, cfg *config.Config, args []string, _ io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	port := fs.Int("port", cfg.Server.Port, "HTTP port for /healthz, /readyz and /metrics")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.closeWithLog()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: shutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	// Model layer: only a trained model has anything to refresh.
	if a.backend != nil {
		var recomputer services.PrecomputedRecomputer
		if cfg.Artifact.RecomputeOnChange {
			recomputer = a.recomputer(0)
		}
		tree.AddModelService(services.NewArtifactService(a.backend, recomputer, services.ArtifactServiceConfig{
			Interval:          cfg.Artifact.RefreshInterval,
			RecomputeOnChange: cfg.Artifact.RecomputeOnChange,
		}, logging.WithComponent("artifact_refresh")))
	}

	deps := api.Dependencies{Health: a.service, DB: a.db}
	if a.backend != nil {
		deps.Artifact = a.backend
	}
	handler := api.NewHandler(api.RouterConfig{
		RateLimitRequests: cfg.Server.RateLimitRequests,
		RateLimitWindow:   cfg.Server.RateLimitWindow,
	}, deps)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(*port)),
		Handler:           handler.Router(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, shutdownTimeout, logging.WithComponent("http")))

	logging.Info().
		Strs("layers", a.service.Layers()).
		Bool("model_enabled", cfg.Recommend.ModelEnabled).
		Str("addr", server.Addr).
		Msg("Starting supervisor tree")

	errCh := tree.ServeBackground(ctx)

	// The supervisor sends exactly one value and never closes errCh.
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		err = <-errCh
	case err = <-errCh:
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport() //nolint:errcheck // report is best effort after shutdown
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	logging.Info().Msg("Application stopped gracefully")
	return nil
}
