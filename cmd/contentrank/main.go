// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

// Package main is the contentrank command.
//
// Subcommands:
//
//	contentrank serve                         refresh loop plus /healthz, /readyz, /metrics
//	contentrank train [flags]                 train one model artifact from the interaction log
//	contentrank recompute [-topn N]           regenerate the precomputed recommendation table
//	contentrank recommend -user N [flags]     print one user's recommendations as JSON
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (DUCKDB_PATH, ARTIFACT_PATH, LOG_LEVEL, ...)
//   - Config file (CONFIG_PATH, ./config.yaml or /etc/contentrank/config.yaml)
//   - Built-in defaults
//
// Command-line flags of train, recompute and recommend override the loaded
// configuration for that run only.
//
// # Signal Handling
//
// Every subcommand stops on SIGINT and SIGTERM. serve waits for the
// supervisor tree to stop its services before closing the stores.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/contentrank/internal/config"
	"github.com/tomtom215/contentrank/internal/logging"
)

const usage = `usage: contentrank <command> [flags]

commands:
  serve       run the artifact refresh loop and the health/metrics server
  train       train a model artifact from the interaction log
  recompute   regenerate the precomputed recommendation table
  recommend   print recommendations for one user as JSON
`

// command runs one subcommand with its own flag arguments.
type command func(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error

var commands = map[string]command{
	"serve":     runServe,
	"train":     runTrain,
	"recompute": runRecompute,
	"recommend": runRecommend,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	name := os.Args[1]
	if name == "-h" || name == "--help" || name == "help" {
		fmt.Fprint(os.Stdout, usage)
		return
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd(ctx, cfg, os.Args[2:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		stop()
		logging.Fatal().Err(err).Str("command", name).Msg("Command failed")
	}
}
