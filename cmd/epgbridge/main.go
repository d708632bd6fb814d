// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"epgbridge/internal/config"
	"epgbridge/internal/jobs"
	xglog "epgbridge/internal/log"
	"epgbridge/internal/report"
	"epgbridge/internal/store"
)

var (
	version   = "v1.2.0"
	commit    = "none"
	buildDate = "unknown"
)

// maskURL removes user info from a URL string for safe logging.
func maskURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsed.User = nil
	return parsed.String()
}

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg, err := config.NewLoader(*configPath).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "epgbridge: %v\n", err)
		os.Exit(2)
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: "epgbridge",
		Version: version,
	})
	logger := xglog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = xglog.WithContext(ctx, xglog.Base())

	cmd := "run"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	var runErr error
	switch cmd {
	case "run":
		runErr = runResolve(ctx, cfg)
	case "report":
		runErr = runReport(cfg, os.Stdout)
	case "deploy":
		dst := "./data/epg.xml"
		if flag.NArg() > 1 {
			dst = flag.Arg(1)
		}
		runErr = jobs.Deploy(cfg.Paths.Output, dst)
	default:
		fmt.Fprintf(os.Stderr, "epgbridge: unknown command %q (want run, report or deploy)\n", cmd)
		os.Exit(2)
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warn().Str(xglog.FieldEvent, "main.interrupted").Msg("interrupted, state left untouched")
			os.Exit(130)
		}
		logger.Error().Err(runErr).Str(xglog.FieldEvent, "main.failed").Msg("command failed")
		os.Exit(1)
	}
}

func runResolve(ctx context.Context, cfg config.Config) error {
	if err := cfg.ValidateRun(); err != nil {
		return err
	}
	logger := xglog.WithComponent("main")
	logger.Info().
		Str("playlist", maskURL(cfg.Playlist.URL)).
		Int("sources", len(cfg.Sources)).
		Bool("disambiguation", cfg.Disambig.Enabled()).
		Str(xglog.FieldEvent, "main.start").
		Msg("starting resolution run")

	sum, err := jobs.NewRunner(cfg).Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("resolved %d of %d channels (%d missing) -> %s\n",
		sum.Resolved, sum.PlaylistTotal, sum.Stats.Missing, sum.OutputPath)
	return nil
}

func runReport(cfg config.Config, w *os.File) error {
	missing, err := store.NewMissingLog(cfg.Paths.MissingLog).Load()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	return report.Analyze(names).Write(w)
}
