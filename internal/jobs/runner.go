// SPDX-License-Identifier: MIT

// Package jobs orchestrates one end-to-end resolution run: fetch the
// playlist, build the reference catalog, resolve every channel, emit the
// merged guide and persist the learned state.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"epgbridge/internal/catalog"
	"epgbridge/internal/config"
	"epgbridge/internal/disambig"
	xglog "epgbridge/internal/log"
	"epgbridge/internal/merge"
	"epgbridge/internal/playlist"
	"epgbridge/internal/resolver"
	"epgbridge/internal/store"
)

// ErrEmptyPlaylist is returned when the provider reports zero live channels.
// An empty playlist means credentials or portal trouble, never a valid run.
var ErrEmptyPlaylist = errors.New("playlist returned no channels")

// Summary reports what one run did.
type Summary struct {
	PlaylistTotal  int
	Resolved       int
	Stats          resolver.Stats
	Channels       int
	Programmes     int
	OutputPath     string
	MissingLogPath string
	Duration       time.Duration
}

// Runner wires the pipeline components for one configuration.
type Runner struct {
	cfg config.Config
	dis disambig.Disambiguator
}

// Option customizes a Runner.
type Option func(*Runner)

// WithDisambiguator replaces the configured disambiguation client. Tests use
// this to avoid real model calls.
func WithDisambiguator(d disambig.Disambiguator) Option {
	return func(r *Runner) { r.dis = d }
}

// NewRunner builds a runner. The disambiguation client is only constructed
// when an API key is configured; without one, ambiguous entries go to the
// missing log.
func NewRunner(cfg config.Config, opts ...Option) *Runner {
	r := &Runner{cfg: cfg}
	if cfg.Disambig.Enabled() {
		r.dis = disambig.NewGeminiClient(cfg.Disambig.APIKey, cfg.Disambig.Model,
			disambig.WithRateLimit(cfg.Disambig.CallsPerSecond))
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one full resolution cycle. State files are only rewritten
// after the output document has been committed, so a failed run never
// clobbers the previous run's learned matches.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	logger := xglog.WithComponentFromContext(ctx, "jobs")
	cfg := r.cfg

	provider := playlist.NewClient(cfg.Playlist.URL, cfg.Playlist.Username, cfg.Playlist.Password)
	entries, err := fetchPlaylist(ctx, provider)
	if err != nil {
		return nil, err
	}
	total := len(entries)
	entries = playlist.NewFilter(cfg.Filter.Categories).Apply(entries)
	logger.Info().
		Int("playlist_total", total).
		Int("after_filter", len(entries)).
		Str(xglog.FieldEvent, "run.playlist_loaded").
		Msg("playlist loaded")

	matchStore := store.NewMatchStore(cfg.Paths.MatchStore)
	known, err := matchStore.Load()
	if err != nil {
		logger.Warn().Err(err).
			Str(xglog.FieldPath, matchStore.Path()).
			Str(xglog.FieldEvent, "run.match_store_degraded").
			Msg("match store unreadable, starting from empty state")
	}
	missingLog := store.NewMissingLog(cfg.Paths.MissingLog)
	knownMissing, err := missingLog.Load()
	if err != nil {
		logger.Warn().Err(err).
			Str(xglog.FieldPath, missingLog.Path()).
			Str(xglog.FieldEvent, "run.missing_log_degraded").
			Msg("missing log unreadable, starting from empty state")
	}

	builder := catalog.NewBuilder(cfg.Cache.Dir, cfg.Cache.MaxAge(), cfg.Cache.FetchConcurrency)
	cat, err := builder.Build(ctx, cfg.Sources)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}

	res, err := resolver.New(cat, r.dis, resolver.Config{
		AutoAcceptThreshold: cfg.Match.AutoAcceptThreshold,
		ConfidenceFloor:     cfg.Match.ConfidenceFloor,
		Candidates:          cfg.Match.Candidates,
		DisambigConcurrency: cfg.Disambig.Concurrency,
		DisambigTimeout:     cfg.Disambig.Timeout(),
	}).Resolve(ctx, entries, known, knownMissing)
	if err != nil {
		return nil, err
	}

	mergeStats, err := merge.EmitFile(ctx, cfg.Paths.Output, res.Accepted, r.sourcePaths())
	if err != nil {
		return nil, fmt.Errorf("emit output: %w", err)
	}

	// State persists only after the output commit above.
	if err := matchStore.Save(res.Matches); err != nil {
		return nil, err
	}
	if err := missingLog.Save(res.Missing); err != nil {
		return nil, err
	}

	if cfg.Paths.PlaylistOut != "" {
		if err := exportPlaylist(cfg.Paths.PlaylistOut, entries, res.Accepted, provider.StreamURL); err != nil {
			return nil, fmt.Errorf("export playlist: %w", err)
		}
		logger.Info().
			Str(xglog.FieldPath, cfg.Paths.PlaylistOut).
			Str(xglog.FieldEvent, "run.playlist_exported").
			Msg("repaired playlist exported")
	}

	sum := &Summary{
		PlaylistTotal:  total,
		Resolved:       res.Stats.Accepted(),
		Stats:          res.Stats,
		Channels:       mergeStats.Channels,
		Programmes:     mergeStats.Programmes,
		OutputPath:     cfg.Paths.Output,
		MissingLogPath: missingLog.Path(),
		Duration:       time.Since(start),
	}
	logger.Info().
		Int("playlist_total", sum.PlaylistTotal).
		Int("resolved", sum.Resolved).
		Int("from_cache", res.Stats.Cache).
		Int("from_seed", res.Stats.Seed).
		Int("auto_accepted", res.Stats.Auto).
		Int("disambiguated", res.Stats.Disambiguated).
		Int("stale_dropped", res.Stats.Stale).
		Int("skipped_known_missing", res.Stats.Skipped).
		Int(xglog.FieldMissing, res.Stats.Missing).
		Int("channels_written", sum.Channels).
		Int("programmes_written", sum.Programmes).
		Dur("duration", sum.Duration).
		Str(xglog.FieldPath, sum.OutputPath).
		Str(xglog.FieldEvent, "run.complete").
		Msg("resolution run complete")
	return sum, nil
}

func fetchPlaylist(ctx context.Context, client *playlist.Client) ([]playlist.Entry, error) {
	entries, err := client.LiveStreams(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch playlist: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrEmptyPlaylist
	}
	return entries, nil
}

// exportPlaylist writes the filtered playlist with resolved tvg-ids, atomically.
func exportPlaylist(path string, entries []playlist.Entry, ids map[string]string, streamURL func(playlist.Entry) string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	pending, err := renameio.NewPendingFile(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer func() { _ = pending.Cleanup() }()

	if err := playlist.WriteM3U(pending, entries, ids, streamURL); err != nil {
		return err
	}
	return pending.CloseAtomicallyReplace()
}

// sourcePaths returns the local cache location of every configured source.
// Sources that never downloaded simply fail to open during the merge and are
// skipped there.
func (r *Runner) sourcePaths() []string {
	paths := make([]string, 0, len(r.cfg.Sources))
	for _, src := range r.cfg.Sources {
		paths = append(paths, filepath.Join(r.cfg.Cache.Dir, filepath.Base(src.CacheFile)))
	}
	return paths
}
