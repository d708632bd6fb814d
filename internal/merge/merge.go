// SPDX-License-Identifier: MIT

// Package merge emits the final XMLTV document: one channel declaration per
// accepted match followed by every programme record keyed to an accepted id.
// Sources are re-streamed from their cache files, so memory stays bounded no
// matter how much schedule data the sources carry.
package merge

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/klauspost/compress/gzip"

	xglog "epgbridge/internal/log"
	"epgbridge/internal/xmltv"
)

const generatorName = "epgbridge"

// Stats reports what the emitter wrote.
type Stats struct {
	Channels   int
	Programmes int
}

// Emit streams the merged document to w. accepted maps raw channel name →
// canonical id; sourcePaths are the cached reference files, read in order. A
// source that cannot be re-read is skipped with a warning, matching the
// catalog builder's degraded-coverage policy.
func Emit(ctx context.Context, w io.Writer, accepted map[string]string, sourcePaths []string) (Stats, error) {
	var stats Stats
	logger := xglog.WithComponentFromContext(ctx, "merge")

	out, err := xmltv.NewWriter(w, generatorName)
	if err != nil {
		return stats, err
	}

	// Channel declarations, sorted by raw name for stable output.
	names := make([]string, 0, len(accepted))
	for name := range accepted {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := out.Channel(xmltv.Channel{
			ID:           accepted[name],
			DisplayNames: []string{name},
		}); err != nil {
			return stats, fmt.Errorf("emit channel %q: %w", name, err)
		}
		stats.Channels++
	}

	ids := make(map[string]struct{}, len(accepted))
	for _, id := range accepted {
		ids[id] = struct{}{}
	}

	// Programme records, source order then source-internal order.
	for _, path := range sourcePaths {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		rc, err := xmltv.Open(path)
		if err != nil {
			logger.Warn().
				Err(err).
				Str(xglog.FieldPath, path).
				Str(xglog.FieldEvent, "merge.source_unreadable").
				Msg("source skipped during merge")
			continue
		}
		err = xmltv.Scan(rc, nil, func(p xmltv.Programme) error {
			if _, ok := ids[p.Channel]; !ok {
				return nil
			}
			if err := out.Programme(p); err != nil {
				return err
			}
			stats.Programmes++
			return nil
		})
		_ = rc.Close()
		if err != nil {
			logger.Warn().
				Err(err).
				Str(xglog.FieldPath, path).
				Str(xglog.FieldEvent, "merge.source_truncated").
				Msg("source stream ended early during merge")
		}
	}

	if err := out.Close(); err != nil {
		return stats, fmt.Errorf("finalize document: %w", err)
	}
	return stats, nil
}

// EmitFile writes the merged document to path atomically, gzip-compressed
// when the path carries a .gz suffix.
func EmitFile(ctx context.Context, path string, accepted map[string]string, sourcePaths []string) (Stats, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Stats{}, fmt.Errorf("create output dir: %w", err)
	}
	pending, err := renameio.NewPendingFile(filepath.Clean(path))
	if err != nil {
		return Stats{}, fmt.Errorf("create pending output: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	var w io.Writer = pending
	var zw *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		zw = gzip.NewWriter(pending)
		w = zw
	}

	stats, err := Emit(ctx, w, accepted, sourcePaths)
	if err != nil {
		return stats, err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return stats, fmt.Errorf("finalize gzip stream: %w", err)
		}
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return stats, fmt.Errorf("commit output: %w", err)
	}
	return stats, nil
}
