// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"golang.org/x/sync/errgroup"

	xglog "epgbridge/internal/log"
	"epgbridge/internal/xmltv"
)

// ErrNoUsableSource is returned when every configured reference source failed
// to fetch or parse. This is the only fatal catalog condition; individual
// source failures only degrade coverage.
var ErrNoUsableSource = errors.New("no usable reference source")

// Source identifies one reference EPG feed and its local cache file name.
type Source struct {
	URL       string `yaml:"url"`
	CacheFile string `yaml:"cache_file"`
}

// Builder fetches reference sources with a local max-age cache and merges
// them into a Catalog. Fetches run in parallel; the merge is serialized in
// source order so the first-source-wins invariant holds.
type Builder struct {
	CacheDir    string
	MaxAge      time.Duration
	Concurrency int
	Client      *http.Client
}

// NewBuilder returns a builder with default HTTP transport settings.
func NewBuilder(cacheDir string, maxAge time.Duration, concurrency int) *Builder {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Builder{
		CacheDir:    cacheDir,
		MaxAge:      maxAge,
		Concurrency: concurrency,
		Client:      &http.Client{Timeout: 120 * time.Second},
	}
}

// Build fetches (or reuses cached copies of) all sources and merges them in
// order. A source that cannot be fetched or parsed is skipped with a warning.
func (b *Builder) Build(ctx context.Context, sources []Source) (*Catalog, error) {
	logger := xglog.WithComponentFromContext(ctx, "catalog")

	if err := os.MkdirAll(b.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	// Parallel fetch phase. Per-source failures are recorded, not returned:
	// the group only aborts on context cancellation.
	paths := make([]string, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.Concurrency)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path, err := b.ensureCached(gctx, src)
			if err != nil {
				logger.Warn().
					Err(err).
					Str(xglog.FieldSource, src.CacheFile).
					Str(xglog.FieldEvent, "catalog.source_unavailable").
					Msg("reference source skipped")
				return nil
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Serial merge phase, strictly in source order.
	cat := New()
	usable := 0
	for i, src := range sources {
		if paths[i] == "" {
			continue
		}
		names, ids, err := scanChannels(paths[i], cat)
		if err != nil {
			logger.Warn().
				Err(err).
				Str(xglog.FieldSource, src.CacheFile).
				Str(xglog.FieldEvent, "catalog.parse_failed").
				Msg("reference source unparsable, skipped")
			continue
		}
		usable++
		logger.Info().
			Str(xglog.FieldSource, src.CacheFile).
			Int("display_names", names).
			Int("channel_ids", ids).
			Str(xglog.FieldEvent, "catalog.source_merged").
			Msg("reference source merged")
	}

	if usable == 0 {
		return nil, ErrNoUsableSource
	}

	logger.Info().
		Int("sources", usable).
		Int("display_names", cat.NameCount()).
		Int("channel_ids", cat.IDCount()).
		Str(xglog.FieldEvent, "catalog.built").
		Msg("reference catalog built")
	return cat, nil
}

// scanChannels streams one source file into the catalog and reports how many
// display names and ids the source contributed.
func scanChannels(path string, cat *Catalog) (names, ids int, err error) {
	rc, err := xmltv.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = rc.Close() }()

	err = xmltv.Scan(rc, func(ch xmltv.Channel) error {
		ids++
		if len(ch.DisplayNames) == 0 {
			cat.AddID(ch.ID)
			return nil
		}
		for _, dn := range ch.DisplayNames {
			cat.Add(dn, ch.ID)
			names++
		}
		return nil
	}, nil)
	if err != nil {
		return names, ids, err
	}
	return names, ids, nil
}

// ensureCached returns the local cache path for src, downloading when the
// cache is absent or older than MaxAge. A failed download falls back to a
// stale cached copy when one exists.
func (b *Builder) ensureCached(ctx context.Context, src Source) (string, error) {
	path := filepath.Join(b.CacheDir, filepath.Base(src.CacheFile))
	logger := xglog.WithComponentFromContext(ctx, "catalog")

	fresh := false
	if st, err := os.Stat(path); err == nil {
		fresh = time.Since(st.ModTime()) <= b.MaxAge
	}
	if fresh {
		return path, nil
	}

	if err := b.download(ctx, src.URL, path); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			logger.Warn().
				Err(err).
				Str(xglog.FieldSource, src.CacheFile).
				Str(xglog.FieldEvent, "catalog.stale_cache").
				Msg("download failed, using stale cache")
			return path, nil
		}
		return "", err
	}
	return path, nil
}

func (b *Builder) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	res, err := b.Client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %d", url, res.StatusCode)
	}

	// Pending file keeps a partial download from ever replacing a good cache.
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending cache file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := io.Copy(pending, res.Body); err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("commit cache file: %w", err)
	}
	return nil
}
