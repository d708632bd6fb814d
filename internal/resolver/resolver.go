// SPDX-License-Identifier: MIT

// Package resolver implements the tiered channel-identity resolution policy:
// learned cache → staleness check → seed/similarity matching → bounded
// semantic disambiguation → missing.
package resolver

import (
	"context"
	"sync"
	"time"

	"epgbridge/internal/catalog"
	"epgbridge/internal/disambig"
	xglog "epgbridge/internal/log"
	"epgbridge/internal/match"
	"epgbridge/internal/normalize"
	"epgbridge/internal/playlist"
)

// Config tunes the decision thresholds and the disambiguation budget.
type Config struct {
	AutoAcceptThreshold int           // accept top candidate at or above this score
	ConfidenceFloor     int           // candidates at or below this score are noise
	Candidates          int           // similarity breadth (top-k)
	DisambigConcurrency int           // parallel disambiguation calls
	DisambigTimeout     time.Duration // per-call deadline, no retry
}

// DefaultConfig mirrors the operational defaults the thresholds were tuned at.
func DefaultConfig() Config {
	return Config{
		AutoAcceptThreshold: 98,
		ConfidenceFloor:     35,
		Candidates:          5,
		DisambigConcurrency: 4,
		DisambigTimeout:     45 * time.Second,
	}
}

// Stats counts terminal states per acceptance source and failure class.
type Stats struct {
	Cache         int // accepted from the learned store
	Seed          int // accepted from the built-in alias table
	Auto          int // accepted from a high-confidence similarity match
	Disambiguated int // accepted from the external disambiguator
	Stale         int // learned ids dropped because they left the valid set
	Skipped       int // short-circuited via the prior missing set
	Missing       int // unresolved this run
}

// Accepted returns the total number of accepted entries.
func (s Stats) Accepted() int {
	return s.Cache + s.Seed + s.Auto + s.Disambiguated
}

// Result is the outcome of one resolution run.
type Result struct {
	// Accepted maps raw channel name → canonical id for this run.
	Accepted map[string]string
	// Matches is the updated learned store to persist: the prior store minus
	// stale entries plus everything accepted this run.
	Matches map[string]string
	// Missing lists raw names that remain unresolved, for the missing log.
	Missing []string
	Stats   Stats
}

// Resolver owns the per-run working state. It is single-writer: one run, one
// goroutine mutating the working match map.
type Resolver struct {
	cat     *catalog.Catalog
	matcher *match.Matcher
	dis     disambig.Disambiguator
	cfg     Config
}

// New builds a resolver over the given catalog and disambiguator. dis may be
// nil, in which case ambiguous entries go straight to missing.
func New(cat *catalog.Catalog, dis disambig.Disambiguator, cfg Config) *Resolver {
	if cfg.Candidates <= 0 {
		cfg.Candidates = 5
	}
	if cfg.DisambigConcurrency <= 0 {
		cfg.DisambigConcurrency = 1
	}
	return &Resolver{
		cat:     cat,
		matcher: match.NewMatcher(cat),
		dis:     dis,
		cfg:     cfg,
	}
}

// pending is an ambiguous-band entry awaiting disambiguation.
type pending struct {
	name       string
	candidates map[string]string
}

// Resolve processes every entry exactly once. known is the persisted match
// store (not mutated; a working copy is returned in Result.Matches) and
// knownMissing the prior run's missing set. Returns an error only on context
// cancellation, so persisted state is never half-written.
func (r *Resolver) Resolve(ctx context.Context, entries []playlist.Entry, known map[string]string, knownMissing map[string]struct{}) (*Result, error) {
	logger := xglog.WithComponentFromContext(ctx, "resolver")

	working := make(map[string]string, len(known))
	for k, v := range known {
		working[k] = v
	}

	res := &Result{
		Accepted: map[string]string{},
		Matches:  working,
	}

	var queue []pending
	queued := map[string]struct{}{}
	seen := map[string]struct{}{}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := e.Name
		if _, dup := seen[name]; dup {
			continue // each raw name is decided once per run
		}
		seen[name] = struct{}{}

		// Tier 1: learned cache, with mandatory freshness re-check.
		staleRetry := false
		if id, ok := working[name]; ok {
			if r.cat.ValidID(id) {
				res.Accepted[name] = id
				res.Stats.Cache++
				continue
			}
			logger.Warn().
				Str(xglog.FieldChannel, name).
				Str(xglog.FieldChannelID, id).
				Str(xglog.FieldEvent, "resolve.stale").
				Msg("learned id left the reference data, rematching")
			delete(working, name)
			res.Stats.Stale++
			staleRetry = true
		}

		// Tier 2: known-missing short-circuit. A stale entry skips this
		// tier; it must be re-resolved this run.
		if !staleRetry {
			if _, miss := knownMissing[name]; miss {
				res.Missing = append(res.Missing, name)
				res.Stats.Skipped++
				continue
			}
		}

		// Tier 3a: built-in alias seed, exact on the normalized key.
		if id, ok := catalog.SeedLookup(normalize.Key(name)); ok && r.cat.ValidID(id) {
			r.accept(res, name, id)
			res.Stats.Seed++
			continue
		}

		// Tier 3b: similarity ranking.
		ranked := r.matcher.Rank(name, r.cfg.Candidates)
		if len(ranked) == 0 || ranked[0].Score <= r.cfg.ConfidenceFloor {
			res.Missing = append(res.Missing, name)
			res.Stats.Missing++
			continue
		}
		if ranked[0].Score >= r.cfg.AutoAcceptThreshold {
			r.accept(res, name, ranked[0].ID)
			res.Stats.Auto++
			continue
		}

		// Ambiguous band: queue for disambiguation with the candidates that
		// cleared the noise floor.
		if r.dis == nil {
			res.Missing = append(res.Missing, name)
			res.Stats.Missing++
			continue
		}
		cands := map[string]string{}
		for _, c := range ranked {
			if c.Score > r.cfg.ConfidenceFloor {
				cands[c.DisplayName] = c.ID
			}
		}
		if _, q := queued[name]; !q {
			queued[name] = struct{}{}
			queue = append(queue, pending{name: name, candidates: cands})
		}
	}

	if err := r.disambiguate(ctx, queue, res); err != nil {
		return nil, err
	}
	return res, nil
}

// accept records an accepted match in both the run result and the working
// learned store.
func (r *Resolver) accept(res *Result, name, id string) {
	res.Accepted[name] = id
	res.Matches[name] = id
}

type disambigOutcome struct {
	name string
	id   string
	ok   bool
}

// disambiguate runs the queued entries through the external capability with
// bounded concurrency and a per-call timeout. Failures degrade to no-match;
// only context cancellation aborts. An id the capability returns that was not
// offered in the candidate set is discarded as a hallucination.
func (r *Resolver) disambiguate(ctx context.Context, queue []pending, res *Result) error {
	if len(queue) == 0 {
		return nil
	}
	logger := xglog.WithComponentFromContext(ctx, "resolver")

	sem := make(chan struct{}, r.cfg.DisambigConcurrency)
	results := make(chan disambigOutcome, len(queue))
	var wg sync.WaitGroup

	for _, p := range queue {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results <- disambigOutcome{name: p.name}
				return
			}

			callCtx := ctx
			if r.cfg.DisambigTimeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, r.cfg.DisambigTimeout)
				defer cancel()
			}

			id, ok, err := r.dis.Resolve(callCtx, p.name, p.candidates)
			if err != nil {
				logger.Warn().
					Err(err).
					Str(xglog.FieldChannel, p.name).
					Str(xglog.FieldEvent, "disambig.failed").
					Msg("disambiguation failed, treating as no-match")
				results <- disambigOutcome{name: p.name}
				return
			}
			if ok && !candidateID(p.candidates, id) {
				logger.Warn().
					Str(xglog.FieldChannel, p.name).
					Str(xglog.FieldChannelID, id).
					Str(xglog.FieldEvent, "disambig.hallucination").
					Msg("disambiguator returned an id outside the offered candidates, discarded")
				results <- disambigOutcome{name: p.name}
				return
			}
			results <- disambigOutcome{name: p.name, id: id, ok: ok}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Single-writer finalize: result maps are only touched here.
	for out := range results {
		if out.ok {
			r.accept(res, out.name, out.id)
			res.Stats.Disambiguated++
			logger.Info().
				Str(xglog.FieldChannel, out.name).
				Str(xglog.FieldChannelID, out.id).
				Str(xglog.FieldEvent, "disambig.accepted").
				Msg("disambiguation accepted")
		} else {
			res.Missing = append(res.Missing, out.name)
			res.Stats.Missing++
		}
	}
	return ctx.Err()
}

func candidateID(candidates map[string]string, id string) bool {
	for _, v := range candidates {
		if v == id {
			return true
		}
	}
	return false
}
