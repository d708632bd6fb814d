// SPDX-License-Identifier: MIT

package resolver

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epgbridge/internal/catalog"
	"epgbridge/internal/disambig"
	"epgbridge/internal/playlist"
)

type countingDisambiguator struct {
	calls atomic.Int32
	id    string
	ok    bool
	err   error
}

func (d *countingDisambiguator) Resolve(_ context.Context, _ string, _ map[string]string) (string, bool, error) {
	d.calls.Add(1)
	return d.id, d.ok, d.err
}

func testCatalog(entries ...[2]string) *catalog.Catalog {
	c := catalog.New()
	for _, e := range entries {
		c.Add(e[0], e[1])
	}
	return c
}

func entriesOf(names ...string) []playlist.Entry {
	out := make([]playlist.Entry, 0, len(names))
	for _, n := range names {
		out = append(out, playlist.Entry{Name: n})
	}
	return out
}

func noMissing() map[string]struct{} { return map[string]struct{}{} }

func TestCacheHitAcceptedWithoutExtraCalls(t *testing.T) {
	cat := testCatalog([2]string{"Whatever", "Cached.us"})
	dis := &countingDisambiguator{}
	r := New(cat, dis, DefaultConfig())

	known := map[string]string{"US| Obscure Feed": "Cached.us"}
	res, err := r.Resolve(context.Background(), entriesOf("US| Obscure Feed"), known, noMissing())
	require.NoError(t, err)

	assert.Equal(t, "Cached.us", res.Accepted["US| Obscure Feed"])
	assert.Equal(t, 1, res.Stats.Cache)
	assert.Equal(t, int32(0), dis.calls.Load(), "cache hit must not consult the disambiguator")
}

func TestStaleEntryDroppedAndRematched(t *testing.T) {
	// The cached id is gone from the reference data; the catalog offers a
	// perfect similarity match under a new id.
	cat := testCatalog([2]string{"Obscure Feed", "New.us"})
	r := New(cat, &countingDisambiguator{}, DefaultConfig())

	known := map[string]string{"US| Obscure Feed": "Gone.us"}
	// Even a prior missing-log entry must not short-circuit a stale retry.
	prevMissing := map[string]struct{}{"US| Obscure Feed": {}}

	res, err := r.Resolve(context.Background(), entriesOf("US| Obscure Feed"), known, prevMissing)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.Stale)
	assert.Equal(t, 1, res.Stats.Auto)
	assert.Equal(t, "New.us", res.Accepted["US| Obscure Feed"])
	assert.Equal(t, "New.us", res.Matches["US| Obscure Feed"], "working store must carry the rematch")
	assert.Empty(t, res.Missing)
	// The caller's map is never mutated.
	assert.Equal(t, "Gone.us", known["US| Obscure Feed"])
}

func TestKnownMissingShortCircuit(t *testing.T) {
	cat := testCatalog([2]string{"Ghost Channel", "Ghost.us"})
	dis := &countingDisambiguator{}
	r := New(cat, dis, DefaultConfig())

	prevMissing := map[string]struct{}{"US| Ghost Channel 999": {}}
	res, err := r.Resolve(context.Background(), entriesOf("US| Ghost Channel 999"), map[string]string{}, prevMissing)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.Skipped)
	assert.Contains(t, res.Missing, "US| Ghost Channel 999")
	assert.Equal(t, int32(0), dis.calls.Load(), "known-missing entries must not be re-queried")
}

func TestNoCandidateGoesMissing(t *testing.T) {
	cat := testCatalog([2]string{"ESPN", "ESPN.us"})
	r := New(cat, &countingDisambiguator{}, DefaultConfig())

	res, err := r.Resolve(context.Background(), entriesOf("JP| 全然違うチャンネル"), map[string]string{}, noMissing())
	require.NoError(t, err)

	assert.Empty(t, res.Accepted)
	assert.Equal(t, 1, res.Stats.Missing)
	assert.Contains(t, res.Missing, "JP| 全然違うチャンネル")
}

// "US| FOX Sports West" vs catalog "FOX Sports East" scores 93 with the
// token-set scorer, giving a stable probe for the auto-accept boundary.
func TestAutoAcceptBoundaryInclusive(t *testing.T) {
	cat := testCatalog([2]string{"FOX Sports East", "FSEast.us"})

	cfg := DefaultConfig()
	cfg.AutoAcceptThreshold = 93 // exactly at the candidate's score
	dis := &countingDisambiguator{}
	r := New(cat, dis, cfg)

	res, err := r.Resolve(context.Background(), entriesOf("US| FOX Sports West"), map[string]string{}, noMissing())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Auto, "score equal to the threshold must auto-accept")
	assert.Equal(t, "FSEast.us", res.Accepted["US| FOX Sports West"])
	assert.Equal(t, int32(0), dis.calls.Load())
}

func TestBelowThresholdRoutedToDisambiguation(t *testing.T) {
	cat := testCatalog([2]string{"FOX Sports East", "FSEast.us"})

	cfg := DefaultConfig()
	cfg.AutoAcceptThreshold = 94 // one above the candidate's score of 93
	dis := &countingDisambiguator{id: "FSEast.us", ok: true}
	r := New(cat, dis, cfg)

	res, err := r.Resolve(context.Background(), entriesOf("US| FOX Sports West"), map[string]string{}, noMissing())
	require.NoError(t, err)
	assert.Equal(t, int32(1), dis.calls.Load())
	assert.Equal(t, 1, res.Stats.Disambiguated)
	assert.Equal(t, "FSEast.us", res.Accepted["US| FOX Sports West"])
}

func TestHallucinatedIDDiscarded(t *testing.T) {
	cat := testCatalog([2]string{"FOX Sports East", "FSEast.us"})

	cfg := DefaultConfig()
	cfg.AutoAcceptThreshold = 94
	dis := &countingDisambiguator{id: "Fabricated.us", ok: true}
	r := New(cat, dis, cfg)

	res, err := r.Resolve(context.Background(), entriesOf("US| FOX Sports West"), map[string]string{}, noMissing())
	require.NoError(t, err)

	assert.Empty(t, res.Accepted, "an id outside the offered candidates must never be accepted")
	assert.NotContains(t, res.Matches, "US| FOX Sports West")
	assert.Contains(t, res.Missing, "US| FOX Sports West")
	assert.Equal(t, 1, res.Stats.Missing)
}

func TestDisambiguatorErrorIsLocal(t *testing.T) {
	cat := testCatalog(
		[2]string{"FOX Sports East", "FSEast.us"},
		[2]string{"ESPN", "ESPN.us"},
	)
	cfg := DefaultConfig()
	cfg.AutoAcceptThreshold = 94
	dis := &countingDisambiguator{err: errors.New("model quota exhausted")}
	r := New(cat, dis, cfg)

	res, err := r.Resolve(context.Background(),
		entriesOf("US| FOX Sports West", "US| ESPN HD"),
		map[string]string{}, noMissing())
	require.NoError(t, err, "a failed disambiguation call must not fail the run")

	assert.Contains(t, res.Missing, "US| FOX Sports West")
	assert.Equal(t, "ESPN.us", res.Accepted["US| ESPN HD"], "other entries keep resolving")
}

func TestDuplicateRawNamesProcessedOnce(t *testing.T) {
	cat := testCatalog([2]string{"FOX Sports East", "FSEast.us"})
	cfg := DefaultConfig()
	cfg.AutoAcceptThreshold = 94
	dis := &countingDisambiguator{id: "FSEast.us", ok: true}
	r := New(cat, dis, cfg)

	res, err := r.Resolve(context.Background(),
		entriesOf("US| FOX Sports West", "US| FOX Sports West", "US| FOX Sports West"),
		map[string]string{}, noMissing())
	require.NoError(t, err)
	assert.Equal(t, int32(1), dis.calls.Load(), "one disambiguation call per raw name per run")
	assert.Equal(t, 1, res.Stats.Disambiguated)
}

func TestSeedAliasTier(t *testing.T) {
	// "cbc fredericton" is in the seed table as CBAT.ca; the catalog carries
	// the id but under a display name similarity would not rank first.
	cat := testCatalog(
		[2]string{"CBAT-DT", "CBAT.ca"},
		[2]string{"CBC Television", "CBC.ca"},
	)
	dis := &countingDisambiguator{}
	r := New(cat, dis, DefaultConfig())

	res, err := r.Resolve(context.Background(), entriesOf("CA| CBC Fredericton"), map[string]string{}, noMissing())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Seed)
	assert.Equal(t, "CBAT.ca", res.Accepted["CA| CBC Fredericton"])
	assert.Equal(t, int32(0), dis.calls.Load())
}

func TestSeedAliasRequiresValidID(t *testing.T) {
	// Seed maps "espn" to ESPN.us, but the catalog does not carry that id;
	// the entry must fall through to similarity instead.
	cat := testCatalog([2]string{"ESPN Classic", "ESPNClassic.us"})
	r := New(cat, &countingDisambiguator{}, DefaultConfig())

	res, err := r.Resolve(context.Background(), entriesOf("US| ESPN"), map[string]string{}, noMissing())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Stats.Seed)
	assert.NotEqual(t, "ESPN.us", res.Accepted["US| ESPN"])
}

func TestCancelledContextAbortsWithoutResult(t *testing.T) {
	cat := testCatalog([2]string{"ESPN", "ESPN.us"})
	r := New(cat, nil, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Resolve(ctx, entriesOf("US| ESPN"), map[string]string{}, noMissing())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNilDisambiguatorSendsAmbiguousToMissing(t *testing.T) {
	cat := testCatalog([2]string{"FOX Sports East", "FSEast.us"})
	cfg := DefaultConfig()
	cfg.AutoAcceptThreshold = 94
	r := New(cat, nil, cfg)

	res, err := r.Resolve(context.Background(), entriesOf("US| FOX Sports West"), map[string]string{}, noMissing())
	require.NoError(t, err)
	assert.Contains(t, res.Missing, "US| FOX Sports West")
	_ = disambig.Func(nil) // keep the boundary type exercised in this package's tests
}
