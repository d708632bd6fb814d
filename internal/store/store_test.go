// SPDX-License-Identifier: MIT

package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_matches.json")
	s := NewMatchStore(path)

	want := map[string]string{
		"US| ESPN HD":     "ESPN.us",
		"CA| CBC Toronto": "CBLT.ca",
	}
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchStoreMissingFile(t *testing.T) {
	s := NewMatchStore(filepath.Join(t.TempDir(), "nope.json"))
	got, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMatchStoreCorruptFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_matches.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	got, err := NewMatchStore(path).Load()
	assert.Error(t, err) // informational, caller logs and continues
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMatchStoreSaveReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_matches.json")
	s := NewMatchStore(path)

	require.NoError(t, s.Save(map[string]string{"A": "a.us", "B": "b.us"}))
	require.NoError(t, s.Save(map[string]string{"A": "a.us"}))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "a.us"}, got)
}

func TestMissingLogRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing_channels.txt")
	l := NewMissingLog(path)

	require.NoError(t, l.Save([]string{
		"US| Ghost Channel 999",
		"CA| Phantom TV",
		"US| Ghost Channel 999", // duplicate
		"# operator note",       // comment, dropped
		"   ",                   // blank, dropped
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "CA| Phantom TV\nUS| Ghost Channel 999\n", string(data))

	got, err := l.Load()
	require.NoError(t, err)
	assert.Len(t, got, 2)
	_, ok := got["US| Ghost Channel 999"]
	assert.True(t, ok)
}

func TestMissingLogSkipsComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing_channels.txt")
	content := "# header left by an old tool\nUS| Ghost Channel 999\n\n# another note\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := NewMissingLog(path).Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"US| Ghost Channel 999": {}}, got)
}

func TestMissingLogMissingFile(t *testing.T) {
	got, err := NewMissingLog(filepath.Join(t.TempDir(), "nope.txt")).Load()
	require.NoError(t, err)
	assert.Empty(t, got)
}
