// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func TestLoadDefaultsWithEnvPlaylist(t *testing.T) {
	t.Setenv("EPGBRIDGE_XC_URL", "http://iptv.example.com")

	cfg, err := NewLoader("").Load()
	require.NoError(t, err)

	assert.Equal(t, "http://iptv.example.com", cfg.Playlist.URL)
	assert.Equal(t, 98, cfg.Match.AutoAcceptThreshold)
	assert.Equal(t, 35, cfg.Match.ConfidenceFloor)
	assert.Equal(t, 5, cfg.Match.Candidates)
	assert.Len(t, cfg.Sources, 3)
	assert.Equal(t, float64(24), cfg.Cache.MaxAgeHours)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
playlist:
  url: http://provider.example.com
  username: alice
  password: hunter2
sources:
  - url: http://epg.example.com/feed.xml.gz
    cache_file: feed.xml.gz
match:
  auto_accept_threshold: 95
paths:
  output: /tmp/out.xml.gz
filter:
  categories: ["DE|"]
`)
	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "alice", cfg.Playlist.Username)
	assert.Equal(t, 95, cfg.Match.AutoAcceptThreshold)
	assert.Equal(t, 35, cfg.Match.ConfidenceFloor, "absent keys keep their defaults")
	require.Len(t, cfg.Sources, 1, "a sources list replaces the default list")
	assert.Equal(t, "feed.xml.gz", cfg.Sources[0].CacheFile)
	assert.Equal(t, []string{"DE|"}, cfg.Filter.Categories)
	assert.Equal(t, "/tmp/out.xml.gz", cfg.Paths.Output)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
playlist:
  url: http://provider.example.com
match:
  auto_accept_threshold: 95
`)
	t.Setenv("EPGBRIDGE_AUTO_ACCEPT_THRESHOLD", "90")
	t.Setenv("GEMINI_API_KEY", "secret")

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.Match.AutoAcceptThreshold)
	assert.True(t, cfg.Disambig.Enabled())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing playlist url", func(c *Config) { c.Playlist.URL = "" }, "playlist url"},
		{"bad scheme", func(c *Config) { c.Playlist.URL = "ftp://x" }, "scheme"},
		{"no sources", func(c *Config) { c.Sources = nil }, "reference source"},
		{"floor above threshold", func(c *Config) { c.Match.ConfidenceFloor = 99 }, "confidence_floor"},
		{"threshold out of range", func(c *Config) { c.Match.AutoAcceptThreshold = 101 }, "auto_accept_threshold"},
		{"zero candidates", func(c *Config) { c.Match.Candidates = 0 }, "candidates"},
		{"no output", func(c *Config) { c.Paths.Output = "" }, "output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Playlist.URL = "http://iptv.example.com"
			tt.mutate(&cfg)
			err := cfg.ValidateRun()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadWithoutPlaylistForReportOnlyUse(t *testing.T) {
	// report and deploy need no provider; only a resolution run does.
	cfg, err := NewLoader("").Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	err = cfg.ValidateRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "playlist url")
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	assert.Error(t, err)
}

func TestDisambigTimeout(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "45s", cfg.Disambig.Timeout().String())
	assert.False(t, cfg.Disambig.Enabled())
}
