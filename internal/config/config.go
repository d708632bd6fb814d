// SPDX-License-Identifier: MIT

// Package config loads epgbridge configuration with ENV > file > defaults
// precedence.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"epgbridge/internal/catalog"
)

// Config is the full runtime configuration for one run.
type Config struct {
	Playlist PlaylistConfig   `yaml:"playlist"`
	Sources  []catalog.Source `yaml:"sources"`
	Cache    CacheConfig      `yaml:"cache"`
	Match    MatchConfig      `yaml:"match"`
	Disambig DisambigConfig   `yaml:"disambiguator"`
	Paths    PathsConfig      `yaml:"paths"`
	Filter   FilterConfig     `yaml:"filter"`
	LogLevel string           `yaml:"log_level"`
}

// PlaylistConfig locates the live-stream provider.
type PlaylistConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// CacheConfig governs the reference-source cache.
type CacheConfig struct {
	Dir              string  `yaml:"dir"`
	MaxAgeHours      float64 `yaml:"max_age_hours"`
	FetchConcurrency int     `yaml:"fetch_concurrency"`
}

// MatchConfig tunes the similarity tiers.
type MatchConfig struct {
	AutoAcceptThreshold int `yaml:"auto_accept_threshold"`
	ConfidenceFloor     int `yaml:"confidence_floor"`
	Candidates          int `yaml:"candidates"`
}

// DisambigConfig configures the external disambiguation capability. The API
// key is environment-only so credentials never land in a config file.
type DisambigConfig struct {
	APIKey         string  `yaml:"-"`
	Model          string  `yaml:"model"`
	Concurrency    int     `yaml:"concurrency"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	CallsPerSecond float64 `yaml:"calls_per_second"`
}

// PathsConfig locates the persisted artifacts. PlaylistOut is optional; when
// set, the run also exports an M3U with resolved tvg-id attributes.
type PathsConfig struct {
	MatchStore  string `yaml:"match_store"`
	MissingLog  string `yaml:"missing_log"`
	Output      string `yaml:"output"`
	PlaylistOut string `yaml:"playlist_out"`
}

// FilterConfig restricts which playlist entries are resolved.
type FilterConfig struct {
	Categories []string `yaml:"categories"`
}

// MaxAge returns the cache max-age as a duration.
func (c CacheConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeHours * float64(time.Hour))
}

// Timeout returns the per-call disambiguation deadline.
func (d DisambigConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// Enabled reports whether disambiguation is usable this run.
func (d DisambigConfig) Enabled() bool { return d.APIKey != "" }

// Defaults returns the shipped configuration. The default sources mirror the
// feeds the match thresholds were tuned against.
func Defaults() Config {
	return Config{
		Sources: []catalog.Source{
			{URL: "https://epgshare01.online/epgshare01/epg_ripper_ALL_SOURCES1.xml.gz", CacheFile: "all_sources.xml.gz"},
			{URL: "https://epgshare01.online/epgshare01/epg_ripper_US_LOCALS2.xml.gz", CacheFile: "us_locals.xml.gz"},
			{URL: "https://www.open-epg.com/files/canada1.xml.gz", CacheFile: "canada.xml.gz"},
		},
		Cache: CacheConfig{
			Dir:              "./data/cache",
			MaxAgeHours:      24,
			FetchConcurrency: 3,
		},
		Match: MatchConfig{
			AutoAcceptThreshold: 98,
			ConfidenceFloor:     35,
			Candidates:          5,
		},
		Disambig: DisambigConfig{
			Model:          "gemini-2.0-flash",
			Concurrency:    4,
			TimeoutSeconds: 45,
			CallsPerSecond: 1,
		},
		Paths: PathsConfig{
			MatchStore: "./data/known_matches.json",
			MissingLog: "./logs/missing_channels.txt",
			Output:     "./data/epg_repair.xml.gz",
		},
		Filter: FilterConfig{
			Categories: []string{"US|", "CA|", "UK|"},
		},
		LogLevel: "info",
	}
}

// Loader resolves the effective configuration from an optional YAML file and
// the process environment.
type Loader struct {
	configPath string
}

// NewLoader creates a loader for the YAML file at configPath. An empty path
// means defaults plus environment only.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load resolves and validates the effective configuration.
func (l *Loader) Load() (Config, error) {
	cfg := Defaults()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		// Decode over the defaults so absent keys keep their values. List
		// fields replace wholesale when present.
		fileCfg := cfg
		fileCfg.Sources = nil
		fileCfg.Filter.Categories = nil
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
		if fileCfg.Sources == nil {
			fileCfg.Sources = cfg.Sources
		}
		if fileCfg.Filter.Categories == nil {
			fileCfg.Filter.Categories = cfg.Filter.Categories
		}
		cfg = fileCfg
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Playlist.URL, "EPGBRIDGE_XC_URL")
	setString(&cfg.Playlist.Username, "EPGBRIDGE_XC_USERNAME")
	setString(&cfg.Playlist.Password, "EPGBRIDGE_XC_PASSWORD")
	setString(&cfg.Cache.Dir, "EPGBRIDGE_CACHE_DIR")
	setString(&cfg.Paths.MatchStore, "EPGBRIDGE_MATCH_STORE")
	setString(&cfg.Paths.MissingLog, "EPGBRIDGE_MISSING_LOG")
	setString(&cfg.Paths.Output, "EPGBRIDGE_OUTPUT")
	setString(&cfg.Paths.PlaylistOut, "EPGBRIDGE_PLAYLIST_OUT")
	setString(&cfg.LogLevel, "EPGBRIDGE_LOG_LEVEL")
	setString(&cfg.Disambig.Model, "GEMINI_MODEL")
	setString(&cfg.Disambig.APIKey, "GEMINI_API_KEY")
	setFloat(&cfg.Cache.MaxAgeHours, "EPGBRIDGE_CACHE_MAX_AGE_HOURS")
	setInt(&cfg.Cache.FetchConcurrency, "EPGBRIDGE_FETCH_CONCURRENCY")
	setInt(&cfg.Match.AutoAcceptThreshold, "EPGBRIDGE_AUTO_ACCEPT_THRESHOLD")
	setInt(&cfg.Match.ConfidenceFloor, "EPGBRIDGE_CONFIDENCE_FLOOR")
	setInt(&cfg.Match.Candidates, "EPGBRIDGE_CANDIDATES")
	setInt(&cfg.Disambig.Concurrency, "EPGBRIDGE_DISAMBIG_CONCURRENCY")
	setInt(&cfg.Disambig.TimeoutSeconds, "EPGBRIDGE_DISAMBIG_TIMEOUT_SECONDS")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			*dst = f
		}
	}
}

// Validate checks the settings every command depends on. Playlist settings
// are only needed by a resolution run and are checked by ValidateRun, so
// report and deploy work without provider credentials.
func (c Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one reference source is required")
	}
	for i, s := range c.Sources {
		if s.URL == "" || s.CacheFile == "" {
			return fmt.Errorf("source %d: url and cache_file are required", i)
		}
	}
	if c.Match.AutoAcceptThreshold < 0 || c.Match.AutoAcceptThreshold > 100 {
		return fmt.Errorf("auto_accept_threshold must be within [0,100]")
	}
	if c.Match.ConfidenceFloor < 0 || c.Match.ConfidenceFloor > 100 {
		return fmt.Errorf("confidence_floor must be within [0,100]")
	}
	if c.Match.ConfidenceFloor >= c.Match.AutoAcceptThreshold {
		return fmt.Errorf("confidence_floor must be below auto_accept_threshold")
	}
	if c.Match.Candidates < 1 {
		return fmt.Errorf("candidates must be at least 1")
	}
	if c.Paths.Output == "" {
		return fmt.Errorf("output path is required")
	}
	return nil
}

// ValidateRun additionally checks the playlist settings a resolution run needs.
func (c Config) ValidateRun() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Playlist.URL == "" {
		return fmt.Errorf("playlist url is required")
	}
	u, err := url.Parse(c.Playlist.URL)
	if err != nil {
		return fmt.Errorf("invalid playlist url %q: %w", c.Playlist.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported playlist url scheme %q", u.Scheme)
	}
	return nil
}
