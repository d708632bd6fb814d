// SPDX-License-Identifier: MIT

// Package report triages the missing-channel log into actionable buckets so a
// human can tell real coverage gaps apart from junk feeds.
package report

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"epgbridge/internal/normalize"
)

// Category is a triage bucket for one missing channel name.
type Category string

const (
	CategoryUSLocals        Category = "US Locals"
	CategoryUSSports        Category = "US Sports"
	CategoryUSEntertainment Category = "US Entertainment"
	CategoryUK              Category = "United Kingdom"
	CategoryCanada          Category = "Canada"
	CategoryInternational   Category = "International"
)

// bucketOrder fixes the section order of the rendered report.
var bucketOrder = []Category{
	CategoryUSLocals,
	CategoryUSSports,
	CategoryUSEntertainment,
	CategoryUK,
	CategoryCanada,
	CategoryInternational,
}

// movieYear matches VOD-style titles carrying a release year, which are not
// broadcast channels at all.
var movieYear = regexp.MustCompile(`\((19|20)\d{2}\)`)

// junkMarkers identify feed noise that no reference catalog will ever carry.
var junkMarkers = []string{
	"24/7",
	"###",
	"ppv",
	"pay-per-view",
	"vod",
	"24-7",
	"test channel",
	"placeholder",
}

// sportsMarkers pull a US entry into the sports bucket.
var sportsMarkers = []string{
	"espn", "fox sports", "fs1", "fs2", "nfl", "nba", "mlb", "nhl",
	"golf", "tennis", "bally", "cbs sports", "nbc sports", "big ten",
	"sec network", "accn", "mls", "wwe", "ufc",
}

// localsMarkers pull a US entry into the locals bucket. Affiliate call signs
// and network-plus-city patterns both land here.
var localsMarkers = []string{
	"abc ", "nbc ", "cbs ", "fox ", "cw ", "pbs", "mynetwork", "telemundo",
	"univision", "ion ",
}

// huntMarkers flag tier-1 channels whose absence is worth chasing by hand.
var huntMarkers = []string{
	"espn", "hbo", "showtime", "tsn", "sportsnet", "sky sports",
	"fox news", "cnn", "msnbc", "amc", "discovery", "nfl network",
}

// Triage is the classified view of one missing-channel log.
type Triage struct {
	Buckets map[Category][]string
	Junk    []string
	Hunt    []string
	Total   int
}

// IsJunk reports whether the raw name is feed noise rather than a channel.
func IsJunk(raw string) bool {
	key := normalize.Key(raw)
	if movieYear.MatchString(raw) {
		return true
	}
	for _, m := range junkMarkers {
		if strings.Contains(key, m) {
			return true
		}
	}
	return false
}

// Classify assigns a non-junk name to its bucket.
func Classify(raw string) Category {
	key := normalize.Key(raw)
	switch {
	case strings.HasPrefix(raw, "UK|"):
		return CategoryUK
	case strings.HasPrefix(raw, "CA|"):
		return CategoryCanada
	case strings.HasPrefix(raw, "US|"):
		for _, m := range sportsMarkers {
			if strings.Contains(key, m) {
				return CategoryUSSports
			}
		}
		for _, m := range localsMarkers {
			if strings.Contains(key+" ", m) {
				return CategoryUSLocals
			}
		}
		return CategoryUSEntertainment
	default:
		return CategoryInternational
	}
}

// Analyze triages the given missing names. Input order is not significant;
// every bucket comes back sorted.
func Analyze(names []string) Triage {
	t := Triage{
		Buckets: map[Category][]string{},
		Total:   len(names),
	}
	for _, name := range names {
		if IsJunk(name) {
			t.Junk = append(t.Junk, name)
			continue
		}
		cat := Classify(name)
		t.Buckets[cat] = append(t.Buckets[cat], name)

		key := normalize.Key(name)
		for _, m := range huntMarkers {
			if strings.Contains(key, m) {
				t.Hunt = append(t.Hunt, name)
				break
			}
		}
	}
	sort.Strings(t.Junk)
	sort.Strings(t.Hunt)
	for _, names := range t.Buckets {
		sort.Strings(names)
	}
	return t
}

// Actionable returns the number of entries that are genuine coverage gaps.
func (t Triage) Actionable() int {
	return t.Total - len(t.Junk)
}

// Write renders the triage as a plain-text report.
func (t Triage) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Missing channel triage: %d entries, %d actionable, %d junk\n",
		t.Total, t.Actionable(), len(t.Junk)); err != nil {
		return err
	}
	if len(t.Hunt) > 0 {
		if _, err := fmt.Fprintf(w, "\nPriority hunt list (%d):\n", len(t.Hunt)); err != nil {
			return err
		}
		for _, name := range t.Hunt {
			if _, err := fmt.Fprintf(w, "  ! %s\n", name); err != nil {
				return err
			}
		}
	}
	for _, cat := range bucketOrder {
		names := t.Buckets[cat]
		if len(names) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "\n%s (%d):\n", cat, len(names)); err != nil {
			return err
		}
		for _, name := range names {
			if _, err := fmt.Fprintf(w, "  - %s\n", name); err != nil {
				return err
			}
		}
	}
	if len(t.Junk) > 0 {
		if _, err := fmt.Fprintf(w, "\nJunk (%d):\n", len(t.Junk)); err != nil {
			return err
		}
		for _, name := range t.Junk {
			if _, err := fmt.Fprintf(w, "  x %s\n", name); err != nil {
				return err
			}
		}
	}
	return nil
}
