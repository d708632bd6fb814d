// SPDX-License-Identifier: MIT

package playlist

import "strings"

// Filter is a declarative allow rule set over raw channel names. A rule
// matches when its marker appears anywhere in the name, which is how
// providers tag regions ("US| ESPN", "### US| LOCALS ###"). An empty rule
// set allows everything.
type Filter struct {
	markers []string
}

// NewFilter builds a filter from region markers such as "US|", "CA|", "UK|".
func NewFilter(markers []string) Filter {
	clean := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = strings.TrimSpace(m); m != "" {
			clean = append(clean, m)
		}
	}
	return Filter{markers: clean}
}

// Allow reports whether the entry passes the rule set.
func (f Filter) Allow(e Entry) bool {
	if len(f.markers) == 0 {
		return true
	}
	for _, m := range f.markers {
		if strings.Contains(e.Name, m) {
			return true
		}
	}
	return false
}

// Apply returns the entries that pass the rule set, preserving order.
func (f Filter) Apply(entries []Entry) []Entry {
	if len(f.markers) == 0 {
		return entries
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if f.Allow(e) {
			out = append(out, e)
		}
	}
	return out
}
