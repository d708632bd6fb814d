// SPDX-License-Identifier: MIT
package playlist

import (
	"strconv"
	"strings"
	"testing"
)

func TestWriteM3UTable(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		ids     map[string]string
		expect  []string
	}{
		{
			name:    "resolved entry carries the canonical id",
			entries: []Entry{{Name: "US| ESPN HD", Category: "US Sports", StreamID: 101}},
			ids:     map[string]string{"US| ESPN HD": "ESPN.us"},
			expect: []string{
				"#EXTM3U",
				`tvg-id="ESPN.us"`,
				`group-title="US Sports"`,
				",US| ESPN HD",
				"http://portal/live/101.ts",
			},
		},
		{
			name:    "unresolved entry keeps an empty tvg-id",
			entries: []Entry{{Name: "US| Ghost Channel 999", Category: "US", StreamID: 102}},
			ids:     map[string]string{},
			expect: []string{
				`tvg-id=""`,
				",US| Ghost Channel 999",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var b strings.Builder
			err := WriteM3U(&b, tc.entries, tc.ids, func(e Entry) string {
				return "http://portal/live/" + strconv.Itoa(e.StreamID) + ".ts"
			})
			if err != nil {
				t.Fatalf("WriteM3U failed: %v", err)
			}
			out := b.String()
			for _, want := range tc.expect {
				if !strings.Contains(out, want) {
					t.Fatalf("missing substring %q\n--- output ---\n%s", want, out)
				}
			}
			if strings.Count(out, "#EXTINF:") != len(tc.entries) {
				t.Fatalf("expected %d EXTINF lines, got %d", len(tc.entries), strings.Count(out, "#EXTINF:"))
			}
		})
	}
}

func TestWriteM3UNilStreamURL(t *testing.T) {
	var b strings.Builder
	err := WriteM3U(&b, []Entry{{Name: "CA| TSN 1"}}, map[string]string{"CA| TSN 1": "TSN1.ca"}, nil)
	if err != nil {
		t.Fatalf("WriteM3U failed: %v", err)
	}
	if got := strings.Count(b.String(), "\n"); got != 2 {
		t.Fatalf("expected header and one EXTINF line only, got %d lines", got)
	}
}
