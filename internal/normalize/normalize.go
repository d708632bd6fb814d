// SPDX-License-Identifier: MIT

// Package normalize canonicalizes raw IPTV channel names into comparison keys.
package normalize

import (
	"regexp"
	"strings"

	unorm "golang.org/x/text/unicode/norm"
)

var (
	// "US| ESPN HD" style region prefixes added by playlist providers
	regionPrefix = regexp.MustCompile(`^[A-Z]+\|\s*`)
	space        = regexp.MustCompile(`\s+`)
	// resolution/format decorations that carry no channel identity
	decoration = regexp.MustCompile(`\s+(hd|sd|fhd|uhd|4k|hevc|raw)$`)
)

// Stylized unicode markers some providers decorate names with. The superscript
// forms must map onto their ASCII equivalents so they compare equal to plain
// "HD"/"FHD" decorations.
var markerReplacer = strings.NewReplacer(
	"ᴴᴰ", "HD",
	"ᶠᴴᴰ", "FHD",
	"ᵁᴴᴰ", "UHD",
	"ᴿᴬᵂ", "RAW",
	"ᴿᴬᴰ", "",
	"⁴ᴷ", "4K",
)

// Name canonicalizes a raw channel name into a comparison key.
// It strips a leading region prefix, maps stylized unicode markers to ASCII,
// collapses whitespace and trims. Pure and idempotent; malformed input
// degrades to a best-effort trimmed string, never fails.
func Name(raw string) string {
	s := unorm.NFC.String(raw)
	// Markers map to ASCII before the prefix strip: a stylized marker glued to
	// a region tag ("ᴴᴰUS| ...") rewrites into prefix material, and stripping
	// first would leave it for a second application to remove.
	s = markerReplacer.Replace(s)
	// Strip repeatedly so doubled prefixes ("US|UK| ...") cannot survive one
	// pass; this is what keeps Name idempotent.
	for {
		before := s
		s = regionPrefix.ReplaceAllString(s, "")
		if s == before {
			break
		}
	}
	s = space.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Key lowercases the canonical form and strips trailing resolution/format
// decorations ("HD", "FHD", "4K", ...) so that lookups and similarity
// comparisons treat "ESPN HD" and "espn" as the same channel. Decorations are
// stripped repeatedly to handle stacked suffixes like "ESPN HD RAW".
func Key(raw string) string {
	s := strings.ToLower(Name(raw))
	for {
		before := s
		s = decoration.ReplaceAllString(s, "")
		if s == before {
			break
		}
	}
	return s
}
