// SPDX-License-Identifier: MIT

// Package match ranks reference-catalog display names against a raw channel
// name using token-set similarity, so word order and resolution decorations
// do not affect the score.
package match

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"epgbridge/internal/catalog"
	"epgbridge/internal/normalize"
)

// Candidate is one ranked catalog entry. Score is 0..100.
type Candidate struct {
	DisplayName string
	ID          string
	Score       int
}

// Matcher scores the catalog's display names against queries. The normalized
// key of every name is precomputed once; the catalog is read-only for a run.
type Matcher struct {
	cat  *catalog.Catalog
	keys []string // aligned with cat.Names()
}

// NewMatcher prepares a matcher over the given catalog.
func NewMatcher(cat *catalog.Catalog) *Matcher {
	names := cat.Names()
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = normalize.Key(n)
	}
	return &Matcher{cat: cat, keys: keys}
}

// Rank returns the top k candidates for name in descending score order.
// Identical inputs always produce identical output: ties break by catalog
// merge order, which is stable within a run.
func (m *Matcher) Rank(name string, k int) []Candidate {
	query := normalize.Key(name)
	if query == "" || k <= 0 {
		return nil
	}
	queryTokens := strings.Fields(query)

	names := m.cat.Names()
	type scored struct {
		idx   int
		score int
	}
	top := make([]scored, 0, k+1)

	for i, key := range m.keys {
		s := TokenSetRatio(queryTokens, strings.Fields(key))
		if s == 0 {
			continue
		}
		top = append(top, scored{idx: i, score: s})
		if len(top) > k {
			// Keep only the k best; stable ordering by (score desc, idx asc).
			sort.Slice(top, func(a, b int) bool {
				if top[a].score != top[b].score {
					return top[a].score > top[b].score
				}
				return top[a].idx < top[b].idx
			})
			top = top[:k]
		}
	}

	sort.Slice(top, func(a, b int) bool {
		if top[a].score != top[b].score {
			return top[a].score > top[b].score
		}
		return top[a].idx < top[b].idx
	})

	out := make([]Candidate, 0, len(top))
	for _, s := range top {
		dn := names[s.idx]
		id, ok := m.cat.Lookup(dn)
		if !ok {
			continue
		}
		out = append(out, Candidate{DisplayName: dn, ID: id, Score: s.score})
	}
	return out
}

// TokenSetRatio scores two token lists 0..100, order-independently: the
// shared-token core is compared against each side's full token set, so a
// query whose tokens are a subset of the candidate (or vice versa) scores
// 100 regardless of word order.
func TokenSetRatio(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := toSet(a)
	setB := toSet(b)

	var inter, onlyA, onlyB []string
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			inter = append(inter, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range setB {
		if _, ok := setA[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(inter)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	core := strings.Join(inter, " ")
	full1 := joinNonEmpty(core, strings.Join(onlyA, " "))
	full2 := joinNonEmpty(core, strings.Join(onlyB, " "))

	best := ratio(core, full1)
	if r := ratio(core, full2); r > best {
		best = r
	}
	if r := ratio(full1, full2); r > best {
		best = r
	}
	return best
}

// ratio is a 0..100 similarity derived from edit distance.
func ratio(x, y string) int {
	if x == "" && y == "" {
		return 0
	}
	if x == y {
		return 100
	}
	total := len([]rune(x)) + len([]rune(y))
	if total == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(x, y)
	return (total - dist) * 100 / total
}

func toSet(tokens []string) map[string]struct{} {
	s := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		s[t] = struct{}{}
	}
	return s
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
