// SPDX-License-Identifier: MIT

// Package disambig defines the external semantic-disambiguation capability:
// given a channel name and a small candidate set, pick at most one id.
package disambig

import "context"

// Disambiguator chooses among a bounded candidate set. candidates maps
// display name → canonical id. The returned id is only advisory; callers
// must verify it against the offered candidate values before trusting it.
type Disambiguator interface {
	Resolve(ctx context.Context, name string, candidates map[string]string) (id string, ok bool, err error)
}

// Func adapts a plain function to the Disambiguator interface.
type Func func(ctx context.Context, name string, candidates map[string]string) (string, bool, error)

// Resolve implements Disambiguator.
func (f Func) Resolve(ctx context.Context, name string, candidates map[string]string) (string, bool, error) {
	return f(ctx, name, candidates)
}
