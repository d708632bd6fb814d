// SPDX-License-Identifier: MIT

// Package catalog builds the merged reference catalog the resolver matches
// against: a display-name → canonical-id index plus the set of ids that are
// valid this run.
package catalog

import "strings"

// Catalog is the merged, read-only view over all configured reference
// sources. It is rebuilt once per run and never mutated afterwards.
type Catalog struct {
	byName   map[string]string
	names    []string // display names in merge order, for deterministic ranking
	validIDs map[string]struct{}
}

// New returns an empty catalog ready for merging.
func New() *Catalog {
	return &Catalog{
		byName:   map[string]string{},
		validIDs: map[string]struct{}{},
	}
}

// Add registers one display name for an id. The first registration of a
// display name wins; later sources cannot override it. The id always joins
// the valid set regardless of display-name collisions.
func (c *Catalog) Add(displayName, id string) {
	displayName = strings.TrimSpace(displayName)
	if id == "" {
		return
	}
	c.validIDs[id] = struct{}{}
	if displayName == "" {
		return
	}
	if _, exists := c.byName[displayName]; exists {
		return
	}
	c.byName[displayName] = id
	c.names = append(c.names, displayName)
}

// AddID registers an id as valid without any display name.
func (c *Catalog) AddID(id string) {
	if id != "" {
		c.validIDs[id] = struct{}{}
	}
}

// Lookup resolves a display name to its canonical id.
func (c *Catalog) Lookup(displayName string) (string, bool) {
	id, ok := c.byName[displayName]
	return id, ok
}

// Names returns the display names in merge order. Callers must not mutate
// the returned slice.
func (c *Catalog) Names() []string { return c.names }

// ValidID reports whether id appears in the current reference data.
func (c *Catalog) ValidID(id string) bool {
	_, ok := c.validIDs[id]
	return ok
}

// NameCount returns the number of indexed display names.
func (c *Catalog) NameCount() int { return len(c.byName) }

// IDCount returns the number of distinct valid ids.
func (c *Catalog) IDCount() int { return len(c.validIDs) }
