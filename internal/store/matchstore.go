// SPDX-License-Identifier: MIT

// Package store persists the learned match map and the missing-channel set
// across runs. Both artifacts are small flat documents the operator can edit
// by hand; saves are atomic, corrupt loads degrade to empty state.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// MatchStore is a durable map from raw playlist channel name to the canonical
// EPG id previously accepted for it. The key is the exact raw name, not the
// normalized form: once a playlist string has been resolved it must keep
// resolving the same way, and operator overrides are keyed by what the
// playlist actually says.
type MatchStore struct {
	path string
}

// NewMatchStore returns a store backed by the given JSON file.
func NewMatchStore(path string) *MatchStore {
	return &MatchStore{path: filepath.Clean(path)}
}

// Path returns the backing file location.
func (s *MatchStore) Path() string { return s.path }

// Load reads the persisted map. A missing or unreadable file degrades to an
// empty map; the returned error is informational so the caller can log the
// degradation, the map is always usable.
func (s *MatchStore) Load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return map[string]string{}, fmt.Errorf("read match store: %w", err)
	}

	matches := map[string]string{}
	if err := json.Unmarshal(data, &matches); err != nil {
		return map[string]string{}, fmt.Errorf("decode match store: %w", err)
	}
	return matches, nil
}

// Save atomically replaces the persisted map.
func (s *MatchStore) Save(matches map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	data, err := json.MarshalIndent(matches, "", "    ")
	if err != nil {
		return fmt.Errorf("encode match store: %w", err)
	}

	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write match store: %w", err)
	}
	return nil
}
