// SPDX-License-Identifier: MIT

package store

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio/v2"
)

// MissingLog persists the set of raw channel names a run could not resolve.
// One name per line, sorted for deterministic diffs; lines starting with '#'
// are operator comments and never round-trip.
type MissingLog struct {
	path string
}

// NewMissingLog returns a log backed by the given line file.
func NewMissingLog(path string) *MissingLog {
	return &MissingLog{path: filepath.Clean(path)}
}

// Path returns the backing file location.
func (l *MissingLog) Path() string { return l.path }

// Load reads the persisted set. Missing or unreadable files degrade to an
// empty set with an informational error.
func (l *MissingLog) Load() (map[string]struct{}, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]struct{}{}, nil
		}
		return map[string]struct{}{}, fmt.Errorf("read missing log: %w", err)
	}
	defer func() { _ = f.Close() }()

	names := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names[line] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return names, fmt.Errorf("scan missing log: %w", err)
	}
	return names, nil
}

// Save atomically replaces the log with the given names, deduplicated and
// sorted. Comment lines are excluded so a recycled log stays machine-clean.
func (l *MissingLog) Save(names []string) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	seen := map[string]struct{}{}
	clean := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || strings.HasPrefix(n, "#") {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		clean = append(clean, n)
	}
	sort.Strings(clean)

	var buf bytes.Buffer
	for _, n := range clean {
		buf.WriteString(n)
		buf.WriteByte('\n')
	}

	if err := renameio.WriteFile(l.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write missing log: %w", err)
	}
	return nil
}
