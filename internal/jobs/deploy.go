// SPDX-License-Identifier: MIT

package jobs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/klauspost/compress/gzip"
)

// Deploy copies the merged guide to its serving location, decompressing when
// the source carries a .gz suffix. Consumers like TiviMate want a plain
// epg.xml; the write is atomic so a reader never sees a partial document.
func Deploy(srcPath, dstPath string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open guide: %w", err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(srcPath, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip stream: %w", err)
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("create deploy dir: %w", err)
	}
	pending, err := renameio.NewPendingFile(filepath.Clean(dstPath))
	if err != nil {
		return fmt.Errorf("create pending deploy file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := io.Copy(pending, r); err != nil {
		return fmt.Errorf("copy guide: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("commit deploy file: %w", err)
	}
	return nil
}
