// SPDX-License-Identifier: MPL-2.0

package postprocess

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// GzipSuffix is appended to the name of a compressed sibling.
const GzipSuffix = ".gz"

// DefaultTextExtensions are compressed when no list is configured.
var DefaultTextExtensions = []string{".html", ".css", ".js"}

// CompressTree writes a gzip sibling next to every file under root whose
// extension is in exts, so a web server can serve the pre-compressed form.
// Originals are never modified or removed and existing .gz files are not
// compressed again. A sibling is rewritten only when it is missing or older
// than its source. A missing root is an empty tree. It returns the number of
// siblings written.
func CompressTree(root string, exts []string) (int, error) {
	if len(exts) == 0 {
		exts = DefaultTextExtensions
	}
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	written := 0
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, GzipSuffix) || !slices.Contains(exts, filepath.Ext(p)) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if gz, err := os.Stat(p + GzipSuffix); err == nil && !info.ModTime().After(gz.ModTime()) {
			return nil
		}

		if err := gzipFile(p, p+GzipSuffix); err != nil {
			return err
		}
		written++
		return nil
	})
	if err != nil {
		return written, fmt.Errorf("compress %s: %w", root, err)
	}
	return written, nil
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	zw, err := gzip.NewWriterLevel(out, gzip.BestCompression)
	if err != nil {
		_ = out.Close()
		return err
	}
	zw.Name = filepath.Base(src)
	if _, err := io.Copy(zw, in); err != nil {
		_ = zw.Close()
		_ = out.Close()
		return fmt.Errorf("gzip %s: %w", src, err)
	}
	if err := zw.Close(); err != nil {
		_ = out.Close()
		return fmt.Errorf("gzip %s: %w", src, err)
	}
	return out.Close()
}
