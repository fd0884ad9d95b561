// SPDX-License-Identifier: MPL-2.0

package postprocess

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rcbuild/internal/staleness"
	"rcbuild/pkg/fstime"
)

// PublishPlugins mirrors a calculator's plugin directory source into output
// (both relative to root) when the oracle finds the output missing or older
// than the source tree or the build tool. It reports whether anything was
// copied. A missing source directory is not an error.
//
// After copying, the output directory's own modification time is set to
// now: overwriting existing files does not change it, and it is the time
// the next staleness check compares against.
func PublishPlugins(o *staleness.Oracle, root, source, output string, skip bool) (bool, error) {
	if skip {
		return false, nil
	}
	ok, err := fstime.Exists(o.FS, source)
	if err != nil || !ok {
		return false, err
	}

	v, err := o.DirDue(source, output)
	if err != nil {
		return false, fmt.Errorf("check plugins %s: %w", source, err)
	}
	if !v.Due {
		return false, nil
	}

	dst := filepath.Join(root, filepath.FromSlash(output))
	if _, err := fstime.CopyTree(filepath.Join(root, filepath.FromSlash(source)), dst); err != nil {
		return false, fmt.Errorf("publish plugins %s: %w", source, err)
	}
	now := time.Now()
	if err := os.Chtimes(dst, now, now); err != nil {
		return true, fmt.Errorf("publish plugins %s: %w", source, err)
	}
	return true, nil
}
