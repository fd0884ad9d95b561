// SPDX-License-Identifier: MPL-2.0

package fstime

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"time"
)

type (
	// FS is the read-only view of a project tree used for timestamp queries.
	// Paths are slash-separated and relative to the tree root, as in io/fs.
	FS interface {
		fs.StatFS
		fs.ReadDirFS
	}

	// Clock abstracts the current time. RealClock is used in production;
	// tests inject a fake (see internal/testutil).
	Clock interface {
		Now() time.Time
		After(d time.Duration) <-chan time.Time
	}

	// RealClock implements Clock using the system time.
	RealClock struct{}

	osFS struct {
		fs.FS
	}
)

// Now returns the current system time.
func (RealClock) Now() time.Time { return time.Now() }

// After returns a channel that receives after d.
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// OS returns an FS rooted at dir on the host filesystem.
func OS(dir string) FS {
	return osFS{FS: os.DirFS(dir)}
}

func (o osFS) Stat(name string) (fs.FileInfo, error) {
	return fs.Stat(o.FS, name)
}

func (o osFS) ReadDir(name string) ([]fs.DirEntry, error) {
	return fs.ReadDir(o.FS, name)
}

// Exists reports whether name exists in fsys. Errors other than
// fs.ErrNotExist are returned.
func Exists(fsys FS, name string) (bool, error) {
	_, err := fsys.Stat(name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// ModTime returns the modification time of name.
func ModTime(fsys FS, name string) (time.Time, error) {
	info, err := fsys.Stat(name)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Newest returns the newest modification time found at name. For a regular
// file that is the file's own time. For a directory the directory itself and
// every nested entry are considered; entries whose base name appears in
// ignore are skipped along with their subtrees.
func Newest(fsys FS, name string, ignore ...string) (time.Time, error) {
	info, err := fsys.Stat(name)
	if err != nil {
		return time.Time{}, err
	}
	newest := info.ModTime()
	if !info.IsDir() {
		return newest, nil
	}

	stack := []string{name}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := fsys.ReadDir(dir)
		if err != nil {
			return time.Time{}, fmt.Errorf("read %s: %w", dir, err)
		}
		for _, entry := range entries {
			if slices.Contains(ignore, entry.Name()) {
				continue
			}
			child := path.Join(dir, entry.Name())
			childInfo, err := entry.Info()
			if err != nil {
				return time.Time{}, fmt.Errorf("stat %s: %w", child, err)
			}
			if childInfo.ModTime().After(newest) {
				newest = childInfo.ModTime()
			}
			if entry.IsDir() {
				stack = append(stack, child)
			}
		}
	}
	return newest, nil
}

// Oldest returns the oldest modification time of any file under name. For a
// regular file that is the file's own time. Directories contribute only
// through the files they contain; a tree with no files yields the zero time.
func Oldest(fsys FS, name string) (time.Time, error) {
	info, err := fsys.Stat(name)
	if err != nil {
		return time.Time{}, err
	}
	if !info.IsDir() {
		return info.ModTime(), nil
	}

	var (
		oldest time.Time
		found  bool
		stack  = []string{name}
	)
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := fsys.ReadDir(dir)
		if err != nil {
			return time.Time{}, fmt.Errorf("read %s: %w", dir, err)
		}
		for _, entry := range entries {
			child := path.Join(dir, entry.Name())
			if entry.IsDir() {
				stack = append(stack, child)
				continue
			}
			childInfo, err := entry.Info()
			if err != nil {
				return time.Time{}, fmt.Errorf("stat %s: %w", child, err)
			}
			if !found || childInfo.ModTime().Before(oldest) {
				oldest = childInfo.ModTime()
				found = true
			}
		}
	}
	return oldest, nil
}

// TouchTree sets the access and modification time of every file below root
// (a host path) to t. Directories are descended but not touched themselves.
func TouchTree(root string, t time.Time) (int, error) {
	touched := 0
	stack := []string{root}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			return touched, fmt.Errorf("read %s: %w", dir, err)
		}
		for _, entry := range entries {
			child := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				stack = append(stack, child)
				continue
			}
			if err := os.Chtimes(child, t, t); err != nil {
				return touched, fmt.Errorf("touch %s: %w", child, err)
			}
			touched++
		}
	}
	return touched, nil
}
