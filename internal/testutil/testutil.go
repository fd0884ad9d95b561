// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteTree creates files below root from slash-separated relative paths
// and sets each file's modification time to mtime. A zero mtime leaves the
// time at creation.
func WriteTree(t testing.TB, root string, files map[string]string, mtime time.Time) {
	t.Helper()
	for rel, content := range files {
		WriteFile(t, root, rel, content, mtime)
	}
}

// WriteFile creates one file below root, creating parent directories, and
// sets its modification time unless mtime is zero.
func WriteFile(t testing.TB, root, rel, content string, mtime time.Time) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", rel, err)
	}
	if !mtime.IsZero() {
		SetModTime(t, root, rel, mtime)
	}
}

// SetModTime sets the access and modification time of root/rel.
func SetModTime(t testing.TB, root, rel string, mtime time.Time) {
	t.Helper()
	if err := os.Chtimes(filepath.Join(root, filepath.FromSlash(rel)), mtime, mtime); err != nil {
		t.Fatalf("failed to set time on %s: %v", rel, err)
	}
}

// ModTime returns the modification time of root/rel.
func ModTime(t testing.TB, root, rel string) time.Time {
	t.Helper()
	info, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("failed to stat %s: %v", rel, err)
	}
	return info.ModTime()
}

// ReadFile returns the contents of root/rel.
func ReadFile(t testing.TB, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("failed to read %s: %v", rel, err)
	}
	return string(data)
}

// Exists reports whether root/rel exists.
func Exists(t testing.TB, root, rel string) bool {
	t.Helper()
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	if err == nil {
		return true
	}
	if !os.IsNotExist(err) {
		t.Fatalf("failed to stat %s: %v", rel, err)
	}
	return false
}
