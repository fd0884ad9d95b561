// SPDX-License-Identifier: MPL-2.0

package fstime

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyTree_MergesIntoExisting(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	dst := t.TempDir()
	mustWrite(t, filepath.Join(src, "a.js"), "new a")
	mustWrite(t, filepath.Join(src, "sub", "b.js"), "b")
	mustWrite(t, filepath.Join(dst, "a.js"), "old a")
	mustWrite(t, filepath.Join(dst, "keep.js"), "keep")

	n, err := CopyTree(src, dst)
	if err != nil {
		t.Fatalf("CopyTree() error: %v", err)
	}
	if n != 2 {
		t.Errorf("copied %d files, want 2", n)
	}
	for name, want := range map[string]string{"a.js": "new a", "sub/b.js": "b", "keep.js": "keep"} {
		data, err := os.ReadFile(filepath.Join(dst, filepath.FromSlash(name)))
		if err != nil || string(data) != want {
			t.Errorf("%s = %q (%v), want %q", name, data, err, want)
		}
	}
}

func TestCopyFile_MissingSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := CopyFile(filepath.Join(dir, "nope"), filepath.Join(dir, "out")); err == nil {
		t.Error("CopyFile() should fail for a missing source")
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
