// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"testing"
	"time"
)

func TestWriteTree(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mtime := time.Date(2022, 3, 4, 5, 6, 7, 0, time.UTC)
	WriteTree(t, root, map[string]string{
		"resource_lists/factorio/resources.yaml": "index_page_display_name: Factorio\n",
		"core/calculator.css":                    "body{}",
	}, mtime)

	if got := ReadFile(t, root, "core/calculator.css"); got != "body{}" {
		t.Errorf("content = %q", got)
	}
	if got := ModTime(t, root, "resource_lists/factorio/resources.yaml"); !got.Equal(mtime) {
		t.Errorf("mtime = %v, want %v", got, mtime)
	}
	if !Exists(t, root, "core") || Exists(t, root, "output") {
		t.Error("Exists() mismatch")
	}
}

func TestContainerParallelism(t *testing.T) {
	t.Setenv("RCBUILD_TEST_CONTAINER_PARALLEL", "5")
	if got := containerParallelism(); got != 5 {
		t.Errorf("containerParallelism() = %d, want 5", got)
	}
	t.Setenv("RCBUILD_TEST_CONTAINER_PARALLEL", "zero")
	if got := containerParallelism(); got < 1 || got > 2 {
		t.Errorf("containerParallelism() = %d, want fallback", got)
	}
}
