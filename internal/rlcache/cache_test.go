// SPDX-License-Identifier: MPL-2.0

package rlcache

import (
	"errors"
	"io/fs"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeFiles struct {
	mu      sync.Mutex
	content map[string]string
	mtime   map[string]time.Time
	reads   atomic.Int64
	delay   time.Duration
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{content: map[string]string{}, mtime: map[string]time.Time{}}
}

func (f *fakeFiles) write(path, content string, mtime time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content[path] = content
	f.mtime[path] = mtime
}

func (f *fakeFiles) stat(path string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.mtime[path]
	if !ok {
		return time.Time{}, fs.ErrNotExist
	}
	return t, nil
}

func (f *fakeFiles) read(path string) ([]byte, error) {
	f.reads.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.content[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(c), nil
}

func newTestCache(t *testing.T, files *fakeFiles) *Cache {
	t.Helper()
	c, err := New(WithStat(files.stat), WithReadFile(files.read))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

const path = "resource_lists/factorio/resources.yaml"

func TestLoad_CacheCoherence(t *testing.T) {
	t.Parallel()

	files := newFakeFiles()
	files.write(path, "index_page_display_name: Factorio\n", t0)
	c := newTestCache(t, files)

	first, _, err := c.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if first.IndexPageDisplayName != "Factorio" {
		t.Fatalf("display name = %q", first.IndexPageDisplayName)
	}

	second, _, err := c.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if second != first {
		t.Error("unchanged mtime should return the cached list")
	}
	if c.Hits() != 1 || c.Misses() != 1 || files.reads.Load() != 1 {
		t.Errorf("hits=%d misses=%d reads=%d, want 1/1/1", c.Hits(), c.Misses(), files.reads.Load())
	}

	files.write(path, "index_page_display_name: Factorio 2\n", t0.Add(time.Second))
	third, _, err := c.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if third == first || third.IndexPageDisplayName != "Factorio 2" {
		t.Errorf("advanced mtime should reparse, got %q", third.IndexPageDisplayName)
	}
	if e, ok := c.Entry(path); !ok || !e.ModTime.Equal(t0.Add(time.Second)) {
		t.Errorf("entry not replaced: %+v", e)
	}
}

func TestLoad_OlderMtimeKeepsCache(t *testing.T) {
	t.Parallel()

	files := newFakeFiles()
	files.write(path, "index_page_display_name: A\n", t0)
	c := newTestCache(t, files)
	if _, _, err := c.Load(path); err != nil {
		t.Fatal(err)
	}

	files.write(path, "index_page_display_name: B\n", t0.Add(-time.Hour))
	list, _, err := c.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if list.IndexPageDisplayName != "A" {
		t.Errorf("display name = %q, want cached A", list.IndexPageDisplayName)
	}
}

func TestLoad_ReturnsParseErrorsWithPartialResult(t *testing.T) {
	t.Parallel()

	files := newFakeFiles()
	files.write(path, "index_page_display_name: Partial\nnot_a_field: 1\n", t0)
	c := newTestCache(t, files)

	list, errs, err := c.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(errs) != 1 {
		t.Errorf("token errors = %v, want 1", errs)
	}
	if list.IndexPageDisplayName != "Partial" {
		t.Errorf("partial result lost: %q", list.IndexPageDisplayName)
	}

	_, cachedErrs, _ := c.Load(path)
	if len(cachedErrs) != 1 {
		t.Errorf("cached errors = %v, want 1", cachedErrs)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, newFakeFiles())
	if _, _, err := c.Load("nope.yaml"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load() error = %v, want fs.ErrNotExist", err)
	}
}

func TestLoad_ConcurrentMissParsesOnce(t *testing.T) {
	t.Parallel()

	files := newFakeFiles()
	files.delay = 20 * time.Millisecond
	files.write(path, "index_page_display_name: Shared\n", t0)
	c := newTestCache(t, files)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := c.Load(path); err != nil {
				t.Errorf("Load() error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := files.reads.Load(); got != 1 {
		t.Errorf("file read %d times, want 1", got)
	}
	if c.Misses() != 1 {
		t.Errorf("misses = %d, want 1", c.Misses())
	}
}
