// SPDX-License-Identifier: MPL-2.0

// Package rlcache memoizes parsed and normalized resource lists per source
// file, invalidated by the file's modification time.
//
// The cache is an explicit object owned by a build session. Hits are served
// from an LRU; concurrent misses for the same path are collapsed so a file is
// parsed once no matter how many producers ask for it at the same time.
package rlcache

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"rcbuild/pkg/resourcelist"
)

// DefaultCapacity bounds the number of resource lists kept in memory.
const DefaultCapacity = 256

type (
	// Entry is one memoized parse.
	Entry struct {
		List *resourcelist.ResourceList
		// ModTime is the source file's modification time at parse time.
		ModTime time.Time
		// Errors are the token errors collected while parsing.
		Errors []resourcelist.TokenError
	}

	// StatFunc returns the modification time of path.
	StatFunc func(path string) (time.Time, error)

	// ReadFunc returns the contents of path.
	ReadFunc func(path string) ([]byte, error)

	// Option configures a Cache.
	Option func(*Cache)

	// Cache memoizes resource lists by path.
	Cache struct {
		entries  *lru.Cache[string, *Entry]
		group    singleflight.Group
		stat     StatFunc
		read     ReadFunc
		logger   *log.Logger
		capacity int
		hits     atomic.Int64
		misses   atomic.Int64
	}
)

// WithStat sets the timestamp source. The default reads file metadata.
func WithStat(fn StatFunc) Option {
	return func(c *Cache) { c.stat = fn }
}

// WithReadFile sets how file contents are read. The default is os.ReadFile.
func WithReadFile(fn ReadFunc) Option {
	return func(c *Cache) { c.read = fn }
}

// WithCapacity bounds the number of cached entries.
func WithCapacity(n int) Option {
	return func(c *Cache) { c.capacity = n }
}

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New creates a Cache.
func New(opts ...Option) (*Cache, error) {
	c := &Cache{
		stat:     osModTime,
		read:     os.ReadFile,
		capacity: DefaultCapacity,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}

	entries, err := lru.New[string, *Entry](c.capacity)
	if err != nil {
		return nil, fmt.Errorf("create resource list cache: %w", err)
	}
	c.entries = entries
	return c, nil
}

// Load returns the resource list for path together with its token errors.
// A cached entry is reused while the file's modification time is not newer
// than the time recorded at parse time; otherwise the file is re-read,
// parsed, normalized, and the entry replaced. I/O failures are returned as
// err and leave the cache untouched.
func (c *Cache) Load(path string) (*resourcelist.ResourceList, []resourcelist.TokenError, error) {
	modTime, err := c.stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("stat resource list %s: %w", path, err)
	}

	if e, ok := c.entries.Get(path); ok && !modTime.After(e.ModTime) {
		c.hits.Add(1)
		c.logger.Debug("using cached resource list", "path", path)
		return e.List, e.Errors, nil
	}

	v, err, _ := c.group.Do(path, func() (any, error) {
		// Another caller may have refreshed the entry while we waited.
		if e, ok := c.entries.Get(path); ok && !modTime.After(e.ModTime) {
			c.hits.Add(1)
			return e, nil
		}
		c.misses.Add(1)
		data, err := c.read(path)
		if err != nil {
			return nil, fmt.Errorf("read resource list %s: %w", path, err)
		}
		list, errs := resourcelist.Load(data)
		e := &Entry{List: list, ModTime: modTime, Errors: errs}
		c.entries.Add(path, e)
		c.logger.Debug("parsed resource list", "path", path, "errors", len(errs))
		return e, nil
	})
	if err != nil {
		return nil, nil, err
	}
	e := v.(*Entry)
	return e.List, e.Errors, nil
}

// Entry returns the cached entry for path without touching the filesystem.
func (c *Cache) Entry(path string) (*Entry, bool) {
	return c.entries.Peek(path)
}

// Hits returns the number of loads served from the cache.
func (c *Cache) Hits() int64 { return c.hits.Load() }

// Misses returns the number of loads that parsed the file.
func (c *Cache) Misses() int64 { return c.misses.Load() }

func osModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
