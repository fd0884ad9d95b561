// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs build passes when the project tree changes.
//
// Watcher reacts to filesystem events and coalesces a burst of them into one
// pass after a quiet period. Poll re-runs on a fixed interval instead, for
// mounts that never deliver events (container volumes on some hosts).
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"rcbuild/pkg/fstime"
)

const defaultDebounce = 500 * time.Millisecond

// ErrAlreadyRunning is returned by a second call to Watcher.Run.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

// editorNoise is ignored regardless of configuration.
var editorNoise = []string{
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

type (
	// PassFunc runs one build pass. changed lists the paths, relative to the
	// watched root, that triggered it; it is nil for polled passes.
	PassFunc func(ctx context.Context, changed []string) error

	// Config holds the parameters for a Watcher.
	Config struct {
		// BaseDir is the project root. Empty means the working directory.
		BaseDir string
		// Ignore are doublestar patterns, relative to BaseDir, that never
		// trigger a pass. Use IgnorePatterns to derive them from directory
		// names.
		Ignore []string
		// Debounce is the quiet period after the last event before a pass.
		Debounce time.Duration
		// ClearScreen clears the terminal on Stdout before each pass.
		ClearScreen bool
		OnChange    PassFunc
		Logger      *log.Logger
		Stdout      io.Writer
	}

	// Watcher runs a debounced pass whenever files below BaseDir change.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		logger   *log.Logger
		stdout   io.Writer
		debounce time.Duration
		baseDir  string
		started  atomic.Bool
	}
)

// IgnorePatterns turns directory names (as in the build's ignore set) into
// patterns excluding those directories and everything below them at any
// depth. Entries that already contain a glob or a slash are anchored at the
// root instead.
func IgnorePatterns(dirs ...string) []string {
	out := make([]string, 0, 2*len(dirs))
	for _, d := range dirs {
		d = filepath.ToSlash(d)
		if strings.ContainsAny(d, "*?[{/") {
			out = append(out, Anchored(d)...)
			continue
		}
		out = append(out, "**/"+d, "**/"+d+"/**")
	}
	return out
}

// Anchored returns patterns excluding each root-relative directory and its
// contents. The build's own output and cache directories are excluded this
// way so a pass does not trigger the next one.
func Anchored(dirs ...string) []string {
	out := make([]string, 0, 2*len(dirs))
	for _, d := range dirs {
		d = strings.TrimSuffix(filepath.ToSlash(d), "/")
		out = append(out, d, d+"/**")
	}
	return out
}

// New validates cfg and registers every non-ignored directory below BaseDir.
func New(cfg Config) (*Watcher, error) {
	baseDir := cfg.BaseDir
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		baseDir = wd
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve base directory: %w", err)
	}

	for _, pat := range cfg.Ignore {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("watch: invalid ignore pattern %q", pat)
		}
	}
	cfg.Ignore = append(slices.Clone(cfg.Ignore), editorNoise...)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		logger:   cfg.Logger,
		stdout:   cfg.Stdout,
		debounce: cfg.Debounce,
		baseDir:  absBase,
	}
	if w.logger == nil {
		w.logger = log.New(io.Discard)
	}
	if w.stdout == nil {
		w.stdout = os.Stdout
	}
	if w.debounce <= 0 {
		w.debounce = defaultDebounce
	}

	if err := w.addDirectories(); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is canceled. It returns nil on
// cancellation and an error when the event source breaks down. A pass that
// is still running when the next one is due postpones it by one debounce
// period; pending paths are kept.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("previous pass still running, postponing")
			mu.Lock()
			timer.Reset(w.debounce)
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.ClearScreen {
			fmt.Fprint(w.stdout, "\033[2J\033[H")
		}
		w.logger.Info("change detected, rebuilding", "files", len(changed))
		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("build pass failed", "err", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close watcher", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed unexpectedly")
			}
			rel, err := filepath.Rel(w.baseDir, evt.Name)
			if err != nil {
				rel = evt.Name
			}
			if w.isIgnored(rel) {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}

			mu.Lock()
			pending[filepath.ToSlash(rel)] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

// Poll runs fn immediately and then once per interval, measured on clock,
// until ctx is canceled. A failing pass is logged and polling continues.
func Poll(ctx context.Context, clock fstime.Clock, interval time.Duration, fn PassFunc, logger *log.Logger) error {
	if clock == nil {
		clock = fstime.RealClock{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if interval <= 0 {
		interval = defaultDebounce
	}
	for {
		if err := fn(ctx, nil); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("build pass failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-clock.After(interval):
		}
	}
}

// addDirectories registers BaseDir and every non-ignored directory below it.
// Unreadable directories are skipped with a warning.
func (w *Watcher) addDirectories() error {
	err := filepath.WalkDir(w.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("not watching inaccessible path", "path", path, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.baseDir, path)
		if err != nil {
			return nil
		}
		if rel != "." && w.isIgnored(rel) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk directory tree: %w", err)
	}
	return nil
}

// maybeAddDir extends the watch to a directory created after start-up.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	rel, err := filepath.Rel(w.baseDir, path)
	if err != nil || w.isIgnored(rel) {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		w.logger.Warn("cannot watch new directory", "path", path, "err", err)
	}
}

func (w *Watcher) isIgnored(rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range w.cfg.Ignore {
		if ok, err := doublestar.Match(pat, normalized); err == nil && ok {
			return true
		}
	}
	return false
}
