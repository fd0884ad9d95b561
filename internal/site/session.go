// SPDX-License-Identifier: MPL-2.0

// Package site runs complete build passes over a resource calculator project:
// the producer pass followed by plugin publication, the index page and text
// compression.
package site

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"rcbuild/internal/build"
	"rcbuild/internal/config"
	"rcbuild/internal/postprocess"
	"rcbuild/internal/producers"
	"rcbuild/internal/rlcache"
	"rcbuild/internal/shell"
	"rcbuild/internal/staleness"
	"rcbuild/pkg/fstime"
)

// PluginsDir is the plugin directory inside a calculator, mirrored unchanged
// into the calculator's output directory.
const PluginsDir = "plugins"

type (
	// Session owns what outlives a single pass: the configuration, the run
	// options and the resource list cache. In watch mode one Session serves
	// every pass.
	Session struct {
		Root    string
		Config  *config.Config
		Options config.Options
		Cache   *rlcache.Cache
		Logger  *log.Logger
		Stdout  io.Writer
		Stderr  io.Writer
		// ToolModTime is the build tool's own modification time. Plugins are
		// republished when the tool is newer than their output.
		ToolModTime time.Time
	}

	// Result is the outcome of one pass.
	Result struct {
		Summary *build.Summary
		// Calculators are the calculators this pass covered, sorted.
		Calculators []string
		// Plugins lists the calculators whose plugins were republished.
		Plugins []string
		// IndexBuilt reports whether the index page was rendered.
		IndexBuilt bool
		// Compressed counts the gzip siblings written.
		Compressed int
		// Errors are post-processing failures. Producer failures live in
		// Summary.
		Errors []error
	}
)

// NewSession creates a Session rooted at root.
func NewSession(root string, cfg *config.Config, opts config.Options, logger *log.Logger) (*Session, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	cache, err := rlcache.New(rlcache.WithLogger(logger.WithPrefix("cache")))
	if err != nil {
		return nil, err
	}
	return &Session{
		Root:        root,
		Config:      cfg,
		Options:     opts,
		Cache:       cache,
		Logger:      logger,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		ToolModTime: executableModTime(),
	}, nil
}

// Err joins every producer and post-processing failure of the pass.
func (r *Result) Err() error {
	errs := append([]error(nil), r.Errors...)
	if r.Summary != nil {
		if err := r.Summary.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build runs one complete pass. The returned error is reserved for failures
// that stop the pass early, such as cancellation; individual producer and
// post-processing failures are reported through Result.Err.
func (s *Session) Build(ctx context.Context) (*Result, error) {
	runner := shell.Runner{Dir: s.Root, Stdout: s.Stdout, Stderr: s.Stderr}
	runner.Lint(ctx, s.Logger.WithPrefix("lint"), s.Config.Commands.Lint)

	site := &producers.Site{
		Root:    s.Root,
		Config:  s.Config,
		Options: s.Options,
		Cache:   s.Cache,
		Logger:  s.Logger.WithPrefix("producer"),
		Stdout:  s.Stdout,
		Stderr:  s.Stderr,
	}
	reg, err := site.Registry()
	if err != nil {
		return nil, err
	}

	fsys := fstime.OS(s.Root)
	oracle := &staleness.Oracle{
		FS:          fsys,
		Force:       s.Options.Force(),
		ToolModTime: s.ToolModTime,
		Ignore:      s.Config.IgnoreDirs,
	}
	exec := &build.Executor{
		Registry: reg,
		Oracle:   oracle,
		FS:       fsys,
		Root:     s.Root,
		Ignore:   s.Config.IgnoreDirs,
		Jobs:     s.Options.Jobs(),
		Logger:   s.Logger.WithPrefix("build"),
	}

	res := &Result{}
	res.Summary, err = exec.Run(ctx)
	if err != nil {
		return res, err
	}

	all, err := producers.ListCalculators(fsys, s.Config.SourceDir)
	if err != nil {
		res.Errors = append(res.Errors, err)
	}
	for _, calc := range all {
		if s.Options.Includes(calc) {
			res.Calculators = append(res.Calculators, calc)
		}
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	s.publishPlugins(oracle, res)

	if !s.Options.SkipIndex() {
		err := postprocess.BuildIndex(s.Cache, postprocess.IndexParams{
			Root:        s.Root,
			SourceDir:   s.Config.SourceDir,
			CoreDir:     s.Config.CoreDir,
			OutputDir:   s.Config.OutputDir,
			Calculators: res.Calculators,
			Logger:      s.Logger.WithPrefix("index"),
		})
		if err != nil {
			res.Errors = append(res.Errors, err)
		} else {
			res.IndexBuilt = true
		}
	}

	if !s.Options.SkipGzip() {
		n, err := postprocess.CompressTree(filepath.Join(s.Root, s.Config.OutputDir), s.Config.TextExtensions)
		res.Compressed = n
		if err != nil {
			res.Errors = append(res.Errors, err)
		}
	}

	for _, err := range res.Errors {
		s.Logger.Error("post-processing failed", "err", err)
	}
	return res, nil
}

func (s *Session) publishPlugins(oracle *staleness.Oracle, res *Result) {
	for _, calc := range res.Calculators {
		src := path.Join(s.Config.SourceDir, calc, PluginsDir)
		out := path.Join(s.Config.OutputDir, calc, PluginsDir)
		published, err := postprocess.PublishPlugins(oracle, s.Root, src, out, s.Options.SkipPlugins())
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("calculator %s: %w", calc, err))
			continue
		}
		if published {
			s.Logger.Info("published plugins", "calculator", calc)
			res.Plugins = append(res.Plugins, calc)
		}
	}
}

func executableModTime() time.Time {
	exe, err := os.Executable()
	if err != nil {
		return time.Time{}
	}
	info, err := os.Stat(exe)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
