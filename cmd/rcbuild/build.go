// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"rcbuild/internal/config"
	"rcbuild/internal/issue"
	"rcbuild/internal/report"
	"rcbuild/internal/shell"
	"rcbuild/internal/site"
	"rcbuild/internal/watch"
)

// buildFlags mirror config.Flags; limit_files come from positional args.
type buildFlags struct {
	watch           bool
	draft           bool
	noUglifyJS      bool
	noGzip          bool
	noIndex         bool
	noImageCompress bool
	noPlugins       bool
	forceHTML       bool
	forceImage      bool
	jobs            int
}

func (bf *buildFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&bf.watch, "watch", false, "rebuild whenever a source file changes")
	f.BoolVar(&bf.draft, "draft", false, "skip minification, compression, the index page, image compression and plugins")
	f.BoolVar(&bf.noUglifyJS, "no-uglify-js", false, "copy the calculator script instead of minifying it")
	f.BoolVar(&bf.noGzip, "no-gz", false, "do not write gzip siblings")
	f.BoolVar(&bf.noIndex, "no-index", false, "do not render the index page")
	f.BoolVar(&bf.noImageCompress, "no-image-compress", false, "copy item images without recompressing them")
	f.BoolVar(&bf.noPlugins, "no-plugins", false, "do not publish calculator plugins")
	f.BoolVar(&bf.forceHTML, "force-html", false, "re-render every calculator page")
	f.BoolVar(&bf.forceImage, "force-image", false, "reprocess every item image")
	f.IntVarP(&bf.jobs, "jobs", "j", 0, "parallel producer groups (default from config)")
}

func (bf *buildFlags) toFlags(limitFiles []string, verbose bool) config.Flags {
	return config.Flags{
		LimitFiles:      limitFiles,
		Watch:           bf.watch,
		Draft:           bf.draft,
		NoUglifyJS:      bf.noUglifyJS,
		NoGzip:          bf.noGzip,
		NoIndex:         bf.noIndex,
		NoImageCompress: bf.noImageCompress,
		NoPlugins:       bf.noPlugins,
		ForceHTML:       bf.forceHTML,
		ForceImage:      bf.forceImage,
		Jobs:            bf.jobs,
		Verbose:         verbose,
	}
}

func runBuild(cmd *cobra.Command, app *App, rf *rootFlags, bf *buildFlags, args []string) error {
	ctx := cmd.Context()
	logger := newLogger(app.Stderr, rf.verbose)

	cfg, cfgPath, root, err := loadConfig(ctx, rf)
	if err != nil {
		fmt.Fprintln(app.Stderr, ErrorStyle.Render("✗ ")+formatErrorForDisplay(err, rf.verbose))
		renderIssue(app.Stderr, issue.ConfigLoadFailedId)
		return &ExitError{Code: 2, Err: err}
	}
	if cfgPath != "" {
		logger.Debug("loaded configuration", "path", cfgPath)
	}
	if err := checkLayout(root, cfg); err != nil {
		fmt.Fprintln(app.Stderr, ErrorStyle.Render("✗ ")+formatErrorForDisplay(err, rf.verbose))
		return &ExitError{Code: 2, Err: err}
	}

	opts := config.NewOptions(cfg, bf.toFlags(args, rf.verbose))
	if len(args) > 0 {
		logger.Info("building a subset of calculators", "calculators", strings.Join(args, ", "))
	}

	sess, err := site.NewSession(root, cfg, opts, logger)
	if err != nil {
		return err
	}
	sess.Stdout = app.Stdout
	sess.Stderr = app.Stderr

	if opts.Watch() {
		return runWatch(ctx, app, sess, logger, rf.verbose)
	}

	res, err := sess.Build(ctx)
	if err != nil {
		return err
	}
	printResult(app.Stdout, app.Stderr, res, rf.verbose)
	if err := res.Err(); err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	return nil
}

func runWatch(ctx context.Context, app *App, sess *site.Session, logger *log.Logger, verbose bool) error {
	cfg := sess.Config
	pass := func(ctx context.Context, changed []string) error {
		if len(changed) > 0 {
			logger.Info("rebuilding", "changed", len(changed))
			logger.Debug("changed files", "paths", changed)
		}
		res, err := sess.Build(ctx)
		if err != nil {
			return err
		}
		printResult(app.Stdout, app.Stderr, res, verbose)
		return res.Err()
	}

	if cfg.Watch.Poll {
		interval, err := cfg.Watch.PollDuration()
		if err != nil {
			return err
		}
		logger.Info("polling for changes", "interval", interval)
		return ignoreCanceled(watch.Poll(ctx, app.clock(), interval, pass, logger))
	}

	debounce, err := cfg.Watch.DebounceDuration()
	if err != nil {
		return err
	}
	ignore := append(watch.IgnorePatterns(cfg.IgnoreDirs...), watch.Anchored(cfg.OutputDir, cfg.CacheDir)...)
	w, err := watch.New(watch.Config{
		BaseDir:  sess.Root,
		Ignore:   ignore,
		Debounce: debounce,
		OnChange: pass,
		Logger:   logger.WithPrefix("watch"),
		Stdout:   app.Stdout,
	})
	if err != nil {
		return err
	}

	// An initial pass brings the tree up to date before waiting for edits.
	if err := pass(ctx, nil); err != nil && ctx.Err() == nil {
		logger.Error("initial build failed", "err", err)
	}
	logger.Info("watching for changes", "root", sess.Root)
	return ignoreCanceled(w.Run(ctx))
}

// checkLayout fails early when the source or core directory is missing.
func checkLayout(root string, cfg *config.Config) error {
	for _, dir := range []string{cfg.SourceDir, cfg.CoreDir} {
		path := filepath.Join(root, dir)
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			continue
		}
		if err == nil {
			err = fmt.Errorf("%s is not a directory", path)
		}
		return issue.NewErrorContext().
			WithOperation("find project directory").
			WithResource(path).
			WithSuggestion("run rcbuild from the site repository or pass --root").
			WithSuggestion("check source_dir and core_dir in the configuration").
			WithIssue(issue.ProjectLayoutId).
			Wrap(err).
			BuildError()
	}
	return nil
}

// printResult writes the one-line summary, and the full report in verbose
// mode. Failure guides go to stderr.
func printResult(stdout, stderr io.Writer, res *site.Result, verbose bool) {
	sum := res.Summary
	failed := len(sum.Failures) + len(res.Errors)
	if failed == 0 {
		fmt.Fprintln(stdout, SuccessStyle.Render("✓ ")+fmt.Sprintf("built %d, up to date %d in %s",
			sum.Invoked, sum.Skipped, sum.Duration.Round(time.Millisecond)))
	} else {
		fmt.Fprintln(stderr, ErrorStyle.Render("✗ ")+fmt.Sprintf("%d failures, built %d, up to date %d",
			failed, sum.Invoked, sum.Skipped))
	}

	if verbose {
		if out, err := report.Render(res, glamourStyle); err == nil {
			fmt.Fprint(stdout, out)
		}
	}
	if failed == 0 {
		return
	}
	err := res.Err()
	if errors.Is(err, shell.ErrCommandNotFound) {
		renderIssue(stderr, issue.ToolNotFoundId)
	} else if verbose {
		renderIssue(stderr, issue.ProducerFailedId)
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
