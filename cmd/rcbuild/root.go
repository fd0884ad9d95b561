// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"rcbuild/internal/config"
	"rcbuild/internal/issue"
	"rcbuild/pkg/fstime"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type (
	// App carries the process-level collaborators shared by every command.
	App struct {
		Stdout io.Writer
		Stderr io.Writer
		Clock  fstime.Clock
	}

	// rootFlags are the persistent flags of every command.
	rootFlags struct {
		configPath string
		root       string
		verbose    bool
	}
)

// NewRootCommand builds the command tree. Running it without a subcommand
// performs a build.
func NewRootCommand(app *App) *cobra.Command {
	rf := &rootFlags{}
	bf := &buildFlags{}

	rootCmd := &cobra.Command{
		Use:   "rcbuild [flags] [calculator...]",
		Short: "Incremental builder for resource calculator sites",
		Long: TitleStyle.Render("rcbuild") + SubtitleStyle.Render(" - incremental builder for resource calculator sites") + `

rcbuild renders one page per calculator found in resource_lists/, publishes
item images and plugins, compiles and minifies the shared calculator script,
and assembles the index page. Only outputs older than their sources are
rebuilt.

` + SubtitleStyle.Render("Examples:") + `
  rcbuild                   Build the whole site
  rcbuild factorio          Build only the factorio calculator
  rcbuild --draft --watch   Fast rebuilds while editing
  rcbuild config show       Show the effective configuration`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, app, rf, bf, args)
		},
	}
	rootCmd.SetOut(app.Stdout)
	rootCmd.SetErr(app.Stderr)

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&rf.verbose, "verbose", "v", false, "enable verbose output")
	pf.StringVar(&rf.configPath, "config", "", "config file (default is <root>/rcbuild.cue when present)")
	pf.StringVar(&rf.root, "root", ".", "project root directory")
	bf.register(rootCmd)

	rootCmd.AddCommand(newConfigCommand(app, rf))
	rootCmd.AddCommand(newTouchCommand(app))
	rootCmd.AddCommand(newDeployCommand(app, rf))
	return rootCmd
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	app := &App{Stdout: os.Stdout, Stderr: os.Stderr, Clock: fstime.RealClock{}}
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// loadConfig resolves the configuration for the project at rf.root and
// returns the absolute root alongside it.
func loadConfig(ctx context.Context, rf *rootFlags) (*config.Config, string, string, error) {
	root, err := filepath.Abs(rf.root)
	if err != nil {
		return nil, "", "", fmt.Errorf("resolve project root: %w", err)
	}
	cfg, path, err := config.Load(ctx, config.LoadOptions{ConfigFilePath: rf.configPath, Root: root})
	if err != nil {
		return nil, "", "", err
	}
	return cfg, path, root, nil
}

func newLogger(w io.Writer, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{ReportTimestamp: false})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// use their own format, with the full chain in verbose mode.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// renderIssue prints the guide for id to w. Rendering problems are ignored;
// the guide is supplementary.
func renderIssue(w io.Writer, id issue.Id) {
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	if rendered, err := entry.Render(glamourStyle); err == nil {
		fmt.Fprint(w, rendered)
	}
}

func (a *App) clock() fstime.Clock {
	if a.Clock == nil {
		return fstime.RealClock{}
	}
	return a.Clock
}
