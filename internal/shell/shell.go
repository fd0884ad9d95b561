// SPDX-License-Identifier: MPL-2.0

// Package shell runs configured command lines (compilers, minifiers,
// linters) through an embedded POSIX shell interpreter, so command strings
// in the configuration behave the same on every platform.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// exitNotFound is the status the interpreter reports when a command cannot
// be resolved.
const exitNotFound = 127

// ErrCommandNotFound is returned when a script invokes a program that is
// not installed.
var ErrCommandNotFound = errors.New("command not found")

type (
	// ExitError reports a script that ran to completion with a non-zero
	// status.
	ExitError struct {
		Script string
		Code   int
	}

	// Runner executes scripts in a fixed directory and environment.
	Runner struct {
		// Dir is the working directory. Empty means the current directory.
		Dir string
		// Env is the environment as KEY=value pairs. Nil inherits the
		// process environment.
		Env []string
		// Stdout and Stderr receive the script's output. Nil discards it.
		Stdout io.Writer
		Stderr io.Writer
	}
)

func (e *ExitError) Error() string {
	return fmt.Sprintf("%q exited with status %d", e.Script, e.Code)
}

// Validate reports whether script parses.
func Validate(script string) error {
	_, err := parse(script)
	return err
}

// Run executes script with args bound to the positional parameters $1, $2
// and so on.
func (r Runner) Run(ctx context.Context, script string, args ...string) error {
	prog, err := parse(script)
	if err != nil {
		return err
	}

	env := r.Env
	if env == nil {
		env = os.Environ()
	}
	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, writerOrDiscard(r.Stdout), writerOrDiscard(r.Stderr)),
	}
	if r.Dir != "" {
		opts = append(opts, interp.Dir(r.Dir))
	}
	// "--" stops arguments like "-v" from being read as shell options.
	if len(args) > 0 {
		opts = append(opts, interp.Params(append([]string{"--"}, args...)...))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return fmt.Errorf("create interpreter: %w", err)
	}

	err = runner.Run(ctx, prog)
	if err == nil {
		return nil
	}
	var status interp.ExitStatus
	if errors.As(err, &status) {
		if int(status) == exitNotFound {
			return fmt.Errorf("%w: %s", ErrCommandNotFound, firstWord(script))
		}
		return &ExitError{Script: script, Code: int(status)}
	}
	return fmt.Errorf("run %q: %w", script, err)
}

// Lint runs a linter script. Lint problems and a missing linter are logged
// as warnings and never fail the build. An empty script is skipped.
func (r Runner) Lint(ctx context.Context, logger *log.Logger, script string, args ...string) {
	if strings.TrimSpace(script) == "" {
		return
	}
	err := r.Run(ctx, script, args...)
	switch {
	case err == nil:
	case errors.Is(err, ErrCommandNotFound):
		logger.Warn("linter is not available", "err", err)
	default:
		logger.Warn("linting failed", "err", err)
	}
}

func parse(script string) (*syntax.File, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(script), "command")
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", script, err)
	}
	return prog, nil
}

func firstWord(script string) string {
	if fields := strings.Fields(script); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
