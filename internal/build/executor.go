// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"rcbuild/internal/dag"
	"rcbuild/internal/staleness"
	"rcbuild/pkg/fstime"
	"rcbuild/pkg/producer"
)

// ErrIncomplete is returned by Executor.Run when the executor is missing a
// required collaborator.
var ErrIncomplete = errors.New("executor is not fully configured")

var discard = log.New(io.Discard)

type (
	// Executor performs one build pass.
	Executor struct {
		// Registry supplies the producers for this run.
		Registry *producer.Registry
		// Oracle decides whether an activation is due.
		Oracle *staleness.Oracle
		// FS is the project tree that is walked.
		FS fstime.FS
		// Root is the host directory backing FS. Output parent directories
		// are created beneath it. Empty disables directory creation.
		Root string
		// Ignore lists directory names or doublestar globs excluded from the
		// walk.
		Ignore []string
		// Jobs bounds the number of groups run at once. Values below two run
		// one activation at a time.
		Jobs int
		// Logger receives per-activation progress. Nil discards it.
		Logger *log.Logger
	}

	// Failure records a producer activation that did not complete.
	Failure struct {
		Producer string
		Path     string
		Err      error
	}

	// Record describes an activation whose transform ran.
	Record struct {
		Producer string
		Path     string
		Outputs  []string
		Reason   staleness.Reason
	}

	// Summary is the outcome of a pass. It is safe for concurrent updates
	// while the pass runs.
	Summary struct {
		// Matched counts activations discovered by the walk.
		Matched int
		// Invoked counts transforms that completed.
		Invoked int
		// Skipped counts activations the oracle found up to date.
		Skipped  int
		Built    []Record
		Failures []Failure
		Duration time.Duration

		mu sync.Mutex
	}
)

func (f Failure) Error() string {
	return fmt.Sprintf("%s on %s: %v", f.Producer, f.Path, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Err returns nil when every activation succeeded, otherwise all failures
// joined into one error.
func (s *Summary) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(s.Failures))
	for _, f := range s.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

func (s *Summary) fail(p, src string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Failures = append(s.Failures, Failure{Producer: p, Path: src, Err: err})
}

func (s *Summary) skip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Skipped++
}

func (s *Summary) built(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Invoked++
	s.Built = append(s.Built, r)
}

// Run walks the tree and invokes every due activation. Transform failures
// are collected in the summary and do not stop the pass; the returned error
// is reserved for walk failures and cancellation.
func (e *Executor) Run(ctx context.Context) (*Summary, error) {
	if e.Registry == nil || e.Oracle == nil || e.FS == nil {
		return nil, ErrIncomplete
	}
	start := time.Now()
	sum := &Summary{}
	defer func() { sum.Duration = time.Since(start) }()

	steps, err := e.discover(ctx, sum)
	if err != nil {
		return sum, fmt.Errorf("walk project tree: %w", err)
	}
	sum.Matched = len(steps)

	groups := groupByOutputs(steps)
	levels, err := orderGroups(steps, groups)
	if err != nil {
		var cycle *dag.CycleError
		if errors.As(err, &cycle) {
			e.logger().Warn("producers read each other's outputs, using discovery order", "groups", cycle.Cycle)
		}
		levels = discoveryOrder(len(groups))
	}

	for _, level := range levels {
		if err := e.runLevel(ctx, steps, groups, level, sum); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func (e *Executor) runLevel(ctx context.Context, steps []*step, groups [][]int, level []int, sum *Summary) error {
	if e.Jobs <= 1 || len(level) == 1 {
		for _, g := range level {
			if err := e.runGroup(ctx, steps, groups[g], sum); err != nil {
				return err
			}
		}
		return nil
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(e.Jobs)
	for _, g := range level {
		eg.Go(func() error {
			return e.runGroup(gctx, steps, groups[g], sum)
		})
	}
	return eg.Wait()
}

func (e *Executor) runGroup(ctx context.Context, steps []*step, members []int, sum *Summary) error {
	for _, i := range members {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.runStep(ctx, steps[i], sum)
	}
	return nil
}

func (e *Executor) runStep(ctx context.Context, s *step, sum *Summary) {
	act := s.act
	name := act.Producer.Name
	logger := e.logger().With("producer", name, "input", act.Path)

	v, err := e.Oracle.Due(s.reads(), act.Outputs, act.Producer.Categories)
	if err != nil {
		logger.Error("staleness check failed", "err", err)
		sum.fail(name, act.Path, err)
		return
	}
	if !v.Due {
		logger.Debug("up to date")
		sum.skip()
		return
	}

	if err := e.prepareOutputs(act.Outputs); err != nil {
		logger.Error("cannot create output directory", "err", err)
		sum.fail(name, act.Path, err)
		return
	}
	if err := transform(ctx, act); err != nil {
		logger.Error("transform failed", "err", err)
		sum.fail(name, act.Path, err)
		return
	}

	logger.Info("built", "outputs", act.Outputs, "reason", v.Reason)
	sum.built(Record{Producer: name, Path: act.Path, Outputs: act.Outputs, Reason: v.Reason})
}

// transform runs the producer's transform, turning a panic into an error
// so one broken producer cannot take down the pass.
func transform(ctx context.Context, act producer.Activation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transform panicked: %v", r)
		}
	}()
	return act.Producer.Transform(ctx, act)
}

func (e *Executor) prepareOutputs(outputs []string) error {
	if e.Root == "" {
		return nil
	}
	for _, out := range outputs {
		dir := path.Dir(out)
		if dir == "." {
			continue
		}
		if err := os.MkdirAll(filepath.Join(e.Root, filepath.FromSlash(dir)), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func (e *Executor) logger() *log.Logger {
	if e.Logger == nil {
		return discard
	}
	return e.Logger
}
