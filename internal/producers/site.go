// SPDX-License-Identifier: MPL-2.0

package producers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"rcbuild/internal/config"
	"rcbuild/internal/rlcache"
	"rcbuild/internal/shell"
	"rcbuild/pkg/fstime"
	"rcbuild/pkg/producer"
)

// ResourceListFile is the resource list inside each calculator directory.
const ResourceListFile = "resources.yaml"

// Site builds the producer table for one project tree.
type Site struct {
	// Root is the project directory on the host. Producer paths are
	// relative to it.
	Root    string
	Config  *config.Config
	Options config.Options
	// Cache serves parsed resource lists to the page producer.
	Cache  *rlcache.Cache
	Logger *log.Logger
	// Stdout and Stderr receive the output of external commands.
	Stdout io.Writer
	Stderr io.Writer
}

// Producers returns every producer of the site in registration order:
// item images, calculator pages, then core assets.
func (s *Site) Producers() []*producer.Producer {
	var ps []*producer.Producer
	ps = append(ps, s.ItemImages())
	ps = append(ps, s.CalculatorPages())
	ps = append(ps, s.Core()...)
	return ps
}

// Registry registers Producers into a new registry.
func (s *Site) Registry() (*producer.Registry, error) {
	reg := producer.NewRegistry()
	if err := reg.Register(s.Producers()...); err != nil {
		return nil, fmt.Errorf("register site producers: %w", err)
	}
	return reg, nil
}

// ListCalculators returns the sorted names of the calculator directories
// directly below sourceDir in fsys. A missing source directory yields no
// calculators.
func ListCalculators(fsys fs.FS, sourceDir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, sourceDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list calculators: %w", err)
	}
	var calcs []string
	for _, e := range entries {
		if e.IsDir() {
			calcs = append(calcs, e.Name())
		}
	}
	slices.Sort(calcs)
	return calcs, nil
}

// CopyFile returns a transform that copies the matched file to its single
// output. Paths are resolved against root.
func CopyFile(root string) producer.TransformFunc {
	return func(_ context.Context, act producer.Activation) error {
		if err := producer.ExpectOutputs(act, 1); err != nil {
			return err
		}
		return fstime.CopyFile(hostPath(root, act.Path), hostPath(root, act.Outputs[0]))
	}
}

// calcPattern matches one calculator directory name, restricted to the
// run's calculator subset when there is one.
func (s *Site) calcPattern() string {
	limit := s.Options.LimitFiles()
	if len(limit) == 0 {
		return `(?P<calc>[^/]+)`
	}
	quoted := make([]string, 0, len(limit))
	for _, calc := range limit {
		quoted = append(quoted, regexp.QuoteMeta(calc))
	}
	return `(?P<calc>` + strings.Join(quoted, "|") + `)`
}

func (s *Site) shell() shell.Runner {
	return shell.Runner{Dir: s.Root, Stdout: s.Stdout, Stderr: s.Stderr}
}

func (s *Site) logger() *log.Logger {
	if s.Logger == nil {
		return log.New(io.Discard)
	}
	return s.Logger
}

func quotedDir(dir string) string {
	return regexp.QuoteMeta(path.Clean(filepath.ToSlash(dir)))
}

func hostPath(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}
