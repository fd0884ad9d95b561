// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"rcbuild/internal/dag"
	"rcbuild/pkg/producer"
)

type step struct {
	act producer.Activation
}

// reads returns every path the activation depends on: the matched source
// followed by the producer's extra inputs.
func (s *step) reads() []string {
	return append([]string{s.act.Path}, s.act.Inputs...)
}

// discover walks the tree and resolves one step per (file, claiming
// producer) pair. Resolution errors are recorded as failures.
func (e *Executor) discover(ctx context.Context, sum *Summary) ([]*step, error) {
	var steps []*step
	err := fs.WalkDir(e.FS, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p == "." {
			return nil
		}
		if e.ignored(p, d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		for _, m := range e.Registry.Match(p) {
			s, err := resolve(m)
			if err != nil {
				e.logger().Error("cannot resolve producer paths", "producer", m.Producer.Name, "input", p, "err", err)
				sum.fail(m.Producer.Name, p, err)
				continue
			}
			steps = append(steps, s)
		}
		return nil
	})
	return steps, err
}

func (e *Executor) ignored(p, name string) bool {
	for _, pattern := range e.Ignore {
		if pattern == name {
			return true
		}
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}

func resolve(m producer.Match) (*step, error) {
	outputs, err := m.Producer.Outputs(m)
	if err != nil {
		return nil, fmt.Errorf("resolve outputs: %w", err)
	}
	var inputs []string
	if m.Producer.Inputs != nil {
		if inputs, err = m.Producer.Inputs(m); err != nil {
			return nil, fmt.Errorf("resolve inputs: %w", err)
		}
	}
	return &step{act: producer.Activation{Match: m, Outputs: outputs, Inputs: inputs}}, nil
}

// groupByOutputs partitions steps into groups whose output sets overlap,
// transitively. Groups and their members keep discovery order.
func groupByOutputs(steps []*step) [][]int {
	parent := make([]int, len(steps))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	owner := make(map[string]int)
	for i, s := range steps {
		for _, out := range s.act.Outputs {
			j, ok := owner[out]
			if !ok {
				owner[out] = i
				continue
			}
			// The root of a set is always its lowest index.
			ri, rj := find(i), find(j)
			switch {
			case ri < rj:
				parent[rj] = ri
			case rj < ri:
				parent[ri] = rj
			}
		}
	}

	var groups [][]int
	index := make(map[int]int)
	for i := range steps {
		r := find(i)
		g, ok := index[r]
		if !ok {
			g = len(groups)
			index[r] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

// orderGroups arranges groups into levels. A group that reads a path
// produced by another group (or a directory containing one) is placed in a
// later level. Levels may run one after another with their groups in
// parallel.
func orderGroups(steps []*step, groups [][]int) ([][]int, error) {
	producedBy := make(map[string]int)
	for g, members := range groups {
		for _, i := range members {
			for _, out := range steps[i].act.Outputs {
				producedBy[out] = g
			}
		}
	}
	outputs := slices.Sorted(maps.Keys(producedBy))

	graph := dag.New[int]()
	for g := range groups {
		graph.AddNode(g)
	}
	for h, members := range groups {
		for _, i := range members {
			for _, r := range steps[i].reads() {
				for _, out := range producedUnder(outputs, r) {
					if g := producedBy[out]; g != h {
						graph.AddEdge(g, h)
					}
				}
			}
		}
	}
	return graph.Levels()
}

// producedUnder returns the entries of sorted that equal p or lie beneath
// it as a directory.
func producedUnder(sorted []string, p string) []string {
	var out []string
	if _, ok := slices.BinarySearch(sorted, p); ok {
		out = append(out, p)
	}
	prefix := strings.TrimSuffix(p, "/") + "/"
	i, _ := slices.BinarySearch(sorted, prefix)
	for ; i < len(sorted) && strings.HasPrefix(sorted[i], prefix); i++ {
		out = append(out, sorted[i])
	}
	return out
}

func discoveryOrder(n int) [][]int {
	levels := make([][]int, n)
	for g := range levels {
		levels[g] = []int{g}
	}
	return levels
}
