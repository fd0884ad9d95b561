// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

func TestLevels_EmptyGraph(t *testing.T) {
	t.Parallel()
	levels, err := New[string]().Levels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if levels != nil {
		t.Errorf("expected nil, got %v", levels)
	}
}

func TestLevels_LinearChain(t *testing.T) {
	t.Parallel()
	g := New[string]()
	g.AddEdge("tsc", "uglify")
	g.AddEdge("uglify", "gzip")
	levels, err := g.Levels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var order []string
	for _, level := range levels {
		if len(level) != 1 {
			t.Fatalf("levels = %v, want one node per level", levels)
		}
		order = append(order, level[0])
	}
	if want := []string{"tsc", "uglify", "gzip"}; !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestLevels_Diamond(t *testing.T) {
	t.Parallel()
	g := New[int]()
	g.AddEdge(0, 1)
	g.AddEdge(0, 2)
	g.AddEdge(1, 3)
	g.AddEdge(2, 3)
	levels, err := g.Levels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]int{{0}, {1, 2}, {3}}
	if len(levels) != len(want) {
		t.Fatalf("levels = %v, want %v", levels, want)
	}
	for i := range want {
		if !slices.Equal(levels[i], want[i]) {
			t.Errorf("level %d = %v, want %v", i, levels[i], want[i])
		}
	}
}

func TestLevels_DisconnectedKeepInsertionOrder(t *testing.T) {
	t.Parallel()
	g := New[int]()
	for _, n := range []int{4, 2, 9} {
		g.AddNode(n)
	}
	g.AddEdge(7, 2)
	levels, err := g.Levels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(levels[0], []int{4, 9, 7}) || !slices.Equal(levels[1], []int{2}) {
		t.Errorf("levels = %v", levels)
	}
}

func TestLevels_LongestPathDecidesLevel(t *testing.T) {
	t.Parallel()
	g := New[string]()
	g.AddEdge("a", "c")
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	levels, err := g.Levels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(levels) != 3 || levels[2][0] != "c" {
		t.Errorf("levels = %v, want c in the third level", levels)
	}
}

func TestLevels_Cycle(t *testing.T) {
	t.Parallel()
	g := New[string]()
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddEdge("C", "A")
	g.AddEdge("root", "A")
	_, err := g.Levels()
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if !slices.Equal(cycleErr.Cycle, []string{"A", "B", "C"}) {
		t.Errorf("cycle = %v", cycleErr.Cycle)
	}
}

func TestLevels_SelfLoop(t *testing.T) {
	t.Parallel()
	g := New[int]()
	g.AddEdge(1, 1)
	if _, err := g.Levels(); err == nil {
		t.Fatal("expected error for self-loop")
	}
}

func TestAddEdge_DuplicatesIgnored(t *testing.T) {
	t.Parallel()
	g := New[string]()
	g.AddEdge("A", "B")
	g.AddEdge("A", "B")
	levels, err := g.Levels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Len() != 2 || len(levels) != 2 {
		t.Errorf("len=%d levels=%v", g.Len(), levels)
	}
}

func TestCycleError_Message(t *testing.T) {
	t.Parallel()
	err := &CycleError{Cycle: []string{"A", "B"}}
	if got, want := err.Error(), "dependency cycle detected: A -> B"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
