// SPDX-License-Identifier: MPL-2.0

// Package dag orders nodes of a directed acyclic graph. The build executor
// uses it to schedule groups of producer activations so that a group reading
// another group's outputs runs after it.
package dag

import (
	"fmt"
	"strings"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError struct {
		// Cycle lists the nodes left unordered. It contains at least every
		// node on a cycle.
		Cycle []string
	}

	// Graph is a directed graph over comparable keys. An edge from A to B
	// means A must complete before B starts.
	Graph[K comparable] struct {
		adjacency map[K][]K
		edges     map[[2]K]bool
		// nodes tracks all nodes in insertion order for deterministic output.
		nodes   []K
		nodeSet map[K]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New[K comparable]() *Graph[K] {
	return &Graph[K]{
		adjacency: make(map[K][]K),
		edges:     make(map[[2]K]bool),
		nodeSet:   make(map[K]bool),
	}
}

// Len returns the number of nodes.
func (g *Graph[K]) Len() int { return len(g.nodes) }

// AddNode adds a node to the graph. Adding an existing node is a no-op.
func (g *Graph[K]) AddNode(n K) {
	if g.nodeSet[n] {
		return
	}
	g.nodeSet[n] = true
	g.nodes = append(g.nodes, n)
}

// AddEdge adds a directed edge from -> to. Both nodes are added if missing
// and repeated edges are ignored.
func (g *Graph[K]) AddEdge(from, to K) {
	g.AddNode(from)
	g.AddNode(to)
	key := [2]K{from, to}
	if g.edges[key] {
		return
	}
	g.edges[key] = true
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Levels partitions the nodes into waves. Every node lands one level after
// the deepest of its predecessors, so nodes within a level are independent
// of each other. Within a level, nodes keep insertion order.
func (g *Graph[K]) Levels() ([][]K, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[K]int, len(g.nodes))
	for _, neighbors := range g.adjacency {
		for _, n := range neighbors {
			inDegree[n]++
		}
	}

	var current []K
	for _, n := range g.nodes {
		if inDegree[n] == 0 {
			current = append(current, n)
		}
	}

	var levels [][]K
	placed := 0
	for len(current) > 0 {
		levels = append(levels, current)
		placed += len(current)

		ready := make(map[K]bool)
		for _, n := range current {
			for _, next := range g.adjacency[n] {
				inDegree[next]--
				if inDegree[next] == 0 {
					ready[next] = true
				}
			}
		}
		var next []K
		for _, n := range g.nodes {
			if ready[n] {
				next = append(next, n)
			}
		}
		current = next
	}

	if placed != len(g.nodes) {
		var cycle []string
		for _, n := range g.nodes {
			if inDegree[n] > 0 {
				cycle = append(cycle, fmt.Sprint(n))
			}
		}
		return nil, &CycleError{Cycle: cycle}
	}
	return levels, nil
}
