// Package graph holds the threshold neighbor graph built from pairwise
// genome distances.
package graph

import "sort"

// NeighborGraph is an undirected, unweighted threshold graph over a fixed id
// universe. Every edge is stored in both directions and self loops are never
// recorded.
type NeighborGraph struct {
	// Node IDs in universe order (for index lookup)
	nodes   []string
	nodeIdx map[string]int

	// adj[i] is the set of neighbor indices of node i
	adj      []map[int]struct{}
	numEdges int
}

// NewNeighborGraph creates a graph containing every id in ids and no edges.
// Duplicate ids keep their first position.
func NewNeighborGraph(ids []string) *NeighborGraph {
	g := &NeighborGraph{
		nodes:   make([]string, 0, len(ids)),
		nodeIdx: make(map[string]int, len(ids)),
		adj:     make([]map[int]struct{}, 0, len(ids)),
	}
	for _, id := range ids {
		g.AddNode(id)
	}
	return g
}

// AddNode adds a node if it doesn't exist, returns its index.
func (g *NeighborGraph) AddNode(id string) int {
	if idx, ok := g.nodeIdx[id]; ok {
		return idx
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, id)
	g.nodeIdx[id] = idx
	g.adj = append(g.adj, make(map[int]struct{}))
	return idx
}

// Has reports whether id is part of the universe.
func (g *NeighborGraph) Has(id string) bool {
	_, ok := g.nodeIdx[id]
	return ok
}

// Connect records an undirected edge between a and b. Both must already be
// nodes; unknown ids and self loops are ignored. It reports whether a new
// edge was added.
func (g *NeighborGraph) Connect(a, b string) bool {
	ai, ok := g.nodeIdx[a]
	if !ok {
		return false
	}
	bi, ok := g.nodeIdx[b]
	if !ok {
		return false
	}
	return g.connectIdx(ai, bi)
}

func (g *NeighborGraph) connectIdx(ai, bi int) bool {
	if ai == bi {
		return false
	}
	if _, exists := g.adj[ai][bi]; exists {
		return false
	}
	g.adj[ai][bi] = struct{}{}
	g.adj[bi][ai] = struct{}{}
	g.numEdges++
	return true
}

// Adjacent reports whether a and b share an edge.
func (g *NeighborGraph) Adjacent(a, b string) bool {
	ai, ok := g.nodeIdx[a]
	if !ok {
		return false
	}
	bi, ok := g.nodeIdx[b]
	if !ok {
		return false
	}
	_, exists := g.adj[ai][bi]
	return exists
}

// Neighbors returns the neighbors of id in universe order.
func (g *NeighborGraph) Neighbors(id string) []string {
	idx, ok := g.nodeIdx[id]
	if !ok {
		return nil
	}
	order := make([]int, 0, len(g.adj[idx]))
	for n := range g.adj[idx] {
		order = append(order, n)
	}
	sort.Ints(order)

	out := make([]string, len(order))
	for i, n := range order {
		out[i] = g.nodes[n]
	}
	return out
}

// Degree returns the number of neighbors of id.
func (g *NeighborGraph) Degree(id string) int {
	idx, ok := g.nodeIdx[id]
	if !ok {
		return 0
	}
	return len(g.adj[idx])
}

// Nodes returns the id universe in insertion order.
func (g *NeighborGraph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// NumNodes returns the size of the universe.
func (g *NeighborGraph) NumNodes() int {
	return len(g.nodes)
}

// NumEdges returns the number of undirected edges.
func (g *NeighborGraph) NumEdges() int {
	return g.numEdges
}

// Adjacency returns id -> neighbors (universe order) for every node,
// including isolated ones.
func (g *NeighborGraph) Adjacency() map[string][]string {
	out := make(map[string][]string, len(g.nodes))
	for _, id := range g.nodes {
		out[id] = g.Neighbors(id)
	}
	return out
}
