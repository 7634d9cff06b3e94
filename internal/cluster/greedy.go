// Package cluster partitions a neighbor graph with a greedy one-hop rule.
//
// Seeds are taken in order of decreasing degree, references first. Each seed
// opens a cluster and absorbs its currently unassigned direct neighbors.
// Neighbors of neighbors are not pulled in, so the result is not the set of
// connected components: two adjacent genomes can land in different clusters
// when each was claimed by a different seed first.
package cluster

import (
	"sort"

	"mashclust/internal/graph"
	"mashclust/internal/reference"
)

// Cluster is an ordered list of genome ids. The seed comes first, followed by
// the absorbed neighbors in universe order.
type Cluster struct {
	Seed    string
	Members []string
}

// Size returns the number of members.
func (c Cluster) Size() int {
	return len(c.Members)
}

// Order returns ids in seed-processing order: references first when refs is
// non-empty, each group sorted by degree descending with ties kept in input
// order.
func Order(ids []string, g *graph.NeighborGraph, refs *reference.Set) []string {
	if refs.Len() == 0 {
		out := append([]string(nil), ids...)
		byDegree(out, g)
		return out
	}

	var refIDs, others []string
	for _, id := range ids {
		if refs.Contains(id) {
			refIDs = append(refIDs, id)
		} else {
			others = append(others, id)
		}
	}
	byDegree(refIDs, g)
	byDegree(others, g)
	return append(refIDs, others...)
}

func byDegree(ids []string, g *graph.NeighborGraph) {
	sort.SliceStable(ids, func(i, j int) bool {
		return g.Degree(ids[i]) > g.Degree(ids[j])
	})
}

// Greedy partitions ids into clusters. Every id ends up in exactly one
// cluster; isolated ids form singletons.
func Greedy(ids []string, g *graph.NeighborGraph, refs *reference.Set) []Cluster {
	order := Order(ids, g, refs)
	assigned := make(map[string]struct{}, len(order))
	clusters := make([]Cluster, 0)

	for _, seed := range order {
		if _, done := assigned[seed]; done {
			continue
		}

		c := Cluster{Seed: seed, Members: []string{seed}}
		assigned[seed] = struct{}{}

		for _, n := range g.Neighbors(seed) {
			if _, done := assigned[n]; done {
				continue
			}
			c.Members = append(c.Members, n)
			assigned[n] = struct{}{}
		}

		clusters = append(clusters, c)
	}

	return clusters
}

// Sizes returns the member count of each cluster, in cluster order.
func Sizes(clusters []Cluster) []int {
	out := make([]int, len(clusters))
	for i, c := range clusters {
		out[i] = c.Size()
	}
	return out
}
