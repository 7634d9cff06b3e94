// Package selection picks a capped number of representatives per cluster.
package selection

import (
	"math/rand/v2"

	"mashclust/internal/cluster"
	"mashclust/internal/reference"
)

// DefaultSeed keeps representative sampling reproducible across runs.
const DefaultSeed uint64 = 42

// Selection is the outcome for one cluster.
type Selection struct {
	Seed            string   `json:"seed"`
	Representatives []string `json:"representatives"`
	// References counts how many representatives were reference ids.
	References int `json:"references"`
	// Sampled counts how many representatives were drawn at random.
	Sampled int `json:"sampled"`
}

// Selector samples representatives with an explicit, per-run generator.
type Selector struct {
	cap   int
	rng   *rand.Rand
	draws int
}

// NewSelector creates a selector allowing at most limit representatives per
// cluster. The generator is seeded from seed only, so identical inputs give
// identical selections.
func NewSelector(limit int, seed uint64) *Selector {
	if limit < 0 {
		limit = 0
	}
	return &Selector{
		cap: limit,
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Draws returns the number of random draws made so far.
func (s *Selector) Draws() int {
	return s.draws
}

// Select picks representatives for every cluster in order.
func (s *Selector) Select(clusters []cluster.Cluster, refs *reference.Set) []Selection {
	out := make([]Selection, len(clusters))
	for i, c := range clusters {
		out[i] = s.selectOne(c, refs)
	}
	return out
}

func (s *Selector) selectOne(c cluster.Cluster, refs *reference.Set) Selection {
	sel := Selection{Seed: c.Seed}

	if len(c.Members) <= s.cap {
		sel.Representatives = append([]string(nil), c.Members...)
		for _, m := range c.Members {
			if refs.Contains(m) {
				sel.References++
			}
		}
		return sel
	}

	picked := make([]string, 0, s.cap)
	pool := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		if refs.Contains(m) && len(picked) < s.cap {
			picked = append(picked, m)
			continue
		}
		if !refs.Contains(m) {
			pool = append(pool, m)
		}
	}
	sel.References = len(picked)

	slots := s.cap - len(picked)
	if slots < 0 {
		slots = 0
	}
	if slots > len(pool) {
		slots = len(pool)
	}

	sampled := s.sample(pool, slots)
	sel.Sampled = len(sampled)
	sel.Representatives = append(picked, sampled...)
	return sel
}

// sample draws k items uniformly without replacement using a partial
// Fisher-Yates shuffle. k must not exceed len(pool).
func (s *Selector) sample(pool []string, k int) []string {
	if k == 0 {
		return nil
	}
	work := append([]string(nil), pool...)
	for i := 0; i < k; i++ {
		j := i + s.rng.IntN(len(work)-i)
		work[i], work[j] = work[j], work[i]
		s.draws++
	}
	return work[:k]
}

// Flatten concatenates representatives in cluster order.
func Flatten(selections []Selection) []string {
	var out []string
	for _, sel := range selections {
		out = append(out, sel.Representatives...)
	}
	return out
}
