// Package evolve drives finite populations of genotypes through
// discrete Wright-Fisher generations, either for a fixed number of
// generations or replayed along the branches of a phylogenetic tree.
package evolve

import (
	"sort"

	"evoens/genotype"
)

// Generation is a snapshot of one generation: genotype index to count.
type Generation map[int]int

// Size returns the total number of individuals in the snapshot.
func (g Generation) Size() (n int) {
	for _, c := range g {
		n += c
	}
	return
}

// MostFrequent returns the genotype index with the largest count.
// Ties resolve to the lowest index so the result is deterministic.
func (g Generation) MostFrequent() int {
	best := -1
	bestCount := -1
	for idx, count := range g {
		if count > bestCount || (count == bestCount && idx < best) {
			best = idx
			bestCount = count
		}
	}
	return best
}

// Population is the tagged initial-population variant: an explicit
// index array, a count map, or just a size (all wildtype). Whatever
// the construction, the canonical internal form is an index slice.
type Population struct {
	indices []int
}

// PopulationOfSize builds an all-wildtype population of n individuals.
func PopulationOfSize(n int) Population {
	if n < 1 {
		return Population{}
	}
	return Population{indices: make([]int, n)}
}

// PopulationFromIndices builds a population from an explicit genotype
// index array. The slice is copied.
func PopulationFromIndices(indices []int) Population {
	cp := make([]int, len(indices))
	copy(cp, indices)
	return Population{indices: cp}
}

// PopulationFromCounts expands a genotype-to-count map: {5:2, 4:1} is
// the population [4,5,5]. Keys expand in sorted order so the array is
// deterministic.
func PopulationFromCounts(counts Generation) Population {
	keys := make([]int, 0, len(counts))
	for idx := range counts {
		keys = append(keys, idx)
	}
	sort.Ints(keys)

	var indices []int
	for _, idx := range keys {
		for i := 0; i < counts[idx]; i++ {
			indices = append(indices, idx)
		}
	}
	return Population{indices: indices}
}

// Size returns the number of individuals.
func (p Population) Size() int {
	return len(p.indices)
}

// snapshot summarizes an index array into a Generation.
func snapshot(population []int) Generation {
	g := make(Generation)
	for _, idx := range population {
		g[idx]++
	}
	return g
}

// accumulatedMutations returns the accumulated mutation count of the
// most frequent genotype in a snapshot.
func accumulatedMutations(c *genotype.Container, g Generation) int {
	return c.NumMutations(g.MostFrequent())
}
