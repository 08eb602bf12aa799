package evolve

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/op/go-logging"

	"evoens/dist"
	"evoens/genotype"
)

// log is the package logging variable.
var log = logging.MustGetLogger("evolve")

// WrightFisher runs a Wright-Fisher simulation for exactly
// numGenerations generations and returns one snapshot per generation,
// generation 0 (the initial population) included.
//
// Each transition resamples the whole population with replacement,
// weighting every present genotype by fitness times count. A total
// weight of exactly zero (every genotype equally unfit) falls back to
// uniform resampling instead of stalling. The number of individuals to
// mutate is drawn from Poisson(mutationRate * populationSize), capped
// at the population size, and the first draws of the freshly resampled
// array are the ones mutated. New genotypes are appended to the
// container; indices already handed out never move.
func WrightFisher(c *genotype.Container, pop Population, mutationRate float64, numGenerations int, rng *rand.Rand) ([]Generation, error) {
	return wrightFisher(c, pop, mutationRate, numGenerations, 0, rng)
}

// wrightFisher optionally stops early once the most frequent genotype
// has accumulated targetMutations mutation events (0 disables the
// check; numGenerations stays the hard cap).
func wrightFisher(c *genotype.Container, pop Population, mutationRate float64, numGenerations int, targetMutations int, rng *rand.Rand) ([]Generation, error) {
	size := pop.Size()
	if size < 1 {
		return nil, fmt.Errorf("population size should be >= 1, got %d", size)
	}
	if mutationRate < 0 {
		return nil, fmt.Errorf("mutation rate should be >= 0, got %v", mutationRate)
	}
	if numGenerations < 1 {
		return nil, fmt.Errorf("number of generations should be >= 1, got %d", numGenerations)
	}

	population := make([]int, size)
	copy(population, pop.indices)
	for _, idx := range population {
		if idx < 0 || idx >= c.Len() {
			return nil, fmt.Errorf("population refers to unknown genotype %d", idx)
		}
	}

	expectedMutations := mutationRate * float64(size)
	generations := []Generation{snapshot(population)}

	for gen := 1; gen < numGenerations; gen++ {
		current := generations[len(generations)-1]

		// Present genotypes and their selection weights:
		// fitness times frequency. Sorted so the weight order does
		// not depend on map iteration and a seed reproduces the run.
		present := make([]int, 0, len(current))
		for idx := range current {
			present = append(present, idx)
		}
		sort.Ints(present)
		weights := make([]float64, len(present))
		total := 0.0
		for i, idx := range present {
			weights[i] = c.Fitness(idx) * float64(current[idx])
			total += weights[i]
		}
		if total == 0 {
			// Every genotype equally unfit: resample uniformly over
			// the population array, i.e. weight by frequency alone.
			for i, idx := range present {
				weights[i] = float64(current[idx])
			}
		}

		drawn := dist.Multinomial(rng, weights, size)
		for i, d := range drawn {
			population[i] = present[d]
		}

		numToMutate := dist.Poisson(rng, expectedMutations)
		if numToMutate > size {
			numToMutate = size
		}
		// The first numToMutate slots of the resampled array are
		// mutated, not a random subset. The resampling draw order is
		// random, so this is the documented historical behavior of
		// the engine, kept as is.
		for j := 0; j < numToMutate; j++ {
			newIndex, err := c.Mutate(population[j], rng)
			if err != nil {
				return nil, err
			}
			population[j] = newIndex
		}

		generations = append(generations, snapshot(population))

		if targetMutations > 0 {
			last := generations[len(generations)-1]
			if accumulatedMutations(c, last) >= targetMutations {
				log.Debugf("reached %d accumulated mutations at generation %d", targetMutations, gen)
				break
			}
		}
	}

	return generations, nil
}
