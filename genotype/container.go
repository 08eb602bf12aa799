package genotype

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"strconv"

	"evoens/ddg"
	"evoens/fitness"
)

// Container is an append-only arena of genotypes with their fitness
// values. Genotypes are never removed, so an index handed out once
// stays valid for the whole simulation run. Index 0 is the wildtype.
type Container struct {
	table *ddg.Table
	ev    *fitness.Evaluator

	genotypes    []*Genotype
	fitnesses    []float64
	numMutations []int
	parents      []int
}

// NewContainer creates a container seeded with the wildtype genotype.
// The evaluator must be built on the same ensemble the mutation effect
// table was resolved against.
func NewContainer(ev *fitness.Evaluator, table *ddg.Table) (*Container, error) {
	if ev.Prepared().Ensemble() != table.Ensemble() {
		return nil, fmt.Errorf("fitness evaluator and mutation table use different ensembles")
	}
	c := &Container{table: table, ev: ev}
	wt := New(table)
	c.genotypes = append(c.genotypes, wt)
	c.fitnesses = append(c.fitnesses, ev.Fitness(wt.MutEnergy()))
	c.numMutations = append(c.numMutations, 0)
	c.parents = append(c.parents, -1)
	return c, nil
}

// Len returns the number of genotypes seen so far.
func (c *Container) Len() int {
	return len(c.genotypes)
}

// Genotype returns the genotype stored at index i.
func (c *Container) Genotype(i int) *Genotype {
	return c.genotypes[i]
}

// Fitness returns the fitness of genotype i.
func (c *Container) Fitness(i int) float64 {
	return c.fitnesses[i]
}

// NumMutations returns the number of mutation events accumulated by
// genotype i since the wildtype, counting reversions and repeated
// mutations at the same site.
func (c *Container) NumMutations(i int) int {
	return c.numMutations[i]
}

// WildType returns the wildtype genotype.
func (c *Container) WildType() *Genotype {
	return c.genotypes[0]
}

// SequenceLength returns the number of mutable sites.
func (c *Container) SequenceLength() int {
	return c.table.NSites()
}

// Mutate copies genotype index, applies one random mutation, computes
// the fitness of the result and appends it, returning the new
// genotype's stable index.
func (c *Container) Mutate(index int, rng *rand.Rand) (int, error) {
	if index < 0 || index >= len(c.genotypes) {
		return 0, fmt.Errorf("genotype index %d out of range (have %d)", index, len(c.genotypes))
	}
	ng := c.genotypes[index].Copy()
	ng.Mutate(rng)

	newIndex := len(c.genotypes)
	c.genotypes = append(c.genotypes, ng)
	c.fitnesses = append(c.fitnesses, c.ev.Fitness(ng.MutEnergy()))
	c.numMutations = append(c.numMutations, c.numMutations[index]+1)
	c.parents = append(c.parents, index)
	return newIndex, nil
}

// WriteCSV exports every genotype seen: index, parent, the mutation
// string, the accumulated mutation count and the fitness.
func (c *Container) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"genotype", "parent", "mutations", "num_mutations", "fitness"}); err != nil {
		return err
	}
	for i, g := range c.genotypes {
		rec := []string{
			strconv.Itoa(i),
			strconv.Itoa(c.parents[i]),
			g.String(),
			strconv.Itoa(c.numMutations[i]),
			strconv.FormatFloat(c.fitnesses[i], 'g', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
