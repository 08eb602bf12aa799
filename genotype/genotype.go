// Package genotype tracks points in mutation space during an
// evolutionary simulation: which sites are mutated, which mutation
// each site carries, and the cumulative energetic offset this produces
// for every ensemble species.
package genotype

import (
	"math/rand"
	"strings"

	"evoens/ddg"
)

// Genotype is an accumulated set of mutations. A site carries at most
// one mutation at a time: mutating an already-mutated site first
// reverts its current contribution. The mutation effect table is
// shared by reference between all genotypes derived from it.
type Genotype struct {
	table *ddg.Table

	sites     []int
	mutations []string
	mutEnergy []float64
}

// New returns the wildtype genotype: no mutations, zero offsets.
func New(table *ddg.Table) *Genotype {
	return &Genotype{
		table:     table,
		mutEnergy: make([]float64, table.Ensemble().NSpecies()),
	}
}

// Copy returns a genotype sharing the mutation effect table by
// reference but holding independent copies of the mutable state, so
// mutating the copy never affects the original.
func (g *Genotype) Copy() *Genotype {
	ng := &Genotype{
		table:     g.table,
		sites:     make([]int, len(g.sites)),
		mutations: make([]string, len(g.mutations)),
		mutEnergy: make([]float64, len(g.mutEnergy)),
	}
	copy(ng.sites, g.sites)
	copy(ng.mutations, g.mutations)
	copy(ng.mutEnergy, g.mutEnergy)
	return ng
}

// Mutate introduces one random mutation. The site is drawn uniformly
// from all mutable sites. If the site is already mutated its current
// contribution is reverted first, and the new mutation is guaranteed
// to differ from the reverted one whenever the site offers an
// alternative. The genotype changes by exactly one (site, mutation)
// substitution per call.
func (g *Genotype) Mutate(rng *rand.Rand) {
	siteIdx := rng.Intn(g.table.NSites())
	site := g.table.Site(siteIdx)

	prev := ""
	for pos, s := range g.sites {
		if s != siteIdx {
			continue
		}
		prev = g.mutations[pos]
		m, _ := g.table.Mutation(siteIdx, prev)
		for i, dd := range m.Offsets {
			g.mutEnergy[i] -= dd
		}
		g.sites = append(g.sites[:pos], g.sites[pos+1:]...)
		g.mutations = append(g.mutations[:pos], g.mutations[pos+1:]...)
		break
	}

	var m ddg.Mutation
	for {
		m = site.Mutations[rng.Intn(len(site.Mutations))]
		// A site offering a single mutation can only take that
		// mutation back.
		if m.Name != prev || len(site.Mutations) == 1 {
			break
		}
	}

	for i, dd := range m.Offsets {
		g.mutEnergy[i] += dd
	}
	g.sites = append(g.sites, siteIdx)
	g.mutations = append(g.mutations, m.Name)
}

// Sites returns the mutated site indices in mutation order. The slice
// is owned by the genotype.
func (g *Genotype) Sites() []int {
	return g.sites
}

// Mutations returns the mutation names parallel to Sites.
func (g *Genotype) Mutations() []string {
	return g.mutations
}

// MutEnergy returns the cumulative per-species offsets in ensemble
// species order. The slice is owned by the genotype; callers in tight
// loops read it without copying.
func (g *Genotype) MutEnergy() []float64 {
	return g.mutEnergy
}

// MutEnergyMap returns the offsets keyed by species name.
func (g *Genotype) MutEnergyMap() map[string]float64 {
	names := g.table.Ensemble().SpeciesNames()
	out := make(map[string]float64, len(names))
	for i, name := range names {
		out[name] = g.mutEnergy[i]
	}
	return out
}

// String formats the genotype as slash-separated mutation names, or
// "wt" for the wildtype.
func (g *Genotype) String() string {
	if len(g.mutations) == 0 {
		return "wt"
	}
	return strings.Join(g.mutations, "/")
}
