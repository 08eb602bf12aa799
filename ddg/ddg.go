// Package ddg holds the mutation effect table: the free energy
// perturbation every point mutation applies to every species of an
// ensemble. The table is built once from mutagenesis data and is
// read-only afterwards; all genotypes derived from it share the same
// instance by reference.
package ddg

import (
	"fmt"
	"sort"

	"evoens/ensemble"
)

// Mutation is one possible mutation at a site together with its dense
// per-species energy perturbation (in ensemble species order).
type Mutation struct {
	Name    string
	Offsets []float64
}

// Site is one mutable site and the mutations available at it.
type Site struct {
	Name      string
	Mutations []Mutation
}

// Table is an immutable mutation effect table resolved against a
// specific ensemble's species order.
type Table struct {
	ens   *ensemble.Ensemble
	sites []Site
}

// Raw is the interchange form of a table:
// site -> mutation -> species -> ddG.
type Raw map[string]map[string]map[string]float64

// New resolves a raw table against the species order of an ensemble.
// Sites and mutations are ordered by name so the table is
// deterministic regardless of map iteration order. Species named in
// the raw data must exist in the ensemble; species missing from a
// mutation entry are perturbed by 0.
func New(ens *ensemble.Ensemble, raw Raw) (*Table, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("mutation effect table is empty")
	}

	speciesIdx := make(map[string]int, ens.NSpecies())
	for i, name := range ens.SpeciesNames() {
		speciesIdx[name] = i
	}

	siteNames := make([]string, 0, len(raw))
	for s := range raw {
		siteNames = append(siteNames, s)
	}
	sort.Strings(siteNames)

	t := &Table{ens: ens, sites: make([]Site, 0, len(raw))}
	for _, siteName := range siteNames {
		muts := raw[siteName]
		if len(muts) == 0 {
			return nil, fmt.Errorf("site %s has no mutations", siteName)
		}
		mutNames := make([]string, 0, len(muts))
		for m := range muts {
			mutNames = append(mutNames, m)
		}
		sort.Strings(mutNames)

		site := Site{Name: siteName, Mutations: make([]Mutation, 0, len(muts))}
		for _, mutName := range mutNames {
			offsets := make([]float64, ens.NSpecies())
			for spName, ddG := range muts[mutName] {
				i, ok := speciesIdx[spName]
				if !ok {
					return nil, fmt.Errorf("mutation %s at site %s perturbs unknown species %s", mutName, siteName, spName)
				}
				offsets[i] = ddG
			}
			site.Mutations = append(site.Mutations, Mutation{Name: mutName, Offsets: offsets})
		}
		t.sites = append(t.sites, site)
	}
	return t, nil
}

// Ensemble returns the ensemble the table was resolved against.
func (t *Table) Ensemble() *ensemble.Ensemble {
	return t.ens
}

// NSites returns the number of mutable sites.
func (t *Table) NSites() int {
	return len(t.sites)
}

// Site returns a mutable site by index.
func (t *Table) Site(i int) Site {
	return t.sites[i]
}

// SiteIndex returns the index of a site by name.
func (t *Table) SiteIndex(name string) (int, bool) {
	for i, s := range t.sites {
		if s.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Mutation returns the mutation record at a site by name.
func (t *Table) Mutation(site int, name string) (Mutation, bool) {
	for _, m := range t.sites[site].Mutations {
		if m.Name == name {
			return m, true
		}
	}
	return Mutation{}, false
}
