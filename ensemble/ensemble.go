// Package ensemble implements a thermodynamic ensemble of macromolecular
// species. The free energy of every species can be perturbed by mutations
// and by ligand chemical potentials, and the package computes Boltzmann
// populations and derived observables for one or many conditions at once.
package ensemble

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// GasConstant is the default gas constant in kcal/(mol·K). Using a
// different value changes the energy units of the whole calculation.
const GasConstant = 0.001987

// DefaultTemperature is the temperature (K) used when none is given.
const DefaultTemperature = 298.15

// maxExponent is the ceiling used when shifting Boltzmann exponents to
// avoid overflow. The margin is conservative; weights that underflow to
// zero after the shift are negligible populations anyway.
var maxExponent = math.Log(math.MaxFloat64) * 0.01

// Species is a single macromolecular state of the ensemble. DG0 is the
// free energy relative to an arbitrary reference condition where all
// ligand chemical potentials are zero. Stoich maps ligand name to
// binding stoichiometry; absent ligands bind with stoichiometry zero.
type Species struct {
	Name       string
	DG0        float64
	Observable bool
	Folded     bool
	Stoich     map[string]float64
}

// Ensemble is an ordered collection of species sharing a ligand
// namespace and a gas constant. The insertion order of species defines
// the index order of every array produced by this package.
type Ensemble struct {
	gasConstant float64
	species     []Species
	index       map[string]int
	ligands     []string
	ligandSeen  map[string]bool
}

// New creates an empty ensemble. gasConstant must be > 0.
func New(gasConstant float64) (*Ensemble, error) {
	if gasConstant <= 0 || math.IsNaN(gasConstant) {
		return nil, fmt.Errorf("gas constant must be > 0, got %v", gasConstant)
	}
	return &Ensemble{
		gasConstant: gasConstant,
		index:       make(map[string]int),
		ligandSeen:  make(map[string]bool),
	}, nil
}

// GasConstant returns the gas constant of the ensemble.
func (e *Ensemble) GasConstant() float64 {
	return e.gasConstant
}

// AddSpecies adds a new species. name must be unique within the
// ensemble and every stoichiometry must be >= 0. Ligands referenced for
// the first time are appended to the ensemble ligand list.
func (e *Ensemble) AddSpecies(name string, dG0 float64, observable, folded bool, stoich map[string]float64) error {
	if _, ok := e.index[name]; ok {
		return fmt.Errorf("species %s is already in the ensemble", name)
	}
	if math.IsNaN(dG0) {
		return fmt.Errorf("dG0 for species %s is not a number", name)
	}

	sp := Species{
		Name:       name,
		DG0:        dG0,
		Observable: observable,
		Folded:     folded,
		Stoich:     make(map[string]float64, len(stoich)),
	}
	ligands := make([]string, 0, len(stoich))
	for lig, v := range stoich {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("stoichiometry of ligand %s for species %s must be >= 0, got %v", lig, name, v)
		}
		sp.Stoich[lig] = v
		ligands = append(ligands, lig)
	}

	// Record new ligands in a stable order.
	sort.Strings(ligands)
	for _, lig := range ligands {
		if !e.ligandSeen[lig] {
			e.ligandSeen[lig] = true
			e.ligands = append(e.ligands, lig)
		}
	}

	e.index[name] = len(e.species)
	e.species = append(e.species, sp)
	return nil
}

// NSpecies returns the number of species in the ensemble.
func (e *Ensemble) NSpecies() int {
	return len(e.species)
}

// SpeciesNames returns species names in index order.
func (e *Ensemble) SpeciesNames() []string {
	names := make([]string, len(e.species))
	for i, sp := range e.species {
		names[i] = sp.Name
	}
	return names
}

// Species returns the species record with the given name.
func (e *Ensemble) Species(name string) (Species, bool) {
	i, ok := e.index[name]
	if !ok {
		return Species{}, false
	}
	return e.species[i], true
}

// Ligands returns every ligand name referenced by any species, in the
// order they were first seen.
func (e *Ensemble) Ligands() []string {
	out := make([]string, len(e.ligands))
	copy(out, e.ligands)
	return out
}

// MutMapToArray converts a species-name keyed map of mutational energy
// offsets to a dense array in ensemble species order. Species missing
// from the map get offset 0. No validation is performed.
func (e *Ensemble) MutMapToArray(mutEnergy map[string]float64) []float64 {
	arr := make([]float64, len(e.species))
	for i, sp := range e.species {
		arr[i] = mutEnergy[sp.Name]
	}
	return arr
}

// checkPartition verifies the ensemble can produce an observable: at
// least two species, at least one observable and one non-observable.
func (e *Ensemble) checkPartition() error {
	if len(e.species) < 2 {
		return errors.New("add at least two species before calculating an observable")
	}
	nObs := 0
	for _, sp := range e.species {
		if sp.Observable {
			nObs++
		}
	}
	if nObs < 1 || nObs > len(e.species)-1 {
		return errors.New("at least one species must be observable and at least one must not be observable")
	}
	return nil
}

// Conditions maps ligand name to the chemical potential at each
// simulated condition. A length-1 entry is broadcast to the condition
// count; all longer entries must share the same length. Ligands absent
// from the map have potential 0 at every condition.
type Conditions map[string][]float64

// Scalar wraps a single potential value for use in a Conditions map.
func Scalar(v float64) []float64 {
	return []float64{v}
}

// normalize expands a Conditions map into per-ligand potential arrays
// of equal length covering every ensemble ligand, and returns the
// number of conditions. An empty map yields a single all-zero
// condition.
func (e *Ensemble) normalize(c Conditions) (map[string][]float64, []string, int, error) {
	n := 1
	for lig, vals := range c {
		if len(vals) == 0 {
			return nil, nil, 0, fmt.Errorf("ligand %s has an empty potential array", lig)
		}
		for _, v := range vals {
			if math.IsNaN(v) {
				return nil, nil, 0, fmt.Errorf("ligand %s has a non-numeric potential", lig)
			}
		}
		if len(vals) > 1 {
			if n > 1 && len(vals) != n {
				return nil, nil, 0, fmt.Errorf("ligand potential arrays have mismatched lengths (%d vs %d)", n, len(vals))
			}
			n = len(vals)
		}
	}

	// Reporting order: ensemble ligands first, then any extra
	// condition-only names sorted.
	order := make([]string, 0, len(e.ligands)+len(c))
	seen := make(map[string]bool, len(e.ligands))
	for _, lig := range e.ligands {
		order = append(order, lig)
		seen[lig] = true
	}
	extra := make([]string, 0)
	for lig := range c {
		if !seen[lig] {
			extra = append(extra, lig)
		}
	}
	sort.Strings(extra)
	order = append(order, extra...)

	out := make(map[string][]float64, len(order))
	for _, lig := range order {
		vals, ok := c[lig]
		switch {
		case !ok:
			out[lig] = make([]float64, n)
		case len(vals) == 1:
			bc := make([]float64, n)
			for j := range bc {
				bc[j] = vals[0]
			}
			out[lig] = bc
		default:
			cp := make([]float64, n)
			copy(cp, vals)
			out[lig] = cp
		}
	}
	return out, order, n, nil
}

// normalizeTemperature broadcasts a scalar-or-array temperature to the
// condition count and validates it. nil means DefaultTemperature.
func normalizeTemperature(temps []float64, n int) ([]float64, error) {
	if len(temps) == 0 {
		temps = []float64{DefaultTemperature}
	}
	if len(temps) != 1 && len(temps) != n {
		return nil, fmt.Errorf("temperature array length %d does not match %d conditions", len(temps), n)
	}
	out := make([]float64, n)
	for j := 0; j < n; j++ {
		t := temps[0]
		if len(temps) > 1 {
			t = temps[j]
		}
		if t <= 0 || math.IsNaN(t) {
			return nil, fmt.Errorf("temperature must be > 0, got %v", t)
		}
		out[j] = t
	}
	return out, nil
}
