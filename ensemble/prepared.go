package ensemble

import (
	"fmt"
	"math"

	"github.com/gonum/blas/blas64"
	"github.com/gonum/matrix/mat64"
)

// Prepared holds the energy matrix and species masks for a fixed set of
// conditions. It is built once by Ensemble.Prepare and is immutable
// afterwards, so the fast-path queries carry no hidden state: change
// the conditions, prepare again.
type Prepared struct {
	ens   *Ensemble
	nCond int

	// energy[i,j] is the free energy of species i at condition j,
	// before any mutational offset.
	energy *mat64.Dense

	// Normalized per-ligand potentials and their reporting order.
	potentials map[string][]float64
	ligands    []string

	obs      []int
	notObs   []int
	folded   []int
	unfolded []int
}

// Prepare builds the species-by-condition energy matrix
// energy[i,j] = dG0[i] - sum_l mu[l][j]*stoich[i][l]
// together with the observable and folded index masks. The returned
// value is the required input for the fast observable queries.
func (e *Ensemble) Prepare(c Conditions) (*Prepared, error) {
	if len(e.species) == 0 {
		return nil, fmt.Errorf("cannot prepare conditions for an empty ensemble")
	}
	potentials, order, nCond, err := e.normalize(c)
	if err != nil {
		return nil, err
	}

	p := &Prepared{
		ens:        e,
		nCond:      nCond,
		energy:     mat64.NewDense(len(e.species), nCond, nil),
		potentials: potentials,
		ligands:    order,
	}

	for i, sp := range e.species {
		for j := 0; j < nCond; j++ {
			dG := sp.DG0
			for lig, st := range sp.Stoich {
				dG -= potentials[lig][j] * st
			}
			p.energy.Set(i, j, dG)
		}
		if sp.Observable {
			p.obs = append(p.obs, i)
		} else {
			p.notObs = append(p.notObs, i)
		}
		if sp.Folded {
			p.folded = append(p.folded, i)
		} else {
			p.unfolded = append(p.unfolded, i)
		}
	}
	return p, nil
}

// NConditions returns the number of conditions prepared.
func (p *Prepared) NConditions() int {
	return p.nCond
}

// Ensemble returns the ensemble the conditions were prepared for.
func (p *Prepared) Ensemble() *Ensemble {
	return p.ens
}

// Potential returns the normalized potential array for a ligand.
func (p *Prepared) Potential(lig string) []float64 {
	return p.potentials[lig]
}

// LigandOrder returns the ligand reporting order.
func (p *Prepared) LigandOrder() []string {
	return p.ligands
}

// Weights fills the species-by-condition matrix of Boltzmann weights
// for the given per-species mutational offsets and per-condition
// temperatures. Each column is shifted so its largest exponent equals
// maxExponent; the shift cancels in every ratio this package reports,
// and it keeps exp from overflowing for arbitrarily extreme energies.
// mut may be nil (no offsets). temps may be nil (default temperature)
// or hold a single value broadcast to all conditions; otherwise one
// value per condition. No validation; mut, when non-nil, must have
// length NSpecies.
func (p *Prepared) Weights(mut, temps []float64) *mat64.Dense {
	nSp := len(p.ens.species)
	w := mat64.NewDense(nSp, p.nCond, nil)

	temp := DefaultTemperature
	if len(temps) == 1 {
		temp = temps[0]
	}

	col := make([]float64, nSp)
	for j := 0; j < p.nCond; j++ {
		if len(temps) > 1 {
			temp = temps[j]
		}
		beta := 1 / (p.ens.gasConstant * temp)

		mat64.Col(col, j, p.energy)
		v := blas64.Vector{Inc: 1, Data: col}
		if mut != nil {
			blas64.Axpy(nSp, 1, blas64.Vector{Inc: 1, Data: mut}, v)
		}
		blas64.Scal(nSp, -beta, v)

		max := col[0]
		for i := 1; i < nSp; i++ {
			if col[i] > max {
				max = col[i]
			}
		}
		shift := maxExponent - max
		for i := 0; i < nSp; i++ {
			w.Set(i, j, math.Exp(col[i]+shift))
		}
	}
	return w
}

// sumRows sums weight rows selected by idx for every condition.
func sumRows(w *mat64.Dense, idx []int, nCond int) []float64 {
	out := make([]float64, nCond)
	for _, i := range idx {
		for j := 0; j < nCond; j++ {
			out[j] += w.At(i, j)
		}
	}
	return out
}

// FxObs returns the fraction observable and the fraction folded at
// every condition. This is the tight-loop entry point: no validation,
// no map lookups. mut is a dense per-species offset array (may be
// nil); temps follows the Weights broadcast rules.
func (p *Prepared) FxObs(mut, temps []float64) (fxObs, fxFolded []float64) {
	w := p.Weights(mut, temps)
	obs := sumRows(w, p.obs, p.nCond)
	notObs := sumRows(w, p.notObs, p.nCond)
	folded := sumRows(w, p.folded, p.nCond)
	unfolded := sumRows(w, p.unfolded, p.nCond)

	fxObs = make([]float64, p.nCond)
	fxFolded = make([]float64, p.nCond)
	for j := 0; j < p.nCond; j++ {
		fxObs[j] = obs[j] / (obs[j] + notObs[j])
		fxFolded[j] = folded[j] / (folded[j] + unfolded[j])
	}
	return fxObs, fxFolded
}

// DGObs returns -RT ln(obs/notObs) and the fraction folded at every
// condition. The free energy is NaN wherever the observable or the
// non-observable weight sum is exactly zero. Same fast-path contract
// as FxObs.
func (p *Prepared) DGObs(mut, temps []float64) (dGObs, fxFolded []float64) {
	w := p.Weights(mut, temps)
	obs := sumRows(w, p.obs, p.nCond)
	notObs := sumRows(w, p.notObs, p.nCond)
	folded := sumRows(w, p.folded, p.nCond)
	unfolded := sumRows(w, p.unfolded, p.nCond)

	temp := DefaultTemperature
	if len(temps) == 1 {
		temp = temps[0]
	}

	dGObs = make([]float64, p.nCond)
	fxFolded = make([]float64, p.nCond)
	for j := 0; j < p.nCond; j++ {
		if len(temps) > 1 {
			temp = temps[j]
		}
		if obs[j] == 0 || notObs[j] == 0 {
			dGObs[j] = math.NaN()
		} else {
			dGObs[j] = -p.ens.gasConstant * temp * math.Log(obs[j]/notObs[j])
		}
		fxFolded[j] = folded[j] / (folded[j] + unfolded[j])
	}
	return dGObs, fxFolded
}

// SpeciesDG returns the free energy of one species at every prepared
// condition, shifted by mutEnergy. The result is linear in mutEnergy
// and linear in each ligand potential with slope -stoichiometry.
func (p *Prepared) SpeciesDG(name string, mutEnergy float64) ([]float64, error) {
	i, ok := p.ens.index[name]
	if !ok {
		return nil, fmt.Errorf("species %s not recognized; has it been added via AddSpecies?", name)
	}
	if math.IsNaN(mutEnergy) {
		return nil, fmt.Errorf("mutEnergy is not a number")
	}
	out := make([]float64, p.nCond)
	for j := 0; j < p.nCond; j++ {
		out[j] = p.energy.At(i, j) + mutEnergy
	}
	return out, nil
}

// SpeciesDG prepares the given conditions and returns the free energy
// of one species at each of them, shifted by mutEnergy.
func (e *Ensemble) SpeciesDG(name string, mutEnergy float64, c Conditions) ([]float64, error) {
	p, err := e.Prepare(c)
	if err != nil {
		return nil, err
	}
	return p.SpeciesDG(name, mutEnergy)
}
