// calibrate fits ensemble species energies to observed titration
// data.
package calibrate

import (
	"fmt"

	"github.com/op/go-logging"

	"evoens/ensemble"
	"evoens/optimize"
)

// log is the global logging variable.
var log = logging.MustGetLogger("calibrate")

// dG0Bound bounds the fitted standard free energies, kcal/mol.
const dG0Bound = 50

// Observation is a single titration measurement: the fraction of
// observable species at given chemical potentials and temperature. A
// zero Temperature means the default.
type Observation struct {
	Potentials  map[string]float64 `json:"potentials" yaml:"potentials"`
	Temperature float64            `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	FxObs       float64            `json:"fx_obs" yaml:"fx_obs"`
}

// TitrationFit fits the standard free energies of selected species so
// the ensemble reproduces observed fx_obs values. It implements
// optimize.Optimizable with a Gaussian log-likelihood, so it plugs
// into any of the optimizers.
type TitrationFit struct {
	ens      *ensemble.Ensemble
	species  []string
	indices  []int
	baseline []float64
	dG0      []float64
	preps    []*ensemble.Prepared
	obs      []Observation
	temps    [][]float64
}

// NewTitrationFit creates a fit of the named species' free energies
// against the observations. Species not named keep their energies
// fixed.
func NewTitrationFit(ens *ensemble.Ensemble, species []string, obs []Observation) (*TitrationFit, error) {
	if len(species) < 1 {
		return nil, fmt.Errorf("at least one species to fit is required")
	}
	if len(obs) < len(species) {
		return nil, fmt.Errorf("%d observations cannot constrain %d species",
			len(obs), len(species))
	}

	names := ens.SpeciesNames()
	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}

	t := &TitrationFit{
		ens:      ens,
		species:  append([]string(nil), species...),
		indices:  make([]int, len(species)),
		baseline: make([]float64, len(species)),
		dG0:      make([]float64, len(species)),
		obs:      append([]Observation(nil), obs...),
	}
	for i, name := range species {
		j, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("unknown species %s", name)
		}
		sp, _ := ens.Species(name)
		t.indices[i] = j
		t.baseline[i] = sp.DG0
		t.dG0[i] = sp.DG0
	}

	// One prepared conditions object per observation. The energy
	// matrix absorbs the potentials, so the fit only moves the
	// mutational energy column.
	t.preps = make([]*ensemble.Prepared, len(obs))
	t.temps = make([][]float64, len(obs))
	for i, o := range obs {
		if o.FxObs < 0 || o.FxObs > 1 {
			return nil, fmt.Errorf("observation %d: fx_obs %v outside [0, 1]", i, o.FxObs)
		}
		c := make(ensemble.Conditions, len(o.Potentials))
		for lig, mu := range o.Potentials {
			c[lig] = ensemble.Scalar(mu)
		}
		p, err := ens.Prepare(c)
		if err != nil {
			return nil, fmt.Errorf("observation %d: %v", i, err)
		}
		t.preps[i] = p
		if o.Temperature != 0 {
			t.temps[i] = []float64{o.Temperature}
		}
	}
	return t, nil
}

// GetFloatParameters returns one bounded parameter per fitted
// species.
func (t *TitrationFit) GetFloatParameters() optimize.FloatParameters {
	var pars optimize.FloatParameters
	for i, name := range t.species {
		par := optimize.NewBasicFloatParameter(&t.dG0[i], "dG0_"+name)
		par.SetMin(-dG0Bound)
		par.SetMax(dG0Bound)
		pars.Append(par)
	}
	return pars
}

// Copy returns a copy sharing the prepared conditions, which are
// read-only.
func (t *TitrationFit) Copy() optimize.Optimizable {
	cp := *t
	cp.dG0 = append([]float64(nil), t.dG0...)
	return &cp
}

// Likelihood returns the Gaussian log-likelihood of the observations
// given the current free energies, up to an additive constant.
func (t *TitrationFit) Likelihood() float64 {
	mut := make([]float64, t.ens.NSpecies())
	for i, j := range t.indices {
		mut[j] = t.dG0[i] - t.baseline[i]
	}

	l := 0.0
	for i, o := range t.obs {
		fx, _ := t.preps[i].FxObs(mut, t.temps[i])
		r := fx[0] - o.FxObs
		l -= r * r
	}
	return l
}

// DG0 returns the current free energy of a fitted species.
func (t *TitrationFit) DG0(name string) (float64, error) {
	for i, sp := range t.species {
		if sp == name {
			return t.dG0[i], nil
		}
	}
	return 0, fmt.Errorf("species %s is not part of the fit", name)
}

// Fit runs a downhill simplex optimization and returns the fitted
// free energies by species name.
func Fit(t *TitrationFit, iterations int) (map[string]float64, error) {
	if iterations < 1 {
		return nil, fmt.Errorf("number of iterations should be >= 1, got %d", iterations)
	}
	ds := optimize.NewDS()
	ds.Quiet = true
	ds.SetOptimizable(t)
	ds.Run(iterations)
	log.Noticef("Titration fit likelihood: %v", ds.GetMaxL())

	result := make(map[string]float64, len(t.species))
	pars := ds.GetMaxLParameters()
	for i, name := range t.species {
		result[name] = pars[i]
	}
	return result, nil
}
