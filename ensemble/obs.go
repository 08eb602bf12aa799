package ensemble

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Table is a simple column-oriented result table: one row per
// condition, columns in a fixed reporting order.
type Table struct {
	Names []string
	Cols  [][]float64
}

// NRows returns the number of rows (conditions).
func (t *Table) NRows() int {
	if len(t.Cols) == 0 {
		return 0
	}
	return len(t.Cols[0])
}

// Col returns a column by name.
func (t *Table) Col(name string) ([]float64, bool) {
	for i, n := range t.Names {
		if n == name {
			return t.Cols[i], true
		}
	}
	return nil, false
}

func (t *Table) add(name string, col []float64) {
	t.Names = append(t.Names, name)
	t.Cols = append(t.Cols, col)
}

// WriteCSV writes the table with a header row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names); err != nil {
		return err
	}
	row := make([]string, len(t.Names))
	for r := 0; r < t.NRows(); r++ {
		for c := range t.Cols {
			row[c] = strconv.FormatFloat(t.Cols[c][r], 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// PopsAndObs computes the fractional population of every species and
// the derived observables at every condition. mutEnergy maps species
// name to its mutational offset (missing species are 0), conditions
// follow the Conditions contract and temps is a scalar-or-array
// temperature in Kelvin (nil means 298.15 K).
//
// The result has one row per condition with columns: temperature, the
// potential of each ligand, the fractional population of each species,
// fx_obs, dG_obs and fx_folded. fx_obs is the population of the
// observable species over the whole ensemble; dG_obs is
// -RT ln(obs/notObs) and is NaN when either weight sum is exactly
// zero.
func (e *Ensemble) PopsAndObs(mutEnergy map[string]float64, c Conditions, temps []float64) (*Table, error) {
	if err := e.checkPartition(); err != nil {
		return nil, err
	}
	for name, v := range mutEnergy {
		if _, ok := e.index[name]; !ok {
			return nil, fmt.Errorf("mutation energy given for unknown species %s", name)
		}
		if math.IsNaN(v) {
			return nil, fmt.Errorf("mutation energy for species %s is not a number", name)
		}
	}

	p, err := e.Prepare(c)
	if err != nil {
		return nil, err
	}
	temperature, err := normalizeTemperature(temps, p.nCond)
	if err != nil {
		return nil, err
	}

	mut := e.MutMapToArray(mutEnergy)
	w := p.Weights(mut, temperature)

	total := make([]float64, p.nCond)
	for i := 0; i < len(e.species); i++ {
		for j := 0; j < p.nCond; j++ {
			total[j] += w.At(i, j)
		}
	}

	out := &Table{}
	out.add("temperature", temperature)
	for _, lig := range p.ligands {
		out.add(lig, p.potentials[lig])
	}
	for i, sp := range e.species {
		pop := make([]float64, p.nCond)
		for j := 0; j < p.nCond; j++ {
			pop[j] = w.At(i, j) / total[j]
		}
		out.add(sp.Name, pop)
	}

	obs := sumRows(w, p.obs, p.nCond)
	notObs := sumRows(w, p.notObs, p.nCond)
	folded := sumRows(w, p.folded, p.nCond)
	unfolded := sumRows(w, p.unfolded, p.nCond)

	fxObs := make([]float64, p.nCond)
	dGObs := make([]float64, p.nCond)
	fxFolded := make([]float64, p.nCond)
	for j := 0; j < p.nCond; j++ {
		fxObs[j] = obs[j] / (obs[j] + notObs[j])
		if obs[j] == 0 || notObs[j] == 0 {
			dGObs[j] = math.NaN()
		} else {
			dGObs[j] = -e.gasConstant * temperature[j] * math.Log(obs[j]/notObs[j])
		}
		fxFolded[j] = folded[j] / (folded[j] + unfolded[j])
	}
	out.add("fx_obs", fxObs)
	out.add("dG_obs", dGObs)
	out.add("fx_folded", fxFolded)

	return out, nil
}
