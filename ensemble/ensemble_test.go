package ensemble

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

const smallDiff = 1e-9

func twoStateEnsemble(tst *testing.T) *Ensemble {
	e, err := New(GasConstant)
	if err != nil {
		tst.Fatal("Error creating ensemble:", err)
	}
	if err := e.AddSpecies("A", 0, false, true, nil); err != nil {
		tst.Fatal("Error adding species:", err)
	}
	if err := e.AddSpecies("B", 0, true, true, nil); err != nil {
		tst.Fatal("Error adding species:", err)
	}
	return e
}

func TestTwoStateSplit(tst *testing.T) {
	e := twoStateEnsemble(tst)

	table, err := e.PopsAndObs(nil, nil, nil)
	if err != nil {
		tst.Fatal("Error computing observables:", err)
	}
	if table.NRows() != 1 {
		tst.Error("Expected a single condition, got", table.NRows())
	}

	for _, name := range []string{"A", "B", "fx_obs"} {
		col, ok := table.Col(name)
		if !ok {
			tst.Fatal("missing column", name)
		}
		if math.Abs(col[0]-0.5) > smallDiff {
			tst.Error("Expected 0.5 for", name, ", got", col[0])
		}
	}
	dG, _ := table.Col("dG_obs")
	if math.Abs(dG[0]) > smallDiff {
		tst.Error("Expected dG_obs=0, got", dG[0])
	}
}

func TestBoltzmannPopulations(tst *testing.T) {
	// R=1, T=1: populations must equal exp(-dG)/Z directly.
	e, err := New(1)
	if err != nil {
		tst.Fatal(err)
	}
	dG0s := []float64{0, 1, 3}
	if err := e.AddSpecies("s0", dG0s[0], false, true, nil); err != nil {
		tst.Fatal(err)
	}
	if err := e.AddSpecies("s1", dG0s[1], true, true, nil); err != nil {
		tst.Fatal(err)
	}
	if err := e.AddSpecies("s2", dG0s[2], true, true, nil); err != nil {
		tst.Fatal(err)
	}

	table, err := e.PopsAndObs(nil, nil, []float64{1})
	if err != nil {
		tst.Fatal("Error computing observables:", err)
	}

	z := 0.0
	for _, dG := range dG0s {
		z += math.Exp(-dG)
	}
	for i, name := range []string{"s0", "s1", "s2"} {
		col, _ := table.Col(name)
		ref := math.Exp(-dG0s[i]) / z
		if math.Abs(col[0]-ref) > smallDiff {
			tst.Error("Expected population", ref, "for", name, ", got", col[0])
		}
	}

	fx, _ := table.Col("fx_obs")
	dG, _ := table.Col("dG_obs")
	ref := -math.Log(fx[0] / (1 - fx[0]))
	if math.Abs(dG[0]-ref) > smallDiff {
		tst.Error("dG_obs and fx_obs disagree:", dG[0], "vs", ref)
	}
}

func TestOverflowGuard(tst *testing.T) {
	// Energies far beyond the exp overflow threshold must still give
	// finite, correctly ratioed populations.
	e, err := New(1)
	if err != nil {
		tst.Fatal(err)
	}
	huge := math.Log(math.MaxFloat64) + 1
	if err := e.AddSpecies("low", -huge, false, true, nil); err != nil {
		tst.Fatal(err)
	}
	if err := e.AddSpecies("high", huge, true, false, nil); err != nil {
		tst.Fatal(err)
	}

	table, err := e.PopsAndObs(nil, nil, []float64{1})
	if err != nil {
		tst.Fatal("Error computing observables:", err)
	}
	low, _ := table.Col("low")
	high, _ := table.Col("high")
	if math.IsNaN(low[0]) || math.IsInf(low[0], 0) {
		tst.Error("low population is not finite:", low[0])
	}
	if math.Abs(low[0]-1) > smallDiff {
		tst.Error("Expected low population 1, got", low[0])
	}
	if high[0] != 0 {
		tst.Error("Expected high population to underflow to 0, got", high[0])
	}
}

func TestSpeciesDGLinearity(tst *testing.T) {
	e, err := New(GasConstant)
	if err != nil {
		tst.Fatal(err)
	}
	if err := e.AddSpecies("M", 0, false, true, nil); err != nil {
		tst.Fatal(err)
	}
	if err := e.AddSpecies("MX", -8.18, true, true, map[string]float64{"X": 2}); err != nil {
		tst.Fatal(err)
	}

	base, err := e.SpeciesDG("MX", 0, Conditions{"X": Scalar(1)})
	if err != nil {
		tst.Fatal(err)
	}
	shifted, err := e.SpeciesDG("MX", 3.5, Conditions{"X": Scalar(1)})
	if err != nil {
		tst.Fatal(err)
	}
	if math.Abs(shifted[0]-base[0]-3.5) > smallDiff {
		tst.Error("dG is not linear in mutEnergy:", shifted[0]-base[0])
	}

	// d(dG)/d(potential) = -stoichiometry
	dG, err := e.SpeciesDG("MX", 0, Conditions{"X": {1, 2}})
	if err != nil {
		tst.Fatal(err)
	}
	if math.Abs((dG[1]-dG[0])-(-2)) > smallDiff {
		tst.Error("Expected slope -2 vs potential, got", dG[1]-dG[0])
	}

	if _, err := e.SpeciesDG("XY", 0, nil); err == nil {
		tst.Error("Expected error for unknown species")
	}
}

func TestBindingCurve(tst *testing.T) {
	// M + X <-> MX with Kd=1e-6 and potential zero defined at 1 M X.
	e, err := New(GasConstant)
	if err != nil {
		tst.Fatal(err)
	}
	if err := e.AddSpecies("M", 0, false, true, nil); err != nil {
		tst.Fatal(err)
	}
	if err := e.AddSpecies("MX", -8.18, true, true, map[string]float64{"X": 1}); err != nil {
		tst.Fatal(err)
	}

	table, err := e.PopsAndObs(nil, Conditions{"X": {-13.8, -8.18, 0}}, nil)
	if err != nil {
		tst.Fatal("Error computing observables:", err)
	}
	fx, _ := table.Col("fx_obs")

	if fx[0] > 1e-3 {
		tst.Error("Expected nearly unbound state at low potential, got", fx[0])
	}
	if math.Abs(fx[1]-0.5) > smallDiff {
		tst.Error("Expected fx_obs=0.5 at the midpoint, got", fx[1])
	}
	if fx[2] < 0.999 {
		tst.Error("Expected nearly bound state at high potential, got", fx[2])
	}
	if !(fx[0] < fx[1] && fx[1] < fx[2]) {
		tst.Error("Binding curve is not monotonic:", fx)
	}
}

func TestMutEnergyShiftsPopulations(tst *testing.T) {
	e := twoStateEnsemble(tst)

	table, err := e.PopsAndObs(map[string]float64{"B": 10}, nil, nil)
	if err != nil {
		tst.Fatal(err)
	}
	fx, _ := table.Col("fx_obs")
	if fx[0] > 1e-3 {
		tst.Error("Destabilizing the observable should empty it, got", fx[0])
	}

	if _, err := e.PopsAndObs(map[string]float64{"Q": 1}, nil, nil); err == nil {
		tst.Error("Expected error for unknown species in mutation map")
	}
}

func TestValidation(tst *testing.T) {
	if _, err := New(0); err == nil {
		tst.Error("Expected error for non-positive gas constant")
	}

	e, _ := New(GasConstant)
	if err := e.AddSpecies("A", 0, false, true, nil); err != nil {
		tst.Fatal(err)
	}
	if err := e.AddSpecies("A", 0, true, true, nil); err == nil {
		tst.Error("Expected error for duplicate species")
	}
	if err := e.AddSpecies("B", 0, true, true, map[string]float64{"X": -1}); err == nil {
		tst.Error("Expected error for negative stoichiometry")
	}

	// Observable requires a proper partition.
	if _, err := e.PopsAndObs(nil, nil, nil); err == nil {
		tst.Error("Expected error with a single species")
	}
	if err := e.AddSpecies("C", 0, false, true, nil); err != nil {
		tst.Fatal(err)
	}
	if _, err := e.PopsAndObs(nil, nil, nil); err == nil {
		tst.Error("Expected error with no observable species")
	}

	// Mismatched condition array lengths.
	e2 := twoStateEnsemble(tst)
	_, err := e2.PopsAndObs(nil, Conditions{"X": {0, 1}, "Y": {0, 1, 2}}, nil)
	if err == nil {
		tst.Error("Expected error for mismatched condition lengths")
	}
	if _, err := e2.PopsAndObs(nil, nil, []float64{-5}); err == nil {
		tst.Error("Expected error for non-positive temperature")
	}
}

func TestFastPathsMatchFull(tst *testing.T) {
	e, err := New(GasConstant)
	if err != nil {
		tst.Fatal(err)
	}
	if err := e.AddSpecies("M", 0, false, true, nil); err != nil {
		tst.Fatal(err)
	}
	if err := e.AddSpecies("MX", -8.18, true, true, map[string]float64{"X": 1}); err != nil {
		tst.Fatal(err)
	}
	if err := e.AddSpecies("U", 5, false, false, nil); err != nil {
		tst.Fatal(err)
	}

	conditions := Conditions{"X": {-12, -8.18, -4, 0}}
	mut := map[string]float64{"MX": 1.2, "U": -0.4}

	table, err := e.PopsAndObs(mut, conditions, nil)
	if err != nil {
		tst.Fatal(err)
	}

	p, err := e.Prepare(conditions)
	if err != nil {
		tst.Fatal(err)
	}
	temps := []float64{DefaultTemperature, DefaultTemperature, DefaultTemperature, DefaultTemperature}
	mutArr := e.MutMapToArray(mut)

	fx, fxFolded := p.FxObs(mutArr, temps)
	dG, _ := p.DGObs(mutArr, temps)

	refFx, _ := table.Col("fx_obs")
	refDG, _ := table.Col("dG_obs")
	refFolded, _ := table.Col("fx_folded")
	for j := range fx {
		if math.Abs(fx[j]-refFx[j]) > smallDiff {
			tst.Error("fx_obs fast path mismatch at", j, ":", fx[j], "vs", refFx[j])
		}
		if math.Abs(dG[j]-refDG[j]) > smallDiff {
			tst.Error("dG_obs fast path mismatch at", j, ":", dG[j], "vs", refDG[j])
		}
		if math.Abs(fxFolded[j]-refFolded[j]) > smallDiff {
			tst.Error("fx_folded fast path mismatch at", j, ":", fxFolded[j], "vs", refFolded[j])
		}
	}
}

func TestTemperatureBroadcast(tst *testing.T) {
	e, err := New(GasConstant)
	if err != nil {
		tst.Fatal(err)
	}
	if err := e.AddSpecies("M", 0, false, true, nil); err != nil {
		tst.Fatal(err)
	}
	if err := e.AddSpecies("MX", -8.18, true, true, map[string]float64{"X": 1}); err != nil {
		tst.Fatal(err)
	}

	p, err := e.Prepare(Conditions{"X": {-12, -8.18, -4}})
	if err != nil {
		tst.Fatal(err)
	}

	full := []float64{DefaultTemperature, DefaultTemperature, DefaultTemperature}
	refFx, refFolded := p.FxObs(nil, full)
	refDG, _ := p.DGObs(nil, full)

	for _, temps := range [][]float64{nil, {DefaultTemperature}} {
		fx, fxFolded := p.FxObs(nil, temps)
		dG, _ := p.DGObs(nil, temps)
		for j := range fx {
			if math.Abs(fx[j]-refFx[j]) > smallDiff {
				tst.Error("fx_obs mismatch for temps", temps, "at", j, ":", fx[j], "vs", refFx[j])
			}
			if math.Abs(dG[j]-refDG[j]) > smallDiff {
				tst.Error("dG_obs mismatch for temps", temps, "at", j, ":", dG[j], "vs", refDG[j])
			}
			if math.Abs(fxFolded[j]-refFolded[j]) > smallDiff {
				tst.Error("fx_folded mismatch for temps", temps, "at", j, ":", fxFolded[j], "vs", refFolded[j])
			}
		}
	}

	hot := []float64{400}
	hotFull := []float64{400, 400, 400}
	fxHot, _ := p.FxObs(nil, hot)
	fxHotFull, _ := p.FxObs(nil, hotFull)
	for j := range fxHot {
		if math.Abs(fxHot[j]-fxHotFull[j]) > smallDiff {
			tst.Error("scalar temperature broadcast mismatch at", j, ":", fxHot[j], "vs", fxHotFull[j])
		}
	}
}

func TestMutMapToArray(tst *testing.T) {
	e := twoStateEnsemble(tst)
	arr := e.MutMapToArray(map[string]float64{"B": 2})
	if len(arr) != 2 || arr[0] != 0 || arr[1] != 2 {
		tst.Error("Unexpected mutation array:", arr)
	}
}

func TestJSONRoundTrip(tst *testing.T) {
	e, err := New(GasConstant)
	if err != nil {
		tst.Fatal(err)
	}
	if err := e.AddSpecies("M", 0, false, true, nil); err != nil {
		tst.Fatal(err)
	}
	if err := e.AddSpecies("MX", -8.18, true, true, map[string]float64{"X": 1}); err != nil {
		tst.Fatal(err)
	}

	var buf bytes.Buffer
	if err := e.WriteJSON(&buf); err != nil {
		tst.Fatal("Error writing ensemble:", err)
	}
	e2, err := ParseJSON(&buf)
	if err != nil {
		tst.Fatal("Error parsing ensemble:", err)
	}

	if e2.GasConstant() != e.GasConstant() {
		tst.Error("gas constant changed in round trip")
	}
	sp, ok := e2.Species("MX")
	if !ok {
		tst.Fatal("species MX lost in round trip")
	}
	if sp.DG0 != -8.18 || !sp.Observable || sp.Stoich["X"] != 1 {
		tst.Error("species MX changed in round trip:", sp)
	}

	if _, err := ParseJSON(strings.NewReader(`{"ens":{}}`)); err == nil {
		tst.Error("Expected error for empty ensemble file")
	}
}
