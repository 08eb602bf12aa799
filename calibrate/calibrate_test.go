package calibrate

import (
	"math"
	"testing"

	"evoens/ensemble"
)

const trueDG0 = -8.18

func bindingEnsemble(tst *testing.T, dG0 float64) *ensemble.Ensemble {
	e, err := ensemble.New(ensemble.GasConstant)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if err := e.AddSpecies("M", 0, false, true, nil); err != nil {
		tst.Fatal("Error: ", err)
	}
	if err := e.AddSpecies("MX", dG0, true, true, map[string]float64{"X": 1}); err != nil {
		tst.Fatal("Error: ", err)
	}
	return e
}

// titration computes noise-free observations from an ensemble with
// the true binding energy.
func titration(tst *testing.T, potentials []float64) []Observation {
	truth := bindingEnsemble(tst, trueDG0)
	obs := make([]Observation, len(potentials))
	for i, mu := range potentials {
		p, err := truth.Prepare(ensemble.Conditions{"X": ensemble.Scalar(mu)})
		if err != nil {
			tst.Fatal("Error: ", err)
		}
		fx, _ := p.FxObs(make([]float64, truth.NSpecies()), nil)
		obs[i] = Observation{Potentials: map[string]float64{"X": mu}, FxObs: fx[0]}
	}
	return obs
}

func TestLikelihoodAtTruth(tst *testing.T) {
	obs := titration(tst, []float64{-12, -10, -8.18, -6, -4})

	fit, err := NewTitrationFit(bindingEnsemble(tst, trueDG0), []string{"MX"}, obs)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if l := fit.Likelihood(); math.Abs(l) > 1e-12 {
		tst.Error("Expected likelihood 0 at the true energy, got", l)
	}

	wrong, err := NewTitrationFit(bindingEnsemble(tst, 0), []string{"MX"}, obs)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if wrong.Likelihood() >= fit.Likelihood() {
		tst.Error("Expected a lower likelihood away from the true energy")
	}
}

func TestTitrationFitRecovers(tst *testing.T) {
	obs := titration(tst, []float64{-12, -10, -8.18, -6, -4})

	fit, err := NewTitrationFit(bindingEnsemble(tst, 0), []string{"MX"}, obs)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	result, err := Fit(fit, 500)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if got := result["MX"]; math.Abs(got-trueDG0) > 0.2 {
		tst.Error("Expected fitted dG0 close to ", trueDG0, ", got", got)
	}
}

func TestCopyIsIndependent(tst *testing.T) {
	obs := titration(tst, []float64{-10, -8.18, -6})
	fit, err := NewTitrationFit(bindingEnsemble(tst, 0), []string{"MX"}, obs)
	if err != nil {
		tst.Fatal("Error: ", err)
	}

	cp := fit.Copy()
	cp.GetFloatParameters()[0].Set(-20)

	got, err := fit.DG0("MX")
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if got != 0 {
		tst.Error("Copy mutation leaked into the original:", got)
	}
}

func TestTitrationFitValidation(tst *testing.T) {
	obs := titration(tst, []float64{-10, -8.18, -6})
	e := bindingEnsemble(tst, 0)

	if _, err := NewTitrationFit(e, nil, obs); err == nil {
		tst.Error("Expected error for empty species list")
	}
	if _, err := NewTitrationFit(e, []string{"XY"}, obs); err == nil {
		tst.Error("Expected error for unknown species")
	}
	if _, err := NewTitrationFit(e, []string{"MX"}, obs[:0]); err == nil {
		tst.Error("Expected error for too few observations")
	}
	bad := []Observation{{Potentials: map[string]float64{"X": 0}, FxObs: 1.5}}
	if _, err := NewTitrationFit(e, []string{"MX"}, bad); err == nil {
		tst.Error("Expected error for fx_obs outside [0, 1]")
	}
}
