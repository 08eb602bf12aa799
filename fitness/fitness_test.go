package fitness

import (
	"math"
	"testing"

	"evoens/ensemble"
)

const smallDiff = 1e-9

func preparedTwoState(tst *testing.T, c ensemble.Conditions) (*ensemble.Ensemble, *ensemble.Prepared) {
	e, err := ensemble.New(ensemble.GasConstant)
	if err != nil {
		tst.Fatal(err)
	}
	if err := e.AddSpecies("M", 0, false, true, nil); err != nil {
		tst.Fatal(err)
	}
	if err := e.AddSpecies("MX", -8.18, true, true, map[string]float64{"X": 1}); err != nil {
		tst.Fatal(err)
	}
	p, err := e.Prepare(c)
	if err != nil {
		tst.Fatal(err)
	}
	return e, p
}

func TestEvaluatorOn(tst *testing.T) {
	_, p := preparedTwoState(tst, ensemble.Conditions{"X": {-8.18}})

	ev, err := NewEvaluator(p, FxObs, []Func{On}, nil)
	if err != nil {
		tst.Fatal(err)
	}
	// Midpoint of the binding curve: fx_obs is exactly 0.5.
	if f := ev.Fitness(nil); math.Abs(f-0.5) > smallDiff {
		tst.Error("Expected fitness 0.5, got", f)
	}
}

func TestEvaluatorBroadcastAndCombine(tst *testing.T) {
	_, p := preparedTwoState(tst, ensemble.Conditions{"X": {-8.18, -8.18}})

	ev, err := NewEvaluator(p, FxObs, []Func{On}, nil)
	if err != nil {
		tst.Fatal(err)
	}
	if f := ev.Fitness(nil); math.Abs(f-0.25) > smallDiff {
		tst.Error("Expected product fitness 0.25, got", f)
	}

	ev.SetCombine(Min)
	if f := ev.Fitness(nil); math.Abs(f-0.5) > smallDiff {
		tst.Error("Expected min fitness 0.5, got", f)
	}

	// One function per condition: select on opposite states.
	ev2, err := NewEvaluator(p, FxObs, []Func{On, Off}, nil)
	if err != nil {
		tst.Fatal(err)
	}
	if f := ev2.Fitness(nil); math.Abs(f-0.25) > smallDiff {
		tst.Error("Expected fitness 0.25, got", f)
	}
}

func TestSelectOnFolded(tst *testing.T) {
	e, err := ensemble.New(ensemble.GasConstant)
	if err != nil {
		tst.Fatal(err)
	}
	if err := e.AddSpecies("F", 0, true, true, nil); err != nil {
		tst.Fatal(err)
	}
	// Unfolded state dominates by 5 kcal/mol.
	if err := e.AddSpecies("U", -5, false, false, nil); err != nil {
		tst.Fatal(err)
	}
	p, err := e.Prepare(nil)
	if err != nil {
		tst.Fatal(err)
	}

	ev, err := NewEvaluator(p, FxObs, []Func{Neutral}, nil)
	if err != nil {
		tst.Fatal(err)
	}
	if f := ev.Fitness(nil); f != 1 {
		tst.Error("Expected neutral fitness 1, got", f)
	}

	ev.SetSelectOnFolded(0.5)
	if f := ev.Fitness(nil); f != 0 {
		tst.Error("Expected gated fitness 0, got", f)
	}
}

func TestByName(tst *testing.T) {
	for _, name := range []string{"on", "off", "neutral"} {
		if _, err := ByName(name); err != nil {
			tst.Error("Expected function for", name, ", got", err)
		}
	}
	if _, err := ByName("bogus"); err == nil {
		tst.Error("Expected error for unknown fitness function")
	}
}

func TestEvaluatorValidation(tst *testing.T) {
	_, p := preparedTwoState(tst, ensemble.Conditions{"X": {-8.18, 0}})

	if _, err := NewEvaluator(p, "bogus", []Func{On}, nil); err == nil {
		tst.Error("Expected error for unknown observable")
	}
	if _, err := NewEvaluator(p, FxObs, nil, nil); err == nil {
		tst.Error("Expected error for missing fitness functions")
	}
	if _, err := NewEvaluator(p, FxObs, []Func{On, On, On}, nil); err == nil {
		tst.Error("Expected error for function/condition mismatch")
	}
	if _, err := NewEvaluator(p, FxObs, []Func{On}, []float64{-1}); err == nil {
		tst.Error("Expected error for non-positive temperature")
	}
}
