// Package fitness maps ensemble observables to scalar fitness values.
// An Evaluator combines prepared conditions, an observable choice, one
// fitness function per condition and a combination rule into a single
// number per genotype, using the ensemble fast paths.
package fitness

import (
	"fmt"
	"math"

	"evoens/ensemble"
)

// Observable names accepted by NewEvaluator.
const (
	FxObs = "fx_obs"
	DGObs = "dG_obs"
)

// Func converts one observable value into a fitness contribution.
type Func func(obs float64) float64

// On favors high observable values (selection for the active state).
func On(obs float64) float64 { return obs }

// Off favors low observable values (selection against the active
// state).
func Off(obs float64) float64 { return 1 - obs }

// Neutral ignores the observable.
func Neutral(obs float64) float64 { return 1 }

// ByName resolves a fitness function from its configuration name.
func ByName(name string) (Func, error) {
	switch name {
	case "on":
		return On, nil
	case "off":
		return Off, nil
	case "neutral":
		return Neutral, nil
	}
	return nil, fmt.Errorf("unknown fitness function: %s", name)
}

// Combine folds per-condition fitness values into one scalar.
type Combine func(vals []float64) float64

// Product multiplies per-condition fitness values.
func Product(vals []float64) float64 {
	out := 1.0
	for _, v := range vals {
		out *= v
	}
	return out
}

// Min takes the worst per-condition fitness.
func Min(vals []float64) float64 {
	out := vals[0]
	for _, v := range vals[1:] {
		if v < out {
			out = v
		}
	}
	return out
}

// Evaluator computes genotype fitness from a mutational offset array.
type Evaluator struct {
	prep  *ensemble.Prepared
	obs   string
	fns   []Func
	temps []float64

	combine         Combine
	selectOnFolded  bool
	foldedThreshold float64
}

// NewEvaluator builds an evaluator for prepared conditions. obs is
// FxObs or DGObs. fns holds one function per condition; a single
// function is broadcast to every condition. temps is a scalar-or-array
// temperature (nil means 298.15 K). The combination rule defaults to
// Product.
func NewEvaluator(prep *ensemble.Prepared, obs string, fns []Func, temps []float64) (*Evaluator, error) {
	if obs != FxObs && obs != DGObs {
		return nil, fmt.Errorf("obs should be one of %s, %s; got %s", FxObs, DGObs, obs)
	}
	n := prep.NConditions()
	if len(fns) == 0 {
		return nil, fmt.Errorf("at least one fitness function is required")
	}
	if len(fns) != 1 && len(fns) != n {
		return nil, fmt.Errorf("%d fitness functions for %d conditions", len(fns), n)
	}
	if len(temps) == 0 {
		temps = []float64{ensemble.DefaultTemperature}
	}
	if len(temps) != 1 && len(temps) != n {
		return nil, fmt.Errorf("%d temperatures for %d conditions", len(temps), n)
	}

	tt := make([]float64, n)
	for j := 0; j < n; j++ {
		t := temps[0]
		if len(temps) > 1 {
			t = temps[j]
		}
		if t <= 0 || math.IsNaN(t) {
			return nil, fmt.Errorf("temperature must be > 0, got %v", t)
		}
		tt[j] = t
	}

	return &Evaluator{
		prep:    prep,
		obs:     obs,
		fns:     fns,
		temps:   tt,
		combine: Product,
	}, nil
}

// SetCombine replaces the combination rule.
func (ev *Evaluator) SetCombine(c Combine) {
	ev.combine = c
}

// SetSelectOnFolded gates fitness to zero whenever the fraction folded
// at any condition drops below threshold.
func (ev *Evaluator) SetSelectOnFolded(threshold float64) {
	ev.selectOnFolded = true
	ev.foldedThreshold = threshold
}

// Prepared returns the prepared conditions the evaluator works on.
func (ev *Evaluator) Prepared() *ensemble.Prepared {
	return ev.prep
}

// Fitness computes the scalar fitness of a genotype given its dense
// per-species mutational offset array. An undefined observable (NaN)
// yields fitness 0.
func (ev *Evaluator) Fitness(mut []float64) float64 {
	var obs, fxFolded []float64
	if ev.obs == FxObs {
		obs, fxFolded = ev.prep.FxObs(mut, ev.temps)
	} else {
		obs, fxFolded = ev.prep.DGObs(mut, ev.temps)
	}

	if ev.selectOnFolded {
		for _, fx := range fxFolded {
			if fx < ev.foldedThreshold {
				return 0
			}
		}
	}

	vals := make([]float64, len(obs))
	for j, o := range obs {
		fn := ev.fns[0]
		if len(ev.fns) > 1 {
			fn = ev.fns[j]
		}
		vals[j] = fn(o)
	}

	f := ev.combine(vals)
	if math.IsNaN(f) {
		return 0
	}
	return f
}
