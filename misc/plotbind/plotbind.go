// plotbind creates a plot of a binding curve for an ensemble.
package main

import (
	"flag"
	"fmt"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"evoens/ensemble"
)

func main() {
	ensF := flag.String("ensemble", "", "ensemble json file")
	ligand := flag.String("ligand", "", "ligand to titrate")
	from := flag.Float64("from", -15, "starting chemical potential")
	to := flag.Float64("to", 0, "final chemical potential")
	n := flag.Int("n", 100, "number of points")
	out := flag.String("out", "binding.png", "output file")
	flag.Parse()

	if *ensF == "" || *ligand == "" {
		flag.Usage()
		os.Exit(1)
	}

	f, err := os.Open(*ensF)
	if err != nil {
		panic(err)
	}
	ens, err := ensemble.ParseJSON(f)
	f.Close()
	if err != nil {
		panic(err)
	}

	mus := make([]float64, *n)
	for i := range mus {
		mus[i] = *from + (*to-*from)*float64(i)/float64(*n-1)
	}
	prep, err := ens.Prepare(ensemble.Conditions{*ligand: mus})
	if err != nil {
		panic(err)
	}
	fx, _ := prep.FxObs(make([]float64, ens.NSpecies()), nil)

	p := plot.New()
	p.X.Label.Text = fmt.Sprintf("mu(%s)", *ligand)
	p.Y.Label.Text = "fx_obs"

	pts := make(plotter.XYs, *n)
	for i := range pts {
		pts[i].X = mus[i]
		pts[i].Y = fx[i]
	}

	err = plotutil.AddLinePoints(p, "fx_obs", pts)
	if err != nil {
		panic(err)
	}

	if err := p.Save(4*vg.Inch, 4*vg.Inch, *out); err != nil {
		panic(err)
	}
}
