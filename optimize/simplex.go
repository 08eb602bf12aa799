package optimize

import (
	"math"
)

const (
	tiny       = 1e-10
	smallDelta = 1e-6
)

// DS is a downhill simplex optimizer. On convergence the simplex is
// rebuilt once from the best point to escape premature collapse.
type DS struct {
	BaseOptimizer
	delta      float64
	ftol       float64
	repeat     bool
	oldL       float64
	points     []Optimizable
	psum       []float64
	simplexPar []FloatParameters
	l          []float64
	newOpt     Optimizable
	newPar     FloatParameters
}

// NewDS creates a new downhill simplex optimizer.
func NewDS() *DS {
	ds := &DS{
		delta: 1,
		ftol:  tiny,
	}
	ds.repPeriod = 10
	return ds
}

func (ds *DS) createSimplex(opt Optimizable, delta float64) {
	parameters := opt.GetFloatParameters()
	ds.points = make([]Optimizable, len(parameters)+1)
	ds.simplexPar = make([]FloatParameters, len(ds.points))
	ds.l = make([]float64, len(ds.points))
	ds.points[0] = opt
	ds.simplexPar[0] = parameters
	for i := 1; i < len(ds.points); i++ {
		point := opt.Copy()
		ds.points[i] = point
		ds.simplexPar[i] = point.GetFloatParameters()
	}
	for i := 0; i < len(parameters); i++ {
		parameter := ds.simplexPar[i+1][i]
		parameter.Set(parameter.Get() + delta)
	}
	for i := range ds.points {
		if ds.simplexPar[i].InRange() {
			ds.l[i] = ds.points[i].Likelihood()
		} else {
			ds.l[i] = math.Inf(-1)
		}
	}
}

// SetOptimizable sets the model and builds the initial simplex.
func (ds *DS) SetOptimizable(opt Optimizable) {
	ds.Optimizable = opt
	ds.parameters = opt.GetFloatParameters()
	ds.createSimplex(opt, ds.delta)
}

// amotry extrapolates by factor fac through the face of the simplex
// across from the low point, tries it, and replaces the low point if
// the new point is better.
func (ds *DS) amotry(ilo int, fac float64) float64 {
	if ds.newOpt == nil {
		ds.newOpt = ds.points[0].Copy()
		ds.newPar = ds.newOpt.GetFloatParameters()
	}
	ds.calcPsum()
	ndim := len(ds.newPar)
	fac1 := (1 - fac) / float64(ndim)
	fac2 := fac1 - fac
	for j := 0; j < ndim; j++ {
		ds.newPar[j].Set(ds.psum[j]*fac1 - ds.simplexPar[ilo][j].Get()*fac2)
	}
	var l float64
	if ds.newPar.InRange() {
		l = ds.newOpt.Likelihood()
		ds.calls++
	} else {
		l = math.Inf(-1)
	}
	if l > ds.l[ilo] {
		ds.points[ilo], ds.newOpt = ds.newOpt, ds.points[ilo]
		ds.simplexPar[ilo], ds.newPar = ds.newPar, ds.simplexPar[ilo]
		ds.l[ilo] = l
	}
	return l
}

func (ds *DS) calcPsum() {
	ds.psum = make([]float64, len(ds.simplexPar[0]))
	for i := range ds.psum {
		for _, parameters := range ds.simplexPar {
			ds.psum[i] += parameters[i].Get()
		}
	}
}

// Run runs the optimization for at most the given number of
// iterations.
func (ds *DS) Run(iterations int) {
	// Lowest (worst), next-lowest and highest points of the simplex.
	var ilo, inlo, ihi int
	var llo, lnlo, lhi float64
	ds.PrintHeader(ds.simplexPar[0])
	ds.maxL = math.Inf(-1)
Iter:
	for ds.i = 1; ds.i <= iterations; ds.i++ {
		if ds.l[0] < ds.l[1] {
			ilo, inlo, ihi = 0, 1, 1
		} else {
			ilo, inlo, ihi = 1, 0, 0
		}
		llo = ds.l[ilo]
		lnlo = ds.l[inlo]
		lhi = ds.l[ihi]
		for i := 2; i < len(ds.points); i++ {
			if ds.l[i] >= lhi {
				lhi = ds.l[i]
				ihi = i
			}
			if ds.l[i] < llo {
				lnlo = llo
				inlo = ilo
				llo = ds.l[i]
				ilo = i
			} else if ds.l[i] < lnlo {
				lnlo = ds.l[i]
				inlo = i
			}
		}
		if lhi > ds.maxL {
			ds.maxL = lhi
			ds.maxLPar = ds.simplexPar[ihi].Values(ds.maxLPar)
		}
		if ds.i%ds.repPeriod == 0 {
			log.Debugf("%d: L=%f (%f)", ds.i, lhi, lhi-llo)
			ds.PrintLine(ds.simplexPar[ihi], lhi)
		}
		rtol := 2 * math.Abs(lhi-llo) / (math.Abs(llo) + math.Abs(lhi) + tiny)
		if rtol < ds.ftol {
			if ds.repeat && math.Abs(ds.oldL-lhi) < smallDelta {
				break Iter
			}
			ds.repeat = true
			ds.oldL = lhi
			log.Infof("converged, retrying")
			ds.createSimplex(ds.points[ihi], ds.delta)
			continue
		}
		l := ds.amotry(ilo, -1)
		switch {
		case l >= lhi:
			ds.amotry(ilo, 2)
		case l <= lnlo:
			lsave := llo
			l := ds.amotry(ilo, 0.5)
			if l <= lsave {
				// Contract the whole simplex towards the best point.
				for i, point := range ds.points {
					if i == ihi {
						continue
					}
					for j := range ds.simplexPar[i] {
						ds.simplexPar[i][j].Set(0.5 * (ds.simplexPar[i][j].Get() + ds.simplexPar[ihi][j].Get()))
					}
					if ds.simplexPar[i].InRange() {
						ds.l[i] = point.Likelihood()
						ds.calls++
					} else {
						ds.l[i] = math.Inf(-1)
					}
				}
			}
		}
		select {
		case s := <-ds.sig:
			log.Warningf("Received signal %v, exiting.", s)
			break Iter
		default:
		}
	}
	if ds.i > iterations {
		log.Warningf("Iterations exceeded (%d)", iterations)
	}

	ds.parameters.Update(ds.simplexPar[ihi])
	if !ds.Quiet {
		log.Info("Finished downhill simplex")
		log.Noticef("Maximum likelihood: %v", ds.maxL)
		log.Infof("Likelihood function calls: %v", ds.calls)
	}
	ds.PrintFinal(ds.simplexPar[ihi])
}
