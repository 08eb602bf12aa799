package optimize

import (
	"math"

	lbfgsb "github.com/idavydov/go-lbfgsb"
)

// LBFGSB is a limited-memory bound-constrained quasi-Newton optimizer.
type LBFGSB struct {
	BaseOptimizer
	dH   float64
	grad []float64
}

// NewLBFGSB creates a new LBFGSB optimizer.
func NewLBFGSB() *LBFGSB {
	return &LBFGSB{
		BaseOptimizer: BaseOptimizer{
			repPeriod: 10,
		},
		dH: 1e-6,
	}
}

// Logger is called by the L-BFGS-B library on every iteration.
func (l *LBFGSB) Logger(info *lbfgsb.OptimizationIterationInformation) {
	l.i = info.Iteration
	l.parameters.SetValues(info.X)
	if l.i%l.repPeriod == 0 {
		l.PrintLine(l.parameters, -info.F)
	}
	select {
	case s := <-l.sig:
		log.Fatal("Received signal, exiting:", s)
	default:
	}
}

// EvaluateFunction computes the negative log-likelihood at x.
func (l *LBFGSB) EvaluateFunction(x []float64) float64 {
	if !l.parameters.ValuesInRange(x) {
		return math.Inf(+1)
	}

	l.parameters.SetValues(x)

	likelihood := l.Likelihood()
	l.calls++
	if likelihood > l.maxL {
		l.maxL = likelihood
		l.maxLPar = l.parameters.Values(l.maxLPar)
	}
	return -likelihood
}

// EvaluateGradient computes the gradient of the negative
// log-likelihood numerically using central differences.
func (l *LBFGSB) EvaluateGradient(x []float64) (grad []float64) {
	if l.grad == nil {
		l.grad = make([]float64, len(x))
	}
	grad = l.grad

	for i := range x {
		no1 := l.Optimizable.Copy()
		par1 := no1.GetFloatParameters()
		par1.SetValues(x)
		par1[i].Set(x[i] - l.dH)
		l1 := -no1.Likelihood()
		l.calls++

		no2 := no1.Copy()
		par2 := no2.GetFloatParameters()
		par2[i].Set(x[i] + l.dH)
		l2 := -no2.Likelihood()
		l.calls++

		grad[i] = (l2 - l1) / 2 / l.dH
	}
	select {
	case s := <-l.sig:
		log.Fatal("Received signal, exiting:", s)
	default:
	}
	return
}

// Run runs the optimization for at most the given number of
// iterations.
func (l *LBFGSB) Run(iterations int) {
	l.maxL = math.Inf(-1)
	l.PrintHeader(l.parameters)

	bounds := make([][2]float64, len(l.parameters))
	for i, par := range l.parameters {
		bounds[i][0] = par.GetMin() + 1e-5
		bounds[i][1] = par.GetMax() - 1e-5
	}

	opt := new(lbfgsb.Lbfgsb)
	opt.SetApproximationSize(10)
	opt.SetFTolerance(1e-9)
	opt.SetGTolerance(1e-9)

	opt.SetBounds(bounds)
	opt.SetLogger(l.Logger)

	_, exitStatus := opt.Minimize(l, l.parameters.Values(nil))
	log.Info("Exit status: ", exitStatus)

	l.parameters.SetValues(l.maxLPar)
	if !l.Quiet {
		log.Info("Finished L-BFGS-B")
		log.Noticef("Maximum likelihood: %v", l.maxL)
		log.Infof("Likelihood function calls: %v", l.calls)
	}
	l.PrintFinal(l.parameters)
}
