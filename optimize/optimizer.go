// optimize provides maximum-likelihood optimizers for models exposing
// float parameters.
package optimize

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/op/go-logging"
)

// log is the global logging variable.
var log = logging.MustGetLogger("optimize")

// Optimizable is something which can be optimized by an Optimizer.
type Optimizable interface {
	GetFloatParameters() FloatParameters
	Copy() Optimizable
	Likelihood() float64
}

// Optimizer is a likelihood optimizer.
type Optimizer interface {
	SetOptimizable(Optimizable)
	WatchSignals(...os.Signal)
	SetReportPeriod(period int)
	Run(iterations int)
	GetMaxL() float64
	GetMaxLParameters() []float64
}

// BaseOptimizer contains basic data for an optimizer.
type BaseOptimizer struct {
	Optimizable
	parameters FloatParameters
	i          int
	calls      int
	maxL       float64
	maxLPar    []float64
	repPeriod  int
	sig        chan os.Signal
	Quiet      bool
}

// SetOptimizable sets model for the optimization.
func (o *BaseOptimizer) SetOptimizable(opt Optimizable) {
	o.Optimizable = opt
	o.parameters = opt.GetFloatParameters()
}

// WatchSignals installs OS signal watchers, so an optimization can be
// interrupted cleanly.
func (o *BaseOptimizer) WatchSignals(sigs ...os.Signal) {
	o.sig = make(chan os.Signal, 1)
	signal.Notify(o.sig, sigs...)
}

// SetReportPeriod sets the number of iterations between reports.
func (o *BaseOptimizer) SetReportPeriod(period int) {
	o.repPeriod = period
}

// PrintHeader prints the optimization report header.
func (o *BaseOptimizer) PrintHeader(parameters FloatParameters) {
	if !o.Quiet {
		fmt.Printf("iteration\tlikelihood\t%s\n", parameters.NamesString())
	}
}

// PrintLine prints one iteration report.
func (o *BaseOptimizer) PrintLine(parameters FloatParameters, l float64) {
	if !o.Quiet {
		fmt.Printf("%d\t%f\t%s\n", o.i, l, parameters.ValuesString())
	}
}

// PrintFinal prints the optimized parameter values.
func (o *BaseOptimizer) PrintFinal(parameters FloatParameters) {
	if !o.Quiet {
		for _, par := range parameters {
			log.Noticef("%s=%v", par.Name(), par.Get())
		}
	}
}

// GetMaxL returns the maximum likelihood value seen so far.
func (o *BaseOptimizer) GetMaxL() float64 {
	return o.maxL
}

// GetMaxLParameters returns parameter values for the maximum
// likelihood value.
func (o *BaseOptimizer) GetMaxLParameters() []float64 {
	return o.maxLPar
}

// None is an optimizer which computes the initial likelihood and
// exits.
type None struct {
	BaseOptimizer
}

// NewNone creates an optimizer which computes initial likelihood only.
func NewNone() *None {
	return &None{}
}

// Run computes the likelihood once.
func (n *None) Run(iterations int) {
	l := n.Likelihood()
	n.calls++
	n.maxL = l
	n.maxLPar = n.parameters.Values(n.maxLPar)
	n.PrintHeader(n.parameters)
	n.PrintLine(n.parameters, l)
}
