// Package dist implements the random draws needed by the evolutionary
// engine: Poisson counts and weighted index sampling. Every function
// takes an explicit random source so that simulations are reproducible
// from a seed.
package dist

import (
	"math"
	"math/rand"

	"github.com/gonum/mathext"
)

// poissonNormalCutoff is the mean above which the Poisson draw
// switches from exact inversion to a normal approximation. At this
// size the relative error of the approximation is far below the
// stochastic noise of the simulation itself.
const poissonNormalCutoff = 50

// Poisson draws a Poisson-distributed count with the given mean.
// Small means use exact multiplicative inversion; large means use the
// normal quantile approximation.
func Poisson(rng *rand.Rand, mean float64) int {
	if mean <= 0 {
		return 0
	}
	if mean < poissonNormalCutoff {
		// Knuth's multiplicative method.
		l := math.Exp(-mean)
		k := 0
		p := 1.0
		for {
			p *= rng.Float64()
			if p <= l {
				return k
			}
			k++
		}
	}

	z := mathext.NormalQuantile(rng.Float64())
	k := int(math.Round(mean + z*math.Sqrt(mean)))
	if k < 0 {
		k = 0
	}
	return k
}

// Chooser samples indices proportionally to a fixed weight vector
// using a cumulative sum and binary search. Weights must be >= 0 and
// sum to a positive total.
type Chooser struct {
	cum []float64
}

// NewChooser builds a sampler over the given weights. ok is false if
// the total weight is not positive.
func NewChooser(weights []float64) (c Chooser, ok bool) {
	cum := make([]float64, len(weights))
	total := 0.0
	for i, w := range weights {
		if w > 0 {
			total += w
		}
		cum[i] = total
	}
	if total <= 0 || math.IsNaN(total) {
		return Chooser{}, false
	}
	return Chooser{cum: cum}, true
}

// Draw returns one index sampled with replacement.
func (c Chooser) Draw(rng *rand.Rand) int {
	u := rng.Float64() * c.cum[len(c.cum)-1]
	lo, hi := 0, len(c.cum)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if c.cum[mid] <= u {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Multinomial draws n indices with replacement according to weights.
// A zero total weight falls back to uniform sampling; this is the
// documented behavior for populations where every genotype is equally
// unfit.
func Multinomial(rng *rand.Rand, weights []float64, n int) []int {
	out := make([]int, n)
	c, ok := NewChooser(weights)
	if !ok {
		for i := range out {
			out[i] = rng.Intn(len(weights))
		}
		return out
	}
	for i := range out {
		out[i] = c.Draw(rng)
	}
	return out
}
