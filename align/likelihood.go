package align

import (
	"math"

	"github.com/happyhackingspace/lola/corpus"
)

// DefaultLogZero is the log-probability substituted for a target position
// with zero marginal probability.
const DefaultLogZero = -99.0

// Marginal returns p(f[j] | e), the likelihood summed over source positions.
func Marginal(e, f corpus.Sentence, j int, m *Model) float64 {
	p := 0.0
	for i := range e {
		p += m.Likelihood(e, f, i, j)
	}
	return p
}

// LogLikelihood returns the natural-log likelihood of the target side given
// the source side. A target position with zero (or non-finite) marginal
// probability is an error.
func LogLikelihood(b corpus.Bitext, m *Model) (float64, error) {
	ll := 0.0
	for s := range b.Len() {
		e, f := b.Pair(s)
		for j := range f {
			p := Marginal(e, f, j, m)
			if err := checkMass(s, j, p); err != nil {
				return 0, err
			}
			ll += math.Log(p)
		}
	}
	return ll, nil
}

// EmpiricalCrossEntropy returns the average negative log-probability per
// sentence pair. Each target position with zero marginal probability
// contributes logZero instead of log(0). An empty bitext has entropy 0.
func EmpiricalCrossEntropy(b corpus.Bitext, m *Model, logZero float64) float64 {
	if b.Len() == 0 {
		return 0
	}
	total := 0.0
	for s := range b.Len() {
		e, f := b.Pair(s)
		lp := 0.0
		for j := range f {
			if p := Marginal(e, f, j, m); p == 0 {
				lp += logZero
			} else {
				lp += math.Log(p)
			}
		}
		total += lp
	}
	return -total / float64(b.Len())
}
