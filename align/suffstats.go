package align

import "github.com/happyhackingspace/lola/corpus"

// SufficientStatistics holds the expected counts gathered by one E-step,
// one accumulator per model component.
type SufficientStatistics struct {
	components []Component
}

// Observation records an (i, j) event with the given weight in every
// component.
func (s *SufficientStatistics) Observation(e, f corpus.Sentence, i, j int, weight float64) {
	for _, c := range s.components {
		c.Observe(e, f, i, j, weight)
	}
}

// Components returns the accumulators in model order.
func (s *SufficientStatistics) Components() []Component {
	return s.components
}

// Normalise normalises every accumulator.
func (s *SufficientStatistics) Normalise() {
	for _, c := range s.components {
		c.Normalise()
	}
}
