package align

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/happyhackingspace/lola/corpus"
)

// TrainerConfig holds EM training parameters.
type TrainerConfig struct {
	Iterations int
	LogZero    float64 // log-probability used for zero-mass target positions
	// Observer, if set, is called with the cross-entropy after every
	// iteration, and with iteration 0 for the untrained model.
	Observer func(iteration int, entropy float64)
	Logger   *slog.Logger // nil discards
}

// DefaultTrainerConfig returns default EM parameters.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		Iterations: 5,
		LogZero:    DefaultLogZero,
	}
}

// EM runs exactly config.Iterations rounds of expectation-maximisation on
// the bitext, updating m in place. It returns the trained model and the
// empirical cross-entropy before training and after each iteration.
//
// There is no convergence check and no recovery: the first scoring error
// stops training and is returned with the trace gathered so far.
func EM(b corpus.Bitext, m *Model, config TrainerConfig) (*Model, []float64, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	n := max(config.Iterations, 0)

	entropy := make([]float64, 0, n+1)
	h := EmpiricalCrossEntropy(b, m, config.LogZero)
	entropy = append(entropy, h)
	logger.Debug("EM baseline", "entropy", h, "sentences", b.Len())
	if config.Observer != nil {
		config.Observer(0, h)
	}

	for iter := 1; iter <= n; iter++ {
		ss, err := EStep(b, m)
		if err != nil {
			return nil, entropy, fmt.Errorf("EM iteration %d: %w", iter, err)
		}
		MStep(m, ss)

		h = EmpiricalCrossEntropy(b, m, config.LogZero)
		entropy = append(entropy, h)
		logger.Debug("EM iteration", "iteration", iter, "entropy", h)
		if config.Observer != nil {
			config.Observer(iter, h)
		}
	}
	return m, entropy, nil
}

// EStep gathers expected counts: for every target position the posterior
// over source positions is normalised and each source position is observed
// with its posterior probability as weight.
func EStep(b corpus.Bitext, m *Model) (*SufficientStatistics, error) {
	ss := m.SuffStats()
	var post []float64
	for s := range b.Len() {
		e, f := b.Pair(s)
		if cap(post) < len(e) {
			post = make([]float64, len(e))
		}
		post = post[:len(e)]
		for j := range f {
			z := 0.0
			for i := range e {
				post[i] = m.Posterior(e, f, i, j)
				z += post[i]
			}
			if err := checkMass(s, j, z); err != nil {
				return nil, err
			}
			for i := range e {
				ss.Observation(e, f, i, j, post[i]/z)
			}
		}
	}
	return ss, nil
}

// MStep normalises the expected counts and installs them in the model.
func MStep(m *Model, ss *SufficientStatistics) {
	ss.Normalise()
	m.Update(ss.Components())
}

func checkMass(s, j int, z float64) error {
	switch {
	case z == 0:
		return &ScoreError{Sentence: s, Position: j, Mass: z, err: ErrZeroMass}
	case math.IsNaN(z) || math.IsInf(z, 0):
		return &ScoreError{Sentence: s, Position: j, Mass: z, err: ErrNonFinite}
	}
	return nil
}
