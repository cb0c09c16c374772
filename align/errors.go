package align

import (
	"errors"
	"fmt"
)

var (
	// ErrZeroMass reports a target position whose marginal probability is zero.
	ErrZeroMass = errors.New("zero probability mass")
	// ErrNonFinite reports a marginal probability that overflowed or is NaN.
	ErrNonFinite = errors.New("non-finite probability mass")
)

// ScoreError locates a target position whose summed score is unusable.
type ScoreError struct {
	Sentence int     // index of the sentence pair
	Position int     // 0-based target position
	Mass     float64 // sum of scores over source positions
	err      error
}

func (e *ScoreError) Error() string {
	return fmt.Sprintf("sentence %d, target position %d: %v (%g)", e.Sentence, e.Position, e.err, e.Mass)
}

func (e *ScoreError) Unwrap() error {
	return e.err
}
