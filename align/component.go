// Package align estimates zeroth-order word-alignment models with EM.
//
// A Model is the product of its Components. Each Component scores the event
// "target position j of f is generated from source position i of e", and
// can accumulate fractional observations of that event and turn them into
// new parameters. IBM model 1 is a lexical table times a uniform alignment
// distribution; IBM model 2 replaces the uniform distribution with a jump
// table.
//
//	m := align.NewIBM1(align.NewLexicalTable(f.VocabSize()))
//	m, entropy, err := align.EM(bitext, m, align.DefaultTrainerConfig())
//	alignments := align.Viterbi(bitext, m)
package align

import "github.com/happyhackingspace/lola/corpus"

// Component is one factor of a generative alignment model.
//
// Score must be non-negative. Normalise turns the observations accumulated
// since the component was created into parameters, and must leave the
// parameters of any context without observed mass unchanged.
type Component interface {
	// Name identifies the component within a model.
	Name() string

	// Score returns the contribution of aligning f[j] to e[i].
	Score(e, f corpus.Sentence, i, j int) float64

	// Observe adds weight to the statistic of the (i, j) event.
	Observe(e, f corpus.Sentence, i, j int, weight float64)

	// Normalise converts accumulated counts into parameters.
	Normalise()

	// Fresh returns an accumulator holding the current parameters and no counts.
	Fresh() Component
}
