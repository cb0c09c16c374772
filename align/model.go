package align

import "github.com/happyhackingspace/lola/corpus"

// Model is a generative alignment model composed of components.
type Model struct {
	components []Component
}

// NewModel creates a model whose likelihood is the product of components.
func NewModel(components ...Component) *Model {
	return &Model{components: components}
}

// NewIBM1 creates IBM model 1: lexical translation with uniform alignment.
func NewIBM1(lex *LexicalTable) *Model {
	return NewModel(lex, UniformAlignment{})
}

// NewIBM2 creates an IBM model 2 variant: lexical translation with a jump
// distortion table.
func NewIBM2(lex *LexicalTable, jump *JumpTable) *Model {
	return NewModel(lex, jump)
}

// Likelihood returns the unnormalised probability of aligning f[j] to e[i].
func (m *Model) Likelihood(e, f corpus.Sentence, i, j int) float64 {
	p := 1.0
	for _, c := range m.components {
		p *= c.Score(e, f, i, j)
	}
	return p
}

// Posterior returns the unnormalised posterior weight of aligning f[j] to
// e[i]. Dividing by the sum over i gives the alignment posterior of j.
func (m *Model) Posterior(e, f corpus.Sentence, i, j int) float64 {
	p := 1.0
	for _, c := range m.components {
		p *= c.Score(e, f, i, j)
	}
	return p
}

// SuffStats returns an empty accumulator with one fresh component per model
// component, in the same order.
func (m *Model) SuffStats() *SufficientStatistics {
	fresh := make([]Component, len(m.components))
	for k, c := range m.components {
		fresh[k] = c.Fresh()
	}
	return &SufficientStatistics{components: fresh}
}

// Update replaces the model's components. components must match the current
// ones in number and order; this is not checked.
func (m *Model) Update(components []Component) {
	m.components = components
}

// Components returns the model's components in order.
func (m *Model) Components() []Component {
	out := make([]Component, len(m.components))
	copy(out, m.components)
	return out
}

// Component returns the component with the given name, or nil.
func (m *Model) Component(name string) Component {
	for _, c := range m.components {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// Lexical returns the model's lexical table, or nil if it has none.
func (m *Model) Lexical() *LexicalTable {
	lex, _ := m.Component(LexicalName).(*LexicalTable)
	return lex
}
