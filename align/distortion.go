package align

import "github.com/happyhackingspace/lola/corpus"

// Component names of the alignment distributions.
const (
	UniformName = "uniform"
	JumpName    = "jump"
)

// UniformAlignment gives every source position the same probability 1/|e|.
// It has no parameters.
type UniformAlignment struct{}

// Name implements Component.
func (UniformAlignment) Name() string { return UniformName }

// Score implements Component.
func (UniformAlignment) Score(e, f corpus.Sentence, i, j int) float64 {
	return 1.0 / float64(len(e))
}

// Observe implements Component.
func (UniformAlignment) Observe(e, f corpus.Sentence, i, j int, weight float64) {}

// Normalise implements Component.
func (UniformAlignment) Normalise() {}

// Fresh implements Component.
func (u UniformAlignment) Fresh() Component { return u }

// JumpTable is a categorical distribution over distortion jumps.
//
// The jump of aligning f[j] to e[i] is i' - floor(j*l/m), where i' is the
// source position counted without NULL, l the source length without NULL
// and m the target length. Jumps are clamped to [-maxJump, maxJump]. When
// the source side carries NULL at position 0, alignments to it share a
// dedicated bucket.
type JumpTable struct {
	maxJump int
	null    bool
	// params is indexed by jump+maxJump; with null the last slot is NULL.
	params []float64
	counts []float64
}

// NewJumpTable creates a uniform jump distribution.
func NewJumpTable(maxJump int, null bool) *JumpTable {
	if maxJump < 0 {
		maxJump = 0
	}
	n := 2*maxJump + 1
	if null {
		n++
	}
	params := make([]float64, n)
	for k := range params {
		params[k] = 1.0 / float64(n)
	}
	return &JumpTable{
		maxJump: maxJump,
		null:    null,
		params:  params,
		counts:  make([]float64, n),
	}
}

// Name implements Component.
func (t *JumpTable) Name() string { return JumpName }

// Jump returns the clamped jump of aligning f[j] to e[i], and whether the
// event is an alignment to NULL.
func (t *JumpTable) Jump(e, f corpus.Sentence, i, j int) (int, bool) {
	offset := 0
	if t.null {
		if i == 0 {
			return 0, true
		}
		offset = 1
	}
	l := len(e) - offset
	m := len(f)
	jump := (i - offset) - j*l/m
	return max(-t.maxJump, min(t.maxJump, jump)), false
}

func (t *JumpTable) bucket(e, f corpus.Sentence, i, j int) int {
	jump, null := t.Jump(e, f, i, j)
	if null {
		return len(t.params) - 1
	}
	return jump + t.maxJump
}

// Score implements Component.
func (t *JumpTable) Score(e, f corpus.Sentence, i, j int) float64 {
	return t.params[t.bucket(e, f, i, j)]
}

// Prob returns the probability of a jump, or of NULL if null is true.
func (t *JumpTable) Prob(jump int, null bool) float64 {
	if null {
		if !t.null {
			return 0
		}
		return t.params[len(t.params)-1]
	}
	if jump < -t.maxJump || jump > t.maxJump {
		return 0
	}
	return t.params[jump+t.maxJump]
}

// Observe implements Component.
func (t *JumpTable) Observe(e, f corpus.Sentence, i, j int, weight float64) {
	t.counts[t.bucket(e, f, i, j)] += weight
}

// Normalise implements Component. Without observed mass the previous
// distribution is kept.
func (t *JumpTable) Normalise() {
	total := 0.0
	for _, c := range t.counts {
		total += c
	}
	if total > 0 {
		params := make([]float64, len(t.counts))
		for k, c := range t.counts {
			params[k] = c / total
		}
		t.params = params
	}
	t.counts = make([]float64, len(t.params))
}

// Fresh implements Component.
func (t *JumpTable) Fresh() Component {
	return &JumpTable{
		maxJump: t.maxJump,
		null:    t.null,
		params:  t.params,
		counts:  make([]float64, len(t.params)),
	}
}

// MaxJump returns the largest representable jump magnitude.
func (t *JumpTable) MaxJump() int { return t.maxJump }
