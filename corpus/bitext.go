package corpus

import (
	"errors"
	"fmt"
)

// ErrLengthMismatch is returned when the two sides of a parallel corpus
// have a different number of sentences.
var ErrLengthMismatch = errors.New("parallel corpora differ in sentence count")

// Bitext pairs a source (E) and a target (F) corpus sentence by sentence.
// A Bitext may cover a window [lo, hi) of the underlying corpora, so the
// same encoded corpora can serve as training and test data.
type Bitext struct {
	E, F *Corpus
	lo   int
	hi   int
}

// NewBitext pairs two corpora with the same number of sentences.
func NewBitext(e, f *Corpus) (Bitext, error) {
	if e.NSentences() != f.NSentences() {
		return Bitext{}, fmt.Errorf("%w: %d source vs %d target", ErrLengthMismatch, e.NSentences(), f.NSentences())
	}
	return Bitext{E: e, F: f, lo: 0, hi: e.NSentences()}, nil
}

// Len returns the number of sentence pairs in the window.
func (b Bitext) Len() int {
	return b.hi - b.lo
}

// Pair returns the s-th sentence pair of the window.
func (b Bitext) Pair(s int) (Sentence, Sentence) {
	return b.E.Sentence(b.lo + s), b.F.Sentence(b.lo + s)
}

// Window returns the sub-range [lo, hi) of b, relative to b's own window.
// Nothing is copied.
func (b Bitext) Window(lo, hi int) Bitext {
	return Bitext{E: b.E, F: b.F, lo: b.lo + lo, hi: b.lo + hi}
}
