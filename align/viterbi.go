package align

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/happyhackingspace/lola/corpus"
)

// ViterbiAlignment returns the best source position for every target
// position of a sentence pair. A candidate replaces the current best only if
// its posterior is strictly greater, starting from position 0 with score 0,
// so ties keep the earliest position.
func ViterbiAlignment(e, f corpus.Sentence, m *Model) []int {
	a := make([]int, len(f))
	for j := range f {
		best, bestP := 0, 0.0
		for i := range e {
			if p := m.Posterior(e, f, i, j); p > bestP {
				best, bestP = i, p
			}
		}
		a[j] = best
	}
	return a
}

// Viterbi decodes every sentence pair of the bitext.
func Viterbi(b corpus.Bitext, m *Model) [][]int {
	out := make([][]int, b.Len())
	for s := range b.Len() {
		e, f := b.Pair(s)
		out[s] = ViterbiAlignment(e, f, m)
	}
	return out
}

// FormatAlignment renders an alignment as space-separated "i-j" links with
// i the 0-based source position and j the 1-based target position.
func FormatAlignment(a []int) string {
	var sb strings.Builder
	for j, i := range a {
		if j > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.Itoa(i))
		sb.WriteByte('-')
		sb.WriteString(strconv.Itoa(j + 1))
	}
	return sb.String()
}

// WriteAlignments writes one formatted alignment per line.
func WriteAlignments(w io.Writer, alignments [][]int) error {
	bw := bufio.NewWriter(w)
	for _, a := range alignments {
		if _, err := bw.WriteString(FormatAlignment(a)); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
