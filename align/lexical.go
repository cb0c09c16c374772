package align

import (
	"cmp"
	"maps"
	"slices"

	"github.com/happyhackingspace/lola/corpus"
)

// LexicalName is the name of the lexical translation component.
const LexicalName = "lexical"

// LexicalTable holds the lexical translation distribution t(f|e), one
// categorical distribution over target ids per source id.
type LexicalTable struct {
	// params[e][f] = t(f|e). Rows are never mutated once stored.
	params map[int]map[int]float64
	counts map[int]map[int]float64
	// uniform is the probability of every f under a source id with no row.
	uniform float64
}

// NewLexicalTable creates a table where every t(f|e) is 1/targetVocab.
func NewLexicalTable(targetVocab int) *LexicalTable {
	uniform := 0.0
	if targetVocab > 0 {
		uniform = 1.0 / float64(targetVocab)
	}
	return &LexicalTable{
		params:  make(map[int]map[int]float64),
		counts:  make(map[int]map[int]float64),
		uniform: uniform,
	}
}

// Name implements Component.
func (t *LexicalTable) Name() string { return LexicalName }

// Score implements Component.
func (t *LexicalTable) Score(e, f corpus.Sentence, i, j int) float64 {
	return t.Prob(e[i], f[j])
}

// Prob returns t(f|e) for a source id e and a target id f.
func (t *LexicalTable) Prob(e, f int) float64 {
	row, ok := t.params[e]
	if !ok {
		return t.uniform
	}
	return row[f]
}

// Set assigns t(f|e) directly without renormalising the row. A source id
// without a row starts from an empty one, so its other targets score zero.
func (t *LexicalTable) Set(e, f int, p float64) {
	row := make(map[int]float64, len(t.params[e])+1)
	maps.Copy(row, t.params[e])
	row[f] = p
	params := maps.Clone(t.params)
	params[e] = row
	t.params = params
}

// Observe implements Component.
func (t *LexicalTable) Observe(e, f corpus.Sentence, i, j int, weight float64) {
	row, ok := t.counts[e[i]]
	if !ok {
		row = make(map[int]float64)
		t.counts[e[i]] = row
	}
	row[f[j]] += weight
}

// Normalise implements Component. Source ids with zero observed mass keep
// their previous distribution.
func (t *LexicalTable) Normalise() {
	params := maps.Clone(t.params)
	for e, row := range t.counts {
		total := 0.0
		for _, c := range row {
			total += c
		}
		if total == 0 {
			continue
		}
		dist := make(map[int]float64, len(row))
		for f, c := range row {
			dist[f] = c / total
		}
		params[e] = dist
	}
	t.params = params
	t.counts = make(map[int]map[int]float64)
}

// Fresh implements Component.
func (t *LexicalTable) Fresh() Component {
	return &LexicalTable{
		params:  t.params,
		counts:  make(map[int]map[int]float64),
		uniform: t.uniform,
	}
}

// LexicalEntry is one t(f|e) parameter.
type LexicalEntry struct {
	E, F int
	Prob float64
}

// Entries returns every stored parameter with probability at least
// threshold, ordered by source id, then by decreasing probability.
func (t *LexicalTable) Entries(threshold float64) []LexicalEntry {
	var out []LexicalEntry
	for e, row := range t.params {
		for f, p := range row {
			if p >= threshold {
				out = append(out, LexicalEntry{E: e, F: f, Prob: p})
			}
		}
	}
	slices.SortFunc(out, func(a, b LexicalEntry) int {
		if c := cmp.Compare(a.E, b.E); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Prob, a.Prob); c != 0 {
			return c
		}
		return cmp.Compare(a.F, b.F)
	})
	return out
}
