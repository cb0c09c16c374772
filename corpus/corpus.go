// Package corpus encodes sentence-per-line text into integer token ids.
//
// A Corpus stores every token of every sentence in one flat array together
// with the offsets where each sentence ends:
//
//	c := corpus.New([]string{"the dog", "a cat"}, "<NULL>")
//	e := c.Sentence(0)       // ids of "<NULL> the dog"
//	fmt.Println(c.Translate(e[1])) // "the"
//
// Ids are opaque keys. Nothing about their numeric values, including the id
// of the NULL token, should be relied upon.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/happyhackingspace/lola/internal/textutil"
)

// Sentence is a read-only view of a sentence's token ids.
type Sentence []int

// Corpus is an immutable integer-encoded corpus.
type Corpus struct {
	inverse    []int
	boundaries []int
	lookup     *Vocabulary
	null       string
}

// Option configures corpus construction.
type Option func(*options)

type options struct {
	lowercase bool
}

// WithLowercase lowercases every line before tokenization.
func WithLowercase() Option {
	return func(o *options) {
		o.lowercase = true
	}
}

// New encodes lines, one sentence per line. If null is not empty it is
// prepended to every sentence as one token at position 0, even if it
// contains whitespace.
func New(lines []string, null string, opts ...Option) *Corpus {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &Corpus{
		boundaries: make([]int, 0, len(lines)),
		lookup:     NewVocabulary(),
		null:       null,
	}
	if null != "" {
		// NULL is registered even for an empty corpus.
		c.lookup.Add(null)
	}
	for _, line := range lines {
		if o.lowercase {
			line = strings.ToLower(line)
		}
		for _, tok := range textutil.WithMarker(null, line) {
			c.inverse = append(c.inverse, c.lookup.Add(tok))
		}
		c.boundaries = append(c.boundaries, len(c.inverse))
	}
	return c
}

// Read encodes a sentence-per-line stream.
func Read(r io.Reader, null string, opts ...Option) (*Corpus, error) {
	lines, err := ReadLines(r)
	if err != nil {
		return nil, err
	}
	return New(lines, null, opts...), nil
}

// ReadFile encodes a sentence-per-line file.
func ReadFile(path, null string, opts ...Option) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	c, err := Read(f, null, opts...)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return c, nil
}

// ReadLines reads all lines of r. Lines may be arbitrarily long.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// Sentence returns the ids of the i-th sentence without copying.
// i must be in [0, NSentences()); it is not bounds-checked beyond what
// slice indexing does.
func (c *Corpus) Sentence(i int) Sentence {
	start := 0
	if i > 0 {
		start = c.boundaries[i-1]
	}
	end := c.boundaries[i]
	return Sentence(c.inverse[start:end:end])
}

// Sentences iterates over the sentences in corpus order. The sequence can be
// ranged over any number of times.
func (c *Corpus) Sentences() iter.Seq2[int, Sentence] {
	return func(yield func(int, Sentence) bool) {
		start := 0
		for i, end := range c.boundaries {
			if !yield(i, Sentence(c.inverse[start:end:end])) {
				return
			}
			start = end
		}
	}
}

// Translate returns the token for an id.
func (c *Corpus) Translate(id int) string {
	return c.lookup.Token(id)
}

// Lookup returns the id of a token.
func (c *Corpus) Lookup(token string) (int, bool) {
	return c.lookup.ID(token)
}

// Words returns the tokens of a sentence.
func (c *Corpus) Words(s Sentence) []string {
	words := make([]string, len(s))
	for k, id := range s {
		words[k] = c.lookup.Token(id)
	}
	return words
}

// VocabSize returns the number of distinct tokens, NULL included.
func (c *Corpus) VocabSize() int {
	return c.lookup.Size()
}

// CorpusSize returns the total number of tokens, NULL included.
func (c *Corpus) CorpusSize() int {
	return len(c.inverse)
}

// NSentences returns the number of sentences.
func (c *Corpus) NSentences() int {
	return len(c.boundaries)
}

// Boundaries returns the end offset of every sentence in the flat token array.
// The returned slice must not be modified.
func (c *Corpus) Boundaries() []int {
	return c.boundaries
}

// HasNull reports whether every sentence starts with the NULL token.
func (c *Corpus) HasNull() bool {
	return c.null != ""
}

// Null returns the NULL marker, or "" if the corpus has none.
func (c *Corpus) Null() string {
	return c.null
}
