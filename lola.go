// Package lola trains word-alignment models between parallel corpora.
//
// Training runs one or more EM stages, typically IBM model 1 followed by an
// IBM model 2 variant seeded with model 1's lexical table:
//
//	data, _ := lola.LoadData(&lola.DataConfig{
//	    Source: "train.en", Target: "train.fr", Null: "<NULL>",
//	})
//	res, _ := lola.Train(data, nil)
//	_ = align.WriteAlignments(os.Stdout, res.Alignments)
package lola

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/happyhackingspace/lola/corpus"
)

// DefaultNull is the token prepended to every source sentence.
const DefaultNull = "<NULL>"

// DataConfig locates a parallel training corpus and an optional test corpus.
type DataConfig struct {
	Source     string // source ("English") side, one sentence per line
	Target     string // target ("French") side
	TestSource string // optional
	TestTarget string // optional
	Null       string // NULL token for the source side; empty disables it, must not contain whitespace
	Lowercase  bool
}

// Data holds a jointly encoded parallel corpus. Training and test sentences
// share one vocabulary per side so that test ids agree with trained
// parameters.
type Data struct {
	All   corpus.Bitext
	Train corpus.Bitext
	Test  corpus.Bitext
}

// HasTest reports whether a test corpus was loaded.
func (d *Data) HasTest() bool {
	return d.Test.Len() > 0
}

// NewData encodes training and test lines. The NULL token is a single
// token, so it may not contain whitespace.
func NewData(trainE, trainF, testE, testF []string, null string, lowercase bool) (*Data, error) {
	if strings.ContainsFunc(null, unicode.IsSpace) {
		return nil, fmt.Errorf("lola: NULL token %q contains whitespace", null)
	}
	if len(trainE) != len(trainF) {
		return nil, fmt.Errorf("lola: training data: %w: %d source vs %d target",
			corpus.ErrLengthMismatch, len(trainE), len(trainF))
	}
	if len(testE) != len(testF) {
		return nil, fmt.Errorf("lola: test data: %w: %d source vs %d target",
			corpus.ErrLengthMismatch, len(testE), len(testF))
	}

	var opts []corpus.Option
	if lowercase {
		opts = append(opts, corpus.WithLowercase())
	}
	e := corpus.New(concat(trainE, testE), null, opts...)
	f := corpus.New(concat(trainF, testF), "", opts...)
	all, err := corpus.NewBitext(e, f)
	if err != nil {
		return nil, fmt.Errorf("lola: %w", err)
	}

	n := len(trainE)
	return &Data{
		All:   all,
		Train: all.Window(0, n),
		Test:  all.Window(n, all.Len()),
	}, nil
}

// LoadData reads the files named by config.
func LoadData(config *DataConfig) (*Data, error) {
	trainE, err := readLines(config.Source)
	if err != nil {
		return nil, err
	}
	trainF, err := readLines(config.Target)
	if err != nil {
		return nil, err
	}

	var testE, testF []string
	if config.TestSource != "" || config.TestTarget != "" {
		if config.TestSource == "" || config.TestTarget == "" {
			return nil, fmt.Errorf("lola: test data needs both source and target")
		}
		if testE, err = readLines(config.TestSource); err != nil {
			return nil, err
		}
		if testF, err = readLines(config.TestTarget); err != nil {
			return nil, err
		}
	}
	return NewData(trainE, trainF, testE, testF, config.Null, config.Lowercase)
}

func concat(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lola: %w", err)
	}
	defer func() { _ = f.Close() }()

	lines, err := corpus.ReadLines(f)
	if err != nil {
		return nil, fmt.Errorf("lola: read %s: %w", path, err)
	}
	return lines, nil
}
