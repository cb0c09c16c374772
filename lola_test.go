package lola

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/happyhackingspace/lola/align"
	"github.com/happyhackingspace/lola/corpus"
)

var (
	trainE = []string{"the house", "the book", "a book", "a house"}
	trainF = []string{"das haus", "das buch", "ein buch", "ein haus"}
)

func TestParseStages(t *testing.T) {
	tests := []struct {
		stages  string
		want    []Stage
		wantErr bool
	}{
		{"ibm1:5", []Stage{{IBM1, 5}}, false},
		{"ibm1:5, IBM2:3", []Stage{{IBM1, 5}, {IBM2, 3}}, false},
		{"ibm1:0", []Stage{{IBM1, 0}}, false},
		{"ibm3:5", nil, true},
		{"ibm1", nil, true},
		{"ibm1:x", nil, true},
		{"ibm1:-1", nil, true},
		{"", nil, true},
	}
	for _, tt := range tests {
		got, err := ParseStages(tt.stages)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStages(%q) error = %v, wantErr %v", tt.stages, err, tt.wantErr)
			continue
		}
		if err != nil && !strings.HasPrefix(err.Error(), "lola: ") {
			t.Errorf("ParseStages(%q) error %q lacks the lola prefix", tt.stages, err)
		}
		if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseStages(%q) = %v, want %v", tt.stages, got, tt.want)
		}
	}
}

func TestNewDataWindows(t *testing.T) {
	data, err := NewData(trainE, trainF, []string{"the house"}, []string{"das haus"}, DefaultNull, false)
	if err != nil {
		t.Fatal(err)
	}
	if data.Train.Len() != 4 || data.Test.Len() != 1 || data.All.Len() != 5 {
		t.Fatalf("windows = %d/%d/%d, want 4/1/5", data.Train.Len(), data.Test.Len(), data.All.Len())
	}
	if !data.HasTest() {
		t.Error("HasTest = false")
	}
	e, f := data.Test.Pair(0)
	if got := data.All.E.Words(e); !reflect.DeepEqual(got, []string{DefaultNull, "the", "house"}) {
		t.Errorf("test source = %v", got)
	}
	if got := data.All.F.Words(f); !reflect.DeepEqual(got, []string{"das", "haus"}) {
		t.Errorf("test target = %v", got)
	}
}

func TestNewDataRejectsWhitespaceNull(t *testing.T) {
	for _, null := range []string{"<NU LL>", " NULL", "NULL\t"} {
		if _, err := NewData(trainE, trainF, nil, nil, null, false); err == nil {
			t.Errorf("NewData with NULL %q succeeded", null)
		}
	}
	if _, err := NewData(trainE, trainF, nil, nil, "", false); err != nil {
		t.Errorf("NewData without NULL: %v", err)
	}
}

func TestNewDataMismatch(t *testing.T) {
	_, err := NewData([]string{"a"}, nil, nil, nil, "", false)
	if !errors.Is(err, corpus.ErrLengthMismatch) {
		t.Errorf("err = %v, want ErrLengthMismatch", err)
	}
}

func TestTrainStages(t *testing.T) {
	data, err := NewData(trainE, trainF, nil, nil, DefaultNull, false)
	if err != nil {
		t.Fatal(err)
	}

	var calls int
	config := DefaultTrainConfig()
	config.Stages = []Stage{{IBM1, 4}, {IBM2, 3}}
	config.MaxJump = 5
	config.Observer = func(stage int, model string, iteration int, entropy float64) {
		calls++
	}
	res, err := Train(data, &config)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Stages) != 2 {
		t.Fatalf("got %d stage results, want 2", len(res.Stages))
	}
	if len(res.Stages[0].Entropy) != 5 || len(res.Stages[1].Entropy) != 4 {
		t.Errorf("trace lengths %d and %d, want 5 and 4", len(res.Stages[0].Entropy), len(res.Stages[1].Entropy))
	}
	if calls != 9 {
		t.Errorf("observer called %d times, want 9", calls)
	}
	first, second := res.Stages[0].Entropy, res.Stages[1].Entropy
	if second[len(second)-1] >= first[0] {
		t.Errorf("final IBM2 entropy %v not below untrained IBM1 entropy %v", second[len(second)-1], first[0])
	}
	for k := 1; k < len(second); k++ {
		if second[k] > second[k-1]+1e-9 {
			t.Errorf("IBM2 entropy rose at iteration %d: %v -> %v", k, second[k-1], second[k])
		}
	}
	if res.Model.Component(align.JumpName) == nil {
		t.Error("final model has no jump table")
	}
	if len(res.Alignments) != len(trainE) {
		t.Errorf("got %d alignments, want %d", len(res.Alignments), len(trainE))
	}
	if math.IsInf(res.LogLikelihood, 0) || res.LogLikelihood >= 0 {
		t.Errorf("log-likelihood = %v, want finite negative", res.LogLikelihood)
	}
	if res.TestAlignments != nil {
		t.Error("unexpected test alignments without test data")
	}
}

func TestTrainWithTest(t *testing.T) {
	data, err := NewData(trainE, trainF, []string{"the house"}, []string{"das unbekannt"}, DefaultNull, false)
	if err != nil {
		t.Fatal(err)
	}
	config := DefaultTrainConfig()
	config.Stages = []Stage{{IBM1, 5}}
	res, err := Train(data, &config)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.TestAlignments) != 1 || len(res.TestAlignments[0]) != 2 {
		t.Fatalf("test alignments = %v", res.TestAlignments)
	}
	// "unbekannt" never occurs in training, so it has zero mass and the
	// floor applies; entropy must stay finite.
	if math.IsInf(res.TestEntropy, 0) || math.IsNaN(res.TestEntropy) {
		t.Errorf("test entropy = %v, want finite", res.TestEntropy)
	}
	if res.TestEntropy < -align.DefaultLogZero {
		t.Errorf("test entropy = %v, want at least the floor contribution %v", res.TestEntropy, -align.DefaultLogZero)
	}
}

func TestTrainNoStages(t *testing.T) {
	data, _ := NewData(trainE, trainF, nil, nil, "", false)
	if _, err := Train(data, &TrainConfig{}); err == nil {
		t.Error("expected error without stages")
	}
}

func TestLoadData(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	config := &DataConfig{
		Source:    write("train.en", strings.Join(trainE, "\n")+"\n"),
		Target:    write("train.de", strings.Join(trainF, "\n")+"\n"),
		Null:      DefaultNull,
		Lowercase: true,
	}
	data, err := LoadData(config)
	if err != nil {
		t.Fatal(err)
	}
	if data.Train.Len() != len(trainE) || data.HasTest() {
		t.Errorf("loaded %d training pairs (test=%v), want %d", data.Train.Len(), data.HasTest(), len(trainE))
	}

	config.TestSource = config.Source
	if _, err := LoadData(config); err == nil {
		t.Error("expected error for test source without test target")
	}

	config.TestSource = ""
	config.Source = filepath.Join(dir, "missing.en")
	if _, err := LoadData(config); err == nil {
		t.Error("expected error for missing file")
	}
}
