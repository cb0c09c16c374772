package lola

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/happyhackingspace/lola/align"
)

// Model names accepted in training stages.
const (
	IBM1 = "ibm1"
	IBM2 = "ibm2"
)

// Stage is one EM run of a given model.
type Stage struct {
	Model      string
	Iterations int
}

func (s Stage) String() string {
	return fmt.Sprintf("%s:%d", s.Model, s.Iterations)
}

// TrainConfig holds configuration for training.
type TrainConfig struct {
	Stages  []Stage
	MaxJump int     // largest jump magnitude of the IBM2 jump table
	LogZero float64 // floor for zero-probability target positions
	// Observer, if set, receives the cross-entropy trace of every stage.
	Observer func(stage int, model string, iteration int, entropy float64)
}

// DefaultTrainConfig returns five iterations of IBM model 1.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Stages:  []Stage{{Model: IBM1, Iterations: 5}},
		MaxJump: 100,
		LogZero: align.DefaultLogZero,
	}
}

// StageResult holds the cross-entropy trace of one stage, baseline first.
type StageResult struct {
	Stage   Stage
	Entropy []float64
}

// Result holds a trained model and its evaluation.
type Result struct {
	Model         *align.Model
	Stages        []StageResult
	LogLikelihood float64 // training log-likelihood; -Inf if some position has zero mass
	Alignments    [][]int // Viterbi alignments of the training data

	TestEntropy    float64 // only with test data
	TestAlignments [][]int // only with test data
}

// ParseStages parses "ibm1:5,ibm2:5" into training stages.
func ParseStages(s string) ([]Stage, error) {
	var stages []Stage
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, iters, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("lola: stage %q: want model:iterations", part)
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name != IBM1 && name != IBM2 {
			return nil, fmt.Errorf("lola: stage %q: unknown model %q", part, name)
		}
		n, err := strconv.Atoi(strings.TrimSpace(iters))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("lola: stage %q: invalid iteration count", part)
		}
		stages = append(stages, Stage{Model: name, Iterations: n})
	}
	if len(stages) == 0 {
		return nil, errors.New("lola: no training stages")
	}
	return stages, nil
}

// Train runs the configured stages on data.Train. Each stage after the first
// starts from the lexical table trained by the previous one.
func Train(data *Data, config *TrainConfig) (*Result, error) {
	cfg := DefaultTrainConfig()
	if config != nil {
		cfg = *config
	}
	if len(cfg.Stages) == 0 {
		return nil, fmt.Errorf("lola: no training stages")
	}

	result := &Result{}
	var lex *align.LexicalTable
	for k, stage := range cfg.Stages {
		if lex == nil {
			lex = align.NewLexicalTable(data.All.F.VocabSize())
		}
		m, err := newModel(stage.Model, lex, cfg.MaxJump, data.All.E.HasNull())
		if err != nil {
			return nil, fmt.Errorf("lola: %w", err)
		}

		slog.Info("Training stage", "stage", k+1, "model", stage.Model, "iterations", stage.Iterations)
		tc := align.TrainerConfig{
			Iterations: stage.Iterations,
			LogZero:    cfg.LogZero,
			Logger:     slog.Default().With("stage", k+1, "model", stage.Model),
		}
		if cfg.Observer != nil {
			tc.Observer = func(iteration int, entropy float64) {
				cfg.Observer(k+1, stage.Model, iteration, entropy)
			}
		}
		m, entropy, err := align.EM(data.Train, m, tc)
		if err != nil {
			return nil, fmt.Errorf("lola: stage %d (%s): %w", k+1, stage, err)
		}
		slog.Debug("Stage completed", "stage", k+1, "entropy", entropy[len(entropy)-1])

		lex = m.Lexical()
		result.Model = m
		result.Stages = append(result.Stages, StageResult{Stage: stage, Entropy: entropy})
	}

	ll, err := align.LogLikelihood(data.Train, result.Model)
	if err != nil {
		slog.Warn("Training log-likelihood undefined", "error", err)
		ll = math.Inf(-1)
	}
	result.LogLikelihood = ll
	result.Alignments = align.Viterbi(data.Train, result.Model)

	if data.HasTest() {
		result.TestEntropy = align.EmpiricalCrossEntropy(data.Test, result.Model, cfg.LogZero)
		result.TestAlignments = align.Viterbi(data.Test, result.Model)
	}
	return result, nil
}

func newModel(name string, lex *align.LexicalTable, maxJump int, null bool) (*align.Model, error) {
	switch name {
	case IBM1:
		return align.NewIBM1(lex), nil
	case IBM2:
		return align.NewIBM2(lex, align.NewJumpTable(maxJump, null)), nil
	default:
		return nil, fmt.Errorf("unknown model %q", name)
	}
}
