package cli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/happyhackingspace/lola"
	"github.com/happyhackingspace/lola/align"
	"github.com/happyhackingspace/lola/internal/storage"
	"github.com/spf13/cobra"
)

type trainOptions struct {
	null       string
	noNull     bool
	lowercase  bool
	stages     string
	maxJump    int
	logZero    float64
	testSource string
	testTarget string
	output     string
	testOutput string
	entropy    string
	db         string
	minProb    float64
}

func (c *CLI) newTrainCommand() *cobra.Command {
	var opts trainOptions

	cmd := &cobra.Command{
		Use:   "train <source> <target>",
		Short: "Train an alignment model and print Viterbi alignments",
		Args:  cobra.ExactArgs(2),
		Example: `  lola train corpus.en corpus.fr > corpus.align
  lola train corpus.en corpus.fr --stages ibm1:5,ibm2:5 --output corpus.align
  lola train corpus.en corpus.fr --test-source test.en --test-target test.fr --test-output test.align
  lola train corpus.en corpus.fr --db runs.db -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(args[0], args[1], &opts)
		},
	}

	cmd.Flags().StringVar(&opts.null, "null", lola.DefaultNull, "NULL token prepended to source sentences")
	cmd.Flags().BoolVar(&opts.noNull, "no-null", false, "Do not add a NULL token")
	cmd.Flags().BoolVar(&opts.lowercase, "lowercase", false, "Lowercase both corpora")
	cmd.Flags().StringVar(&opts.stages, "stages", "ibm1:5", "Training stages as model:iterations, comma separated (models: ibm1, ibm2)")
	cmd.Flags().IntVar(&opts.maxJump, "max-jump", 100, "Largest jump distinguished by the IBM2 jump table")
	cmd.Flags().Float64Var(&opts.logZero, "log-zero", align.DefaultLogZero, "Log-probability of zero-probability target words in cross-entropy")
	cmd.Flags().StringVar(&opts.testSource, "test-source", "", "Source side of a test corpus")
	cmd.Flags().StringVar(&opts.testTarget, "test-target", "", "Target side of a test corpus")
	cmd.Flags().StringVar(&opts.output, "output", "-", "Training alignments file (- for stdout)")
	cmd.Flags().StringVar(&opts.testOutput, "test-output", "", "Test alignments file")
	cmd.Flags().StringVar(&opts.entropy, "entropy", "", "Write the cross-entropy trace to this file")
	cmd.Flags().StringVar(&opts.db, "db", "", "Record the run in this SQLite database")
	cmd.Flags().Float64Var(&opts.minProb, "min-prob", 0.01, "Smallest translation probability stored with --db")
	return cmd
}

func runTrain(source, target string, opts *trainOptions) error {
	stages, err := lola.ParseStages(opts.stages)
	if err != nil {
		return err
	}
	null := opts.null
	if opts.noNull {
		null = ""
	}

	start := time.Now()
	data, err := lola.LoadData(&lola.DataConfig{
		Source:     source,
		Target:     target,
		TestSource: opts.testSource,
		TestTarget: opts.testTarget,
		Null:       null,
		Lowercase:  opts.lowercase,
	})
	if err != nil {
		return err
	}
	slog.Info("Corpus loaded",
		"sentences", data.Train.Len(),
		"test-sentences", data.Test.Len(),
		"source-vocab", data.All.E.VocabSize(),
		"target-vocab", data.All.F.VocabSize(),
		"null", data.All.E.Null(),
		"duration", time.Since(start))

	config := lola.DefaultTrainConfig()
	config.Stages = stages
	config.MaxJump = opts.maxJump
	config.LogZero = opts.logZero

	var trace []storage.EntropyPoint
	record := func(stage int, model string, iteration int, entropy float64) {
		trace = append(trace, storage.EntropyPoint{Stage: stage, Model: model, Iteration: iteration, Value: entropy})
	}
	config.Observer = record

	var store *storage.Store
	var runID int64
	if opts.db != "" {
		store, err = storage.Open(opts.db)
		if err != nil {
			return fmt.Errorf("open %s: %w", opts.db, err)
		}
		defer func() { _ = store.Close() }()
		runID, err = store.CreateRun(storage.Run{
			Source:    source,
			Target:    target,
			Stages:    opts.stages,
			Sentences: data.Train.Len(),
		})
		if err != nil {
			return err
		}
		persist := store.Observer(runID)
		config.Observer = func(stage int, model string, iteration int, entropy float64) {
			record(stage, model, iteration, entropy)
			persist(stage, model, iteration, entropy)
		}
		slog.Debug("Recording run", "db", opts.db, "run", runID)
	}

	start = time.Now()
	res, err := lola.Train(data, &config)
	if err != nil {
		if store != nil {
			if ferr := store.FailRun(runID, err); ferr != nil {
				slog.Warn("Failed to mark run as failed", "run", runID, "error", ferr)
			}
		}
		return err
	}
	slog.Info("Training completed",
		"log-likelihood", res.LogLikelihood,
		"entropy", trace[len(trace)-1].Value,
		"duration", time.Since(start))

	if err := writeTo(opts.output, func(w io.Writer) error {
		return align.WriteAlignments(w, res.Alignments)
	}); err != nil {
		return fmt.Errorf("write alignments: %w", err)
	}

	testEntropy := math.NaN()
	if data.HasTest() {
		testEntropy = res.TestEntropy
		slog.Info("Test evaluation", "entropy", res.TestEntropy, "sentences", data.Test.Len())
		if opts.testOutput != "" {
			if err := writeTo(opts.testOutput, func(w io.Writer) error {
				return align.WriteAlignments(w, res.TestAlignments)
			}); err != nil {
				return fmt.Errorf("write test alignments: %w", err)
			}
		}
	}

	if opts.entropy != "" {
		if err := writeTo(opts.entropy, func(w io.Writer) error {
			return writeTrace(w, trace)
		}); err != nil {
			return fmt.Errorf("write entropy trace: %w", err)
		}
	}

	if store != nil {
		if err := store.FinishRun(runID, res.LogLikelihood, testEntropy); err != nil {
			return err
		}
		entries := res.Model.Lexical().Entries(opts.minProb)
		translations := make([]storage.Translation, len(entries))
		for i, e := range entries {
			translations[i] = storage.Translation{
				Source: data.All.E.Translate(e.E),
				Target: data.All.F.Translate(e.F),
				Prob:   e.Prob,
			}
		}
		if err := store.RecordTranslations(runID, translations); err != nil {
			return fmt.Errorf("store translations: %w", err)
		}
		slog.Info("Run recorded", "db", opts.db, "run", runID, "translations", len(translations))
	}
	return nil
}

func writeTrace(w io.Writer, trace []storage.EntropyPoint) error {
	bw := bufio.NewWriter(w)
	for _, p := range trace {
		if _, err := fmt.Fprintf(bw, "%d\t%s\t%d\t%.6f\n", p.Stage, p.Model, p.Iteration, p.Value); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// writeTo runs write against the named file, or stdout for "-".
func writeTo(path string, write func(io.Writer) error) error {
	if path == "-" || path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
