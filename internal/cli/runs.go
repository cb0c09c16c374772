package cli

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/happyhackingspace/lola/internal/storage"
	"github.com/spf13/cobra"
)

func (c *CLI) newRunsCommand() *cobra.Command {
	var db string

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect training runs recorded with train --db",
		Example: `  lola runs --db runs.db
  lola runs show 3 --db runs.db
  lola runs translate 3 house --db runs.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(db, func(s *storage.Store) error {
				runs, err := s.Runs()
				if err != nil {
					return err
				}
				return printRuns(os.Stdout, runs)
			})
		},
	}
	runsCmd.PersistentFlags().StringVar(&db, "db", "runs.db", "SQLite run database")

	showCmd := &cobra.Command{
		Use:   "show <run>",
		Short: "Print the cross-entropy trace of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRunID(args[0])
			if err != nil {
				return err
			}
			return withStore(db, func(s *storage.Store) error {
				points, err := s.Entropies(id)
				if err != nil {
					return err
				}
				if len(points) == 0 {
					return fmt.Errorf("run %d has no entropy trace", id)
				}
				return printTrace(os.Stdout, points)
			})
		},
	}

	translateCmd := &cobra.Command{
		Use:   "translate <run> <word>",
		Short: "List the stored translations of a source word",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRunID(args[0])
			if err != nil {
				return err
			}
			return withStore(db, func(s *storage.Store) error {
				translations, err := s.Translations(id, args[1])
				if err != nil {
					return err
				}
				for _, t := range translations {
					fmt.Printf("%s\t%.4f\n", t.Target, t.Prob)
				}
				return nil
			})
		},
	}

	runsCmd.AddCommand(showCmd, translateCmd)
	return runsCmd
}

func withStore(path string, fn func(*storage.Store) error) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	s, err := storage.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = s.Close() }()
	return fn(s)
}

func parseRunID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid run id %q", s)
	}
	return id, nil
}

func printRuns(w io.Writer, runs []storage.Run) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tSTAGES\tSENTENCES\tLOG-LIKELIHOOD\tTEST-ENTROPY\tCORPUS")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\t%s / %s\n",
			r.ID, r.Started.Format("2006-01-02 15:04:05"), r.Status, r.Stages, r.Sentences,
			formatNull(r.LogLikelihood), formatNull(r.TestEntropy), r.Source, r.Target)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, r := range runs {
		if r.Status == storage.StatusFailed {
			_, _ = fmt.Fprintf(w, "run %d failed: %s\n", r.ID, r.Error)
		}
	}
	return nil
}

func printTrace(w io.Writer, points []storage.EntropyPoint) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STAGE\tMODEL\tITERATION\tENTROPY")
	for _, p := range points {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%d\t%.6f\n", p.Stage, p.Model, p.Iteration, p.Value)
	}
	return tw.Flush()
}

func formatNull(v sql.NullFloat64) string {
	if !v.Valid {
		return "-"
	}
	return strconv.FormatFloat(v.Float64, 'f', 4, 64)
}
