// Package storage records training runs in a SQLite database.
package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the run database.
type Store struct {
	db *sql.DB
}

// Run describes one training run.
type Run struct {
	ID            int64
	Started       time.Time
	Source        string
	Target        string
	Stages        string
	Sentences     int
	Status        string // StatusRunning, StatusDone or StatusFailed
	Error         string // failure message of a failed run
	LogLikelihood sql.NullFloat64
	TestEntropy   sql.NullFloat64
}

// Run statuses.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// EntropyPoint is one entry of a run's cross-entropy trace.
type EntropyPoint struct {
	Stage     int
	Model     string
	Iteration int
	Value     float64
}

// Translation is one stored lexical parameter t(target|source).
type Translation struct {
	Source string
	Target string
	Prob   float64
}

const schema = `
CREATE TABLE IF NOT EXISTS runs(
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts REAL NOT NULL,
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	stages TEXT NOT NULL,
	sentences INTEGER NOT NULL,
	status TEXT NOT NULL DEFAULT 'running',
	error TEXT NOT NULL DEFAULT '',
	log_likelihood REAL,
	test_entropy REAL
);
CREATE TABLE IF NOT EXISTS entropy(
	run_id INTEGER NOT NULL REFERENCES runs(id),
	stage INTEGER NOT NULL,
	model TEXT NOT NULL,
	iteration INTEGER NOT NULL,
	value REAL NOT NULL,
	PRIMARY KEY(run_id, stage, iteration)
);
CREATE TABLE IF NOT EXISTS translations(
	run_id INTEGER NOT NULL REFERENCES runs(id),
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	prob REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS translations_source ON translations(run_id, source);
`

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun inserts a run and returns its id. Started defaults to now.
func (s *Store) CreateRun(r Run) (int64, error) {
	if r.Started.IsZero() {
		r.Started = time.Now()
	}
	res, err := s.db.Exec(
		"INSERT INTO runs(ts, source, target, stages, sentences) VALUES(?,?,?,?,?)",
		toSeconds(r.Started), r.Source, r.Target, r.Stages, r.Sentences)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun stores the final scores of a run. Non-finite values are stored as NULL.
func (s *Store) FinishRun(id int64, logLikelihood, testEntropy float64) error {
	_, err := s.db.Exec("UPDATE runs SET status = ?, log_likelihood = ?, test_entropy = ? WHERE id = ?",
		StatusDone, nullable(logLikelihood), nullable(testEntropy), id)
	if err != nil {
		return fmt.Errorf("finish run %d: %w", id, err)
	}
	return nil
}

// FailRun marks a run as failed with the error that stopped it.
func (s *Store) FailRun(id int64, cause error) error {
	_, err := s.db.Exec("UPDATE runs SET status = ?, error = ? WHERE id = ?", StatusFailed, cause.Error(), id)
	if err != nil {
		return fmt.Errorf("fail run %d: %w", id, err)
	}
	return nil
}

// RecordEntropy stores one point of a run's cross-entropy trace.
func (s *Store) RecordEntropy(runID int64, p EntropyPoint) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO entropy(run_id, stage, model, iteration, value) VALUES(?,?,?,?,?)",
		runID, p.Stage, p.Model, p.Iteration, p.Value)
	if err != nil {
		return fmt.Errorf("record entropy: %w", err)
	}
	return nil
}

// Observer returns a training observer that records the trace of runID.
// Write failures are logged, not returned, so training is never interrupted.
func (s *Store) Observer(runID int64) func(stage int, model string, iteration int, entropy float64) {
	return func(stage int, model string, iteration int, entropy float64) {
		p := EntropyPoint{Stage: stage, Model: model, Iteration: iteration, Value: entropy}
		if err := s.RecordEntropy(runID, p); err != nil {
			slog.Warn("Failed to store entropy", "run", runID, "error", err)
		}
	}
}

// RecordTranslations stores lexical parameters of a run in one transaction.
func (s *Store) RecordTranslations(runID int64, entries []Translation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT INTO translations(run_id, source, target, prob) VALUES(?,?,?,?)")
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if _, err := stmt.Exec(runID, e.Source, e.Target, e.Prob); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert translation %s/%s: %w", e.Source, e.Target, err)
		}
	}
	return tx.Commit()
}

// Runs lists all runs, most recent first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(
		"SELECT id, ts, source, target, stages, sentences, status, error, log_likelihood, test_entropy FROM runs ORDER BY id DESC")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var r Run
		var ts float64
		if err := rows.Scan(&r.ID, &ts, &r.Source, &r.Target, &r.Stages, &r.Sentences, &r.Status, &r.Error, &r.LogLikelihood, &r.TestEntropy); err != nil {
			return nil, err
		}
		r.Started = fromSeconds(ts)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Entropies returns the cross-entropy trace of a run in training order.
func (s *Store) Entropies(runID int64) ([]EntropyPoint, error) {
	rows, err := s.db.Query(
		"SELECT stage, model, iteration, value FROM entropy WHERE run_id = ? ORDER BY stage, iteration", runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var points []EntropyPoint
	for rows.Next() {
		var p EntropyPoint
		if err := rows.Scan(&p.Stage, &p.Model, &p.Iteration, &p.Value); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Translations returns the stored translations of a source token, most
// probable first.
func (s *Store) Translations(runID int64, source string) ([]Translation, error) {
	rows, err := s.db.Query(
		"SELECT source, target, prob FROM translations WHERE run_id = ? AND source = ? ORDER BY prob DESC, target",
		runID, source)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Translation
	for rows.Next() {
		var t Translation
		if err := rows.Scan(&t.Source, &t.Target, &t.Prob); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func toSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromSeconds(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9))
}
