package db

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"batchpredict/pipeline"
)

const schema = `
    CREATE TABLE IF NOT EXISTS prediction_runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_path TEXT NOT NULL,
        report_path TEXT NOT NULL,
        total INTEGER NOT NULL,
        failed INTEGER DEFAULT 0,
        started_at DATETIME NOT NULL,
        finished_at DATETIME NOT NULL
    );
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id INTEGER NOT NULL REFERENCES prediction_runs(id),
        position INTEGER NOT NULL,
        file TEXT NOT NULL,
        prediction REAL,
        label TEXT,
        error TEXT,
        UNIQUE(run_id, position)
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_file ON predictions(file);
    `

// Store keeps the history of prediction runs in SQLite.
type Store struct {
	database *sql.DB
}

type Run struct {
	ID         int64
	ModelPath  string
	ReportPath string
	Total      int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}

type Prediction struct {
	File       string
	Prediction sql.NullFloat64
	Label      string
	Error      string
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	database, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	database.SetMaxOpenConns(1)

	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return nil, fmt.Errorf("create tables failed: %w", err)
	}
	return &Store{database: database}, nil
}

// RecordRun saves a finished run and all of its rows in one transaction.
func (s *Store) RecordRun(summary *pipeline.Summary) error {
	if s == nil || s.database == nil {
		return errors.New("database not initialized")
	}
	tx, err := s.database.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.Exec(`
        INSERT INTO prediction_runs (model_path, report_path, total, failed, started_at, finished_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		summary.ModelPath, summary.ReportPath, len(summary.Rows), summary.Failed,
		summary.StartedAt.UTC(), summary.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert run failed: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
        INSERT INTO predictions (run_id, position, file, prediction, label, error)
        VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range summary.Rows {
		prediction := sql.NullFloat64{Float64: row.Prediction, Valid: row.Err == nil && !math.IsNaN(row.Prediction)}
		label := sql.NullString{String: row.Label, Valid: row.Label != ""}
		var message sql.NullString
		if row.Err != nil {
			message = sql.NullString{String: row.Err.Error(), Valid: true}
		}
		if _, err := stmt.Exec(runID, i, row.File, prediction, label, message); err != nil {
			return fmt.Errorf("insert prediction failed: %w", err)
		}
	}

	return tx.Commit()
}

// Runs lists the most recent runs first.
func (s *Store) Runs(limit int) ([]Run, error) {
	rows, err := s.database.Query(`
        SELECT id, model_path, report_path, total, failed, started_at, finished_at
        FROM prediction_runs
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.ModelPath, &run.ReportPath, &run.Total, &run.Failed, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Predictions returns the rows of a run in report order.
func (s *Store) Predictions(runID int64) ([]Prediction, error) {
	rows, err := s.database.Query(`
        SELECT file, prediction, COALESCE(label, ''), COALESCE(error, '')
        FROM predictions
        WHERE run_id = ?
        ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var predictions []Prediction
	for rows.Next() {
		var p Prediction
		if err := rows.Scan(&p.File, &p.Prediction, &p.Label, &p.Error); err != nil {
			return nil, err
		}
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}

func (s *Store) Close() error {
	if s == nil || s.database == nil {
		return nil
	}
	return s.database.Close()
}
