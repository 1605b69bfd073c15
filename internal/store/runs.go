// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Import run statuses.
const (
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// ImportRun records the outcome of importing one catalog source.
type ImportRun struct {
	ID         string    `json:"id" yaml:"id"`
	Source     string    `json:"source" yaml:"source"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Records    int       `json:"records" yaml:"records"`
	Inserted   int       `json:"inserted" yaml:"inserted"`
	Existing   int       `json:"existing" yaml:"existing"`
	Skipped    int       `json:"skipped" yaml:"skipped"`
	Status     string    `json:"status" yaml:"status"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// RecordRun stores run, assigning an ID when it has none. It returns the ID.
func (s *Store) RecordRun(ctx context.Context, run ImportRun) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = RunCompleted
	}

	var errText sql.NullString
	if run.Error != "" {
		errText = sql.NullString{String: run.Error, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO import_runs
			(id, source, started_at, finished_at, records, inserted, existing, skipped, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source,
		run.StartedAt.UTC().Format(time.RFC3339), run.FinishedAt.UTC().Format(time.RFC3339),
		run.Records, run.Inserted, run.Existing, run.Skipped, run.Status, errText,
	)
	if err != nil {
		return "", fmt.Errorf("recording import run: %w", err)
	}
	return run.ID, nil
}

// Runs returns the most recent import runs, newest first. A limit of zero
// or less returns all runs.
func (s *Store) Runs(ctx context.Context, limit int) ([]ImportRun, error) {
	query := `SELECT id, source, started_at, finished_at, records, inserted, existing,
		skipped, status, error FROM import_runs ORDER BY started_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying import runs: %w", err)
	}
	defer rows.Close()

	var runs []ImportRun
	for rows.Next() {
		var (
			run               ImportRun
			started, finished string
			errText           sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Source, &started, &finished, &run.Records,
			&run.Inserted, &run.Existing, &run.Skipped, &run.Status, &errText); err != nil {
			return nil, fmt.Errorf("scanning import run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339, started)
		run.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		run.Error = errText.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
