// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists ParameterRecords in SQLite. Records are unique by
// (parameter name, age group); imports insert-or-ignore so the first write
// of a key wins.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/labref/pkg/types"
)

// Errors returned by store operations.
var (
	ErrNotFound  = errors.New("parameter not found")
	ErrDuplicate = errors.New("parameter already exists for this age group")
)

// Store manages the parameter database.
type Store struct {
	db   *sql.DB
	path string
	log  *logrus.Logger
}

// Open opens or creates the database at cfg.Path and creates the schema if
// it does not exist.
func Open(cfg types.StoreConfig, log *logrus.Logger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	path := cfg.Path
	if path == "" {
		path = types.DefaultConfig().Store.Path
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path, log: log}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	log.WithFields(logrus.Fields{"path": path}).Debug("parameter store opened")
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS lab_parameters (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			parameter_name TEXT NOT NULL,
			category TEXT,
			sub_category TEXT,
			age_group TEXT NOT NULL,
			low_range REAL NOT NULL,
			high_range REAL NOT NULL,
			unit TEXT,
			notes TEXT,
			UNIQUE(parameter_name, age_group)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lab_parameters_category ON lab_parameters(category)`,
		`CREATE TABLE IF NOT EXISTS import_runs (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			records INTEGER NOT NULL,
			inserted INTEGER NOT NULL,
			existing INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			status TEXT NOT NULL,
			error TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// InsertIfAbsent stores rec unless its (name, age group) key already exists.
// It reports whether a row was written.
func (s *Store) InsertIfAbsent(ctx context.Context, rec types.ParameterRecord) (bool, error) {
	res, err := s.db.ExecContext(ctx, insertOrIgnore, recordArgs(rec)...)
	if err != nil {
		return false, fmt.Errorf("inserting %s: %w", rec.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting %s: %w", rec.Name, err)
	}
	return n == 1, nil
}

// InsertOutcome is the per-record result of InsertBatch.
type InsertOutcome struct {
	Record   types.ParameterRecord
	Inserted bool
}

// InsertBatch inserts records in order within one transaction, ignoring
// keys that already exist.
func (s *Store) InsertBatch(ctx context.Context, recs []types.ParameterRecord) ([]InsertOutcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertOrIgnore)
	if err != nil {
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	outcomes := make([]InsertOutcome, 0, len(recs))
	for _, rec := range recs {
		res, err := stmt.ExecContext(ctx, recordArgs(rec)...)
		if err != nil {
			return nil, fmt.Errorf("inserting %s (%s): %w", rec.Name, rec.AgeGroup, err)
		}
		n, _ := res.RowsAffected()
		outcomes = append(outcomes, InsertOutcome{Record: rec, Inserted: n == 1})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing inserts: %w", err)
	}
	return outcomes, nil
}

// Add stores a manually entered record. It validates the record and fails
// with ErrDuplicate when the key is taken.
func (s *Store) Add(ctx context.Context, rec types.ParameterRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lab_parameters
			(parameter_name, category, sub_category, age_group, low_range, high_range, unit, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		recordArgs(rec)...,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%s (%s): %w", rec.Name, rec.AgeGroup, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("adding %s: %w", rec.Name, err)
	}

	s.log.WithFields(logrus.Fields{
		"parameter": rec.Name,
		"age_group": rec.AgeGroup,
	}).Info("parameter added")
	return nil
}

// Update replaces the record stored under old with rec. When the key
// changes, the new key must be free.
func (s *Store) Update(ctx context.Context, old types.Key, rec types.ParameterRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if rec.Key() != old {
		var count int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM lab_parameters WHERE parameter_name = ? AND age_group = ?`,
			rec.Name, rec.AgeGroup,
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("checking uniqueness: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("%s (%s): %w", rec.Name, rec.AgeGroup, ErrDuplicate)
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE lab_parameters
		 SET parameter_name = ?, category = ?, sub_category = ?, age_group = ?,
			low_range = ?, high_range = ?, unit = ?, notes = ?
		 WHERE parameter_name = ? AND age_group = ?`,
		append(recordArgs(rec), old.Name, old.AgeGroup)...,
	)
	if err != nil {
		return fmt.Errorf("updating %s: %w", old.Name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s (%s): %w", old.Name, old.AgeGroup, ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing update: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"parameter": rec.Name,
		"age_group": rec.AgeGroup,
		"old_name":  old.Name,
		"old_group": old.AgeGroup,
	}).Info("parameter updated")
	return nil
}

// Delete removes the record stored under key.
func (s *Store) Delete(ctx context.Context, key types.Key) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM lab_parameters WHERE parameter_name = ? AND age_group = ?`,
		key.Name, key.AgeGroup,
	)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key.Name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s (%s): %w", key.Name, key.AgeGroup, ErrNotFound)
	}

	s.log.WithFields(logrus.Fields{
		"parameter": key.Name,
		"age_group": key.AgeGroup,
	}).Info("parameter removed")
	return nil
}

// Purge deletes every record and returns how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM lab_parameters`)
	if err != nil {
		return 0, fmt.Errorf("purging parameters: %w", err)
	}
	n, _ := res.RowsAffected()
	s.log.WithFields(logrus.Fields{"removed": n}).Warn("parameter store purged")
	return n, nil
}

const insertOrIgnore = `INSERT OR IGNORE INTO lab_parameters
	(parameter_name, category, sub_category, age_group, low_range, high_range, unit, notes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func recordArgs(rec types.ParameterRecord) []any {
	return []any{
		rec.Name, rec.Category, nullString(rec.SubCategory), rec.AgeGroup,
		rec.Low, rec.High, nullString(rec.Unit), nullString(rec.Notes),
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
