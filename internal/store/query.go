// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/labref/pkg/types"
)

// SearchOptions filters Search results.
type SearchOptions struct {
	// Name matches as a case-insensitive substring of the parameter name.
	Name string

	// AgeGroup, when set, must match exactly.
	AgeGroup string

	// Category, when set, must match exactly.
	Category string
}

const selectColumns = `SELECT id, parameter_name, category, sub_category, age_group,
	low_range, high_range, unit, notes FROM lab_parameters`

// Get returns the record stored under key.
func (s *Store) Get(ctx context.Context, key types.Key) (types.ParameterRecord, error) {
	row := s.db.QueryRowContext(ctx,
		selectColumns+` WHERE parameter_name = ? AND age_group = ?`,
		key.Name, key.AgeGroup,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ParameterRecord{}, fmt.Errorf("%s (%s): %w", key.Name, key.AgeGroup, ErrNotFound)
	}
	if err != nil {
		return types.ParameterRecord{}, fmt.Errorf("querying %s: %w", key.Name, err)
	}
	return rec, nil
}

// Search returns records matching opts in insertion order.
func (s *Store) Search(ctx context.Context, opts SearchOptions) ([]types.ParameterRecord, error) {
	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(selectColumns)
	qb.WriteString(` WHERE 1=1`)

	if opts.Name != "" {
		qb.WriteString(` AND parameter_name LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(opts.Name)+"%")
	}
	if opts.AgeGroup != "" {
		qb.WriteString(` AND age_group = ?`)
		args = append(args, opts.AgeGroup)
	}
	if opts.Category != "" {
		qb.WriteString(` AND category = ?`)
		args = append(args, opts.Category)
	}
	qb.WriteString(` ORDER BY id`)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("searching parameters: %w", err)
	}
	defer rows.Close()

	var out []types.ParameterRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning parameter: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// List returns every record in insertion order.
func (s *Store) List(ctx context.Context) ([]types.ParameterRecord, error) {
	return s.Search(ctx, SearchOptions{})
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lab_parameters`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting parameters: %w", err)
	}
	return n, nil
}

// Units returns the distinct non-null units, sorted.
func (s *Store) Units(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT unit FROM lab_parameters WHERE unit IS NOT NULL ORDER BY unit`)
	if err != nil {
		return nil, fmt.Errorf("querying units: %w", err)
	}
	defer rows.Close()

	var units []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scanning unit: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (types.ParameterRecord, error) {
	var (
		rec                    types.ParameterRecord
		category               sql.NullString
		subCategory, unit, nts sql.NullString
	)
	err := sc.Scan(&rec.ID, &rec.Name, &category, &subCategory, &rec.AgeGroup,
		&rec.Low, &rec.High, &unit, &nts)
	if err != nil {
		return types.ParameterRecord{}, err
	}
	rec.Category = category.String
	rec.SubCategory = fromNull(subCategory)
	rec.Unit = fromNull(unit)
	rec.Notes = fromNull(nts)
	return rec, nil
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
