// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/labref/pkg/types"
)

// Format selects an export encoding.
type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatYAML, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q (want text, yaml, or json)", s)
}

// Ext returns the file extension used for the format.
func (f Format) Ext() string {
	switch f {
	case FormatYAML:
		return ".yaml"
	case FormatJSON:
		return ".json"
	default:
		return ".txt"
	}
}

// ExportEntry is the serialized form of a record. High is null for ranges
// without an upper bound, since JSON cannot carry infinity.
type ExportEntry struct {
	ID          int64    `json:"id" yaml:"id"`
	Name        string   `json:"parameter" yaml:"parameter"`
	Category    string   `json:"category" yaml:"category"`
	SubCategory *string  `json:"sub_category" yaml:"sub_category"`
	AgeGroup    string   `json:"age_group" yaml:"age_group"`
	Low         float64  `json:"low" yaml:"low"`
	High        *float64 `json:"high" yaml:"high"`
	Unit        *string  `json:"unit" yaml:"unit"`
	Notes       *string  `json:"notes" yaml:"notes"`
}

// ToEntry converts a record for export.
func ToEntry(rec types.ParameterRecord) ExportEntry {
	e := ExportEntry{
		ID:          rec.ID,
		Name:        rec.Name,
		Category:    rec.Category,
		SubCategory: rec.SubCategory,
		AgeGroup:    rec.AgeGroup,
		Low:         rec.Low,
		Unit:        rec.Unit,
		Notes:       rec.Notes,
	}
	if !math.IsInf(rec.High, 1) {
		high := rec.High
		e.High = &high
	}
	return e
}

// Export writes every record to w in the given format.
func (s *Store) Export(ctx context.Context, w io.Writer, format Format) error {
	recs, err := s.List(ctx)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}

	switch format {
	case FormatText:
		return writeText(w, recs)
	case FormatYAML, FormatJSON:
		entries := make([]ExportEntry, len(recs))
		for i, r := range recs {
			entries[i] = ToEntry(r)
		}
		return encode(w, format, entries)
	}
	return fmt.Errorf("unknown export format %q", format)
}

func encode(w io.Writer, format Format, entries []ExportEntry) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

func writeText(w io.Writer, recs []types.ParameterRecord) error {
	var b strings.Builder
	b.WriteString("Database Content:\n\n")
	for _, r := range recs {
		fmt.Fprintf(&b, "ID: %d\n", r.ID)
		fmt.Fprintf(&b, "Parameter: %s\n", r.Name)
		fmt.Fprintf(&b, "Category: %s\n", r.Category)
		fmt.Fprintf(&b, "Sub-Category: %s\n", types.Deref(r.SubCategory))
		fmt.Fprintf(&b, "Age Group: %s\n", r.AgeGroup)
		fmt.Fprintf(&b, "Range: %g - %g\n", r.Low, r.High)
		fmt.Fprintf(&b, "Unit: %s\n", types.Deref(r.Unit))
		fmt.Fprintf(&b, "Notes: %s\n", types.Deref(r.Notes))
		b.WriteString(strings.Repeat("-", 50) + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// ExportFileName returns the timestamped export file name for format.
func ExportFileName(format Format, now time.Time) string {
	return "database_export_" + now.Format("20060102_150405") + format.Ext()
}

// ExportToDir writes a timestamped export into dir and returns its path.
func (s *Store) ExportToDir(ctx context.Context, dir string, format Format, now time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	path := filepath.Join(dir, ExportFileName(format, now))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}
	if err := s.Export(ctx, f, format); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing export file: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"path":   path,
		"format": string(format),
	}).Info("parameters exported")
	return path, nil
}

// PurgeWithBackup writes a text export into dir and then deletes every
// record. Nothing is deleted if the backup fails.
func (s *Store) PurgeWithBackup(ctx context.Context, dir string, now time.Time) (string, int64, error) {
	backup, err := s.ExportToDir(ctx, dir, FormatText, now)
	if err != nil {
		return "", 0, fmt.Errorf("writing backup before purge: %w", err)
	}
	n, err := s.Purge(ctx)
	if err != nil {
		return backup, 0, err
	}
	return backup, n, nil
}
