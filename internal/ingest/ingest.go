// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest imports catalog files and URLs into the parameter store.
// Each source is decoded, flattened, and inserted with first-write-wins
// semantics; a per-source result and a batch summary are reported.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/labref/internal/catalog"
	"github.com/pdiddy/labref/internal/store"
	"github.com/pdiddy/labref/pkg/types"
)

// Options controls an import.
type Options struct {
	Catalog catalog.Options
	Fetch   types.FetchConfig

	// DryRun flattens and reports without writing to the store.
	DryRun bool

	// Strict rejects a source whose flattening skipped any entry.
	Strict bool

	// Stdin is read for StdinSource.
	Stdin io.Reader
}

// Importer runs imports against a store. The store may be nil for dry runs.
type Importer struct {
	store *store.Store
	opts  Options
	log   *logrus.Logger
	now   func() time.Time
}

// NewImporter returns an Importer writing to st.
func NewImporter(st *store.Store, opts Options, log *logrus.Logger) *Importer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Importer{store: st, opts: opts, log: log, now: time.Now}
}

// SourceResult reports the outcome of one source.
type SourceResult struct {
	Source      string
	RunID       string
	Records     []types.ParameterRecord
	Inserted    int
	Existing    int
	Diagnostics catalog.Diagnostics
	Err         error
}

// Skipped returns the number of entries dropped as errors.
func (r SourceResult) Skipped() int {
	return r.Diagnostics.Skipped()
}

// Summary aggregates the results of an import batch.
type Summary struct {
	Sources  []SourceResult
	Records  int
	Inserted int
	Existing int
	Skipped  int
	Failed   int
}

// Total returns the number of sources processed.
func (s *Summary) Total() int {
	return len(s.Sources)
}

func (s *Summary) add(r SourceResult) {
	s.Sources = append(s.Sources, r)
	if r.Err != nil {
		s.Failed++
	}
	s.Records += len(r.Records)
	s.Inserted += r.Inserted
	s.Existing += r.Existing
	s.Skipped += r.Skipped()
}

// Import resolves args and imports each source in order, writing progress
// lines to w. Per-source failures are recorded in the summary; only source
// resolution and context cancellation return an error.
func (im *Importer) Import(ctx context.Context, args []string, w io.Writer) (*Summary, error) {
	if im.store == nil && !im.opts.DryRun {
		return nil, errors.New("import requires a store unless dry-running")
	}

	sources, err := ResolveSources(args)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		fmt.Fprintf(w, "[%d/%d] %s\n", i+1, len(sources), src)
		r := im.ImportSource(ctx, src)
		summary.add(r)

		if r.Err != nil {
			fmt.Fprintf(w, "  FAILED: %v\n", r.Err)
			continue
		}
		if im.opts.DryRun {
			fmt.Fprintf(w, "  %d records, %d skipped (dry run)\n", len(r.Records), r.Skipped())
		} else {
			fmt.Fprintf(w, "  %d inserted, %d existing, %d skipped\n", r.Inserted, r.Existing, r.Skipped())
		}
		if len(r.Diagnostics.Entries) > 0 {
			fmt.Fprintf(w, "  diagnostics: %s\n", r.Diagnostics.Summary())
		}
	}

	fmt.Fprintf(w, "\nImport summary: %d inserted, %d existing, %d skipped, %d failed (sources: %d)\n",
		summary.Inserted, summary.Existing, summary.Skipped, summary.Failed, summary.Total())
	return summary, nil
}

// ImportSource loads, flattens, and stores one source.
func (im *Importer) ImportSource(ctx context.Context, src string) SourceResult {
	started := im.now()
	r := im.importSource(ctx, src)

	fields := logrus.Fields{
		"source":   src,
		"records":  len(r.Records),
		"inserted": r.Inserted,
		"existing": r.Existing,
		"skipped":  r.Skipped(),
		"dry_run":  im.opts.DryRun,
	}

	if !im.opts.DryRun && im.store != nil {
		run := store.ImportRun{
			Source:     src,
			StartedAt:  started,
			FinishedAt: im.now(),
			Records:    len(r.Records),
			Inserted:   r.Inserted,
			Existing:   r.Existing,
			Skipped:    r.Skipped(),
			Status:     store.RunCompleted,
		}
		if r.Err != nil {
			run.Status, run.Error = store.RunFailed, r.Err.Error()
		}
		id, err := im.store.RecordRun(ctx, run)
		if err != nil {
			im.log.WithError(err).WithField("source", src).Warn("could not record import run")
		}
		r.RunID = id
		fields["run_id"] = id
	}

	if r.Err != nil {
		im.log.WithFields(fields).WithError(r.Err).Error("catalog import failed")
	} else {
		im.log.WithFields(fields).Info("catalog imported")
	}
	return r
}

// parse loads and flattens one source.
func (im *Importer) parse(ctx context.Context, src string) (catalog.Result, error) {
	if src == StdinSource {
		if im.opts.Stdin == nil {
			return catalog.Result{}, errors.New("no standard input to read the catalog from")
		}
		doc, err := catalog.DecodeReader(im.opts.Stdin)
		if err != nil {
			return catalog.Result{}, err
		}
		return catalog.FlattenDocument(doc, im.opts.Catalog)
	}

	data, err := Load(ctx, src, im.opts.Fetch)
	if err != nil {
		return catalog.Result{}, err
	}
	return catalog.Parse(data, im.opts.Catalog)
}

func (im *Importer) importSource(ctx context.Context, src string) SourceResult {
	r := SourceResult{Source: src}

	res, err := im.parse(ctx, src)
	if err != nil {
		r.Err = err
		return r
	}
	r.Records, r.Diagnostics = res.Records, res.Diagnostics
	im.logDiagnostics(src, res)

	if im.opts.Strict && res.Diagnostics.Skipped() > 0 {
		r.Err = fmt.Errorf("strict mode: %d entries skipped: %w", res.Diagnostics.Skipped(), res.Diagnostics.Err())
		return r
	}
	if im.opts.DryRun || len(res.Records) == 0 {
		return r
	}

	outcomes, err := im.store.InsertBatch(ctx, res.Records)
	if err != nil {
		r.Err = err
		return r
	}
	for _, o := range outcomes {
		if o.Inserted {
			r.Inserted++
		} else {
			r.Existing++
		}
	}
	return r
}

func (im *Importer) logDiagnostics(src string, res catalog.Result) {
	for _, d := range res.Diagnostics.Entries {
		entry := im.log.WithFields(logrus.Fields{
			"source":    src,
			"kind":      string(d.Kind),
			"path":      d.Path(),
			"age_group": d.AgeGroup,
		})
		if d.Kind.Skips() {
			entry.Warn(d.Message)
		} else {
			entry.Debug(d.Message)
		}
	}

	warned := make(map[string]bool)
	for _, rec := range res.Records {
		if types.IsKnownAgeGroup(rec.AgeGroup) || warned[rec.AgeGroup] {
			continue
		}
		warned[rec.AgeGroup] = true
		im.log.WithFields(logrus.Fields{
			"source":    src,
			"age_group": rec.AgeGroup,
		}).Warn("age group is not in the known list")
	}
}
