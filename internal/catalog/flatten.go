// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"fmt"
	"math"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/labref/internal/rangeparse"
	"github.com/pdiddy/labref/pkg/types"
)

// DefaultRootKey is the well-known key holding the categories.
const DefaultRootKey = "NICU_Tests"

// Options controls flattening. Zero fields take their defaults.
type Options struct {
	// RootKey defaults to DefaultRootKey.
	RootKey string

	// DefaultAgeGroup labels single-string ranges; defaults to "All".
	DefaultAgeGroup string

	// OpenEnded defaults to types.OpenEndedDrop.
	OpenEnded types.OpenEndedPolicy

	// Extractor defaults to rangeparse.Default.
	Extractor rangeparse.Extractor
}

func (o Options) withDefaults() Options {
	if o.RootKey == "" {
		o.RootKey = DefaultRootKey
	}
	if o.DefaultAgeGroup == "" {
		o.DefaultAgeGroup = types.DefaultAgeGroup
	}
	if o.OpenEnded == "" {
		o.OpenEnded = types.OpenEndedDrop
	}
	if o.Extractor == nil {
		o.Extractor = rangeparse.Default
	}
	return o
}

// Result is the output of one flattening pass.
type Result struct {
	Records     []types.ParameterRecord
	Diagnostics Diagnostics
}

// Parse decodes data and flattens it.
func Parse(data []byte, opts Options) (Result, error) {
	doc, err := Decode(data)
	if err != nil {
		return Result{}, err
	}
	return FlattenDocument(doc, opts)
}

// FlattenDocument builds the typed catalog from doc and flattens it.
// Structural problems return a *StructureError and no records.
func FlattenDocument(doc *yaml.Node, opts Options) (Result, error) {
	opts = opts.withDefaults()
	cat, err := Build(doc, opts.RootKey)
	if err != nil {
		return Result{}, err
	}
	return Flatten(cat, opts), nil
}

// Flatten walks the catalog in order (category, sub-category, test, age
// group) and emits one record per age group whose range resolved to two
// bounds. Dropped entries are reported in the result's Diagnostics.
func Flatten(cat *Catalog, opts Options) Result {
	f := flattener{opts: opts.withDefaults()}
	for _, category := range cat.Categories {
		switch category.Shape {
		case Flat:
			for _, t := range category.Tests {
				f.test(category.Name, "", t)
			}
		case Nested:
			for _, sub := range category.SubCategories {
				if sub.Problem != "" {
					f.diagnose(Diagnostic{Category: category.Name, SubCategory: sub.Name}, sub.Problem, sub.Detail)
					continue
				}
				for _, t := range sub.Tests {
					f.test(category.Name, sub.Name, t)
				}
			}
		}
	}
	return f.result
}

// flattener holds the accumulator for one Flatten call.
type flattener struct {
	opts   Options
	result Result
}

func (f *flattener) test(category, sub string, t Test) {
	base := Diagnostic{Category: category, SubCategory: sub, Test: t.Name}

	if t.Problem != "" {
		d := base
		d.Kind, d.Message = t.Problem, t.Detail
		f.result.Diagnostics.add(d)
		return
	}

	if !t.Range.PerAge {
		f.emit(base, f.opts.DefaultAgeGroup, t.Range.Text)
		return
	}
	for _, ar := range t.Range.ByAge {
		if ar.Malformed {
			d := base
			d.Kind, d.AgeGroup = KindMalformedEntry, ar.AgeGroup
			d.Message = "age-group range is not a string"
			f.result.Diagnostics.add(d)
			continue
		}
		f.emit(base, ar.AgeGroup, ar.Text)
	}
}

func (f *flattener) emit(base Diagnostic, ageGroup, raw string) {
	base.AgeGroup, base.Raw = ageGroup, raw
	pr := f.opts.Extractor.Extract(raw)

	switch {
	case pr.IsEmpty():
		f.diagnose(base, KindNoNumbers, "no usable number in range")
		return
	case infinite(pr.Low) || infinite(pr.High):
		f.diagnose(base, KindOutOfRange, "number too large for a bound")
		return
	case pr.IsOpenEnded() && f.opts.OpenEnded != types.OpenEndedBound:
		f.diagnose(base, KindOpenEnded, "one-sided range dropped")
		return
	}

	low, high := bounds(pr)

	var notes *string
	if pr.Tokens > 2 {
		f.diagnose(base, KindExtraTokens, fmt.Sprintf("%d numbers found, first two used", pr.Tokens))
		notes = types.StringPtr("raw range: " + raw)
	}
	if low > high {
		f.diagnose(base, KindInverted, fmt.Sprintf("low %g exceeds high %g", low, high))
		notes = types.StringPtr("raw range: " + raw)
	}

	var sub *string
	if base.SubCategory != "" {
		sub = types.StringPtr(base.SubCategory)
	}
	f.result.Records = append(f.result.Records, types.ParameterRecord{
		Name:        base.Test,
		Category:    base.Category,
		SubCategory: sub,
		AgeGroup:    ageGroup,
		Low:         low,
		High:        high,
		Unit:        types.StringPtr(pr.Unit),
		Notes:       notes,
	})
}

func (f *flattener) diagnose(d Diagnostic, kind DiagnosticKind, msg string) {
	d.Kind, d.Message = kind, msg
	f.result.Diagnostics.add(d)
}

func infinite(v *float64) bool {
	return v != nil && math.IsInf(*v, 0)
}

// bounds resolves both bounds, filling a missing low with 0 and a missing
// high with +Inf. Only reached for two-sided ranges or the bound policy.
func bounds(pr types.ParsedRange) (float64, float64) {
	low, high := 0.0, math.Inf(1)
	if pr.Low != nil {
		low = *pr.Low
	}
	if pr.High != nil {
		high = *pr.High
	}
	return low, high
}
