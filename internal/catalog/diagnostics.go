// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DiagnosticKind classifies a flattening diagnostic.
type DiagnosticKind string

const (
	// KindMissingField marks an entry without a Test or ReferenceRange field.
	KindMissingField DiagnosticKind = "missing-field"

	// KindMalformedEntry marks an entry or age-group value of the wrong shape.
	KindMalformedEntry DiagnosticKind = "malformed-entry"

	// KindNoNumbers marks a range string with no usable number.
	KindNoNumbers DiagnosticKind = "no-numbers"

	// KindOutOfRange marks a range whose number overflows a float64.
	KindOutOfRange DiagnosticKind = "out-of-range"

	// KindOpenEnded marks a one-sided range dropped under the drop policy.
	KindOpenEnded DiagnosticKind = "open-ended"

	// KindExtraTokens marks a range string with more than two numbers.
	KindExtraTokens DiagnosticKind = "extra-tokens"

	// KindInverted marks a range whose low bound exceeds its high bound.
	KindInverted DiagnosticKind = "inverted"
)

// Skips reports whether the kind drops the entry as an EntryError.
// Open-ended ranges are dropped too but are not errors.
func (k DiagnosticKind) Skips() bool {
	switch k {
	case KindMissingField, KindMalformedEntry, KindNoNumbers, KindOutOfRange:
		return true
	}
	return false
}

// Diagnostic is one non-fatal observation made while flattening.
type Diagnostic struct {
	Kind        DiagnosticKind `json:"kind" yaml:"kind"`
	Category    string         `json:"category" yaml:"category"`
	SubCategory string         `json:"sub_category,omitempty" yaml:"sub_category,omitempty"`
	Test        string         `json:"test,omitempty" yaml:"test,omitempty"`
	AgeGroup    string         `json:"age_group,omitempty" yaml:"age_group,omitempty"`
	Raw         string         `json:"raw,omitempty" yaml:"raw,omitempty"`
	Message     string         `json:"message" yaml:"message"`
}

// Path renders the catalog location of the diagnostic.
func (d Diagnostic) Path() string {
	parts := []string{d.Category}
	if d.SubCategory != "" {
		parts = append(parts, d.SubCategory)
	}
	test := d.Test
	if test == "" {
		test = "<unnamed>"
	}
	return strings.Join(append(parts, test), "/")
}

// Err returns the diagnostic as an *EntryError.
func (d Diagnostic) Err() error {
	return &EntryError{Kind: d.Kind, Path: d.Path(), AgeGroup: d.AgeGroup, Message: d.Message}
}

// Diagnostics collects the observations of one Flatten call in traversal order.
type Diagnostics struct {
	Entries []Diagnostic `json:"entries" yaml:"entries"`
}

func (d *Diagnostics) add(diag Diagnostic) {
	d.Entries = append(d.Entries, diag)
}

// Skipped returns the number of EntryErrors.
func (d Diagnostics) Skipped() int {
	n := 0
	for _, e := range d.Entries {
		if e.Kind.Skips() {
			n++
		}
	}
	return n
}

// Count returns the number of diagnostics of the given kind.
func (d Diagnostics) Count(kind DiagnosticKind) int {
	n := 0
	for _, e := range d.Entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Err joins all EntryErrors, or returns nil when none were recorded.
func (d Diagnostics) Err() error {
	var errs []error
	for _, e := range d.Entries {
		if e.Kind.Skips() {
			errs = append(errs, e.Err())
		}
	}
	return errors.Join(errs...)
}

// Summary renders per-kind counts, e.g. "missing-field: 1, open-ended: 2".
func (d Diagnostics) Summary() string {
	if len(d.Entries) == 0 {
		return "no diagnostics"
	}
	counts := make(map[DiagnosticKind]int)
	for _, e := range d.Entries {
		counts[e.Kind]++
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s: %d", k, counts[DiagnosticKind(k)])
	}
	return strings.Join(parts, ", ")
}
