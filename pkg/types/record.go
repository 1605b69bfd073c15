// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"math"
)

// DefaultAgeGroup labels records produced from a single range string that
// carries no per-age breakdown.
const DefaultAgeGroup = "All"

// ParsedRange is the numeric reading of one reference-range string.
// Low and High are nil when the bound is absent (open-ended ranges) or when
// no number could be located.
type ParsedRange struct {
	Low  *float64 `json:"low" yaml:"low"`
	High *float64 `json:"high" yaml:"high"`

	// Unit is the trimmed trailing unit text, possibly empty.
	Unit string `json:"unit" yaml:"unit"`

	// Tokens is the number of numeric tokens found. Values above two mean
	// the source string carried more numbers than a low/high pair.
	Tokens int `json:"tokens" yaml:"tokens"`
}

// HasBoth reports whether both bounds resolved to numbers.
func (p ParsedRange) HasBoth() bool {
	return p.Low != nil && p.High != nil
}

// IsOpenEnded reports whether exactly one bound is present.
func (p ParsedRange) IsOpenEnded() bool {
	return (p.Low == nil) != (p.High == nil)
}

// IsEmpty reports whether neither bound is present.
func (p ParsedRange) IsEmpty() bool {
	return p.Low == nil && p.High == nil
}

// String renders the range the way the CLI displays it.
func (p ParsedRange) String() string {
	s := fmt.Sprintf("%s - %s", formatBound(p.Low), formatBound(p.High))
	if p.Unit != "" {
		s += " " + p.Unit
	}
	return s
}

func formatBound(v *float64) string {
	if v == nil {
		return "none"
	}
	if math.IsInf(*v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%g", *v)
}

// ParameterRecord is one stored reference range for a test and age group.
// The store keys records by (Name, AgeGroup).
type ParameterRecord struct {
	ID          int64   `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string  `json:"name" yaml:"name"`
	Category    string  `json:"category" yaml:"category"`
	SubCategory *string `json:"sub_category,omitempty" yaml:"sub_category,omitempty"`
	AgeGroup    string  `json:"age_group" yaml:"age_group"`
	Low         float64 `json:"low" yaml:"low"`
	High        float64 `json:"high" yaml:"high"`
	Unit        *string `json:"unit,omitempty" yaml:"unit,omitempty"`
	Notes       *string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Key identifies a record the way the store enforces uniqueness.
type Key struct {
	Name     string
	AgeGroup string
}

// Key returns the uniqueness key of the record.
func (r ParameterRecord) Key() Key {
	return Key{Name: r.Name, AgeGroup: r.AgeGroup}
}

// Validation errors returned by ParameterRecord.Validate.
var (
	ErrNameRequired     = errors.New("parameter name cannot be empty")
	ErrAgeGroupRequired = errors.New("age group cannot be empty")
	ErrBoundsOrder      = errors.New("lower range must be less than higher range")
)

// Validate checks a manually entered record. Imported records are not
// validated here; the extractor does not enforce bound ordering.
func (r ParameterRecord) Validate() error {
	if r.Name == "" {
		return ErrNameRequired
	}
	if r.AgeGroup == "" {
		return ErrAgeGroupRequired
	}
	if r.Low >= r.High {
		return fmt.Errorf("%w for %s", ErrBoundsOrder, r.Name)
	}
	return nil
}

// StringPtr returns nil for an empty string and a pointer to s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
