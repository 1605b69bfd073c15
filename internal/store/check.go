// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/labref/pkg/types"
)

// Status classifies a measured value against a stored range.
type Status string

const (
	StatusLow    Status = "low"
	StatusNormal Status = "normal"
	StatusHigh   Status = "high"
)

// CheckResult pairs a measured value with the range it was checked against.
type CheckResult struct {
	Record types.ParameterRecord `json:"record" yaml:"record"`
	Value  float64               `json:"value" yaml:"value"`
	Status Status                `json:"status" yaml:"status"`

	// Fallback is set when the requested age group had no range and the
	// default age group was used instead.
	Fallback bool `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// Classify places value relative to [low, high]. Bounds are inclusive.
func Classify(rec types.ParameterRecord, value float64) Status {
	switch {
	case value < rec.Low:
		return StatusLow
	case value > rec.High:
		return StatusHigh
	default:
		return StatusNormal
	}
}

// Check looks up the range for key and classifies value. When key's age
// group has no record, the range stored under fallbackGroup is tried;
// an empty fallbackGroup means types.DefaultAgeGroup.
func (s *Store) Check(ctx context.Context, key types.Key, value float64, fallbackGroup string) (CheckResult, error) {
	if fallbackGroup == "" {
		fallbackGroup = types.DefaultAgeGroup
	}
	rec, err := s.Get(ctx, key)
	fallback := false
	if errors.Is(err, ErrNotFound) && key.AgeGroup != fallbackGroup {
		rec, err = s.Get(ctx, types.Key{Name: key.Name, AgeGroup: fallbackGroup})
		fallback = err == nil
	}
	if err != nil {
		return CheckResult{}, fmt.Errorf("checking %s: %w", key.Name, err)
	}

	return CheckResult{
		Record:   rec,
		Value:    value,
		Status:   Classify(rec, value),
		Fallback: fallback,
	}, nil
}
