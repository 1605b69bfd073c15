// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import "fmt"

// StructureError reports a catalog that does not have the expected
// root-key/category shape. It aborts flattening.
type StructureError struct {
	// Key names the offending key: the root key, a category, or
	// "category/sub-category".
	Key    string
	Reason string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("invalid catalog structure at %q: %s", e.Key, e.Reason)
}

// EntryError describes one test entry, or one age group of an entry, that
// was dropped. EntryErrors are collected in Diagnostics, never returned
// from Flatten.
type EntryError struct {
	Kind     DiagnosticKind
	Path     string
	AgeGroup string
	Message  string
}

func (e *EntryError) Error() string {
	if e.AgeGroup != "" {
		return fmt.Sprintf("%s [%s]: %s: %s", e.Path, e.AgeGroup, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Kind, e.Message)
}
