// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the values shared between the range extractor, the
// catalog flattener, the parameter store, and the CLI: ParsedRange,
// ParameterRecord, configuration structs, and the known label vocabularies.
package types
