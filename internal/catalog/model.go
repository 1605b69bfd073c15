// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog decodes nested test catalogs and flattens them into
// ParameterRecords.
//
// A catalog document has one root key whose value maps category labels to
// either a list of tests (a Flat category) or a mapping of sub-category
// labels to lists of tests (a Nested category):
//
//	NICU_Tests:
//	  Electrolytes:
//	    - Test: Sodium
//	      ReferenceRange: 135-145 mEq/L
//	  BloodGas:
//	    Arterial:
//	      - Test: pH
//	        ReferenceRange: {Term: 7.35-7.45, Preterm: 7.30-7.40}
//
// JSON documents have the same shape. Key order is preserved throughout.
package catalog

import (
	"fmt"

	"go.yaml.in/yaml/v3"
)

// Field names of a test entry.
const (
	FieldTest           = "Test"
	FieldReferenceRange = "ReferenceRange"
)

// Shape tags the two category layouts.
type Shape int

const (
	// Flat categories hold their tests directly.
	Flat Shape = iota

	// Nested categories hold sub-categories, each with its own tests.
	Nested
)

func (s Shape) String() string {
	if s == Nested {
		return "nested"
	}
	return "flat"
}

// Catalog is the typed form of a catalog document.
type Catalog struct {
	Categories []Category
}

// Category is one entry under the root key. Tests is set for Flat
// categories, SubCategories for Nested ones.
type Category struct {
	Name          string
	Shape         Shape
	Tests         []Test
	SubCategories []SubCategory
}

// SubCategory is a named list of tests inside a Nested category. A value
// that is not a list is kept with Problem set and no tests.
type SubCategory struct {
	Name  string
	Tests []Test

	Problem DiagnosticKind
	Detail  string
}

// Test is one leaf entry. Entries that lack a field or have the wrong shape
// are kept with Problem set so the flattener can report them.
type Test struct {
	Name  string
	Range RangeValue

	Problem DiagnosticKind
	Detail  string
}

// RangeValue holds either a single range string or an ordered per-age mapping.
type RangeValue struct {
	PerAge bool
	Text   string
	ByAge  []AgeRange
}

// AgeRange is one age-group entry of a per-age mapping. Malformed is set
// when the value is not a scalar.
type AgeRange struct {
	AgeGroup  string
	Text      string
	Malformed bool
}

// Build converts a decoded document into a Catalog. It fails with a
// *StructureError when the root key is missing, a category value is
// neither a list nor a mapping, or a non-empty mapping holds no list.
func Build(doc *yaml.Node, rootKey string) (*Catalog, error) {
	root := resolve(doc)
	if root != nil && root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			root = nil
		} else {
			root = resolve(root.Content[0])
		}
	}
	if root == nil || root.Kind != yaml.MappingNode {
		return nil, &StructureError{Key: rootKey, Reason: "document is not a mapping containing the root key"}
	}

	categories := lookup(root, rootKey)
	if categories == nil {
		return nil, &StructureError{Key: rootKey, Reason: "root key not found"}
	}
	if categories.Kind != yaml.MappingNode {
		return nil, &StructureError{Key: rootKey, Reason: "expected a mapping of categories"}
	}

	cat := &Catalog{}
	for i := 0; i+1 < len(categories.Content); i += 2 {
		name := categories.Content[i].Value
		value := resolve(categories.Content[i+1])

		category, err := buildCategory(name, value)
		if err != nil {
			return nil, err
		}
		cat.Categories = append(cat.Categories, category)
	}
	return cat, nil
}

func buildCategory(name string, value *yaml.Node) (Category, error) {
	switch {
	case value != nil && value.Kind == yaml.SequenceNode:
		return Category{Name: name, Shape: Flat, Tests: buildTests(value)}, nil

	case value != nil && value.Kind == yaml.MappingNode:
		category := Category{Name: name, Shape: Nested}
		lists := 0
		for i := 0; i+1 < len(value.Content); i += 2 {
			sub := SubCategory{Name: value.Content[i].Value}
			tests := resolve(value.Content[i+1])
			if tests == nil || tests.Kind != yaml.SequenceNode {
				sub.Problem, sub.Detail = KindMalformedEntry, "sub-category is not a list of tests"
			} else {
				sub.Tests = buildTests(tests)
				lists++
			}
			category.SubCategories = append(category.SubCategories, sub)
		}
		if lists == 0 && len(category.SubCategories) > 0 {
			return Category{}, &StructureError{
				Key:    name,
				Reason: "expected a list of tests or a mapping of sub-categories",
			}
		}
		return category, nil
	}

	return Category{}, &StructureError{
		Key:    name,
		Reason: "expected a list of tests or a mapping of sub-categories",
	}
}

func buildTests(seq *yaml.Node) []Test {
	tests := make([]Test, 0, len(seq.Content))
	for _, item := range seq.Content {
		tests = append(tests, buildTest(resolve(item)))
	}
	return tests
}

func buildTest(node *yaml.Node) Test {
	if node == nil || node.Kind != yaml.MappingNode {
		return Test{Problem: KindMalformedEntry, Detail: "test entry is not a mapping"}
	}

	nameNode := resolve(lookup(node, FieldTest))
	rangeNode := resolve(lookup(node, FieldReferenceRange))

	var t Test
	if nameNode != nil && nameNode.Kind == yaml.ScalarNode {
		t.Name = scalarText(nameNode)
	}

	switch {
	case nameNode == nil || (nameNode.Kind == yaml.ScalarNode && t.Name == ""):
		t.Problem, t.Detail = KindMissingField, fmt.Sprintf("missing %q field", FieldTest)
	case nameNode.Kind != yaml.ScalarNode:
		t.Problem, t.Detail = KindMalformedEntry, fmt.Sprintf("%q is not a string", FieldTest)
	case rangeNode == nil:
		t.Problem, t.Detail = KindMissingField, fmt.Sprintf("missing %q field", FieldReferenceRange)
	case rangeNode.Kind == yaml.ScalarNode:
		t.Range = RangeValue{Text: scalarText(rangeNode)}
	case rangeNode.Kind == yaml.MappingNode:
		t.Range = RangeValue{PerAge: true, ByAge: buildAgeRanges(rangeNode)}
	default:
		t.Problem, t.Detail = KindMalformedEntry, fmt.Sprintf("%q is neither a string nor a mapping", FieldReferenceRange)
	}
	return t
}

func buildAgeRanges(m *yaml.Node) []AgeRange {
	ranges := make([]AgeRange, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		value := resolve(m.Content[i+1])
		ar := AgeRange{AgeGroup: m.Content[i].Value}
		if value == nil || value.Kind != yaml.ScalarNode {
			ar.Malformed = true
		} else {
			ar.Text = scalarText(value)
		}
		ranges = append(ranges, ar)
	}
	return ranges
}

// scalarText returns the scalar's text, or "" for null.
func scalarText(n *yaml.Node) string {
	if n.Tag == "!!null" {
		return ""
	}
	return n.Value
}

// lookup returns the value node for key in a mapping node, or nil.
func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// resolve follows alias nodes.
func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}
