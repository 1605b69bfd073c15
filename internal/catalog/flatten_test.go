// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/labref/internal/rangeparse"
	"github.com/pdiddy/labref/pkg/types"
)

func mustParse(t *testing.T, doc string, opts Options) Result {
	t.Helper()
	res, err := Parse([]byte(doc), opts)
	require.NoError(t, err)
	return res
}

func names(recs []types.ParameterRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name + "@" + r.AgeGroup
	}
	return out
}

func TestFlattenPerAgeMappingKeepsOrder(t *testing.T) {
	doc := `{"NICU_Tests": {"Hematology": [
		{"Test": "Hemoglobin", "ReferenceRange": {
			"Term": "14.5-22.5 g/dL",
			"Preterm": "13.5-20.5 g/dL",
			"Neonate": "15-23 g/dL",
			"Infant": "10-14 g/dL"
		}}
	]}}`

	res := mustParse(t, doc, Options{})

	require.Len(t, res.Records, 4)
	assert.Equal(t, []string{"Hemoglobin@Term", "Hemoglobin@Preterm", "Hemoglobin@Neonate", "Hemoglobin@Infant"}, names(res.Records))
	for _, r := range res.Records {
		assert.Equal(t, "Hematology", r.Category)
		assert.Nil(t, r.SubCategory)
		assert.Equal(t, "g/dL", types.Deref(r.Unit))
	}
	assert.Equal(t, 14.5, res.Records[0].Low)
	assert.Equal(t, 22.5, res.Records[0].High)
	assert.Empty(t, res.Diagnostics.Entries)
}

func TestFlattenSingleStringUsesDefaultAgeGroup(t *testing.T) {
	doc := `{"NICU_Tests": {"Electrolytes": [{"Test": "Sodium", "ReferenceRange": "135-145 mEq/L"}]}}`

	res := mustParse(t, doc, Options{})
	require.Len(t, res.Records, 1)
	assert.Equal(t, types.DefaultAgeGroup, res.Records[0].AgeGroup)

	res = mustParse(t, doc, Options{DefaultAgeGroup: "Neonate"})
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Neonate", res.Records[0].AgeGroup)
}

func TestFlattenMissingReferenceRangeIsCounted(t *testing.T) {
	doc := `{"NICU_Tests": {"Other": [
		{"Test": "Ammonia", "ReferenceRange": "<50 µmol/L"},
		{"Test": "Procalcitonin"},
		{"Test": "Glucose", "ReferenceRange": "2.6-7.0 mmol/L"}
	]}}`

	res := mustParse(t, doc, Options{})

	assert.Equal(t, 1, res.Diagnostics.Skipped())
	assert.Equal(t, 1, res.Diagnostics.Count(KindMissingField))
	assert.Equal(t, []string{"Glucose@All"}, names(res.Records))

	var entryErr *EntryError
	require.True(t, errors.As(res.Diagnostics.Err(), &entryErr))
	assert.Equal(t, "Other/Procalcitonin", entryErr.Path)
}

func TestFlattenMissingRootKey(t *testing.T) {
	res, err := Parse([]byte(`{"Tests": {"Hematology": []}}`), Options{})

	var se *StructureError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, DefaultRootKey, se.Key)
	assert.Empty(t, res.Records)
}

func TestFlattenStructureErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		key  string
	}{
		{name: "empty document", doc: ``, key: DefaultRootKey},
		{name: "root is a list", doc: `[1, 2]`, key: DefaultRootKey},
		{name: "root value is a list", doc: `{"NICU_Tests": []}`, key: DefaultRootKey},
		{name: "category is a string", doc: `{"NICU_Tests": {"Hematology": "n/a"}}`, key: "Hematology"},
		{name: "category is null", doc: `{"NICU_Tests": {"Hematology": null}}`, key: "Hematology"},
		{name: "nested category holds no list", doc: `{"NICU_Tests": {"BloodGas": {"Note": "see lab", "Venous": null}}}`, key: "BloodGas"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), Options{})
			var se *StructureError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.Equal(t, tt.key, se.Key)
		})
	}
}

func TestFlattenSyntaxError(t *testing.T) {
	_, err := Parse([]byte(`{"NICU_Tests": `), Options{})
	require.Error(t, err)
	var se *StructureError
	assert.False(t, errors.As(err, &se))
}

func TestFlattenNestedCategories(t *testing.T) {
	doc := `
NICU_Tests:
  BloodGas:
    Arterial:
      - Test: pH
        ReferenceRange: 7.35-7.45
    Venous:
      - Test: pH
        ReferenceRange: 7.32-7.42
  Empty: {}
`
	res := mustParse(t, doc, Options{})

	require.Len(t, res.Records, 2)
	assert.Equal(t, "Arterial", types.Deref(res.Records[0].SubCategory))
	assert.Equal(t, "Venous", types.Deref(res.Records[1].SubCategory))
	assert.Equal(t, "BloodGas", res.Records[1].Category)
	assert.Nil(t, res.Records[0].Unit)
}

func TestFlattenSkipsNonListSubCategory(t *testing.T) {
	doc := `{"NICU_Tests": {
		"Electrolytes": [{"Test": "Sodium", "ReferenceRange": "135-145 mEq/L"}],
		"BloodGas": {
			"Arterial": [{"Test": "pH", "ReferenceRange": "7.35-7.45"}],
			"Note": "see lab"
		}
	}}`

	res := mustParse(t, doc, Options{})

	assert.Equal(t, []string{"Sodium@All", "pH@All"}, names(res.Records))
	require.Len(t, res.Diagnostics.Entries, 1)
	d := res.Diagnostics.Entries[0]
	assert.Equal(t, KindMalformedEntry, d.Kind)
	assert.Equal(t, "BloodGas", d.Category)
	assert.Equal(t, "Note", d.SubCategory)
	assert.Equal(t, 1, res.Diagnostics.Skipped())
}

func TestFlattenNullTestNameIsMissing(t *testing.T) {
	doc := `{"NICU_Tests": {"Other": [
		{"Test": null, "ReferenceRange": "1-2"},
		{"Test": "", "ReferenceRange": "1-2"},
		{"Test": "Urea", "ReferenceRange": "1-2"}
	]}}`

	res := mustParse(t, doc, Options{})

	assert.Equal(t, []string{"Urea@All"}, names(res.Records))
	assert.Equal(t, 2, res.Diagnostics.Count(KindMissingField))
}

func TestFlattenOverflowingNumberIsSkipped(t *testing.T) {
	doc := `{"NICU_Tests": {"Other": [
		{"Test": "Big", "ReferenceRange": "1e999-2 g"},
		{"Test": "Small", "ReferenceRange": "1-2 g"}
	]}}`

	res := mustParse(t, doc, Options{OpenEnded: types.OpenEndedBound})

	assert.Equal(t, []string{"Small@All"}, names(res.Records))
	assert.Equal(t, 1, res.Diagnostics.Count(KindOutOfRange))
	assert.Equal(t, 1, res.Diagnostics.Skipped())
}

func TestFlattenOpenEndedPolicies(t *testing.T) {
	doc := `{"NICU_Tests": {"InfectionMarkers": [
		{"Test": "CRP", "ReferenceRange": "<10 mg/L"},
		{"Test": "Apgar", "ReferenceRange": ">7"}
	]}}`

	dropped := mustParse(t, doc, Options{})
	assert.Empty(t, dropped.Records)
	assert.Equal(t, 2, dropped.Diagnostics.Count(KindOpenEnded))
	assert.Zero(t, dropped.Diagnostics.Skipped(), "open-ended ranges are not entry errors")

	bounded := mustParse(t, doc, Options{OpenEnded: types.OpenEndedBound})
	require.Len(t, bounded.Records, 2)
	assert.Equal(t, 0.0, bounded.Records[0].Low)
	assert.Equal(t, 10.0, bounded.Records[0].High)
	assert.Equal(t, "mg/L", types.Deref(bounded.Records[0].Unit))
	assert.Equal(t, 7.0, bounded.Records[1].Low)
	assert.True(t, math.IsInf(bounded.Records[1].High, 1))
}

func TestFlattenMalformedEntries(t *testing.T) {
	doc := `{"NICU_Tests": {"Other": [
		"just a string",
		{"ReferenceRange": "1-2"},
		{"Test": ["a", "b"], "ReferenceRange": "1-2"},
		{"Test": "Bilirubin", "ReferenceRange": ["1", "2"]},
		{"Test": "Urea", "ReferenceRange": {"Term": {"low": 1}, "Preterm": "1-3 mmol/L"}},
		{"Test": "Culture", "ReferenceRange": null},
		{"Test": "Calcium", "ReferenceRange": 2}
	]}}`

	res := mustParse(t, doc, Options{})

	assert.Equal(t, []string{"Urea@Preterm", "Calcium@All"}, names(res.Records))
	assert.Equal(t, 1, res.Diagnostics.Count(KindMissingField))
	assert.Equal(t, 4, res.Diagnostics.Count(KindMalformedEntry))
	assert.Equal(t, 1, res.Diagnostics.Count(KindNoNumbers))
	assert.Equal(t, 6, res.Diagnostics.Skipped())
}

func TestFlattenWarningsKeepRecords(t *testing.T) {
	doc := `{"NICU_Tests": {"Other": [
		{"Test": "B12", "ReferenceRange": "B12 200-900 pg/mL"},
		{"Test": "Odd", "ReferenceRange": "9-4 U/L"}
	]}}`

	res := mustParse(t, doc, Options{})

	require.Len(t, res.Records, 2)
	assert.Equal(t, 1, res.Diagnostics.Count(KindExtraTokens))
	assert.Equal(t, 1, res.Diagnostics.Count(KindInverted))
	assert.Zero(t, res.Diagnostics.Skipped())
	assert.Equal(t, "raw range: 9-4 U/L", types.Deref(res.Records[1].Notes))
}

func TestFlattenCustomRootKeyAndExtractor(t *testing.T) {
	doc := `{"PICU": {"Other": [{"Test": "X", "ReferenceRange": "anything"}]}}`
	fixed := rangeparse.ExtractorFunc(func(string) types.ParsedRange {
		low, high := 1.0, 2.0
		return types.ParsedRange{Low: &low, High: &high, Unit: "u", Tokens: 2}
	})

	res := mustParse(t, doc, Options{RootKey: "PICU", Extractor: fixed})
	require.Len(t, res.Records, 1)
	assert.Equal(t, 2.0, res.Records[0].High)
}

func TestFlattenTestdataCatalog(t *testing.T) {
	doc, err := DecodeFile(filepath.Join("testdata", "nicu.json"))
	require.NoError(t, err)

	res, err := FlattenDocument(doc, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Hemoglobin@Term",
		"Hemoglobin@Preterm",
		"Platelets@All",
		"WBC@All",
		"pH@All",
		"pCO₂@All",
	}, names(res.Records))

	platelets := res.Records[2]
	assert.Equal(t, 150000.0, platelets.Low)
	assert.Equal(t, 450000.0, platelets.High)
	assert.Equal(t, "/mm³", types.Deref(platelets.Unit))

	assert.Equal(t, 2, res.Diagnostics.Skipped())
	assert.Equal(t, 2, res.Diagnostics.Count(KindOpenEnded))
	assert.Equal(t, 1, res.Diagnostics.Count(KindExtraTokens))
	assert.Equal(t, "extra-tokens: 1, missing-field: 1, no-numbers: 1, open-ended: 2", res.Diagnostics.Summary())
}

func TestFlattenIsDeterministic(t *testing.T) {
	doc, err := DecodeFile(filepath.Join("testdata", "nicu.json"))
	require.NoError(t, err)

	first, err := FlattenDocument(doc, Options{})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := FlattenDocument(doc, Options{})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestBuildTagsCategoryShapes(t *testing.T) {
	doc, err := Decode([]byte(`{"NICU_Tests": {"A": [], "B": {"x": []}}}`))
	require.NoError(t, err)

	cat, err := Build(doc, DefaultRootKey)
	require.NoError(t, err)
	require.Len(t, cat.Categories, 2)
	assert.Equal(t, Flat, cat.Categories[0].Shape)
	assert.Equal(t, Nested, cat.Categories[1].Shape)
	assert.Equal(t, "nested", cat.Categories[1].Shape.String())
}
