// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// KnownAgeGroups lists the age-group labels the parameter store expects.
var KnownAgeGroups = []string{
	"Neonate",
	"Infant",
	"Child",
	"Adolescent",
	"Adult",
	"Pregnancy",
	"Term",
	"Preterm",
	DefaultAgeGroup,
}

// KnownUnits seeds unit pickers before any records are stored.
var KnownUnits = []string{
	"g/dL", "mg/dL", "µg/dL",
	"mmol/L", "µmol/L",
	"mEq/L", "ng/mL",
	"U/L", "IU/L",
	"%",
	"cells/µL",
	"g/L",
	"pg",
	"ratio",
	"seconds",
	"K/µL",
	"mm/hr",
	"mm³",
	"mmHg",
	"µIU/mL",
	"ng/dL",
	"pg/mL",
	"cells/mm³",
	"mg/L",
	"/mm³",
	"pg/dL",
}

// KnownCategories lists the catalog categories used by the bundled NICU tables.
var KnownCategories = []string{
	"Hematology",
	"BloodGas",
	"Electrolytes",
	"LiverFunctionTests",
	"RenalFunctionTests",
	"InfectionMarkers",
	"Coagulation",
	"Other",
}

// IsKnownAgeGroup reports whether label is one of KnownAgeGroups.
func IsKnownAgeGroup(label string) bool {
	for _, g := range KnownAgeGroups {
		if g == label {
			return true
		}
	}
	return false
}
