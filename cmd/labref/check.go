// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/labref/internal/store"
	"github.com/pdiddy/labref/pkg/types"
)

var checkCmd = &cobra.Command{
	Use:   "check <name> <value>",
	Short: "Classify a measured value against its reference range",
	Long: `Check looks up the stored range for name and --age-group and reports
whether value is low, normal, or high. Bounds are inclusive. --age-group
defaults to catalog.default_age_group. When the age group has no range, the
catalog.default_age_group range is used if present.`,
	Args: cobra.ExactArgs(2),
	RunE: runCheck,
}

// checkOutput is the check --json payload.
type checkOutput struct {
	store.ExportEntry
	Value    float64 `json:"value"`
	Status   string  `json:"status"`
	Fallback bool    `json:"fallback"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	ageGroup, _ := cmd.Flags().GetString("age-group")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	value, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("value %q is not a number", args[1])
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	defaultGroup := cfg.Catalog.DefaultAgeGroup
	if ageGroup == "" {
		ageGroup = defaultGroup
	}

	res, err := st.Check(cmd.Context(), types.Key{Name: args[0], AgeGroup: ageGroup}, value, defaultGroup)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return encodeJSON(out, checkOutput{
			ExportEntry: store.ToEntry(res.Record),
			Value:       res.Value,
			Status:      string(res.Status),
			Fallback:    res.Fallback,
		})
	}

	unit := types.Deref(res.Record.Unit)
	fmt.Fprintf(out, "%s %g %s: %s (reference %s - %s %s, %s)\n",
		res.Record.Name, value, unit, res.Status,
		formatBound(res.Record.Low), formatBound(res.Record.High), unit, res.Record.AgeGroup)
	if res.Fallback {
		fmt.Fprintf(out, "no range for age group %q; used %q\n", ageGroup, res.Record.AgeGroup)
	}
	return nil
}

func init() {
	checkCmd.Flags().String("age-group", "", "age group of the patient (default catalog.default_age_group)")
	checkCmd.Flags().Bool("json", false, "output the result as JSON")

	rootCmd.AddCommand(checkCmd)
}
