// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/labref/internal/store"
	"github.com/pdiddy/labref/pkg/types"
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "List, search, and edit stored reference ranges",
	Long: `Params manages the records in the parameter store. Each record is keyed
by parameter name and age group. Manually added or updated records must have
a low bound below the high bound.`,
}

// --- list / search ---

var paramsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every stored record",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		return runSearch(cmd, store.SearchOptions{Category: category})
	},
}

var paramsSearchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "Search records by parameter name",
	Long: `Search matches the name as a case-insensitive substring. Use --age-group
to restrict results to one age group.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ageGroup, _ := cmd.Flags().GetString("age-group")
		category, _ := cmd.Flags().GetString("category")
		return runSearch(cmd, store.SearchOptions{Name: args[0], AgeGroup: ageGroup, Category: category})
	},
}

func runSearch(cmd *cobra.Command, opts store.SearchOptions) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	recs, err := st.Search(cmd.Context(), opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return encodeJSON(out, exportEntries(recs))
	}
	if len(recs) == 0 {
		fmt.Fprintln(out, "No parameters found.")
		return nil
	}
	printRecords(out, recs)
	fmt.Fprintf(out, "\n%d parameters\n", len(recs))
	return nil
}

// --- add / update / remove ---

var paramsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a reference range",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rec := types.ParameterRecord{}
		applyRecordFlags(cmd, &rec, true)

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Add(cmd.Context(), rec); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", rec.Name, rec.AgeGroup)
		return nil
	},
}

var paramsUpdateCmd = &cobra.Command{
	Use:   "update <name> <age-group>",
	Short: "Update a stored reference range",
	Long: `Update changes the record stored under name and age group. Only the
flags that are given are changed. Renaming or moving a record to another age
group fails if the target key is already taken.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := types.Key{Name: args[0], AgeGroup: args[1]}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		rec, err := st.Get(cmd.Context(), key)
		if err != nil {
			return err
		}
		applyRecordFlags(cmd, &rec, false)

		if err := st.Update(cmd.Context(), key, rec); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s)\n", rec.Name, rec.AgeGroup)
		return nil
	},
}

var paramsRemoveCmd = &cobra.Command{
	Use:     "remove <name> <age-group>",
	Aliases: []string{"rm"},
	Short:   "Remove a stored reference range",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Delete(cmd.Context(), types.Key{Name: args[0], AgeGroup: args[1]}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%s)\n", args[0], args[1])
		return nil
	},
}

// applyRecordFlags copies record flags onto rec. When all is false only
// flags set on the command line are applied.
func applyRecordFlags(cmd *cobra.Command, rec *types.ParameterRecord, all bool) {
	set := func(name string) bool { return all || cmd.Flags().Changed(name) }
	str := func(name string) string { v, _ := cmd.Flags().GetString(name); return v }
	num := func(name string) float64 { v, _ := cmd.Flags().GetFloat64(name); return v }

	if set("name") {
		rec.Name = str("name")
	}
	if set("category") {
		rec.Category = str("category")
	}
	if set("sub-category") {
		rec.SubCategory = types.StringPtr(str("sub-category"))
	}
	if set("age-group") {
		rec.AgeGroup = str("age-group")
	}
	if set("low") {
		rec.Low = num("low")
	}
	if set("high") {
		rec.High = num("high")
	}
	if set("unit") {
		rec.Unit = types.StringPtr(str("unit"))
	}
	if set("notes") {
		rec.Notes = types.StringPtr(str("notes"))
	}
}

func addRecordFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "parameter name")
	cmd.Flags().String("category", "", "category, e.g. "+strings.Join(types.KnownCategories[:3], ", "))
	cmd.Flags().String("sub-category", "", "sub-category")
	cmd.Flags().String("age-group", types.DefaultAgeGroup, "age group, e.g. "+strings.Join(types.KnownAgeGroups[:4], ", "))
	cmd.Flags().Float64("low", 0, "lower bound")
	cmd.Flags().Float64("high", 0, "upper bound")
	cmd.Flags().String("unit", "", "unit, e.g. mmol/L")
	cmd.Flags().String("notes", "", "free-text notes")
}

// --- units / history ---

var paramsUnitsCmd = &cobra.Command{
	Use:   "units",
	Short: "List known and stored units",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		storedOnly, _ := cmd.Flags().GetBool("stored-only")

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		stored, err := st.Units(cmd.Context())
		if err != nil {
			return err
		}
		units := stored
		if !storedOnly {
			units = mergeUnits(types.KnownUnits, stored)
		}
		for _, u := range units {
			fmt.Fprintln(cmd.OutOrStdout(), u)
		}
		return nil
	},
}

func mergeUnits(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, u := range list {
			if !seen[u] {
				seen[u] = true
				out = append(out, u)
			}
		}
	}
	sort.Strings(out)
	return out
}

var paramsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent catalog imports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.Runs(cmd.Context(), limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return encodeJSON(out, runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "No imports recorded.")
			return nil
		}
		fmt.Fprintf(out, "%-20s  %-9s  %8s  %8s  %7s  %s\n", "Started", "Status", "Inserted", "Existing", "Skipped", "Source")
		fmt.Fprintln(out, strings.Repeat("-", 90))
		for _, r := range runs {
			fmt.Fprintf(out, "%-20s  %-9s  %8d  %8d  %7d  %s\n",
				r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Status, r.Inserted, r.Existing, r.Skipped, r.Source)
		}
		return nil
	},
}

// --- shared helpers ---

func printRecords(w io.Writer, recs []types.ParameterRecord) {
	fmt.Fprintf(w, "%-24s  %-12s  %10s  %10s  %-12s  %s\n", "Parameter", "Age Group", "Low", "High", "Unit", "Category")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, r := range recs {
		category := r.Category
		if r.SubCategory != nil {
			category += "/" + *r.SubCategory
		}
		fmt.Fprintf(w, "%-24s  %-12s  %10s  %10s  %-12s  %s\n",
			truncate(r.Name, 24), truncate(r.AgeGroup, 12), formatBound(r.Low), formatBound(r.High),
			types.Deref(r.Unit), category)
	}
}

func formatBound(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%g", v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func exportEntries(recs []types.ParameterRecord) []store.ExportEntry {
	out := make([]store.ExportEntry, len(recs))
	for i, r := range recs {
		out[i] = store.ToEntry(r)
	}
	return out
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	paramsCmd.PersistentFlags().Bool("json", false, "output results as JSON")

	paramsListCmd.Flags().String("category", "", "only list this category")
	paramsSearchCmd.Flags().String("age-group", "", "exact age group to match")
	paramsSearchCmd.Flags().String("category", "", "exact category to match")

	addRecordFlags(paramsAddCmd)
	paramsAddCmd.MarkFlagRequired("name")
	paramsAddCmd.MarkFlagRequired("low")
	paramsAddCmd.MarkFlagRequired("high")
	addRecordFlags(paramsUpdateCmd)

	paramsUnitsCmd.Flags().Bool("stored-only", false, "only list units present in the store")
	paramsHistoryCmd.Flags().Int("limit", 20, "maximum runs to show (0 = all)")

	paramsCmd.AddCommand(paramsListCmd)
	paramsCmd.AddCommand(paramsSearchCmd)
	paramsCmd.AddCommand(paramsAddCmd)
	paramsCmd.AddCommand(paramsUpdateCmd)
	paramsCmd.AddCommand(paramsRemoveCmd)
	paramsCmd.AddCommand(paramsUnitsCmd)
	paramsCmd.AddCommand(paramsHistoryCmd)

	rootCmd.AddCommand(paramsCmd)
}
