// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/labref/internal/rangeparse"
	"github.com/pdiddy/labref/pkg/types"
)

var parseCmd = &cobra.Command{
	Use:   "parse [range...]",
	Short: "Parse reference-range strings into bounds and units",
	Long: `Parse extracts the low bound, high bound, and unit from each range string
argument, or from each line of standard input when no arguments are given.
Nothing is stored.

  labref parse "3.5-5.5 mmol/L" "<10 mg/L" "10,000-20,000 /mm³"`,
	RunE: runParse,
}

// parseOutput is one line of parse --json output.
type parseOutput struct {
	Raw        string            `json:"raw"`
	Normalized string            `json:"normalized,omitempty"`
	Parsed     types.ParsedRange `json:"parsed"`
}

func runParse(cmd *cobra.Command, args []string) error {
	showNormalized, _ := cmd.Flags().GetBool("normalized")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	inputs := args
	if len(inputs) == 0 {
		lines, err := readLines(cmd.InOrStdin())
		if err != nil {
			return err
		}
		inputs = lines
	}

	outputs := make([]parseOutput, len(inputs))
	for i, raw := range inputs {
		outputs[i] = parseOutput{Raw: raw, Parsed: rangeparse.Extract(raw)}
		if showNormalized {
			outputs[i].Normalized = rangeparse.Normalize(raw)
		}
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(outputs)
	}

	for _, o := range outputs {
		note := ""
		switch {
		case o.Parsed.IsEmpty():
			note = "  (no numbers)"
		case o.Parsed.IsOpenEnded():
			note = "  (open-ended)"
		case o.Parsed.Tokens > 2:
			note = fmt.Sprintf("  (%d numbers, first two used)", o.Parsed.Tokens)
		}
		fmt.Fprintf(out, "%-30s => %s%s\n", o.Raw, o.Parsed, note)
		if showNormalized {
			fmt.Fprintf(out, "%-30s    normalized: %q\n", "", o.Normalized)
		}
	}
	return nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return lines, nil
}

func init() {
	parseCmd.Flags().Bool("normalized", false, "also print the normalized text")
	parseCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(parseCmd)
}
