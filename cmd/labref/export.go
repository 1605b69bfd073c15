// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/labref/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the parameter store to text, YAML, or JSON",
	Long: `Export writes every stored record to a timestamped file
database_export_<YYYYMMDD_HHMMSS>.<ext> in the export directory, or to
standard output with --stdout. The text format lists one block per record;
YAML and JSON write a list of records with a null high bound for ranges
without an upper limit.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	formatName, _ := cmd.Flags().GetString("format")
	toStdout, _ := cmd.Flags().GetBool("stdout")

	format, err := store.ParseFormat(formatName)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if toStdout {
		return st.Export(cmd.Context(), cmd.OutOrStdout(), format)
	}

	path, err := st.ExportToDir(cmd.Context(), exportDir(cmd), format, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
	return nil
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every stored record after writing a backup",
	Long: `Purge writes a text export to the export directory and then deletes all
records. Nothing is deleted if the backup cannot be written. Without --yes,
purge asks for confirmation on standard input.`,
	Args: cobra.NoArgs,
	RunE: runPurge,
}

func runPurge(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	out := cmd.OutOrStdout()

	if !yes {
		fmt.Fprint(out, "Purge the entire parameter store? This cannot be undone. Type 'yes' to confirm: ")
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if strings.TrimSpace(strings.ToLower(answer)) != "yes" {
			fmt.Fprintln(out, "Purge cancelled.")
			return nil
		}
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	backup, n, err := st.PurgeWithBackup(cmd.Context(), exportDir(cmd), time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Purged %d records. Backup written to %s\n", n, backup)
	return nil
}

func exportDir(cmd *cobra.Command) string {
	if cmd.Flags().Changed("dir") {
		dir, _ := cmd.Flags().GetString("dir")
		return dir
	}
	return cfg.Export.Dir
}

func init() {
	exportCmd.Flags().String("format", string(store.FormatText), "export format: text, yaml, or json")
	exportCmd.Flags().String("dir", "", "export directory (overrides export.dir)")
	exportCmd.Flags().Bool("stdout", false, "write to standard output instead of a file")

	purgeCmd.Flags().Bool("yes", false, "skip the confirmation prompt")
	purgeCmd.Flags().String("dir", "", "backup directory (overrides export.dir)")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(purgeCmd)
}
