// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/labref/internal/catalog"
	"github.com/pdiddy/labref/internal/ingest"
	"github.com/pdiddy/labref/internal/rangeparse"
	"github.com/pdiddy/labref/internal/store"
	"github.com/pdiddy/labref/pkg/types"
)

var importCmd = &cobra.Command{
	Use:   "import <source...>",
	Short: "Import catalogs into the parameter store",
	Long: `Import reads each catalog (a file, a directory, a glob such as
"catalogs/**/*.yaml", an http(s) URL, or - for standard input), flattens it into one record per
test and age group, and inserts the records. A key that already exists is
left untouched; the first import of a (name, age group) pair wins.

Entries that cannot be read are skipped and summarized. With --strict, a
catalog with any skipped entry is rejected as a whole and the command fails.
With --dry-run, records are printed and nothing is written.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	strict, _ := cmd.Flags().GetBool("strict")

	opts, err := importOptions(cmd)
	if err != nil {
		return err
	}
	opts.DryRun, opts.Strict = dryRun, strict
	opts.Stdin = cmd.InOrStdin()

	var st *store.Store
	if !dryRun {
		st, err = openStore()
		if err != nil {
			return err
		}
		defer st.Close()
	}

	out := cmd.OutOrStdout()
	summary, err := ingest.NewImporter(st, opts, logger).Import(cmd.Context(), args, out)
	if err != nil {
		return err
	}

	if dryRun {
		for _, src := range summary.Sources {
			if len(src.Records) > 0 {
				fmt.Fprintf(out, "\n%s\n", src.Source)
				printRecords(out, src.Records)
			}
		}
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d catalog(s) failed to import", summary.Failed)
	}
	return nil
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Import catalogs as they change in a directory",
	Long: `Watch imports the catalogs already under dir, then re-imports any catalog
file that is created or written until interrupted. Hidden files and paths
matching --ignore patterns are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	debounce, _ := cmd.Flags().GetDuration("debounce")
	ignore, _ := cmd.Flags().GetStringSlice("ignore")
	noInitial, _ := cmd.Flags().GetBool("no-initial")

	opts, err := importOptions(cmd)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return ingest.NewImporter(st, opts, logger).Watch(ctx, args[0], ingest.WatchOptions{
		Debounce: debounce,
		Ignore:   ignore,
		Initial:  !noInitial,
	}, cmd.OutOrStdout())
}

// importOptions builds ingest options from config, overridden by the
// catalog flags that were set on the command line.
func importOptions(cmd *cobra.Command) (ingest.Options, error) {
	cc := cfg.Catalog
	if cmd.Flags().Changed("root-key") {
		cc.RootKey, _ = cmd.Flags().GetString("root-key")
	}
	if cmd.Flags().Changed("default-age-group") {
		cc.DefaultAgeGroup, _ = cmd.Flags().GetString("default-age-group")
	}
	if cmd.Flags().Changed("open-ended") {
		s, _ := cmd.Flags().GetString("open-ended")
		cc.OpenEnded = types.OpenEndedPolicy(s)
	}
	if !cc.OpenEnded.Valid() {
		return ingest.Options{}, fmt.Errorf("unknown open-ended policy %q (want drop or bound)", cc.OpenEnded)
	}

	extractor, err := rangeparse.New(cc.CacheSize)
	if err != nil {
		return ingest.Options{}, err
	}

	return ingest.Options{
		Catalog: catalog.Options{
			RootKey:         cc.RootKey,
			DefaultAgeGroup: cc.DefaultAgeGroup,
			OpenEnded:       cc.OpenEnded,
			Extractor:       extractor,
		},
		Fetch: cfg.Fetch,
	}, nil
}

func addCatalogFlags(cmd *cobra.Command) {
	cmd.Flags().String("root-key", catalog.DefaultRootKey, "top-level key holding the categories")
	cmd.Flags().String("default-age-group", types.DefaultAgeGroup, "age group for ranges without a per-age breakdown")
	cmd.Flags().String("open-ended", string(types.OpenEndedDrop), "one-sided ranges: drop, or bound (<N as 0..N, >N as N..inf)")
}

func init() {
	addCatalogFlags(importCmd)
	importCmd.Flags().Bool("dry-run", false, "print flattened records without writing")
	importCmd.Flags().Bool("strict", false, "reject catalogs with skipped entries")

	addCatalogFlags(watchCmd)
	watchCmd.Flags().Duration("debounce", ingest.DefaultDebounce, "wait after the last change before importing")
	watchCmd.Flags().StringSlice("ignore", nil, "doublestar patterns of paths to ignore")
	watchCmd.Flags().Bool("no-initial", false, "skip importing existing catalogs at startup")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(watchCmd)
}
