// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/pdiddy/labref/internal/httputil"
	"github.com/pdiddy/labref/pkg/types"
)

// StdinSource names the catalog read from Options.Stdin.
const StdinSource = "-"

// catalogPattern matches catalog files below a directory.
const catalogPattern = "**/*.{json,yaml,yml}"

// IsURL reports whether src names an HTTP(S) catalog.
func IsURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// IsCatalogFile reports whether path has a catalog extension.
func IsCatalogFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// ResolveSources expands args into an ordered, de-duplicated source list.
// URLs pass through. Glob patterns (doublestar syntax) and directories
// expand to the catalog files they contain, sorted. StdinSource passes
// through. Plain paths must exist.
func ResolveSources(args []string) ([]string, error) {
	var (
		out  []string
		seen = make(map[string]bool)
	)
	add := func(src string) {
		if !seen[src] {
			seen[src] = true
			out = append(out, src)
		}
	}

	for _, arg := range args {
		switch {
		case IsURL(arg), arg == StdinSource:
			add(arg)

		case hasGlobMeta(arg):
			matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("expanding %s: %w", arg, err)
			}
			matches = filterCatalogs(matches)
			if len(matches) == 0 {
				return nil, fmt.Errorf("no catalogs match %s", arg)
			}
			for _, m := range matches {
				add(m)
			}

		default:
			info, err := os.Stat(arg)
			if err != nil {
				return nil, fmt.Errorf("catalog source: %w", err)
			}
			if !info.IsDir() {
				add(arg)
				continue
			}
			files, err := catalogsInDir(arg)
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				add(f)
			}
		}
	}
	return out, nil
}

func catalogsInDir(dir string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), catalogPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		files = append(files, filepath.Join(dir, filepath.FromSlash(m)))
	}
	sort.Strings(files)
	return files, nil
}

func filterCatalogs(paths []string) []string {
	var out []string
	for _, p := range paths {
		if IsCatalogFile(p) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

// Load reads a catalog from a file or URL.
func Load(ctx context.Context, src string, cfg types.FetchConfig) ([]byte, error) {
	if IsURL(src) {
		return httputil.Fetch(ctx, src, cfg)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return data, nil
}
