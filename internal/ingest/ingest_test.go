// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/labref/internal/catalog"
	"github.com/pdiddy/labref/internal/store"
	"github.com/pdiddy/labref/pkg/types"
)

const hematology = `{"NICU_Tests": {"Hematology": [
	{"Test": "Hemoglobin", "ReferenceRange": {"Term": "14.5-22.5 g/dL", "Preterm": "13.5-20.5 g/dL"}},
	{"Test": "Platelets", "ReferenceRange": "150,000-450,000 /mm³"},
	{"Test": "Retic"}
]}}`

const hematologyRevised = `NICU_Tests:
  Hematology:
    - Test: Hemoglobin
      ReferenceRange:
        Term: 10-20 g/dL
        Toddler: 11-14 g/dL
`

// --- test helpers ---

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(types.StoreConfig{Path: filepath.Join(t.TempDir(), "labref.db")}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// --- tests ---

func TestResolveSources(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", hematology)
	b := writeFile(t, dir, "nested/b.yaml", hematologyRevised)
	writeFile(t, dir, "nested/readme.txt", "not a catalog")

	t.Run("directory expands recursively", func(t *testing.T) {
		got, err := ResolveSources([]string{dir})
		require.NoError(t, err)
		assert.Equal(t, []string{a, b}, got)
	})

	t.Run("glob", func(t *testing.T) {
		got, err := ResolveSources([]string{filepath.Join(dir, "**", "*.yaml")})
		require.NoError(t, err)
		assert.Equal(t, []string{b}, got)
	})

	t.Run("duplicates and urls", func(t *testing.T) {
		got, err := ResolveSources([]string{a, "https://example.org/c.json", a})
		require.NoError(t, err)
		assert.Equal(t, []string{a, "https://example.org/c.json"}, got)
	})

	t.Run("stdin", func(t *testing.T) {
		got, err := ResolveSources([]string{StdinSource, a})
		require.NoError(t, err)
		assert.Equal(t, []string{StdinSource, a}, got)
	})

	t.Run("glob without matches", func(t *testing.T) {
		_, err := ResolveSources([]string{filepath.Join(dir, "*.yml")})
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ResolveSources([]string{filepath.Join(dir, "nope.json")})
		assert.Error(t, err)
	})
}

func TestImportFirstWriteWins(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "1-hematology.json", hematology)
	second := writeFile(t, dir, "2-revised.yaml", hematologyRevised)
	st := testStore(t)
	im := NewImporter(st, Options{}, quietLogger())

	var out bytes.Buffer
	summary, err := im.Import(context.Background(), []string{first, second}, &out)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total())
	assert.Equal(t, 4, summary.Inserted)
	assert.Equal(t, 1, summary.Existing)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Failed)
	assert.Contains(t, out.String(), "Import summary: 4 inserted, 1 existing, 1 skipped, 0 failed (sources: 2)")

	hb, err := st.Get(context.Background(), types.Key{Name: "Hemoglobin", AgeGroup: "Term"})
	require.NoError(t, err)
	assert.Equal(t, 14.5, hb.Low, "the first import of a key wins")

	runs, err := st.Runs(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.NotEmpty(t, summary.Sources[0].RunID)
}

func TestImportDryRunWritesNothing(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.json", hematology)
	st := testStore(t)
	im := NewImporter(st, Options{DryRun: true}, quietLogger())

	summary, err := im.Import(context.Background(), []string{path}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Records)
	assert.Zero(t, summary.Inserted)

	n, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	runs, err := st.Runs(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestImportDryRunWithoutStore(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.json", hematology)

	summary, err := NewImporter(nil, Options{DryRun: true}, quietLogger()).
		Import(context.Background(), []string{path}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Records)

	_, err = NewImporter(nil, Options{}, quietLogger()).
		Import(context.Background(), []string{path}, io.Discard)
	assert.Error(t, err)
}

func TestImportStrictRejectsSkippedEntries(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.json", hematology)
	st := testStore(t)
	im := NewImporter(st, Options{Strict: true}, quietLogger())

	summary, err := im.Import(context.Background(), []string{path}, io.Discard)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)

	var entryErr *catalog.EntryError
	assert.True(t, errors.As(summary.Sources[0].Err, &entryErr))

	n, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	runs, err := st.Runs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunFailed, runs[0].Status)
}

func TestImportFromStdin(t *testing.T) {
	st := testStore(t)
	opts := Options{Stdin: strings.NewReader(hematology)}

	summary, err := NewImporter(st, opts, quietLogger()).
		Import(context.Background(), []string{StdinSource}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Inserted)
	assert.Zero(t, summary.Failed)

	summary, err = NewImporter(st, Options{}, quietLogger()).
		Import(context.Background(), []string{StdinSource}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed, "no reader configured")
}

func TestImportStructureErrorFailsSource(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.json", `{"Tests": {}}`)
	good := writeFile(t, dir, "good.json", hematology)
	st := testStore(t)

	summary, err := NewImporter(st, Options{}, quietLogger()).
		Import(context.Background(), []string{bad, good}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	var se *catalog.StructureError
	assert.True(t, errors.As(summary.Sources[0].Err, &se))
	assert.Equal(t, 3, summary.Inserted)
}

func TestImportFromURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(hematology))
	}))
	defer ts.Close()

	st := testStore(t)
	im := NewImporter(st, Options{Fetch: types.FetchConfig{Timeout: 5 * time.Second}}, quietLogger())

	summary, err := im.Import(context.Background(), []string{ts.URL + "/nicu.json"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Inserted)
}

func TestImportWarnsOnUnknownAgeGroup(t *testing.T) {
	path := writeFile(t, t.TempDir(), "revised.yaml", hematologyRevised)
	log, hook := test.NewNullLogger()

	_, err := NewImporter(testStore(t), Options{}, log).
		Import(context.Background(), []string{path}, io.Discard)
	require.NoError(t, err)

	var warned []string
	for _, e := range hook.AllEntries() {
		if e.Message == "age group is not in the known list" {
			warned = append(warned, e.Data["age_group"].(string))
		}
	}
	assert.Equal(t, []string{"Toddler"}, warned)
}

func TestWatchImportsNewCatalogs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "existing.json", hematology)
	st := testStore(t)
	im := NewImporter(st, Options{}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- im.Watch(ctx, dir, WatchOptions{Debounce: 20 * time.Millisecond, Initial: true}, io.Discard)
	}()

	count := func() int {
		n, err := st.Count(context.Background())
		require.NoError(t, err)
		return n
	}
	require.Eventually(t, func() bool { return count() == 3 }, 5*time.Second, 20*time.Millisecond)

	writeFile(t, dir, "later.yaml", hematologyRevised)
	require.Eventually(t, func() bool { return count() == 4 }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestIgnored(t *testing.T) {
	opts := WatchOptions{Ignore: []string{"**/drafts/**"}}
	assert.True(t, ignored("data/.a.json.swp", opts))
	assert.True(t, ignored("data/drafts/a.json", opts))
	assert.False(t, ignored("data/final/a.json", opts))
}
