package dsl_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/complete/dsl"
)

func TestFileLoader_Resolve(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name string) {
		t.Helper()

		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("query Q `RETURN 1`"), 0o600))
	}

	write("shared/fixtures.scaf")
	write("db.cypher.scaf")
	write("a.cypher.scaf")
	write("a.sql.scaf")

	importer := filepath.Join(dir, "suite.scaf")
	l := dsl.NewFileLoader()

	tests := []struct {
		name       string
		importPath string
		want       string
	}{
		{name: "scaf extension added", importPath: "./shared/fixtures", want: filepath.Join(dir, "shared/fixtures.scaf")},
		{name: "explicit file", importPath: "./shared/fixtures.scaf", want: filepath.Join(dir, "shared/fixtures.scaf")},
		{name: "dialect file", importPath: "./db", want: filepath.Join(dir, "db.cypher.scaf")},
		{name: "ambiguous dialect", importPath: "./a", want: filepath.Join(dir, "a.scaf")},
		{name: "missing", importPath: "../nope", want: filepath.Join(filepath.Dir(dir), "nope.scaf")},
		{name: "absolute", importPath: filepath.Join(dir, "db.cypher.scaf"), want: filepath.Join(dir, "db.cypher.scaf")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, l.Resolve(importer, tt.importPath))
		})
	}
}

func TestFileLoader_Load(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "fixtures.scaf")
	importer := filepath.Join(dir, "suite.scaf")

	require.NoError(t, os.WriteFile(path, []byte("query A `CREATE (:A {id: $id})`"), 0o600))

	l := dsl.NewFileLoader()

	mod, err := l.Load(importer, "./fixtures")
	require.NoError(t, err)
	assert.Equal(t, path, mod.Path)
	assert.Equal(t, []string{"A"}, mod.Symbols.QueryOrder)
	assert.Equal(t, []string{"id"}, mod.Symbols.Query("A").Params)

	// Edits on disk are not seen until the module is invalidated.
	require.NoError(t, os.WriteFile(path, []byte("query B `RETURN 1 AS one`"), 0o600))

	cached, err := l.Load(importer, "./fixtures")
	require.NoError(t, err)
	assert.Same(t, mod, cached)

	l.Invalidate(path)

	reloaded, err := l.Load(importer, "./fixtures.scaf")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, reloaded.Symbols.QueryOrder)

	_, err = l.Load(importer, "./missing")
	require.ErrorIs(t, err, dsl.ErrModuleNotFound)
}

func TestLoadModule_Broken(t *testing.T) {
	t.Parallel()

	mod := dsl.LoadModule("broken.scaf", []byte("query A `RETURN 1 AS one`\nA {\n\ttest \"t\" {"))

	assert.Equal(t, "broken.scaf", mod.Path)
	assert.Equal(t, []string{"A"}, mod.Symbols.QueryOrder)
}

func TestDocument_Module(t *testing.T) {
	t.Parallel()

	doc := dsl.NewDocument("suite.scaf", header, nil)

	_, err := doc.Module("nope")
	require.ErrorIs(t, err, dsl.ErrUnknownImport)

	_, err = doc.Module("fixtures")
	require.ErrorIs(t, err, dsl.ErrModuleNotFound)
}
