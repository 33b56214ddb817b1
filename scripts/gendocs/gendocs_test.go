package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/grr-sub002/pkg/schema"
)

func TestMarkdownWriter_Table(t *testing.T) {
	w := NewMarkdownWriter()
	w.Table([]string{"A", "B"}, [][]string{{"x|y", "two\nlines"}})
	assert.Equal(t, "| A | B |\n| --- | --- |\n| x\\|y | two lines |\n\n", string(w.Bytes()))
}

func TestExampleQuery(t *testing.T) {
	idx, err := schema.Open(schema.DefaultVersion, "")
	require.NoError(t, err)

	file, ok := idx.Table("file")
	require.True(t, ok)
	assert.Contains(t, exampleQuery(file), "FROM file WHERE ")

	uptime, ok := idx.Table("uptime")
	require.True(t, ok)
	assert.NotContains(t, exampleQuery(uptime), "WHERE")
}

func readDoc(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestGenerateTableDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateTableDocs(dir, schema.DefaultVersion, ""))

	index := readDoc(t, filepath.Join(dir, "index.md"))
	assert.Contains(t, index, generatedHeader)
	assert.Contains(t, index, "## windows")
	assert.Contains(t, index, "[`wmi_bios_info`](/tables/wmi_bios_info)")

	page := readDoc(t, filepath.Join(dir, "processes.md"))
	assert.Contains(t, page, "# processes")
	assert.Contains(t, page, "| `pid` |")
}

func TestGenerateReferenceDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateReferenceDocs(dir))

	cfg := readDoc(t, filepath.Join(dir, "configuration.md"))
	assert.Contains(t, cfg, "`OSQHELPER_SERVE_ADDR`")
	assert.Contains(t, cfg, "`serve.addr`")

	diags := readDoc(t, filepath.Join(dir, "diagnostics.md"))
	assert.Contains(t, diags, "`OSQ001`")
	assert.Contains(t, diags, "`OSQ030`")
}

func TestGenerateCLIDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateCLIDocs(dir))

	index := readDoc(t, filepath.Join(dir, "index.md"))
	assert.Contains(t, index, "[`check`](/cli/check)")
	assert.Contains(t, index, "`--platform`")

	check := readDoc(t, filepath.Join(dir, "check.md"))
	assert.Contains(t, check, "osqhelper check [query]")
	assert.Contains(t, check, "`--fail-on`")
}

func TestTableSource(t *testing.T) {
	t.Run("explicit version", func(t *testing.T) {
		version, path, err := tableSource(t.TempDir(), "4.5.1-core")
		require.NoError(t, err)
		assert.Equal(t, "4.5.1-core", version)
		assert.Empty(t, path)
	})

	t.Run("defaults without a config file", func(t *testing.T) {
		version, path, err := tableSource(t.TempDir(), "")
		require.NoError(t, err)
		assert.Equal(t, schema.DefaultVersion, version)
		assert.Empty(t, path)
	})

	t.Run("project config", func(t *testing.T) {
		root := t.TempDir()
		cfg := "schema_version: \"5.0.0\"\nschema_path: schemas/osquery.json\n"
		require.NoError(t, os.WriteFile(filepath.Join(root, "osqhelper.yaml"), []byte(cfg), 0o600))

		version, path, err := tableSource(root, "")
		require.NoError(t, err)
		assert.Equal(t, "5.0.0", version)
		assert.Equal(t, filepath.Join(root, "schemas", "osquery.json"), path)
	})
}
