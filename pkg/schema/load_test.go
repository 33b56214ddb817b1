package schema

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonDocument = `{
  "version": "5.0.0",
  "tables": [
    {
      "name": "processes",
      "platforms": ["darwin", "linux", "windows", "freebsd"],
      "columns": [
        {"name": "pid", "type": "bigint", "index": true},
        {"name": "name", "type": "TEXT"}
      ]
    }
  ]
}`

const yamlList = `
- name: curl
  description: Perform an http request and return stats about it.
  platforms: [darwin, linux]
  columns:
    - name: url
      type: text
      required: true
    - name: response_code
      type: integer
`

const tomlDocument = `
version = "5.1.0"

[[tables]]
name = "wmi_bios_info"
platforms = ["windows"]

  [[tables.columns]]
  name = "name"
  type = "text"

  [[tables.columns]]
  name = "value"
  type = "text"
`

func TestLoad_JSONDocument(t *testing.T) {
	s, err := Load(strings.NewReader(jsonDocument), FormatJSON, "inline")
	require.NoError(t, err)

	assert.Equal(t, "5.0.0", s.Version)
	require.Len(t, s.Tables, 1)
	assert.Equal(t, AllPlatforms, s.Tables[0].Platforms)
	assert.Equal(t, TypeText, s.Tables[0].Columns[1].Type, "types are lower-cased")
	assert.True(t, s.Tables[0].Columns[0].Index)
	assert.False(t, s.Tables[0].Columns[1].Index)
}

func TestLoad_YAMLList(t *testing.T) {
	s, err := Load(strings.NewReader(yamlList), FormatYAML, "inline")
	require.NoError(t, err)

	assert.Empty(t, s.Version)
	require.Len(t, s.Tables, 1)

	curl := s.Tables[0]
	assert.Equal(t, "curl", curl.Name)
	assert.Equal(t, NewPlatformSet(Darwin, Linux), curl.Platforms)
	require.Len(t, curl.RequiredColumns(), 1)
	assert.Equal(t, "url", curl.RequiredColumns()[0].Name)
}

func TestLoad_TOMLDocument(t *testing.T) {
	s, err := Load(strings.NewReader(tomlDocument), FormatTOML, "inline")
	require.NoError(t, err)

	assert.Equal(t, "5.1.0", s.Version)
	require.Len(t, s.Tables, 1)
	assert.Equal(t, "wmi_bios_info", s.Tables[0].Name)
	assert.Len(t, s.Tables[0].Columns, 2)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "malformed json",
			input:   `[{"name": `,
			wantErr: "load schema inline",
		},
		{
			name:    "unknown platform",
			input:   `[{"name": "t", "platforms": ["plan9"], "columns": []}]`,
			wantErr: "unknown platform",
		},
		{
			name:    "no platforms",
			input:   `[{"name": "t", "platforms": [], "columns": []}]`,
			wantErr: "no platforms",
		},
		{
			name:    "unknown column type",
			input:   `[{"name": "t", "platforms": ["linux"], "columns": [{"name": "c", "type": "blob"}]}]`,
			wantErr: "unknown type",
		},
		{
			name:    "duplicate column",
			input:   `[{"name": "t", "platforms": ["linux"], "columns": [{"name": "c", "type": "text"}, {"name": "C", "type": "text"}]}]`,
			wantErr: "duplicate column",
		},
		{
			name:    "empty table name",
			input:   `[{"name": " ", "platforms": ["linux"], "columns": []}]`,
			wantErr: "empty table name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input), FormatJSON, "inline")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			var le *LoadError
			assert.True(t, errors.As(err, &le))
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "schema.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlList), 0o600))

	s, err := LoadFile(yamlPath, "9.9.9")
	require.NoError(t, err)
	assert.Equal(t, "9.9.9", s.Version, "hint used when the file has no version")

	jsonPath := filepath.Join(dir, "schema.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(jsonDocument), 0o600))

	idx, err := Open("ignored", jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "5.0.0", idx.Version())

	_, err = LoadFile(filepath.Join(dir, "schema.csv"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported schema file extension")

	_, err = LoadFile(filepath.Join(dir, "missing.json"), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
