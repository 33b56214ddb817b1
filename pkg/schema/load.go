package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a schema asset.
type Format string

// Supported schema asset formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("unsupported schema file extension %q", filepath.Ext(path))
}

// rawColumn and rawTable mirror osquery's published schema layout.
type rawColumn struct {
	Name        string `json:"name" yaml:"name" toml:"name"`
	Description string `json:"description" yaml:"description" toml:"description"`
	Type        string `json:"type" yaml:"type" toml:"type"`
	Hidden      bool   `json:"hidden" yaml:"hidden" toml:"hidden"`
	Required    bool   `json:"required" yaml:"required" toml:"required"`
	Index       bool   `json:"index" yaml:"index" toml:"index"`
}

type rawTable struct {
	Name        string      `json:"name" yaml:"name" toml:"name"`
	Description string      `json:"description" yaml:"description" toml:"description"`
	URL         string      `json:"url" yaml:"url" toml:"url"`
	Platforms   []string    `json:"platforms" yaml:"platforms" toml:"platforms"`
	Evented     bool        `json:"evented" yaml:"evented" toml:"evented"`
	Cacheable   bool        `json:"cacheable" yaml:"cacheable" toml:"cacheable"`
	Columns     []rawColumn `json:"columns" yaml:"columns" toml:"columns"`
}

type rawDocument struct {
	Version string     `json:"version" yaml:"version" toml:"version"`
	Tables  []rawTable `json:"tables" yaml:"tables" toml:"tables"`
}

// Load decodes and validates a schema asset.
// JSON and YAML accept either osquery's bare table list or a document with
// version and tables keys; TOML only supports the document form.
func Load(r io.Reader, format Format, source string) (*Schema, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}

	var doc rawDocument
	switch format {
	case FormatJSON:
		err = decodeJSON(data, &doc)
	case FormatYAML:
		err = decodeYAML(data, &doc)
	case FormatTOML:
		err = toml.Unmarshal(data, &doc)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}

	s, err := doc.toSchema()
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	if err := s.Validate(); err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	return s, nil
}

// LoadFile reads a schema asset from disk, picking the format from the extension.
// versionHint is used when the file does not carry a version itself.
func LoadFile(path, versionHint string) (*Schema, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	f, err := os.Open(path) //nolint:gosec // G304: path comes from user configuration
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	s, err := Load(f, format, path)
	if err != nil {
		return nil, err
	}
	if s.Version == "" {
		s.Version = versionHint
	}
	return s, nil
}

func decodeJSON(data []byte, doc *rawDocument) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &doc.Tables)
	}
	return json.Unmarshal(trimmed, doc)
}

func decodeYAML(data []byte, doc *rawDocument) error {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return err
	}
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 && root.Content[0].Kind == yaml.SequenceNode {
		return root.Content[0].Decode(&doc.Tables)
	}
	return root.Decode(doc)
}

func (d *rawDocument) toSchema() (*Schema, error) {
	s := &Schema{Version: d.Version, Tables: make([]*TableSpec, 0, len(d.Tables))}
	for _, rt := range d.Tables {
		platforms, err := ParsePlatformSet(rt.Platforms)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", rt.Name, err)
		}
		t := &TableSpec{
			Name:        rt.Name,
			Description: rt.Description,
			URL:         rt.URL,
			Cacheable:   rt.Cacheable,
			Evented:     rt.Evented,
			Platforms:   platforms,
			Columns:     make([]*ColumnSpec, 0, len(rt.Columns)),
		}
		for _, rc := range rt.Columns {
			t.Columns = append(t.Columns, &ColumnSpec{
				Name:        rc.Name,
				Type:        ColumnType(strings.ToLower(rc.Type)),
				Required:    rc.Required,
				Hidden:      rc.Hidden,
				Index:       rc.Index,
				Description: rc.Description,
			})
		}
		s.Tables = append(s.Tables, t)
	}
	return s, nil
}
