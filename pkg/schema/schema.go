// Package schema models the osquery table schema and builds the immutable
// lookup index the query assistant works from.
//
// A schema is loaded once per osquery release, either from one of the
// bundled assets or from an external file, and is never mutated afterwards.
// Switching to another release means loading a new schema and building a
// new Index.
package schema

import (
	"fmt"
	"strings"
)

// DefaultVersion is the bundled schema used when none is configured. The
// "core" asset holds the commonly queried tables of osquery 4.5.1, not the
// full published schema; point schema_path at osquery's schema JSON for that.
const DefaultVersion = "4.5.1-core"

// ColumnType is the SQL type osquery reports for a column.
type ColumnType string

// Column types used by osquery tables.
const (
	TypeText           ColumnType = "text"
	TypeInteger        ColumnType = "integer"
	TypeBigInt         ColumnType = "bigint"
	TypeUnsignedBigInt ColumnType = "unsigned_bigint"
	TypeDouble         ColumnType = "double"
)

// Valid reports whether t is one of the known column types.
func (t ColumnType) Valid() bool {
	switch t {
	case TypeText, TypeInteger, TypeBigInt, TypeUnsignedBigInt, TypeDouble:
		return true
	}
	return false
}

// ColumnSpec describes one column of an osquery table.
type ColumnSpec struct {
	Name        string     `json:"name"`
	Type        ColumnType `json:"type"`
	Required    bool       `json:"required,omitempty"`
	Hidden      bool       `json:"hidden,omitempty"`
	Index       bool       `json:"index,omitempty"` // constraints on it narrow what osquery generates
	Description string     `json:"description,omitempty"`
}

// Notes lists the column's flags for display.
func (c *ColumnSpec) Notes() []string {
	var notes []string
	if c.Required {
		notes = append(notes, "required")
	}
	if c.Index {
		notes = append(notes, "index")
	}
	if c.Hidden {
		notes = append(notes, "hidden")
	}
	return notes
}

// TableSpec describes one osquery virtual table.
type TableSpec struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
	Cacheable   bool          `json:"cacheable,omitempty"`
	Evented     bool          `json:"evented,omitempty"`
	Platforms   PlatformSet   `json:"platforms"`
	Columns     []*ColumnSpec `json:"columns"`
}

// Column returns the column with the given name, ignoring case.
func (t *TableSpec) Column(name string) (*ColumnSpec, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return nil, false
}

// RequiredColumns returns the columns osquery needs a constraint on.
func (t *TableSpec) RequiredColumns() []*ColumnSpec {
	var out []*ColumnSpec
	for _, c := range t.Columns {
		if c.Required {
			out = append(out, c)
		}
	}
	return out
}

// Schema is a decoded schema asset for one osquery release.
type Schema struct {
	Version string
	Tables  []*TableSpec
}

// Validate checks the per-table invariants of the schema.
// Duplicate table names are reported by Build, not here.
func (s *Schema) Validate() error {
	for i, t := range s.Tables {
		if t == nil {
			return &InvalidTableError{Table: fmt.Sprintf("#%d", i), Reason: "nil table"}
		}
		if err := validateTable(t); err != nil {
			return err
		}
	}
	return nil
}

func validateTable(t *TableSpec) error {
	if strings.TrimSpace(t.Name) == "" {
		return &InvalidTableError{Table: t.Name, Reason: "empty table name"}
	}
	if t.Platforms.Empty() {
		return &InvalidTableError{Table: t.Name, Reason: "no platforms"}
	}
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		if c == nil || c.Name == "" {
			return &InvalidTableError{Table: t.Name, Reason: "column without a name"}
		}
		if !c.Type.Valid() {
			return &InvalidTableError{Table: t.Name, Reason: fmt.Sprintf("column %q has unknown type %q", c.Name, c.Type)}
		}
		key := strings.ToLower(c.Name)
		if _, dup := seen[key]; dup {
			return &InvalidTableError{Table: t.Name, Reason: fmt.Sprintf("duplicate column %q", c.Name)}
		}
		seen[key] = struct{}{}
	}
	return nil
}
