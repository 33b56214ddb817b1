package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Index is the immutable lookup structure over one schema version.
// It is safe for concurrent use; nothing mutates it after Build returns.
type Index struct {
	version     string
	byName      map[string]*TableSpec // lower-cased table name
	byColumn    map[string][]string   // lower-cased column name -> sorted table names
	sortedNames []string              // table names, ascending by lower-cased name
	sortedKeys  []string              // lower-cased sortedNames, for binary search
	columns     []string              // distinct lower-cased column names
}

// Build derives an Index from a table list.
// It fails with *DuplicateTableError if two tables share a name, ignoring
// case, and with *InvalidTableError for a nil table or column entry.
func Build(version string, tables []*TableSpec) (*Index, error) {
	idx := &Index{
		version:  version,
		byName:   make(map[string]*TableSpec, len(tables)),
		byColumn: make(map[string][]string),
	}

	for i, t := range tables {
		if t == nil {
			return nil, &InvalidTableError{Reason: fmt.Sprintf("nil entry at position %d", i)}
		}
		key := strings.ToLower(t.Name)
		if _, dup := idx.byName[key]; dup {
			return nil, &DuplicateTableError{Name: t.Name}
		}
		idx.byName[key] = t

		for j, c := range t.Columns {
			if c == nil {
				return nil, &InvalidTableError{Table: t.Name, Reason: fmt.Sprintf("nil column at position %d", j)}
			}
			ck := strings.ToLower(c.Name)
			idx.byColumn[ck] = append(idx.byColumn[ck], t.Name)
		}
	}

	idx.sortedKeys = make([]string, 0, len(idx.byName))
	for key := range idx.byName {
		idx.sortedKeys = append(idx.sortedKeys, key)
	}
	sort.Strings(idx.sortedKeys)

	idx.sortedNames = make([]string, len(idx.sortedKeys))
	for i, key := range idx.sortedKeys {
		idx.sortedNames[i] = idx.byName[key].Name
	}

	idx.columns = make([]string, 0, len(idx.byColumn))
	for ck, names := range idx.byColumn {
		sort.Slice(names, func(i, j int) bool {
			return strings.ToLower(names[i]) < strings.ToLower(names[j])
		})
		idx.columns = append(idx.columns, ck)
	}
	sort.Strings(idx.columns)

	return idx, nil
}

// Version returns the osquery release the index was built from.
func (idx *Index) Version() string {
	return idx.version
}

// Len returns the number of tables.
func (idx *Index) Len() int {
	return len(idx.sortedNames)
}

// Table looks a table up by name, ignoring case.
func (idx *Index) Table(name string) (*TableSpec, bool) {
	t, ok := idx.byName[strings.ToLower(name)]
	return t, ok
}

// TablesWithColumn returns the names of all tables exposing a column, sorted.
// The result is a copy and may be modified by the caller.
func (idx *Index) TablesWithColumn(column string) []string {
	names := idx.byColumn[strings.ToLower(column)]
	if len(names) == 0 {
		return nil
	}
	return append([]string(nil), names...)
}

// SortedNames returns every table name in ascending case-insensitive order.
func (idx *Index) SortedNames() []string {
	return append([]string(nil), idx.sortedNames...)
}

// Tables returns every table in SortedNames order.
func (idx *Index) Tables() []*TableSpec {
	out := make([]*TableSpec, len(idx.sortedKeys))
	for i, key := range idx.sortedKeys {
		out[i] = idx.byName[key]
	}
	return out
}

// Columns returns every distinct lower-cased column name, sorted.
func (idx *Index) Columns() []string {
	return append([]string(nil), idx.columns...)
}

// PrefixSearch returns the table names starting with prefix, ignoring case,
// in SortedNames order. An empty prefix matches every table.
func (idx *Index) PrefixSearch(prefix string) []string {
	p := strings.ToLower(prefix)
	start := sort.SearchStrings(idx.sortedKeys, p)

	var out []string
	for i := start; i < len(idx.sortedKeys); i++ {
		if !strings.HasPrefix(idx.sortedKeys[i], p) {
			break
		}
		out = append(out, idx.sortedNames[i])
	}
	return out
}
