package assist

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/grr-sub002/pkg/lexer"
	"github.com/google/grr-sub002/pkg/schema"
)

// SuggestionKind is what a suggestion completes to.
type SuggestionKind string

// Suggestion kinds.
const (
	KindTable   SuggestionKind = "table"
	KindColumn  SuggestionKind = "column"
	KindKeyword SuggestionKind = "keyword"
)

// Suggestion is one completion candidate.
type Suggestion struct {
	Text        string         `json:"text"`
	Kind        SuggestionKind `json:"kind"`
	Description string         `json:"description,omitempty"`
	// Table is the owning table of a column suggestion.
	Table string `json:"table,omitempty"`
	// Detail is the column type, or the platforms of a table.
	Detail string `json:"detail,omitempty"`
}

// SuggestRequest is the input to Suggest.
type SuggestRequest struct {
	Prefix    string
	Position  lexer.CursorPosition
	Qualifier string
	// Tables are the tables the query already references.
	Tables []*schema.TableSpec
	// Aliases maps lower-cased aliases to tables, for qualifier lookup.
	Aliases map[string]*schema.TableSpec
	Limit   int
}

// match classes, in ranking order.
const (
	matchPrefix = iota
	matchSubstring
)

type candidate struct {
	Suggestion
	class int
}

// Suggest returns ranked completions for the cursor described by req.
// Prefix matches rank before substring matches, then text ignoring case,
// then table name. The result is truncated to req.Limit; a Limit of zero or
// less yields an empty slice.
func Suggest(req SuggestRequest, idx *schema.Index) []Suggestion {
	if req.Limit <= 0 {
		return []Suggestion{}
	}

	var cands []candidate
	switch req.Position {
	case lexer.PositionTable:
		cands = suggestTables(req.Prefix, idx)
	case lexer.PositionColumn:
		cands = suggestColumns(req, idx)
	default:
		cands = suggestKeywords(req.Prefix)
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.class != b.class {
			return a.class < b.class
		}
		if la, lb := strings.ToLower(a.Text), strings.ToLower(b.Text); la != lb {
			return la < lb
		}
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		return a.Text < b.Text
	})

	n := min(len(cands), req.Limit)
	out := make([]Suggestion, n)
	for i := range out {
		out[i] = cands[i].Suggestion
	}
	return out
}

func suggestTables(prefix string, idx *schema.Index) []candidate {
	var cands []candidate
	prefixed := make(map[string]bool)
	for _, name := range idx.PrefixSearch(prefix) {
		prefixed[name] = true
		cands = append(cands, tableCandidate(idx, name, matchPrefix))
	}

	p := strings.ToLower(prefix)
	for _, name := range idx.SortedNames() {
		if !prefixed[name] && strings.Contains(strings.ToLower(name), p) {
			cands = append(cands, tableCandidate(idx, name, matchSubstring))
		}
	}
	return cands
}

func tableCandidate(idx *schema.Index, name string, class int) candidate {
	t, _ := idx.Table(name)
	detail := t.Platforms.String()
	if t.Evented {
		detail += " (evented)"
	}
	return candidate{
		Suggestion: Suggestion{
			Text:        t.Name,
			Kind:        KindTable,
			Description: t.Description,
			Detail:      detail,
		},
		class: class,
	}
}

func suggestColumns(req SuggestRequest, idx *schema.Index) []candidate {
	var tables []*schema.TableSpec
	if req.Qualifier != "" {
		if t, ok := req.Aliases[strings.ToLower(req.Qualifier)]; ok {
			tables = []*schema.TableSpec{t}
		} else if t, ok := idx.Table(req.Qualifier); ok {
			tables = []*schema.TableSpec{t}
		}
	}
	if tables == nil {
		tables = req.Tables
	}

	var cands []candidate
	if len(tables) > 0 {
		for _, t := range tables {
			for _, c := range t.Columns {
				if class, ok := classify(c.Name, req.Prefix); ok {
					cands = append(cands, columnCandidate(t, c, class))
				}
			}
		}
		return cands
	}

	for _, col := range idx.Columns() {
		class, ok := classify(col, req.Prefix)
		if !ok {
			continue
		}
		for _, name := range idx.TablesWithColumn(col) {
			t, _ := idx.Table(name)
			c, _ := t.Column(col)
			cands = append(cands, columnCandidate(t, c, class))
		}
	}
	return cands
}

func columnCandidate(t *schema.TableSpec, c *schema.ColumnSpec, class int) candidate {
	detail := string(c.Type)
	switch {
	case c.Required:
		detail += ", required"
	case c.Hidden:
		detail += ", hidden"
	}
	return candidate{
		Suggestion: Suggestion{
			Text:        c.Name,
			Kind:        KindColumn,
			Description: c.Description,
			Table:       t.Name,
			Detail:      detail,
		},
		class: class,
	}
}

func suggestKeywords(prefix string) []candidate {
	var cands []candidate
	for _, kw := range lexer.Keywords() {
		if class, ok := classify(kw, prefix); ok {
			cands = append(cands, candidate{
				Suggestion: Suggestion{Text: kw, Kind: KindKeyword, Detail: "keyword"},
				class:      class,
			})
		}
	}
	return cands
}

// classify reports how text matches prefix, ignoring case.
func classify(text, prefix string) (int, bool) {
	t, p := strings.ToLower(text), strings.ToLower(prefix)
	switch {
	case strings.HasPrefix(t, p):
		return matchPrefix, true
	case strings.Contains(t, p):
		return matchSubstring, true
	}
	return 0, false
}

// String renders a suggestion for logs and plain-text output.
func (s Suggestion) String() string {
	if s.Table != "" {
		return fmt.Sprintf("%s (%s: %s)", s.Text, s.Table, s.Detail)
	}
	return fmt.Sprintf("%s (%s)", s.Text, s.Kind)
}
