package assist

import (
	"sort"
	"strings"

	"github.com/xrash/smetrics"

	"github.com/google/grr-sub002/pkg/schema"
	"github.com/google/grr-sub002/pkg/token"
)

// maxHintDistance is the largest edit distance a "did you mean" hint may have.
const maxHintDistance = 2

// UnresolvedReason says why an identifier did not resolve.
type UnresolvedReason uint8

// Reasons for unresolved identifiers.
const (
	UnknownTable UnresolvedReason = iota + 1
	UnknownColumn
	UnknownQualifier
)

func (r UnresolvedReason) String() string {
	switch r {
	case UnknownTable:
		return "unknown table"
	case UnknownColumn:
		return "unknown column"
	case UnknownQualifier:
		return "unknown qualifier"
	}
	return "unresolved"
}

// Unresolved is an identifier that names nothing in the schema.
type Unresolved struct {
	Token  token.Token
	Reason UnresolvedReason
	// Table is the table an unknown qualified column was looked up in.
	Table string
	// Hint is the closest known name, or empty.
	Hint string
}

// TableRef is one resolved table token.
type TableRef struct {
	Token token.Token
	Table *schema.TableSpec
}

// ColumnRef is one resolved column token and the referenced tables that
// expose it.
type ColumnRef struct {
	Token  token.Token
	Tables []*schema.TableSpec
}

// Ambiguous reports whether more than one referenced table has the column.
func (r ColumnRef) Ambiguous() bool {
	return len(r.Tables) > 1
}

// Resolution is the result of resolving a token stream against a schema.
type Resolution struct {
	// Tables lists each referenced table once, in order of first appearance.
	Tables []*schema.TableSpec
	// References holds every resolved table token, repeats included.
	References []TableRef
	Columns    []ColumnRef
	Unresolved []Unresolved

	// Aliases maps lower-cased table aliases to their tables.
	Aliases map[string]*schema.TableSpec
	// Derived holds lower-cased CTE and subquery names.
	Derived map[string]bool
	// Outputs holds lower-cased result column aliases.
	Outputs map[string]bool
}

// Table returns the table a qualifier names, through aliases first and then
// table names.
func (r *Resolution) Table(idx *schema.Index, qualifier string) (*schema.TableSpec, bool) {
	if t, ok := r.Aliases[strings.ToLower(qualifier)]; ok {
		return t, true
	}
	return idx.Table(qualifier)
}

// Resolve maps table and column tokens to schema entries. It never fails;
// identifiers it cannot place end up in Unresolved.
func Resolve(tokens []token.Token, idx *schema.Index) *Resolution {
	r := &resolver{
		idx: idx,
		res: &Resolution{
			Aliases: make(map[string]*schema.TableSpec),
			Derived: make(map[string]bool),
			Outputs: make(map[string]bool),
		},
		seen:    make(map[*schema.TableSpec]bool),
		unknown: make(map[string]bool),
	}

	r.declarations(tokens)
	r.tables(tokens)
	r.columns(tokens)

	sort.SliceStable(r.res.Unresolved, func(i, j int) bool {
		return r.res.Unresolved[i].Token.Start() < r.res.Unresolved[j].Token.Start()
	})
	return r.res
}

type resolver struct {
	idx  *schema.Index
	res  *Resolution
	seen map[*schema.TableSpec]bool
	// unknown holds lower-cased names of unknown tables and their aliases,
	// so columns qualified by them are not reported a second time.
	unknown map[string]bool
}

// declarations collects derived sources and output aliases, which may be
// referenced before they are declared.
func (r *resolver) declarations(tokens []token.Token) {
	for _, t := range tokens {
		if t.Role != token.RoleAlias {
			continue
		}
		name := strings.ToLower(t.Lexeme)
		switch t.Binding {
		case token.BindDerived:
			r.res.Derived[name] = true
		case token.BindOutput:
			r.res.Outputs[name] = true
		}
	}
}

func (r *resolver) tables(tokens []token.Token) {
	for _, t := range tokens {
		switch {
		case t.Role == token.RoleTable:
			name := strings.ToLower(t.Lexeme)
			if r.res.Derived[name] {
				continue
			}
			spec, ok := r.idx.Table(t.Lexeme)
			if !ok {
				r.unknown[name] = true
				r.res.Unresolved = append(r.res.Unresolved, Unresolved{
					Token:  t,
					Reason: UnknownTable,
					Hint:   closest(t.Lexeme, r.idx.SortedNames()),
				})
				continue
			}
			r.res.References = append(r.res.References, TableRef{Token: t, Table: spec})
			if !r.seen[spec] {
				r.seen[spec] = true
				r.res.Tables = append(r.res.Tables, spec)
			}

		case t.Role == token.RoleAlias && t.Binding == token.BindTable:
			alias := strings.ToLower(t.Lexeme)
			target := strings.ToLower(t.AliasOf)
			switch {
			case r.res.Derived[target]:
				r.res.Derived[alias] = true
			default:
				if spec, ok := r.idx.Table(t.AliasOf); ok {
					r.res.Aliases[alias] = spec
				} else {
					r.unknown[alias] = true
				}
			}
		}
	}
}

func (r *resolver) columns(tokens []token.Token) {
	for _, t := range tokens {
		if t.Role != token.RoleColumn {
			continue
		}
		if t.Qualifier != "" {
			r.qualified(t)
		} else {
			r.bare(t)
		}
	}
}

func (r *resolver) qualified(t token.Token) {
	q := strings.ToLower(t.Qualifier)
	if r.res.Derived[q] || r.unknown[q] {
		return
	}

	spec, ok := r.res.Table(r.idx, t.Qualifier)
	if !ok {
		r.res.Unresolved = append(r.res.Unresolved, Unresolved{
			Token:  t,
			Reason: UnknownQualifier,
			Hint:   closest(t.Qualifier, r.qualifierNames()),
		})
		return
	}

	if _, ok := spec.Column(t.Lexeme); !ok {
		r.res.Unresolved = append(r.res.Unresolved, Unresolved{
			Token:  t,
			Reason: UnknownColumn,
			Table:  spec.Name,
			Hint:   closest(t.Lexeme, columnNames(spec)),
		})
		return
	}
	r.res.Columns = append(r.res.Columns, ColumnRef{Token: t, Tables: []*schema.TableSpec{spec}})
}

func (r *resolver) bare(t token.Token) {
	var matches []*schema.TableSpec
	for _, name := range r.idx.TablesWithColumn(t.Lexeme) {
		spec, _ := r.idx.Table(name)
		if r.seen[spec] {
			matches = append(matches, spec)
		}
	}
	if len(matches) > 0 {
		r.res.Columns = append(r.res.Columns, ColumnRef{Token: t, Tables: matches})
		return
	}

	// Without a concrete source list the column may come from anywhere.
	name := strings.ToLower(t.Lexeme)
	if len(r.res.Tables) == 0 || len(r.res.Derived) > 0 || len(r.unknown) > 0 || r.res.Outputs[name] {
		return
	}

	var candidates []string
	for _, spec := range r.res.Tables {
		candidates = append(candidates, columnNames(spec)...)
	}
	r.res.Unresolved = append(r.res.Unresolved, Unresolved{
		Token:  t,
		Reason: UnknownColumn,
		Hint:   closest(t.Lexeme, candidates),
	})
}

func (r *resolver) qualifierNames() []string {
	names := make([]string, 0, len(r.res.Aliases)+len(r.res.Tables))
	for alias := range r.res.Aliases {
		names = append(names, alias)
	}
	for _, spec := range r.res.Tables {
		names = append(names, spec.Name)
	}
	return names
}

func columnNames(spec *schema.TableSpec) []string {
	names := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		names[i] = c.Name
	}
	return names
}

// closest returns the candidate nearest to name by edit distance, if any is
// within maxHintDistance and shorter than name itself. Ties go to the
// lexicographically smaller name.
func closest(name string, candidates []string) string {
	target := strings.ToLower(name)
	best, bestDist := "", maxHintDistance+1
	for _, c := range candidates {
		lc := strings.ToLower(c)
		if lc == target {
			continue
		}
		d := smetrics.WagnerFischer(target, lc, 1, 1, 2)
		if d >= len(target) {
			continue
		}
		if d < bestDist || (d == bestDist && c < best) {
			best, bestDist = c, d
		}
	}
	return best
}
