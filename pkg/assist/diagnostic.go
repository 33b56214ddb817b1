package assist

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/grr-sub002/pkg/lexer"
	"github.com/google/grr-sub002/pkg/schema"
	"github.com/google/grr-sub002/pkg/token"
)

// Severity follows the LSP DiagnosticSeverity numbering.
type Severity int

// Severities.
const (
	SeverityError   Severity = 1
	SeverityWarning Severity = 2
	SeverityInfo    Severity = 3
	SeverityHint    Severity = 4
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityHint:
		return "hint"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Code identifies a diagnostic kind.
type Code string

// Diagnostic codes.
const (
	CodeUnknownTable       Code = "OSQ001"
	CodeUnknownColumn      Code = "OSQ002"
	CodeUnknownQualifier   Code = "OSQ003"
	CodePlatform           Code = "OSQ010"
	CodeNoCommonPlatform   Code = "OSQ011"
	CodeRequiredConstraint Code = "OSQ020"
	CodeEvented            Code = "OSQ021"
	CodeUnrecognized       Code = "OSQ030"
)

// CodeInfo documents one diagnostic code.
type CodeInfo struct {
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Summary  string   `json:"summary"`
}

// Catalog lists every diagnostic code in code order.
func Catalog() []CodeInfo {
	return []CodeInfo{
		{CodeUnknownTable, SeverityWarning, "The table is not in the schema. A close match is offered as a fix."},
		{CodeUnknownColumn, SeverityWarning, "No referenced table has the column. A close match is offered as a fix."},
		{CodeUnknownQualifier, SeverityWarning, "The qualifier names neither a table nor an alias of the query."},
		{CodePlatform, SeverityWarning, "The table does not run on the target platform."},
		{CodeNoCommonPlatform, SeverityWarning, "The referenced tables share no platform, so the query runs nowhere."},
		{CodeRequiredConstraint, SeverityInfo, "The table returns no rows unless one of its required columns is constrained in WHERE."},
		{CodeEvented, SeverityHint, "The table is evented and is empty unless osquery runs with events enabled."},
		{CodeUnrecognized, SeverityInfo, "The input could not be tokenized past this point; nothing after it was analyzed."},
	}
}

// Diagnostic is an advisory finding about the query. None of them stop the
// query from being sent.
type Diagnostic struct {
	Code     Code       `json:"code"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Span     token.Span `json:"span"`
	Table    string     `json:"table,omitempty"`
	Column   string     `json:"column,omitempty"`
	// Hint is the suggested replacement for the identifier at Span, if any.
	Hint string `json:"hint,omitempty"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s %s: %s", d.Span.Start.Line, d.Span.Start.Column, d.Severity, d.Code, d.Message)
}

// diagnose turns the outcome of one analysis into sorted diagnostics.
func diagnose(text string, lexed *lexer.Result, res *Resolution, compat Compatibility) []Diagnostic {
	var diags []Diagnostic

	for _, u := range res.Unresolved {
		diags = append(diags, unresolvedDiagnostic(u))
	}

	first := firstReferences(res)
	for _, t := range compat.Incompatible {
		diags = append(diags, Diagnostic{
			Code:     CodePlatform,
			Severity: SeverityWarning,
			Message: fmt.Sprintf("table %q is not available on %s (available on: %s)",
				t.Name, compat.Target, t.Platforms),
			Span:  first[t].Span,
			Table: t.Name,
		})
	}

	if len(res.Tables) > 1 && compat.Common.Empty() {
		refs := res.References
		diags = append(diags, Diagnostic{
			Code:     CodeNoCommonPlatform,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("referenced tables share no platform: %s", tablePlatforms(res.Tables)),
			Span:     token.Span{Start: refs[0].Token.Span.Start, End: refs[len(refs)-1].Token.Span.End},
		})
	}

	constrained := constrainedColumns(lexed.Tokens, res)
	for _, t := range res.Tables {
		required := t.RequiredColumns()
		if len(required) == 0 || anyConstrained(constrained, t, required) {
			continue
		}
		names := make([]string, len(required))
		for i, c := range required {
			names[i] = c.Name
		}
		diags = append(diags, Diagnostic{
			Code:     CodeRequiredConstraint,
			Severity: SeverityInfo,
			Message: fmt.Sprintf("table %q needs a WHERE constraint on %s to return rows",
				t.Name, strings.Join(names, " or ")),
			Span:  first[t].Span,
			Table: t.Name,
		})
	}

	for _, t := range res.Tables {
		if !t.Evented {
			continue
		}
		diags = append(diags, Diagnostic{
			Code:     CodeEvented,
			Severity: SeverityHint,
			Message:  fmt.Sprintf("table %q is evented and only returns rows when osquery runs with events enabled", t.Name),
			Span:     first[t].Span,
			Table:    t.Name,
		})
	}

	if r := lexed.Remainder; r != nil {
		diags = append(diags, Diagnostic{
			Code:     CodeUnrecognized,
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("analysis stopped here: %s", r.Reason),
			Span:     token.Span{Start: r.Start, End: endPosition(text)},
		})
	}

	sort.SliceStable(diags, func(i, j int) bool {
		if a, b := diags[i].Span.Start.Offset, diags[j].Span.Start.Offset; a != b {
			return a < b
		}
		return diags[i].Code < diags[j].Code
	})
	return diags
}

func unresolvedDiagnostic(u Unresolved) Diagnostic {
	d := Diagnostic{Severity: SeverityWarning, Span: u.Token.Span}
	switch u.Reason {
	case UnknownTable:
		d.Code = CodeUnknownTable
		d.Table = u.Token.Lexeme
		d.Message = fmt.Sprintf("unknown table %q", u.Token.Lexeme)
	case UnknownQualifier:
		d.Code = CodeUnknownQualifier
		d.Message = fmt.Sprintf("unknown table or alias %q", u.Token.Qualifier)
	default:
		d.Code = CodeUnknownColumn
		d.Column = u.Token.Lexeme
		d.Table = u.Table
		if u.Table != "" {
			d.Message = fmt.Sprintf("table %q has no column %q", u.Table, u.Token.Lexeme)
		} else {
			d.Message = fmt.Sprintf("no referenced table has a column %q", u.Token.Lexeme)
		}
	}
	if u.Hint != "" {
		d.Hint = u.Hint
		d.Message += fmt.Sprintf("; did you mean %q?", u.Hint)
	}
	return d
}

func firstReferences(res *Resolution) map[*schema.TableSpec]token.Token {
	first := make(map[*schema.TableSpec]token.Token, len(res.Tables))
	for _, ref := range res.References {
		if _, ok := first[ref.Table]; !ok {
			first[ref.Table] = ref.Token
		}
	}
	return first
}

func tablePlatforms(tables []*schema.TableSpec) string {
	parts := make([]string, len(tables))
	for i, t := range tables {
		parts[i] = fmt.Sprintf("%s [%s]", t.Name, t.Platforms)
	}
	return strings.Join(parts, ", ")
}

type tableColumn struct {
	table  *schema.TableSpec
	column string
}

// constrainedColumns finds the column references that follow WHERE, ON or
// USING, before the next clause keyword.
func constrainedColumns(tokens []token.Token, res *Resolution) map[tableColumn]bool {
	inConstraint := make(map[int]bool)
	active := false
	for _, t := range tokens {
		if t.Kind != token.Keyword {
			if active && t.Role == token.RoleColumn {
				inConstraint[t.Start()] = true
			}
			continue
		}
		switch strings.ToUpper(t.Lexeme) {
		case "WHERE", "ON", "USING":
			active = true
		case "SELECT", "FROM", "JOIN", "GROUP", "ORDER", "LIMIT", "HAVING", "UNION", "EXCEPT", "INTERSECT", "WINDOW":
			active = false
		}
	}

	out := make(map[tableColumn]bool)
	for _, ref := range res.Columns {
		if !inConstraint[ref.Token.Start()] {
			continue
		}
		for _, t := range ref.Tables {
			out[tableColumn{t, strings.ToLower(ref.Token.Lexeme)}] = true
		}
	}
	return out
}

func anyConstrained(constrained map[tableColumn]bool, t *schema.TableSpec, required []*schema.ColumnSpec) bool {
	for _, c := range required {
		if constrained[tableColumn{t, strings.ToLower(c.Name)}] {
			return true
		}
	}
	return false
}

// endPosition returns the position just past the end of text.
func endPosition(text string) token.Position {
	line := 1 + strings.Count(text, "\n")
	col := len(text) - strings.LastIndexByte(text, '\n')
	return token.Position{Line: line, Column: col, Offset: len(text)}
}
