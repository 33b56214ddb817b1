// Package token defines the tokens the query tokenizer produces for osquery
// SQL fragments.
//
// A token carries two classifications. Kind is lexical (what the characters
// are) and Role is positional (what an identifier names where it appears).
// Roles come from a handful of local rules, not from a SQL grammar.
package token

import "strings"

// Kind is the lexical class of a token.
type Kind uint8

// Token kinds.
const (
	Identifier Kind = iota
	Keyword
	Punctuation
	Literal
)

var kindNames = [...]string{
	Identifier:  "identifier",
	Keyword:     "keyword",
	Punctuation: "punctuation",
	Literal:     "literal",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(?)"
}

// Role is the position role of an identifier.
type Role uint8

// Position roles. Only identifiers get a role other than RoleNone.
const (
	RoleNone Role = iota
	RoleTable
	RoleColumn
	RoleAlias
	RoleQualifier
	RoleFunction
)

var roleNames = [...]string{
	RoleNone:      "none",
	RoleTable:     "table",
	RoleColumn:    "column",
	RoleAlias:     "alias",
	RoleQualifier: "qualifier",
	RoleFunction:  "function",
}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return "role(?)"
}

// Binding says what an alias token names.
type Binding uint8

// Alias bindings.
const (
	BindNone    Binding = iota
	BindTable           // FROM processes p
	BindDerived         // WITH x AS (...) or FROM (SELECT ...) x
	BindOutput          // SELECT count(*) AS n
)

// Token is one lexical unit of a query fragment.
type Token struct {
	Kind Kind
	Role Role

	// Lexeme is the token text. Quoted identifiers are unquoted and string
	// literals are unescaped.
	Lexeme string
	Quoted bool

	// Qualifier is set on qualified columns: "p" for p.pid.
	Qualifier string

	// Binding and AliasOf describe alias tokens. AliasOf is the table
	// lexeme for BindTable.
	Binding Binding
	AliasOf string

	Span Span
}

// IsWord reports whether the token is an identifier or keyword.
func (t Token) IsWord() bool {
	return t.Kind == Identifier || t.Kind == Keyword
}

// IsKeyword reports whether the token is the given keyword, ignoring case.
func (t Token) IsKeyword(kw string) bool {
	return t.Kind == Keyword && strings.EqualFold(t.Lexeme, kw)
}

// IsPunct reports whether the token is the given punctuation.
func (t Token) IsPunct(p string) bool {
	return t.Kind == Punctuation && t.Lexeme == p
}

// Start returns the byte offset of the first character.
func (t Token) Start() int { return t.Span.Start.Offset }

// End returns the byte offset just past the last character.
func (t Token) End() int { return t.Span.End.Offset }

// CommentKind distinguishes line vs block comments.
type CommentKind int

// Comment kinds.
const (
	LineComment  CommentKind = iota // -- comment
	BlockComment                    // /* comment */
)

// Comment is a skipped comment. Text includes the delimiters.
type Comment struct {
	Kind CommentKind
	Text string
	Span Span
}

// Covers reports whether a cursor at offset sits inside the comment.
// A line comment also covers the offset of its terminating newline.
func (c Comment) Covers(offset int) bool {
	if offset <= c.Span.Start.Offset {
		return false
	}
	if c.Kind == LineComment {
		return offset <= c.Span.End.Offset
	}
	return offset < c.Span.End.Offset
}
