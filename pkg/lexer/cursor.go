package lexer

import (
	"github.com/google/grr-sub002/pkg/token"
)

// CursorPosition is the kind of name that belongs at the cursor.
type CursorPosition uint8

// Cursor positions.
const (
	PositionUnknown CursorPosition = iota
	PositionTable
	PositionColumn
)

func (p CursorPosition) String() string {
	switch p {
	case PositionTable:
		return "table"
	case PositionColumn:
		return "column"
	}
	return "unknown"
}

// CursorContext is the lexical context around the cursor.
type CursorContext uint8

// Cursor contexts. Completion only makes sense in ContextCode.
const (
	ContextCode CursorContext = iota
	ContextLiteral
	ContextComment
	ContextUnrecognized
)

// Cursor describes the completion point.
type Cursor struct {
	Offset int

	// Token is the word or literal containing the cursor, nil at a fresh position.
	Token *token.Token

	// Prefix is the part of Token before the cursor, or empty.
	// PrefixStart is where it begins, so Prefix == text[PrefixStart:Offset]
	// for unquoted words.
	Prefix      string
	PrefixStart int

	Position  CursorPosition
	Qualifier string
	Context   CursorContext
}

// Completable reports whether suggestions apply at the cursor.
func (c *Cursor) Completable() bool {
	return c.Context == ContextCode
}

// locate finds the cursor within the tokens of res.
func locate(text string, res *Result, cursor int) *Cursor {
	offset := min(max(cursor, 0), len(text))
	c := &Cursor{Offset: offset, PrefixStart: offset}

	if r := res.Remainder; r != nil && offset > r.Start.Offset {
		c.Context = ContextUnrecognized
		return c
	}
	for _, cm := range res.Comments {
		if cm.Covers(offset) {
			c.Context = ContextComment
			return c
		}
	}

	// before counts the tokens that precede the cursor position.
	before := 0
	for i := range res.Tokens {
		t := &res.Tokens[i]
		if t.Start() >= offset {
			break
		}
		if t.IsWord() && offset <= t.End() {
			c.Token = t
			c.PrefixStart = t.Start()
			if t.Quoted {
				c.PrefixStart++
			}
			c.Prefix = text[c.PrefixStart:min(offset, max(c.PrefixStart, quotedEnd(t)))]
			break
		}
		if t.Kind == token.Literal && offset < t.End() {
			c.Token = t
			c.Context = ContextLiteral
			return c
		}
		before = i + 1
	}

	probe := make([]token.Token, before, before+1)
	copy(probe, res.Tokens[:before])
	for i := range probe {
		probe[i].Role = token.RoleNone
		probe[i].Qualifier = ""
		probe[i].Binding = token.BindNone
		probe[i].AliasOf = ""
	}
	probe = append(probe, token.Token{
		Kind:   token.Identifier,
		Lexeme: c.Prefix,
		Span: token.Span{
			Start: token.Position{Offset: c.PrefixStart},
			End:   token.Position{Offset: offset},
		},
	})
	// Nothing names a table or column before the statement keyword.
	if st := assignRoles(probe); st.top().clause == clauseNone {
		return c
	}

	switch at := probe[len(probe)-1]; at.Role {
	case token.RoleTable:
		c.Position = PositionTable
	case token.RoleColumn:
		c.Position = PositionColumn
		c.Qualifier = at.Qualifier
	}
	return c
}

// quotedEnd is the offset of the closing quote of a quoted word, or its end.
func quotedEnd(t *token.Token) int {
	if t.Quoted {
		return t.End() - 1
	}
	return t.End()
}
