package lexer

import (
	"strings"

	"github.com/google/grr-sub002/pkg/token"
)

// clause is the part of a statement the role pass is in.
type clause uint8

const (
	clauseNone clause = iota
	clauseWith
	clauseSelect
	clauseFrom
	clauseFilter
)

// frame is the role state of one parenthesis level.
type frame struct {
	clause clause

	expectTable bool          // next identifier names a table
	aliasSlot   token.Binding // binding for an identifier in alias position
	aliasFor    string        // table an identifier in alias position would name
	afterAs     bool          // previous token was AS
	afterValue  bool          // previous token ended an expression
	derived     bool          // opened as a FROM-clause subquery
}

func (f *frame) reset() {
	f.expectTable = false
	f.aliasSlot = token.BindNone
	f.aliasFor = ""
	f.afterAs = false
	f.afterValue = false
}

type roleState struct {
	stack []frame
}

func (st *roleState) top() *frame {
	return &st.stack[len(st.stack)-1]
}

// assignRoles sets Role, Qualifier, Binding and AliasOf on every identifier
// and returns the state after the last token.
func assignRoles(toks []token.Token) *roleState {
	st := &roleState{stack: []frame{{}}}
	for i := range toks {
		switch toks[i].Kind {
		case token.Keyword:
			st.keyword(toks[i].Lexeme)
		case token.Punctuation:
			st.punct(toks, i)
		case token.Literal:
			f := st.top()
			f.reset()
			f.afterValue = true
		case token.Identifier:
			st.identifier(toks, i)
		}
	}
	return st
}

func (st *roleState) keyword(lexeme string) {
	f := st.top()
	kw := strings.ToUpper(lexeme)

	switch {
	case kw == "AS":
		f.afterAs = true
		f.afterValue = false
		return
	case kw == "SELECT":
		f.clause = clauseSelect
	case kw == "WITH":
		f.clause = clauseWith
	case tableIntroducers[kw]:
		f.clause = clauseFrom
		f.reset()
		f.expectTable = true
		return
	case filterKeywords[kw]:
		f.clause = clauseFilter
	}
	f.reset()
}

func (st *roleState) punct(toks []token.Token, i int) {
	f := st.top()

	switch toks[i].Lexeme {
	case "(":
		child := frame{clause: f.clause, derived: f.expectTable}
		f.reset()
		st.stack = append(st.stack, child)
	case ")":
		if len(st.stack) == 1 {
			f.reset()
			return
		}
		closed := st.stack[len(st.stack)-1]
		st.stack = st.stack[:len(st.stack)-1]
		f = st.top()
		f.reset()
		f.afterValue = true
		if closed.derived {
			f.aliasSlot = token.BindDerived
		}
	case ";":
		st.stack = append(st.stack[:0], frame{})
	case ",":
		f.reset()
		if f.clause == clauseFrom {
			f.expectTable = true
		}
	case "*":
		wildcard := i == 0 || toks[i-1].IsKeyword("SELECT") || toks[i-1].IsKeyword("DISTINCT") ||
			toks[i-1].IsPunct(",") || toks[i-1].IsPunct(".")
		f.reset()
		f.afterValue = wildcard
	default:
		f.reset()
	}
}

func (st *roleState) identifier(toks []token.Token, i int) {
	f := st.top()
	t := &toks[i]

	switch {
	case i >= 2 && toks[i-1].IsPunct(".") && toks[i-2].Role == token.RoleQualifier:
		t.Role = token.RoleColumn
		t.Qualifier = toks[i-2].Lexeme
		f.reset()
		f.afterValue = true

	case next(toks, i).IsPunct("."):
		t.Role = token.RoleQualifier

	case f.clause == clauseWith && !f.afterAs,
		next(toks, i).IsKeyword("AS") && next(toks, i+1).IsPunct("("):
		t.Role = token.RoleAlias
		t.Binding = token.BindDerived
		f.reset()

	case next(toks, i).IsPunct("("):
		t.Role = token.RoleFunction
		f.reset()

	case f.expectTable:
		t.Role = token.RoleTable
		f.reset()
		f.aliasSlot = token.BindTable
		f.aliasFor = t.Lexeme

	case f.aliasSlot != token.BindNone:
		t.Role = token.RoleAlias
		t.Binding = f.aliasSlot
		if f.aliasSlot == token.BindTable {
			t.AliasOf = f.aliasFor
		}
		f.reset()

	case f.afterAs, f.afterValue && f.clause == clauseSelect:
		t.Role = token.RoleAlias
		t.Binding = token.BindOutput
		f.reset()

	default:
		t.Role = token.RoleColumn
		f.reset()
		f.afterValue = true
	}
}

// next returns the token after i, or the zero token.
func next(toks []token.Token, i int) token.Token {
	if i+1 < len(toks) {
		return toks[i+1]
	}
	return token.Token{Kind: token.Literal}
}
