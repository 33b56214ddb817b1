package lexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/grr-sub002/pkg/token"
)

type tok struct {
	kind   token.Kind
	role   token.Role
	lexeme string
}

func summarize(toks []token.Token) []tok {
	out := make([]tok, len(toks))
	for i, t := range toks {
		out[i] = tok{t.Kind, t.Role, t.Lexeme}
	}
	return out
}

func TestTokenize_SimpleSelect(t *testing.T) {
	res := Tokenize("SELECT name FROM processes", 0)

	require.Nil(t, res.Remainder)
	assert.Equal(t, []tok{
		{token.Keyword, token.RoleNone, "SELECT"},
		{token.Identifier, token.RoleColumn, "name"},
		{token.Keyword, token.RoleNone, "FROM"},
		{token.Identifier, token.RoleTable, "processes"},
	}, summarize(res.Tokens))

	procs := res.Tokens[3]
	assert.Equal(t, 17, procs.Start())
	assert.Equal(t, 26, procs.End())
	assert.Equal(t, token.Position{Line: 1, Column: 18, Offset: 17}, procs.Span.Start)
}

func TestTokenize_Positions(t *testing.T) {
	res := Tokenize("SELECT pid\nFROM\n  processes", 0)
	require.Len(t, res.Tokens, 4)

	assert.Equal(t, token.Position{Line: 2, Column: 1, Offset: 11}, res.Tokens[2].Span.Start)
	assert.Equal(t, token.Position{Line: 3, Column: 3, Offset: 18}, res.Tokens[3].Span.Start)
}

func TestTokenize_Roles(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]token.Role
	}{
		{
			name:  "alias with qualifier",
			input: "SELECT p.pid FROM processes p WHERE p.name = 'osqueryd'",
			want: map[string]token.Role{
				"p":         token.RoleQualifier,
				"pid":       token.RoleColumn,
				"processes": token.RoleTable,
				"name":      token.RoleColumn,
			},
		},
		{
			name:  "join",
			input: "SELECT u.username FROM users AS u JOIN processes ON processes.uid = u.uid",
			want: map[string]token.Role{
				"username":  token.RoleColumn,
				"users":     token.RoleTable,
				"processes": token.RoleTable,
				"uid":       token.RoleColumn,
			},
		},
		{
			name:  "comma separated tables",
			input: "SELECT * FROM processes, users, groups",
			want: map[string]token.Role{
				"processes": token.RoleTable,
				"users":     token.RoleTable,
				"groups":    token.RoleTable,
			},
		},
		{
			name:  "function",
			input: "SELECT count(pid) AS n FROM processes",
			want: map[string]token.Role{
				"count": token.RoleFunction,
				"pid":   token.RoleColumn,
				"n":     token.RoleAlias,
			},
		},
		{
			name:  "soft keywords are identifiers",
			input: "SELECT key, value FROM process_envs",
			want: map[string]token.Role{
				"key":          token.RoleColumn,
				"value":        token.RoleColumn,
				"process_envs": token.RoleTable,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Tokenize(tt.input, 0)
			require.Nil(t, res.Remainder)

			got := make(map[string]token.Role)
			for _, tk := range res.Tokens {
				if _, ok := tt.want[tk.Lexeme]; ok {
					if _, seen := got[tk.Lexeme]; !seen {
						got[tk.Lexeme] = tk.Role
					}
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenize_Aliases(t *testing.T) {
	res := Tokenize("SELECT p.pid FROM processes AS p LEFT JOIN users u USING (uid)", 0)
	require.Nil(t, res.Remainder)

	var aliases []token.Token
	for _, tk := range res.Tokens {
		if tk.Role == token.RoleAlias {
			aliases = append(aliases, tk)
		}
	}
	require.Len(t, aliases, 2)
	assert.Equal(t, "p", aliases[0].Lexeme)
	assert.Equal(t, token.BindTable, aliases[0].Binding)
	assert.Equal(t, "processes", aliases[0].AliasOf)
	assert.Equal(t, "u", aliases[1].Lexeme)
	assert.Equal(t, "users", aliases[1].AliasOf)

	pid := res.Tokens[3]
	assert.Equal(t, "pid", pid.Lexeme)
	assert.Equal(t, "p", pid.Qualifier)
}

func TestTokenize_DerivedSources(t *testing.T) {
	res := Tokenize("WITH recent AS (SELECT pid FROM processes) SELECT * FROM recent r, (SELECT 1) AS sub", 0)
	require.Nil(t, res.Remainder)

	byLexeme := make(map[string]token.Token)
	for _, tk := range res.Tokens {
		if _, seen := byLexeme[tk.Lexeme]; !seen && tk.Kind == token.Identifier {
			byLexeme[tk.Lexeme] = tk
		}
	}

	assert.Equal(t, token.RoleAlias, byLexeme["recent"].Role, "first occurrence is the CTE name")
	assert.Equal(t, token.BindDerived, res.Tokens[1].Binding)
	assert.Equal(t, token.RoleTable, byLexeme["processes"].Role)
	assert.Equal(t, token.RoleAlias, byLexeme["r"].Role)
	assert.Equal(t, token.BindTable, byLexeme["r"].Binding)
	assert.Equal(t, token.RoleAlias, byLexeme["sub"].Role)
	assert.Equal(t, token.BindDerived, byLexeme["sub"].Binding)

	// The later reference to the CTE sits in table position.
	var tables []string
	for _, tk := range res.Tokens {
		if tk.Role == token.RoleTable {
			tables = append(tables, tk.Lexeme)
		}
	}
	assert.Equal(t, []string{"processes", "recent"}, tables)
}

func TestTokenize_LiteralsAndPunctuation(t *testing.T) {
	res := Tokenize(`SELECT 'it''s', 0x1F, 1.5e3, "quoted col", `+"`tick`"+` FROM t WHERE a <> b || c`, 0)
	require.Nil(t, res.Remainder)

	var lits, puncts, quoted []string
	for _, tk := range res.Tokens {
		switch {
		case tk.Kind == token.Literal:
			lits = append(lits, tk.Lexeme)
		case tk.Kind == token.Punctuation:
			puncts = append(puncts, tk.Lexeme)
		case tk.Quoted:
			quoted = append(quoted, tk.Lexeme)
		}
	}
	assert.Equal(t, []string{"it's", "0x1F", "1.5e3"}, lits)
	assert.Equal(t, []string{",", ",", ",", ",", "<>", "||"}, puncts)
	assert.Equal(t, []string{"quoted col", "tick"}, quoted)
}

func TestTokenize_Comments(t *testing.T) {
	res := Tokenize("SELECT pid -- trailing\nFROM /* inline */ processes", 0)
	require.Nil(t, res.Remainder)

	assert.Len(t, res.Tokens, 4)
	require.Len(t, res.Comments, 2)
	assert.Equal(t, "-- trailing", res.Comments[0].Text)
	assert.Equal(t, token.LineComment, res.Comments[0].Kind)
	assert.Equal(t, "/* inline */", res.Comments[1].Text)
}

func TestTokenize_Remainder(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantTokens int
		wantStart  int
		wantReason string
	}{
		{"unterminated string", "SELECT * FROM processes WHERE name = 'osq", 7, 37, ReasonUnterminatedString},
		{"unterminated identifier", `SELECT "pid FROM processes`, 1, 7, ReasonUnterminatedIdentifier},
		{"unterminated comment", "SELECT pid /* FROM processes", 2, 11, ReasonUnterminatedComment},
		{"stray character", "SELECT pid FROM processes WHERE $x", 5, 32, `unexpected character '$'`},
		{"non-ascii", "SELECT é FROM processes", 1, 7, `unexpected character 'é'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Tokenize(tt.input, len(tt.input))
			require.NotNil(t, res.Remainder)
			assert.Len(t, res.Tokens, tt.wantTokens)
			assert.Equal(t, tt.wantStart, res.Remainder.Start.Offset)
			assert.Equal(t, tt.input[tt.wantStart:], res.Remainder.Text)
			assert.Equal(t, tt.wantReason, res.Remainder.Reason)
			assert.Equal(t, ContextUnrecognized, res.Cursor.Context)
		})
	}
}

func TestTokenize_NeverPanics(t *testing.T) {
	inputs := []string{
		"", " ", "'", `"`, "`", "/*", "--", ".", "(((", ")))", "\x00", "SELECT\x00", "p.", ".5", "0x",
		strings.Repeat("(", 100), "SELECT * FROM a AS", "WITH", "1e", "1e+",
	}
	for _, in := range inputs {
		for cursor := -1; cursor <= len(in)+1; cursor++ {
			assert.NotPanics(t, func() { Tokenize(in, cursor) }, "input %q cursor %d", in, cursor)
		}
	}
}

func TestCursor(t *testing.T) {
	tests := []struct {
		name      string
		input     string // | marks the cursor
		position  CursorPosition
		prefix    string
		qualifier string
		context   CursorContext
	}{
		{"table prefix", "SELECT * FROM proc|", PositionTable, "proc", "", ContextCode},
		{"fresh table", "SELECT * FROM |", PositionTable, "", "", ContextCode},
		{"after comma in from", "SELECT * FROM processes, us|", PositionTable, "us", "", ContextCode},
		{"mid token", "SELECT * FROM pro|cesses", PositionTable, "pro", "", ContextCode},
		{"column", "SELECT na| FROM processes", PositionColumn, "na", "", ContextCode},
		{"fresh column", "SELECT |", PositionColumn, "", "", ContextCode},
		{"where column", "SELECT * FROM processes WHERE |", PositionColumn, "", "", ContextCode},
		{"qualified", "SELECT p.| FROM processes p", PositionColumn, "", "p", ContextCode},
		{"qualified prefix", "SELECT p.pi| FROM processes p", PositionColumn, "pi", "p", ContextCode},
		{"alias slot", "SELECT * FROM processes |", PositionUnknown, "", "", ContextCode},
		{"keyword being typed", "SELECT * FR|", PositionUnknown, "FR", "", ContextCode},
		{"after column", "SELECT pid |", PositionUnknown, "", "", ContextCode},
		{"start of text", "|", PositionUnknown, "", "", ContextCode},
		{"next statement", "SELECT 1; |", PositionUnknown, "", "", ContextCode},
		{"inside literal", "SELECT * FROM processes WHERE name = 'os|q'", PositionUnknown, "", "", ContextLiteral},
		{"inside comment", "SELECT -- pro|\n", PositionUnknown, "", "", ContextComment},
		{"quoted identifier", `SELECT * FROM "proc|`, PositionUnknown, "", "", ContextUnrecognized},
		{"closed quoted identifier", `SELECT * FROM "proc|"`, PositionTable, "proc", "", ContextCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset := strings.Index(tt.input, "|")
			text := strings.Replace(tt.input, "|", "", 1)

			c := Tokenize(text, offset).Cursor
			require.NotNil(t, c)
			assert.Equal(t, offset, c.Offset)
			assert.Equal(t, tt.context, c.Context)
			assert.Equal(t, tt.position, c.Position, "position")
			assert.Equal(t, tt.prefix, c.Prefix, "prefix")
			assert.Equal(t, tt.qualifier, c.Qualifier, "qualifier")
			if tt.context == ContextCode && tt.prefix != "" && !strings.Contains(tt.input, `"`) {
				assert.Equal(t, tt.prefix, text[c.PrefixStart:c.Offset])
			}
		})
	}
}

func TestCursor_Clamped(t *testing.T) {
	text := "SELECT * FROM proc"

	c := Tokenize(text, 1000).Cursor
	assert.Equal(t, len(text), c.Offset)
	assert.Equal(t, "proc", c.Prefix)

	c = Tokenize(text, -5).Cursor
	assert.Equal(t, 0, c.Offset)
	assert.Nil(t, c.Token)
}

func TestKeywords(t *testing.T) {
	assert.True(t, IsKeyword("select"))
	assert.True(t, IsKeyword("From"))
	assert.False(t, IsKeyword("key"))
	assert.False(t, IsKeyword("processes"))

	kws := Keywords()
	assert.IsIncreasing(t, kws)
	assert.Contains(t, kws, "WHERE")
}

func TestTokenize_ContextualKeywords(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []tok
	}{
		{
			name:  "end and offset as columns",
			input: "SELECT start, end, offset FROM process_memory_map",
			want: []tok{
				{token.Keyword, token.RoleNone, "SELECT"},
				{token.Identifier, token.RoleColumn, "start"},
				{token.Punctuation, token.RoleNone, ","},
				{token.Identifier, token.RoleColumn, "end"},
				{token.Punctuation, token.RoleNone, ","},
				{token.Identifier, token.RoleColumn, "offset"},
				{token.Keyword, token.RoleNone, "FROM"},
				{token.Identifier, token.RoleTable, "process_memory_map"},
			},
		},
		{
			name:  "end closes case",
			input: "SELECT CASE WHEN pid THEN 1 END FROM processes",
			want: []tok{
				{token.Keyword, token.RoleNone, "SELECT"},
				{token.Keyword, token.RoleNone, "CASE"},
				{token.Keyword, token.RoleNone, "WHEN"},
				{token.Identifier, token.RoleColumn, "pid"},
				{token.Keyword, token.RoleNone, "THEN"},
				{token.Literal, token.RoleNone, "1"},
				{token.Keyword, token.RoleNone, "END"},
				{token.Keyword, token.RoleNone, "FROM"},
				{token.Identifier, token.RoleTable, "processes"},
			},
		},
		{
			name:  "offset after limit",
			input: "SELECT pid FROM processes LIMIT 5 OFFSET 10",
			want: []tok{
				{token.Keyword, token.RoleNone, "SELECT"},
				{token.Identifier, token.RoleColumn, "pid"},
				{token.Keyword, token.RoleNone, "FROM"},
				{token.Identifier, token.RoleTable, "processes"},
				{token.Keyword, token.RoleNone, "LIMIT"},
				{token.Literal, token.RoleNone, "5"},
				{token.Keyword, token.RoleNone, "OFFSET"},
				{token.Literal, token.RoleNone, "10"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Tokenize(tt.input, 0)
			require.Nil(t, res.Remainder)
			assert.Equal(t, tt.want, summarize(res.Tokens))
		})
	}
}
