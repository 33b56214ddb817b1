// Package lexer tokenizes osquery SQL fragments for the query assistant.
//
// The lexer is deliberately partial. It splits text into identifiers,
// keywords, literals and punctuation, gives identifiers a position role
// (table, column, alias, qualifier, function) from local context, and works
// out what kind of name belongs at the cursor. It never fails: input it
// cannot lex is reported as a Remainder and everything before it is kept.
package lexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/grr-sub002/pkg/token"
)

// Reasons a Remainder is reported.
const (
	ReasonUnterminatedString     = "unterminated string literal"
	ReasonUnterminatedIdentifier = "unterminated quoted identifier"
	ReasonUnterminatedComment    = "unterminated block comment"
)

// Remainder is the tail of the text the lexer could not recognize.
type Remainder struct {
	Start  token.Position
	Text   string
	Reason string
}

// Result is the output of Tokenize.
type Result struct {
	Tokens    []token.Token
	Comments  []token.Comment
	Cursor    *Cursor
	Remainder *Remainder
}

// Tokenize lexes text, assigns position roles and locates the cursor.
// The cursor is a byte offset and is clamped to [0, len(text)].
func Tokenize(text string, cursor int) *Result {
	s := newScanner(text)
	s.scan()
	assignRoles(s.tokens)

	res := &Result{
		Tokens:    s.tokens,
		Comments:  s.comments,
		Remainder: s.remainder,
	}
	res.Cursor = locate(text, res, cursor)
	return res
}

// scanner splits input into tokens.
type scanner struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // line of ch (1-based)
	col     int  // column of ch (1-based)

	tokens    []token.Token
	comments  []token.Comment
	remainder *Remainder

	openCase  int  // CASE expressions waiting for their END
	openLimit bool // a LIMIT that may still take an OFFSET
}

func newScanner(input string) *scanner {
	s := &scanner{input: input, line: 1, col: 1}
	s.readChar()
	return s
}

// readChar advances to the next character.
func (s *scanner) readChar() {
	if s.readPos > len(s.input) {
		return
	}
	if s.readPos > 0 {
		if s.input[s.pos] == '\n' {
			s.line++
			s.col = 1
		} else {
			s.col++
		}
	}
	if s.readPos >= len(s.input) {
		s.ch = 0
	} else {
		s.ch = s.input[s.readPos]
	}
	s.pos = s.readPos
	s.readPos++
}

// wordKind classifies a bare word. END only closes a CASE expression and
// OFFSET only follows a LIMIT; anywhere else they are names, such as the
// end and offset columns of process_memory_map.
func (s *scanner) wordKind(word string) token.Kind {
	switch strings.ToUpper(word) {
	case "CASE":
		s.openCase++
	case "END":
		if s.openCase == 0 {
			return token.Identifier
		}
		s.openCase--
	case "LIMIT":
		s.openLimit = true
	case "OFFSET":
		if !s.openLimit {
			return token.Identifier
		}
		s.openLimit = false
	}
	if IsKeyword(word) {
		return token.Keyword
	}
	return token.Identifier
}

// peekChar returns the next character without advancing.
func (s *scanner) peekChar() byte {
	if s.readPos >= len(s.input) {
		return 0
	}
	return s.input[s.readPos]
}

func (s *scanner) atEOF() bool {
	return s.pos >= len(s.input)
}

func (s *scanner) currentPos() token.Position {
	return token.Position{Line: s.line, Column: s.col, Offset: s.pos}
}

func (s *scanner) scan() {
	for {
		if !s.skipWhitespaceAndComments() || s.atEOF() {
			return
		}

		start := s.currentPos()
		switch {
		case isLetter(s.ch) || s.ch == '_':
			word := s.readIdentifier()
			s.emit(s.wordKind(word), word, false, start)
		case isDigit(s.ch) || (s.ch == '.' && isDigit(s.peekChar())):
			s.emit(token.Literal, s.readNumber(), false, start)
		case s.ch == '\'':
			lit, ok := s.readQuoted('\'')
			if !ok {
				s.stop(start, ReasonUnterminatedString)
				return
			}
			s.emit(token.Literal, lit, true, start)
		case s.ch == '"' || s.ch == '`':
			ident, ok := s.readQuoted(s.ch)
			if !ok {
				s.stop(start, ReasonUnterminatedIdentifier)
				return
			}
			s.emit(token.Identifier, ident, true, start)
		case isPunct(s.ch):
			s.emit(token.Punctuation, s.readPunct(), false, start)
		default:
			r, _ := utf8.DecodeRuneInString(s.input[s.pos:])
			s.stop(start, fmt.Sprintf("unexpected character %q", r))
			return
		}
	}
}

func (s *scanner) emit(kind token.Kind, lexeme string, quoted bool, start token.Position) {
	s.tokens = append(s.tokens, token.Token{
		Kind:   kind,
		Lexeme: lexeme,
		Quoted: quoted,
		Span:   token.Span{Start: start, End: s.currentPos()},
	})
}

func (s *scanner) stop(start token.Position, reason string) {
	s.remainder = &Remainder{
		Start:  start,
		Text:   s.input[start.Offset:],
		Reason: reason,
	}
}

// skipWhitespaceAndComments skips whitespace and records comments.
// It returns false if an unterminated block comment stopped the scan.
func (s *scanner) skipWhitespaceAndComments() bool {
	for {
		for !s.atEOF() && isSpace(s.ch) {
			s.readChar()
		}

		switch {
		case s.ch == '-' && s.peekChar() == '-':
			s.lineComment()
		case s.ch == '/' && s.peekChar() == '*':
			if !s.blockComment() {
				return false
			}
		default:
			return true
		}
	}
}

func (s *scanner) lineComment() {
	start := s.currentPos()
	for !s.atEOF() && s.ch != '\n' {
		s.readChar()
	}
	s.comments = append(s.comments, token.Comment{
		Kind: token.LineComment,
		Text: s.input[start.Offset:s.pos],
		Span: token.Span{Start: start, End: s.currentPos()},
	})
}

func (s *scanner) blockComment() bool {
	start := s.currentPos()
	s.readChar() // skip '/'
	s.readChar() // skip '*'

	for !s.atEOF() {
		if s.ch == '*' && s.peekChar() == '/' {
			s.readChar()
			s.readChar()
			s.comments = append(s.comments, token.Comment{
				Kind: token.BlockComment,
				Text: s.input[start.Offset:s.pos],
				Span: token.Span{Start: start, End: s.currentPos()},
			})
			return true
		}
		s.readChar()
	}

	s.stop(start, ReasonUnterminatedComment)
	return false
}

// readQuoted reads a literal or identifier delimited by q, where a doubled
// q is an escaped q. It reports false if the closing delimiter is missing.
func (s *scanner) readQuoted(q byte) (string, bool) {
	s.readChar() // skip opening quote

	var b strings.Builder
	for !s.atEOF() {
		if s.ch == q {
			if s.peekChar() == q {
				b.WriteByte(q)
				s.readChar()
				s.readChar()
				continue
			}
			s.readChar() // skip closing quote
			return b.String(), true
		}
		b.WriteByte(s.ch)
		s.readChar()
	}
	return "", false
}

func (s *scanner) readIdentifier() string {
	start := s.pos
	for isLetter(s.ch) || isDigit(s.ch) || s.ch == '_' {
		s.readChar()
	}
	return s.input[start:s.pos]
}

// readNumber reads an integer, decimal, exponent or hex literal.
func (s *scanner) readNumber() string {
	start := s.pos

	if s.ch == '0' && (s.peekChar() == 'x' || s.peekChar() == 'X') {
		s.readChar()
		s.readChar()
		for isHexDigit(s.ch) {
			s.readChar()
		}
		return s.input[start:s.pos]
	}

	for isDigit(s.ch) {
		s.readChar()
	}
	if s.ch == '.' {
		s.readChar()
		for isDigit(s.ch) {
			s.readChar()
		}
	}
	if s.ch == 'e' || s.ch == 'E' {
		next := s.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			s.readChar()
			if s.ch == '+' || s.ch == '-' {
				s.readChar()
			}
			for isDigit(s.ch) {
				s.readChar()
			}
		}
	}
	return s.input[start:s.pos]
}

// readPunct reads one punctuation character, or a two-character operator.
func (s *scanner) readPunct() string {
	first := s.ch
	s.readChar()
	if isOperatorPair(first, s.ch) {
		second := s.ch
		s.readChar()
		return string([]byte{first, second})
	}
	return string(first)
}

func isOperatorPair(a, b byte) bool {
	switch string([]byte{a, b}) {
	case "<=", ">=", "<>", "!=", "==", "||", "<<", ">>":
		return true
	}
	return false
}

func isLetter(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

func isSpace(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

func isPunct(ch byte) bool {
	return strings.IndexByte(",().;=<>!|+-*/%[]&~^?:", ch) >= 0
}
