package lsp

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/grr-sub002/pkg/assist"
	"github.com/google/grr-sub002/pkg/schema"
	"github.com/google/grr-sub002/pkg/token"
)

// getCompletions returns ranked completions at the request position. The
// items replace the word prefix before the cursor.
func (s *Server) getCompletions(ctx context.Context, params CompletionParams) []CompletionItem {
	items := []CompletionItem{}

	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return items
	}

	offset := doc.PositionToOffset(params.Position)
	res, err := s.provider.Analyze(ctx, assist.Request{Text: doc.Content, Cursor: offset})
	if err != nil {
		s.logger.Warn("completion analysis failed", "uri", doc.URI, "error", err)
		return items
	}

	cursor := res.Lexed.Cursor
	edit := Range{
		Start: doc.OffsetToPosition(cursor.PrefixStart),
		End:   doc.OffsetToPosition(offset),
	}
	for i, sug := range res.Suggestions {
		items = append(items, CompletionItem{
			Label:         sug.Text,
			Kind:          completionKind(sug.Kind),
			Detail:        completionDetail(sug),
			Documentation: sug.Description,
			SortText:      fmt.Sprintf("%04d", i),
			FilterText:    sug.Text,
			TextEdit:      &TextEdit{Range: edit, NewText: sug.Text},
		})
	}
	return items
}

func completionKind(k assist.SuggestionKind) CompletionItemKind {
	switch k {
	case assist.KindTable:
		return CompletionItemKindClass
	case assist.KindColumn:
		return CompletionItemKindField
	default:
		return CompletionItemKindKeyword
	}
}

func completionDetail(s assist.Suggestion) string {
	if s.Kind == assist.KindColumn && s.Table != "" {
		return fmt.Sprintf("%s (%s)", s.Detail, s.Table)
	}
	return s.Detail
}

// getHover describes the table or column under the cursor.
func (s *Server) getHover(ctx context.Context, params HoverParams) *Hover {
	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return nil
	}

	cached, err := s.provider.GetOrAnalyze(ctx, doc.URI, doc.Content, doc.Version)
	if err != nil {
		s.logger.Warn("hover analysis failed", "uri", doc.URI, "error", err)
		return nil
	}
	res := cached.Result

	offset := doc.PositionToOffset(params.Position)
	tok, ok := tokenAt(res.Lexed.Tokens, offset)
	if !ok {
		return nil
	}

	var content string
	switch tok.Role {
	case token.RoleTable:
		if spec := referencedTable(res.Resolution, tok); spec != nil {
			content = tableMarkdown(spec)
		}
	case token.RoleAlias:
		if tok.Binding == token.BindTable {
			if spec, ok := res.Resolution.Aliases[strings.ToLower(tok.Lexeme)]; ok {
				content = tableMarkdown(spec)
			}
		}
	case token.RoleColumn:
		content = columnMarkdown(res.Resolution, tok)
	}
	if content == "" {
		return nil
	}

	rng := spanToRange(doc, tok.Span)
	return &Hover{
		Contents: MarkupContent{Kind: MarkupKindMarkdown, Value: content},
		Range:    &rng,
	}
}

// tokenAt returns the token containing offset. A cursor just past a token
// still counts as on it.
func tokenAt(tokens []token.Token, offset int) (token.Token, bool) {
	for _, t := range tokens {
		if t.Start() <= offset && offset <= t.End() && t.IsWord() {
			return t, true
		}
	}
	return token.Token{}, false
}

func referencedTable(res *assist.Resolution, tok token.Token) *schema.TableSpec {
	for _, ref := range res.References {
		if ref.Token.Start() == tok.Start() {
			return ref.Table
		}
	}
	return nil
}

func tableMarkdown(t *schema.TableSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** table\n\n", t.Name)
	if t.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", t.Description)
	}
	fmt.Fprintf(&b, "Platforms: %s", strings.Join(t.Platforms.Strings(), ", "))
	if t.Evented {
		b.WriteString(" (evented)")
	}
	if req := t.RequiredColumns(); len(req) > 0 {
		names := make([]string, len(req))
		for i, c := range req {
			names[i] = "`" + c.Name + "`"
		}
		fmt.Fprintf(&b, "\n\nRequires a constraint on %s", strings.Join(names, " or "))
	}
	return b.String()
}

func columnMarkdown(res *assist.Resolution, tok token.Token) string {
	for _, ref := range res.Columns {
		if ref.Token.Start() != tok.Start() {
			continue
		}
		var b strings.Builder
		for i, t := range ref.Tables {
			c, ok := t.Column(tok.Lexeme)
			if !ok {
				continue
			}
			if i > 0 {
				b.WriteString("\n\n---\n\n")
			}
			fmt.Fprintf(&b, "**%s.%s** `%s`", t.Name, c.Name, c.Type)
			if c.Description != "" {
				fmt.Fprintf(&b, "\n\n%s", c.Description)
			}
		}
		if ref.Ambiguous() {
			b.WriteString("\n\n*Ambiguous: qualify the column with a table or alias.*")
		}
		return b.String()
	}
	return ""
}
