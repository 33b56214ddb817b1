package lsp

import (
	"fmt"
)

// getCodeActions offers a quick fix for each diagnostic in the request
// that carries a replacement hint.
func getCodeActions(params CodeActionParams) []CodeAction {
	actions := []CodeAction{}
	for _, d := range params.Context.Diagnostics {
		if d.Source != diagnosticSource || d.Data == nil || d.Data.Hint == "" {
			continue
		}
		actions = append(actions, CodeAction{
			Title:       fmt.Sprintf("Change to %q", d.Data.Hint),
			Kind:        CodeActionKindQuickFix,
			Diagnostics: []Diagnostic{d},
			IsPreferred: true,
			Edit: &WorkspaceEdit{
				Changes: map[string][]TextEdit{
					params.TextDocument.URI: {{Range: d.Range, NewText: d.Data.Hint}},
				},
			},
		})
	}
	return actions
}
