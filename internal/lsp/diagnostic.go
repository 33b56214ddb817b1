package lsp

import (
	"github.com/google/grr-sub002/pkg/assist"
	"github.com/google/grr-sub002/pkg/token"
)

// diagnosticSource is the source name on every published diagnostic.
const diagnosticSource = "osqhelper"

// publishDiagnostics sends the diagnostics of one analysis of doc.
func (s *Server) publishDiagnostics(doc *Document, diags []assist.Diagnostic) {
	version := doc.Version
	s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         doc.URI,
		Version:     &version,
		Diagnostics: toLSPDiagnostics(doc, diags),
	})
}

func toLSPDiagnostics(doc *Document, diags []assist.Diagnostic) []Diagnostic {
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		ld := Diagnostic{
			Range:    spanToRange(doc, d.Span),
			Severity: toLSPSeverity(d.Severity),
			Code:     string(d.Code),
			Source:   diagnosticSource,
			Message:  d.Message,
		}
		// The hint of an unknown qualifier names the qualifier, which lies
		// outside the span.
		if d.Hint != "" && fixable(d.Code) {
			ld.Data = &DiagnosticData{Hint: d.Hint}
		}
		out = append(out, ld)
	}
	return out
}

func fixable(code assist.Code) bool {
	return code == assist.CodeUnknownTable || code == assist.CodeUnknownColumn
}

func spanToRange(doc *Document, span token.Span) Range {
	return Range{
		Start: doc.OffsetToPosition(span.Start.Offset),
		End:   doc.OffsetToPosition(span.End.Offset),
	}
}

func toLSPSeverity(s assist.Severity) DiagnosticSeverity {
	switch s {
	case assist.SeverityError:
		return DiagnosticSeverityError
	case assist.SeverityWarning:
		return DiagnosticSeverityWarning
	case assist.SeverityInfo:
		return DiagnosticSeverityInformation
	default:
		return DiagnosticSeverityHint
	}
}
