package commands

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/google/grr-sub002/internal/cli/output"
	"github.com/google/grr-sub002/pkg/assist"
	"github.com/google/grr-sub002/pkg/schema"
)

// CheckReport is the JSON form of a check.
type CheckReport struct {
	Version         string              `json:"version"`
	Platform        schema.Platform     `json:"platform"`
	CommonPlatforms schema.PlatformSet  `json:"common_platforms"`
	Tables          []string            `json:"tables"`
	Diagnostics     []assist.Diagnostic `json:"diagnostics"`
}

func newCheckReport(res *assist.Result) CheckReport {
	tables := make([]string, 0, len(res.Resolution.Tables))
	for _, t := range res.Resolution.Tables {
		tables = append(tables, t.Name)
	}
	diags := res.Diagnostics
	if diags == nil {
		diags = []assist.Diagnostic{}
	}
	return CheckReport{
		Version:         res.Version,
		Platform:        res.Platform,
		CommonPlatforms: res.Compatibility.Common,
		Tables:          tables,
		Diagnostics:     diags,
	}
}

// renderDiagnostics writes the findings of res in the renderer's mode.
func renderDiagnostics(r *output.Renderer, res *assist.Result) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(newCheckReport(res))
	}

	if len(res.Diagnostics) == 0 {
		msg := fmt.Sprintf("No problems found (osquery %s, %s)", res.Version, res.Platform)
		if r.EffectiveMode() == output.ModeText {
			msg = r.Styles().Success.Render(msg)
		}
		r.Println(msg)
		return nil
	}

	if r.EffectiveMode() == output.ModeText {
		for _, d := range res.Diagnostics {
			r.Printf("%d:%d %s %s %s\n",
				d.Span.Start.Line, d.Span.Start.Column,
				severityStyle(r, d.Severity).Render(d.Severity.String()),
				r.Styles().Muted.Render(string(d.Code)),
				d.Message)
		}
		return nil
	}

	rows := make([][]any, len(res.Diagnostics))
	for i, d := range res.Diagnostics {
		rows[i] = []any{
			fmt.Sprintf("%d:%d", d.Span.Start.Line, d.Span.Start.Column),
			d.Severity.String(), string(d.Code), d.Message,
		}
	}
	r.Table([]any{"Position", "Severity", "Code", "Message"}, rows)
	return nil
}

func severityStyle(r *output.Renderer, s assist.Severity) lipgloss.Style {
	switch s {
	case assist.SeverityError:
		return r.Styles().Error
	case assist.SeverityWarning:
		return r.Styles().Warning
	case assist.SeverityInfo:
		return r.Styles().Info
	default:
		return r.Styles().Hint
	}
}

// renderSuggestions writes ranked suggestions in the renderer's mode.
func renderSuggestions(r *output.Renderer, suggestions []assist.Suggestion) error {
	if r.EffectiveMode() == output.ModeJSON {
		if suggestions == nil {
			suggestions = []assist.Suggestion{}
		}
		return r.JSON(suggestions)
	}
	if len(suggestions) == 0 {
		r.Println("No suggestions")
		return nil
	}

	rows := make([][]any, len(suggestions))
	for i, s := range suggestions {
		detail := s.Detail
		if s.Table != "" {
			detail = fmt.Sprintf("%s (%s)", s.Detail, s.Table)
		}
		rows[i] = []any{i + 1, s.Text, string(s.Kind), detail}
	}
	r.Table([]any{"#", "Suggestion", "Kind", "Detail"}, rows)
	return nil
}
