package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/google/grr-sub002/pkg/schema"
)

var titleCaser = cases.Title(language.English)

// FormatHeader returns a markdown header.
func FormatHeader(level int, text string) string {
	return strings.Repeat("#", max(level, 1)) + " " + text
}

// FormatKeyValue returns a markdown list item with a bold key.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s**: %s", key, value)
}

// PlatformLabel returns a human label such as "Darwin, Linux".
func PlatformLabel(s schema.PlatformSet) string {
	if s.Empty() {
		return "None"
	}
	names := s.Strings()
	for i, n := range names {
		if n == "freebsd" {
			names[i] = "FreeBSD"
			continue
		}
		names[i] = titleCaser.String(n)
	}
	return strings.Join(names, ", ")
}

// NewTable returns a go-pretty table writer in the light style, mirrored to
// the renderer output.
func (r *Renderer) NewTable(header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleLight)
	if len(header) > 0 {
		t.AppendHeader(table.Row(header))
	}
	return t
}

// Table renders rows as a light-style table in text mode and as a markdown
// table otherwise.
func (r *Renderer) Table(header []any, rows [][]any) {
	t := r.NewTable(header...)
	for _, row := range rows {
		t.AppendRow(table.Row(row))
	}
	if r.EffectiveMode() == ModeText {
		t.Render()
		return
	}
	t.RenderMarkdown()
}
