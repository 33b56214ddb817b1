package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/google/grr-sub002/internal/cli/output"
	"github.com/google/grr-sub002/internal/provider"
	"github.com/google/grr-sub002/pkg/assist"
	"github.com/google/grr-sub002/pkg/schema"
)

// NewDescribeCommand creates the describe command.
func NewDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <table>",
		Short: "Show the columns of an osquery table",
		Long: `Show a table's description, platforms and columns.

Required columns must be constrained in the WHERE clause for the table to
return rows.`,
		Example: `  osqhelper describe processes
  osqhelper describe -o json file`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeTableNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(cmd, args[0])
		},
	}
}

func runDescribe(cmd *cobra.Command, name string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	t, ok := cmdCtx.Provider.Index().Table(name)
	if !ok {
		return unknownTable(cmd.Context(), cmdCtx.Provider, name)
	}

	return writeTable(cmdCtx.Renderer, t)
}

// writeTable renders one table spec in the renderer's mode.
func writeTable(r *output.Renderer, t *schema.TableSpec) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(t)
	case output.ModeMarkdown:
		describeMarkdown(r, t)
	default:
		describeText(r, t)
	}
	return nil
}

// unknownTable builds the error for a missing table, with the closest
// known name when there is one.
func unknownTable(ctx context.Context, prov *provider.Provider, name string) error {
	res, err := prov.Analyze(ctx, assist.Request{Text: "SELECT * FROM " + name, Limit: -1})
	if err == nil {
		for _, d := range res.Diagnostics {
			if d.Code == assist.CodeUnknownTable && d.Hint != "" {
				return fmt.Errorf("unknown table %q; did you mean %q?", name, d.Hint)
			}
		}
	}
	return fmt.Errorf("unknown table %q", name)
}

func tableFlags(t *schema.TableSpec) string {
	var flags []string
	if t.Evented {
		flags = append(flags, "evented")
	}
	if t.Cacheable {
		flags = append(flags, "cacheable")
	}
	return strings.Join(flags, ", ")
}

func columnRows(t *schema.TableSpec) [][]any {
	rows := make([][]any, len(t.Columns))
	for i, c := range t.Columns {
		rows[i] = []any{c.Name, string(c.Type), strings.Join(c.Notes(), ", "), c.Description}
	}
	return rows
}

func describeText(r *output.Renderer, t *schema.TableSpec) {
	s := r.Styles()
	r.Println(s.Header1.Render(t.Name))
	if t.Description != "" {
		r.Println(t.Description)
	}
	r.Println("")
	r.Printf("%s %s\n", s.Bold.Render("Platforms:"), output.PlatformLabel(t.Platforms))
	if flags := tableFlags(t); flags != "" {
		r.Printf("%s %s\n", s.Bold.Render("Flags:"), flags)
	}
	if t.URL != "" {
		r.Printf("%s %s\n", s.Bold.Render("Docs:"), s.Muted.Render(t.URL))
	}
	r.Println("")
	r.Table([]any{"Column", "Type", "Notes", "Description"}, columnRows(t))
}

func describeMarkdown(r *output.Renderer, t *schema.TableSpec) {
	r.Header(1, t.Name)
	if t.Description != "" {
		r.Println(t.Description)
		r.Println("")
	}
	r.Println(output.FormatKeyValue("Platforms", output.PlatformLabel(t.Platforms)))
	if flags := tableFlags(t); flags != "" {
		r.Println(output.FormatKeyValue("Flags", flags))
	}
	if t.URL != "" {
		r.Println(output.FormatKeyValue("Docs", t.URL))
	}
	r.Println("")
	r.Header(2, "Columns")
	r.Table([]any{"Column", "Type", "Notes", "Description"}, columnRows(t))
}
