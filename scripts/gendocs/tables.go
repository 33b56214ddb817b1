package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/grr-sub002/pkg/schema"
)

// generateTableDocs writes an index of a schema's tables and one page per
// table. An empty path selects the bundled schema for version.
func generateTableDocs(outDir, version, path string) error {
	log.Printf("Generating table docs for osquery %s to %s", version, outDir)

	idx, err := schema.Open(version, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := generateTableIndex(idx, outDir); err != nil {
		return fmt.Errorf("failed to generate index: %w", err)
	}
	for _, t := range idx.Tables() {
		if err := generateTablePage(t, outDir); err != nil {
			return fmt.Errorf("failed to generate page for %s: %w", t.Name, err)
		}
	}
	log.Printf("  Generated %d table pages", idx.Len())
	return nil
}

func generateTableIndex(idx *schema.Index, outDir string) error {
	w := NewMarkdownWriter()
	w.Frontmatter("Tables", fmt.Sprintf("osquery %s tables", idx.Version()))
	w.GeneratedMarker()

	w.Header(1, fmt.Sprintf("osquery %s tables", idx.Version()))

	for _, p := range []schema.Platform{schema.Darwin, schema.Linux, schema.Windows, schema.FreeBSD} {
		var rows [][]string
		for _, t := range idx.Tables() {
			if !t.Platforms.Has(p) {
				continue
			}
			link := fmt.Sprintf("[%s](/tables/%s)", InlineCode(t.Name), t.Name)
			rows = append(rows, []string{link, cleanDescription(t.Description)})
		}
		if len(rows) == 0 {
			continue
		}
		w.Header(2, fmt.Sprintf("%s (%d)", p, len(rows)))
		w.Table([]string{"Table", "Description"}, rows)
	}

	return os.WriteFile(filepath.Join(outDir, "index.md"), w.Bytes(), 0600)
}

func generateTablePage(t *schema.TableSpec, outDir string) error {
	w := NewMarkdownWriter()
	w.Frontmatter(t.Name, cleanDescription(t.Description))
	w.GeneratedMarker()

	w.Header(1, t.Name)
	if t.Description != "" {
		w.Paragraph(t.Description)
	}

	facts := []string{"Platforms: " + strings.Join(t.Platforms.Strings(), ", ")}
	if t.Evented {
		facts = append(facts, "Evented: returns rows only when osquery runs with events enabled")
	}
	if required := t.RequiredColumns(); len(required) > 0 {
		names := make([]string, len(required))
		for i, c := range required {
			names[i] = InlineCode(c.Name)
		}
		facts = append(facts, "Requires a WHERE constraint on "+strings.Join(names, " or "))
	}
	if t.URL != "" {
		facts = append(facts, fmt.Sprintf("[Source](%s)", t.URL))
	}
	w.BulletList(facts)

	w.Header(2, "Columns")
	var rows [][]string
	for _, c := range t.Columns {
		rows = append(rows, []string{InlineCode(c.Name), string(c.Type), strings.Join(c.Notes(), ", "), c.Description})
	}
	w.Table([]string{"Column", "Type", "Notes", "Description"}, rows)

	w.Header(2, "Example")
	w.CodeBlock("sql", exampleQuery(t))

	return os.WriteFile(filepath.Join(outDir, t.Name+".md"), w.Bytes(), 0600)
}

// exampleQuery selects the visible columns, constraining the first required
// column when there is one.
func exampleQuery(t *schema.TableSpec) string {
	var cols []string
	for _, c := range t.Columns {
		if !c.Hidden {
			cols = append(cols, c.Name)
		}
		if len(cols) == 4 {
			break
		}
	}
	if len(cols) == 0 {
		cols = []string{"*"}
	}
	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), t.Name)
	if required := t.RequiredColumns(); len(required) > 0 {
		q += fmt.Sprintf(" WHERE %s = ''", required[0].Name)
	}
	return q + ";"
}
