package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/grr-sub002/internal/cli/config"
	intconfig "github.com/google/grr-sub002/internal/config"
	"github.com/google/grr-sub002/pkg/assist"
)

// configDescriptions documents each configuration key.
var configDescriptions = map[string]string{
	"schema_version": "Bundled osquery schema version",
	"schema_path":    "External schema file (JSON, YAML or TOML); overrides schema_version",
	"platform":       "Target platform: darwin, linux, windows or freebsd",
	"limit":          "Maximum number of suggestions",
	"debounce":       "Delay before an edited document is re-analyzed by the language server",
	"output":         "Output format: auto, text, markdown or json",
	"log_level":      "Log level: debug, info, warn or error",
	"verbose":        "Debug logging",
	"watch":          "Reload schema_path when it changes (lsp and serve)",
	"serve.addr":     "Listen address of the HTTP API",
}

func configKeys() []string {
	keys := make([]string, 0, len(intconfig.Defaults()))
	for k := range intconfig.Defaults() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func envName(key string) string {
	return config.EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func envRows() [][]string {
	var rows [][]string
	for _, k := range configKeys() {
		rows = append(rows, []string{InlineCode(envName(k)), InlineCode(k)})
	}
	return rows
}

// generateReferenceDocs writes the configuration and diagnostics pages.
func generateReferenceDocs(outDir string) error {
	log.Printf("Generating reference docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := generateConfigurationDoc(outDir); err != nil {
		return err
	}
	log.Printf("  Generated configuration.md")
	if err := generateDiagnosticsDoc(outDir); err != nil {
		return err
	}
	log.Printf("  Generated diagnostics.md")
	return nil
}

func generateConfigurationDoc(outDir string) error {
	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "osqhelper configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph(fmt.Sprintf("osqhelper reads %s (or %s) from the working directory or the nearest parent directory that has one. Nested keys are written with dots here.",
		InlineCode(intconfig.ConfigFileName), InlineCode(intconfig.ConfigFileNameAlt)))

	defaults := intconfig.Defaults()
	var rows [][]string
	for _, k := range configKeys() {
		def := fmt.Sprint(defaults[k])
		if def == "" {
			def = "-"
		}
		rows = append(rows, []string{InlineCode(k), InlineCode(def), InlineCode(envName(k)), configDescriptions[k]})
	}
	w.Table([]string{"Key", "Default", "Environment", "Description"}, rows)

	w.Header(2, "Example")
	w.CodeBlock("yaml", `platform: darwin
limit: 10
schema_path: ./osquery-tables.json
watch: true
serve:
  addr: 127.0.0.1:8088`)

	return os.WriteFile(filepath.Join(outDir, "configuration.md"), w.Bytes(), 0600)
}

func generateDiagnosticsDoc(outDir string) error {
	w := NewMarkdownWriter()
	w.Frontmatter("Diagnostics", "Diagnostic codes reported by osqhelper")
	w.GeneratedMarker()

	w.Header(1, "Diagnostics")
	w.Paragraph("Diagnostics are advisory. None of them stops a query from being sent to osquery.")

	var rows [][]string
	for _, info := range assist.Catalog() {
		rows = append(rows, []string{InlineCode(string(info.Code)), info.Severity.String(), info.Summary})
	}
	w.Table([]string{"Code", "Severity", "Meaning"}, rows)

	return os.WriteFile(filepath.Join(outDir, "diagnostics.md"), w.Bytes(), 0600)
}
