// Package main generates the osqhelper markdown documentation: the CLI
// reference, the configuration reference, the diagnostic codes and one page
// per osquery table of a bundled schema.
//
// Usage:
//
//	go run ./scripts/gendocs -gen=cli -outdir=docs/cli
//	go run ./scripts/gendocs -gen=tables -schema-version=4.5.1-core
//	go run ./scripts/gendocs -gen=tables   # schema from osqhelper.yaml
//	go run ./scripts/gendocs -gen=reference
//	go run ./scripts/gendocs -gen=all
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/google/grr-sub002/internal/config"
)

var (
	genFlag     = flag.String("gen", "all", "what to generate: cli, tables, reference, all")
	outDirFlag  = flag.String("outdir", "", "output directory (defaults based on gen type)")
	versionFlag = flag.String("schema-version", "", "bundled osquery schema version for -gen=tables (default: from osqhelper.yaml)")
)

func main() {
	flag.Parse()

	validGenFlags := map[string]bool{"cli": true, "tables": true, "reference": true, "all": true}
	if !validGenFlags[*genFlag] {
		log.Fatalf("unknown -gen value: %s (use: cli, tables, reference, all)", *genFlag)
	}

	projectRoot, err := findProjectRoot()
	if err != nil {
		log.Fatalf("failed to find project root: %v", err)
	}
	log.Printf("Project root: %s", projectRoot)

	outDir := func(def string) string {
		if *outDirFlag != "" && *genFlag != "all" {
			return *outDirFlag
		}
		return filepath.Join(projectRoot, "docs", def)
	}

	if *genFlag == "cli" || *genFlag == "all" {
		if err := generateCLIDocs(outDir("cli")); err != nil {
			log.Fatalf("failed to generate CLI docs: %v", err)
		}
	}
	if *genFlag == "tables" || *genFlag == "all" {
		version, path, err := tableSource(projectRoot, *versionFlag)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		if err := generateTableDocs(outDir("tables"), version, path); err != nil {
			log.Fatalf("failed to generate table docs: %v", err)
		}
	}
	if *genFlag == "reference" || *genFlag == "all" {
		if err := generateReferenceDocs(outDir("reference")); err != nil {
			log.Fatalf("failed to generate reference docs: %v", err)
		}
	}

	log.Println("Done!")
}

// tableSource picks the schema to document. An explicit version selects a
// bundled schema; otherwise the project's osqhelper.yaml decides.
func tableSource(projectRoot, version string) (string, string, error) {
	if version != "" {
		return version, "", nil
	}
	cfg, err := config.LoadFromDir(projectRoot)
	if err != nil {
		return "", "", err
	}
	path := cfg.SchemaPath
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(projectRoot, path)
	}
	return cfg.SchemaVersion, path, nil
}

// findProjectRoot walks up from current directory to find go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}
