//go:build mage

// Package main contains Mage build targets for specgrade developer tooling.
package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories an evaluation expects.
var projectDirs = []string{
	"data/golden_set",
	"data/generated",
	"data/eval_results",
}

// defaultAPIs get a fixture template on Init.
var defaultAPIs = []string{"jsonplaceholder", "openweather", "github"}

const fixtureTemplate = `# Copy this file to <endpoint>.yaml and fill it in.
# Files named TEMPLATE.yaml, and files with template: true, are never run.
template: true
api: %s
endpoint_id: %s_example
expected_spec:
  openapi: 3.0.0
  info:
    title: %s API
    version: 1.0.0
  paths: {}
`

// Init creates the data directories and a TEMPLATE.yaml per API.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	for _, api := range defaultAPIs {
		dir := filepath.Join("data/golden_set", api)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		path := filepath.Join(dir, "TEMPLATE.yaml")
		if _, err := os.Stat(path); err == nil {
			continue
		}
		content := fmt.Sprintf(fixtureTemplate, api, api, api)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Println("  ", path)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "specgrade"
	cmdPkg  = "./cmd/specgrade"
)

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || version == "" {
		version = "dev"
	}
	if err := sh.RunV("go", "build", "-ldflags", "-X main.version="+version, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Eval builds the CLI and evaluates the golden corpus with the stub
// generator unless SPECGRADE_GENERATOR_VARIANT says otherwise.
func Eval() error {
	mg.Deps(Init, Build)
	return sh.RunV(filepath.Join(binDir, binName), "run")
}

// Stats prints Go line counts and the number of fixtures per API.
func Stats() error {
	prodLines, err := countGoLines(".", false)
	if err != nil {
		return err
	}
	testLines, err := countGoLines(".", true)
	if err != nil {
		return err
	}
	fixtures, err := countFixtures("data/golden_set")
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)

	apis := make([]string, 0, len(fixtures))
	for api := range fixtures {
		apis = append(apis, api)
	}
	sort.Strings(apis)
	for _, api := range apis {
		fmt.Printf("Fixtures (%s): %d\n", api, fixtures[api])
	}
	return nil
}

// countGoLines counts non-blank lines in Go files, skipping underscore and
// hidden directories. testOnly selects _test.go files instead of the rest.
func countGoLines(root string, testOnly bool) (int, error) {
	total := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			name := info.Name()
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		if strings.HasSuffix(path, "_test.go") != testOnly {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		for _, line := range bytes.Split(data, []byte("\n")) {
			if len(bytes.TrimSpace(line)) > 0 {
				total++
			}
		}
		return nil
	})
	return total, err
}

// countFixtures counts fixture files per API directory, excluding templates.
func countFixtures(root string) (map[string]int, error) {
	counts := make(map[string]int)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return counts, nil
		}
		return nil, err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(root, entry.Name()))
		if err != nil {
			return nil, err
		}
		counts[entry.Name()] = 0
		for _, f := range files {
			ext := filepath.Ext(f.Name())
			if f.IsDir() || f.Name() == "TEMPLATE.yaml" {
				continue
			}
			if ext == ".yaml" || ext == ".yml" || ext == ".json" {
				counts[entry.Name()]++
			}
		}
	}
	return counts, nil
}
