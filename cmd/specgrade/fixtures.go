// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/specgrade/internal/fixture"
)

var fixturesCmd = &cobra.Command{
	Use:   "fixtures",
	Short: "Inspect and check the golden corpus",
	Long: `Fixtures works on the golden corpus without running a generator. Use list
to see fixtures per API, schema to print the fixture JSON Schema, and
validate to check that every fixture loads.`,
}

var fixturesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List fixtures per API, including configured APIs with none",
	RunE:  runFixturesList,
}

var fixturesSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of a fixture file",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := fixture.Schema()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(os.Stdout, string(data))
		return err
	},
}

var fixturesValidateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Check that fixtures load; defaults to the whole corpus",
	RunE:  runFixturesValidate,
}

func init() {
	fixturesCmd.AddCommand(fixturesListCmd, fixturesSchemaCmd, fixturesValidateCmd)
	rootCmd.AddCommand(fixturesCmd)
}

func runFixturesList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir, err := fixture.NewDir(cfg.Corpus.GoldenDir)
	if err != nil {
		return err
	}
	refs, err := dir.Discover("")
	if err != nil {
		return err
	}
	present, err := dir.APIs()
	if err != nil {
		return err
	}

	byAPI := make(map[string][]string)
	for _, ref := range refs {
		api := filepath.Base(filepath.Dir(ref))
		byAPI[api] = append(byAPI[api], filepath.Base(ref))
	}

	apis := append([]string(nil), cfg.Corpus.APIs...)
	for _, api := range present {
		if !slices.Contains(apis, api) {
			apis = append(apis, api)
		}
	}

	fmt.Fprintf(os.Stdout, "%-20s  %-5s  %s\n", "API", "Count", "Fixtures")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 70))
	for _, api := range apis {
		files := byAPI[api]
		names := strings.Join(files, ", ")
		if len(files) == 0 {
			names = "(none)"
		}
		fmt.Fprintf(os.Stdout, "%-20s  %-5d  %s\n", api, len(files), names)
	}
	fmt.Fprintf(os.Stdout, "\n%d fixture(s) in %s\n", len(refs), dir.Root())
	return nil
}

func runFixturesValidate(cmd *cobra.Command, args []string) error {
	paths := args
	if len(paths) == 0 {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dir, err := fixture.NewDir(cfg.Corpus.GoldenDir)
		if err != nil {
			return err
		}
		if paths, err = dir.Discover(""); err != nil {
			return err
		}
	}

	seen := make(map[string]string)
	failed := 0
	for _, path := range paths {
		fx, err := fixture.LoadFile(path)
		switch {
		case err != nil:
			fmt.Fprintf(os.Stdout, "failed  %s: %v\n", path, err)
			failed++
		case fx.Template:
			fmt.Fprintf(os.Stdout, "skipped %s (template)\n", path)
		case seen[fx.EndpointID] != "":
			fmt.Fprintf(os.Stdout, "failed  %s: endpoint_id %q already used by %s\n", path, fx.EndpointID, seen[fx.EndpointID])
			failed++
		default:
			seen[fx.EndpointID] = path
			fmt.Fprintf(os.Stdout, "ok      %s (%s, %d path(s))\n", path, fx.EndpointID, len(fx.ExpectedSpec.Paths()))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d fixture(s) failed validation", failed)
	}
	return nil
}
