// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/specgrade/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored results and the summary as YAML or JSON",
	Long: `Export writes every stored result and the summary over them. With --out
the export is written to <out>/export.<format>; otherwise it goes to stdout.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("format", store.FormatYAML, "export format: yaml or json")
	exportCmd.Flags().String("out", "", "directory to write export.<format> into")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	outDir, _ := cmd.Flags().GetString("out")
	if format != store.FormatYAML && format != store.FormatJSON {
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	rs, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer rs.Close()

	ctx := cmd.Context()
	if outDir != "" {
		path, err := store.ExportFile(ctx, rs, cfg.Targets, outDir, format)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Exported to %s\n", path)
		return nil
	}

	export, err := store.BuildExport(ctx, rs, cfg.Targets)
	if err != nil {
		return err
	}
	return store.WriteExport(os.Stdout, export, format)
}
