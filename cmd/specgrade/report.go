// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/specgrade/internal/runner"
	"github.com/pdiddy/specgrade/internal/store"
	"github.com/pdiddy/specgrade/pkg/types"
)

var reportCmd = &cobra.Command{
	Use:   "report [endpoint-id]",
	Short: "Show stored evaluation results",
	Long: `Report re-renders stored results without running the generator. With an
endpoint id it prints that endpoint's scores; without one it prints every
stored result followed by the summary over all of them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	rs, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer rs.Close()

	ctx := cmd.Context()
	if len(args) == 1 {
		rec, err := rs.LoadResult(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(rec)
		}
		printRecord(rec)
		return nil
	}

	export, err := store.BuildExport(ctx, rs, cfg.Targets)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(export)
	}
	for _, rec := range export.Results {
		printRecord(rec)
	}
	fmt.Println(runner.FormatSummary(export.Summary))
	return nil
}

func printRecord(rec types.ResultRecord) {
	fmt.Printf("\n%s (%s, generator %s, %s)\n", rec.EndpointID, rec.API, rec.Generator, rec.Timestamp.Format("2006-01-02 15:04:05"))
	if rec.Failed() {
		fmt.Printf("generator failed: %s\n", rec.Error)
	}
	fmt.Println(runner.FormatMetrics(rec.Metrics))
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
