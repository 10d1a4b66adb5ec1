// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pdiddy/specgrade/internal/server"
	"github.com/pdiddy/specgrade/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rerun the evaluation when fixtures change or on a schedule",
	Long: `Watch evaluates the whole corpus once, then again whenever a fixture file
under the golden directory changes and, with --schedule, on a cron schedule
(for example "0 3 * * *", "@hourly", or "@every 30m"). Runs never overlap.

With --addr the result store and the live metrics are also served over HTTP.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("schedule", "", "cron expression or descriptor for scheduled runs")
	watchCmd.Flags().Bool("no-fs", false, "ignore fixture changes and rely on the schedule only")
	watchCmd.Flags().Duration("debounce", 0, "quiet period after a fixture change (default 500ms)")
	watchCmd.Flags().String("addr", "", "also serve results and metrics on this address")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	schedule, _ := cmd.Flags().GetString("schedule")
	noFS, _ := cmd.Flags().GetBool("no-fs")
	debounce, _ := cmd.Flags().GetDuration("debounce")
	addr, _ := cmd.Flags().GetString("addr")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	eval, err := newEvaluation(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer eval.Close()

	dir := cfg.Corpus.GoldenDir
	if noFS {
		dir = ""
	}
	w, err := watch.New(watch.Options{
		Dir:        dir,
		Schedule:   schedule,
		Debounce:   debounce,
		RunOnStart: true,
		Logger:     slog.Default(),
		Run: func(ctx context.Context, reason string) error {
			report, err := eval.runner.RunAll(ctx, "")
			if mErr := eval.writeMetrics(); mErr != nil {
				slog.Warn("writing metrics file failed", "error", mErr)
			}
			if err != nil {
				return err
			}
			return checkReport(report, false)
		},
	})
	if err != nil {
		return err
	}

	if addr != "" {
		srv, err := server.New(server.Options{
			Store:   eval.store,
			Targets: cfg.Targets,
			Metrics: eval.metrics,
			Logger:  slog.Default(),
		})
		if err != nil {
			return err
		}
		go func() {
			if err := srv.Run(ctx, addr); err != nil {
				slog.Error("results server stopped", "error", err)
				cancel()
			}
		}()
	}

	return w.Start(ctx)
}
