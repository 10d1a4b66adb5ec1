// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pdiddy/specgrade/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored results over HTTP",
	Long: `Serve exposes the result store read-only: /healthz, /results,
/results/{endpointID}, /results/{endpointID}/generated, and /summary.
With --run-first the corpus is evaluated before serving and the run's
metrics are served at /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8090", "listen address")
	serveCmd.Flags().Bool("run-first", false, "evaluate the corpus before serving")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	runFirst, _ := cmd.Flags().GetBool("run-first")
	ctx := cmd.Context()

	opts := server.Options{Logger: slog.Default()}
	if runFirst {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		eval, err := newEvaluation(ctx, cfg, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer eval.Close()
		if _, err := eval.runner.RunAll(ctx, ""); err != nil {
			return err
		}
		opts.Store, opts.Targets, opts.Metrics = eval.store, cfg.Targets, eval.metrics
	} else {
		rs, cfg, err := openStore()
		if err != nil {
			return err
		}
		defer rs.Close()
		opts.Store, opts.Targets = rs, cfg.Targets
	}

	srv, err := server.New(opts)
	if err != nil {
		return err
	}
	return srv.Run(ctx, addr)
}
