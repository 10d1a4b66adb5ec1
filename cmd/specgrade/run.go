// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/specgrade/internal/compare"
	"github.com/pdiddy/specgrade/internal/fixture"
	"github.com/pdiddy/specgrade/internal/generate"
	"github.com/pdiddy/specgrade/internal/observability"
	"github.com/pdiddy/specgrade/internal/runner"
	"github.com/pdiddy/specgrade/internal/store"
	"github.com/pdiddy/specgrade/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate the golden corpus with the configured generator",
	Long: `Run discovers golden fixtures, generates a document for each fixture's
API, scores it against the expected document, and stores the generated
document and the scores. Fixtures run one at a time; a failing fixture is
reported and the run continues.

Use --api to limit the run to one API directory and --fixture to evaluate a
single fixture file. The command exits non-zero when no fixture was found,
when any fixture failed, or, with --enforce-targets, when an average missed
its target.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("api", "", "only evaluate fixtures for this API")
	runCmd.Flags().String("fixture", "", "evaluate a single fixture file")
	runCmd.Flags().Bool("enforce-targets", false, "exit non-zero when an average misses its target")
	runCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this textfile after the run")

	_ = viper.BindPFlag("observability.metrics_file", runCmd.Flags().Lookup("metrics-file"))

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	api, _ := cmd.Flags().GetString("api")
	fixturePath, _ := cmd.Flags().GetString("fixture")
	enforce, _ := cmd.Flags().GetBool("enforce-targets")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	eval, err := newEvaluation(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer eval.Close()

	if fixturePath != "" {
		rec, err := eval.runner.RunFixture(ctx, fixturePath)
		if err != nil {
			return err
		}
		if err := eval.writeMetrics(); err != nil {
			return err
		}
		if rec.Failed() {
			return fmt.Errorf("generator failed for %s: %s", rec.EndpointID, rec.Error)
		}
		return nil
	}

	report, err := eval.runner.RunAll(ctx, api)
	if mErr := eval.writeMetrics(); mErr != nil {
		slog.Warn("writing metrics file failed", "error", mErr)
	}
	if err != nil {
		return err
	}
	return checkReport(report, enforce)
}

// checkReport turns an unsuccessful run into an error for the exit status.
func checkReport(report *runner.Report, enforce bool) error {
	var problems []string
	if report.Summary.Tests == 0 && len(report.Failures) == 0 {
		problems = append(problems, "no golden fixtures found")
	}
	if report.HasFailures() {
		problems = append(problems, fmt.Sprintf("%d fixture(s) failed", len(report.Failures)))
	}
	if enforce && !report.Summary.MeetsTargets() {
		problems = append(problems, "targets missed: "+strings.Join(report.Summary.Misses, ", "))
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// evaluation bundles a configured runner with the resources it holds.
type evaluation struct {
	cfg      types.Config
	runner   *runner.Runner
	store    store.ResultStore
	metrics  *observability.Metrics
	shutdown observability.ShutdownFunc
}

func newEvaluation(ctx context.Context, cfg types.Config, out io.Writer) (*evaluation, error) {
	gen, err := generate.New(cfg.Generator)
	if err != nil {
		return nil, err
	}
	cmp, err := compare.New(cfg.Weights)
	if err != nil {
		return nil, err
	}
	src, err := fixture.NewDir(cfg.Corpus.GoldenDir)
	if err != nil {
		return nil, err
	}
	rs, err := store.Open(cfg.Store)
	if err != nil {
		return nil, err
	}

	tracer, shutdown, err := observability.NewTracer(ctx, observability.TraceConfig{
		ServiceVersion: version,
		Endpoint:       cfg.Observability.OTLPEndpoint,
		Insecure:       cfg.Observability.OTLPInsecure,
	})
	if err != nil {
		rs.Close()
		return nil, err
	}

	metrics := observability.NewMetrics()
	r, err := runner.New(runner.Options{
		Generator:  gen,
		Comparator: cmp,
		Fixtures:   src,
		Store:      rs,
		Targets:    cfg.Targets,
		Metrics:    metrics,
		Tracer:     tracer,
		Logger:     slog.Default(),
		Out:        out,
	})
	if err != nil {
		rs.Close()
		return nil, err
	}

	return &evaluation{
		cfg:      cfg,
		runner:   r,
		store:    rs,
		metrics:  metrics,
		shutdown: shutdown,
	}, nil
}

func (e *evaluation) writeMetrics() error {
	if e.cfg.Observability.MetricsFile == "" {
		return nil
	}
	return e.metrics.WriteTextfile(e.cfg.Observability.MetricsFile)
}

// Close flushes spans and closes the store.
func (e *evaluation) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.shutdown(ctx); err != nil {
		slog.Warn("flushing traces failed", "error", err)
	}
	if err := e.store.Close(); err != nil {
		slog.Warn("closing store failed", "error", err)
	}
}

// openStore opens the configured result store for read-only commands.
func openStore() (store.ResultStore, types.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, types.Config{}, err
	}
	rs, err := store.Open(cfg.Store)
	if err != nil {
		return nil, types.Config{}, err
	}
	return rs, cfg, nil
}
