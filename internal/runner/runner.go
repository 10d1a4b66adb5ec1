// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runner evaluates a corpus of golden fixtures: for each fixture it
// asks the generator for a document, scores it against the expected
// document, and records both. Fixtures run one at a time.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/pdiddy/specgrade/internal/compare"
	"github.com/pdiddy/specgrade/internal/fixture"
	"github.com/pdiddy/specgrade/internal/generate"
	"github.com/pdiddy/specgrade/internal/observability"
	"github.com/pdiddy/specgrade/internal/store"
	"github.com/pdiddy/specgrade/pkg/types"
)

// FailureKind classifies a per-fixture failure.
type FailureKind string

const (
	FailureLoad      FailureKind = "load"
	FailureGenerator FailureKind = "generator"
	FailureStore     FailureKind = "store"
	FailureDuplicate FailureKind = "duplicate"
)

// Failure records a fixture that did not produce a clean result. Generator
// failures still produce a flagged ResultRecord; the other kinds produce
// none.
type Failure struct {
	Ref        string      `json:"ref" yaml:"ref"`
	EndpointID string      `json:"endpoint_id,omitempty" yaml:"endpoint_id,omitempty"`
	Kind       FailureKind `json:"kind" yaml:"kind"`
	Err        error       `json:"-" yaml:"-"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s failure for %s: %v", f.Kind, f.Ref, f.Err)
}

// Report is the outcome of RunAll.
type Report struct {
	RunID    string               `json:"run_id" yaml:"run_id"`
	Results  []types.ResultRecord `json:"results" yaml:"results"`
	Failures []Failure            `json:"failures,omitempty" yaml:"failures,omitempty"`
	Summary  types.Summary        `json:"summary" yaml:"summary"`
}

// HasFailures reports whether any fixture failed.
func (r *Report) HasFailures() bool {
	return len(r.Failures) > 0
}

// Options wires a Runner. Generator, Comparator, Fixtures, and Store are
// required; the rest default to no-ops.
type Options struct {
	Generator  generate.Generator
	Comparator *compare.Comparator
	Fixtures   fixture.Source
	Store      store.ResultStore

	Targets types.Targets
	Metrics *observability.Metrics
	Tracer  trace.Tracer
	Logger  *slog.Logger

	// Out receives the console report. Nil discards it.
	Out io.Writer

	// Now stamps result records. Nil uses time.Now.
	Now func() time.Time
}

// Runner evaluates fixtures sequentially.
type Runner struct {
	gen      generate.Generator
	cmp      *compare.Comparator
	fixtures fixture.Source
	store    store.ResultStore
	targets  types.Targets
	metrics  *observability.Metrics
	tracer   trace.Tracer
	log      *slog.Logger
	out      io.Writer
	now      func() time.Time
}

// New validates opts and returns a Runner.
func New(opts Options) (*Runner, error) {
	var missing []string
	if opts.Generator == nil {
		missing = append(missing, "generator")
	}
	if opts.Comparator == nil {
		missing = append(missing, "comparator")
	}
	if opts.Fixtures == nil {
		missing = append(missing, "fixture source")
	}
	if opts.Store == nil {
		missing = append(missing, "result store")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: runner requires %s", types.ErrConfiguration, strings.Join(missing, ", "))
	}

	r := &Runner{
		gen:      opts.Generator,
		cmp:      opts.Comparator,
		fixtures: opts.Fixtures,
		store:    opts.Store,
		targets:  opts.Targets,
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
		log:      opts.Logger,
		out:      opts.Out,
		now:      opts.Now,
	}
	if r.tracer == nil {
		r.tracer = noop.NewTracerProvider().Tracer(observability.TracerName)
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	if r.out == nil {
		r.out = io.Discard
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r, nil
}

// RunSingle generates a document for fx.API, scores it against
// fx.ExpectedSpec, and stores the document and the result under
// fx.EndpointID. A generator failure does not return an error: the
// fixture is scored against an empty placeholder and the record carries
// the failure in Error. Returned errors are fixture check or store errors.
func (r *Runner) RunSingle(ctx context.Context, fx types.GoldenFixture) (types.ResultRecord, error) {
	if fx.Template {
		return types.ResultRecord{}, &fixture.LoadError{Path: fx.Path, Err: errors.New("fixture is a template")}
	}
	if err := fixture.Check(fx); err != nil {
		return types.ResultRecord{}, &fixture.LoadError{Path: fx.Path, Err: err}
	}

	ctx, span := r.tracer.Start(ctx, "runner.run_single", trace.WithAttributes(
		attribute.String("specgrade.api", fx.API),
		attribute.String("specgrade.endpoint_id", fx.EndpointID),
	))
	defer span.End()

	start := time.Now()
	name := fx.EndpointID
	if fx.Path != "" {
		name = filepath.Base(fx.Path)
	}
	fmt.Fprintf(r.out, "\nTesting: %s\n", name)
	fmt.Fprintln(r.out, strings.Repeat("-", 60))

	fmt.Fprintf(r.out, "Generating spec for %s...\n", fx.API)
	generated, genErr := r.generate(ctx, fx.API)
	if genErr != nil {
		fmt.Fprintf(r.out, "failed  %s: %v\n", fx.EndpointID, genErr)
		r.log.Warn("generator failed; scoring against empty document",
			"endpoint_id", fx.EndpointID, "api", fx.API, "generator", r.gen.Name(), "error", genErr)
		span.RecordError(genErr)
		generated = types.EmptyDocument(fx.API + " API")
	}

	if err := r.store.SaveGenerated(ctx, fx.EndpointID, generated); err != nil {
		return types.ResultRecord{}, r.storeFailed(span, fx, err)
	}
	fmt.Fprintf(r.out, "Saved: generated document for %s\n", fx.EndpointID)

	fmt.Fprintln(r.out, "Calculating metrics...")
	rec := types.ResultRecord{
		EndpointID: fx.EndpointID,
		API:        fx.API,
		Timestamp:  r.now(),
		Generator:  r.gen.Name(),
		Metrics:    r.cmp.Compare(generated, fx.ExpectedSpec),
	}
	if genErr != nil {
		rec.Error = genErr.Error()
	}

	if err := r.store.SaveResult(ctx, rec); err != nil {
		return types.ResultRecord{}, r.storeFailed(span, fx, err)
	}
	fmt.Fprintf(r.out, "Saved: result for %s\n", fx.EndpointID)
	fmt.Fprintln(r.out, FormatMetrics(rec.Metrics))

	if r.metrics != nil {
		r.metrics.ObserveResult(rec, time.Since(start).Seconds())
	}
	span.SetAttributes(attribute.Float64("specgrade.overall_score", rec.Metrics.OverallScore))
	if rec.Failed() {
		span.SetStatus(codes.Error, "generator failed")
	}
	r.log.Debug("fixture evaluated",
		"endpoint_id", rec.EndpointID,
		"overall_score", rec.Metrics.OverallScore,
		"schema_validity", rec.Metrics.SchemaValidity)
	return rec, nil
}

// generate calls the generator in its own span. A nil document without an
// error counts as a failure.
func (r *Runner) generate(ctx context.Context, api string) (types.Document, error) {
	ctx, span := r.tracer.Start(ctx, "generate."+r.gen.Name(), trace.WithAttributes(
		attribute.String("specgrade.api", api),
	))
	defer span.End()

	doc, err := r.gen.Generate(ctx, api)
	if err == nil && doc == nil {
		err = &generate.Error{API: api, Variant: r.gen.Name(), Err: errors.New("no document returned")}
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return doc, nil
}

func (r *Runner) storeFailed(span trace.Span, fx types.GoldenFixture, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "store failed")
	if r.metrics != nil {
		r.metrics.ObserveFailure(fx.API, r.gen.Name(), observability.StatusStoreError)
	}
	return fmt.Errorf("storing %s: %w", fx.EndpointID, err)
}

// RunFixture loads the fixture identified by ref and runs it.
func (r *Runner) RunFixture(ctx context.Context, ref string) (types.ResultRecord, error) {
	fx, err := r.fixtures.Load(ref)
	if err != nil {
		return types.ResultRecord{}, err
	}
	return r.RunSingle(ctx, fx)
}

// RunAll discovers fixtures, optionally limited to one API, and runs each
// in order. Per-fixture failures are collected in the report and do not
// stop the run. The summary is computed once every fixture has finished.
// A cancelled context stops the run between fixtures; the partial report is
// returned with the context error.
func (r *Runner) RunAll(ctx context.Context, apiFilter string) (*Report, error) {
	fmt.Fprintln(r.out, strings.Repeat("=", 60))
	fmt.Fprintln(r.out, "RUNNING ALL EVALUATIONS")
	fmt.Fprintln(r.out, strings.Repeat("=", 60))

	refs, err := r.fixtures.Discover(apiFilter)
	if err != nil {
		return nil, fmt.Errorf("discovering fixtures: %w", err)
	}
	fmt.Fprintf(r.out, "\nFound %d golden spec(s)\n", len(refs))

	report := &Report{RunID: uuid.NewString()}
	log := r.log.With("run_id", report.RunID)
	log.Info("evaluation started", "fixtures", len(refs), "api_filter", apiFilter, "generator", r.gen.Name())

	ctx, span := r.tracer.Start(ctx, "runner.run_all", trace.WithAttributes(
		attribute.String("specgrade.run_id", report.RunID),
		attribute.String("specgrade.api_filter", apiFilter),
		attribute.Int("specgrade.fixtures", len(refs)),
	))
	defer span.End()

	seen := make(map[string]string)
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			report.Summary = types.Summarize(report.Results).ApplyTargets(r.targets)
			span.SetStatus(codes.Error, "cancelled")
			return report, err
		}

		fx, err := r.fixtures.Load(ref)
		if err != nil {
			fmt.Fprintf(r.out, "failed  %s: %v\n", ref, err)
			r.fail(log, report, Failure{Ref: ref, Kind: FailureLoad, Err: err}, apiFromRef(ref))
			continue
		}
		if fx.Template {
			fmt.Fprintf(r.out, "skipped %s (template)\n", ref)
			continue
		}
		if prev, dup := seen[fx.EndpointID]; dup {
			err := fmt.Errorf("endpoint_id %q already used by %s", fx.EndpointID, prev)
			fmt.Fprintf(r.out, "failed  %s: %v\n", ref, err)
			r.fail(log, report, Failure{Ref: ref, EndpointID: fx.EndpointID, Kind: FailureDuplicate, Err: err}, fx.API)
			continue
		}
		seen[fx.EndpointID] = ref

		rec, err := r.RunSingle(ctx, fx)
		if err != nil {
			fmt.Fprintf(r.out, "failed  %s: %v\n", ref, err)
			kind := FailureStore
			var loadErr *fixture.LoadError
			if errors.As(err, &loadErr) {
				kind = FailureLoad
			}
			report.Failures = append(report.Failures, Failure{Ref: ref, EndpointID: fx.EndpointID, Kind: kind, Err: err})
			log.Error("fixture failed", "ref", ref, "kind", kind, "error", err)
			continue
		}
		report.Results = append(report.Results, rec)
		if rec.Failed() {
			report.Failures = append(report.Failures, Failure{
				Ref:        ref,
				EndpointID: rec.EndpointID,
				Kind:       FailureGenerator,
				Err:        errors.New(rec.Error),
			})
		}
	}

	report.Summary = types.Summarize(report.Results).ApplyTargets(r.targets)
	fmt.Fprintln(r.out, FormatSummary(report.Summary))
	if len(report.Failures) > 0 {
		fmt.Fprintln(r.out, FormatFailures(report.Failures))
	}

	span.SetAttributes(
		attribute.Int("specgrade.results", len(report.Results)),
		attribute.Int("specgrade.failures", len(report.Failures)),
		attribute.Float64("specgrade.avg_overall_score", report.Summary.AvgOverall),
	)
	if report.HasFailures() {
		span.SetStatus(codes.Error, fmt.Sprintf("%d fixture(s) failed", len(report.Failures)))
	}
	log.Info("evaluation finished",
		"results", len(report.Results),
		"failures", len(report.Failures),
		"avg_overall_score", report.Summary.AvgOverall)
	return report, nil
}

func (r *Runner) fail(log *slog.Logger, report *Report, f Failure, api string) {
	report.Failures = append(report.Failures, f)
	if r.metrics != nil {
		status := observability.StatusLoadError
		if f.Kind == FailureDuplicate {
			status = observability.StatusDuplicate
		}
		r.metrics.ObserveFailure(api, r.gen.Name(), status)
	}
	log.Error("fixture failed", "ref", f.Ref, "kind", f.Kind, "error", f.Err)
}

// apiFromRef guesses the API group of an unloadable fixture from its
// directory name.
func apiFromRef(ref string) string {
	api := filepath.Base(filepath.Dir(ref))
	if api == "." || api == string(filepath.Separator) {
		return "unknown"
	}
	return api
}
