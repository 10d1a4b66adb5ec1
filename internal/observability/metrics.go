// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pdiddy/specgrade/pkg/types"
)

// Fixture outcomes recorded in the status label of specgrade_fixtures_total.
const (
	StatusOK             = "ok"
	StatusGeneratorError = "generator_error"
	StatusLoadError      = "load_error"
	StatusStoreError     = "store_error"
	StatusDuplicate      = "duplicate"
)

// Metrics holds the collectors for evaluation runs. Every Metrics has its
// own registry so runs in tests and long-lived servers do not collide.
type Metrics struct {
	registry *prometheus.Registry

	// Fixtures counts processed fixtures.
	// Labels: api, generator, status
	Fixtures *prometheus.CounterVec

	// Score is the latest value of each metric per endpoint.
	// Labels: api, endpoint_id, metric
	Score *prometheus.GaugeVec

	// Duration measures generate-compare-persist time per fixture in seconds.
	// Labels: api
	Duration *prometheus.HistogramVec
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Fixtures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "specgrade_fixtures_total",
				Help: "Golden fixtures processed, by outcome.",
			},
			[]string{"api", "generator", "status"},
		),
		Score: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "specgrade_score",
				Help: "Latest evaluation score per endpoint and metric.",
			},
			[]string{"api", "endpoint_id", "metric"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "specgrade_evaluation_duration_seconds",
				Help:    "Time to generate, score, and persist one fixture.",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
			},
			[]string{"api"},
		),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveResult records a scored fixture: one counter increment and the
// five score gauges.
func (m *Metrics) ObserveResult(rec types.ResultRecord, seconds float64) {
	status := StatusOK
	if rec.Failed() {
		status = StatusGeneratorError
	}
	m.Fixtures.WithLabelValues(rec.API, rec.Generator, status).Inc()
	m.Duration.WithLabelValues(rec.API).Observe(seconds)

	scores := map[string]float64{
		"endpoint_coverage":  rec.Metrics.EndpointCoverage,
		"field_accuracy":     rec.Metrics.FieldAccuracy,
		"hallucination_rate": rec.Metrics.HallucinationRate,
		"schema_validity":    rec.Metrics.SchemaValidity,
		"overall_score":      rec.Metrics.OverallScore,
	}
	for name, v := range scores {
		m.Score.WithLabelValues(rec.API, rec.EndpointID, name).Set(v)
	}
}

// ObserveFailure counts a fixture that produced no result.
func (m *Metrics) ObserveFailure(api, generator, status string) {
	m.Fixtures.WithLabelValues(api, generator, status).Inc()
}

// WriteTextfile writes the current values in the node-exporter textfile
// format. The directory is created if needed.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics file %s: %w", path, err)
	}
	return nil
}
