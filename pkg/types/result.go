// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// MetricsRecord holds the scores for one (generated, expected) document
// pair. Every field is in [0.0, 1.0]. HallucinationRate is lower-is-better;
// the others are higher-is-better.
type MetricsRecord struct {
	EndpointCoverage  float64 `json:"endpoint_coverage" yaml:"endpoint_coverage"`
	FieldAccuracy     float64 `json:"field_accuracy" yaml:"field_accuracy"`
	HallucinationRate float64 `json:"hallucination_rate" yaml:"hallucination_rate"`
	SchemaValidity    float64 `json:"schema_validity" yaml:"schema_validity"`
	OverallScore      float64 `json:"overall_score" yaml:"overall_score"`
}

// Valid reports whether the generated document passed schema validation.
func (m MetricsRecord) Valid() bool {
	return m.SchemaValidity == 1.0
}

// ResultRecord wraps a MetricsRecord with provenance. It is persisted keyed
// by EndpointID; a rerun overwrites the previous record.
type ResultRecord struct {
	EndpointID string        `json:"endpoint_id" yaml:"endpoint_id"`
	API        string        `json:"api" yaml:"api"`
	Timestamp  time.Time     `json:"timestamp" yaml:"timestamp"`
	Generator  string        `json:"generator" yaml:"generator"`
	Metrics    MetricsRecord `json:"metrics" yaml:"metrics"`

	// Error records a generator failure. The metrics were then computed
	// against an empty placeholder document and must not be read as a
	// legitimate empty answer.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the generator failed for this record.
func (r ResultRecord) Failed() bool {
	return r.Error != ""
}

// Summary aggregates the results of one run. It is derived on demand and
// never stored.
type Summary struct {
	Tests             int     `json:"tests" yaml:"tests"`
	ValidSchemas      int     `json:"valid_schemas" yaml:"valid_schemas"`
	GeneratorFailures int     `json:"generator_failures" yaml:"generator_failures"`
	AvgCoverage       float64 `json:"avg_endpoint_coverage" yaml:"avg_endpoint_coverage"`
	AvgAccuracy       float64 `json:"avg_field_accuracy" yaml:"avg_field_accuracy"`
	AvgHallucination  float64 `json:"avg_hallucination_rate" yaml:"avg_hallucination_rate"`
	AvgValidity       float64 `json:"avg_schema_validity" yaml:"avg_schema_validity"`
	AvgOverall        float64 `json:"avg_overall_score" yaml:"avg_overall_score"`

	// Misses lists the metric names whose averages missed the configured
	// targets. Empty when no targets were applied or all were met.
	Misses []string `json:"target_misses,omitempty" yaml:"target_misses,omitempty"`
}

// MeetsTargets reports whether every averaged metric met its target.
func (s Summary) MeetsTargets() bool {
	return len(s.Misses) == 0
}

// Summarize computes the arithmetic mean of each metric across records
// and counts records with a perfectly valid schema. A record whose
// generator failed was scored against the empty placeholder, so it never
// counts as a valid schema. An empty input yields a zero Summary.
func Summarize(records []ResultRecord) Summary {
	if len(records) == 0 {
		return Summary{}
	}
	s := Summary{Tests: len(records)}
	for _, r := range records {
		m := r.Metrics
		s.AvgCoverage += m.EndpointCoverage
		s.AvgAccuracy += m.FieldAccuracy
		s.AvgHallucination += m.HallucinationRate
		s.AvgValidity += m.SchemaValidity
		s.AvgOverall += m.OverallScore
		if r.Failed() {
			s.GeneratorFailures++
		} else if m.Valid() {
			s.ValidSchemas++
		}
	}
	n := float64(len(records))
	s.AvgCoverage /= n
	s.AvgAccuracy /= n
	s.AvgHallucination /= n
	s.AvgValidity /= n
	s.AvgOverall /= n
	return s
}

// ApplyTargets records which averages miss t. Hallucination is compared as
// a ceiling, the other metrics as floors.
func (s Summary) ApplyTargets(t Targets) Summary {
	s.Misses = nil
	if s.Tests == 0 {
		return s
	}
	if s.AvgCoverage < t.EndpointCoverage {
		s.Misses = append(s.Misses, "endpoint_coverage")
	}
	if s.AvgAccuracy < t.FieldAccuracy {
		s.Misses = append(s.Misses, "field_accuracy")
	}
	if s.AvgHallucination > t.HallucinationRate {
		s.Misses = append(s.Misses, "hallucination_rate")
	}
	if s.AvgValidity < t.SchemaValidity {
		s.Misses = append(s.Misses, "schema_validity")
	}
	return s
}
