// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package runner

import (
	"fmt"
	"strings"

	"github.com/pdiddy/specgrade/pkg/types"
)

var rule = strings.Repeat("=", 60)

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// FormatMetrics renders one record's scores as a fixed-layout block.
func FormatMetrics(m types.MetricsRecord) string {
	validity := "✗ Invalid"
	if m.Valid() {
		validity = "✓ Valid"
	}

	lines := []string{
		rule,
		"EVALUATION METRICS",
		rule,
		"",
		"Endpoint Coverage:    " + pct(m.EndpointCoverage),
		"Field Accuracy:       " + pct(m.FieldAccuracy),
		"Hallucination Rate:   " + pct(m.HallucinationRate),
		"Schema Validity:      " + validity,
		"",
		"Overall Score:        " + pct(m.OverallScore),
		rule,
	}
	return strings.Join(lines, "\n")
}

// FormatSummary renders the run summary block.
func FormatSummary(s types.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\nSUMMARY\n%s\n", rule, rule)
	if s.Tests == 0 {
		b.WriteString("No results")
		return b.String()
	}

	fmt.Fprintf(&b, "\nTests run:              %d\n", s.Tests)
	fmt.Fprintf(&b, "Valid schemas:          %d/%d\n", s.ValidSchemas, s.Tests)
	if s.GeneratorFailures > 0 {
		fmt.Fprintf(&b, "Generator failures:     %d\n", s.GeneratorFailures)
	}
	fmt.Fprintf(&b, "\nAvg Endpoint Coverage:  %s\n", pct(s.AvgCoverage))
	fmt.Fprintf(&b, "Avg Field Accuracy:     %s\n", pct(s.AvgAccuracy))
	fmt.Fprintf(&b, "Avg Hallucination Rate: %s\n", pct(s.AvgHallucination))
	fmt.Fprintf(&b, "Avg Schema Validity:    %s\n", pct(s.AvgValidity))
	fmt.Fprintf(&b, "Avg Overall Score:      %s\n", pct(s.AvgOverall))
	if len(s.Misses) > 0 {
		fmt.Fprintf(&b, "\nTargets missed:         %s\n", strings.Join(s.Misses, ", "))
	}
	b.WriteString(rule)
	return b.String()
}

// FormatFailures lists per-fixture failures, one per line.
func FormatFailures(failures []Failure) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%d failure(s):\n", len(failures))
	for _, f := range failures {
		id := f.EndpointID
		if id == "" {
			id = "-"
		}
		fmt.Fprintf(&b, "  %-9s %-30s %s: %v\n", f.Kind, id, f.Ref, f.Err)
	}
	return strings.TrimRight(b.String(), "\n")
}
