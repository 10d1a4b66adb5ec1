// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package compare scores a generated API document against a golden one.
// All functions are pure: neither document is modified.
package compare

import (
	"github.com/pdiddy/specgrade/pkg/types"
)

// successCodes are the response status codes inspected by FieldAccuracy.
var successCodes = []string{"200", "201"}

const jsonMediaType = "application/json"

// Comparator bundles the individual metrics into a MetricsRecord using a
// fixed set of weights.
type Comparator struct {
	weights types.Weights
}

// New returns a Comparator for w. It fails with types.ErrConfiguration
// when the weights are invalid.
func New(w types.Weights) (*Comparator, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Comparator{weights: w}, nil
}

// Weights returns the weights used for the overall score.
func (c *Comparator) Weights() types.Weights {
	return c.weights
}

// Compare computes all metrics for one document pair.
func (c *Comparator) Compare(generated, expected types.Document) types.MetricsRecord {
	m := types.MetricsRecord{
		EndpointCoverage:  EndpointCoverage(generated, expected),
		FieldAccuracy:     FieldAccuracy(generated, expected),
		HallucinationRate: HallucinationRate(generated, expected),
		SchemaValidity:    SchemaValidity(generated),
	}
	m.OverallScore = OverallScore(m, c.weights)
	return m
}

// EndpointCoverage returns the fraction of expected paths present in the
// generated document. An expected document with no paths is fully covered.
func EndpointCoverage(generated, expected types.Document) float64 {
	exp := expected.PathSet()
	if len(exp) == 0 {
		return 1.0
	}
	gen := generated.PathSet()
	found := 0
	for p := range exp {
		if _, ok := gen[p]; ok {
			found++
		}
	}
	return float64(found) / float64(len(exp))
}

// FieldAccuracy returns the fraction of expected response fields that the
// generated document also declares. Only paths present in both documents
// count. Methods or status codes missing from the generated document add
// nothing to the denominator; endpoint coverage accounts for them. Only
// 200 and 201 JSON response bodies are inspected. With no comparable
// fields the result is 0.0.
func FieldAccuracy(generated, expected types.Document) float64 {
	expPaths := expected.Paths()
	genPaths := generated.Paths()

	total, correct := 0, 0
	for path, expItem := range expPaths {
		genItem, ok := genPaths[path]
		if !ok {
			continue
		}
		expMethods := types.AsMap(expItem)
		genMethods := types.AsMap(genItem)

		for method, expOp := range expMethods {
			genOp, ok := genMethods[method]
			if !ok {
				continue
			}
			expResponses := types.AsMap(types.AsMap(expOp)["responses"])
			genResponses := types.AsMap(types.AsMap(genOp)["responses"])

			for _, code := range successCodes {
				expResp, ok := expResponses[code]
				if !ok {
					continue
				}
				expFields := responseFields(expResp)
				if len(expFields) == 0 {
					continue
				}
				genFields := responseFields(genResponses[code])

				total += len(expFields)
				for f := range expFields {
					if _, ok := genFields[f]; ok {
						correct++
					}
				}
			}
		}
	}

	if total == 0 {
		return 0.0
	}
	return float64(correct) / float64(total)
}

// responseFields extracts the property names of a response's JSON body.
func responseFields(response any) map[string]struct{} {
	content := types.AsMap(types.AsMap(response)["content"])
	schema := types.AsMap(types.AsMap(content[jsonMediaType])["schema"])
	return schemaFields(schema)
}

// schemaFields returns the property names of an object schema, or of the
// item schema when schema is an array.
func schemaFields(schema map[string]any) map[string]struct{} {
	if schema["type"] == "array" {
		schema = types.AsMap(schema["items"])
	}
	props := types.AsMap(schema["properties"])
	fields := make(map[string]struct{}, len(props))
	for name := range props {
		fields[name] = struct{}{}
	}
	return fields
}

// HallucinationRate returns the fraction of generated paths that do not
// exist in the expected document. Lower is better. A generated document
// with no paths cannot hallucinate.
func HallucinationRate(generated, expected types.Document) float64 {
	gen := generated.PathSet()
	if len(gen) == 0 {
		return 0.0
	}
	exp := expected.PathSet()
	hallucinated := 0
	for p := range gen {
		if _, ok := exp[p]; !ok {
			hallucinated++
		}
	}
	return float64(hallucinated) / float64(len(gen))
}

// OverallScore blends the component metrics with w. Hallucination rate is
// inverted before weighting; the other metrics are used as they are. The
// OverallScore field of m is ignored.
func OverallScore(m types.MetricsRecord, w types.Weights) float64 {
	return w.EndpointCoverage*m.EndpointCoverage +
		w.FieldAccuracy*m.FieldAccuracy +
		w.Hallucination*(1.0-m.HallucinationRate) +
		w.SchemaValidity*m.SchemaValidity
}
