// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"
)

func TestNormalizeDocumentStringifiesKeys(t *testing.T) {
	src := `
openapi: 3.0.0
paths:
  /posts:
    get:
      responses:
        200:
          description: ok
`
	var doc Document
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))

	doc = NormalizeDocument(doc)
	get := AsMap(AsMap(doc.Paths()["/posts"])["get"])
	require.NotNil(t, get)
	responses := AsMap(get["responses"])
	require.NotNil(t, responses, "responses must be map[string]any after normalization")
	assert.Contains(t, responses, "200")
}

func TestNormalizeDocumentNil(t *testing.T) {
	assert.Nil(t, NormalizeDocument(nil))
}

func TestPathSet(t *testing.T) {
	doc := Document{"paths": map[string]any{"/a": nil, "/b/{id}": nil}}
	assert.Equal(t, map[string]struct{}{"/a": {}, "/b/{id}": {}}, doc.PathSet())

	assert.Empty(t, Document{}.PathSet())
	assert.Empty(t, Document{"paths": "not a map"}.PathSet())
}

func TestEmptyDocument(t *testing.T) {
	doc := EmptyDocument("x API")
	assert.Equal(t, "3.0.0", doc["openapi"])
	assert.Empty(t, doc.Paths())
	assert.NotNil(t, doc.Paths())
}

func TestWeightsValidate(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{"defaults", DefaultWeights, false},
		{"all on coverage", Weights{EndpointCoverage: 1}, false},
		{"sum below one", Weights{0.3, 0.3, 0.25, 0.1}, true},
		{"sum above one", Weights{0.5, 0.5, 0.25, 0.15}, true},
		{"negative weight", Weights{1.2, -0.2, 0, 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrConfiguration))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDefaultWeightsSumToOne(t *testing.T) {
	assert.InDelta(t, 1.0, DefaultWeights.Sum(), 1e-12)
}

func TestSummarize(t *testing.T) {
	records := []ResultRecord{
		{EndpointID: "a", Timestamp: time.Now(), Metrics: MetricsRecord{
			EndpointCoverage: 1, FieldAccuracy: 0.5, HallucinationRate: 0, SchemaValidity: 1, OverallScore: 0.8,
		}},
		{EndpointID: "b", Error: "boom", Metrics: MetricsRecord{
			EndpointCoverage: 0, FieldAccuracy: 0, HallucinationRate: 0.5, SchemaValidity: 0, OverallScore: 0.2,
		}},
	}
	s := Summarize(records)
	assert.Equal(t, 2, s.Tests)
	assert.Equal(t, 1, s.ValidSchemas)
	assert.Equal(t, 1, s.GeneratorFailures)
	assert.InDelta(t, 0.5, s.AvgCoverage, 1e-12)
	assert.InDelta(t, 0.25, s.AvgAccuracy, 1e-12)
	assert.InDelta(t, 0.25, s.AvgHallucination, 1e-12)
	assert.InDelta(t, 0.5, s.AvgValidity, 1e-12)
	assert.InDelta(t, 0.5, s.AvgOverall, 1e-12)
}

func TestSummarizeFailedRecordNotValid(t *testing.T) {
	records := []ResultRecord{
		{EndpointID: "a", Metrics: MetricsRecord{SchemaValidity: 1, OverallScore: 0.9}},
		{EndpointID: "b", Error: "generator timed out", Metrics: MetricsRecord{SchemaValidity: 1, OverallScore: 0.15}},
	}
	s := Summarize(records)
	assert.Equal(t, 1, s.ValidSchemas)
	assert.Equal(t, 1, s.GeneratorFailures)
	assert.InDelta(t, 1.0, s.AvgValidity, 1e-12)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestApplyTargets(t *testing.T) {
	s := Summary{Tests: 1, AvgCoverage: 0.96, AvgAccuracy: 0.5, AvgHallucination: 0.1, AvgValidity: 1}
	s = s.ApplyTargets(DefaultTargets)
	assert.Equal(t, []string{"field_accuracy", "hallucination_rate"}, s.Misses)
	assert.False(t, s.MeetsTargets())

	perfect := Summary{Tests: 1, AvgCoverage: 1, AvgAccuracy: 1, AvgValidity: 1}.ApplyTargets(DefaultTargets)
	assert.True(t, perfect.MeetsTargets())

	assert.True(t, Summary{}.ApplyTargets(DefaultTargets).MeetsTargets())
}
