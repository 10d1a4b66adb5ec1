// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package compare

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/specgrade/pkg/types"
)

// --- test helpers ---

func objectSchema(fields ...string) map[string]any {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		props[f] = map[string]any{"type": "string"}
	}
	return map[string]any{"type": "object", "properties": props}
}

func arraySchema(fields ...string) map[string]any {
	return map[string]any{"type": "array", "items": objectSchema(fields...)}
}

func jsonResponse(schema map[string]any) map[string]any {
	return map[string]any{
		"description": "Success",
		"content": map[string]any{
			"application/json": map[string]any{"schema": schema},
		},
	}
}

func operation(responses map[string]any) map[string]any {
	return map[string]any{"responses": responses}
}

func doc(paths map[string]any) types.Document {
	return types.Document{
		"openapi": "3.0.0",
		"info":    map[string]any{"title": "Test API", "version": "1.0.0"},
		"paths":   paths,
	}
}

func postsDoc(fields ...string) types.Document {
	return doc(map[string]any{
		"/posts": map[string]any{
			"get": operation(map[string]any{"200": jsonResponse(arraySchema(fields...))}),
		},
	})
}

func pathsOnly(paths ...string) types.Document {
	m := make(map[string]any, len(paths))
	for _, p := range paths {
		m[p] = map[string]any{"get": operation(map[string]any{"200": map[string]any{"description": "ok"}})}
	}
	return doc(m)
}

// --- endpoint coverage ---

func TestEndpointCoverage(t *testing.T) {
	tests := []struct {
		name      string
		generated types.Document
		expected  types.Document
		want      float64
	}{
		{"identical", pathsOnly("/a", "/b"), pathsOnly("/a", "/b"), 1.0},
		{"partial", pathsOnly("/posts", "/fake-endpoint"), pathsOnly("/posts", "/posts/{id}", "/users"), 1.0 / 3.0},
		{"none found", pathsOnly("/x"), pathsOnly("/a"), 0.0},
		{"empty expected", pathsOnly("/x", "/y"), pathsOnly(), 1.0},
		{"expected without paths key", pathsOnly("/x"), types.Document{"openapi": "3.0.0"}, 1.0},
		{"placeholder names differ", pathsOnly("/posts/{postId}"), pathsOnly("/posts/{id}"), 0.0},
		{"trailing slash differs", pathsOnly("/posts/"), pathsOnly("/posts"), 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EndpointCoverage(tt.generated, tt.expected), 1e-12)
		})
	}
}

// --- field accuracy ---

func TestFieldAccuracy(t *testing.T) {
	tests := []struct {
		name      string
		generated types.Document
		expected  types.Document
		want      float64
	}{
		{
			name:      "missing one field",
			generated: postsDoc("id", "title", "body"),
			expected:  postsDoc("id", "title", "body", "userId"),
			want:      0.75,
		},
		{
			name:      "identical",
			generated: postsDoc("id", "title"),
			expected:  postsDoc("id", "title"),
			want:      1.0,
		},
		{
			name:      "extra generated fields are not penalized",
			generated: postsDoc("id", "title", "extra"),
			expected:  postsDoc("id", "title"),
			want:      1.0,
		},
		{
			name:      "no common paths",
			generated: pathsOnly("/other"),
			expected:  postsDoc("id"),
			want:      0.0,
		},
		{
			name:      "generated path without schema",
			generated: pathsOnly("/posts"),
			expected:  postsDoc("id", "title"),
			want:      0.0,
		},
		{
			name: "method missing from generated is skipped",
			generated: doc(map[string]any{
				"/posts": map[string]any{
					"get": operation(map[string]any{"200": jsonResponse(arraySchema("id", "title"))}),
				},
			}),
			expected: doc(map[string]any{
				"/posts": map[string]any{
					"get":  operation(map[string]any{"200": jsonResponse(arraySchema("id", "title"))}),
					"post": operation(map[string]any{"201": jsonResponse(objectSchema("id", "a", "b", "c"))}),
				},
			}),
			want: 1.0,
		},
		{
			name: "201 object schema",
			generated: doc(map[string]any{
				"/posts": map[string]any{
					"post": operation(map[string]any{"201": jsonResponse(objectSchema("id"))}),
				},
			}),
			expected: doc(map[string]any{
				"/posts": map[string]any{
					"post": operation(map[string]any{"201": jsonResponse(objectSchema("id", "title"))}),
				},
			}),
			want: 0.5,
		},
		{
			name: "other status codes ignored",
			generated: doc(map[string]any{
				"/posts": map[string]any{
					"get": operation(map[string]any{"404": jsonResponse(objectSchema("message"))}),
				},
			}),
			expected: doc(map[string]any{
				"/posts": map[string]any{
					"get": operation(map[string]any{"404": jsonResponse(objectSchema("error"))}),
				},
			}),
			want: 0.0,
		},
		{
			name: "status missing from generated counts against accuracy",
			generated: doc(map[string]any{
				"/posts": map[string]any{
					"get": operation(map[string]any{"200": jsonResponse(arraySchema("id"))}),
				},
			}),
			expected: doc(map[string]any{
				"/posts": map[string]any{
					"get": operation(map[string]any{
						"200": jsonResponse(arraySchema("id")),
						"201": jsonResponse(objectSchema("a", "b", "c")),
					}),
				},
			}),
			want: 0.25,
		},
		{
			name: "accumulates across paths",
			generated: doc(map[string]any{
				"/a": map[string]any{"get": operation(map[string]any{"200": jsonResponse(objectSchema("x"))})},
				"/b": map[string]any{"get": operation(map[string]any{"200": jsonResponse(objectSchema("p", "q", "r"))})},
			}),
			expected: doc(map[string]any{
				"/a": map[string]any{"get": operation(map[string]any{"200": jsonResponse(objectSchema("x", "y"))})},
				"/b": map[string]any{"get": operation(map[string]any{"200": jsonResponse(objectSchema("p", "q"))})},
			}),
			want: 3.0 / 4.0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, FieldAccuracy(tt.generated, tt.expected), 1e-12)
		})
	}
}

// --- hallucination rate ---

func TestHallucinationRate(t *testing.T) {
	tests := []struct {
		name      string
		generated types.Document
		expected  types.Document
		want      float64
	}{
		{"scenario", pathsOnly("/posts", "/fake-endpoint"), pathsOnly("/posts", "/posts/{id}", "/users"), 0.5},
		{"identical", pathsOnly("/a"), pathsOnly("/a"), 0.0},
		{"all hallucinated", pathsOnly("/x", "/y"), pathsOnly("/a"), 1.0},
		{"empty generated", pathsOnly(), pathsOnly("/a", "/b"), 0.0},
		{"generated without paths key", types.Document{}, pathsOnly("/a"), 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, HallucinationRate(tt.generated, tt.expected), 1e-12)
		})
	}
}

// --- overall score ---

func TestOverallScoreWeights(t *testing.T) {
	w := types.DefaultWeights
	assert.InDelta(t, 1.0, w.Sum(), 1e-12)

	tests := []struct {
		name string
		m    types.MetricsRecord
		want float64
	}{
		{"perfect", types.MetricsRecord{EndpointCoverage: 1, FieldAccuracy: 1, HallucinationRate: 0, SchemaValidity: 1}, 1.0},
		{"worst", types.MetricsRecord{EndpointCoverage: 0, FieldAccuracy: 0, HallucinationRate: 1, SchemaValidity: 0}, 0.0},
		{"coverage only", types.MetricsRecord{EndpointCoverage: 1, HallucinationRate: 1}, 0.30},
		{"accuracy only", types.MetricsRecord{FieldAccuracy: 1, HallucinationRate: 1}, 0.30},
		{"no hallucination only", types.MetricsRecord{}, 0.25},
		{"validity only", types.MetricsRecord{SchemaValidity: 1, HallucinationRate: 1}, 0.15},
		{"mixed", types.MetricsRecord{EndpointCoverage: 0.5, FieldAccuracy: 0.75, HallucinationRate: 0.5, SchemaValidity: 1}, 0.15 + 0.225 + 0.125 + 0.15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, OverallScore(tt.m, w), 1e-12)
		})
	}
}

func TestOverallScoreIsLinear(t *testing.T) {
	w := types.DefaultWeights
	a := types.MetricsRecord{EndpointCoverage: 0.2, FieldAccuracy: 0.4, HallucinationRate: 0.6, SchemaValidity: 0}
	b := types.MetricsRecord{EndpointCoverage: 0.8, FieldAccuracy: 0.6, HallucinationRate: 0.2, SchemaValidity: 1}
	mid := types.MetricsRecord{EndpointCoverage: 0.5, FieldAccuracy: 0.5, HallucinationRate: 0.4, SchemaValidity: 0.5}

	assert.InDelta(t, (OverallScore(a, w)+OverallScore(b, w))/2, OverallScore(mid, w), 1e-12)
}

func TestOverallScoreDirection(t *testing.T) {
	w := types.DefaultWeights
	base := types.MetricsRecord{EndpointCoverage: 0.5, FieldAccuracy: 0.5, HallucinationRate: 0.5, SchemaValidity: 0}

	better := base
	better.EndpointCoverage = 0.6
	assert.Greater(t, OverallScore(better, w), OverallScore(base, w))

	better = base
	better.FieldAccuracy = 0.6
	assert.Greater(t, OverallScore(better, w), OverallScore(base, w))

	better = base
	better.SchemaValidity = 1
	assert.Greater(t, OverallScore(better, w), OverallScore(base, w))

	worse := base
	worse.HallucinationRate = 0.6
	assert.Less(t, OverallScore(worse, w), OverallScore(base, w))
}

// --- comparator ---

func TestNewRejectsInvalidWeights(t *testing.T) {
	_, err := New(types.Weights{EndpointCoverage: 0.5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
}

func TestCompareIdentity(t *testing.T) {
	c, err := New(types.DefaultWeights)
	require.NoError(t, err)

	d := doc(map[string]any{
		"/posts": map[string]any{
			"get": operation(map[string]any{"200": jsonResponse(arraySchema("id", "title", "body", "userId"))}),
		},
		"/users": map[string]any{
			"get": operation(map[string]any{"200": jsonResponse(arraySchema("id", "name"))}),
		},
	})

	m := c.Compare(d, d)
	assert.Equal(t, 1.0, m.EndpointCoverage)
	assert.Equal(t, 1.0, m.FieldAccuracy)
	assert.Equal(t, 0.0, m.HallucinationRate)
	assert.Equal(t, 1.0, m.SchemaValidity)
	assert.InDelta(t, 1.0, m.OverallScore, 1e-12)
}

func TestCompareScenario(t *testing.T) {
	c, err := New(types.DefaultWeights)
	require.NoError(t, err)

	expected := doc(map[string]any{
		"/posts": map[string]any{
			"get": operation(map[string]any{"200": jsonResponse(arraySchema("id", "title", "body", "userId"))}),
		},
		"/posts/{id}": map[string]any{
			"parameters": []any{map[string]any{"name": "id", "in": "path", "required": true}},
			"get":        operation(map[string]any{"200": jsonResponse(objectSchema("id", "title", "body", "userId"))}),
		},
		"/users": map[string]any{
			"get": operation(map[string]any{"200": jsonResponse(arraySchema("id", "name"))}),
		},
	})
	generated := doc(map[string]any{
		"/posts": map[string]any{
			"get": operation(map[string]any{"200": jsonResponse(arraySchema("id", "title", "body"))}),
		},
		"/fake-endpoint": map[string]any{
			"get": operation(map[string]any{"200": map[string]any{"description": "Fake"}}),
		},
	})

	m := c.Compare(generated, expected)
	assert.InDelta(t, 1.0/3.0, m.EndpointCoverage, 1e-12)
	assert.InDelta(t, 0.75, m.FieldAccuracy, 1e-12)
	assert.InDelta(t, 0.5, m.HallucinationRate, 1e-12)
	assert.Equal(t, 1.0, m.SchemaValidity)
	assert.InDelta(t, 0.30/3+0.30*0.75+0.25*0.5+0.15, m.OverallScore, 1e-12)
}

func TestCompareMissingVersionKey(t *testing.T) {
	c, err := New(types.DefaultWeights)
	require.NoError(t, err)

	d := postsDoc("id", "title")
	generated := types.Document{"info": d["info"], "paths": d["paths"]}

	m := c.Compare(generated, d)
	assert.Equal(t, 0.0, m.SchemaValidity)
	assert.Equal(t, 1.0, m.EndpointCoverage)
	assert.Equal(t, 1.0, m.FieldAccuracy)
}

func TestCompareDoesNotMutateInputs(t *testing.T) {
	c, err := New(types.DefaultWeights)
	require.NoError(t, err)

	generated := postsDoc("id", "title")
	expected := postsDoc("id", "title", "userId")
	genCopy := deepCopy(generated)
	expCopy := deepCopy(expected)

	c.Compare(generated, expected)

	assert.True(t, reflect.DeepEqual(genCopy, generated), "generated document was modified")
	assert.True(t, reflect.DeepEqual(expCopy, expected), "expected document was modified")
}

func deepCopy(d types.Document) types.Document {
	return types.NormalizeDocument(d)
}
