// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"

	"github.com/pdiddy/specgrade/pkg/types"
)

// Stub returns fixed, deliberately imperfect documents so the evaluation
// harness can be exercised without a real pipeline. It never fails.
type Stub struct{}

// NewStub returns the fixed stand-in generator.
func NewStub() *Stub {
	return &Stub{}
}

// Name returns "stub".
func (s *Stub) Name() string {
	return string(types.GeneratorStub)
}

// Generate returns a fresh document on every call. For jsonplaceholder it
// covers only /posts, omits the userId field, and adds the hallucinated
// /fake-endpoint. Every other API gets the empty placeholder.
func (s *Stub) Generate(_ context.Context, api string) (types.Document, error) {
	if api == "jsonplaceholder" {
		return jsonPlaceholderStub(), nil
	}
	return types.EmptyDocument(api + " API"), nil
}

func jsonPlaceholderStub() types.Document {
	return types.Document{
		"openapi": "3.0.0",
		"info": map[string]any{
			"title":   "JSONPlaceholder API",
			"version": "1.0.0",
		},
		"servers": []any{
			map[string]any{"url": "https://jsonplaceholder.typicode.com"},
		},
		"paths": map[string]any{
			"/posts": map[string]any{
				"get": map[string]any{
					"summary": "Get all posts",
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Success",
							"content": map[string]any{
								"application/json": map[string]any{
									"schema": map[string]any{
										"type": "array",
										"items": map[string]any{
											"type": "object",
											"properties": map[string]any{
												"id":    map[string]any{"type": "integer"},
												"title": map[string]any{"type": "string"},
												"body":  map[string]any{"type": "string"},
											},
										},
									},
								},
							},
						},
					},
				},
			},
			"/fake-endpoint": map[string]any{
				"get": map[string]any{
					"summary": "This does not exist",
					"responses": map[string]any{
						"200": map[string]any{"description": "Fake"},
					},
				},
			},
		},
	}
}
