// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fixture

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/specgrade/pkg/types"
)

const postsFixture = `api: jsonplaceholder
endpoint_id: jsonplaceholder_posts
description: List posts
expected_spec:
  openapi: 3.0.0
  info:
    title: JSONPlaceholder API
    version: 1.0.0
  paths:
    /posts:
      get:
        responses:
          200:
            description: Success
            content:
              application/json:
                schema:
                  type: array
                  items:
                    type: object
                    properties:
                      id: {type: integer}
                      title: {type: string}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewDirMissingRoot(t *testing.T) {
	_, err := NewDir(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
}

func TestNewDirRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	writeFile(t, path, "x")
	_, err := NewDir(path)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "jsonplaceholder", "posts.yaml"), postsFixture)
	writeFile(t, filepath.Join(root, "jsonplaceholder", "users.yml"), postsFixture)
	writeFile(t, filepath.Join(root, "jsonplaceholder", TemplateFile), "api: \n")
	writeFile(t, filepath.Join(root, "jsonplaceholder", "notes.md"), "# notes")
	writeFile(t, filepath.Join(root, "github", "repos.json"), `{}`)
	writeFile(t, filepath.Join(root, "README.md"), "top-level file")
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))

	d, err := NewDir(root)
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter string
		want   []string
	}{
		{
			name: "all APIs",
			want: []string{
				filepath.Join(root, "github", "repos.json"),
				filepath.Join(root, "jsonplaceholder", "posts.yaml"),
				filepath.Join(root, "jsonplaceholder", "users.yml"),
			},
		},
		{
			name:   "filtered",
			filter: "github",
			want:   []string{filepath.Join(root, "github", "repos.json")},
		},
		{
			name:   "unknown API",
			filter: "openweather",
			want:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Discover(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	apis, err := d.APIs()
	require.NoError(t, err)
	assert.Equal(t, []string{"github", "jsonplaceholder"}, apis)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.yaml")
	writeFile(t, path, postsFixture)

	fx, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "jsonplaceholder", fx.API)
	assert.Equal(t, "jsonplaceholder_posts", fx.EndpointID)
	assert.Equal(t, path, fx.Path)
	assert.False(t, fx.Template)

	responses := types.AsMap(types.AsMap(types.AsMap(fx.ExpectedSpec.Paths()["/posts"])["get"])["responses"])
	assert.Contains(t, responses, "200", "status keys are stringified")
}

func TestLoadFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.json")
	writeFile(t, path, `{"api": "github", "endpoint_id": "github_repos", "expected_spec": {"openapi": "3.0.0", "paths": {}}}`)

	fx, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "github_repos", fx.EndpointID)
	assert.NotNil(t, fx.ExpectedSpec.Paths())
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"unparsable", "api: [unclosed", "parse error"},
		{"missing api", "endpoint_id: x\nexpected_spec: {paths: {}}\n", "api"},
		{"missing endpoint", "api: x\nexpected_spec: {paths: {}}\n", "endpoint_id"},
		{"missing spec", "api: x\nendpoint_id: y\n", "expected_spec"},
		{"unsafe endpoint id", "api: x\nendpoint_id: ../escape\nexpected_spec: {paths: {}}\n", "must match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			writeFile(t, path, tt.content)

			_, err := LoadFile(path)
			require.Error(t, err)

			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, path, loadErr.Path)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseTemplateSkipsChecks(t *testing.T) {
	fx, err := Parse([]byte("template: true\napi: \"\"\n"))
	require.NoError(t, err)
	assert.True(t, fx.Template)
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	var s map[string]any
	require.NoError(t, json.Unmarshal(data, &s))

	props, ok := s["properties"].(map[string]any)
	require.True(t, ok, "schema has properties")
	for _, key := range []string{"api", "endpoint_id", "expected_spec", "description", "template"} {
		assert.Contains(t, props, key)
	}
	assert.NotContains(t, props, "Path")

	required, ok := s["required"].([]any)
	require.True(t, ok, "schema lists required keys")
	assert.ElementsMatch(t, []any{"api", "endpoint_id", "expected_spec"}, required)
}
