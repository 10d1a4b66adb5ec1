// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Document is an OpenAPI-style API description held as a generic tree.
// Path and method keys are compared as opaque strings; nothing here
// rewrites them.
type Document map[string]any

// Paths returns the document's path mapping, or nil when absent or not a
// mapping.
func (d Document) Paths() map[string]any {
	return AsMap(d["paths"])
}

// PathSet returns the set of path keys.
func (d Document) PathSet() map[string]struct{} {
	paths := d.Paths()
	set := make(map[string]struct{}, len(paths))
	for p := range paths {
		set[p] = struct{}{}
	}
	return set
}

// AsMap returns v as a mapping, or nil when v is not one.
func AsMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// EmptyDocument returns the minimal placeholder document with no paths.
func EmptyDocument(title string) Document {
	return Document{
		"openapi": "3.0.0",
		"info": map[string]any{
			"title":   title,
			"version": "1.0.0",
		},
		"paths": map[string]any{},
	}
}

// NormalizeDocument converts a decoded YAML tree so that every nested
// mapping is map[string]any. YAML decoders produce map[any]any when a
// mapping has non-string keys, e.g. an unquoted 200 status code; those keys
// are stringified with fmt.Sprint.
func NormalizeDocument(d Document) Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeValue(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	case Document:
		return map[string]any(NormalizeDocument(t))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	default:
		return v
	}
}
