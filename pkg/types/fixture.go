// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// GoldenFixture is one evaluation case: a hand-verified expected document
// for an API endpoint group. Fixtures are read-only once loaded.
type GoldenFixture struct {
	// API identifies the API the generator is asked to describe
	// (e.g. "jsonplaceholder").
	API string `json:"api" yaml:"api" jsonschema:"minLength=1"`

	// EndpointID names the case and is the persistence key for its results.
	EndpointID string `json:"endpoint_id" yaml:"endpoint_id" jsonschema:"pattern=^[A-Za-z0-9][A-Za-z0-9._-]*$"`

	// Description is free text for fixture authors.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Template marks a non-case file that discovery must skip.
	Template bool `json:"template,omitempty" yaml:"template,omitempty"`

	// ExpectedSpec is the golden OpenAPI document.
	ExpectedSpec Document `json:"expected_spec" yaml:"expected_spec"`

	// Path is the file the fixture was loaded from.
	Path string `json:"-" yaml:"-"`
}
