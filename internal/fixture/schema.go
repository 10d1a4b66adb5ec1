// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fixture

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/pdiddy/specgrade/pkg/types"
)

// Schema returns a JSON Schema describing the fixture file format, for
// editors and fixture authors.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{ExpandedStruct: true}
	s := r.Reflect(&types.GoldenFixture{})
	s.Title = "specgrade golden fixture"
	s.Description = "One evaluation case: an API identifier, an endpoint identifier, and the expected OpenAPI document."

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling fixture schema: %w", err)
	}
	return data, nil
}
