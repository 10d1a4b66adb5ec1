// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package compare

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pdiddy/specgrade/pkg/types"
)

//go:embed openapi30.schema.json
var openAPISchemaJSON string

var (
	schemaOnce     sync.Once
	openAPISchema  *jsonschema.Schema
	schemaInitErr  error
	pathParamRegex = regexp.MustCompile(`\{([^{}/]+)\}`)
	httpMethods    = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}
)

const (
	componentParamPrefix = "#/components/parameters/"

	// openAPISchemaURL is the id the embedded OAS 3.0 schema declares; the
	// schema's internal references resolve against it.
	openAPISchemaURL = "https://spec.openapis.org/oas/3.0/schema/2021-09-28"
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		openAPISchema, schemaInitErr = jsonschema.CompileString(openAPISchemaURL, openAPISchemaJSON)
	})
	return openAPISchema, schemaInitErr
}

// SchemaValidity returns 1.0 when generated is a well-formed OpenAPI 3.0
// document and 0.0 otherwise. It never fails: every validation problem,
// including a panic inside the validator, collapses to 0.0.
func SchemaValidity(generated types.Document) (score float64) {
	defer func() {
		if recover() != nil {
			score = 0.0
		}
	}()
	if err := Validate(generated); err != nil {
		return 0.0
	}
	return 1.0
}

// Validate checks doc against the OpenAPI 3.0 structure and the semantic
// rules a schema cannot express: every path template parameter must be
// declared as an in: path parameter, and operationIds must be unique.
func Validate(doc types.Document) error {
	if doc == nil {
		return fmt.Errorf("document is empty")
	}
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compiling OpenAPI schema: %w", err)
	}

	// Round-trip through JSON so the validator only sees JSON types.
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}
	if err := schema.Validate(decoded); err != nil {
		return fmt.Errorf("document does not match OpenAPI 3.0: %w", err)
	}

	if err := checkPathParameters(doc); err != nil {
		return err
	}
	return checkOperationIDs(doc)
}

// checkPathParameters verifies that each {name} in a path template is
// declared as a path parameter on the path item or on every operation.
func checkPathParameters(doc types.Document) error {
	components := types.AsMap(types.AsMap(doc["components"])["parameters"])

	paths := sortedKeys(doc.Paths())
	for _, path := range paths {
		item := types.AsMap(doc.Paths()[path])
		matches := pathParamRegex.FindAllStringSubmatch(path, -1)
		if len(matches) == 0 {
			continue
		}
		shared := declaredPathParams(item["parameters"], components)

		for _, method := range httpMethods {
			op, ok := item[method]
			if !ok {
				continue
			}
			declared := declaredPathParams(types.AsMap(op)["parameters"], components)
			for _, m := range matches {
				name := m[1]
				_, onItem := shared[name]
				_, onOp := declared[name]
				if !onItem && !onOp {
					return fmt.Errorf("path parameter %q for %s %s is not declared", name, strings.ToUpper(method), path)
				}
			}
		}
	}
	return nil
}

// declaredPathParams collects the names of in: path parameters in a
// parameter list, resolving references into components.parameters.
func declaredPathParams(list any, components map[string]any) map[string]struct{} {
	names := make(map[string]struct{})
	params, _ := list.([]any)
	for _, p := range params {
		param := types.AsMap(p)
		if ref, ok := param["$ref"].(string); ok {
			if !strings.HasPrefix(ref, componentParamPrefix) {
				continue
			}
			param = types.AsMap(components[strings.TrimPrefix(ref, componentParamPrefix)])
		}
		if param["in"] != "path" {
			continue
		}
		if name, ok := param["name"].(string); ok {
			names[name] = struct{}{}
		}
	}
	return names
}

func checkOperationIDs(doc types.Document) error {
	seen := make(map[string]string)
	for _, path := range sortedKeys(doc.Paths()) {
		item := types.AsMap(doc.Paths()[path])
		for _, method := range httpMethods {
			op := types.AsMap(item[method])
			id, ok := op["operationId"].(string)
			if !ok || id == "" {
				continue
			}
			where := strings.ToUpper(method) + " " + path
			if prev, dup := seen[id]; dup {
				return fmt.Errorf("operationId %q is used by both %s and %s", id, prev, where)
			}
			seen[id] = where
		}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
