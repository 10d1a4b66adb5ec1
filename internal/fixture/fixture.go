// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fixture discovers and loads golden fixtures from a corpus
// directory laid out as <golden_dir>/<api>/<case>.yaml.
package fixture

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/specgrade/pkg/types"
)

// TemplateFile is the reserved per-API file name that holds a fixture
// skeleton rather than a case.
const TemplateFile = "TEMPLATE.yaml"

var (
	fixtureExts     = map[string]bool{".yaml": true, ".yml": true, ".json": true}
	endpointIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

// LoadError reports a fixture that could not be read or is missing
// required keys. The run continues without it.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading fixture %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Source discovers and loads fixtures. Discover returns opaque references
// accepted by Load.
type Source interface {
	Discover(apiFilter string) ([]string, error)
	Load(ref string) (types.GoldenFixture, error)
}

// Dir is a Source backed by a directory with one sub-directory per API.
type Dir struct {
	root string
}

// NewDir returns a Dir rooted at root. A missing root is a configuration
// error.
func NewDir(root string) (*Dir, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: golden set directory %s: %v", types.ErrConfiguration, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: golden set path %s is not a directory", types.ErrConfiguration, root)
	}
	return &Dir{root: root}, nil
}

// Root returns the corpus directory.
func (d *Dir) Root() string {
	return d.root
}

// Discover lists fixture files under every API directory, or only under
// apiFilter when it is non-empty. TEMPLATE.yaml files are skipped. The
// result is sorted.
func (d *Dir) Discover(apiFilter string) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("reading golden set directory %s: %w", d.root, err)
	}

	var refs []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if apiFilter != "" && entry.Name() != apiFilter {
			continue
		}

		apiDir := filepath.Join(d.root, entry.Name())
		files, err := os.ReadDir(apiDir)
		if err != nil {
			return nil, fmt.Errorf("reading API directory %s: %w", apiDir, err)
		}
		for _, f := range files {
			if f.IsDir() || f.Name() == TemplateFile {
				continue
			}
			if !fixtureExts[strings.ToLower(filepath.Ext(f.Name()))] {
				continue
			}
			refs = append(refs, filepath.Join(apiDir, f.Name()))
		}
	}

	sort.Strings(refs)
	return refs, nil
}

// APIs lists the API directory names in the corpus.
func (d *Dir) APIs() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("reading golden set directory %s: %w", d.root, err)
	}
	var apis []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			apis = append(apis, entry.Name())
		}
	}
	sort.Strings(apis)
	return apis, nil
}

// Load reads one fixture file. Failures are returned as *LoadError.
func (d *Dir) Load(ref string) (types.GoldenFixture, error) {
	return LoadFile(ref)
}

// LoadFile reads and checks a fixture file. JSON files are parsed with the
// YAML decoder, which accepts JSON.
func LoadFile(path string) (types.GoldenFixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.GoldenFixture{}, &LoadError{Path: path, Err: err}
	}
	fx, err := Parse(data)
	if err != nil {
		return types.GoldenFixture{}, &LoadError{Path: path, Err: err}
	}
	fx.Path = path
	return fx, nil
}

// Parse decodes fixture content and checks the required keys.
func Parse(data []byte) (types.GoldenFixture, error) {
	var fx types.GoldenFixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return types.GoldenFixture{}, fmt.Errorf("parse error: %w", err)
	}
	fx.ExpectedSpec = types.NormalizeDocument(fx.ExpectedSpec)
	if err := Check(fx); err != nil {
		return types.GoldenFixture{}, err
	}
	return fx, nil
}

// Check verifies that a fixture has the keys a run needs. Templates are
// never run and are not checked.
func Check(fx types.GoldenFixture) error {
	if fx.Template {
		return nil
	}
	var missing []string
	if strings.TrimSpace(fx.API) == "" {
		missing = append(missing, "api")
	}
	if strings.TrimSpace(fx.EndpointID) == "" {
		missing = append(missing, "endpoint_id")
	}
	if fx.ExpectedSpec == nil {
		missing = append(missing, "expected_spec")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required keys: %s", strings.Join(missing, ", "))
	}
	if !ValidEndpointID(fx.EndpointID) {
		return fmt.Errorf("endpoint_id %q must match %s", fx.EndpointID, endpointIDRegex)
	}
	return nil
}

// ValidEndpointID reports whether id is safe to use as a storage key.
func ValidEndpointID(id string) bool {
	return endpointIDRegex.MatchString(id)
}
