package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/discrete/internal/engine"
	"github.com/roach88/discrete/internal/trace"
)

// Scenario defines a conformance test scenario: one model enumeration and
// the expectations its paths must meet.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is the CUE file or directory holding the model.
	// Relative paths are resolved against the scenario file's directory.
	Model string `yaml:"model"`

	// ModelName selects a model from Model. It may be omitted when the file
	// declares a single model.
	ModelName string `yaml:"model_name,omitempty"`

	// GraphType is "flat" (default) or "dense".
	GraphType string `yaml:"graph_type,omitempty"`

	// Order is "lifo" (default) or "fifo".
	Order string `yaml:"order,omitempty"`

	// Seed seeds draws from non-enumerated sites.
	Seed uint64 `yaml:"seed,omitempty"`

	// MaxPaths caps the number of paths; 0 means unlimited.
	MaxPaths int `yaml:"max_paths,omitempty"`

	// Expect holds the expectations checked after enumeration.
	Expect Expect `yaml:"expect"`
}

// Expect lists what a scenario's enumeration must produce. Unset fields
// are not checked.
type Expect struct {
	// Paths is the exact number of emitted paths.
	Paths *int `yaml:"paths,omitempty"`

	// WeightSum is the expected sum of all scalar weights.
	WeightSum *float64 `yaml:"weight_sum,omitempty"`

	// Tolerance bounds every numeric comparison. Defaults to 1e-6.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Contains lists paths that must be emitted, matched on the exact
	// discrete assignment.
	Contains []PathExpectation `yaml:"contains,omitempty"`

	// Marginals maps a site to the expected mass per value. Values are
	// written in table-key form ("1", "A", "true"); "<unreached>" is the
	// mass of paths that never reached the site.
	Marginals map[string]map[string]float64 `yaml:"marginals,omitempty"`

	// Posteriors is like Marginals but weighted by the likelihood of the
	// observed sites and normalized.
	Posteriors map[string]map[string]float64 `yaml:"posteriors,omitempty"`

	// Error is the expected error code (e.g. QUOTA_EXCEEDED, EMPTY_SUPPORT,
	// MODEL_ERROR). When set, enumeration must fail with this code.
	Error string `yaml:"error,omitempty"`
}

// PathExpectation describes one expected path.
type PathExpectation struct {
	// Assignment is the full discrete assignment of the path.
	Assignment map[string]any `yaml:"assignment"`

	// Weight is the expected scalar weight, if checked.
	Weight *float64 `yaml:"weight,omitempty"`
}

// UnreachedKey names the unreached mass in Marginals and Posteriors.
const UnreachedKey = "<unreached>"

// DefaultTolerance is used when a scenario sets no tolerance.
const DefaultTolerance = 1e-6

// tolerance returns the scenario's tolerance or the default.
func (e Expect) tolerance() float64 {
	if e.Tolerance > 0 {
		return e.Tolerance
	}
	return DefaultTolerance
}

// LoadScenario reads and parses a scenario YAML file. The model path is
// resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the model path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "expects:" vs "expect:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Model != "" && !filepath.IsAbs(scenario.Model) && basePath != "" {
		scenario.Model = filepath.Join(basePath, scenario.Model)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by path.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Model == "" {
		return fmt.Errorf("model is required")
	}
	if _, err := os.Stat(s.Model); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.Model)
	}

	if s.GraphType != "" {
		if _, err := trace.ParseGraphType(s.GraphType); err != nil {
			return err
		}
	}
	if s.Order != "" {
		if _, err := engine.ParseOrder(s.Order); err != nil {
			return err
		}
	}
	if s.MaxPaths < 0 {
		return fmt.Errorf("max_paths must be non-negative")
	}

	e := s.Expect
	if e.Paths != nil && *e.Paths < 0 {
		return fmt.Errorf("expect.paths must be non-negative")
	}
	if e.Tolerance < 0 {
		return fmt.Errorf("expect.tolerance must be non-negative")
	}
	for i, c := range e.Contains {
		if len(c.Assignment) == 0 {
			return fmt.Errorf("expect.contains[%d]: assignment is required", i)
		}
	}
	if e.Error != "" && (len(e.Contains) > 0 || len(e.Marginals) > 0 || len(e.Posteriors) > 0 || e.WeightSum != nil) {
		return fmt.Errorf("expect.error cannot be combined with path expectations")
	}
	return nil
}
