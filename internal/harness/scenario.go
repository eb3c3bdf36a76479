package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/querify/internal/ir"
	"github.com/roach88/querify/internal/queryir"
)

// Scenario defines a conformance test scenario.
// A scenario builds one filter or statement and checks what every listed
// target renders it as.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Filter is a raw filter, built with BuildWhere.
	Filter *Value `yaml:"filter,omitempty"`

	// Statement is a query definition with the same shape as a CUE query:
	// exactly one of select, show_tag_keys or show_columns.
	Statement *Value `yaml:"statement,omitempty"`

	// BuildError is the error code building is expected to fail with.
	// No target is rendered when it is set.
	BuildError string `yaml:"build_error,omitempty"`

	// Expect maps a target name to its expected rendered text.
	Expect map[string]string `yaml:"expect,omitempty"`

	// Errors maps a target name to the error code rendering must fail with.
	Errors map[string]string `yaml:"errors,omitempty"`

	// Assertions are extra checks on the built tree and its renderings.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Value is a YAML value decoded the way filters are: unquoted timestamps
// become time.Time and integers stay integers.
type Value struct {
	V any
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Value) UnmarshalYAML(n *yaml.Node) error {
	decoded, err := ir.FromYAMLNode(n)
	if err != nil {
		return err
	}
	v.V = decoded
	return nil
}

// Assertion validates the built tree or a rendering.
type Assertion struct {
	// Type specifies the assertion type:
	// - "identifiers": Check the distinct field names, in order
	// - "normalized": Check the normalized filter
	// - "contains": Check a target's output contains a substring
	// - "sql_valid": Check the MySQL rendering prepares against SQLite
	Type string `yaml:"type"`

	// Names are the expected identifiers (used by identifiers).
	Names []string `yaml:"names,omitempty"`

	// Expect is the expected normalized filter (used by normalized).
	Expect *Value `yaml:"expect,omitempty"`

	// Target is the target whose output is checked (used by contains).
	Target string `yaml:"target,omitempty"`

	// Text is the expected substring (used by contains).
	Text string `yaml:"text,omitempty"`
}

// Assertion type constants.
const (
	AssertIdentifiers = "identifiers"
	AssertNormalized  = "normalized"
	AssertContains    = "contains"
	AssertSQLValid    = "sql_valid"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "expects:" vs "expect:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// FindScenarios returns the scenario files under dir, sorted by path.
func FindScenarios(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ext := filepath.Ext(path); !info.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if (s.Filter == nil) == (s.Statement == nil) {
		return fmt.Errorf("exactly one of filter or statement is required")
	}

	if s.Statement != nil {
		if _, ok := s.Statement.V.(map[string]any); !ok {
			return fmt.Errorf("statement must be a mapping")
		}
	}

	if s.BuildError != "" && (len(s.Expect) > 0 || len(s.Errors) > 0) {
		return fmt.Errorf("build_error cannot be combined with expect or errors")
	}

	for name := range s.Expect {
		if _, err := queryir.ParseTarget(name); err != nil {
			return fmt.Errorf("expect: %w", err)
		}
		if _, dup := s.Errors[name]; dup {
			return fmt.Errorf("target %s is listed in both expect and errors", name)
		}
	}
	for name := range s.Errors {
		if _, err := queryir.ParseTarget(name); err != nil {
			return fmt.Errorf("errors: %w", err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertIdentifiers:
		if a.Names == nil {
			return fmt.Errorf("assertions[%d]: names is required for identifiers", index)
		}
	case AssertNormalized:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for normalized", index)
		}
	case AssertContains:
		if _, err := queryir.ParseTarget(a.Target); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for contains", index)
		}
	case AssertSQLValid:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
