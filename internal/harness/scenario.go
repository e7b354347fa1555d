package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is a site and a series of compilations over it.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules is the CUE rules source.
	Rules string `yaml:"rules,omitempty"`

	// RulesFile is read into Rules by LoadScenario, relative to the
	// scenario file.
	RulesFile string `yaml:"rules_file,omitempty"`

	// AutoPrune enables pruning of stale outputs on every run.
	AutoPrune bool `yaml:"auto_prune,omitempty"`

	// Site is the initial content.
	Site SiteSpec `yaml:"site"`

	// Runs are compiled in order against the same output and temp dirs.
	Runs []RunStep `yaml:"runs"`
}

// SiteSpec describes items, layouts and configuration.
type SiteSpec struct {
	Items   map[string]DocSpec     `yaml:"items,omitempty"`
	Layouts map[string]DocSpec     `yaml:"layouts,omitempty"`
	Config  map[string]interface{} `yaml:"config,omitempty"`
}

// DocSpec is one textual item or layout.
type DocSpec struct {
	Content    string                 `yaml:"content"`
	Attributes map[string]interface{} `yaml:"attributes,omitempty"`
}

// RunStep is one compilation, preceded by changes to the site.
type RunStep struct {
	Name       string      `yaml:"name"`
	Changes    *Changes    `yaml:"changes,omitempty"`
	Expect     *Expect     `yaml:"expect,omitempty"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Changes are applied to the site before a run.
type Changes struct {
	Items         map[string]DocSpec     `yaml:"items,omitempty"`
	DeleteItems   []string               `yaml:"delete_items,omitempty"`
	Layouts       map[string]DocSpec     `yaml:"layouts,omitempty"`
	DeleteLayouts []string               `yaml:"delete_layouts,omitempty"`
	Config        map[string]interface{} `yaml:"config,omitempty"`

	// Rules replaces the rules source.
	Rules string `yaml:"rules,omitempty"`

	// DeleteOutputs removes files from the output directory, by path
	// relative to it.
	DeleteOutputs []string `yaml:"delete_outputs,omitempty"`
}

// Expect describes the outcome of a run. Nil fields are not checked.
type Expect struct {
	// Compiled and Cached list rep references, in any order.
	Compiled *[]string `yaml:"compiled,omitempty"`
	Cached   *[]string `yaml:"cached,omitempty"`

	// Outdated maps rep references to reasons, e.g. "content modified".
	// Every outdated rep with a reason must be listed.
	Outdated map[string]string `yaml:"outdated,omitempty"`

	// Outputs maps output paths to their exact contents. Only the listed
	// paths are checked. Missing lists paths that must not exist.
	Outputs map[string]string `yaml:"outputs,omitempty"`
	Missing []string          `yaml:"missing,omitempty"`

	// Error is a substring of the run's error. Without it the run must
	// succeed.
	Error string `yaml:"error,omitempty"`
}

// Assertion checks the event trace of a run.
type Assertion struct {
	// Type is one of event_contains, event_absent, event_order,
	// event_count.
	Type string `yaml:"type"`

	// Event is an exact event line (event_contains, event_absent).
	Event string `yaml:"event,omitempty"`

	// Events are exact event lines in expected order (event_order).
	Events []string `yaml:"events,omitempty"`

	// Prefix and Count are used by event_count.
	Prefix string `yaml:"prefix,omitempty"`
	Count  int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertEventContains = "event_contains"
	AssertEventAbsent   = "event_absent"
	AssertEventOrder    = "event_order"
	AssertEventCount    = "event_count"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if s.RulesFile != "" {
		if s.Rules != "" {
			return nil, fmt.Errorf("invalid scenario: rules and rules_file are mutually exclusive")
		}
		rulesPath := s.RulesFile
		if !filepath.IsAbs(rulesPath) {
			rulesPath = filepath.Join(filepath.Dir(path), rulesPath)
		}
		src, err := os.ReadFile(rulesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read rules file: %w", err)
		}
		s.Rules = string(src)
	}
	if err := validateScenario(s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return s, nil
}

// ParseScenario parses scenario YAML without resolving rules_file or
// validating.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &s, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if strings.TrimSpace(s.Rules) == "" {
		return fmt.Errorf("rules or rules_file is required")
	}
	if len(s.Runs) == 0 {
		return fmt.Errorf("runs list is required and must be non-empty")
	}

	for id := range s.Site.Items {
		if !strings.HasPrefix(id, "/") {
			return fmt.Errorf("site.items: identifier %q must start with a slash", id)
		}
	}
	for id := range s.Site.Layouts {
		if !strings.HasPrefix(id, "/") {
			return fmt.Errorf("site.layouts: identifier %q must start with a slash", id)
		}
	}

	for i, run := range s.Runs {
		if run.Name == "" {
			return fmt.Errorf("runs[%d]: name is required", i)
		}
		for j, a := range run.Assertions {
			if err := validateAssertion(i, j, &a); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(run, index int, a *Assertion) error {
	where := fmt.Sprintf("runs[%d].assertions[%d]", run, index)
	if a.Type == "" {
		return fmt.Errorf("%s: type is required", where)
	}

	switch a.Type {
	case AssertEventContains, AssertEventAbsent:
		if a.Event == "" {
			return fmt.Errorf("%s: event is required for %s", where, a.Type)
		}
	case AssertEventOrder:
		if len(a.Events) < 2 {
			return fmt.Errorf("%s: events list needs at least two entries for event_order", where)
		}
	case AssertEventCount:
		if a.Prefix == "" {
			return fmt.Errorf("%s: prefix is required for event_count", where)
		}
		if a.Count < 0 {
			return fmt.Errorf("%s: count must be non-negative for event_count", where)
		}
	default:
		return fmt.Errorf("%s: unknown assertion type %q", where, a.Type)
	}
	return nil
}
