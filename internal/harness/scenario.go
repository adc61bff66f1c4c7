package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/oced/internal/search"
)

// Scenario defines a model test scenario.
// A scenario loads one CUE model, runs validations and searches against it
// and asserts on the resulting trace and result store.
type Scenario struct {
	// Name uniquely identifies this scenario. It prefixes search run ids.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Model is the CUE model directory.
	Model string `yaml:"model"`

	// MaxObserves overrides the schema's max_observes when positive.
	MaxObserves int `yaml:"max_observes,omitempty"`

	// Steps run in order. Each step is exactly one of validate, search or check.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and store.
	// Supported types: trace_contains, trace_order, trace_count,
	// violation_count, final_state
	Assertions []Assertion `yaml:"assertions"`
}

// Step is a single scenario step.
type Step struct {
	// Validate is an instance file to validate against the model schema.
	Validate string `yaml:"validate,omitempty"`

	// Search names a predicate to find a witness for.
	Search string `yaml:"search,omitempty"`

	// Check names an assertion to find a counterexample for.
	Check string `yaml:"check,omitempty"`

	// Bound is the search bound "objects,events,observes,time".
	// Empty means the model scope.
	Bound string `yaml:"bound,omitempty"`

	// StepBudget caps the enumeration steps of a search. Zero means the
	// search default.
	StepBudget int64 `yaml:"step_budget,omitempty"`

	// Expect specifies the expected step outcome.
	// If nil, no validation is performed.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// label is the instance path as written in the scenario file.
	label string
}

// Kind returns the step kind, or "" when the step names no action.
func (s Step) Kind() string {
	switch {
	case s.Validate != "":
		return KindValidate
	case s.Search != "":
		return KindSearch
	case s.Check != "":
		return KindCheck
	}
	return ""
}

// Target returns the instance path or goal name of the step.
func (s Step) Target() string {
	switch s.Kind() {
	case KindValidate:
		if s.label != "" {
			return s.label
		}
		return s.Validate
	case KindSearch:
		return s.Search
	}
	return s.Check
}

// ExpectClause specifies the expected step outcome.
type ExpectClause struct {
	// Status is the expected status, e.g. "invalid" or "none_within_bound".
	Status string `yaml:"status"`

	// Codes is the expected set of violation codes, e.g. [V003, V007].
	// Subset match: every listed code must be reported at least once.
	Codes []string `yaml:"codes,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": a step of Kind on Target ended with Status
	// - "trace_order": Targets appear in this order
	// - "trace_count": exactly Count steps ended with Status
	// - "violation_count": Code was reported exactly Count times
	// - "final_state": Query table and verify expected values
	Type string `yaml:"type"`

	// Kind is the step kind (used by trace_contains, optional).
	Kind string `yaml:"kind,omitempty"`

	// Target is the instance path or goal name (used by trace_contains).
	Target string `yaml:"target,omitempty"`

	// Status is the step status (used by trace_contains and trace_count).
	Status string `yaml:"status,omitempty"`

	// Code is a violation code (used by violation_count).
	Code string `yaml:"code,omitempty"`

	// Table is the store table name (used by final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (used by final_state).
	// All fields must match exactly.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected column values (used by final_state).
	// Subset match - only specified columns are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is the expected number of occurrences.
	Count int `yaml:"count,omitempty"`

	// Targets is the expected target order (used by trace_order).
	Targets []string `yaml:"targets,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains  = "trace_contains"
	AssertTraceOrder     = "trace_order"
	AssertTraceCount     = "trace_count"
	AssertViolationCount = "violation_count"
	AssertFinalState     = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Relative model and instance paths resolve against the scenario's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return loadScenario(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the model path relative to the provided base path.
// Instance paths still resolve against the scenario's directory.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	return loadScenario(path, basePath)
}

func loadScenario(path, modelBase string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve paths BEFORE validation so existence checks see real files
	if scenario.Model != "" && !filepath.IsAbs(scenario.Model) && modelBase != "" {
		scenario.Model = filepath.Join(modelBase, scenario.Model)
	}
	dir := filepath.Dir(path)
	for i, step := range scenario.Steps {
		if step.Validate != "" && !filepath.IsAbs(step.Validate) {
			scenario.Steps[i].label = step.Validate
			scenario.Steps[i].Validate = filepath.Join(dir, step.Validate)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
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
	if info, err := os.Stat(s.Model); err != nil || !info.IsDir() {
		return fmt.Errorf("model directory not found: %s", s.Model)
	}

	if s.MaxObserves < 0 {
		return fmt.Errorf("max_observes must be non-negative")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step *Step) error {
	set := 0
	for _, v := range []string{step.Validate, step.Search, step.Check} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of validate, search or check is required", index)
	}

	if step.Kind() == KindValidate {
		if step.Bound != "" || step.StepBudget != 0 {
			return fmt.Errorf("steps[%d]: bound and step_budget apply to search and check only", index)
		}
		if _, err := os.Stat(step.Validate); os.IsNotExist(err) {
			return fmt.Errorf("steps[%d]: instance file not found: %s", index, step.Validate)
		}
	} else if step.Bound != "" {
		if _, err := search.ParseBound(step.Bound); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	}
	if step.StepBudget < 0 {
		return fmt.Errorf("steps[%d]: step_budget must be non-negative", index)
	}

	if step.Expect != nil {
		if step.Expect.Status == "" {
			return fmt.Errorf("steps[%d].expect: status is required", index)
		}
		if !validStatus(step.Kind(), step.Expect.Status) {
			return fmt.Errorf("steps[%d].expect: status %q is not a %s status", index, step.Expect.Status, step.Kind())
		}
	}
	return nil
}

func validStatus(kind, status string) bool {
	if kind == KindValidate {
		return status == StatusValid || status == StatusInvalid || status == StatusMalformed
	}
	switch search.Status(status) {
	case search.StatusFound, search.StatusNoneWithinBound, search.StatusResourceExhausted:
		return true
	}
	return false
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Target == "" {
			return fmt.Errorf("assertions[%d]: target is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Targets) == 0 {
			return fmt.Errorf("assertions[%d]: targets list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertViolationCount:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for violation_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for violation_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
