package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/oced/internal/model"
	"github.com/roach88/oced/internal/predicate"
	"github.com/roach88/oced/internal/search"
)

// Goal is a compiled predicate or assertion.
type Goal struct {
	GoalSpec
	Predicate *predicate.Predicate
}

// Model is a validated, compiled model ready for validation and search.
type Model struct {
	Schema     *model.Schema
	Predicates []Goal
	Assertions []Goal

	// Scope is the default bound; zero when the model declares none.
	Scope search.Bound
}

// ValidationErrors collects every problem Validate found.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "\n")
}

// Compile parses, validates and builds a model from a CUE value.
// Parse failures are *CompileError; validation failures are
// ValidationErrors.
func Compile(v cue.Value) (*Model, error) {
	spec, err := ParseModel(v)
	if err != nil {
		return nil, err
	}
	if errs := Validate(spec); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return Build(spec)
}

// Build compiles a validated spec. Callers normally use Compile.
func Build(spec *ModelSpec) (*Model, error) {
	s, err := model.NewSchema(spec.Schema)
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	m := &Model{Schema: s, Scope: spec.Scope}
	for _, g := range spec.Predicates {
		p, err := predicate.Compile(g.Name, g.Expr)
		if err != nil {
			return nil, err
		}
		m.Predicates = append(m.Predicates, Goal{GoalSpec: g, Predicate: p})
	}
	for _, g := range spec.Assertions {
		p, err := predicate.Compile(g.Name, g.Expr)
		if err != nil {
			return nil, err
		}
		m.Assertions = append(m.Assertions, Goal{GoalSpec: g, Predicate: p})
	}
	return m, nil
}

// Predicate returns the named predicate.
func (m *Model) Predicate(name string) (Goal, bool) { return findGoal(m.Predicates, name) }

// Assertion returns the named assertion.
func (m *Model) Assertion(name string) (Goal, bool) { return findGoal(m.Assertions, name) }

// WitnessGoal returns the search goal for the named predicate.
func (m *Model) WitnessGoal(name string) (search.Goal, error) {
	g, ok := m.Predicate(name)
	if !ok {
		return search.Goal{}, search.NewGoalError(name, fmt.Sprintf("no predicate named %q (have %s)", name, goalNames(m.Predicates)))
	}
	return search.Witness(g.Name, g.Predicate, g.Min), nil
}

// AssertionGoal returns the search goal for the named assertion.
func (m *Model) AssertionGoal(name string) (search.Goal, error) {
	g, ok := m.Assertion(name)
	if !ok {
		return search.Goal{}, search.NewGoalError(name, fmt.Sprintf("no assertion named %q (have %s)", name, goalNames(m.Assertions)))
	}
	return search.Assertion(g.Name, g.Predicate, g.AssumeInvariants), nil
}

// BoundOr returns b unless it is zero, in which case the model's scope.
func (m *Model) BoundOr(b search.Bound) search.Bound {
	if b.IsZero() {
		return m.Scope
	}
	return b
}

func findGoal(goals []Goal, name string) (Goal, bool) {
	for _, g := range goals {
		if g.Name == name {
			return g, true
		}
	}
	return Goal{}, false
}

func goalNames(goals []Goal) string {
	if len(goals) == 0 {
		return "none"
	}
	names := make([]string, len(goals))
	for i, g := range goals {
		names[i] = g.Name
	}
	return strings.Join(names, ", ")
}
