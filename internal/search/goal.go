package search

import (
	"github.com/roach88/oced/internal/evaluator"
	"github.com/roach88/oced/internal/model"
)

// Predicate decides a property of a complete instance.
// Implemented by predicate.Predicate and PredicateFunc.
type Predicate interface {
	Eval(in *model.Instance) (bool, error)
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc func(in *model.Instance) (bool, error)

// Eval calls f.
func (f PredicateFunc) Eval(in *model.Instance) (bool, error) { return f(in) }

// GoalKind selects what Search looks for.
type GoalKind string

const (
	// GoalWitness looks for an instance where the predicate holds and every
	// invariant holds.
	GoalWitness GoalKind = "witness"

	// GoalAssertion looks for a counterexample: an instance where the
	// predicate is false.
	GoalAssertion GoalKind = "assertion"
)

// Goal is the target of a search.
type Goal struct {
	Kind      GoalKind
	Name      string
	Predicate Predicate

	// Min gives lower cardinality bounds; the search starts there instead
	// of at the empty instance.
	Min Bound

	// AssumeInvariants restricts an assertion's search space to instances
	// that satisfy every invariant. Witness goals always assume them.
	AssumeInvariants bool
}

// Witness returns a goal for an instance satisfying p and every invariant,
// with at least min entities of each kind.
func Witness(name string, p Predicate, min Bound) Goal {
	return Goal{Kind: GoalWitness, Name: name, Predicate: p, Min: min, AssumeInvariants: true}
}

// Assertion returns a goal for a counterexample to p.
func Assertion(name string, p Predicate, assumeInvariants bool) Goal {
	return Goal{Kind: GoalAssertion, Name: name, Predicate: p, AssumeInvariants: assumeInvariants}
}

// constrained reports whether the invariants restrict the space, which is
// what makes incremental pruning sound.
func (g Goal) constrained() bool {
	return g.Kind == GoalWitness || g.AssumeInvariants
}

func (g Goal) validate(b Bound) error {
	if g.Kind != GoalWitness && g.Kind != GoalAssertion {
		return NewGoalError(g.Name, "unknown goal kind "+string(g.Kind))
	}
	if g.Predicate == nil {
		return NewGoalError(g.Name, "no predicate")
	}
	if err := g.Min.Validate(); err != nil {
		return err
	}
	if !b.covers(g.Min) {
		return NewGoalError(g.Name, "minimum "+g.Min.String()+" exceeds bound "+b.String())
	}
	return nil
}

// accept decides a complete candidate.
func (g Goal) accept(s *model.Schema, in *model.Instance) (bool, error) {
	if g.constrained() && !evaluator.Valid(s, in) {
		return false, nil
	}
	ok, err := g.Predicate.Eval(in)
	if err != nil {
		return false, predicateError(g.Name, err)
	}
	if g.Kind == GoalWitness {
		return ok, nil
	}
	return !ok, nil
}
