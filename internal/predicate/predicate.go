// Package predicate compiles witness predicates and assertions written in
// CEL and evaluates them against OCED instances.
//
// An expression sees four variables:
//
//	time      list of instant names, earliest first
//	objects   list of {id, type, created, deleted?, attributes}
//	events    list of {id, type, timestamp, attributes}
//	observes  list of {id, object, event, relation, object_type, event_type, event_time}
//
// Instants are exposed as positions in the time order, so ordering
// comparisons work directly (e.created < x.event_time). An object's
// "deleted" key is absent when it was never deleted; test with has().
// Timestamp attributes are positions too.
package predicate

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/roach88/oced/internal/model"
)

// DefaultCostLimit bounds the work a single evaluation may do.
const DefaultCostLimit = 1_000_000

// CompileError reports an expression that failed to parse or type-check.
type CompileError struct {
	Name    string
	Expr    string
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("predicate %q: %s", e.Name, e.Message)
}

// Predicate is a compiled boolean expression over an instance.
// It is safe for concurrent use.
type Predicate struct {
	name string
	expr string
	prg  cel.Program
}

// NewEnv returns the CEL environment predicates are compiled in.
func NewEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("time", cel.ListType(cel.StringType)),
		cel.Variable("objects", cel.ListType(cel.DynType)),
		cel.Variable("events", cel.ListType(cel.DynType)),
		cel.Variable("observes", cel.ListType(cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// Compile parses and type-checks expr. The expression must yield a bool.
func Compile(name, expr string) (*Predicate, error) {
	env, err := NewEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, &CompileError{Name: name, Expr: expr, Message: issues.Err().Error()}
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, &CompileError{Name: name, Expr: expr, Message: fmt.Sprintf("expression yields %s, want bool", t)}
	}
	prg, err := env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(DefaultCostLimit),
	)
	if err != nil {
		return nil, &CompileError{Name: name, Expr: expr, Message: err.Error()}
	}
	return &Predicate{name: name, expr: expr, prg: prg}, nil
}

// MustCompile is like Compile but panics on error.
// Use only in tests or when the expression is known to be valid.
func MustCompile(name, expr string) *Predicate {
	p, err := Compile(name, expr)
	if err != nil {
		panic(err)
	}
	return p
}

// Name returns the predicate's name.
func (p *Predicate) Name() string { return p.name }

// Expr returns the source expression.
func (p *Predicate) Expr() string { return p.expr }

// Eval evaluates the predicate against in.
func (p *Predicate) Eval(in *model.Instance) (bool, error) {
	out, _, err := p.prg.Eval(Input(in))
	if err != nil {
		return false, fmt.Errorf("predicate %q: eval: %w", p.name, err)
	}
	val, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("predicate %q: result is %s, not bool", p.name, out.Type().TypeName())
	}
	return val, nil
}
