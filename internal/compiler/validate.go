package compiler

import (
	"errors"
	"fmt"
	"slices"

	"cuelang.org/go/cue/token"

	"github.com/roach88/oced/internal/model"
	"github.com/roach88/oced/internal/predicate"
	"github.com/roach88/oced/internal/search"
)

// Validation error codes (E120-E139)
const (
	ErrSchemaInvalid     = "E120" // schema rejected by the model layer
	ErrEmptyEnum         = "E121" // object or event types missing
	ErrDuplicateName     = "E122" // duplicate enum member or goal name
	ErrAttributeKind     = "E123" // attribute kind not int, string or timestamp
	ErrLifecycle         = "E124" // lifecycle references undeclared types
	ErrExprCompile       = "E125" // predicate or assertion does not compile
	ErrBoundInvalid      = "E126" // negative count in min or scope
	ErrMinExceedsScope   = "E127" // predicate minimum larger than the scope
	ErrGoalNameCollision = "E128" // same name used by a pred and an assert
	ErrMaxObserves       = "E129" // max_observes negative
)

// ValidationError represents a model validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a parsed model against the schema and goal rules.
// Returns all errors found (does not fail-fast).
func Validate(spec *ModelSpec) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateSchema(spec)...)
	errs = append(errs, validateGoals(spec)...)
	return errs
}

func validateSchema(spec *ModelSpec) []ValidationError {
	var errs []ValidationError
	def := spec.Schema
	line := lineOf(spec.SchemaPos)

	// E121, E122: enumerations
	enums := []struct {
		field    string
		names    []string
		required bool
	}{
		{"schema.object_types", def.ObjectTypes, true},
		{"schema.event_types", def.EventTypes, true},
		{"schema.relation_types", def.RelationTypes, false},
	}
	for _, en := range enums {
		if en.required && len(en.names) == 0 {
			errs = append(errs, ValidationError{
				Field:   en.field,
				Message: "at least one name is required",
				Code:    ErrEmptyEnum,
				Line:    line,
			})
		}
		seen := make(map[string]bool, len(en.names))
		for i, n := range en.names {
			if n == "" {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s[%d]", en.field, i),
					Message: "names must be non-empty",
					Code:    ErrEmptyEnum,
					Line:    line,
				})
				continue
			}
			if seen[n] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s[%d]", en.field, i),
					Message: fmt.Sprintf("duplicate name: %q", n),
					Code:    ErrDuplicateName,
					Line:    line,
				})
			}
			seen[n] = true
		}
	}

	// E123: attribute kinds, reported in name order
	names := make([]string, 0, len(def.Attributes))
	for n := range def.Attributes {
		names = append(names, n)
	}
	slices.Sort(names)
	for _, n := range names {
		if kind := def.Attributes[n]; !kind.Valid() {
			errs = append(errs, ValidationError{
				Field:   "schema.attributes." + n,
				Message: fmt.Sprintf("invalid kind %q, must be \"int\", \"string\" or \"timestamp\"", kind),
				Code:    ErrAttributeKind,
				Line:    line,
			})
		}
	}

	// E129
	if def.MaxObserves < 0 {
		errs = append(errs, ValidationError{
			Field:   "schema.max_observes",
			Message: fmt.Sprintf("must be positive, got %d", def.MaxObserves),
			Code:    ErrMaxObserves,
			Line:    line,
		})
	}

	// E124: lifecycle. Membership is not checked against an empty
	// enumeration; E121 already reports it.
	if lc := def.Lifecycle; lc != nil {
		if len(def.ObjectTypes) > 0 && !slices.Contains(def.ObjectTypes, lc.Stateful) {
			errs = append(errs, ValidationError{
				Field:   "schema.lifecycle.stateful",
				Message: fmt.Sprintf("object type %q is not declared", lc.Stateful),
				Code:    ErrLifecycle,
				Line:    line,
			})
		}
		kinds := []struct {
			field string
			names []string
		}{
			{"schema.lifecycle.start", lc.Start},
			{"schema.lifecycle.resolve", lc.Resolve},
		}
		for _, k := range kinds {
			if len(k.names) == 0 {
				errs = append(errs, ValidationError{
					Field:   k.field,
					Message: "at least one event type is required",
					Code:    ErrLifecycle,
					Line:    line,
				})
			}
			for _, n := range k.names {
				if len(def.EventTypes) > 0 && !slices.Contains(def.EventTypes, n) {
					errs = append(errs, ValidationError{
						Field:   k.field,
						Message: fmt.Sprintf("event type %q is not declared", n),
						Code:    ErrLifecycle,
						Line:    line,
					})
				}
			}
		}
	}

	// E120: whatever the model layer still rejects
	if len(errs) == 0 {
		if _, err := model.NewSchema(def); err != nil {
			msg := err.Error()
			var se *model.SchemaError
			if errors.As(err, &se) {
				msg = se.Message
			}
			errs = append(errs, ValidationError{
				Field:   "schema",
				Message: msg,
				Code:    ErrSchemaInvalid,
				Line:    line,
			})
		}
	}
	return errs
}

func validateGoals(spec *ModelSpec) []ValidationError {
	var errs []ValidationError

	// E126: scope
	if err := spec.Scope.Validate(); err != nil {
		errs = append(errs, ValidationError{
			Field:   "scope",
			Message: "counts must be non-negative",
			Code:    ErrBoundInvalid,
			Line:    lineOf(spec.ScopePos),
		})
	}

	predNames := make(map[string]bool, len(spec.Predicates))
	for _, g := range spec.Predicates {
		field := "pred." + g.Name
		errs = append(errs, validateExpr(field, g)...)
		predNames[g.Name] = true

		if g.Min.Time != 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".min.time",
				Message: "a minimum does not constrain time",
				Code:    ErrBoundInvalid,
				Line:    lineOf(g.Pos),
			})
		}
		if err := g.Min.Validate(); err != nil {
			errs = append(errs, ValidationError{
				Field:   field + ".min",
				Message: "counts must be non-negative",
				Code:    ErrBoundInvalid,
				Line:    lineOf(g.Pos),
			})
			continue
		}
		if !spec.Scope.IsZero() && !boundCovers(spec.Scope, g.Min) {
			errs = append(errs, ValidationError{
				Field:   field + ".min",
				Message: fmt.Sprintf("minimum %s exceeds scope %s", g.Min, spec.Scope),
				Code:    ErrMinExceedsScope,
				Line:    lineOf(g.Pos),
			})
		}
	}

	for _, g := range spec.Assertions {
		field := "assert." + g.Name
		errs = append(errs, validateExpr(field, g)...)

		// E128
		if predNames[g.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("name %q is also used by a predicate", g.Name),
				Code:    ErrGoalNameCollision,
				Line:    lineOf(g.Pos),
			})
		}
	}
	return errs
}

// validateExpr checks that a goal expression compiles to a boolean.
func validateExpr(field string, g GoalSpec) []ValidationError {
	if g.Expr == "" {
		return []ValidationError{{
			Field:   field + ".expr",
			Message: "expression is required",
			Code:    ErrExprCompile,
			Line:    lineOf(g.Pos),
		}}
	}
	if _, err := predicate.Compile(g.Name, g.Expr); err != nil {
		msg := err.Error()
		var ce *predicate.CompileError
		if errors.As(err, &ce) {
			msg = ce.Message
		}
		return []ValidationError{{
			Field:   field + ".expr",
			Message: msg,
			Code:    ErrExprCompile,
			Line:    lineOf(g.Pos),
		}}
	}
	return nil
}

func boundCovers(b, min search.Bound) bool {
	return min.Objects <= b.Objects && min.Events <= b.Events && min.Observes <= b.Observes
}

func lineOf(pos token.Pos) int {
	if !pos.IsValid() {
		return 0
	}
	return pos.Line()
}
