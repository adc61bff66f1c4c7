package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/oced/internal/model"
	"github.com/roach88/oced/internal/search"
)

// GoalSpec is a named predicate or assertion as written in the model.
type GoalSpec struct {
	Name string
	Expr string
	Doc  string

	// Min is the lower cardinality bound of a predicate's witnesses.
	Min search.Bound

	// AssumeInvariants applies to assertions. It defaults to true.
	AssumeInvariants bool

	Pos token.Pos
}

// ModelSpec is the parsed, not yet validated, form of a model.
type ModelSpec struct {
	Schema    model.SchemaDef
	SchemaPos token.Pos

	Predicates []GoalSpec
	Assertions []GoalSpec

	// Scope is the default search bound; zero when the model has none.
	Scope    search.Bound
	ScopePos token.Pos
}

// ParseModel reads the model fields out of a CUE value.
// Fails on the first structural problem, such as a list where a string
// was expected.
func ParseModel(v cue.Value) (*ModelSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schemaVal := v.LookupPath(cue.ParsePath("schema"))
	if !schemaVal.Exists() {
		return nil, &CompileError{Field: "schema", Message: "schema is required", Pos: v.Pos()}
	}
	spec := &ModelSpec{SchemaPos: schemaVal.Pos()}

	var err error
	if spec.Schema, err = parseSchema(schemaVal); err != nil {
		return nil, err
	}
	if spec.Predicates, err = parseGoals(v, "pred"); err != nil {
		return nil, err
	}
	if spec.Assertions, err = parseGoals(v, "assert"); err != nil {
		return nil, err
	}

	scopeVal := v.LookupPath(cue.ParsePath("scope"))
	if scopeVal.Exists() {
		spec.ScopePos = scopeVal.Pos()
		if spec.Scope, err = parseBound(scopeVal, "scope"); err != nil {
			return nil, err
		}
	}
	return spec, nil
}

func parseSchema(v cue.Value) (model.SchemaDef, error) {
	var def model.SchemaDef
	var err error
	if def.ObjectTypes, err = stringList(v, "object_types"); err != nil {
		return def, err
	}
	if def.EventTypes, err = stringList(v, "event_types"); err != nil {
		return def, err
	}
	if def.RelationTypes, err = stringList(v, "relation_types"); err != nil {
		return def, err
	}

	attrVal := v.LookupPath(cue.ParsePath("attributes"))
	if attrVal.Exists() {
		iter, err := attrVal.Fields()
		if err != nil {
			return def, formatCUEError(err)
		}
		def.Attributes = make(map[string]model.ValueKind)
		for iter.Next() {
			kind, err := iter.Value().String()
			if err != nil {
				return def, &CompileError{
					Field:   "schema.attributes." + iter.Selector().Unquoted(),
					Message: "attribute kind must be a string (int, string or timestamp)",
					Pos:     iter.Value().Pos(),
				}
			}
			def.Attributes[iter.Selector().Unquoted()] = model.ValueKind(kind)
		}
	}

	maxVal := v.LookupPath(cue.ParsePath("max_observes"))
	if maxVal.Exists() {
		n, err := maxVal.Int64()
		if err != nil {
			return def, &CompileError{Field: "schema.max_observes", Message: "must be an integer", Pos: maxVal.Pos()}
		}
		def.MaxObserves = int(n)
	}

	lcVal := v.LookupPath(cue.ParsePath("lifecycle"))
	if lcVal.Exists() {
		lc := &model.Lifecycle{}
		sv := lcVal.LookupPath(cue.ParsePath("stateful"))
		if lc.Stateful, err = sv.String(); err != nil {
			return def, &CompileError{Field: "schema.lifecycle.stateful", Message: "stateful object type is required", Pos: lcVal.Pos()}
		}
		if lc.Start, err = stringList(lcVal, "start"); err != nil {
			return def, err
		}
		if lc.Resolve, err = stringList(lcVal, "resolve"); err != nil {
			return def, err
		}
		def.Lifecycle = lc
	}
	return def, nil
}

func parseGoals(v cue.Value, section string) ([]GoalSpec, error) {
	sv := v.LookupPath(cue.ParsePath(section))
	if !sv.Exists() {
		return nil, nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var goals []GoalSpec
	for iter.Next() {
		name := iter.Selector().Unquoted()
		gv := iter.Value()
		field := section + "." + name
		g := GoalSpec{Name: name, AssumeInvariants: true, Pos: gv.Pos()}

		// A bare string is shorthand for {expr: "..."}
		if s, err := gv.String(); err == nil {
			g.Expr = s
			goals = append(goals, g)
			continue
		}

		exprVal := gv.LookupPath(cue.ParsePath("expr"))
		if !exprVal.Exists() {
			return nil, &CompileError{Field: field + ".expr", Message: "expr is required", Pos: gv.Pos()}
		}
		if g.Expr, err = exprVal.String(); err != nil {
			return nil, &CompileError{Field: field + ".expr", Message: "expr must be a string", Pos: exprVal.Pos()}
		}
		g.Pos = exprVal.Pos()

		if docVal := gv.LookupPath(cue.ParsePath("doc")); docVal.Exists() {
			if g.Doc, err = docVal.String(); err != nil {
				return nil, &CompileError{Field: field + ".doc", Message: "doc must be a string", Pos: docVal.Pos()}
			}
		}
		if minVal := gv.LookupPath(cue.ParsePath("min")); minVal.Exists() {
			if section != "pred" {
				return nil, &CompileError{Field: field + ".min", Message: "min applies to predicates only", Pos: minVal.Pos()}
			}
			if g.Min, err = parseBound(minVal, field+".min"); err != nil {
				return nil, err
			}
		}
		if aiVal := gv.LookupPath(cue.ParsePath("assume_invariants")); aiVal.Exists() {
			if section != "assert" {
				return nil, &CompileError{Field: field + ".assume_invariants", Message: "assume_invariants applies to assertions only", Pos: aiVal.Pos()}
			}
			if g.AssumeInvariants, err = aiVal.Bool(); err != nil {
				return nil, &CompileError{Field: field + ".assume_invariants", Message: "must be a boolean", Pos: aiVal.Pos()}
			}
		}
		goals = append(goals, g)
	}
	return goals, nil
}

func parseBound(v cue.Value, field string) (search.Bound, error) {
	var b search.Bound
	targets := []struct {
		name string
		dst  *int
	}{
		{"objects", &b.Objects},
		{"events", &b.Events},
		{"observes", &b.Observes},
		{"time", &b.Time},
	}
	for _, tg := range targets {
		fv := v.LookupPath(cue.ParsePath(tg.name))
		if !fv.Exists() {
			continue
		}
		n, err := fv.Int64()
		if err != nil {
			return b, &CompileError{Field: field + "." + tg.name, Message: "must be an integer", Pos: fv.Pos()}
		}
		*tg.dst = int(n)
	}
	return b, nil
}

// stringList reads an optional list of strings.
func stringList(v cue.Value, name string) ([]string, error) {
	lv := v.LookupPath(cue.ParsePath(name))
	if !lv.Exists() {
		return nil, nil
	}
	iter, err := lv.List()
	if err != nil {
		return nil, &CompileError{Field: fmt.Sprintf("%s.%s", pathString(v), name), Message: "must be a list of strings", Pos: lv.Pos()}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Field: fmt.Sprintf("%s.%s", pathString(v), name), Message: "must be a list of strings", Pos: iter.Value().Pos()}
		}
		out = append(out, s)
	}
	return out, nil
}

func pathString(v cue.Value) string {
	return v.Path().String()
}
