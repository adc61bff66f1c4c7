package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/oced/internal/model"
	"github.com/roach88/oced/internal/search"
)

const incidentModel = `
schema: {
	object_types: ["incident", "user"]
	event_types: ["open", "assign", "close"]
	relation_types: ["subject", "actor"]
	attributes: {
		priority: "int"
		due:      "timestamp"
	}
	max_observes: 3
	lifecycle: {
		stateful: "incident"
		start: ["open"]
		resolve: ["close"]
	}
}

pred: closed_incident: {
	expr: "events.exists(e, e.type == 'close')"
	doc:  "some incident gets closed"
	min: {objects: 1, events: 2}
}

pred: any_user: "objects.exists(o, o.type == 'user')"

assert: no_orphans: {
	expr: "events.all(e, observes.exists(x, x.event == e.id))"
	assume_invariants: false
}

scope: {objects: 3, events: 4, observes: 4, time: 3}
`

func compileCUE(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return v
}

func TestParseModel(t *testing.T) {
	spec, err := ParseModel(compileCUE(t, incidentModel))
	require.NoError(t, err)

	assert.Equal(t, []string{"incident", "user"}, spec.Schema.ObjectTypes)
	assert.Equal(t, []string{"open", "assign", "close"}, spec.Schema.EventTypes)
	assert.Equal(t, []string{"subject", "actor"}, spec.Schema.RelationTypes)
	assert.Equal(t, map[string]model.ValueKind{"priority": model.KindInt, "due": model.KindTimestamp}, spec.Schema.Attributes)
	assert.Equal(t, 3, spec.Schema.MaxObserves)
	require.NotNil(t, spec.Schema.Lifecycle)
	assert.Equal(t, "incident", spec.Schema.Lifecycle.Stateful)
	assert.Equal(t, []string{"open"}, spec.Schema.Lifecycle.Start)
	assert.Equal(t, []string{"close"}, spec.Schema.Lifecycle.Resolve)

	require.Len(t, spec.Predicates, 2)
	assert.Equal(t, "closed_incident", spec.Predicates[0].Name)
	assert.Equal(t, "some incident gets closed", spec.Predicates[0].Doc)
	assert.Equal(t, search.Bound{Objects: 1, Events: 2}, spec.Predicates[0].Min)
	assert.Equal(t, "any_user", spec.Predicates[1].Name)
	assert.Equal(t, "objects.exists(o, o.type == 'user')", spec.Predicates[1].Expr)

	require.Len(t, spec.Assertions, 1)
	assert.Equal(t, "no_orphans", spec.Assertions[0].Name)
	assert.False(t, spec.Assertions[0].AssumeInvariants)

	assert.Equal(t, search.Bound{Objects: 3, Events: 4, Observes: 4, Time: 3}, spec.Scope)
}

func TestParseModelAssumeInvariantsDefault(t *testing.T) {
	spec, err := ParseModel(compileCUE(t, `
		schema: {object_types: ["a"], event_types: ["e"]}
		assert: trivially: "true"
	`))
	require.NoError(t, err)
	require.Len(t, spec.Assertions, 1)
	assert.True(t, spec.Assertions[0].AssumeInvariants)
	assert.True(t, spec.Scope.IsZero())
}

func TestParseModelErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{
			name:  "missing schema",
			src:   `pred: p: "true"`,
			field: "schema",
		},
		{
			name:  "object types not a list",
			src:   `schema: {object_types: "a", event_types: ["e"]}`,
			field: "schema.object_types",
		},
		{
			name:  "attribute kind not a string",
			src:   `schema: {object_types: ["a"], event_types: ["e"], attributes: n: 3}`,
			field: "schema.attributes.n",
		},
		{
			name:  "pred without expr",
			src:   `schema: {object_types: ["a"], event_types: ["e"]}, pred: p: {doc: "x"}`,
			field: "pred.p.expr",
		},
		{
			name:  "min on assertion",
			src:   `schema: {object_types: ["a"], event_types: ["e"]}, assert: a: {expr: "true", min: objects: 1}`,
			field: "assert.a.min",
		},
		{
			name:  "scope count not an integer",
			src:   `schema: {object_types: ["a"], event_types: ["e"]}, scope: objects: "many"`,
			field: "scope.objects",
		},
		{
			name:  "lifecycle without stateful",
			src:   `schema: {object_types: ["a"], event_types: ["e"], lifecycle: start: ["e"]}`,
			field: "schema.lifecycle.stateful",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseModel(compileCUE(t, tt.src))
			require.Error(t, err)
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompile(t *testing.T) {
	m, err := Compile(compileCUE(t, incidentModel))
	require.NoError(t, err)

	assert.Equal(t, 3, m.Schema.MaxObserves())
	assert.True(t, m.Schema.IsStateful("incident"))

	g, err := m.WitnessGoal("closed_incident")
	require.NoError(t, err)
	assert.Equal(t, search.GoalWitness, g.Kind)
	assert.Equal(t, search.Bound{Objects: 1, Events: 2}, g.Min)

	a, err := m.AssertionGoal("no_orphans")
	require.NoError(t, err)
	assert.Equal(t, search.GoalAssertion, a.Kind)
	assert.False(t, a.AssumeInvariants)

	_, err = m.WitnessGoal("no_orphans")
	require.Error(t, err)
	assert.True(t, search.IsGoalError(err))
	assert.Contains(t, err.Error(), "closed_incident, any_user")
}

func TestCompileReportsValidationErrors(t *testing.T) {
	_, err := Compile(compileCUE(t, `
		schema: {object_types: [], event_types: ["e", "e"]}
		pred: p: "objects.size() +"
	`))
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	codes := make([]string, len(verrs))
	for i, ve := range verrs {
		codes[i] = ve.Code
	}
	assert.Equal(t, []string{ErrEmptyEnum, ErrDuplicateName, ErrExprCompile}, codes)
}

func TestBoundOr(t *testing.T) {
	m, err := Compile(compileCUE(t, incidentModel))
	require.NoError(t, err)

	assert.Equal(t, m.Scope, m.BoundOr(search.Bound{}))
	b := search.Bound{Objects: 1, Events: 1, Observes: 1, Time: 1}
	assert.Equal(t, b, m.BoundOr(b))
}

func TestCompiledPredicateEvaluates(t *testing.T) {
	m, err := Compile(compileCUE(t, incidentModel))
	require.NoError(t, err)

	tm := model.SequentialTime(2)
	b := model.NewBuilder(m.Schema, tm)
	require.NoError(t, b.AddObject(model.Object{ID: "i1", Type: "incident", Created: 0, Deleted: model.NoInstant}))
	require.NoError(t, b.AddEvent(model.Event{ID: "e1", Type: "close", Timestamp: 1}))
	in := b.Build()

	g, ok := m.Predicate("closed_incident")
	require.True(t, ok)
	got, err := g.Predicate.Eval(in)
	require.NoError(t, err)
	assert.True(t, got)

	u, ok := m.Predicate("any_user")
	require.True(t, ok)
	got, err = u.Predicate.Eval(in)
	require.NoError(t, err)
	assert.False(t, got)
}
