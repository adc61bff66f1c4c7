package predicate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/oced/internal/model"
)

func testInstance(t *testing.T) *model.Instance {
	t.Helper()
	s := model.MustSchema(model.SchemaDef{
		ObjectTypes: []string{"case", "incident"},
		EventTypes:  []string{"start", "resolve"},
		Attributes:  map[string]model.ValueKind{"priority": model.KindInt, "due": model.KindTimestamp},
		Lifecycle:   &model.Lifecycle{Stateful: "incident", Start: []string{"start"}, Resolve: []string{"resolve"}},
	})
	b := model.NewBuilder(s, model.SequentialTime(4))
	require.NoError(t, b.AddObject(model.Object{
		ID: "O1", Type: "incident", Created: 0, Deleted: 3,
		Attrs: []model.Attr{{Name: "priority", Value: model.IntValue(2)}, {Name: "due", Value: model.TimeValue(2)}},
	}))
	require.NoError(t, b.AddObject(model.Object{ID: "O2", Type: "case", Created: 0, Deleted: model.NoInstant}))
	require.NoError(t, b.AddEvent(model.Event{ID: "E1", Type: "start", Timestamp: 1}))
	require.NoError(t, b.AddEvent(model.Event{ID: "E2", Type: "resolve", Timestamp: 2}))
	require.NoError(t, b.AddObserve(model.Observe{ID: "X1", Object: "O1", Event: "E1", Relation: "start"}))
	require.NoError(t, b.AddObserve(model.Observe{ID: "X2", Object: "O1", Event: "E2", Relation: "resolve"}))
	require.NoError(t, b.AddObserve(model.Observe{ID: "X3", Object: "O2", Event: "E2", Relation: "resolve"}))
	return b.Build()
}

func TestPredicate_Eval(t *testing.T) {
	in := testInstance(t)

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"count objects", `size(objects) == 2`, true},
		{"type exists", `objects.exists(o, o.type == "incident")`, true},
		{"deleted presence", `objects.filter(o, has(o.deleted)).size() == 1`, true},
		{"instant positions compare", `observes.all(x, x.event_time >= 1)`, true},
		{"time names", `time[events[1].timestamp] == "T2"`, true},
		{"int attribute", `objects[0].attributes.priority > 1`, true},
		{"timestamp attribute", `objects[0].attributes.due == events[1].timestamp`, true},
		{"denormalized observes", `observes.exists(x, x.object_type == "case" && x.event_type == "resolve")`, true},
		{"false result", `size(events) > 5`, false},
		{"resolved before deletion", `objects.all(o, o.type != "incident" || observes.exists(x, x.object == o.id && x.event_type == "resolve" && (!has(o.deleted) || x.event_time < o.deleted)))`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.name, tt.expr)
			require.NoError(t, err)
			got, err := p.Eval(in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"syntax", `size(objects) ==`},
		{"undeclared variable", `size(widgets) == 0`},
		{"non-bool", `size(objects)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.name, tt.expr)
			require.Error(t, err)
			var ce *CompileError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.name, ce.Name)
		})
	}
}

func TestPredicate_EvalErrorOnMissingKey(t *testing.T) {
	p := MustCompile("missing", `objects[1].deleted > 0`)
	_, err := p.Eval(testInstance(t))
	assert.Error(t, err)
}

func TestPredicate_Accessors(t *testing.T) {
	p := MustCompile("p", `true`)
	assert.Equal(t, "p", p.Name())
	assert.Equal(t, "true", p.Expr())
}
