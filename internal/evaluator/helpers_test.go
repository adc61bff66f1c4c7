package evaluator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/oced/internal/model"
)

func testSchema() *model.Schema {
	return model.MustSchema(model.SchemaDef{
		ObjectTypes:   []string{"case", "activity", "resource", "incident"},
		EventTypes:    []string{"start", "complete", "assign", "escalate", "resolve"},
		RelationTypes: []string{"has_event", "involves", "follows", "assigned_to"},
		Lifecycle:     &model.Lifecycle{Stateful: "incident", Start: []string{"start"}, Resolve: []string{"resolve"}},
	})
}

// fixture builds instances in tests. Instants are given as indexes into
// SequentialTime(n); -1 leaves an object undeleted.
type fixture struct {
	t *testing.T
	b *model.Builder
	n int
}

func newFixture(t *testing.T, s *model.Schema, instants int) *fixture {
	t.Helper()
	return &fixture{t: t, b: model.NewBuilder(s, model.SequentialTime(instants))}
}

func (f *fixture) object(id, typ string, created, deleted int) *fixture {
	f.t.Helper()
	require.NoError(f.t, f.b.AddObject(model.Object{
		ID: id, Type: typ, Created: model.Instant(created), Deleted: model.Instant(deleted),
	}))
	return f
}

func (f *fixture) event(id, typ string, ts int) *fixture {
	f.t.Helper()
	require.NoError(f.t, f.b.AddEvent(model.Event{ID: id, Type: typ, Timestamp: model.Instant(ts)}))
	return f
}

func (f *fixture) observe(object, event string) *fixture {
	f.t.Helper()
	f.n++
	require.NoError(f.t, f.b.AddObserve(model.Observe{
		ID: "X" + itoa(f.n), Object: object, Event: event, Relation: "involves",
	}))
	return f
}

func (f *fixture) build() *model.Instance { return f.b.Build() }

func itoa(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	return itoa(n/10) + string(rune('0'+n%10))
}

func byInvariant(vs []Violation, id InvariantID) []Violation {
	var out []Violation
	for _, v := range vs {
		if v.Invariant == id {
			out = append(out, v)
		}
	}
	return out
}
