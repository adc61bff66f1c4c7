package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/oced/internal/model"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSchema() *model.Schema {
	return model.MustSchema(model.SchemaDef{
		ObjectTypes:   []string{"case", "activity", "resource", "incident"},
		EventTypes:    []string{"start", "complete", "assign", "escalate", "resolve"},
		RelationTypes: []string{"has_event", "involves", "follows", "assigned_to"},
		Attributes: map[string]model.ValueKind{
			"name":     model.KindString,
			"priority": model.KindInt,
			"due":      model.KindTimestamp,
		},
		Lifecycle: &model.Lifecycle{Stateful: "incident", Start: []string{"start"}, Resolve: []string{"resolve"}},
	})
}

// processInstance has two cases sharing a start event and a resource
// observed with both.
//
//	C1: start(T1) complete(T3)
//	C2: start(T1) assign(T2) complete(T4)
//	R1: assign(T2) complete(T4)
func processInstance(t *testing.T) *model.Instance {
	t.Helper()
	b := model.NewBuilder(testSchema(), model.SequentialTime(6))
	objects := []model.Object{
		{ID: "C1", Type: "case", Created: 0, Deleted: model.NoInstant,
			Attrs: []model.Attr{{Name: "name", Value: model.StringValue("first")}, {Name: "priority", Value: model.IntValue(1 << 60)}}},
		{ID: "C2", Type: "case", Created: 0, Deleted: 5},
		{ID: "R1", Type: "resource", Created: 0, Deleted: model.NoInstant,
			Attrs: []model.Attr{{Name: "due", Value: model.TimeValue(4)}}},
	}
	for _, o := range objects {
		require.NoError(t, b.AddObject(o))
	}
	events := []model.Event{
		{ID: "E1", Type: "start", Timestamp: 1},
		{ID: "E2", Type: "assign", Timestamp: 2},
		{ID: "E3", Type: "complete", Timestamp: 3},
		{ID: "E4", Type: "complete", Timestamp: 4},
	}
	for _, e := range events {
		require.NoError(t, b.AddEvent(e))
	}
	links := [][2]string{
		{"C1", "E1"}, {"C2", "E1"},
		{"C2", "E2"}, {"R1", "E2"},
		{"C1", "E3"},
		{"C2", "E4"}, {"R1", "E4"},
	}
	for i, l := range links {
		require.NoError(t, b.AddObserve(model.Observe{
			ID: "X" + string(rune('1'+i)), Object: l[0], Event: l[1], Relation: "involves",
		}))
	}
	return b.Build()
}
