package instanceio

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/oced/internal/model"
)

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

// sampleInstance has one case and one deleted incident, both observed by
// a single start event.
func sampleInstance(t *testing.T) *model.Instance {
	t.Helper()
	s := testSchema()
	b := model.NewBuilder(s, model.SequentialTime(3))
	require.NoError(t, b.AddObject(model.Object{
		ID: "case-1", Type: "case", Created: 0, Deleted: model.NoInstant,
		Attrs: []model.Attr{
			{Name: "priority", Value: model.IntValue(2)},
			{Name: "name", Value: model.StringValue("intake")},
		},
	}))
	require.NoError(t, b.AddObject(model.Object{
		ID: "inc", Type: "incident", Created: 0, Deleted: 2,
		Attrs: []model.Attr{{Name: "due", Value: model.TimeValue(2)}},
	}))
	require.NoError(t, b.AddEvent(model.Event{ID: "E1", Type: "start", Timestamp: 1}))
	require.NoError(t, b.AddObserve(model.Observe{ID: "X1", Object: "case-1", Event: "E1", Relation: "involves"}))
	require.NoError(t, b.AddObserve(model.Observe{ID: "X2", Object: "inc", Event: "E1", Relation: "involves"}))
	return b.Build()
}

func writeString(path, data string) error {
	return os.WriteFile(path, []byte(data), 0o644)
}
