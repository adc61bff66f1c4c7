package model

func testSchema() *Schema {
	return MustSchema(SchemaDef{
		ObjectTypes:   []string{"case", "activity", "resource", "incident"},
		EventTypes:    []string{"start", "complete", "assign", "escalate", "resolve"},
		RelationTypes: []string{"has_event", "involves", "follows", "assigned_to"},
		Attributes: map[string]ValueKind{
			"name":     KindString,
			"priority": KindInt,
			"due":      KindTimestamp,
		},
		Lifecycle: &Lifecycle{Stateful: "incident", Start: []string{"start"}, Resolve: []string{"resolve"}},
	})
}
