package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"bool", true, "true"},
		{"sorted keys", map[string]any{"zebra": 1, "alpha": 2}, `{"alpha":2,"zebra":1}`},
		{"no html escaping", "<a&b>", `"<a&b>"`},
		{"nested", map[string]any{"b": []any{1, "x"}, "a": map[string]any{}}, `{"a":{},"b":[1,"x"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestMarshalCanonical_RejectsFloatAndNull(t *testing.T) {
	_, err := MarshalCanonical(1.5)
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"x": nil})
	assert.Error(t, err)
}

func TestMarshalCanonical_LineSeparatorsLiteral(t *testing.T) {
	out, err := MarshalCanonical("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(out))

	out, err = MarshalCanonical(`a\u2028b`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(out), "escaped backslash text stays escaped")
}

func buildHashInstance(t *testing.T, objType string) *Instance {
	t.Helper()
	b := NewBuilder(testSchema(), SequentialTime(3))
	require.NoError(t, b.AddObject(Object{ID: "O1", Type: objType, Created: 0, Deleted: NoInstant}))
	require.NoError(t, b.AddEvent(Event{ID: "E1", Type: "start", Timestamp: 1}))
	require.NoError(t, b.AddObserve(Observe{ID: "X1", Object: "O1", Event: "E1", Relation: "involves"}))
	return b.Build()
}

func TestInstanceHash_StableAndSensitive(t *testing.T) {
	h1 := MustInstanceHash(buildHashInstance(t, "case"))
	h2 := MustInstanceHash(buildHashInstance(t, "case"))
	h3 := MustInstanceHash(buildHashInstance(t, "incident"))

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}

func TestSchemaHash_IgnoresLifecycleKindOrder(t *testing.T) {
	def := testSchema().Def()
	def.Lifecycle = &Lifecycle{Stateful: "incident", Start: []string{"start", "assign"}, Resolve: []string{"resolve"}}
	a := MustSchema(def)
	def.Lifecycle = &Lifecycle{Stateful: "incident", Start: []string{"assign", "start"}, Resolve: []string{"resolve"}}
	b := MustSchema(def)

	ha, err := SchemaHash(a)
	require.NoError(t, err)
	hb, err := SchemaHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}
