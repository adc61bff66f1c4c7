package instanceio

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/oced/internal/evaluator"
	"github.com/roach88/oced/internal/model"
)

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("a/b.yaml"))
	assert.Equal(t, FormatYAML, FormatFromPath("b.YML"))
	assert.Equal(t, FormatJSON, FormatFromPath("b.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("b"))
}

func TestReadFile_YAML(t *testing.T) {
	s := testSchema()
	in, err := ReadFile(s, filepath.Join("testdata", "incident.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1, in.NumObjects())
	assert.Equal(t, 2, in.NumEvents())
	v, ok := in.Object(0).Attr("priority")
	require.True(t, ok)
	assert.Equal(t, model.IntValue(1), v)
	due, ok := in.Event(1).Attr("due")
	require.True(t, ok)
	assert.Equal(t, model.TimeValue(3), due)
	assert.Empty(t, evaluator.Evaluate(s, in))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	in := sampleInstance(t)
	for _, f := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, FromInstance(in), f))

			doc, err := Decode(buf.Bytes(), f)
			require.NoError(t, err)
			back, err := ToInstance(testSchema(), doc)
			require.NoError(t, err)
			assert.Equal(t, model.MustInstanceHash(in), model.MustInstanceHash(back))
		})
	}
}

func TestWriteFile_ReadFile(t *testing.T) {
	in := sampleInstance(t)
	dir := t.TempDir()
	for _, name := range []string{"inst.json", "inst.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteFile(path, in))
		back, err := ReadFile(testSchema(), path)
		require.NoError(t, err)
		assert.Equal(t, model.MustInstanceHash(in), model.MustInstanceHash(back))
	}
}

func TestDecode_Malformed(t *testing.T) {
	cases := []struct {
		name   string
		data   string
		format Format
		want   string
	}{
		{"not json", `{"time": [`, FormatJSON, "invalid JSON"},
		{"not yaml", "time: [T0\nobjects: {", FormatYAML, "invalid YAML"},
		{"missing table", `{"time": [], "objects": [], "events": []}`, FormatJSON, "observes"},
		{"unknown field", `{"time": [], "objects": [], "events": [], "observes": [], "extra": 1}`, FormatJSON, "extra"},
		{"object without id", `{"time": ["T0"], "objects": [{"type": "case", "created": "T0"}], "events": [], "observes": []}`, FormatJSON, "/objects/0"},
		{"empty id", `{"time": ["T0"], "objects": [{"id": "", "type": "case", "created": "T0"}], "events": [], "observes": []}`, FormatJSON, "/objects/0/id"},
		{"float attribute", `{"time": ["T0"], "objects": [{"id": "O1", "type": "case", "created": "T0", "attributes": {"priority": 1.5}}], "events": [], "observes": []}`, FormatJSON, "/objects/0/attributes/priority"},
		{"repeated instant", `{"time": ["T0", "T0"], "objects": [], "events": [], "observes": []}`, FormatJSON, "/time"},
		{"empty yaml", "", FormatYAML, "/"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.data), tc.format)
			require.Error(t, err)
			assert.True(t, IsFormatError(err), "got %T: %v", err, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestReadFile_SetsSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, writeString(path, `{"time": 3}`))

	_, err := ReadFile(testSchema(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(testSchema(), filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.False(t, IsFormatError(err))
}
