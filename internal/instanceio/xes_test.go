package instanceio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/oced/internal/evaluator"
	"github.com/roach88/oced/internal/model"
)

func readXES(t *testing.T, opts XESOptions) *model.Instance {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", "sample.xes"))
	require.NoError(t, err)
	defer f.Close()
	in, err := FromXES(f, testSchema(), opts)
	require.NoError(t, err)
	return in
}

func TestFromXES(t *testing.T) {
	in := readXES(t, XESOptions{})

	// The first two timestamps coincide once normalized to UTC.
	assert.Equal(t, []string{
		OriginInstant,
		"2010-03-31T14:59:42Z",
		"2010-04-01T09:00:00Z",
		"2010-04-02T00:00:00Z",
	}, in.Time().Names())

	require.Equal(t, 2, in.NumObjects())
	o := in.Object(0)
	assert.Equal(t, "case_1-364285768", o.ID)
	assert.Equal(t, "case", o.Type)
	assert.Equal(t, model.Instant(0), o.Created)
	assert.False(t, o.IsDeleted())
	name, ok := o.Attr("name")
	require.True(t, ok)
	assert.Equal(t, model.StringValue("1-364285768"), name)

	require.Equal(t, 3, in.NumEvents())
	e := in.Event(0)
	assert.Equal(t, "event_1-364285768_1", e.ID)
	assert.Equal(t, "start", e.Type)
	assert.Equal(t, model.Instant(1), e.Timestamp)
	prio, ok := e.Attr("priority")
	require.True(t, ok)
	assert.Equal(t, model.IntValue(3), prio)
	_, ok = e.Attr("org:resource")
	assert.False(t, ok)

	assert.Equal(t, "resolve", in.Event(1).Type)
	due, ok := in.Event(1).Attr("due")
	require.True(t, ok)
	assert.Equal(t, model.TimeValue(3), due)

	// concept:name is used when it names a declared event type.
	assert.Equal(t, "escalate", in.Event(2).Type)

	require.Equal(t, 3, in.NumObserves())
	x := in.Observe(2)
	assert.Equal(t, model.Observe{ID: "obs_3", Object: "case_1-364285769", Event: "event_1-364285769_1", Relation: "involves"}, x)

	assert.Empty(t, evaluator.Evaluate(testSchema(), in))
}

func TestFromXES_Options(t *testing.T) {
	in := readXES(t, XESOptions{CaseType: "activity", EventType: "assign", Relation: "has_event"})

	assert.Equal(t, "activity", in.Object(0).Type)
	assert.Equal(t, "has_event", in.Observe(0).Relation)
	for _, e := range in.Events() {
		assert.Contains(t, []string{"start", "resolve", "escalate"}, e.Type)
	}
}

func TestFromXES_DefaultEventType(t *testing.T) {
	log := `<log><trace><string key="concept:name" value="c"/>` +
		`<event><string key="concept:name" value="Registered"/><date key="time:timestamp" value="2020-01-01T00:00:00Z"/></event>` +
		`</trace></log>`

	in, err := FromXES(strings.NewReader(log), testSchema(), XESOptions{EventType: "complete"})
	require.NoError(t, err)
	assert.Equal(t, "complete", in.Event(0).Type)

	in, err = FromXES(strings.NewReader(log), testSchema(), XESOptions{})
	require.NoError(t, err)
	assert.Equal(t, "start", in.Event(0).Type)
}

func TestFromXES_Errors(t *testing.T) {
	_, err := FromXES(strings.NewReader("<log><trace>"), testSchema(), XESOptions{})
	assert.True(t, IsFormatError(err))

	bad := `<log><trace><string key="concept:name" value="c"/><event><date key="time:timestamp" value="yesterday"/></event></trace></log>`
	_, err = FromXES(strings.NewReader(bad), testSchema(), XESOptions{})
	require.Error(t, err)
	assert.True(t, IsFormatError(err))
	assert.Contains(t, err.Error(), "yesterday")

	_, err = FromXES(strings.NewReader("<log/>"), testSchema(), XESOptions{CaseType: "ticket"})
	assert.True(t, model.IsSchemaError(err))

	_, err = FromXES(strings.NewReader("<log/>"), testSchema(), XESOptions{Relation: "blocks"})
	assert.True(t, model.IsSchemaError(err))
}

func TestFromXES_EmptyLog(t *testing.T) {
	in, err := FromXES(strings.NewReader("<log/>"), testSchema(), XESOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, in.NumObjects())
	assert.Equal(t, []string{OriginInstant}, in.Time().Names())
}
