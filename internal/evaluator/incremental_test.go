package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/oced/internal/model"
)

func obj(typ string, created, deleted int) model.Object {
	return model.Object{Type: typ, Created: model.Instant(created), Deleted: model.Instant(deleted)}
}

func ev(typ string, ts int) model.Event {
	return model.Event{Type: typ, Timestamp: model.Instant(ts)}
}

func TestIncremental_AdmitObject(t *testing.T) {
	c := NewIncremental(testSchema(), model.SequentialTime(4))

	assert.True(t, c.AdmitObject(obj("case", 0, -1)))
	assert.True(t, c.AdmitObject(obj("case", 0, 2)))
	assert.False(t, c.AdmitObject(obj("case", 2, 1)), "deleted before created")
	assert.False(t, c.AdmitObject(obj("case", 3, -1)), "created at the last instant can never be observed")
	assert.False(t, c.AdmitObject(obj("case", 1, 2)), "active interval holds no instant")
}

func TestIncremental_AdmitEventLimitsEventsPerInstant(t *testing.T) {
	c := NewIncremental(testSchema(), model.SequentialTime(4))
	c.PushObject(obj("case", 0, -1))

	assert.False(t, c.AdmitEvent(ev("start", 0)), "no object is active at T0")
	require.True(t, c.AdmitEvent(ev("start", 1)))
	c.PushEvent(ev("start", 1))
	assert.False(t, c.AdmitEvent(ev("complete", 1)), "one object cannot see two events at T1")
	assert.True(t, c.AdmitEvent(ev("complete", 2)))

	c.PopEvent()
	assert.True(t, c.AdmitEvent(ev("complete", 1)))
}

func TestIncremental_ObservePushPop(t *testing.T) {
	s := testSchema().WithMaxObserves(1)
	c := NewIncremental(s, model.SequentialTime(4))
	c.PushObject(obj("case", 0, -1))
	c.PushObject(obj("case", 0, 3))
	c.PushEvent(ev("start", 1))
	c.PushEvent(ev("assign", 1))
	c.PushEvent(ev("complete", 3))

	assert.Equal(t, 2, c.UncoveredObjects())
	assert.Equal(t, 3, c.UncoveredEvents())

	require.True(t, c.AdmitObserve(0, 0))
	c.PushObserve(0, 0)
	assert.True(t, c.ObjectCovered(0))
	assert.True(t, c.EventCovered(0))
	assert.Equal(t, 1, c.UncoveredObjects())
	assert.Equal(t, 2, c.UncoveredEvents())

	assert.True(t, c.AdmitObserve(0, 0), "repeating a link adds no distinct event or object")
	assert.False(t, c.AdmitObserve(0, 1), "second distinct event at T1 for object 0")
	assert.False(t, c.AdmitObserve(1, 0), "event 0 already observes the maximum of one object")
	assert.False(t, c.AdmitObserve(1, 2), "event at T3 is at the deletion of object 1")
	assert.True(t, c.AdmitObserve(1, 1))

	c.PopObserve(0, 0)
	assert.False(t, c.ObjectCovered(0))
	assert.Equal(t, 2, c.UncoveredObjects())
	assert.Equal(t, 3, c.UncoveredEvents())
	assert.True(t, c.AdmitObserve(0, 1))
	assert.True(t, c.AdmitObserve(1, 0))
}

func TestIncremental_Lifecycle(t *testing.T) {
	c := NewIncremental(testSchema(), model.SequentialTime(5))
	c.PushObject(obj("incident", 0, -1))
	c.PushObject(obj("incident", 0, 2))
	c.PushEvent(ev("start", 1))

	assert.False(t, c.LifecycleFeasible(0), "no resolve event and never deleted")
	assert.True(t, c.LifecycleFeasible(1), "deletion discharges resolve")

	c.PushEvent(ev("resolve", 3))
	assert.True(t, c.LifecycleFeasible(0))

	c.PushObserve(0, 0)
	assert.False(t, c.LifecycleMet(0))
	c.PushObserve(0, 1)
	assert.True(t, c.LifecycleMet(0))
	c.PopObserve(0, 1)
	assert.False(t, c.LifecycleMet(0))

	c.PushObserve(1, 0)
	assert.True(t, c.LifecycleMet(1))
}
