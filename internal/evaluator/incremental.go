package evaluator

import "github.com/roach88/oced/internal/model"

type pairKey struct{ object, event int }

type slotKey struct {
	object int
	at     model.Instant
}

// Incremental evaluates a partially assigned instance. Objects are pushed
// first, then events, then observe links, each with a matching Pop for
// backtracking. The Admit methods answer whether an assignment keeps the
// checks whose inputs it fixes satisfiable; they never mutate state.
//
// Incremental is not safe for concurrent use. Each search worker owns one.
type Incremental struct {
	schema *model.Schema
	time   *model.TimeOrder
	limit  int

	objects  []model.Object
	events   []model.Event
	eventsAt []int // events per instant

	pairs      map[pairKey]int // observes per (object, event)
	slots      map[slotKey]int // distinct events per (object, instant)
	evDistinct []int           // distinct objects per event
	objCover   []int           // observes per object
	evCover    []int           // observes per event
	starts     []int           // start-kind observations per object
	resolves   []int           // resolve-kind observations per object

	uncoveredObjects int
	uncoveredEvents  int
}

// NewIncremental returns an empty partial instance over s and t.
func NewIncremental(s *model.Schema, t *model.TimeOrder) *Incremental {
	return &Incremental{
		schema:   s,
		time:     t,
		limit:    s.MaxObserves(),
		eventsAt: make([]int, t.Len()),
		pairs:    make(map[pairKey]int),
		slots:    make(map[slotKey]int),
	}
}

// NumObjects returns the number of pushed objects.
func (c *Incremental) NumObjects() int { return len(c.objects) }

// NumEvents returns the number of pushed events.
func (c *Incremental) NumEvents() int { return len(c.events) }

// Object returns the i-th pushed object.
func (c *Incremental) Object(i int) model.Object { return c.objects[i] }

// Event returns the i-th pushed event.
func (c *Incremental) Event(i int) model.Event { return c.events[i] }

// AdmitObject checks invariant 1 and that o can be observed at all.
func (c *Incremental) AdmitObject(o model.Object) bool {
	return DeletionValid(o) && Observable(o, c.time)
}

// PushObject appends o.
func (c *Incremental) PushObject(o model.Object) {
	c.objects = append(c.objects, o)
	c.objCover = append(c.objCover, 0)
	c.starts = append(c.starts, 0)
	c.resolves = append(c.resolves, 0)
	c.uncoveredObjects++
}

// PopObject removes the last object.
func (c *Incremental) PopObject() {
	n := len(c.objects) - 1
	if c.objCover[n] == 0 {
		c.uncoveredObjects--
	}
	c.objects = c.objects[:n]
	c.objCover = c.objCover[:n]
	c.starts = c.starts[:n]
	c.resolves = c.resolves[:n]
}

// EligibleAt counts the pushed objects an event at ts could observe.
func (c *Incremental) EligibleAt(ts model.Instant) int {
	n := 0
	for _, o := range c.objects {
		if ActiveAt(o, ts) {
			n++
		}
	}
	return n
}

// AdmitEvent checks that e can be observed. Every event needs an active
// object, and an object can be observed by at most one event per instant,
// so the events sharing an instant may not outnumber the objects active
// at it.
func (c *Incremental) AdmitEvent(e model.Event) bool {
	return c.EligibleAt(e.Timestamp) > c.eventsAt[e.Timestamp]
}

// PushEvent appends e.
func (c *Incremental) PushEvent(e model.Event) {
	c.events = append(c.events, e)
	c.evDistinct = append(c.evDistinct, 0)
	c.evCover = append(c.evCover, 0)
	c.eventsAt[e.Timestamp]++
	c.uncoveredEvents++
}

// PopEvent removes the last event.
func (c *Incremental) PopEvent() {
	n := len(c.events) - 1
	if c.evCover[n] == 0 {
		c.uncoveredEvents--
	}
	c.eventsAt[c.events[n].Timestamp]--
	c.events = c.events[:n]
	c.evDistinct = c.evDistinct[:n]
	c.evCover = c.evCover[:n]
}

// LifecycleFeasible reports whether the pushed events could still satisfy
// invariant 7 for object oi.
func (c *Incremental) LifecycleFeasible(oi int) bool {
	o := c.objects[oi]
	if !c.schema.IsStateful(o.Type) {
		return true
	}
	var start, resolve bool
	for _, e := range c.events {
		if !ActiveAt(o, e.Timestamp) {
			continue
		}
		start = start || c.schema.IsStartKind(e.Type)
		resolve = resolve || c.schema.IsResolveKind(e.Type)
	}
	return start && (resolve || o.IsDeleted())
}

// AdmitObserve checks invariants 2, 3, 5 and 6 for a link from event ei to
// object oi.
func (c *Incremental) AdmitObserve(oi, ei int) bool {
	o, e := c.objects[oi], c.events[ei]
	if !ActiveAt(o, e.Timestamp) {
		return false
	}
	if c.pairs[pairKey{oi, ei}] > 0 {
		return true
	}
	return c.slots[slotKey{oi, e.Timestamp}] == 0 && c.evDistinct[ei] < c.limit
}

// PushObserve records a link from event ei to object oi.
func (c *Incremental) PushObserve(oi, ei int) {
	e := c.events[ei]
	k := pairKey{oi, ei}
	if c.pairs[k] == 0 {
		c.slots[slotKey{oi, e.Timestamp}]++
		c.evDistinct[ei]++
	}
	c.pairs[k]++
	if c.objCover[oi] == 0 {
		c.uncoveredObjects--
	}
	if c.evCover[ei] == 0 {
		c.uncoveredEvents--
	}
	c.objCover[oi]++
	c.evCover[ei]++
	if c.schema.IsStartKind(e.Type) {
		c.starts[oi]++
	}
	if c.schema.IsResolveKind(e.Type) {
		c.resolves[oi]++
	}
}

// PopObserve undoes PushObserve(oi, ei).
func (c *Incremental) PopObserve(oi, ei int) {
	e := c.events[ei]
	k := pairKey{oi, ei}
	c.pairs[k]--
	if c.pairs[k] == 0 {
		delete(c.pairs, k)
		s := slotKey{oi, e.Timestamp}
		if c.slots[s]--; c.slots[s] == 0 {
			delete(c.slots, s)
		}
		c.evDistinct[ei]--
	}
	c.objCover[oi]--
	c.evCover[ei]--
	if c.objCover[oi] == 0 {
		c.uncoveredObjects++
	}
	if c.evCover[ei] == 0 {
		c.uncoveredEvents++
	}
	if c.schema.IsStartKind(e.Type) {
		c.starts[oi]--
	}
	if c.schema.IsResolveKind(e.Type) {
		c.resolves[oi]--
	}
}

// ObjectCovered reports whether object oi has at least one observe.
func (c *Incremental) ObjectCovered(oi int) bool { return c.objCover[oi] > 0 }

// EventCovered reports whether event ei has at least one observe.
func (c *Incremental) EventCovered(ei int) bool { return c.evCover[ei] > 0 }

// UncoveredObjects returns how many pushed objects have no observe yet.
func (c *Incremental) UncoveredObjects() int { return c.uncoveredObjects }

// UncoveredEvents returns how many pushed events have no observe yet.
func (c *Incremental) UncoveredEvents() int { return c.uncoveredEvents }

// LifecycleMet reports whether object oi meets invariant 7 with the
// observes pushed so far.
func (c *Incremental) LifecycleMet(oi int) bool {
	return LifecycleMet(c.schema, c.objects[oi], c.starts[oi] > 0, c.resolves[oi] > 0)
}
