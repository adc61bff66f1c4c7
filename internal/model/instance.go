package model

import "slices"

// Object is a stateful entity with an active interval [Created, Deleted).
type Object struct {
	ID      string
	Type    string
	Created Instant
	Deleted Instant // NoInstant when never deleted
	Attrs   []Attr  // sorted by name, read-only
}

// IsDeleted reports whether the object has a deletion instant.
func (o Object) IsDeleted() bool { return o.Deleted != NoInstant }

// Attr returns the value bound to name.
func (o Object) Attr(name string) (Value, bool) { return lookupAttr(o.Attrs, name) }

// Event is an instantaneous occurrence.
type Event struct {
	ID        string
	Type      string
	Timestamp Instant
	Attrs     []Attr // sorted by name, read-only
}

// Attr returns the value bound to name.
func (e Event) Attr(name string) (Value, bool) { return lookupAttr(e.Attrs, name) }

// Observe links one event to one object with a relation tag.
type Observe struct {
	ID       string
	Object   string
	Event    string
	Relation string
}

// Instance is an immutable, structurally well-formed OCED instance.
// Entities keep the order they were added in; that order is the canonical
// entity order used by the evaluator and reporter.
type Instance struct {
	schema   *Schema
	time     *TimeOrder
	objects  []Object
	events   []Event
	observes []Observe

	objectIdx map[string]int
	eventIdx  map[string]int
}

// Schema returns the schema the instance was built against.
func (in *Instance) Schema() *Schema { return in.schema }

// Time returns the instance's time order.
func (in *Instance) Time() *TimeOrder { return in.time }

// NumObjects returns the number of objects.
func (in *Instance) NumObjects() int { return len(in.objects) }

// NumEvents returns the number of events.
func (in *Instance) NumEvents() int { return len(in.events) }

// NumObserves returns the number of observe links.
func (in *Instance) NumObserves() int { return len(in.observes) }

// Object returns the i-th object.
func (in *Instance) Object(i int) Object { return in.objects[i] }

// Event returns the i-th event.
func (in *Instance) Event(i int) Event { return in.events[i] }

// Observe returns the i-th observe link.
func (in *Instance) Observe(i int) Observe { return in.observes[i] }

// Objects returns a copy of the objects in canonical order.
func (in *Instance) Objects() []Object { return slices.Clone(in.objects) }

// Events returns a copy of the events in canonical order.
func (in *Instance) Events() []Event { return slices.Clone(in.events) }

// Observes returns a copy of the observe links in canonical order.
func (in *Instance) Observes() []Observe { return slices.Clone(in.observes) }

// ObjectIndex returns the position of the object with the given id.
func (in *Instance) ObjectIndex(id string) (int, bool) {
	i, ok := in.objectIdx[id]
	return i, ok
}

// EventIndex returns the position of the event with the given id.
func (in *Instance) EventIndex(id string) (int, bool) {
	i, ok := in.eventIdx[id]
	return i, ok
}

// Builder assembles an Instance, rejecting anything the schema does not
// declare. Objects and events must be added before the observes that
// reference them.
//
// Builder performs no business-rule checks: an object deleted before it was
// created builds fine and is reported later by the evaluator.
type Builder struct {
	schema *Schema
	time   *TimeOrder

	objects    []Object
	events     []Event
	observes   []Observe
	objectIdx  map[string]int
	eventIdx   map[string]int
	observeIDs map[string]bool
}

// NewBuilder returns a builder for instances of s over time order t.
func NewBuilder(s *Schema, t *TimeOrder) *Builder {
	return &Builder{
		schema:     s,
		time:       t,
		objectIdx:  make(map[string]int),
		eventIdx:   make(map[string]int),
		observeIDs: make(map[string]bool),
	}
}

// AddObject appends an object.
func (b *Builder) AddObject(o Object) error {
	if o.ID == "" {
		return malformed("object", "id is required")
	}
	if _, dup := b.objectIdx[o.ID]; dup {
		return malformed("object "+o.ID, "duplicate object id")
	}
	if !b.schema.ObjectTypes.Contains(o.Type) {
		return schemaErr("object_type", o.Type, "object "+o.ID, "undeclared object type")
	}
	if !b.time.Contains(o.Created) {
		return schemaErr("instant", b.time.Name(o.Created), "object "+o.ID, "creation instant is not in the time order")
	}
	if o.Deleted != NoInstant && !b.time.Contains(o.Deleted) {
		return schemaErr("instant", b.time.Name(o.Deleted), "object "+o.ID, "deletion instant is not in the time order")
	}
	attrs, err := b.checkAttrs("object "+o.ID, o.Attrs)
	if err != nil {
		return err
	}
	o.Attrs = attrs
	b.objectIdx[o.ID] = len(b.objects)
	b.objects = append(b.objects, o)
	return nil
}

// AddEvent appends an event.
func (b *Builder) AddEvent(e Event) error {
	if e.ID == "" {
		return malformed("event", "id is required")
	}
	if _, dup := b.eventIdx[e.ID]; dup {
		return malformed("event "+e.ID, "duplicate event id")
	}
	if !b.schema.EventTypes.Contains(e.Type) {
		return schemaErr("event_type", e.Type, "event "+e.ID, "undeclared event type")
	}
	if !b.time.Contains(e.Timestamp) {
		return schemaErr("instant", b.time.Name(e.Timestamp), "event "+e.ID, "timestamp is not in the time order")
	}
	attrs, err := b.checkAttrs("event "+e.ID, e.Attrs)
	if err != nil {
		return err
	}
	e.Attrs = attrs
	b.eventIdx[e.ID] = len(b.events)
	b.events = append(b.events, e)
	return nil
}

// AddObserve appends an observe link. Its object and event must already
// have been added.
func (b *Builder) AddObserve(x Observe) error {
	if x.ID == "" {
		return malformed("observe", "id is required")
	}
	if b.observeIDs[x.ID] {
		return malformed("observe "+x.ID, "duplicate observe id")
	}
	if _, ok := b.objectIdx[x.Object]; !ok {
		return malformed("observe "+x.ID, "references unknown object %q", x.Object)
	}
	if _, ok := b.eventIdx[x.Event]; !ok {
		return malformed("observe "+x.ID, "references unknown event %q", x.Event)
	}
	if !b.schema.Relations.Contains(x.Relation) {
		return schemaErr("relation", x.Relation, "observe "+x.ID, "undeclared relation")
	}
	b.observeIDs[x.ID] = true
	b.observes = append(b.observes, x)
	return nil
}

// Build returns the instance. The builder may keep being used; later
// additions do not affect instances already built.
func (b *Builder) Build() *Instance {
	in := &Instance{
		schema:    b.schema,
		time:      b.time,
		objects:   slices.Clone(b.objects),
		events:    slices.Clone(b.events),
		observes:  slices.Clone(b.observes),
		objectIdx: make(map[string]int, len(b.objectIdx)),
		eventIdx:  make(map[string]int, len(b.eventIdx)),
	}
	for k, v := range b.objectIdx {
		in.objectIdx[k] = v
	}
	for k, v := range b.eventIdx {
		in.eventIdx[k] = v
	}
	return in
}

func (b *Builder) checkAttrs(entity string, attrs []Attr) ([]Attr, error) {
	seen := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		kind, ok := b.schema.AttributeKind(a.Name)
		if !ok {
			return nil, schemaErr("attribute", a.Name, entity, "undeclared attribute")
		}
		if seen[a.Name] {
			return nil, malformed(entity, "attribute %q bound more than once", a.Name)
		}
		seen[a.Name] = true
		if a.Value == nil || a.Value.Kind() != kind {
			return nil, schemaErr("attribute_kind", a.Name, entity, "attribute value must be of kind %s", kind)
		}
		if tv, isTime := a.Value.(TimeValue); isTime && !b.time.Contains(Instant(tv)) {
			return nil, schemaErr("instant", b.time.Name(Instant(tv)), entity, "attribute %q names an instant outside the time order", a.Name)
		}
	}
	return sortAttrs(attrs), nil
}
