package model

import (
	"maps"
	"slices"
	"sort"
)

// DefaultMaxObserves is the per-event bound on distinct observed objects
// when neither the schema nor configuration declares one.
const DefaultMaxObserves = 10

// ValueKind is the declared kind of an attribute value.
type ValueKind string

const (
	KindInt       ValueKind = "int"
	KindString    ValueKind = "string"
	KindTimestamp ValueKind = "timestamp"
)

// ValidKinds lists the allowed attribute kinds in declaration order.
var ValidKinds = []ValueKind{KindInt, KindString, KindTimestamp}

// Valid reports whether k is one of the supported kinds.
func (k ValueKind) Valid() bool {
	return slices.Contains(ValidKinds, k)
}

// Enum is a closed, ordered enumeration of names.
// The order is the declaration order and is the order the enumerator
// tries values in.
type Enum struct {
	names []string
	index map[string]int
}

// NewEnum builds an enumeration. Names must be non-empty and unique.
func NewEnum(kind string, names ...string) (Enum, error) {
	e := Enum{
		names: make([]string, 0, len(names)),
		index: make(map[string]int, len(names)),
	}
	for _, n := range names {
		if n == "" {
			return Enum{}, schemaErr("schema", n, "", "%s enumeration contains an empty name", kind)
		}
		if _, dup := e.index[n]; dup {
			return Enum{}, schemaErr("schema", n, "", "%s enumeration declares %q twice", kind, n)
		}
		e.index[n] = len(e.names)
		e.names = append(e.names, n)
	}
	return e, nil
}

// Contains reports whether name is a member.
func (e Enum) Contains(name string) bool {
	_, ok := e.index[name]
	return ok
}

// Index returns the declaration position of name.
func (e Enum) Index(name string) (int, bool) {
	i, ok := e.index[name]
	return i, ok
}

// Len returns the number of members.
func (e Enum) Len() int { return len(e.names) }

// At returns the i-th member.
func (e Enum) At(i int) string { return e.names[i] }

// Names returns a copy of the members in declaration order.
func (e Enum) Names() []string { return slices.Clone(e.names) }

// Lifecycle designates the stateful object type and the event kinds that
// open and close its lifecycle.
type Lifecycle struct {
	Stateful string   `json:"stateful"`
	Start    []string `json:"start"`
	Resolve  []string `json:"resolve"`
}

// SchemaDef is the declarative form of a schema, as produced by the model
// compiler or written by hand in tests.
type SchemaDef struct {
	ObjectTypes   []string             `json:"object_types"`
	EventTypes    []string             `json:"event_types"`
	RelationTypes []string             `json:"relation_types,omitempty"`
	Attributes    map[string]ValueKind `json:"attributes,omitempty"`
	MaxObserves   int                  `json:"max_observes,omitempty"`
	Lifecycle     *Lifecycle           `json:"lifecycle,omitempty"`
}

// Schema is the validated, immutable form of a SchemaDef.
type Schema struct {
	ObjectTypes Enum
	EventTypes  Enum

	// Relations is the enumeration observe relation tags are drawn from.
	// When the definition declares no relation types it is the event-type
	// enumeration.
	Relations Enum

	attrNames   []string
	attrKinds   map[string]ValueKind
	maxObserves int

	lifecycle *Lifecycle
	startSet  map[string]bool
	endSet    map[string]bool

	def SchemaDef
}

// NewSchema validates def and returns the schema.
// All failures are *SchemaError.
func NewSchema(def SchemaDef) (*Schema, error) {
	if len(def.ObjectTypes) == 0 {
		return nil, schemaErr("schema", "", "", "at least one object type is required")
	}
	if len(def.EventTypes) == 0 {
		return nil, schemaErr("schema", "", "", "at least one event type is required")
	}

	ots, err := NewEnum("object type", def.ObjectTypes...)
	if err != nil {
		return nil, err
	}
	ets, err := NewEnum("event type", def.EventTypes...)
	if err != nil {
		return nil, err
	}
	rels := ets
	if len(def.RelationTypes) > 0 {
		rels, err = NewEnum("relation type", def.RelationTypes...)
		if err != nil {
			return nil, err
		}
	}

	s := &Schema{
		ObjectTypes: ots,
		EventTypes:  ets,
		Relations:   rels,
		attrKinds:   make(map[string]ValueKind, len(def.Attributes)),
		maxObserves: def.MaxObserves,
	}
	if s.maxObserves == 0 {
		s.maxObserves = DefaultMaxObserves
	}
	if s.maxObserves < 0 {
		return nil, schemaErr("schema", "", "", "max_observes must be positive, got %d", def.MaxObserves)
	}

	for name, kind := range def.Attributes {
		if name == "" {
			return nil, schemaErr("attribute", name, "", "attribute name must be non-empty")
		}
		if !kind.Valid() {
			return nil, schemaErr("attribute_kind", string(kind), "", "attribute %q has unsupported kind", name)
		}
		s.attrKinds[name] = kind
		s.attrNames = append(s.attrNames, name)
	}
	sort.Strings(s.attrNames)

	if lc := def.Lifecycle; lc != nil {
		if !ots.Contains(lc.Stateful) {
			return nil, schemaErr("object_type", lc.Stateful, "", "lifecycle stateful type is not declared")
		}
		if len(lc.Start) == 0 || len(lc.Resolve) == 0 {
			return nil, schemaErr("schema", lc.Stateful, "", "lifecycle needs at least one start and one resolve kind")
		}
		s.startSet = make(map[string]bool, len(lc.Start))
		s.endSet = make(map[string]bool, len(lc.Resolve))
		for _, k := range lc.Start {
			if !ets.Contains(k) {
				return nil, schemaErr("event_type", k, "", "lifecycle start kind is not declared")
			}
			s.startSet[k] = true
		}
		for _, k := range lc.Resolve {
			if !ets.Contains(k) {
				return nil, schemaErr("event_type", k, "", "lifecycle resolve kind is not declared")
			}
			s.endSet[k] = true
		}
		cp := Lifecycle{
			Stateful: lc.Stateful,
			Start:    slices.Clone(lc.Start),
			Resolve:  slices.Clone(lc.Resolve),
		}
		s.lifecycle = &cp
	}

	s.def = def
	s.def.Attributes = maps.Clone(def.Attributes)
	s.def.MaxObserves = s.maxObserves
	return s, nil
}

// MustSchema is like NewSchema but panics on error.
// Use only in tests or when the definition is known to be valid.
func MustSchema(def SchemaDef) *Schema {
	s, err := NewSchema(def)
	if err != nil {
		panic(err)
	}
	return s
}

// WithMaxObserves returns a copy of s with a different per-event bound.
// Non-positive values leave the schema unchanged.
func (s *Schema) WithMaxObserves(n int) *Schema {
	if n <= 0 || n == s.maxObserves {
		return s
	}
	cp := *s
	cp.maxObserves = n
	cp.def.MaxObserves = n
	return &cp
}

// MaxObserves returns the inclusive bound on distinct objects per event.
func (s *Schema) MaxObserves() int { return s.maxObserves }

// AttributeKind returns the declared kind of an attribute.
func (s *Schema) AttributeKind(name string) (ValueKind, bool) {
	k, ok := s.attrKinds[name]
	return k, ok
}

// AttributeNames returns the declared attribute names, sorted.
func (s *Schema) AttributeNames() []string { return slices.Clone(s.attrNames) }

// Lifecycle returns the lifecycle designation, or nil when the schema
// declares no stateful type.
func (s *Schema) Lifecycle() *Lifecycle { return s.lifecycle }

// IsStateful reports whether objects of this type carry lifecycle obligations.
func (s *Schema) IsStateful(objectType string) bool {
	return s.lifecycle != nil && s.lifecycle.Stateful == objectType
}

// IsStartKind reports whether events of this type open a lifecycle.
func (s *Schema) IsStartKind(eventType string) bool { return s.startSet[eventType] }

// IsResolveKind reports whether events of this type close a lifecycle.
func (s *Schema) IsResolveKind(eventType string) bool { return s.endSet[eventType] }

// Def returns the definition the schema was built from, with defaults applied.
func (s *Schema) Def() SchemaDef { return s.def }
