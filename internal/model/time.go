package model

import (
	"fmt"
	"slices"
)

// Instant is a position in a TimeOrder. Instants compare by position, so
// a < b means a is before b.
type Instant int

// NoInstant marks an absent instant (an object that was never deleted).
const NoInstant Instant = -1

// TimeOrder is a finite, totally ordered set of named instants.
// It is created once per validation or search session and never changes.
type TimeOrder struct {
	names []string
	index map[string]Instant
}

// NewTimeOrder builds a time order from names listed earliest first.
func NewTimeOrder(names ...string) (*TimeOrder, error) {
	t := &TimeOrder{
		names: make([]string, 0, len(names)),
		index: make(map[string]Instant, len(names)),
	}
	for _, n := range names {
		if n == "" {
			return nil, schemaErr("instant", n, "", "instant names must be non-empty")
		}
		if _, dup := t.index[n]; dup {
			return nil, schemaErr("instant", n, "", "instant declared twice")
		}
		t.index[n] = Instant(len(t.names))
		t.names = append(t.names, n)
	}
	return t, nil
}

// SequentialTime returns the order T0 < T1 < ... < T(n-1).
func SequentialTime(n int) *TimeOrder {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("T%d", i)
	}
	t, _ := NewTimeOrder(names...)
	return t
}

// Len returns the number of instants.
func (t *TimeOrder) Len() int { return len(t.names) }

// Names returns the instant names, earliest first.
func (t *TimeOrder) Names() []string { return slices.Clone(t.names) }

// Lookup resolves an instant by name.
func (t *TimeOrder) Lookup(name string) (Instant, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Contains reports whether i is an instant of this order.
func (t *TimeOrder) Contains(i Instant) bool {
	return i >= 0 && int(i) < len(t.names)
}

// Name returns the name of i, or "-" for NoInstant.
func (t *TimeOrder) Name(i Instant) string {
	if !t.Contains(i) {
		return "-"
	}
	return t.names[i]
}

// First returns the earliest instant, or NoInstant when the order is empty.
func (t *TimeOrder) First() Instant {
	if len(t.names) == 0 {
		return NoInstant
	}
	return 0
}

// Last returns the latest instant, or NoInstant when the order is empty.
func (t *TimeOrder) Last() Instant {
	return Instant(len(t.names) - 1)
}

// Before reports whether a is strictly before b.
func (t *TimeOrder) Before(a, b Instant) bool { return a < b }

// Next returns the instant immediately after i.
func (t *TimeOrder) Next(i Instant) (Instant, bool) {
	if !t.Contains(i) || !t.Contains(i+1) {
		return NoInstant, false
	}
	return i + 1, true
}

// Prev returns the instant immediately before i.
func (t *TimeOrder) Prev(i Instant) (Instant, bool) {
	if !t.Contains(i) || i == 0 {
		return NoInstant, false
	}
	return i - 1, true
}

// Successors returns every instant strictly after i, earliest first.
func (t *TimeOrder) Successors(i Instant) []Instant {
	if !t.Contains(i) {
		return nil
	}
	out := make([]Instant, 0, len(t.names)-int(i)-1)
	for j := i + 1; int(j) < len(t.names); j++ {
		out = append(out, j)
	}
	return out
}

// Predecessors returns every instant strictly before i, earliest first.
func (t *TimeOrder) Predecessors(i Instant) []Instant {
	if !t.Contains(i) {
		return nil
	}
	out := make([]Instant, 0, int(i))
	for j := Instant(0); j < i; j++ {
		out = append(out, j)
	}
	return out
}
