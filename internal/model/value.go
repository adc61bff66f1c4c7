package model

import (
	"slices"
	"strconv"
	"strings"
)

// Value is a sealed interface over the attribute value kinds.
// Only IntValue, StringValue and TimeValue implement it.
type Value interface {
	Kind() ValueKind
	attrValue() // Sealed
}

// IntValue is an integer attribute value.
type IntValue int64

func (IntValue) Kind() ValueKind { return KindInt }
func (IntValue) attrValue()      {}

// StringValue is a string attribute value.
type StringValue string

func (StringValue) Kind() ValueKind { return KindString }
func (StringValue) attrValue()      {}

// TimeValue is a timestamp attribute value: an instant of the session's
// time order.
type TimeValue Instant

func (TimeValue) Kind() ValueKind { return KindTimestamp }
func (TimeValue) attrValue()      {}

// Attr binds an attribute name to exactly one value.
type Attr struct {
	Name  string
	Value Value
}

// FormatValue renders v for diagnostics. Timestamps are rendered by
// instant name.
func FormatValue(v Value, t *TimeOrder) string {
	switch val := v.(type) {
	case IntValue:
		return strconv.FormatInt(int64(val), 10)
	case StringValue:
		return strconv.Quote(string(val))
	case TimeValue:
		return t.Name(Instant(val))
	default:
		return "?"
	}
}

// sortAttrs returns a copy of attrs ordered by name.
func sortAttrs(attrs []Attr) []Attr {
	if len(attrs) == 0 {
		return nil
	}
	out := slices.Clone(attrs)
	slices.SortFunc(out, func(a, b Attr) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func lookupAttr(attrs []Attr, name string) (Value, bool) {
	i, ok := slices.BinarySearchFunc(attrs, name, func(a Attr, n string) int {
		return strings.Compare(a.Name, n)
	})
	if !ok {
		return nil, false
	}
	return attrs[i].Value, true
}
