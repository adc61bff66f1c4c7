package instanceio

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/roach88/oced/internal/model"
)

// Document is the serialized form of an instance.
type Document struct {
	FormatVersion string          `json:"format_version,omitempty" yaml:"format_version,omitempty"`
	Time          []string        `json:"time" yaml:"time"`
	Objects       []ObjectRecord  `json:"objects" yaml:"objects"`
	Events        []EventRecord   `json:"events" yaml:"events"`
	Observes      []ObserveRecord `json:"observes" yaml:"observes"`
}

// ObjectRecord is one row of the objects table.
type ObjectRecord struct {
	ID         string         `json:"id" yaml:"id"`
	Type       string         `json:"type" yaml:"type"`
	Created    string         `json:"created" yaml:"created"`
	Deleted    string         `json:"deleted,omitempty" yaml:"deleted,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// EventRecord is one row of the events table.
type EventRecord struct {
	ID         string         `json:"id" yaml:"id"`
	Type       string         `json:"type" yaml:"type"`
	Timestamp  string         `json:"timestamp" yaml:"timestamp"`
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// ObserveRecord is one row of the observes table.
type ObserveRecord struct {
	ID       string `json:"id" yaml:"id"`
	Object   string `json:"object" yaml:"object"`
	Event    string `json:"event" yaml:"event"`
	Relation string `json:"relation" yaml:"relation"`
}

// FromInstance converts in to a document. Tables keep the instance's
// entity order.
func FromInstance(in *model.Instance) *Document {
	t := in.Time()
	doc := &Document{
		FormatVersion: model.FormatVersion,
		Time:          t.Names(),
		Objects:       make([]ObjectRecord, 0, in.NumObjects()),
		Events:        make([]EventRecord, 0, in.NumEvents()),
		Observes:      make([]ObserveRecord, 0, in.NumObserves()),
	}
	for _, o := range in.Objects() {
		rec := ObjectRecord{
			ID:         o.ID,
			Type:       o.Type,
			Created:    t.Name(o.Created),
			Attributes: encodeAttrs(o.Attrs, t),
		}
		if o.IsDeleted() {
			rec.Deleted = t.Name(o.Deleted)
		}
		doc.Objects = append(doc.Objects, rec)
	}
	for _, e := range in.Events() {
		doc.Events = append(doc.Events, EventRecord{
			ID:         e.ID,
			Type:       e.Type,
			Timestamp:  t.Name(e.Timestamp),
			Attributes: encodeAttrs(e.Attrs, t),
		})
	}
	for _, x := range in.Observes() {
		doc.Observes = append(doc.Observes, ObserveRecord(x))
	}
	return doc
}

// ToInstance builds an instance of s from doc. Undeclared names fail with
// *model.SchemaError, dangling references and duplicate ids with
// *model.MalformedInstanceError.
func ToInstance(s *model.Schema, doc *Document) (*model.Instance, error) {
	t, err := model.NewTimeOrder(doc.Time...)
	if err != nil {
		return nil, err
	}
	b := model.NewBuilder(s, t)

	for _, rec := range doc.Objects {
		entity := "object " + rec.ID
		created, err := lookupInstant(t, rec.Created, entity)
		if err != nil {
			return nil, err
		}
		deleted := model.NoInstant
		if rec.Deleted != "" {
			if deleted, err = lookupInstant(t, rec.Deleted, entity); err != nil {
				return nil, err
			}
		}
		attrs, err := decodeAttrs(s, t, rec.Attributes, entity)
		if err != nil {
			return nil, err
		}
		if err := b.AddObject(model.Object{
			ID: rec.ID, Type: rec.Type, Created: created, Deleted: deleted, Attrs: attrs,
		}); err != nil {
			return nil, err
		}
	}

	for _, rec := range doc.Events {
		entity := "event " + rec.ID
		ts, err := lookupInstant(t, rec.Timestamp, entity)
		if err != nil {
			return nil, err
		}
		attrs, err := decodeAttrs(s, t, rec.Attributes, entity)
		if err != nil {
			return nil, err
		}
		if err := b.AddEvent(model.Event{ID: rec.ID, Type: rec.Type, Timestamp: ts, Attrs: attrs}); err != nil {
			return nil, err
		}
	}

	for _, rec := range doc.Observes {
		if err := b.AddObserve(model.Observe(rec)); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

func lookupInstant(t *model.TimeOrder, name, entity string) (model.Instant, error) {
	i, ok := t.Lookup(name)
	if !ok {
		return model.NoInstant, &model.SchemaError{
			Kind: "instant", Name: name, Entity: entity, Message: "instant is not in the time order",
		}
	}
	return i, nil
}

func encodeAttrs(attrs []model.Attr, t *model.TimeOrder) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	m := make(map[string]any, len(attrs))
	for _, a := range attrs {
		switch v := a.Value.(type) {
		case model.IntValue:
			m[a.Name] = int64(v)
		case model.StringValue:
			m[a.Name] = string(v)
		case model.TimeValue:
			m[a.Name] = t.Name(model.Instant(v))
		}
	}
	return m
}

// decodeAttrs converts raw values by the schema's declared kinds. Names are
// visited in sorted order so the first error is deterministic.
func decodeAttrs(s *model.Schema, t *model.TimeOrder, raw map[string]any, entity string) ([]model.Attr, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	attrs := make([]model.Attr, 0, len(raw))
	for _, name := range names {
		kind, ok := s.AttributeKind(name)
		if !ok {
			return nil, &model.SchemaError{Kind: "attribute", Name: name, Entity: entity, Message: "undeclared attribute"}
		}
		v, err := decodeValue(kind, raw[name], t)
		if err != nil {
			return nil, &model.SchemaError{Kind: "attribute_kind", Name: name, Entity: entity, Message: err.Error()}
		}
		attrs = append(attrs, model.Attr{Name: name, Value: v})
	}
	return attrs, nil
}

func decodeValue(kind model.ValueKind, raw any, t *model.TimeOrder) (model.Value, error) {
	switch kind {
	case model.KindInt:
		n, ok := asInt(raw)
		if !ok {
			return nil, fmt.Errorf("want an integer, got %v", raw)
		}
		return model.IntValue(n), nil
	case model.KindString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("want a string, got %v", raw)
		}
		return model.StringValue(s), nil
	case model.KindTimestamp:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("want an instant name, got %v", raw)
		}
		i, ok := t.Lookup(s)
		if !ok {
			return nil, fmt.Errorf("instant %q is not in the time order", s)
		}
		return model.TimeValue(i), nil
	}
	return nil, fmt.Errorf("unsupported kind %s", kind)
}

func asInt(raw any) (int64, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}
