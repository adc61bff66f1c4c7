package instanceio

import (
	"encoding/xml"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/roach88/oced/internal/model"
)

// OriginInstant is the instant imported case objects are created at. It
// precedes every event timestamp of the log.
const OriginInstant = "origin"

// XESOptions controls how an event log is mapped onto a schema.
// Empty fields fall back to defaults derived from the schema.
type XESOptions struct {
	// CaseType is the object type traces become. Default "case".
	CaseType string

	// EventType is used for events whose lifecycle:transition and
	// concept:name are both undeclared. Default: the first event type.
	EventType string

	// Relation tags every observe. Default "involves" when declared,
	// otherwise the first relation.
	Relation string
}

type xesAttr struct {
	XMLName xml.Name
	Key     string `xml:"key,attr"`
	Value   string `xml:"value,attr"`
}

type xesEvent struct {
	Attrs []xesAttr `xml:",any"`
}

type xesTrace struct {
	Events []xesEvent `xml:"event"`
	Attrs  []xesAttr  `xml:",any"`
}

type xesLog struct {
	Traces []xesTrace `xml:"trace"`
}

func lookupXES(attrs []xesAttr, key string) (xesAttr, bool) {
	for _, a := range attrs {
		if a.Key == key {
			return a, true
		}
	}
	return xesAttr{}, false
}

type xesRow struct {
	id, typ string
	ts      time.Time
	attrs   map[string]any
	dates   map[string]time.Time
}

// FromXES reads an XES event log and builds an instance of s. Each trace
// becomes one object of the case type created at OriginInstant; each
// event observes its trace's object. Traces without concept:name and
// events without time:timestamp are skipped. The time order is
// OriginInstant followed by the distinct timestamps in UTC, ascending.
func FromXES(r io.Reader, s *model.Schema, opts XESOptions) (*model.Instance, error) {
	opts, err := xesDefaults(s, opts)
	if err != nil {
		return nil, err
	}

	var log xesLog
	if err := xml.NewDecoder(r).Decode(&log); err != nil {
		return nil, &FormatError{Message: "invalid XES", Err: err}
	}

	doc := &Document{FormatVersion: model.FormatVersion}
	var rows []xesRow
	var caseOf []string
	stamps := make(map[string]time.Time)
	parse := func(a xesAttr) (time.Time, error) {
		ts, err := time.Parse(time.RFC3339Nano, a.Value)
		if err != nil {
			return time.Time{}, &FormatError{Message: fmt.Sprintf("%s %q is not an RFC 3339 timestamp", a.Key, a.Value), Err: err}
		}
		return ts.UTC(), nil
	}

	for _, tr := range log.Traces {
		name, ok := lookupXES(tr.Attrs, "concept:name")
		if !ok || name.Value == "" {
			continue
		}
		caseID := "case_" + name.Value
		obj := ObjectRecord{ID: caseID, Type: opts.CaseType, Created: OriginInstant}
		if kind, ok := s.AttributeKind("name"); ok && kind == model.KindString {
			obj.Attributes = map[string]any{"name": name.Value}
		}
		doc.Objects = append(doc.Objects, obj)

		n := 0
		for _, ev := range tr.Events {
			tsAttr, ok := lookupXES(ev.Attrs, "time:timestamp")
			if !ok {
				continue
			}
			ts, err := parse(tsAttr)
			if err != nil {
				return nil, err
			}
			n++
			row := xesRow{
				id:    fmt.Sprintf("event_%s_%d", name.Value, n),
				typ:   xesEventType(s, ev.Attrs, opts.EventType),
				ts:    ts,
				attrs: make(map[string]any),
				dates: make(map[string]time.Time),
			}
			for _, a := range ev.Attrs {
				kind, declared := s.AttributeKind(a.Key)
				if !declared {
					continue
				}
				switch kind {
				case model.KindString:
					row.attrs[a.Key] = a.Value
				case model.KindInt:
					if v, err := strconv.ParseInt(a.Value, 10, 64); err == nil {
						row.attrs[a.Key] = v
					}
				case model.KindTimestamp:
					d, err := parse(a)
					if err != nil {
						return nil, err
					}
					row.dates[a.Key] = d
					stamps[d.Format(time.RFC3339Nano)] = d
				}
			}
			stamps[ts.Format(time.RFC3339Nano)] = ts
			rows = append(rows, row)
			caseOf = append(caseOf, caseID)
		}
	}

	ordered := make([]time.Time, 0, len(stamps))
	for _, ts := range stamps {
		ordered = append(ordered, ts)
	}
	slices.SortFunc(ordered, func(a, b time.Time) int { return a.Compare(b) })
	doc.Time = make([]string, 0, len(ordered)+1)
	doc.Time = append(doc.Time, OriginInstant)
	for _, ts := range ordered {
		doc.Time = append(doc.Time, ts.Format(time.RFC3339Nano))
	}

	for i, row := range rows {
		for k, d := range row.dates {
			row.attrs[k] = d.Format(time.RFC3339Nano)
		}
		rec := EventRecord{ID: row.id, Type: row.typ, Timestamp: row.ts.Format(time.RFC3339Nano)}
		if len(row.attrs) > 0 {
			rec.Attributes = row.attrs
		}
		doc.Events = append(doc.Events, rec)
		doc.Observes = append(doc.Observes, ObserveRecord{
			ID:       "obs_" + strconv.Itoa(i+1),
			Object:   caseOf[i],
			Event:    row.id,
			Relation: opts.Relation,
		})
	}
	return ToInstance(s, doc)
}

func xesDefaults(s *model.Schema, opts XESOptions) (XESOptions, error) {
	if opts.CaseType == "" {
		opts.CaseType = "case"
	}
	if !s.ObjectTypes.Contains(opts.CaseType) {
		return opts, &model.SchemaError{Kind: "object_type", Name: opts.CaseType, Message: "case type is not declared"}
	}
	if opts.EventType == "" {
		opts.EventType = s.EventTypes.At(0)
	}
	if !s.EventTypes.Contains(opts.EventType) {
		return opts, &model.SchemaError{Kind: "event_type", Name: opts.EventType, Message: "default event type is not declared"}
	}
	if opts.Relation == "" {
		opts.Relation = s.Relations.At(0)
		if s.Relations.Contains("involves") {
			opts.Relation = "involves"
		}
	}
	if !s.Relations.Contains(opts.Relation) {
		return opts, &model.SchemaError{Kind: "relation", Name: opts.Relation, Message: "relation is not declared"}
	}
	return opts, nil
}

func xesEventType(s *model.Schema, attrs []xesAttr, fallback string) string {
	for _, key := range []string{"lifecycle:transition", "concept:name"} {
		if a, ok := lookupXES(attrs, key); ok && s.EventTypes.Contains(a.Value) {
			return a.Value
		}
	}
	return fallback
}
