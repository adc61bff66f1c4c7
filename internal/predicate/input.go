package predicate

import "github.com/roach88/oced/internal/model"

// Input converts in to the activation a predicate is evaluated against.
func Input(in *model.Instance) map[string]any {
	t := in.Time()

	objects := make([]any, in.NumObjects())
	for i := range objects {
		o := in.Object(i)
		m := map[string]any{
			"id":         o.ID,
			"type":       o.Type,
			"created":    int64(o.Created),
			"attributes": attrMap(o.Attrs),
		}
		if o.IsDeleted() {
			m["deleted"] = int64(o.Deleted)
		}
		objects[i] = m
	}

	events := make([]any, in.NumEvents())
	for i := range events {
		e := in.Event(i)
		events[i] = map[string]any{
			"id":         e.ID,
			"type":       e.Type,
			"timestamp":  int64(e.Timestamp),
			"attributes": attrMap(e.Attrs),
		}
	}

	observes := make([]any, in.NumObserves())
	for i := range observes {
		x := in.Observe(i)
		oi, _ := in.ObjectIndex(x.Object)
		ei, _ := in.EventIndex(x.Event)
		e := in.Event(ei)
		observes[i] = map[string]any{
			"id":          x.ID,
			"object":      x.Object,
			"event":       x.Event,
			"relation":    x.Relation,
			"object_type": in.Object(oi).Type,
			"event_type":  e.Type,
			"event_time":  int64(e.Timestamp),
		}
	}

	return map[string]any{
		"time":     t.Names(),
		"objects":  objects,
		"events":   events,
		"observes": observes,
	}
}

func attrMap(attrs []model.Attr) map[string]any {
	m := make(map[string]any, len(attrs))
	for _, a := range attrs {
		switch v := a.Value.(type) {
		case model.IntValue:
			m[a.Name] = int64(v)
		case model.StringValue:
			m[a.Name] = string(v)
		case model.TimeValue:
			m[a.Name] = int64(v)
		}
	}
	return m
}
