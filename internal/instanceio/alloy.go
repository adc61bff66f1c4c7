package instanceio

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/oced/internal/model"
)

// WriteAlloy renders in as an Alloy module whose run command has exactly
// the instance as its only solution shape. Instants become positions in
// util/ordering[Time]; entity ids are sanitized into signature names.
func WriteAlloy(w io.Writer, in *model.Instance) error {
	bw := bufio.NewWriter(w)
	t := in.Time()
	p := func(format string, args ...any) { fmt.Fprintf(bw, format, args...) }

	p("module oced_instance\n\n")
	p("open util/ordering[Time]\n\n")
	p("sig Time {}\n\n")
	p("abstract sig Object {\n\tcreated: one Time,\n\tdeleted: lone Time\n}\n\n")
	p("abstract sig Event {\n\ttimestamp: one Time\n}\n\n")
	p("sig Observe {\n\tobject: one Object,\n\tevent: one Event\n}\n\n")

	for _, o := range in.Objects() {
		p("one sig %s extends Object {}\n", alloyObj(o.ID))
	}
	if in.NumObjects() > 0 {
		p("\n")
	}
	for _, e := range in.Events() {
		p("one sig %s extends Event {}\n", alloyEvt(e.ID))
	}
	if in.NumEvents() > 0 {
		p("\n")
	}

	p("fact Instants {\n")
	for _, o := range in.Objects() {
		p("\t%s.created = %s\n", alloyObj(o.ID), alloyInstant(o.Created))
		if o.IsDeleted() {
			p("\t%s.deleted = %s\n", alloyObj(o.ID), alloyInstant(o.Deleted))
		} else {
			p("\tno %s.deleted\n", alloyObj(o.ID))
		}
	}
	for _, e := range in.Events() {
		p("\t%s.timestamp = %s\n", alloyEvt(e.ID), alloyInstant(e.Timestamp))
	}
	p("}\n\n")

	for _, x := range in.Observes() {
		p("fact { some obs: Observe | obs.event = %s and obs.object = %s }\n", alloyEvt(x.Event), alloyObj(x.Object))
	}
	if in.NumObserves() > 0 {
		p("\n")
	}

	p("fact TemporalConstraints {\n")
	for _, x := range in.Observes() {
		p("\t%s.timestamp in %s.created.nexts\n", alloyEvt(x.Event), alloyObj(x.Object))
	}
	p("}\n\n")

	p("run {} for exactly %d Time, exactly %d Object, exactly %d Event, exactly %d Observe\n",
		t.Len(), in.NumObjects(), in.NumEvents(), in.NumObserves())
	return bw.Flush()
}

// alloyInstant writes the i-th instant as a navigation from first.
func alloyInstant(i model.Instant) string {
	var sb strings.Builder
	sb.WriteString("first")
	for range int(i) {
		sb.WriteString(".next")
	}
	return sb.String()
}

func alloyObj(id string) string { return "Obj_" + alloyIdent(id) }
func alloyEvt(id string) string { return "Evt_" + alloyIdent(id) }

// alloyIdent maps every character outside [A-Za-z0-9_] to '_'.
func alloyIdent(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, id)
}
