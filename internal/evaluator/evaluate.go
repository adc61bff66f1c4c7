package evaluator

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/oced/internal/model"
)

// index groups observe records by object and by event. Built once per
// evaluation.
type index struct {
	objObs [][]int // observe positions per object
	evObs  [][]int // observe positions per event
	obsObj []int   // object position per observe
	obsEv  []int   // event position per observe
}

func buildIndex(in *model.Instance) *index {
	ix := &index{
		objObs: make([][]int, in.NumObjects()),
		evObs:  make([][]int, in.NumEvents()),
		obsObj: make([]int, in.NumObserves()),
		obsEv:  make([]int, in.NumObserves()),
	}
	for i := 0; i < in.NumObserves(); i++ {
		x := in.Observe(i)
		oi, _ := in.ObjectIndex(x.Object)
		ei, _ := in.EventIndex(x.Event)
		ix.obsObj[i] = oi
		ix.obsEv[i] = ei
		ix.objObs[oi] = append(ix.objObs[oi], i)
		ix.evObs[ei] = append(ix.evObs[ei], i)
	}
	return ix
}

// Evaluate checks in against every invariant and returns all violations,
// ordered by invariant number and then by the instance's entity order.
// The schema's max-observes bound is used for invariant 6, so callers may
// pass a schema derived with WithMaxObserves.
//
// Evaluate never fails: an instance that was built is structurally sound,
// and everything else is reported as a violation.
func Evaluate(s *model.Schema, in *model.Instance) []Violation {
	ix := buildIndex(in)
	t := in.Time()

	var out []Violation
	out = checkDeletion(out, in, t)
	out = checkObserveTiming(out, in, ix, t)
	out = checkOrphans(out, in, ix)
	out = checkSimultaneous(out, in, ix, t)
	out = checkMaxObserves(out, s, in, ix)
	out = checkLifecycle(out, s, in, ix)
	return out
}

// Valid reports whether in violates no invariant.
func Valid(s *model.Schema, in *model.Instance) bool {
	return len(Evaluate(s, in)) == 0
}

func checkDeletion(out []Violation, in *model.Instance, t *model.TimeOrder) []Violation {
	for i := 0; i < in.NumObjects(); i++ {
		o := in.Object(i)
		if DeletionValid(o) {
			continue
		}
		out = append(out, newViolation(DeletedAfterCreated,
			fmt.Sprintf("object %s deleted at %s, at or before its creation at %s",
				o.ID, t.Name(o.Deleted), t.Name(o.Created)),
			objectRef(o.ID)))
	}
	return out
}

// checkObserveTiming covers invariants 2 and 3 in one pass over observes.
// Violations of 2 precede those of 3.
func checkObserveTiming(out []Violation, in *model.Instance, ix *index, t *model.TimeOrder) []Violation {
	var late []Violation
	for i := 0; i < in.NumObserves(); i++ {
		x := in.Observe(i)
		o := in.Object(ix.obsObj[i])
		e := in.Event(ix.obsEv[i])
		refs := []EntityRef{objectRef(o.ID), eventRef(e.ID), observeRef(x.ID)}

		if e.Timestamp <= o.Created {
			out = append(out, newViolation(ObservedAfterCreation,
				fmt.Sprintf("event %s at %s observes object %s at or before its creation at %s",
					e.ID, t.Name(e.Timestamp), o.ID, t.Name(o.Created)),
				refs...))
		}
		if o.IsDeleted() && e.Timestamp >= o.Deleted {
			late = append(late, newViolation(ObservedBeforeDeletion,
				fmt.Sprintf("event %s at %s observes object %s at or after its deletion at %s",
					e.ID, t.Name(e.Timestamp), o.ID, t.Name(o.Deleted)),
				slices.Clone(refs)...))
		}
	}
	return append(out, late...)
}

func checkOrphans(out []Violation, in *model.Instance, ix *index) []Violation {
	for i, obs := range ix.objObs {
		if len(obs) == 0 {
			id := in.Object(i).ID
			out = append(out, newViolation(NoOrphans,
				fmt.Sprintf("object %s is not observed by any event", id),
				objectRef(id)))
		}
	}
	for i, obs := range ix.evObs {
		if len(obs) == 0 {
			id := in.Event(i).ID
			out = append(out, newViolation(NoOrphans,
				fmt.Sprintf("event %s observes no object", id),
				eventRef(id)))
		}
	}
	return out
}

func checkSimultaneous(out []Violation, in *model.Instance, ix *index, t *model.TimeOrder) []Violation {
	for oi, obs := range ix.objObs {
		if len(obs) < 2 {
			continue
		}
		byTime := make(map[model.Instant][]int)
		for _, xi := range obs {
			ei := ix.obsEv[xi]
			ts := in.Event(ei).Timestamp
			if !slices.Contains(byTime[ts], ei) {
				byTime[ts] = append(byTime[ts], ei)
			}
		}
		o := in.Object(oi)
		for _, ts := range slices.Sorted(maps.Keys(byTime)) {
			evs := byTime[ts]
			if len(evs) < 2 {
				continue
			}
			refs := []EntityRef{objectRef(o.ID)}
			ids := make([]string, len(evs))
			for i, ei := range evs {
				ids[i] = in.Event(ei).ID
				refs = append(refs, eventRef(ids[i]))
			}
			out = append(out, newViolation(DistinctObservationTimes,
				fmt.Sprintf("object %s is observed by %d distinct events at %s (%s)",
					o.ID, len(evs), t.Name(ts), strings.Join(ids, ", ")),
				refs...))
		}
	}
	return out
}

func checkMaxObserves(out []Violation, s *model.Schema, in *model.Instance, ix *index) []Violation {
	limit := s.MaxObserves()
	for ei, obs := range ix.evObs {
		if len(obs) <= limit {
			continue
		}
		var objs []int
		for _, xi := range obs {
			if oi := ix.obsObj[xi]; !slices.Contains(objs, oi) {
				objs = append(objs, oi)
			}
		}
		if len(objs) <= limit {
			continue
		}
		e := in.Event(ei)
		refs := []EntityRef{eventRef(e.ID)}
		for _, oi := range objs {
			refs = append(refs, objectRef(in.Object(oi).ID))
		}
		out = append(out, newViolation(MaxObserves,
			fmt.Sprintf("event %s observes %d distinct objects, more than the maximum of %d",
				e.ID, len(objs), limit),
			refs...))
	}
	return out
}

// checkLifecycle reports one violation per unmet obligation. Orphaned
// objects are skipped; they are already reported under invariant 4.
func checkLifecycle(out []Violation, s *model.Schema, in *model.Instance, ix *index) []Violation {
	lc := s.Lifecycle()
	if lc == nil {
		return out
	}
	for oi, obs := range ix.objObs {
		o := in.Object(oi)
		if !s.IsStateful(o.Type) || len(obs) == 0 {
			continue
		}
		var started, resolved bool
		for _, xi := range obs {
			et := in.Event(ix.obsEv[xi]).Type
			started = started || s.IsStartKind(et)
			resolved = resolved || s.IsResolveKind(et)
		}
		if !started {
			out = append(out, newViolation(LifecycleComplete,
				fmt.Sprintf("%s %s is never observed by a start event (%s)",
					o.Type, o.ID, strings.Join(lc.Start, ", ")),
				objectRef(o.ID)))
		}
		if !resolved && !o.IsDeleted() {
			out = append(out, newViolation(LifecycleComplete,
				fmt.Sprintf("%s %s is neither resolved (%s) nor deleted",
					o.Type, o.ID, strings.Join(lc.Resolve, ", ")),
				objectRef(o.ID)))
		}
	}
	return out
}
