package evaluator

import "github.com/roach88/oced/internal/model"

// DeletionValid reports whether o satisfies invariant 1: a deletion instant,
// when present, is strictly after creation.
func DeletionValid(o model.Object) bool {
	return !o.IsDeleted() || o.Deleted > o.Created
}

// ActiveAt reports whether an event at ts may observe o without breaking
// invariants 2 and 3: ts is strictly after creation and strictly before
// deletion.
func ActiveAt(o model.Object, ts model.Instant) bool {
	return ts > o.Created && (!o.IsDeleted() || ts < o.Deleted)
}

// Observable reports whether any instant of t lies in o's active interval,
// which invariant 4 requires of every object.
func Observable(o model.Object, t *model.TimeOrder) bool {
	for ts := o.Created + 1; t.Contains(ts); ts++ {
		if ActiveAt(o, ts) {
			return true
		}
	}
	return false
}

// LifecycleMet reports whether a stateful object with the given observations
// meets invariant 7. Objects of other types always do.
func LifecycleMet(s *model.Schema, o model.Object, started, resolved bool) bool {
	if !s.IsStateful(o.Type) {
		return true
	}
	return started && (resolved || o.IsDeleted())
}
