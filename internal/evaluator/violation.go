package evaluator

import (
	"fmt"
	"strings"
)

// InvariantID names one of the seven invariants.
type InvariantID string

const (
	DeletedAfterCreated      InvariantID = "deleted-after-created"
	ObservedAfterCreation    InvariantID = "observed-after-creation"
	ObservedBeforeDeletion   InvariantID = "observed-before-deletion"
	NoOrphans                InvariantID = "no-orphans"
	DistinctObservationTimes InvariantID = "distinct-observation-times"
	MaxObserves              InvariantID = "max-observes"
	LifecycleComplete        InvariantID = "lifecycle"
)

// Invariant describes a checked invariant.
type Invariant struct {
	ID     InvariantID `json:"id"`
	Number int         `json:"number"`
	Code   string      `json:"code"`
	Title  string      `json:"title"`
}

// Invariants lists every invariant in evaluation order.
var Invariants = []Invariant{
	{DeletedAfterCreated, 1, "V001", "deletion before creation"},
	{ObservedAfterCreation, 2, "V002", "observed at or before creation"},
	{ObservedBeforeDeletion, 3, "V003", "observed at or after deletion"},
	{NoOrphans, 4, "V004", "orphan entity"},
	{DistinctObservationTimes, 5, "V005", "simultaneous observations"},
	{MaxObserves, 6, "V006", "too many observed objects"},
	{LifecycleComplete, 7, "V007", "lifecycle obligation unmet"},
}

// LookupInvariant returns the invariant with the given id.
func LookupInvariant(id InvariantID) (Invariant, bool) {
	for _, inv := range Invariants {
		if inv.ID == id {
			return inv, true
		}
	}
	return Invariant{}, false
}

// EntityKind distinguishes the three entity tables.
type EntityKind string

const (
	KindObject  EntityKind = "object"
	KindEvent   EntityKind = "event"
	KindObserve EntityKind = "observe"
)

// EntityRef identifies one offending record.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   string     `json:"id"`
}

func (r EntityRef) String() string { return string(r.Kind) + " " + r.ID }

// Violation is one invariant failure.
type Violation struct {
	Invariant InvariantID `json:"invariant"`
	Number    int         `json:"number"`
	Code      string      `json:"code"`
	Entities  []EntityRef `json:"entities"`
	Reason    string      `json:"reason"`
}

// String renders the violation on one line.
func (v Violation) String() string {
	refs := make([]string, len(v.Entities))
	for i, r := range v.Entities {
		refs[i] = r.String()
	}
	return fmt.Sprintf("[%s] %s: %s (%s)", v.Code, v.Invariant, v.Reason, strings.Join(refs, ", "))
}

// Involves reports whether the violation names the given entity.
func (v Violation) Involves(kind EntityKind, id string) bool {
	for _, r := range v.Entities {
		if r.Kind == kind && r.ID == id {
			return true
		}
	}
	return false
}

func newViolation(id InvariantID, reason string, refs ...EntityRef) Violation {
	inv, _ := LookupInvariant(id)
	return Violation{
		Invariant: id,
		Number:    inv.Number,
		Code:      inv.Code,
		Entities:  refs,
		Reason:    reason,
	}
}

func objectRef(id string) EntityRef  { return EntityRef{Kind: KindObject, ID: id} }
func eventRef(id string) EntityRef   { return EntityRef{Kind: KindEvent, ID: id} }
func observeRef(id string) EntityRef { return EntityRef{Kind: KindObserve, ID: id} }
