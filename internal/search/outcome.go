package search

import (
	"time"

	"github.com/roach88/oced/internal/model"
)

// Status is the conclusion of a search.
type Status string

const (
	// StatusFound means a witness or counterexample was found.
	StatusFound Status = "found"

	// StatusNoneWithinBound means the whole space within the bound was
	// explored and nothing qualifies.
	StatusNoneWithinBound Status = "none_within_bound"

	// StatusResourceExhausted means the step budget or deadline ran out
	// before the space was fully explored.
	StatusResourceExhausted Status = "resource_exhausted"
)

// Outcome is the result of Search.
type Outcome struct {
	RunID  string
	Status Status
	Goal   string
	Kind   GoalKind
	Bound  Bound

	// Instance is set when Status is StatusFound.
	Instance *model.Instance

	// Steps counts explored assignments. With more than one worker it
	// depends on scheduling.
	Steps int64

	// Units is the number of work units; Completed how many were fully
	// explored.
	Units     int
	Completed int

	// Reason explains StatusResourceExhausted.
	Reason string

	Elapsed time.Duration
}

// Found reports whether the search produced an instance.
func (o *Outcome) Found() bool { return o.Status == StatusFound }
