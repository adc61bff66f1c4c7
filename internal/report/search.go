package report

import (
	"github.com/roach88/oced/internal/evaluator"
	"github.com/roach88/oced/internal/instanceio"
	"github.com/roach88/oced/internal/search"
)

// Verdict is the reader-facing conclusion of a search or check.
type Verdict string

const (
	VerdictWitness        Verdict = "witness found"
	VerdictCounterexample Verdict = "counterexample found"
	VerdictNoWitness      Verdict = "no witness within bound"
	VerdictHolds          Verdict = "no counterexample within bound"
	VerdictExhausted      Verdict = "resource exhausted"
)

// SearchReport is the result of one search or check.
type SearchReport struct {
	RunID   string        `json:"run_id"`
	Goal    string        `json:"goal"`
	Kind    string        `json:"kind"`
	Status  search.Status `json:"status"`
	Verdict Verdict       `json:"verdict"`
	Bound   search.Bound  `json:"bound"`

	// Instance is the witness or counterexample.
	Instance     *instanceio.Document `json:"instance,omitempty"`
	InstanceHash string               `json:"instance_hash,omitempty"`

	// Violations lists what a counterexample found without assuming the
	// invariants breaks. Empty for witnesses.
	Violations []evaluator.Violation `json:"violations,omitempty"`

	Steps         int64  `json:"steps"`
	Units         int    `json:"units"`
	Completed     int    `json:"completed_units"`
	FullyExplored bool   `json:"fully_explored"`
	Reason        string `json:"reason,omitempty"`
	ElapsedMS     int64  `json:"elapsed_ms"`
}

// Search builds a report from a search outcome.
func Search(out *search.Outcome) *SearchReport {
	r := &SearchReport{
		RunID:         out.RunID,
		Goal:          out.Goal,
		Kind:          string(out.Kind),
		Status:        out.Status,
		Bound:         out.Bound,
		Steps:         out.Steps,
		Units:         out.Units,
		Completed:     out.Completed,
		FullyExplored: out.Status == search.StatusNoneWithinBound,
		Reason:        out.Reason,
		ElapsedMS:     out.Elapsed.Milliseconds(),
	}
	r.Verdict = verdict(out)
	if out.Instance != nil {
		r.Instance = instanceio.FromInstance(out.Instance)
		if h, err := out.Instance.Hash(); err == nil {
			r.InstanceHash = h
		}
		if out.Kind == search.GoalAssertion {
			r.Violations = evaluator.Evaluate(out.Instance.Schema(), out.Instance)
		}
	}
	return r
}

func verdict(out *search.Outcome) Verdict {
	switch out.Status {
	case search.StatusFound:
		if out.Kind == search.GoalAssertion {
			return VerdictCounterexample
		}
		return VerdictWitness
	case search.StatusNoneWithinBound:
		if out.Kind == search.GoalAssertion {
			return VerdictHolds
		}
		return VerdictNoWitness
	default:
		return VerdictExhausted
	}
}
