package report

import (
	"slices"

	"github.com/roach88/oced/internal/evaluator"
	"github.com/roach88/oced/internal/model"
)

// Group holds the violations of one invariant.
type Group struct {
	Invariant  evaluator.InvariantID `json:"invariant"`
	Number     int                   `json:"number"`
	Code       string                `json:"code"`
	Title      string                `json:"title"`
	Count      int                   `json:"count"`
	Violations []evaluator.Violation `json:"violations"`
}

// ValidationReport is the result of validating one instance.
type ValidationReport struct {
	InstanceHash string  `json:"instance_hash,omitempty"`
	Valid        bool    `json:"valid"`
	Total        int     `json:"total"`
	Objects      int     `json:"objects"`
	Events       int     `json:"events"`
	Observes     int     `json:"observes"`
	Groups       []Group `json:"groups"`
}

// Validation builds a report for in from its violations.
func Validation(in *model.Instance, vs []evaluator.Violation) *ValidationReport {
	r := &ValidationReport{
		Valid:    len(vs) == 0,
		Total:    len(vs),
		Objects:  in.NumObjects(),
		Events:   in.NumEvents(),
		Observes: in.NumObserves(),
		Groups:   GroupViolations(vs),
	}
	if h, err := in.Hash(); err == nil {
		r.InstanceHash = h
	}
	return r
}

// GroupViolations buckets vs by invariant, ordered by invariant number.
// Invariants without violations are omitted.
func GroupViolations(vs []evaluator.Violation) []Group {
	byNumber := make(map[int]*Group)
	for _, v := range vs {
		g, ok := byNumber[v.Number]
		if !ok {
			inv, _ := evaluator.LookupInvariant(v.Invariant)
			g = &Group{Invariant: v.Invariant, Number: v.Number, Code: v.Code, Title: inv.Title}
			byNumber[v.Number] = g
		}
		g.Violations = append(g.Violations, v)
		g.Count++
	}
	groups := make([]Group, 0, len(byNumber))
	for _, g := range byNumber {
		groups = append(groups, *g)
	}
	slices.SortFunc(groups, func(a, b Group) int { return a.Number - b.Number })
	return groups
}
