package search

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// DefaultStepBudget is the default maximum number of explored assignments
// per search.
const DefaultStepBudget = 5_000_000

// Budget counts explored partial assignments across every worker of one
// search and enforces a maximum.
//
// Thread-safety: Budget is safe for concurrent use (atomic operations).
type Budget struct {
	limit    int64 // <= 0 means unlimited
	steps    atomic.Int64
	exceeded atomic.Bool
}

// NewBudget creates a budget with the given limit. A non-positive limit
// never runs out.
func NewBudget(limit int64) *Budget {
	return &Budget{limit: limit}
}

// Step records one explored assignment.
//
// Returns BudgetExceededError once the count passes the limit.
func (b *Budget) Step() error {
	n := b.steps.Add(1)
	if b.limit > 0 && n > b.limit {
		b.exceeded.Store(true)
		return &BudgetExceededError{Steps: n, Limit: b.limit}
	}
	return nil
}

// Steps returns the number of steps taken.
func (b *Budget) Steps() int64 {
	n := b.steps.Load()
	if b.limit > 0 && n > b.limit {
		return b.limit
	}
	return n
}

// Limit returns the configured maximum.
func (b *Budget) Limit() int64 { return b.limit }

// Exceeded reports whether any worker has run past the limit.
func (b *Budget) Exceeded() bool { return b.exceeded.Load() }

// BudgetExceededError is returned when a search explores more assignments
// than its budget allows.
type BudgetExceededError struct {
	Steps int64
	Limit int64
}

// Error implements the error interface.
func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("search exceeded step budget: %d steps > %d limit", e.Steps, e.Limit)
}

// IsBudgetExceeded returns true if the error is a BudgetExceededError.
// Uses errors.As to handle wrapped errors.
func IsBudgetExceeded(err error) bool {
	var be *BudgetExceededError
	return errors.As(err, &be)
}
