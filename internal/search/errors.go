package search

import (
	"errors"
	"fmt"
)

// SearchError reports a request the enumerator cannot run. It is returned
// before any exploration starts, or when a predicate fails to evaluate.
type SearchError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes search errors.
type ErrorCode string

const (
	// ErrCodeInvalidBound indicates a malformed or negative bound.
	ErrCodeInvalidBound ErrorCode = "INVALID_BOUND"

	// ErrCodeInvalidGoal indicates a goal without a predicate or with a
	// minimum outside the bound.
	ErrCodeInvalidGoal ErrorCode = "INVALID_GOAL"

	// ErrCodePredicate indicates a predicate returned an error on a
	// candidate instance.
	ErrCodePredicate ErrorCode = "PREDICATE_FAILED"
)

// Error implements the error interface.
func (e *SearchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBoundError creates a SearchError for an unusable bound.
func NewBoundError(bound, message string) *SearchError {
	return &SearchError{
		Code:    ErrCodeInvalidBound,
		Message: fmt.Sprintf("bound %q: %s", bound, message),
		Details: map[string]string{"bound": bound},
	}
}

// NewGoalError creates a SearchError for an unusable goal.
func NewGoalError(goal, message string) *SearchError {
	return &SearchError{
		Code:    ErrCodeInvalidGoal,
		Message: fmt.Sprintf("goal %q: %s", goal, message),
		Details: map[string]string{"goal": goal},
	}
}

// IsBoundError returns true if the error is an invalid-bound error.
// Uses errors.As to handle wrapped errors.
func IsBoundError(err error) bool {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Code == ErrCodeInvalidBound
	}
	return false
}

// IsGoalError returns true if the error is an invalid-goal error.
func IsGoalError(err error) bool {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Code == ErrCodeInvalidGoal
	}
	return false
}

// predicateError wraps a failed predicate evaluation.
func predicateError(goal string, err error) error {
	return fmt.Errorf("%w: %w", &SearchError{
		Code:    ErrCodePredicate,
		Message: fmt.Sprintf("goal %q: predicate evaluation failed", goal),
		Details: map[string]string{"goal": goal},
	}, err)
}
