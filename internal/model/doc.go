// Package model provides the typed in-memory representation of OCED schemas
// and instances.
//
// This package contains structure only. Business rules (the seven OCED
// invariants) live in the evaluator; model enforces only well-formedness:
// declared types, declared instants, declared attribute names with matching
// value kinds, unique ids and resolvable observe references.
//
// Key design constraints:
//   - Instances are immutable once built; corrections rebuild the instance
//   - Enumerations are closed and ordered, membership tests are O(1)
//   - Time is a finite total order of named instants, compared by position
//   - Content-addressed identity uses RFC 8785 canonical JSON (see hash.go)
//   - model imports nothing internal
package model
