// Package evaluator checks OCED instances against the seven structural and
// temporal invariants.
//
// Evaluate is a pure function: it builds its grouping indexes once per call,
// runs every check independently and returns all violations in a stable
// order (invariant number, then the instance's entity order). Violations are
// data, never errors.
//
// Incremental exposes the same checks over a partially assigned instance so
// the bounded enumerator can prune a branch as soon as a check's inputs are
// fixed.
package evaluator
