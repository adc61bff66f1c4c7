// Package search implements the bounded enumerator.
//
// Search explores every instance within a Bound in a fixed canonical order
// and returns the first one that meets a Goal: a witness (predicate holds
// and every invariant holds) or a counterexample (assertion fails).
//
// CANONICAL ORDER:
//
// Cardinalities are tried smallest first: object count, then event count,
// then observe count, each ascending from the goal's minimum. Within one
// cardinality triple the instance is built depth-first:
//  1. objects O1..On, each choosing type (declaration order), creation
//     instant, then deletion (absent first, then ascending)
//  2. events E1..Em, each choosing type, then timestamp
//  3. observe links X1..Xk as a strictly increasing sequence of
//     (object, event, relation) triples
//
// Objects and events are never treated as interchangeable. Observe links are
// generated in sorted order because a permutation of the same links denotes
// the same relation.
//
// PRUNING:
//
// When invariants constrain the space (witness goals, and assertions that
// assume them) every assignment is checked with evaluator.Incremental before
// descending: deletion order and observability for objects, instant capacity
// for events, lifecycle feasibility once all events are fixed, timing,
// simultaneity and the max-observes bound for links, plus an orphan
// lookahead that compares the links left to assign with the objects and
// events still uncovered. Leaves are re-checked with evaluator.Evaluate.
//
// CONCURRENCY:
//
// The tree is split into work units (cardinality triple x first object),
// ranked in canonical order. Units are decoded from their rank on demand,
// so a large bound costs no memory up front. Workers pull units in rank
// order. A worker that
// finds a result records it in a mutex-guarded best slot; units ranked above
// the best stop at their next checkpoint, units ranked below always run to
// completion. The lowest-ranked result therefore wins regardless of worker
// count or scheduling.
//
// BUDGET:
//
// Every candidate assignment counts as one step against a shared Budget.
// Exceeding it, or reaching the context deadline, ends the search with
// StatusResourceExhausted unless a result whose lower-ranked units all
// completed is already known, or every unit already completed.
package search
