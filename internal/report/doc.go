// Package report turns evaluator and search results into reports.
//
// A ValidationReport groups violations by invariant in ascending invariant
// number; within a group violations keep the evaluator's entity order.
// A SearchReport carries the found instance as an instance document, or
// the explanation of why none was produced.
//
// Reports are plain data. WriteText and WriteJSON render them without
// side effects beyond the writer.
package report
