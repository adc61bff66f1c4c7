// Package compiler turns a CUE model into a schema and named goals.
//
// A model declares four top-level fields:
//
//	schema: {
//		object_types:   ["case", "incident"]
//		event_types:    ["start", "resolve"]
//		relation_types: ["involves"]            // optional
//		attributes:     {priority: "int"}        // optional; int, string or timestamp
//		max_observes:   10                       // optional
//		lifecycle: {stateful: "incident", start: ["start"], resolve: ["resolve"]}
//	}
//	pred: busy: {expr: "size(events) >= 2", min: {objects: 1}}
//	assert: ordered: {expr: "...", assume_invariants: true}
//	scope: {objects: 3, events: 4, observes: 4, time: 4}
//
// A goal written as a bare string is shorthand for {expr: "..."}.
//
// ParseModel reads the CUE structure, Validate collects every semantic
// error with a stable code, and Build produces the runtime Model.
// Compile runs all three.
package compiler
