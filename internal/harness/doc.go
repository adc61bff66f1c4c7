// Package harness runs scenario files against an OCED model.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: lifecycle_unresolved
//	description: "An incident that starts but never resolves"
//	model: models/incident          # CUE model directory
//	steps:
//	  - validate: instances/open.yaml
//	    expect:
//	      status: invalid
//	      codes: [V007]
//	  - search: resolved_incident
//	    bound: "1,2,2,3"
//	    expect:
//	      status: found
//	  - check: starts_before_resolve
//	    expect:
//	      status: none_within_bound
//	assertions:
//	  - type: violation_count
//	    code: V007
//	    count: 1
//	  - type: final_state
//	    table: runs
//	    where: { goal: resolved_incident }
//	    expect: { status: found }
//
// Instance paths are relative to the scenario file. The model path is
// relative to the scenario file, or to the base path given to
// LoadScenarioWithBasePath.
//
// A validate step ends "valid", "invalid" or "malformed". A search or
// check step ends with the search status: "found", "none_within_bound"
// or "resource_exhausted". Searches without a bound use the model scope.
//
// # Assertion Types
//
//   - trace_contains: a step of the given kind and target ended with status
//   - trace_order: targets appear in the trace in the given order
//   - trace_count: exactly N steps ended with status
//   - violation_count: a violation code was reported exactly N times
//   - final_state: a row of the result store matches the expected values
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory SQLite store with one
// search worker, sequential step numbers (testutil.DeterministicClock) and
// run ids derived from the scenario name (testutil.SequentialRunIDs), so
// its trace is byte-identical across runs and can be compared against a
// golden file.
package harness
