// Package harness replays scripted sorting sessions for conformance testing.
//
// A scenario lists the items to sort and a sequence of human actions. The
// harness runs them through a real session backed by an in-memory file
// store, records a trace of every offered pair and decision, checks the
// scenario's assertions, and can compare the trace against a golden file.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	items: [A, B, C, D]
//	steps:
//	  - action: left            # pick the left item of the offered pair
//	    expect_pair: [A, B]
//	  - action: choose          # pick a named item
//	    winner: C
//	  - action: undo
//	  - action: restore         # reopen the session from the store
//	  - action: right
//	    expect_error: INVALID_DECISION
//	preference: [D, C, B, A]    # optional: finish with a consistent chooser
//	assertions:
//	  - type: result
//	    items: [D, C, B, A]
//	  - type: offered
//	    pair: [B, C]
//	  - type: decision_count
//	    count: 4
//
// # Assertion Types
//
//   - result: the sort finished with exactly this order
//   - offered: the pair was offered at some step
//   - not_offered: the pair was never offered
//   - decision_count: the final number of applied decisions
//
// # Deterministic Testing
//
// Every run uses a fixed session id and a fresh in-memory filesystem, so
// the same scenario always yields the same trace. Traces are serialized
// with ir.MarshalCanonical for golden comparison.
package harness
