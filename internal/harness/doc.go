// Package harness runs workflow scenarios against a board backed by an
// in-memory store.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario checks"
//	session: { active_project: web, agent: claude }
//	cards:
//	  - { id: 3, title: Parent, status: in_progress }
//	  - { id: 10, title: Child, status: blocked, linked_to: 3 }
//	ledger:
//	  accepted: [{ id: 1 }]
//	flow:
//	  - op: submit
//	    card: 3
//	  - op: accept
//	    card: 3
//	    expect: { status: accepted, changes: 1 }
//	  - op: start
//	    card: 99
//	    expect: { error: not_found }
//	assertions:
//	  - { type: final_status, card: 10, status: available }
//	  - { type: ledger_set, card: 3, set: accepted }
//
// # Operations
//
// create, start, start_next, submit, accept, revise, archive, cleanup and
// reconcile call the matching board operation. ledger edits the acceptance
// ledger directly, the way a reviewer editing the file by hand would: set
// names the target set, or is empty to drop the card from the ledger.
//
// # Assertion Types
//
//   - trace_contains: an op (optionally on a card, with an outcome) ran
//   - trace_order: ops ran in the given order
//   - trace_count: an op ran exactly N times
//   - final_status: a card's stored status after the flow
//   - ledger_set: the ledger set holding a card after the flow ("none" when absent)
//   - blocked: a card's computed block state after the flow
//
// # Deterministic Testing
//
// Every scenario runs with a step clock and a fixed reconcile run id
// (run_id, default "test-run-default"), so traces compare byte for byte
// against golden files.
package harness
