// Package card defines the records the dependency engine works on.
//
// This package contains value types only: Card, CardID, Status, Ledger and
// Session. Every other internal package imports card; card imports nothing
// internal.
//
// Key constraints:
//   - CardID is a tagged union (numeric or token). "7", "007" and 7 are the
//     same id; the zero CardID means "no identifier".
//   - Status is a closed enum. Workflow moves follow CanTransition; the
//     reconciler moves follow ReconcileTarget.
//   - A card id appears in at most one Ledger set. Ledger.Place keeps this.
package card
