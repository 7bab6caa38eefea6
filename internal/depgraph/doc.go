// Package depgraph derives dependency state from cards and the acceptance
// ledger, reconciles persisted statuses against it, and renders the
// parent/child graph as a forest.
//
// # Rules
//
//   - A card is blocked when any parent reference is missing from the card
//     set or is not in the ledger's accepted set. Completion is not enough;
//     only acceptance unblocks.
//   - A card with no parent references is never blocked.
//   - State is recomputed from scratch on every call and never cached.
//     Each card's block state depends only on the full card set and the
//     ledger, never on a parent's status field, so one recompute pass covers
//     transitive effects.
//   - accepted and needs_revision are protected: reconciliation never
//     overwrites them.
//
// Missing parents, malformed references and cycles are reported as data.
// The only error this package returns is a PartialFailureError from
// ReconcileStatuses when the card writer fails.
package depgraph
