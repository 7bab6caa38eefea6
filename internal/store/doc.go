// Package store is the SQLite backend for cards and the acceptance ledger.
//
// Each card is kept as its YAML document plus a few indexed columns:
//   - card_key: CardID.Key(), so "7" and "007" land on one row
//   - seq: insertion order, which LoadCards preserves
//   - num: numeric id, NULL for token ids
//   - archived: archived cards stay in the table and are filtered out of
//     LoadCards
//
// Ledger entries are keyed by card_key, which keeps the three ledger sets
// disjoint at the storage level.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
