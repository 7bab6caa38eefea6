// Package filestore persists cards and the acceptance ledger as YAML files.
//
// Layout under the workspace:
//
//	cards/NNN_slug.yaml     one document per active card
//	archive/cards/*.yaml    archived cards, same format
//	acceptance.yaml         ledger with accepted, pending_reviews, needs_revision
//
// Writes go through a temp file in the target directory followed by a rename,
// so a reader never observes a half-written document. A card file that does
// not parse is logged and skipped; it never fails a whole load.
package filestore
