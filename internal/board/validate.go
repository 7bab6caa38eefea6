package board

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/glyph/internal/card"
	"github.com/roach88/glyph/internal/depgraph"
	"github.com/roach88/glyph/internal/schema"
)

// Validate checks raw card documents against the schema (when the store
// can supply them), then looks for duplicate ids, ledger ids in more than
// one set, and ledger entries naming no known card.
func (b *Board) Validate(ctx context.Context, v *schema.Validator) ([]schema.ValidationError, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	problems := []schema.ValidationError{}
	if src, ok := b.store.(DocumentSource); ok {
		docs, err := src.RawDocuments(ctx)
		if err != nil {
			return nil, fmt.Errorf("validate: %w", err)
		}
		problems = append(problems, v.ValidateAll(docs)...)
	}

	snap, err := b.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	archived, err := b.store.ListArchived(ctx)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	index := depgraph.NewIndex(snap.cards)
	for _, dup := range index.Duplicates() {
		problems = append(problems, schema.ValidationError{
			Source:  "card " + dup.ID.String(),
			Field:   "id",
			Message: fmt.Sprintf("duplicate id; %q is ignored in favour of the first card", dup.Title),
			Code:    schema.ErrDuplicateID,
		})
	}

	for _, id := range snap.ledger.Conflicts() {
		problems = append(problems, schema.ValidationError{
			Source:  "ledger",
			Field:   id.String(),
			Message: "id appears in more than one ledger set",
			Code:    schema.ErrLedgerConflict,
		})
	}

	known := depgraph.NewIndex(append(slices.Clone(snap.cards), archived...))
	for _, set := range []card.LedgerSet{card.SetAccepted, card.SetPendingReview, card.SetNeedsRevision} {
		for _, e := range snap.ledger.Entries(set) {
			if _, ok := known.Lookup(e.ID); ok || e.ID.IsZero() {
				continue
			}
			problems = append(problems, schema.ValidationError{
				Source:  "ledger " + string(set),
				Field:   e.ID.String(),
				Message: "ledger entry references no active or archived card",
				Code:    schema.ErrLedgerOrphan,
			})
		}
	}
	return problems, nil
}
