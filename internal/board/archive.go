package board

import (
	"context"
	"fmt"

	"github.com/roach88/glyph/internal/card"
)

// ArchiveResult reports an archival.
type ArchiveResult struct {
	ID                   card.CardID `json:"id"`
	LedgerEntriesRemoved int         `json:"ledger_entries_removed"`
}

// Archive moves an accepted card out of the active set and drops its ledger
// entries. Cards that referenced it see a missing parent afterwards; no
// reconcile pass runs here.
func (b *Board) Archive(ctx context.Context, id card.CardID) (*ArchiveResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap, err := b.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive %s: %w", id, err)
	}
	c, ok := snap.find(id)
	if !ok {
		return nil, notFound("archive", id)
	}
	if c.Status != card.StatusAccepted {
		return nil, fmt.Errorf("archive %s: %w (status %s)", id, ErrNotAccepted, c.Status)
	}

	if err := b.store.ArchiveCard(ctx, id); err != nil {
		return nil, fmt.Errorf("archive %s: %w", id, err)
	}
	removed := snap.ledger.Remove(id)
	if removed > 0 {
		if err := b.store.SaveLedger(ctx, snap.ledger); err != nil {
			return nil, fmt.Errorf("archive %s: %w", id, err)
		}
	}
	b.logger.Info("card archived", "card", id.String(), "ledger_entries_removed", removed)
	return &ArchiveResult{ID: id, LedgerEntriesRemoved: removed}, nil
}

// CleanupResult reports a ledger cleanup.
type CleanupResult struct {
	ArchivedCount int           `json:"archived_count"`
	Removed       []card.CardID `json:"removed"`
}

// CleanupLedger removes ledger entries that reference archived cards.
func (b *Board) CleanupLedger(ctx context.Context) (*CleanupResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	archived, err := b.store.ListArchived(ctx)
	if err != nil {
		return nil, fmt.Errorf("cleanup ledger: %w", err)
	}
	ledger, err := b.store.LoadLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("cleanup ledger: %w", err)
	}

	result := &CleanupResult{ArchivedCount: len(archived), Removed: []card.CardID{}}
	for _, c := range archived {
		if ledger.Remove(c.ID) > 0 {
			result.Removed = append(result.Removed, c.ID)
		}
	}
	if len(result.Removed) > 0 {
		if err := b.store.SaveLedger(ctx, ledger); err != nil {
			return nil, fmt.Errorf("cleanup ledger: %w", err)
		}
	}
	return result, nil
}

// ListArchived returns archived cards.
func (b *Board) ListArchived(ctx context.Context) ([]card.Card, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cards, err := b.store.ListArchived(ctx)
	if err != nil {
		return nil, fmt.Errorf("list archived: %w", err)
	}
	return cards, nil
}
