package testutil

import (
	"github.com/roach88/glyph/internal/card"
)

// NewCard builds a card with a numeric id, a status and parent references.
// Parents accept any value card.NormalizeID understands.
func NewCard(id uint64, status card.Status, parents ...any) card.Card {
	return card.Card{
		ID:      card.Numeric(id),
		Title:   "card " + card.Numeric(id).String(),
		Status:  status,
		Parents: card.Parents(parents...),
	}
}

// AcceptedLedger builds a ledger whose accepted set holds ids.
func AcceptedLedger(ids ...uint64) card.Ledger {
	var l card.Ledger
	for _, id := range ids {
		l.Place(card.SetAccepted, card.LedgerEntry{ID: card.Numeric(id)})
	}
	return l
}
