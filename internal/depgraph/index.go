package depgraph

import (
	"slices"

	"github.com/roach88/glyph/internal/card"
)

// Index maps normalized card ids to card records.
//
// When two records share an id the first one in input order wins; later
// records are kept aside and exposed through Duplicates so callers can
// report the conflict. Records without an id are exposed through Anonymous.
type Index struct {
	byID       map[card.CardID]card.Card
	order      []card.CardID
	duplicates []card.Card
	anonymous  []card.Card
}

// NewIndex indexes cards in input order.
func NewIndex(cards []card.Card) *Index {
	ix := &Index{byID: make(map[card.CardID]card.Card, len(cards))}
	for _, c := range cards {
		switch {
		case c.ID.IsZero():
			ix.anonymous = append(ix.anonymous, c)
		case ix.has(c.ID):
			ix.duplicates = append(ix.duplicates, c)
		default:
			ix.byID[c.ID] = c
			ix.order = append(ix.order, c.ID)
		}
	}
	return ix
}

func (ix *Index) has(id card.CardID) bool {
	_, ok := ix.byID[id]
	return ok
}

// Lookup returns the card indexed under id.
func (ix *Index) Lookup(id card.CardID) (card.Card, bool) {
	c, ok := ix.byID[id]
	return c, ok
}

// Len returns the number of distinct ids.
func (ix *Index) Len() int { return len(ix.order) }

// IDs returns the distinct ids in input order.
func (ix *Index) IDs() []card.CardID { return slices.Clone(ix.order) }

// SortedIDs returns the distinct ids in CardID order.
func (ix *Index) SortedIDs() []card.CardID {
	ids := slices.Clone(ix.order)
	slices.SortFunc(ids, card.CardID.Compare)
	return ids
}

// Cards returns the indexed cards in input order.
func (ix *Index) Cards() []card.Card {
	out := make([]card.Card, 0, len(ix.order))
	for _, id := range ix.order {
		out = append(out, ix.byID[id])
	}
	return out
}

// Duplicates returns records dropped because an earlier record had the same
// normalized id.
func (ix *Index) Duplicates() []card.Card { return slices.Clone(ix.duplicates) }

// Anonymous returns records that carry no usable id.
func (ix *Index) Anonymous() []card.Card { return slices.Clone(ix.anonymous) }
