package depgraph

import (
	"slices"

	"github.com/roach88/glyph/internal/card"
)

// State is the derived dependency state of one card.
type State struct {
	ID              card.CardID   `json:"id"`
	Blocked         bool          `json:"blocked"`
	Parents         []card.CardID `json:"parents"`
	MissingParents  []card.CardID `json:"missing_parents"`
	PendingParents  []card.CardID `json:"pending_parents"`
	ResolvedParents []card.CardID `json:"resolved_parents"`
}

// ComputeDependencyState returns the state of every distinct card id plus
// the index it was computed from.
//
// For each parent reference of a card:
//   - not in the card set: recorded as missing, card blocked
//   - present but not accepted: card blocked; also recorded as pending when
//     the parent is awaiting review
//   - accepted: recorded as resolved
//
// A card whose parent list contains its own id stays blocked until it is
// itself accepted. The function is pure.
func ComputeDependencyState(cards []card.Card, ledger card.Ledger) (map[card.CardID]State, *Index) {
	index := NewIndex(cards)
	accepted := entryIDs(ledger.Accepted)
	pending := entryIDs(ledger.PendingReview)

	states := make(map[card.CardID]State, index.Len())
	for _, id := range index.order {
		states[id] = evaluate(index.byID[id], index, accepted, pending)
	}
	return states, index
}

func evaluate(c card.Card, index *Index, accepted, pending map[card.CardID]bool) State {
	st := State{
		ID:              c.ID,
		Parents:         []card.CardID{},
		MissingParents:  []card.CardID{},
		PendingParents:  []card.CardID{},
		ResolvedParents: []card.CardID{},
	}
	for _, parent := range parentIDs(c) {
		st.Parents = append(st.Parents, parent)
		switch {
		case !index.has(parent):
			st.MissingParents = append(st.MissingParents, parent)
			st.Blocked = true
		case !accepted[parent]:
			st.Blocked = true
			if pending[parent] {
				st.PendingParents = append(st.PendingParents, parent)
			}
		default:
			st.ResolvedParents = append(st.ResolvedParents, parent)
		}
	}
	return st
}

// parentIDs drops references that normalize to no identifier and repeated
// references, preserving order.
func parentIDs(c card.Card) []card.CardID {
	out := make([]card.CardID, 0, len(c.Parents))
	for _, p := range c.Parents {
		if p.IsZero() || slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func entryIDs(entries []card.LedgerEntry) map[card.CardID]bool {
	set := make(map[card.CardID]bool, len(entries))
	for _, e := range entries {
		if !e.ID.IsZero() {
			set[e.ID] = true
		}
	}
	return set
}

// IsBlocked reports whether the card with the given id is blocked. Unknown
// ids are reported as not blocked.
func IsBlocked(id card.CardID, cards []card.Card, ledger card.Ledger) bool {
	states, _ := ComputeDependencyState(cards, ledger)
	return states[id].Blocked
}

// IsAccepted reports whether id is in the ledger's accepted set.
func IsAccepted(id card.CardID, ledger card.Ledger) bool {
	return ledger.IsAccepted(id)
}

// BlockedIDs returns the ids of blocked cards in CardID order.
func BlockedIDs(states map[card.CardID]State) []card.CardID {
	var out []card.CardID
	for id, st := range states {
		if st.Blocked {
			out = append(out, id)
		}
	}
	slices.SortFunc(out, card.CardID.Compare)
	return out
}
