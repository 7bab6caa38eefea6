package card

import (
	"slices"
	"time"
)

// LedgerSet names one of the three disjoint acceptance ledger sets.
type LedgerSet string

const (
	SetNone          LedgerSet = ""
	SetAccepted      LedgerSet = "accepted"
	SetPendingReview LedgerSet = "pending_review"
	SetNeedsRevision LedgerSet = "needs_revision"
)

// LedgerEntry references a card inside a ledger set.
type LedgerEntry struct {
	ID        CardID         `yaml:"id" json:"id"`
	Title     string         `yaml:"title,omitempty" json:"title,omitempty"`
	Reviewer  string         `yaml:"reviewer,omitempty" json:"reviewer,omitempty"`
	Assignee  string         `yaml:"assignee,omitempty" json:"assignee,omitempty"`
	Notes     string         `yaml:"notes,omitempty" json:"notes,omitempty"`
	Timestamp time.Time      `yaml:"timestamp,omitempty" json:"timestamp,omitempty"`
	Extra     map[string]any `yaml:",inline" json:"-"`
}

// Ledger records which cards are accepted, pending review, or sent back for
// revision. A card id appears in at most one set; use Place to move entries.
type Ledger struct {
	Accepted      []LedgerEntry `yaml:"accepted" json:"accepted"`
	PendingReview []LedgerEntry `yaml:"pending_reviews" json:"pending_review"`
	NeedsRevision []LedgerEntry `yaml:"needs_revision" json:"needs_revision"`
}

func (l *Ledger) set(s LedgerSet) *[]LedgerEntry {
	switch s {
	case SetAccepted:
		return &l.Accepted
	case SetPendingReview:
		return &l.PendingReview
	case SetNeedsRevision:
		return &l.NeedsRevision
	default:
		return nil
	}
}

// Entries returns the entries of one set.
func (l Ledger) Entries(s LedgerSet) []LedgerEntry {
	if p := l.set(s); p != nil {
		return *p
	}
	return nil
}

// SetOf returns the set containing id, checking accepted first.
func (l Ledger) SetOf(id CardID) LedgerSet {
	for _, s := range []LedgerSet{SetAccepted, SetPendingReview, SetNeedsRevision} {
		if containsID(l.Entries(s), id) {
			return s
		}
	}
	return SetNone
}

// IsAccepted reports whether id is in the accepted set.
func (l Ledger) IsAccepted(id CardID) bool {
	return containsID(l.Accepted, id)
}

// IsPending reports whether id is in the pending review set.
func (l Ledger) IsPending(id CardID) bool {
	return containsID(l.PendingReview, id)
}

// Remove deletes every entry for id from every set and returns how many
// entries were removed.
func (l *Ledger) Remove(id CardID) int {
	removed := 0
	for _, s := range []LedgerSet{SetAccepted, SetPendingReview, SetNeedsRevision} {
		p := l.set(s)
		before := len(*p)
		*p = slices.DeleteFunc(*p, func(e LedgerEntry) bool { return e.ID == id })
		removed += before - len(*p)
	}
	return removed
}

// Place moves entry into set s, removing any other entry for the same card
// first so the sets stay disjoint.
func (l *Ledger) Place(s LedgerSet, entry LedgerEntry) {
	l.Remove(entry.ID)
	if p := l.set(s); p != nil {
		*p = append(*p, entry)
	}
}

// Conflicts returns ids that appear in more than one set, in ascending order.
func (l Ledger) Conflicts() []CardID {
	seen := make(map[CardID]LedgerSet)
	var out []CardID
	for _, s := range []LedgerSet{SetAccepted, SetPendingReview, SetNeedsRevision} {
		for _, e := range l.Entries(s) {
			if e.ID.IsZero() {
				continue
			}
			prev, ok := seen[e.ID]
			if ok && prev != s && !slices.Contains(out, e.ID) {
				out = append(out, e.ID)
			}
			if !ok {
				seen[e.ID] = s
			}
		}
	}
	slices.SortFunc(out, CardID.Compare)
	return out
}

// Clone returns a copy whose set slices may be mutated independently.
func (l Ledger) Clone() Ledger {
	return Ledger{
		Accepted:      slices.Clone(l.Accepted),
		PendingReview: slices.Clone(l.PendingReview),
		NeedsRevision: slices.Clone(l.NeedsRevision),
	}
}

func containsID(entries []LedgerEntry, id CardID) bool {
	if id.IsZero() {
		return false
	}
	for _, e := range entries {
		if e.ID == id {
			return true
		}
	}
	return false
}
