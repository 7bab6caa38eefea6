package board

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/glyph/internal/card"
	"github.com/roach88/glyph/internal/depgraph"
)

// Acceptance describes where a parent stands in the review process.
type Acceptance string

const (
	AcceptanceAccepted      Acceptance = "accepted"
	AcceptancePending       Acceptance = "pending"
	AcceptanceNeedsRevision Acceptance = "needs_revision"
	AcceptanceNotAccepted   Acceptance = "not_accepted"
	AcceptanceMissing       Acceptance = "missing"
)

// ParentCheck explains one parent reference of a card.
type ParentCheck struct {
	ID          card.CardID `json:"card_id"`
	Title       string      `json:"title,omitempty"`
	Status      card.Status `json:"card_status,omitempty"`
	Acceptance  Acceptance  `json:"acceptance_status"`
	Met         bool        `json:"met"`
	Explanation string      `json:"explanation"`
}

// DependencyReport is the dependency view of one card.
type DependencyReport struct {
	Card    card.Card     `json:"card"`
	Met     bool          `json:"dependencies_met"`
	Parents []ParentCheck `json:"dependencies"`
}

// Dependencies explains why the card is or is not blocked.
func (b *Board) Dependencies(ctx context.Context, id card.CardID) (*DependencyReport, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap, err := b.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("dependencies %s: %w", id, err)
	}
	states, index := depgraph.ComputeDependencyState(snap.cards, snap.ledger)
	c, ok := index.Lookup(id)
	if !ok {
		return nil, notFound("dependencies", id)
	}
	st := states[id]

	report := &DependencyReport{Card: c, Met: !st.Blocked, Parents: []ParentCheck{}}
	for _, pid := range st.Parents {
		report.Parents = append(report.Parents, checkParent(pid, st, index, snap.ledger))
	}
	return report, nil
}

func checkParent(pid card.CardID, st depgraph.State, index *depgraph.Index, ledger card.Ledger) ParentCheck {
	check := ParentCheck{ID: pid}
	parent, exists := index.Lookup(pid)
	if exists {
		check.Title = parent.Title
		check.Status = parent.Status
	}

	switch {
	case slices.Contains(st.MissingParents, pid):
		check.Acceptance = AcceptanceMissing
		check.Explanation = "Linked card not found"
	case slices.Contains(st.ResolvedParents, pid):
		check.Acceptance = AcceptanceAccepted
		check.Met = true
		check.Explanation = "Accepted by reviewer"
	case slices.Contains(st.PendingParents, pid):
		check.Acceptance = AcceptancePending
		check.Explanation = "Submitted but awaiting acceptance"
	case ledger.SetOf(pid) == card.SetNeedsRevision:
		check.Acceptance = AcceptanceNeedsRevision
		check.Explanation = "Sent back for revision"
	default:
		check.Acceptance = AcceptanceNotAccepted
		check.Explanation = fmt.Sprintf("Card status is %q but not accepted", parent.Status)
	}
	return check
}

// IsBlocked reports the computed block state of id.
func (b *Board) IsBlocked(ctx context.Context, id card.CardID) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap, err := b.load(ctx)
	if err != nil {
		return false, fmt.Errorf("is blocked %s: %w", id, err)
	}
	if _, ok := snap.find(id); !ok {
		return false, notFound("is blocked", id)
	}
	return depgraph.IsBlocked(id, snap.cards, snap.ledger), nil
}

// IsAccepted reports whether id is in the ledger's accepted set.
func (b *Board) IsAccepted(ctx context.Context, id card.CardID) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ledger, err := b.store.LoadLedger(ctx)
	if err != nil {
		return false, fmt.Errorf("is accepted %s: %w", id, err)
	}
	return depgraph.IsAccepted(id, ledger), nil
}

// BlockedCard is a blocked card with the reasons it is blocked.
type BlockedCard struct {
	Card  card.Card      `json:"card"`
	State depgraph.State `json:"state"`
}

// Blocked lists the session-visible cards whose dependencies are not met,
// ordered by id.
func (b *Board) Blocked(ctx context.Context, sess card.Session) ([]BlockedCard, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap, err := b.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("blocked: %w", err)
	}
	states, index := depgraph.ComputeDependencyState(snap.cards, snap.ledger)
	out := []BlockedCard{}
	for _, id := range depgraph.BlockedIDs(states) {
		c, _ := index.Lookup(id)
		if !sess.Visible(c) {
			continue
		}
		out = append(out, BlockedCard{Card: c, State: states[id]})
	}
	return out, nil
}

// Forest renders the dependency forest. A non-empty project overrides the
// session's active project.
func (b *Board) Forest(ctx context.Context, sess card.Session, project string) (depgraph.Forest, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cards, err := b.store.LoadCards(ctx)
	if err != nil {
		return depgraph.Forest{}, fmt.Errorf("forest: %w", err)
	}
	if project == "" {
		project = sess.ActiveProject
	}
	return depgraph.BuildDependencyForest(cards, project), nil
}

// ReviewQueue returns the ledger, for reviewers deciding what to look at.
func (b *Board) ReviewQueue(ctx context.Context) (card.Ledger, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ledger, err := b.store.LoadLedger(ctx)
	if err != nil {
		return card.Ledger{}, fmt.Errorf("review queue: %w", err)
	}
	return ledger, nil
}
