package board

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/roach88/glyph/internal/card"
	"github.com/roach88/glyph/internal/depgraph"
)

// NewCard describes a card to create.
type NewCard struct {
	Title      string
	Parents    []card.CardID
	AssignedTo string
	Project    string
	Extra      map[string]any
}

// ReviewResult is the outcome of Accept or RequestChanges: the reviewed
// card and the reconcile pass that followed.
type ReviewResult struct {
	Card      card.Card        `json:"card"`
	Reconcile *depgraph.Report `json:"reconcile"`
}

// CreateCard saves a new card under the next free numeric id. The project
// defaults to the session's active project and the assignee to the session
// agent. The card starts blocked when any parent is missing or unaccepted.
func (b *Board) CreateCard(ctx context.Context, sess card.Session, req NewCard) (card.Card, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return card.Card{}, fmt.Errorf("create card: %w", ErrTitleRequired)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	snap, err := b.load(ctx)
	if err != nil {
		return card.Card{}, fmt.Errorf("create card: %w", err)
	}
	archived, err := b.store.ListArchived(ctx)
	if err != nil {
		return card.Card{}, fmt.Errorf("create card: %w", err)
	}

	c := card.Card{
		ID:         nextID(snap.cards, archived),
		Title:      title,
		AssignedTo: req.AssignedTo,
		Project:    req.Project,
		Parents:    card.Parents(idsToAny(req.Parents)...),
		Status:     card.StatusAvailable,
	}
	if c.AssignedTo == "" {
		c.AssignedTo = sess.Agent()
	}
	if c.Project == "" {
		c.Project = sess.ActiveProject
	}
	if len(req.Extra) > 0 {
		c.Extra = maps.Clone(req.Extra)
	}

	snap.cards = append(snap.cards, c)
	if snap.state(c.ID).Blocked {
		c.Status = card.StatusBlocked
	}

	if err := b.store.SaveCard(ctx, c); err != nil {
		return card.Card{}, fmt.Errorf("create card: %w", err)
	}
	b.logger.Info("card created", "card", c.ID.String(), "status", c.Status, "project", c.Project)
	return c, nil
}

// nextID returns one more than the largest numeric id among active and
// archived cards.
func nextID(active, archived []card.Card) card.CardID {
	var max uint64
	for _, set := range [][]card.Card{active, archived} {
		for _, c := range set {
			if n, ok := c.ID.Num(); ok && n > max {
				max = n
			}
		}
	}
	return card.Numeric(max + 1)
}

func idsToAny(ids []card.CardID) []any {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, id)
	}
	return out
}

// Start moves a card to in_progress. A card whose dependencies are not all
// accepted cannot be started, whatever its stored status says.
func (b *Board) Start(ctx context.Context, sess card.Session, id card.CardID) (card.Card, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap, err := b.load(ctx)
	if err != nil {
		return card.Card{}, fmt.Errorf("start %s: %w", id, err)
	}
	return b.startLocked(ctx, sess, snap, id)
}

func (b *Board) startLocked(ctx context.Context, sess card.Session, snap snapshot, id card.CardID) (card.Card, error) {
	c, ok := snap.find(id)
	if !ok {
		return card.Card{}, notFound("start", id)
	}
	if snap.state(id).Blocked {
		return card.Card{}, fmt.Errorf("start %s: %w", id, ErrBlocked)
	}
	if !card.CanTransition(c.Status, card.StatusInProgress) {
		return card.Card{}, fmt.Errorf("start %s: %w: %s -> %s", id, ErrInvalidTransition, c.Status, card.StatusInProgress)
	}

	c = c.Clone()
	c.Status = card.StatusInProgress
	if c.AssignedTo == "" {
		c.AssignedTo = sess.Agent()
	}
	if err := b.store.SaveCard(ctx, c); err != nil {
		return card.Card{}, fmt.Errorf("start %s: %w", id, err)
	}
	b.logger.Info("card started", "card", id.String(), "agent", c.AssignedTo)
	return c, nil
}

// Submit puts a card up for review: its status becomes awaiting_acceptance
// and it moves to the ledger's pending set.
func (b *Board) Submit(ctx context.Context, sess card.Session, id card.CardID, notes string) (card.Card, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap, err := b.load(ctx)
	if err != nil {
		return card.Card{}, fmt.Errorf("submit %s: %w", id, err)
	}
	c, ok := snap.find(id)
	if !ok {
		return card.Card{}, notFound("submit", id)
	}
	if snap.state(id).Blocked {
		return card.Card{}, fmt.Errorf("submit %s: %w", id, ErrBlocked)
	}
	if !card.CanTransition(c.Status, card.StatusAwaitingAcceptance) {
		return card.Card{}, fmt.Errorf("submit %s: %w: %s -> %s", id, ErrInvalidTransition, c.Status, card.StatusAwaitingAcceptance)
	}

	c = c.Clone()
	c.Status = card.StatusAwaitingAcceptance
	if c.AssignedTo == "" {
		c.AssignedTo = sess.Agent()
	}
	if err := b.store.SaveCard(ctx, c); err != nil {
		return card.Card{}, fmt.Errorf("submit %s: %w", id, err)
	}

	snap.ledger.Place(card.SetPendingReview, card.LedgerEntry{
		ID:        c.ID,
		Title:     c.Title,
		Assignee:  c.AssignedTo,
		Notes:     strings.TrimSpace(notes),
		Timestamp: b.clock.Now(),
	})
	if err := b.store.SaveLedger(ctx, snap.ledger); err != nil {
		return card.Card{}, fmt.Errorf("submit %s: %w: %w", id, ErrLedgerNotSaved, err)
	}
	b.logger.Info("card submitted", "card", id.String(), "assignee", c.AssignedTo)
	return c, nil
}

// Accept marks an awaiting card accepted, records it in the ledger's
// accepted set and reconciles, which unblocks cards that depended on it.
//
// When the reconcile pass fails part-way the result is still returned along
// with a *depgraph.PartialFailureError.
func (b *Board) Accept(ctx context.Context, id card.CardID, reviewer, notes string) (*ReviewResult, error) {
	return b.review(ctx, "accept", id, reviewer, notes, card.StatusAccepted, card.SetAccepted)
}

// RequestChanges sends an awaiting card back with reviewer notes. The notes
// are appended to the card and the ledger entry moves to needs_revision.
func (b *Board) RequestChanges(ctx context.Context, id card.CardID, reviewer, notes string) (*ReviewResult, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, fmt.Errorf("request changes %s: %w", id, ErrNotesRequired)
	}
	return b.review(ctx, "request changes", id, reviewer, notes, card.StatusNeedsRevision, card.SetNeedsRevision)
}

func (b *Board) review(ctx context.Context, op string, id card.CardID, reviewer, notes string, to card.Status, set card.LedgerSet) (*ReviewResult, error) {
	if reviewer = strings.TrimSpace(reviewer); reviewer == "" {
		reviewer = DefaultReviewer
	}
	notes = strings.TrimSpace(notes)

	b.mu.Lock()
	defer b.mu.Unlock()

	snap, err := b.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, id, err)
	}
	c, ok := snap.find(id)
	if !ok {
		return nil, notFound(op, id)
	}
	if c.Status != card.StatusAwaitingAcceptance || !card.CanTransition(c.Status, to) {
		return nil, fmt.Errorf("%s %s: %w: %s -> %s", op, id, ErrInvalidTransition, c.Status, to)
	}

	now := b.clock.Now()
	c = c.Clone()
	c.Status = to
	if to == card.StatusNeedsRevision {
		c.ReviewNotes = append(c.ReviewNotes, card.ReviewNote{Date: now, Reviewer: reviewer, Notes: notes})
	}
	if err := b.store.SaveCard(ctx, c); err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, id, err)
	}

	snap.ledger.Place(set, card.LedgerEntry{
		ID:        c.ID,
		Title:     c.Title,
		Reviewer:  reviewer,
		Assignee:  c.AssignedTo,
		Notes:     notes,
		Timestamp: now,
	})
	if err := b.store.SaveLedger(ctx, snap.ledger); err != nil {
		return &ReviewResult{Card: c}, fmt.Errorf("%s %s: %w: %w", op, id, ErrLedgerNotSaved, err)
	}
	b.logger.Info("card reviewed", "card", id.String(), "status", to, "reviewer", reviewer)

	report, err := b.reconcileLocked(ctx)
	return &ReviewResult{Card: c, Reconcile: report}, err
}
