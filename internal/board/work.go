package board

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/roach88/glyph/internal/card"
	"github.com/roach88/glyph/internal/depgraph"
)

// WorkItem is a card on an agent's queue.
type WorkItem struct {
	Card           card.Card      `json:"card"`
	State          depgraph.State `json:"state"`
	HasReviewNotes bool           `json:"has_review_notes"`
}

// WorkQueue is an agent's cards split by whether they can be worked on now.
type WorkQueue struct {
	Agent   string     `json:"agent"`
	Project string     `json:"project,omitempty"`
	Ready   []WorkItem `json:"ready"`
	Blocked []WorkItem `json:"blocked"`
}

// workStatuses are the statuses that put a card on an agent's queue.
var workStatuses = []card.Status{
	card.StatusAvailable,
	card.StatusBlocked,
	card.StatusInProgress,
	card.StatusNeedsRevision,
}

// DiscoverWork lists cards assigned to the session agent, scoped to the
// active project when one is set. Cards in progress come first in Ready so
// an agent resumes before it starts something new.
func (b *Board) DiscoverWork(ctx context.Context, sess card.Session) (*WorkQueue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap, err := b.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover work: %w", err)
	}
	return discoverWork(snap, sess), nil
}

func discoverWork(snap snapshot, sess card.Session) *WorkQueue {
	q := &WorkQueue{
		Agent:   sess.Agent(),
		Project: sess.ActiveProject,
		Ready:   []WorkItem{},
		Blocked: []WorkItem{},
	}
	states, index := depgraph.ComputeDependencyState(snap.cards, snap.ledger)
	for _, c := range index.Cards() {
		if c.AssignedTo != q.Agent || !sess.Visible(c) || !isWorkStatus(c.Status) {
			continue
		}
		item := WorkItem{Card: c, State: states[c.ID], HasReviewNotes: len(c.ReviewNotes) > 0}
		if item.State.Blocked {
			q.Blocked = append(q.Blocked, item)
			continue
		}
		q.Ready = append(q.Ready, item)
	}
	sort.SliceStable(q.Ready, func(i, j int) bool {
		return q.Ready[i].Card.Status == card.StatusInProgress && q.Ready[j].Card.Status != card.StatusInProgress
	})
	return q
}

func isWorkStatus(s card.Status) bool {
	for _, w := range workStatuses {
		if s == w {
			return true
		}
	}
	return false
}

// StartNext picks up the agent's next ready card. A card already in
// progress is returned unchanged; otherwise the first ready card is
// started. A nil card means nothing is ready; the queue says why.
func (b *Board) StartNext(ctx context.Context, sess card.Session) (*card.Card, *WorkQueue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap, err := b.load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("start next: %w", err)
	}
	q := discoverWork(snap, sess)
	if len(q.Ready) == 0 {
		return nil, q, nil
	}

	next := q.Ready[0].Card
	if next.Status == card.StatusInProgress {
		return &next, q, nil
	}
	started, err := b.startLocked(ctx, sess, snap, next.ID)
	if err != nil {
		return nil, q, err
	}
	return &started, q, nil
}

// ProjectSummary counts a project's cards by status.
type ProjectSummary struct {
	Name   string              `json:"name"`
	Active bool                `json:"active"`
	Total  int                 `json:"total"`
	Counts map[card.Status]int `json:"counts"`
}

// Projects lists every project named by an active card, sorted by name.
func (b *Board) Projects(ctx context.Context, sess card.Session) ([]ProjectSummary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cards, err := b.store.LoadCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("projects: %w", err)
	}
	return summarize(cards, sess), nil
}

func summarize(cards []card.Card, sess card.Session) []ProjectSummary {
	byName := make(map[string]*ProjectSummary)
	for _, c := range depgraph.NewIndex(cards).Cards() {
		if c.Project == "" {
			continue
		}
		p, ok := byName[c.Project]
		if !ok {
			p = &ProjectSummary{Name: c.Project, Active: c.Project == sess.ActiveProject, Counts: map[card.Status]int{}}
			byName[c.Project] = p
		}
		p.Total++
		p.Counts[c.Status]++
	}

	out := make([]ProjectSummary, 0, len(byName))
	for _, p := range byName {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CheckProject returns ErrUnknownProject unless some active card belongs to
// project.
func (b *Board) CheckProject(ctx context.Context, project string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	known, err := b.projectNames(ctx)
	if err != nil {
		return fmt.Errorf("check project: %w", err)
	}
	if slices.Contains(known, project) {
		return nil
	}
	return fmt.Errorf("check project %q: %w", project, ErrUnknownProject)
}

// projectNames asks the store directly when it can list projects and
// otherwise derives them from the loaded cards.
func (b *Board) projectNames(ctx context.Context) ([]string, error) {
	if pl, ok := b.store.(ProjectLister); ok {
		return pl.Projects(ctx)
	}
	cards, err := b.store.LoadCards(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, c := range cards {
		if c.Project != "" && !slices.Contains(names, c.Project) {
			names = append(names, c.Project)
		}
	}
	return names, nil
}

// ProjectStatus summarizes the session's active project. It returns nil
// when no project is active.
func (b *Board) ProjectStatus(ctx context.Context, sess card.Session) (*ProjectSummary, error) {
	if !sess.ProjectMode() {
		return nil, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	cards, err := b.store.LoadCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("project status: %w", err)
	}
	for _, p := range summarize(cards, sess) {
		if p.Name == sess.ActiveProject {
			return &p, nil
		}
	}
	return &ProjectSummary{Name: sess.ActiveProject, Active: true, Counts: map[card.Status]int{}}, nil
}
